// Package raster converts merged sparse fill volumes into dense, pixel-typed
// image stacks. A voxel is written to the output when the merged volume holds
// a node for it whose g-score is at or below the active threshold; everything
// else stays zero.
package raster

import (
	"errors"
	"fmt"

	"neurofill/internal/models"
)

// PixelWidth selects the numeric storage width of a dense stack.
type PixelWidth int

// Supported pixel widths.
const (
	Gray8  PixelWidth = 8
	Gray16 PixelWidth = 16
	Gray32 PixelWidth = 32
)

// ErrUnsupportedPixelWidth is returned when a requested pixel width is none
// of 8, 16 or 32. The check runs before any slice is allocated.
var ErrUnsupportedPixelWidth = errors.New("unsupported pixel width")

// ErrDimensionMismatch is returned when a source stack does not match the
// requested output dimensions or pixel width.
var ErrDimensionMismatch = errors.New("source dimensions do not match output")

// Valid reports whether the width is one of the supported values.
func (w PixelWidth) Valid() bool {
	return w == Gray8 || w == Gray16 || w == Gray32
}

// MaxValue returns the largest value representable at this width, which is
// the marker value written when intensity is not preserved.
func (w PixelWidth) MaxValue() uint32 {
	switch w {
	case Gray8:
		return 0xff
	case Gray16:
		return 0xffff
	default:
		return 0xffffffff
	}
}

// Stack is a dense image stack: one flat width*height buffer per z plane, in
// exactly one of the three supported pixel widths. It serves both as the
// source image input to the rasterizer and as its output.
type Stack struct {
	PixelWidth  PixelWidth
	Dims        models.Dimensions
	Calibration models.Calibration

	// Exactly one of the following is non-nil, selected by PixelWidth.
	// Buffers are indexed [z][y*width+x].
	Gray8Data  [][]uint8
	Gray16Data [][]uint16
	Gray32Data [][]uint32
}

// NewStack allocates a zero-filled stack of the given width. Fails on an
// unsupported pixel width or non-positive dimensions.
func NewStack(width PixelWidth, dims models.Dimensions, calibration models.Calibration) (*Stack, error) {
	if !width.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPixelWidth, width)
	}
	if !dims.Valid() {
		return nil, fmt.Errorf("invalid dimensions %dx%dx%d", dims.Width, dims.Height, dims.Depth)
	}
	s := &Stack{PixelWidth: width, Dims: dims, Calibration: calibration}
	n := dims.SliceLen()
	switch width {
	case Gray8:
		s.Gray8Data = make([][]uint8, dims.Depth)
		for z := range s.Gray8Data {
			s.Gray8Data[z] = make([]uint8, n)
		}
	case Gray16:
		s.Gray16Data = make([][]uint16, dims.Depth)
		for z := range s.Gray16Data {
			s.Gray16Data[z] = make([]uint16, n)
		}
	case Gray32:
		s.Gray32Data = make([][]uint32, dims.Depth)
		for z := range s.Gray32Data {
			s.Gray32Data[z] = make([]uint32, n)
		}
	}
	return s, nil
}

// At returns the pixel at (x, y, z) widened to uint32, regardless of the
// stack's storage width.
func (s *Stack) At(x, y, z int) uint32 {
	i := y*s.Dims.Width + x
	switch s.PixelWidth {
	case Gray8:
		return uint32(s.Gray8Data[z][i])
	case Gray16:
		return uint32(s.Gray16Data[z][i])
	default:
		return s.Gray32Data[z][i]
	}
}

// Set stores a pixel at (x, y, z), truncating the value to the stack's
// storage width.
func (s *Stack) Set(x, y, z int, value uint32) {
	i := y*s.Dims.Width + x
	switch s.PixelWidth {
	case Gray8:
		s.Gray8Data[z][i] = uint8(value)
	case Gray16:
		s.Gray16Data[z][i] = uint16(value)
	default:
		s.Gray32Data[z][i] = value
	}
}
