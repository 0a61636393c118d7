// Package visualization saves rasterized fill stacks as image slice
// sequences and loads source image stacks from slice directories.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"neurofill/pkg/raster"
)

// Viewer exports the z planes of a dense stack as grayscale images.
type Viewer struct {
	stack *raster.Stack

	// jpegQuality is the encoding quality used by SaveSlice (1-100)
	jpegQuality int
}

// NewViewer creates a viewer over a rendered stack.
func NewViewer(stack *raster.Stack, jpegQuality int) *Viewer {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 90
	}
	return &Viewer{stack: stack, jpegQuality: jpegQuality}
}

// ExtractSlice converts the z plane at the given index into a grayscale
// image. 8-bit stacks map to Gray, wider stacks to Gray16 (32-bit values are
// scaled down to the 16-bit range).
func (v *Viewer) ExtractSlice(z int) (image.Image, error) {
	dims := v.stack.Dims
	if z < 0 || z >= dims.Depth {
		return nil, fmt.Errorf("slice %d out of range, depth is %d", z, dims.Depth)
	}

	if v.stack.PixelWidth == raster.Gray8 {
		img := image.NewGray(image.Rect(0, 0, dims.Width, dims.Height))
		for y := 0; y < dims.Height; y++ {
			for x := 0; x < dims.Width; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(v.stack.At(x, y, z))})
			}
		}
		return img, nil
	}

	img := image.NewGray16(image.Rect(0, 0, dims.Width, dims.Height))
	for y := 0; y < dims.Height; y++ {
		for x := 0; x < dims.Width; x++ {
			value := v.stack.At(x, y, z)
			if v.stack.PixelWidth == raster.Gray32 {
				value >>= 16
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(value)})
		}
	}
	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: v.jpegQuality})
}

// SaveSliceSequence extracts and saves every z plane of the stack into the
// output directory as slice_z_NNN.jpg files.
func (v *Viewer) SaveSliceSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for z := 0; z < v.stack.Dims.Depth; z++ {
		img, err := v.ExtractSlice(z)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.jpg", z))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
