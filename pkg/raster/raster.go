package raster

import (
	"context"
	"fmt"
	"sync"

	"neurofill/internal/models"
	"neurofill/pkg/fill"
)

// pixel covers the three numeric storage widths a stack can hold.
type pixel interface {
	~uint8 | ~uint16 | ~uint32
}

// Options configures one rasterization run.
type Options struct {
	// Dims is the dense extent of the output stack.
	Dims models.Dimensions

	// PixelWidth selects the output storage width (8, 16 or 32).
	PixelWidth PixelWidth

	// PreserveIntensity writes the source pixel value for every included
	// voxel instead of the marker value. Requires a source stack of the
	// same dimensions and pixel width.
	PreserveIntensity bool

	// Threshold, when non-nil, overrides the inclusion threshold. When nil
	// the threshold of the first result in the collection is used, matching
	// the historical behavior of assuming a single shared stopping
	// criterion across fillers.
	Threshold *float64

	// Calibration is attached to the output when no source stack supplies
	// one.
	Calibration models.Calibration

	// Workers sets how many goroutines rasterize slices concurrently.
	// Values below 2 run on the calling goroutine. Output slices are
	// independent, so the result is identical either way.
	Workers int
}

// Render merges the given fill results and rasterizes them into a dense
// stack. An empty result collection short-circuits to (nil, nil) without
// allocating anything. The returned stack never aliases the source buffers.
func Render(ctx context.Context, results []fill.Result, source *Stack, opts Options) (*Stack, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if !opts.PixelWidth.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPixelWidth, opts.PixelWidth)
	}
	threshold := results[0].Threshold()
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	merged := fill.Merger{Workers: opts.Workers}.Merge(results)
	return RenderVolume(ctx, merged, threshold, source, opts)
}

// RenderVolume rasterizes an already-merged volume against a dense grid.
// Voxels whose node has g <= threshold are written; everything else stays
// zero. Cancellation is checked between z slices; a cancelled run returns
// the context error and no stack.
func RenderVolume(ctx context.Context, merged *fill.Volume, threshold float64, source *Stack, opts Options) (*Stack, error) {
	if !opts.PixelWidth.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPixelWidth, opts.PixelWidth)
	}
	if !opts.Dims.Valid() {
		return nil, fmt.Errorf("invalid dimensions %dx%dx%d",
			opts.Dims.Width, opts.Dims.Height, opts.Dims.Depth)
	}

	calibration := opts.Calibration
	if opts.PreserveIntensity {
		if source == nil {
			return nil, fmt.Errorf("%w: no source stack supplied", ErrDimensionMismatch)
		}
		if source.PixelWidth != opts.PixelWidth {
			return nil, fmt.Errorf("%w: source is %d-bit, output is %d-bit",
				ErrDimensionMismatch, source.PixelWidth, opts.PixelWidth)
		}
		if source.Dims != opts.Dims {
			return nil, fmt.Errorf("%w: source is %dx%dx%d, output is %dx%dx%d",
				ErrDimensionMismatch,
				source.Dims.Width, source.Dims.Height, source.Dims.Depth,
				opts.Dims.Width, opts.Dims.Height, opts.Dims.Depth)
		}
		calibration = source.Calibration
	}

	out, err := NewStack(opts.PixelWidth, opts.Dims, calibration)
	if err != nil {
		return nil, err
	}

	switch opts.PixelWidth {
	case Gray8:
		err = renderPlanes(ctx, merged, threshold, sourcePlanes(source, opts, func(s *Stack) [][]uint8 { return s.Gray8Data }), out.Gray8Data, opts)
	case Gray16:
		err = renderPlanes(ctx, merged, threshold, sourcePlanes(source, opts, func(s *Stack) [][]uint16 { return s.Gray16Data }), out.Gray16Data, opts)
	case Gray32:
		err = renderPlanes(ctx, merged, threshold, sourcePlanes(source, opts, func(s *Stack) [][]uint32 { return s.Gray32Data }), out.Gray32Data, opts)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// sourcePlanes extracts the typed source buffers, or nil when intensity is
// not being preserved.
func sourcePlanes[P pixel](source *Stack, opts Options, planes func(*Stack) [][]P) [][]P {
	if !opts.PreserveIntensity || source == nil {
		return nil
	}
	return planes(source)
}

// renderPlanes walks every z plane of the output, writing either the source
// intensity or the width's maximum value for each included voxel. The same
// traversal serves all three storage widths.
func renderPlanes[P pixel](ctx context.Context, merged *fill.Volume, threshold float64, source [][]P, out [][]P, opts Options) error {
	width, height := opts.Dims.Width, opts.Dims.Height

	renderPlane := func(z int) {
		slice := merged.Slice(z)
		if slice == nil {
			// Untouched plane: the output buffer stays all zero.
			return
		}
		buf := out[z]
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				node, ok := slice.Value(x, y)
				if !ok || node == nil || node.G > threshold {
					continue
				}
				if source != nil {
					buf[y*width+x] = source[z][y*width+x]
				} else {
					buf[y*width+x] = ^P(0)
				}
			}
		}
	}

	if opts.Workers < 2 || opts.Dims.Depth == 1 {
		for z := 0; z < opts.Dims.Depth; z++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			renderPlane(z)
		}
		return nil
	}

	workers := opts.Workers
	if workers > opts.Dims.Depth {
		workers = opts.Dims.Depth
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for z := offset; z < opts.Dims.Depth; z += workers {
				if ctx.Err() != nil {
					return
				}
				renderPlane(z)
			}
		}(w)
	}
	wg.Wait()
	return ctx.Err()
}
