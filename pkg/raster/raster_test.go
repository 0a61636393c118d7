package raster

import (
	"context"
	"errors"
	"math"
	"testing"

	"neurofill/internal/models"
	"neurofill/pkg/fill"
)

func dims(w, h, d int) models.Dimensions {
	return models.Dimensions{Width: w, Height: h, Depth: d}
}

// buildResult creates a fill result from a list of visited voxels
func buildResult(threshold float64, nodes ...*fill.Node) fill.Result {
	volume := fill.NewVolume(0)
	for _, node := range nodes {
		volume.SetValue(node.X, node.Y, node.Z, node)
	}
	return fill.NewResult(volume, threshold)
}

// TestRenderScenarioA: two fillers visit (1,1,0) with g=3.0 and g=5.0, the
// first filler's threshold 4.0 is active, so the lower-cost node wins and
// the voxel is marked
func TestRenderScenarioA(t *testing.T) {
	a := buildResult(4.0, &fill.Node{X: 1, Y: 1, Z: 0, G: 3.0})
	b := buildResult(9.0, &fill.Node{X: 1, Y: 1, Z: 0, G: 5.0})

	stack, err := Render(context.Background(), []fill.Result{a, b}, nil, Options{
		Dims: dims(4, 4, 2), PixelWidth: Gray8,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if got := stack.At(1, 1, 0); got != 255 {
		t.Errorf("Expected marker 255 at (1,1,0), got %d", got)
	}
	// Every other voxel stays zero
	for z := 0; z < 2; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				if x == 1 && y == 1 && z == 0 {
					continue
				}
				if got := stack.At(x, y, z); got != 0 {
					t.Errorf("Expected 0 at (%d,%d,%d), got %d", x, y, z, got)
				}
			}
		}
	}
}

// TestRenderScenarioB: the second filler's lower cost wins the merge, but
// the active threshold still comes from the first filler, so the voxel is
// excluded (5.0 > 4.0)
func TestRenderScenarioB(t *testing.T) {
	a := buildResult(4.0, &fill.Node{X: 1, Y: 1, Z: 0, G: 6.0})
	b := buildResult(9.0, &fill.Node{X: 1, Y: 1, Z: 0, G: 5.0})

	merged := fill.Merger{}.Merge([]fill.Result{a, b})
	node, _ := merged.Value(1, 1, 0)
	if node.G != 5.0 {
		t.Fatalf("Expected merged g=5.0, got %g", node.G)
	}

	stack, err := Render(context.Background(), []fill.Result{a, b}, nil, Options{
		Dims: dims(4, 4, 1), PixelWidth: Gray8,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := stack.At(1, 1, 0); got != 0 {
		t.Errorf("Voxel above the first filler's threshold should stay 0, got %d", got)
	}
}

// TestRenderScenarioC: an empty result collection short-circuits to no
// output at all
func TestRenderScenarioC(t *testing.T) {
	stack, err := Render(context.Background(), nil, nil, Options{
		Dims: dims(4, 4, 1), PixelWidth: Gray8,
	})
	if err != nil {
		t.Fatalf("Empty input should not be an error, got %v", err)
	}
	if stack != nil {
		t.Error("Empty input should produce no stack")
	}
}

// TestRenderScenarioD: an unsupported pixel width fails fast with the
// sentinel error
func TestRenderScenarioD(t *testing.T) {
	a := buildResult(4.0, &fill.Node{X: 1, Y: 1, Z: 0, G: 3.0})

	_, err := Render(context.Background(), []fill.Result{a}, nil, Options{
		Dims: dims(4, 4, 1), PixelWidth: PixelWidth(12),
	})
	if !errors.Is(err, ErrUnsupportedPixelWidth) {
		t.Errorf("Expected ErrUnsupportedPixelWidth, got %v", err)
	}
}

// TestRenderThresholdBoundary verifies the non-strict <= inclusion rule
func TestRenderThresholdBoundary(t *testing.T) {
	result := buildResult(4.0,
		// exactly at threshold: included
		&fill.Node{X: 0, Y: 0, Z: 0, G: 4.0},
		// just above: excluded
		&fill.Node{X: 1, Y: 0, Z: 0, G: math.Nextafter(4.0, 5.0)},
	)

	stack, err := Render(context.Background(), []fill.Result{result}, nil, Options{
		Dims: dims(2, 1, 1), PixelWidth: Gray8,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if stack.At(0, 0, 0) != 255 {
		t.Error("Voxel with g exactly at the threshold should be included")
	}
	if stack.At(1, 0, 0) != 0 {
		t.Error("Voxel with g strictly above the threshold should be excluded")
	}
}

// TestRenderMarkerValues verifies the marker constant for each pixel width
func TestRenderMarkerValues(t *testing.T) {
	cases := []struct {
		width  PixelWidth
		marker uint32
	}{
		{Gray8, 0xff},
		{Gray16, 0xffff},
		{Gray32, 0xffffffff},
	}

	for _, tc := range cases {
		result := buildResult(1.0, &fill.Node{X: 0, Y: 0, Z: 0, G: 0.5})
		stack, err := Render(context.Background(), []fill.Result{result}, nil, Options{
			Dims: dims(2, 2, 1), PixelWidth: tc.width,
		})
		if err != nil {
			t.Fatalf("Render at width %d failed: %v", tc.width, err)
		}
		if got := stack.At(0, 0, 0); got != tc.marker {
			t.Errorf("Width %d: expected marker %d, got %d", tc.width, tc.marker, got)
		}
	}
}

// fullCoverageResult visits every voxel of the given extent with zero cost
func fullCoverageResult(d models.Dimensions, threshold float64) fill.Result {
	volume := fill.NewVolume(d.Depth)
	for z := 0; z < d.Depth; z++ {
		for y := 0; y < d.Height; y++ {
			for x := 0; x < d.Width; x++ {
				volume.SetValue(x, y, z, &fill.Node{X: x, Y: y, Z: z, G: 0})
			}
		}
	}
	return fill.NewResult(volume, threshold)
}

// TestRenderPreserveIntensityRoundTrip verifies that a full-coverage fill
// with an unbounded threshold reproduces the source image exactly
func TestRenderPreserveIntensityRoundTrip(t *testing.T) {
	d := dims(5, 4, 3)
	source, err := NewStack(Gray16, d, models.Calibration{XSpacing: 2, YSpacing: 2, ZSpacing: 5, Unit: "micron"})
	if err != nil {
		t.Fatalf("NewStack failed: %v", err)
	}
	for z := 0; z < d.Depth; z++ {
		for y := 0; y < d.Height; y++ {
			for x := 0; x < d.Width; x++ {
				source.Set(x, y, z, uint32((z*100+y*10+x)*97))
			}
		}
	}

	result := fullCoverageResult(d, math.Inf(1))
	stack, err := Render(context.Background(), []fill.Result{result}, source, Options{
		Dims: d, PixelWidth: Gray16, PreserveIntensity: true,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for z := 0; z < d.Depth; z++ {
		for y := 0; y < d.Height; y++ {
			for x := 0; x < d.Width; x++ {
				if got, want := stack.At(x, y, z), source.At(x, y, z); got != want {
					t.Fatalf("Voxel (%d,%d,%d): expected %d, got %d", x, y, z, want, got)
				}
			}
		}
	}

	// Calibration rides through from the source
	if stack.Calibration != source.Calibration {
		t.Errorf("Calibration not passed through: %+v vs %+v", stack.Calibration, source.Calibration)
	}

	// The output must not alias the source buffers
	stack.Set(0, 0, 0, 0)
	if source.At(0, 0, 0) == 0 {
		t.Error("Output buffer aliases the source buffer")
	}
}

// TestRenderPreserveIntensityMismatch verifies the dimension and width
// checks on the source stack
func TestRenderPreserveIntensityMismatch(t *testing.T) {
	result := buildResult(1.0, &fill.Node{X: 0, Y: 0, Z: 0, G: 0})

	// No source at all
	_, err := Render(context.Background(), []fill.Result{result}, nil, Options{
		Dims: dims(2, 2, 1), PixelWidth: Gray8, PreserveIntensity: true,
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Missing source: expected ErrDimensionMismatch, got %v", err)
	}

	// Wrong pixel width
	source16, _ := NewStack(Gray16, dims(2, 2, 1), models.DefaultCalibration())
	_, err = Render(context.Background(), []fill.Result{result}, source16, Options{
		Dims: dims(2, 2, 1), PixelWidth: Gray8, PreserveIntensity: true,
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Width mismatch: expected ErrDimensionMismatch, got %v", err)
	}

	// Wrong dimensions
	sourceSmall, _ := NewStack(Gray8, dims(2, 2, 2), models.DefaultCalibration())
	_, err = Render(context.Background(), []fill.Result{result}, sourceSmall, Options{
		Dims: dims(2, 2, 1), PixelWidth: Gray8, PreserveIntensity: true,
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Dimension mismatch: expected ErrDimensionMismatch, got %v", err)
	}
}

// TestRenderThresholdOverride verifies that an explicit threshold replaces
// the first filler's threshold
func TestRenderThresholdOverride(t *testing.T) {
	a := buildResult(4.0, &fill.Node{X: 1, Y: 1, Z: 0, G: 5.0})
	override := 6.0

	stack, err := Render(context.Background(), []fill.Result{a}, nil, Options{
		Dims: dims(4, 4, 1), PixelWidth: Gray8, Threshold: &override,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := stack.At(1, 1, 0); got != 255 {
		t.Errorf("Override threshold 6.0 should include g=5.0, got %d", got)
	}
}

// TestRenderParallelMatchesSerial verifies that slice-parallel rasterization
// produces exactly the serial output
func TestRenderParallelMatchesSerial(t *testing.T) {
	d := dims(16, 16, 9)
	var nodes []*fill.Node
	for z := 0; z < d.Depth; z += 2 {
		for i := 0; i < 40; i++ {
			nodes = append(nodes, &fill.Node{
				X: (i * 7) % d.Width, Y: (i * 3) % d.Height, Z: z,
				G: float64(i%6) + 0.25,
			})
		}
	}
	result := buildResult(3.0, nodes...)

	serial, err := Render(context.Background(), []fill.Result{result}, nil, Options{
		Dims: d, PixelWidth: Gray16,
	})
	if err != nil {
		t.Fatalf("Serial render failed: %v", err)
	}
	parallel, err := Render(context.Background(), []fill.Result{result}, nil, Options{
		Dims: d, PixelWidth: Gray16, Workers: 4,
	})
	if err != nil {
		t.Fatalf("Parallel render failed: %v", err)
	}

	for z := 0; z < d.Depth; z++ {
		for y := 0; y < d.Height; y++ {
			for x := 0; x < d.Width; x++ {
				if serial.At(x, y, z) != parallel.At(x, y, z) {
					t.Fatalf("Voxel (%d,%d,%d) differs between serial and parallel output", x, y, z)
				}
			}
		}
	}
}

// TestRenderCancellation verifies that a cancelled context aborts the run
// with no partial stack
func TestRenderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := buildResult(1.0, &fill.Node{X: 0, Y: 0, Z: 0, G: 0})
	stack, err := Render(ctx, []fill.Result{result}, nil, Options{
		Dims: dims(4, 4, 4), PixelWidth: Gray8,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if stack != nil {
		t.Error("Cancelled render should not return a stack")
	}
}

// TestRenderUntouchedPlanesStayZero verifies that planes without any merged
// slice remain all zero
func TestRenderUntouchedPlanesStayZero(t *testing.T) {
	result := buildResult(1.0, &fill.Node{X: 1, Y: 1, Z: 2, G: 0.5})

	stack, err := Render(context.Background(), []fill.Result{result}, nil, Options{
		Dims: dims(3, 3, 5), PixelWidth: Gray32,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for z := 0; z < 5; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				want := uint32(0)
				if x == 1 && y == 1 && z == 2 {
					want = 0xffffffff
				}
				if got := stack.At(x, y, z); got != want {
					t.Errorf("Voxel (%d,%d,%d): expected %d, got %d", x, y, z, want, got)
				}
			}
		}
	}
}

// TestRenderOutOfBoundsNodesIgnored verifies that nodes outside the dense
// grid do not panic or write anywhere
func TestRenderOutOfBoundsNodesIgnored(t *testing.T) {
	result := buildResult(1.0,
		&fill.Node{X: 0, Y: 0, Z: 0, G: 0.5},
		&fill.Node{X: 99, Y: 99, Z: 99, G: 0.5},
	)

	stack, err := Render(context.Background(), []fill.Result{result}, nil, Options{
		Dims: dims(2, 2, 1), PixelWidth: Gray8,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if stack.At(0, 0, 0) != 255 {
		t.Error("In-bounds voxel should still be marked")
	}
}
