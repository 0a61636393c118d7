package models

// Calibration holds the physical voxel spacing of an image volume. It is
// passthrough metadata: the fill and raster packages copy it verbatim and
// never compute with it, except for converting voxel counts to physical
// volumes.
type Calibration struct {
	// XSpacing, YSpacing and ZSpacing are the physical extents of one voxel
	// along each axis, in Unit.
	XSpacing float64 `yaml:"xSpacing"`
	YSpacing float64 `yaml:"ySpacing"`
	ZSpacing float64 `yaml:"zSpacing"`

	// Unit is the length unit of the spacing values, e.g. "micron".
	Unit string `yaml:"unit"`
}

// DefaultCalibration returns an isotropic 1.0 spacing in pixels, used when a
// source stack carries no calibration of its own.
func DefaultCalibration() Calibration {
	return Calibration{XSpacing: 1, YSpacing: 1, ZSpacing: 1, Unit: "pixel"}
}

// VoxelVolume returns the physical volume of a single voxel.
func (c Calibration) VoxelVolume() float64 {
	return c.XSpacing * c.YSpacing * c.ZSpacing
}

// Dimensions describes the dense extent of an image volume in voxels.
type Dimensions struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Depth  int `yaml:"depth"`
}

// Valid reports whether all three extents are positive.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0 && d.Depth > 0
}

// Contains reports whether the voxel coordinate lies inside the volume.
func (d Dimensions) Contains(x, y, z int) bool {
	return x >= 0 && x < d.Width && y >= 0 && y < d.Height && z >= 0 && z < d.Depth
}

// SliceLen returns the number of voxels in one z plane.
func (d Dimensions) SliceLen() int {
	return d.Width * d.Height
}
