package fill

// Result is the immutable handle a finished filler hands to the merge and
// rasterize stages: its sparse visited volume paired with the cost threshold
// below which a voxel counts as inside the fill.
//
// The volume must no longer be written once wrapped in a Result; both the
// merger and the rasterizer only read it. All Results passed to a single
// merge operation are assumed to share one voxel coordinate system.
type Result struct {
	volume    *Volume
	threshold float64
}

// NewResult wraps a finished filler's volume and threshold.
func NewResult(volume *Volume, threshold float64) Result {
	return Result{volume: volume, threshold: threshold}
}

// Volume returns the filler's visited set. Callers must treat it as
// read-only.
func (r Result) Volume() *Volume {
	return r.volume
}

// Threshold returns the maximum g-score treated as inside this fill.
func (r Result) Threshold() float64 {
	return r.threshold
}

// DistanceAt returns the g-score recorded at the given voxel, or -1 if the
// filler never visited it.
func (r Result) DistanceAt(x, y, z int) float64 {
	if r.volume == nil {
		return -1
	}
	node, ok := r.volume.Value(x, y, z)
	if !ok || node == nil {
		return -1
	}
	return node.G
}
