package fill

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"neurofill/internal/models"
)

// Stats summarizes the g-score distribution of one fill result. It is
// purely informational; nothing in the merge or rasterize path depends on
// it.
type Stats struct {
	// NodeCount is the total number of visited voxels.
	NodeCount int

	// FilledCount is the number of voxels at or below the threshold.
	FilledCount int

	// MeanG, StdDevG, MedianG and MaxG describe the g-score distribution
	// over all visited voxels. Zero when the fill is empty.
	MeanG   float64
	StdDevG float64
	MedianG float64
	MaxG    float64

	// FilledVolume is FilledCount scaled by the physical voxel volume.
	FilledVolume float64
}

// Summarize computes distribution statistics over a result's visited set.
func Summarize(result Result, calibration models.Calibration) Stats {
	var s Stats
	volume := result.Volume()
	if volume == nil {
		return s
	}

	gs := make([]float64, 0, volume.Len())
	threshold := result.Threshold()
	for _, z := range volume.ZIndices() {
		volume.Slice(z).Each(func(x, y int, node *Node) {
			if node == nil {
				return
			}
			gs = append(gs, node.G)
			if node.G <= threshold {
				s.FilledCount++
			}
		})
	}
	s.NodeCount = len(gs)
	s.FilledVolume = float64(s.FilledCount) * calibration.VoxelVolume()
	if len(gs) == 0 {
		return s
	}

	s.MeanG = stat.Mean(gs, nil)
	if len(gs) > 1 {
		s.StdDevG = stat.StdDev(gs, nil)
	}

	// Quantile and the max need sorted input.
	sort.Float64s(gs)
	s.MedianG = stat.Quantile(0.5, stat.Empirical, gs, nil)
	s.MaxG = gs[len(gs)-1]
	return s
}
