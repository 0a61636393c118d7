package fill

import (
	"sort"
	"sync"
)

// Merger combines the visited sets of any number of fillers into one sparse
// volume, keeping at every voxel the node with the lowest g-score seen
// across all inputs. On an exact g tie the node already present wins, so for
// a fixed input order the output is fully reproducible.
//
// Inputs are read-only: the merged volume references the input nodes but
// never mutates them, and the input volumes are left untouched.
type Merger struct {
	// Workers sets how many goroutines share the merge. Values below 2 run
	// the merge on the calling goroutine. Parallelism partitions the work by
	// z index, so every voxel is still merged by exactly one goroutine in
	// input order and the output is identical to a serial merge.
	Workers int
}

// Merge produces a new merged volume from the given results. A nil or empty
// input yields an empty volume. Input order only matters for tie-breaking on
// equal g-scores; the minimum-cost outcome itself is order independent.
func (m Merger) Merge(results []Result) *Volume {
	zs := occupiedZ(results)
	merged := NewVolume(len(zs))
	if len(zs) == 0 {
		return merged
	}

	// Slices are registered up front so workers never touch the shared z
	// index concurrently; each z is then owned by exactly one worker.
	for _, z := range zs {
		merged.NewSlice(z)
	}

	if m.Workers < 2 || len(zs) == 1 {
		for _, z := range zs {
			mergePlane(results, merged, z)
		}
		return merged
	}

	workers := m.Workers
	if workers > len(zs) {
		workers = len(zs)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := offset; i < len(zs); i += workers {
				mergePlane(results, merged, zs[i])
			}
		}(w)
	}
	wg.Wait()
	return merged
}

// mergePlane merges one z plane of every input, in input order, into the
// already-registered output slice for that plane.
func mergePlane(results []Result, merged *Volume, z int) {
	out := merged.Slice(z)
	for _, result := range results {
		volume := result.Volume()
		if volume == nil {
			continue
		}
		slice := volume.Slice(z)
		if slice == nil {
			continue
		}
		slice.Each(func(x, y int, node *Node) {
			if node == nil {
				return
			}
			existing, ok := out.Value(x, y)
			if !ok || node.G < existing.G {
				out.SetValue(x, y, node)
			}
		})
	}
}

// occupiedZ returns the union of occupied z indices across all results, in
// ascending order.
func occupiedZ(results []Result) []int {
	seen := make(map[int]struct{})
	for _, result := range results {
		volume := result.Volume()
		if volume == nil {
			continue
		}
		for _, z := range volume.ZIndices() {
			// An input may carry a registered but empty slice; those must
			// not materialize in the merged volume.
			if volume.Slice(z).Len() > 0 {
				seen[z] = struct{}{}
			}
		}
	}
	zs := make([]int, 0, len(seen))
	for z := range seen {
		zs = append(zs, z)
	}
	sort.Ints(zs)
	return zs
}
