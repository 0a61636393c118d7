// Package fill holds the sparse results produced by best-first volume
// searches ("fillers") and merges any number of them into a single volume
// keeping the lowest-cost visit per voxel. It also provides a serializable
// fill document and summary statistics over a fill's g-scores.
package fill

import "neurofill/pkg/sparse"

// Node is one visited voxel of a filler's search. The z coordinate is
// carried on the node even though the containing slice implies it, so nodes
// can be exported to flat documents without their container.
//
// Nodes are immutable once inserted into a volume: the merger replaces
// losing nodes, it never mutates them in place.
type Node struct {
	X, Y, Z int

	// G is the cumulative traversal cost from the originating seed.
	// Always >= 0.
	G float64

	// Predecessor points to the node this voxel was reached from. It is a
	// non-owning reference used only for path reconstruction and plays no
	// role in merging or rasterization. Nil for seed nodes.
	Predecessor *Node
}

// Volume is the sparse visited set of one filler (or of a merge), one sparse
// matrix per occupied z plane.
type Volume = sparse.Stack[*Node]

// NewVolume creates an empty visited set. The depth hint sizes the slice
// index and may be zero.
func NewVolume(depthHint int) *Volume {
	return sparse.NewStack[*Node](depthHint)
}
