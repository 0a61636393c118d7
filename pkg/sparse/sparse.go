// Package sparse provides sparse 2D and 3D map containers for volumes in
// which only a small fraction of voxels ever hold a value. Storage is
// allocated lazily per occupied row and slice, so memory use scales with the
// number of visited voxels rather than with the volume dimensions.
package sparse

import "sort"

// Matrix is a sparse 2D map from integer (x, y) coordinates to values of
// type V, backed by a nested row map (y -> x -> V). Rows are created lazily
// and never removed.
type Matrix[V any] struct {
	rows map[int]map[int]V
}

// NewMatrix creates an empty sparse matrix.
func NewMatrix[V any]() *Matrix[V] {
	return &Matrix[V]{rows: make(map[int]map[int]V)}
}

// Row returns the row map for the given y index, or nil if no value in that
// row has been set. The returned map is the live storage, not a copy.
func (m *Matrix[V]) Row(y int) map[int]V {
	return m.rows[y]
}

// NewRow creates and registers an empty row at the given y index. If a row
// already exists there, the existing row is returned unchanged.
func (m *Matrix[V]) NewRow(y int) map[int]V {
	if row, ok := m.rows[y]; ok {
		return row
	}
	row := make(map[int]V)
	m.rows[y] = row
	return row
}

// Value returns the value stored at (x, y). The second return value is false
// if either the row or the column entry is absent.
func (m *Matrix[V]) Value(x, y int) (V, bool) {
	if row, ok := m.rows[y]; ok {
		v, ok := row[x]
		return v, ok
	}
	var zero V
	return zero, false
}

// SetValue stores a value at (x, y), creating the row if needed and
// replacing any previous value at that coordinate.
func (m *Matrix[V]) SetValue(x, y int, value V) {
	row, ok := m.rows[y]
	if !ok {
		row = make(map[int]V)
		m.rows[y] = row
	}
	row[x] = value
}

// Len returns the number of stored values.
func (m *Matrix[V]) Len() int {
	n := 0
	for _, row := range m.rows {
		n += len(row)
	}
	return n
}

// RowIndices returns the occupied y indices in ascending order.
func (m *Matrix[V]) RowIndices() []int {
	indices := make([]int, 0, len(m.rows))
	for y := range m.rows {
		indices = append(indices, y)
	}
	sort.Ints(indices)
	return indices
}

// Each calls fn for every stored value. Iteration order is unspecified.
func (m *Matrix[V]) Each(fn func(x, y int, value V)) {
	for y, row := range m.rows {
		for x, v := range row {
			fn(x, y, v)
		}
	}
}

// Stack is a sparse collection of Matrix slices indexed by integer z. A
// slice exists for an index iff at least one voxel at that depth has been
// stored.
type Stack[V any] struct {
	slices map[int]*Matrix[V]
}

// NewStack creates an empty stack. The depth hint sizes the internal index
// and may be zero.
func NewStack[V any](depthHint int) *Stack[V] {
	return &Stack[V]{slices: make(map[int]*Matrix[V], depthHint)}
}

// Slice returns the matrix at the given z index, or nil if no voxel at that
// depth has been stored. It never allocates.
func (s *Stack[V]) Slice(z int) *Matrix[V] {
	return s.slices[z]
}

// NewSlice creates and registers an empty matrix at the given z index. If a
// slice already exists there, the existing slice is returned unchanged.
func (s *Stack[V]) NewSlice(z int) *Matrix[V] {
	if slice, ok := s.slices[z]; ok {
		return slice
	}
	slice := NewMatrix[V]()
	s.slices[z] = slice
	return slice
}

// Value returns the value stored at (x, y, z). The second return value is
// false if the slice or the voxel entry is absent.
func (s *Stack[V]) Value(x, y, z int) (V, bool) {
	if slice, ok := s.slices[z]; ok {
		return slice.Value(x, y)
	}
	var zero V
	return zero, false
}

// SetValue stores a value at (x, y, z), creating the slice if needed.
func (s *Stack[V]) SetValue(x, y, z int, value V) {
	slice, ok := s.slices[z]
	if !ok {
		slice = NewMatrix[V]()
		s.slices[z] = slice
	}
	slice.SetValue(x, y, value)
}

// Len returns the total number of stored values across all slices.
func (s *Stack[V]) Len() int {
	n := 0
	for _, slice := range s.slices {
		n += slice.Len()
	}
	return n
}

// SliceCount returns the number of occupied z indices.
func (s *Stack[V]) SliceCount() int {
	return len(s.slices)
}

// ZIndices returns the occupied z indices in ascending order, so callers can
// walk the stack deterministically.
func (s *Stack[V]) ZIndices() []int {
	indices := make([]int, 0, len(s.slices))
	for z := range s.slices {
		indices = append(indices, z)
	}
	sort.Ints(indices)
	return indices
}
