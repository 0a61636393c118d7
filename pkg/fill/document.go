package fill

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"neurofill/internal/models"
)

// Document is the serializable form of a finished fill: a flat node list
// with predecessor indices, the fill's threshold, and the calibration of the
// image it was traced on. Documents round-trip through YAML so fills can be
// stored alongside a dataset and rasterized again later.
type Document struct {
	// Threshold is the maximum g-score treated as inside the fill.
	Threshold float64 `yaml:"threshold"`

	// Metric names the cost function the filler used, e.g. "reciprocal".
	// Informational only; merging and rasterization never interpret it.
	Metric string `yaml:"metric,omitempty"`

	// Calibration is the voxel spacing of the source image.
	Calibration models.Calibration `yaml:"calibration"`

	// Nodes is the flat visited set. Previous holds the index of a node's
	// predecessor within this list, or -1 for seed nodes.
	Nodes []DocumentNode `yaml:"nodes"`
}

// DocumentNode is one visited voxel in flat form.
type DocumentNode struct {
	X        int     `yaml:"x"`
	Y        int     `yaml:"y"`
	Z        int     `yaml:"z"`
	Distance float64 `yaml:"distance"`
	Previous int     `yaml:"previous"`
}

// FromResult flattens a result's volume into a document. Nodes are emitted
// in ascending (z, y, x) order so the same result always produces the same
// document.
func FromResult(result Result, calibration models.Calibration, metric string) *Document {
	doc := &Document{
		Threshold:   result.Threshold(),
		Metric:      metric,
		Calibration: calibration,
	}
	volume := result.Volume()
	if volume == nil {
		return doc
	}

	indexOf := make(map[*Node]int)
	forEachOrdered(volume, func(node *Node) {
		indexOf[node] = len(doc.Nodes)
		doc.Nodes = append(doc.Nodes, DocumentNode{
			X: node.X, Y: node.Y, Z: node.Z,
			Distance: node.G,
			Previous: -1,
		})
	})

	// Predecessor indices can only be resolved once every node has one.
	i := 0
	forEachOrdered(volume, func(node *Node) {
		if node.Predecessor != nil {
			if prev, ok := indexOf[node.Predecessor]; ok {
				doc.Nodes[i].Previous = prev
			}
		}
		i++
	})
	return doc
}

// forEachOrdered visits every node in ascending (z, y, x) order.
func forEachOrdered(volume *Volume, fn func(node *Node)) {
	for _, z := range volume.ZIndices() {
		slice := volume.Slice(z)
		for _, y := range slice.RowIndices() {
			row := slice.Row(y)
			xs := make([]int, 0, len(row))
			for x := range row {
				xs = append(xs, x)
			}
			sort.Ints(xs)
			for _, x := range xs {
				if node := row[x]; node != nil {
					fn(node)
				}
			}
		}
	}
}

// ToResult rebuilds a sparse result from the document, resolving predecessor
// indices back into node references. It fails on negative distances or
// out-of-range predecessor indices.
func (d *Document) ToResult() (Result, error) {
	volume := NewVolume(0)
	nodes := make([]*Node, len(d.Nodes))
	for i, dn := range d.Nodes {
		if dn.Distance < 0 {
			return Result{}, fmt.Errorf("node %d: negative distance %g", i, dn.Distance)
		}
		nodes[i] = &Node{X: dn.X, Y: dn.Y, Z: dn.Z, G: dn.Distance}
	}
	for i, dn := range d.Nodes {
		if dn.Previous >= 0 {
			if dn.Previous >= len(nodes) {
				return Result{}, fmt.Errorf("node %d: predecessor index %d out of range", i, dn.Previous)
			}
			nodes[i].Predecessor = nodes[dn.Previous]
		}
		volume.SetValue(dn.X, dn.Y, dn.Z, nodes[i])
	}
	return NewResult(volume, d.Threshold), nil
}

// Volume returns the physical fill volume, assumed to be the number of
// sub-threshold nodes multiplied by the voxel volume.
func (d *Document) Volume() float64 {
	subThreshold := 0
	for _, n := range d.Nodes {
		if n.Distance <= d.Threshold {
			subThreshold++
		}
	}
	return float64(subThreshold) * d.Calibration.VoxelVolume()
}

// Save writes the document as YAML, creating parent directories as needed.
func (d *Document) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating fill directory: %w", err)
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("error marshaling fill: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing fill file: %w", err)
	}
	return nil
}

// Load reads a YAML fill document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading fill file: %w", err)
	}
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("error parsing fill file: %w", err)
	}
	return doc, nil
}
