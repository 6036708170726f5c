// Package spatial provides the shared nearest-neighbor index over a
// catalog's Cartesian points. The index is built once, is read-only
// afterwards, and is safe for concurrent readers; it is exclusively owned
// by the component that built it.
//
// The implementation wraps gonum's k-d tree, which gives exact radius and
// k-NN queries; approximate structures are unsuitable here because void
// radii and pair counts are defined in terms of exact neighbor distances.
package spatial

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/hupe1980/cosmoweb/catalog"
)

// Neighbor is a query result: the index of a point in the source catalog
// and its Euclidean distance to the query point.
type Neighbor struct {
	Index    int
	Distance float64
}

// Index is an immutable k-d tree over a catalog's points.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// Build constructs an index over the catalog. An empty catalog is fatal:
// every downstream component depends on the index.
func Build(c *catalog.Catalog) (*Index, error) {
	if c == nil || c.Len() == 0 {
		return nil, fmt.Errorf("spatial: %w", catalog.ErrEmptyCatalog)
	}
	pts := make(points, c.Len())
	for i, p := range c.Points() {
		pts[i] = point{x: p.X, y: p.Y, z: p.Z, idx: i}
	}
	return &Index{
		tree: kdtree.New(pts, false),
		n:    len(pts),
	}, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int { return ix.n }

// Radius returns all points within r of q (inclusive), sorted by distance.
// The query point itself is included when it is part of the indexed
// catalog; callers counting pairs skip the self match by index.
func (ix *Index) Radius(q catalog.CartesianPoint, r float64) []Neighbor {
	if r < 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(r * r) // gonum distances are squared
	ix.tree.NearestSet(keep, point{x: q.X, y: q.Y, z: q.Z, idx: -1})

	out := make([]Neighbor, 0, keep.Len())
	for _, cd := range keep.Heap {
		p, ok := cd.Comparable.(point)
		if !ok {
			continue // the keeper's bound sentinel
		}
		out = append(out, Neighbor{Index: p.idx, Distance: math.Sqrt(cd.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Nearest returns the single closest indexed point to q.
func (ix *Index) Nearest(q catalog.CartesianPoint) Neighbor {
	c, dist := ix.tree.Nearest(point{x: q.X, y: q.Y, z: q.Z, idx: -1})
	p := c.(point)
	return Neighbor{Index: p.idx, Distance: math.Sqrt(dist)}
}

// KNearest returns the k closest indexed points to q, sorted by distance.
// Fewer than k results are returned when the catalog is smaller than k.
func (ix *Index) KNearest(q catalog.CartesianPoint, k int) []Neighbor {
	if k <= 0 {
		return nil
	}
	keep := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keep, point{x: q.X, y: q.Y, z: q.Z, idx: -1})

	out := make([]Neighbor, 0, k)
	for _, cd := range keep.Heap {
		p, ok := cd.Comparable.(point)
		if !ok {
			continue
		}
		out = append(out, Neighbor{Index: p.idx, Distance: math.Sqrt(cd.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// point adapts a catalog point (plus its index) to gonum's kdtree
// Comparable. Distances are squared Euclidean, per gonum's convention.
type point struct {
	x, y, z float64
	idx     int
}

var (
	_ kdtree.Comparable = point{}
	_ kdtree.Interface  = points(nil)
)

func (p point) dim(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.x
	case 1:
		return p.y
	default:
		return p.z
	}
}

// Compare returns the signed separation from q along dimension d.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	return p.dim(d) - q.dim(d)
}

// Dims returns the dimensionality, always 3.
func (p point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance to c.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx := p.x - q.x
	dy := p.y - q.y
	dz := p.z - q.z
	return dx*dx + dy*dy + dz*dz
}

// points implements kdtree.Interface for tree construction.
type points []point

func (ps points) Index(i int) kdtree.Comparable { return ps[i] }
func (ps points) Len() int                      { return len(ps) }
func (ps points) Slice(start, end int) kdtree.Interface {
	return ps[start:end]
}

func (ps points) Pivot(d kdtree.Dim) int {
	return plane{points: ps, Dim: d}.pivot()
}

// plane is the sort-by-dimension helper gonum's partitioning needs.
type plane struct {
	kdtree.Dim
	points
}

func (p plane) pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (p plane) Less(i, j int) bool {
	return p.points[i].dim(p.Dim) < p.points[j].dim(p.Dim)
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
