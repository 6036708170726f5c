// Package catalog defines the point types and the immutable Catalog
// container shared by every statistics component, plus the ingestion
// boundary that turns raw survey records into Cartesian catalogs.
package catalog

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyCatalog is returned when an operation requires at least one point.
var ErrEmptyCatalog = errors.New("catalog is empty")

// ObservedPoint is a raw survey position: right ascension and declination
// in degrees and a redshift. It is the source of truth for an object's
// position.
type ObservedPoint struct {
	RA  float64 // degrees, [0, 360)
	Dec float64 // degrees, [-90, 90]
	Z   float64 // redshift, >= 0
}

// CartesianPoint is a position in comoving coordinates (Mpc), derived
// deterministically from an ObservedPoint via the distance model.
type CartesianPoint struct {
	X, Y, Z float64
}

// Sub returns p - q component-wise.
func (p CartesianPoint) Sub(q CartesianPoint) CartesianPoint {
	return CartesianPoint{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

// Norm returns the Euclidean norm of p.
func (p CartesianPoint) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// DistanceTo returns the Euclidean distance between p and q.
func (p CartesianPoint) DistanceTo(q CartesianPoint) float64 {
	return p.Sub(q).Norm()
}

// Kind tags a catalog as observed data or a synthetic random realization.
type Kind int

const (
	// KindData marks a catalog of observed objects.
	KindData Kind = iota
	// KindRandom marks a synthetic null-hypothesis catalog.
	KindRandom
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindRandom:
		return "random"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Catalog is an immutable, ordered collection of Cartesian points with
// optional per-point masses and, when known, the observed coordinates the
// points were derived from. Filtering or resampling produces a new Catalog.
type Catalog struct {
	kind     Kind
	points   []CartesianPoint
	masses   []float64       // nil when the source carried no mass column
	observed []ObservedPoint // nil for synthetic catalogs built in Cartesian space
}

// New creates a catalog from Cartesian points. The slices are copied so
// later mutation of the arguments cannot reach the catalog.
func New(kind Kind, points []CartesianPoint) *Catalog {
	return &Catalog{
		kind:   kind,
		points: append([]CartesianPoint(nil), points...),
	}
}

// NewWithMass creates a catalog carrying an opaque mass column. masses must
// be the same length as points.
func NewWithMass(kind Kind, points []CartesianPoint, masses []float64) (*Catalog, error) {
	if len(masses) != len(points) {
		return nil, fmt.Errorf("catalog: mass column length %d does not match %d points", len(masses), len(points))
	}
	c := New(kind, points)
	c.masses = append([]float64(nil), masses...)
	return c, nil
}

// NewObserved creates a catalog that retains the observed (RA, Dec, z)
// coordinates alongside the derived Cartesian positions. observed must be
// the same length as points; masses may be nil.
func NewObserved(kind Kind, points []CartesianPoint, observed []ObservedPoint, masses []float64) (*Catalog, error) {
	if len(observed) != len(points) {
		return nil, fmt.Errorf("catalog: observed column length %d does not match %d points", len(observed), len(points))
	}
	var c *Catalog
	var err error
	if masses != nil {
		c, err = NewWithMass(kind, points, masses)
		if err != nil {
			return nil, err
		}
	} else {
		c = New(kind, points)
	}
	c.observed = append([]ObservedPoint(nil), observed...)
	return c, nil
}

// Kind returns the catalog tag.
func (c *Catalog) Kind() Kind { return c.kind }

// Len returns the number of points.
func (c *Catalog) Len() int { return len(c.points) }

// Point returns the i-th Cartesian point.
func (c *Catalog) Point(i int) CartesianPoint { return c.points[i] }

// Points returns the catalog's backing point slice. It is shared, not
// copied: callers must treat it as read-only.
func (c *Catalog) Points() []CartesianPoint { return c.points }

// HasMass reports whether the catalog carries a mass column.
func (c *Catalog) HasMass() bool { return c.masses != nil }

// Mass returns the i-th mass and whether a mass column is present.
func (c *Catalog) Mass(i int) (float64, bool) {
	if c.masses == nil {
		return 0, false
	}
	return c.masses[i], true
}

// Observed returns the observed coordinates the catalog was ingested from,
// or nil for catalogs built directly in Cartesian space. The slice is
// shared and read-only.
func (c *Catalog) Observed() []ObservedPoint { return c.observed }

// Bounds returns the axis-aligned bounding box of the catalog.
func (c *Catalog) Bounds() (min, max CartesianPoint, err error) {
	if len(c.points) == 0 {
		return CartesianPoint{}, CartesianPoint{}, ErrEmptyCatalog
	}
	min, max = c.points[0], c.points[0]
	for _, p := range c.points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max, nil
}

// Retag returns a catalog with the same contents under a different kind.
// Used when a synthetic point set stands in for observed data in tests.
func (c *Catalog) Retag(kind Kind) *Catalog {
	out := *c
	out.kind = kind
	return &out
}
