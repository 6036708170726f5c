// Package footprint estimates the angular/depth mask of a survey from its
// data catalog. The mask is what makes a random catalog geometry-aware: a
// survey observes a cone or slice of the sky, not a box, and randoms drawn
// without the mask inflate the correlation amplitude.
//
// The angular footprint is a density grid over RA x sin(Dec) whose occupied
// cells are kept in a Roaring bitmap; the cell size is the configurable
// footprint tolerance. Mask precision is an accuracy/cost trade-off, not a
// single canonical algorithm: a finer grid hugs the survey edge more
// tightly but needs more data per cell to avoid holes.
package footprint

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/cosmoweb/catalog"
	"github.com/hupe1980/cosmoweb/cosmo"
)

// ErrEmptyFootprint indicates that no mask could be derived because the
// catalog has no usable angular coverage. Fatal for random generation.
var ErrEmptyFootprint = errors.New("empty footprint: no occupied mask cells")

// ErrNoObserved indicates the catalog carries no observed coordinates, so
// its angular footprint cannot be estimated.
var ErrNoObserved = errors.New("catalog has no observed coordinates")

// Options contains configuration options for mask estimation.
type Options struct {
	// Tolerance is the angular cell size in degrees. Smaller values trace
	// the survey boundary more precisely but risk spurious holes.
	Tolerance float64
}

// DefaultOptions contains the default mask estimation configuration.
var DefaultOptions = Options{
	Tolerance: 1.0,
}

// Mask is a survey footprint: the set of occupied angular cells plus the
// empirical redshift distribution of the catalog it was derived from.
// A Mask is immutable after construction.
type Mask struct {
	tol      float64
	cols     int // RA cells
	rows     int // sin(Dec) cells
	occupied *roaring.Bitmap

	raMin, raMax       float64 // degrees, bounding support
	sinDecMin, sinDecMax float64

	zs []float64 // sorted redshifts for inverse-CDF sampling
}

// FromCatalog derives a mask from a data catalog's observed coordinates.
func FromCatalog(c *catalog.Catalog, optFns ...func(o *Options)) (*Mask, error) {
	obs := c.Observed()
	if obs == nil {
		return nil, ErrNoObserved
	}
	return FromObserved(obs, optFns...)
}

// FromObserved derives a mask from raw observed coordinates.
func FromObserved(obs []catalog.ObservedPoint, optFns ...func(o *Options)) (*Mask, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tolerance <= 0 || opts.Tolerance > 90 {
		return nil, fmt.Errorf("footprint: tolerance must be in (0,90] degrees, got %g", opts.Tolerance)
	}

	m := &Mask{
		tol:       opts.Tolerance,
		cols:      int(math.Ceil(360 / opts.Tolerance)),
		rows:      int(math.Ceil(180 / opts.Tolerance)),
		occupied:  roaring.New(),
		raMin:     math.Inf(1),
		raMax:     math.Inf(-1),
		sinDecMin: math.Inf(1),
		sinDecMax: math.Inf(-1),
	}

	m.zs = make([]float64, 0, len(obs))
	for _, o := range obs {
		cell, ok := m.cell(o.RA, o.Dec)
		if !ok {
			continue
		}
		m.occupied.Add(cell)
		sd := math.Sin(o.Dec * math.Pi / 180)
		m.raMin = math.Min(m.raMin, o.RA)
		m.raMax = math.Max(m.raMax, o.RA)
		m.sinDecMin = math.Min(m.sinDecMin, sd)
		m.sinDecMax = math.Max(m.sinDecMax, sd)
		m.zs = append(m.zs, o.Z)
	}
	if m.occupied.IsEmpty() {
		return nil, ErrEmptyFootprint
	}
	sort.Float64s(m.zs)

	return m, nil
}

// cell maps (RA, Dec) in degrees to a grid cell ID.
func (m *Mask) cell(ra, dec float64) (uint32, bool) {
	if ra < 0 || ra >= 360 || dec < -90 || dec > 90 || math.IsNaN(ra) || math.IsNaN(dec) {
		return 0, false
	}
	col := int(ra / m.tol)
	if col >= m.cols {
		col = m.cols - 1
	}
	// Rows are uniform in sin(Dec), matching the uniform-on-sphere sampler.
	row := int((math.Sin(dec*math.Pi/180) + 1) / 2 * float64(m.rows))
	if row >= m.rows {
		row = m.rows - 1
	}
	return uint32(row*m.cols + col), true
}

// Tolerance returns the angular cell size in degrees.
func (m *Mask) Tolerance() float64 { return m.tol }

// Cells returns the number of occupied angular cells.
func (m *Mask) Cells() uint64 { return m.occupied.GetCardinality() }

// Contains reports whether (RA, Dec) falls in an occupied cell.
func (m *Mask) Contains(ra, dec float64) bool {
	cell, ok := m.cell(ra, dec)
	if !ok {
		return false
	}
	return m.occupied.Contains(cell)
}

// AngularBounds returns the bounding support of the footprint: the RA range
// in degrees and the sin(Dec) range. Rejection samplers draw uniformly from
// this box and keep only points inside the mask.
func (m *Mask) AngularBounds() (raMin, raMax, sinDecMin, sinDecMax float64) {
	return m.raMin, m.raMax, m.sinDecMin, m.sinDecMax
}

// RedshiftRange returns the depth range of the source catalog.
func (m *Mask) RedshiftRange() (zMin, zMax float64) {
	return m.zs[0], m.zs[len(m.zs)-1]
}

// SampleRedshift maps u in [0,1] through the inverse empirical CDF of the
// source catalog's redshifts, preserving the survey's depth selection
// function to within sampling noise.
func (m *Mask) SampleRedshift(u float64) float64 {
	if u <= 0 {
		return m.zs[0]
	}
	if u >= 1 {
		return m.zs[len(m.zs)-1]
	}
	return stat.Quantile(u, stat.Empirical, m.zs, nil)
}

// ContainsPoint reports whether a Cartesian point lies inside the effective
// survey volume: its sky direction must hit an occupied cell and its
// implied redshift must fall in the catalog's depth range. Used by the
// void scanner to reject seeds near survey boundaries.
func (m *Mask) ContainsPoint(p catalog.CartesianPoint, model *cosmo.Model) bool {
	r := p.Norm()
	if r == 0 {
		return false
	}
	z, err := model.RedshiftAt(r)
	if err != nil {
		return false
	}
	zMin, zMax := m.RedshiftRange()
	if z < zMin || z > zMax {
		return false
	}
	dec := math.Asin(p.Z/r) * 180 / math.Pi
	ra := math.Atan2(p.Y, p.X) * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}
	return m.Contains(ra, dec)
}
