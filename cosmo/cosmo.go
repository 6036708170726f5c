// Package cosmo implements the cosmological distance model used to place
// observed objects into a Cartesian comoving frame.
//
// The model is a flat (or near-flat) FLRW cosmology parameterized by the
// Hubble constant and the matter/dark-energy density parameters. Comoving
// distances are computed by Gauss-Legendre quadrature of 1/E(z) and cached
// in a lookup table so that whole catalogs can be transformed without
// per-point integration.
package cosmo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/interp"
)

// SpeedOfLight is the speed of light in km/s.
const SpeedOfLight = 299792.458

// ErrInvalidRedshift indicates a redshift outside the physical range (z < 0)
// or a non-finite value.
type ErrInvalidRedshift struct {
	Z float64
}

func (e *ErrInvalidRedshift) Error() string {
	return fmt.Sprintf("invalid redshift: %g", e.Z)
}

// Options contains configuration options for the distance model.
type Options struct {
	// H0 is the Hubble constant in km/s/Mpc.
	H0 float64

	// OmegaM is the matter density parameter.
	OmegaM float64

	// OmegaL is the dark-energy density parameter.
	OmegaL float64

	// TableMaxZ is the upper redshift bound of the cached distance table.
	// Redshifts above it fall back to direct quadrature.
	TableMaxZ float64

	// TableSteps is the number of nodes in the cached distance table.
	TableSteps int

	// QuadratureNodes is the number of Gauss-Legendre nodes per integral.
	QuadratureNodes int
}

// DefaultOptions contains the default configuration options for the
// distance model (a standard flat LambdaCDM cosmology).
var DefaultOptions = Options{
	H0:              70.0,
	OmegaM:          0.3,
	OmegaL:          0.7,
	TableMaxZ:       2.0,
	TableSteps:      2048,
	QuadratureNodes: 64,
}

// Model converts (RA, Dec, z) observations into Cartesian comoving
// coordinates. It is immutable and safe for concurrent use.
type Model struct {
	opts    Options
	omegaK  float64
	hubbleD float64 // c/H0 in Mpc

	// Cached z -> Dc table and its inverse for vectorized transforms.
	zs      []float64
	ds      []float64
	forward interp.PiecewiseLinear
	inverse interp.PiecewiseLinear
}

// New creates a new distance model.
func New(optFns ...func(o *Options)) (*Model, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.H0 <= 0 {
		return nil, fmt.Errorf("cosmo: H0 must be positive, got %g", opts.H0)
	}
	if opts.OmegaM < 0 || opts.OmegaL < 0 {
		return nil, fmt.Errorf("cosmo: density parameters must be non-negative, got OmegaM=%g OmegaL=%g", opts.OmegaM, opts.OmegaL)
	}
	if opts.TableSteps < 2 {
		return nil, fmt.Errorf("cosmo: table steps must be at least 2, got %d", opts.TableSteps)
	}
	if opts.TableMaxZ <= 0 {
		return nil, fmt.Errorf("cosmo: table max redshift must be positive, got %g", opts.TableMaxZ)
	}
	if opts.QuadratureNodes < 2 {
		return nil, fmt.Errorf("cosmo: quadrature nodes must be at least 2, got %d", opts.QuadratureNodes)
	}

	m := &Model{
		opts:    opts,
		omegaK:  1 - opts.OmegaM - opts.OmegaL,
		hubbleD: SpeedOfLight / opts.H0,
	}

	// Tabulate Dc(z) on a uniform grid. Dc is strictly increasing in z,
	// so the same table serves the inverse lookup.
	m.zs = make([]float64, opts.TableSteps)
	m.ds = make([]float64, opts.TableSteps)
	step := opts.TableMaxZ / float64(opts.TableSteps-1)
	for i := range m.zs {
		z := float64(i) * step
		m.zs[i] = z
		m.ds[i] = m.integrate(z)
	}
	if err := m.forward.Fit(m.zs, m.ds); err != nil {
		return nil, fmt.Errorf("cosmo: fitting distance table: %w", err)
	}
	if err := m.inverse.Fit(m.ds, m.zs); err != nil {
		return nil, fmt.Errorf("cosmo: fitting inverse distance table: %w", err)
	}

	return m, nil
}

// Options returns a copy of the model configuration.
func (m *Model) Options() Options { return m.opts }

// efunc is the dimensionless Hubble parameter E(z).
func (m *Model) efunc(z float64) float64 {
	zp1 := 1 + z
	return math.Sqrt(m.opts.OmegaM*zp1*zp1*zp1 + m.omegaK*zp1*zp1 + m.opts.OmegaL)
}

// integrate evaluates Dc(z) = (c/H0) * int_0^z dz'/E(z') by quadrature.
func (m *Model) integrate(z float64) float64 {
	if z == 0 {
		return 0
	}
	v := quad.Fixed(func(x float64) float64 {
		return 1 / m.efunc(x)
	}, 0, z, m.opts.QuadratureNodes, nil, 1)
	return m.hubbleD * v
}

// ComovingDistance returns the line-of-sight comoving distance in Mpc for
// the given redshift, computed by direct quadrature.
func (m *Model) ComovingDistance(z float64) (float64, error) {
	if z < 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, &ErrInvalidRedshift{Z: z}
	}
	return m.integrate(z), nil
}

// distance returns Dc(z) from the cached table, falling back to quadrature
// beyond the tabulated range. The caller must have validated z.
func (m *Model) distance(z float64) float64 {
	if z > m.opts.TableMaxZ {
		return m.integrate(z)
	}
	return m.forward.Predict(z)
}

// RedshiftAt returns the redshift implied by a comoving distance in Mpc.
// It is the numerical inverse of ComovingDistance within the tabulated
// range and is primarily used for round-trip checks and mask containment.
func (m *Model) RedshiftAt(dist float64) (float64, error) {
	if dist < 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return 0, fmt.Errorf("cosmo: invalid comoving distance: %g", dist)
	}
	maxD := m.ds[len(m.ds)-1]
	if dist > maxD {
		return 0, fmt.Errorf("cosmo: comoving distance %g Mpc beyond tabulated range (max %g)", dist, maxD)
	}
	return m.inverse.Predict(dist), nil
}

// Cartesian converts an observed (RA, Dec, z) triple into Cartesian
// comoving coordinates in Mpc. RA and Dec are in degrees. The Euclidean
// norm of the result equals the comoving distance implied by z.
func (m *Model) Cartesian(raDeg, decDeg, z float64) (x, y, zc float64, err error) {
	if z < 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, 0, 0, &ErrInvalidRedshift{Z: z}
	}
	d := m.distance(z)
	ra := raDeg * math.Pi / 180
	dec := decDeg * math.Pi / 180
	cosDec := math.Cos(dec)
	x = d * cosDec * math.Cos(ra)
	y = d * cosDec * math.Sin(ra)
	zc = d * math.Sin(dec)
	return x, y, zc, nil
}

// CartesianAll converts whole coordinate slices in one pass. The three
// input slices must have equal length; dst slices are allocated by the
// call. Invalid redshifts fail the whole batch; per-record tolerance is
// the ingestion layer's job.
func (m *Model) CartesianAll(raDeg, decDeg, zs []float64) (xs, ys, zcs []float64, err error) {
	if len(raDeg) != len(decDeg) || len(raDeg) != len(zs) {
		return nil, nil, nil, fmt.Errorf("cosmo: coordinate slice lengths differ: %d/%d/%d", len(raDeg), len(decDeg), len(zs))
	}
	xs = make([]float64, len(zs))
	ys = make([]float64, len(zs))
	zcs = make([]float64, len(zs))
	for i, z := range zs {
		xs[i], ys[i], zcs[i], err = m.Cartesian(raDeg[i], decDeg[i], z)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("cosmo: record %d: %w", i, err)
		}
	}
	return xs, ys, zcs, nil
}
