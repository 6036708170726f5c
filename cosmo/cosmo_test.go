package cosmo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComovingDistanceMonotone(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	prev := -1.0
	for z := 0.0; z <= 1.0; z += 0.01 {
		d, err := m.ComovingDistance(z)
		require.NoError(t, err)
		assert.Greater(t, d, prev, "Dc must be strictly increasing at z=%g", z)
		prev = d
	}
}

func TestComovingDistanceReference(t *testing.T) {
	// Known values for flat LCDM H0=70, Om=0.3: Dc(0.1) ~ 413 Mpc,
	// Dc(0.5) ~ 1888 Mpc, Dc(1.0) ~ 3303 Mpc.
	m, err := New()
	require.NoError(t, err)

	tests := []struct {
		z    float64
		want float64
	}{
		{0.1, 413},
		{0.5, 1888},
		{1.0, 3303},
	}
	for _, tt := range tests {
		d, err := m.ComovingDistance(tt.z)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, d, tt.want*0.01, "z=%g", tt.z)
	}
}

func TestInvalidRedshift(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	for _, z := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		_, err := m.ComovingDistance(z)
		var ir *ErrInvalidRedshift
		assert.ErrorAs(t, err, &ir)

		_, _, _, err = m.Cartesian(10, 20, z)
		assert.ErrorAs(t, err, &ir)
	}
}

func TestRoundTrip(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	for z := 0.0; z <= 1.0; z += 0.025 {
		d, err := m.ComovingDistance(z)
		require.NoError(t, err)
		back, err := m.RedshiftAt(d)
		require.NoError(t, err)
		assert.InDelta(t, z, back, 1e-4, "round trip at z=%g", z)
	}
}

func TestCartesianNormInvariant(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	tests := []struct {
		ra, dec, z float64
	}{
		{0, 0, 0.1},
		{123.4, -45.6, 0.25},
		{359.9, 89.0, 0.7},
		{180, -89.9, 1.0},
	}
	for _, tt := range tests {
		x, y, zc, err := m.Cartesian(tt.ra, tt.dec, tt.z)
		require.NoError(t, err)
		want, err := m.ComovingDistance(tt.z)
		require.NoError(t, err)
		norm := math.Sqrt(x*x + y*y + zc*zc)
		assert.InDelta(t, want, norm, want*1e-3+1e-9)
	}
}

func TestCartesianAll(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	ra := []float64{0, 90, 180}
	dec := []float64{0, 45, -45}
	zs := []float64{0.1, 0.2, 0.3}

	xs, ys, zcs, err := m.CartesianAll(ra, dec, zs)
	require.NoError(t, err)
	require.Len(t, xs, 3)

	for i := range zs {
		x, y, zc, err := m.Cartesian(ra[i], dec[i], zs[i])
		require.NoError(t, err)
		assert.Equal(t, x, xs[i])
		assert.Equal(t, y, ys[i])
		assert.Equal(t, zc, zcs[i])
	}

	_, _, _, err = m.CartesianAll(ra, dec[:2], zs)
	assert.Error(t, err)

	_, _, _, err = m.CartesianAll([]float64{0}, []float64{0}, []float64{-1})
	assert.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := New(func(o *Options) { o.H0 = 0 })
	assert.Error(t, err)

	_, err = New(func(o *Options) { o.OmegaM = -1 })
	assert.Error(t, err)

	_, err = New(func(o *Options) { o.TableSteps = 1 })
	assert.Error(t, err)
}
