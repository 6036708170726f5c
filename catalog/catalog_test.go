package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCopiesInput(t *testing.T) {
	pts := []CartesianPoint{{X: 1}, {X: 2}}
	c := New(KindData, pts)

	pts[0].X = 99
	assert.Equal(t, 1.0, c.Point(0).X)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, KindData, c.Kind())
}

func TestNewWithMass(t *testing.T) {
	pts := []CartesianPoint{{X: 1}, {X: 2}}

	c, err := NewWithMass(KindData, pts, []float64{10, 20})
	require.NoError(t, err)
	assert.True(t, c.HasMass())
	m, ok := c.Mass(1)
	assert.True(t, ok)
	assert.Equal(t, 20.0, m)

	_, err = NewWithMass(KindData, pts, []float64{10})
	assert.Error(t, err)
}

func TestMassAbsent(t *testing.T) {
	c := New(KindRandom, []CartesianPoint{{}})
	assert.False(t, c.HasMass())
	_, ok := c.Mass(0)
	assert.False(t, ok)
}

func TestBounds(t *testing.T) {
	c := New(KindData, []CartesianPoint{
		{X: 1, Y: -2, Z: 3},
		{X: -4, Y: 5, Z: 0},
		{X: 2, Y: 0, Z: -1},
	})
	min, max, err := c.Bounds()
	require.NoError(t, err)
	assert.Equal(t, CartesianPoint{X: -4, Y: -2, Z: -1}, min)
	assert.Equal(t, CartesianPoint{X: 2, Y: 5, Z: 3}, max)

	_, _, err = New(KindData, nil).Bounds()
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestRetag(t *testing.T) {
	c := New(KindData, []CartesianPoint{{X: 1}})
	r := c.Retag(KindRandom)

	assert.Equal(t, KindRandom, r.Kind())
	assert.Equal(t, KindData, c.Kind())
	assert.Equal(t, c.Point(0), r.Point(0))
}

func TestDistanceTo(t *testing.T) {
	p := CartesianPoint{X: 1, Y: 2, Z: 2}
	assert.InDelta(t, 3.0, p.DistanceTo(CartesianPoint{}), 1e-12)
	assert.InDelta(t, 3.0, p.Norm(), 1e-12)
	assert.Equal(t, 0.0, p.DistanceTo(p))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "data", KindData.String())
	assert.Equal(t, "random", KindRandom.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}

func TestNewObserved(t *testing.T) {
	pts := []CartesianPoint{{X: 1}}
	obs := []ObservedPoint{{RA: 120, Dec: 10, Z: 0.1}}

	c, err := NewObserved(KindData, pts, obs, nil)
	require.NoError(t, err)
	require.Len(t, c.Observed(), 1)
	assert.Equal(t, obs[0], c.Observed()[0])

	_, err = NewObserved(KindData, pts, nil, nil)
	assert.Error(t, err)

	assert.Nil(t, New(KindData, pts).Observed())
	assert.False(t, math.IsNaN(c.Point(0).X))
}
