package spatial

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cosmoweb/catalog"
)

func randomCatalog(n int, size float64, seed int64) *catalog.Catalog {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]catalog.CartesianPoint, n)
	for i := range pts {
		pts[i] = catalog.CartesianPoint{
			X: size * rng.Float64(),
			Y: size * rng.Float64(),
			Z: size * rng.Float64(),
		}
	}
	return catalog.New(catalog.KindData, pts)
}

func bruteRadius(c *catalog.Catalog, q catalog.CartesianPoint, r float64) []Neighbor {
	var out []Neighbor
	for i, p := range c.Points() {
		if d := p.DistanceTo(q); d <= r {
			out = append(out, Neighbor{Index: i, Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(catalog.New(catalog.KindData, nil))
	assert.ErrorIs(t, err, catalog.ErrEmptyCatalog)

	_, err = Build(nil)
	assert.ErrorIs(t, err, catalog.ErrEmptyCatalog)
}

func TestRadiusMatchesBruteForce(t *testing.T) {
	c := randomCatalog(300, 100, 7)
	ix, err := Build(c)
	require.NoError(t, err)
	require.Equal(t, 300, ix.Len())

	rng := rand.New(rand.NewSource(8))
	for range 25 {
		q := catalog.CartesianPoint{
			X: 100 * rng.Float64(),
			Y: 100 * rng.Float64(),
			Z: 100 * rng.Float64(),
		}
		for _, r := range []float64{5, 15, 40} {
			got := ix.Radius(q, r)
			want := bruteRadius(c, q, r)
			require.Len(t, got, len(want), "radius %g", r)
			for i := range want {
				assert.Equal(t, want[i].Index, got[i].Index)
				assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-9)
			}
		}
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	c := randomCatalog(300, 100, 9)
	ix, err := Build(c)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(10))
	for range 50 {
		q := catalog.CartesianPoint{
			X: 100 * rng.Float64(),
			Y: 100 * rng.Float64(),
			Z: 100 * rng.Float64(),
		}
		got := ix.Nearest(q)

		best := Neighbor{Index: -1, Distance: 1e18}
		for i, p := range c.Points() {
			if d := p.DistanceTo(q); d < best.Distance {
				best = Neighbor{Index: i, Distance: d}
			}
		}
		assert.Equal(t, best.Index, got.Index)
		assert.InDelta(t, best.Distance, got.Distance, 1e-9)
	}
}

func TestKNearest(t *testing.T) {
	c := randomCatalog(200, 50, 11)
	ix, err := Build(c)
	require.NoError(t, err)

	q := catalog.CartesianPoint{X: 25, Y: 25, Z: 25}
	got := ix.KNearest(q, 10)
	require.Len(t, got, 10)

	// Sorted ascending and consistent with brute force.
	all := bruteRadius(c, q, 1e9)
	for i, nb := range got {
		assert.Equal(t, all[i].Index, nb.Index)
		if i > 0 {
			assert.GreaterOrEqual(t, nb.Distance, got[i-1].Distance)
		}
	}

	// k larger than the catalog returns everything.
	assert.Len(t, ix.KNearest(q, 500), 200)

	// Degenerate k.
	assert.Nil(t, ix.KNearest(q, 0))
}

func TestRadiusIncludesSelf(t *testing.T) {
	c := randomCatalog(50, 10, 12)
	ix, err := Build(c)
	require.NoError(t, err)

	got := ix.Radius(c.Point(7), 0)
	require.NotEmpty(t, got)
	assert.Equal(t, 7, got[0].Index)
	assert.Zero(t, got[0].Distance)

	assert.Nil(t, ix.Radius(c.Point(7), -1))
}
