// Package testutil provides shared helpers for tests: a seeded
// thread-safe RNG and synthetic catalog generators with known statistics.
package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/cosmoweb/catalog"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Intn returns a non-negative pseudo-random number in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformBox returns n points drawn uniformly in the cube [0, size)^3,
// a Poisson point process with density n/size^3.
func UniformBox(rng *RNG, n int, size float64) []catalog.CartesianPoint {
	pts := make([]catalog.CartesianPoint, n)
	for i := range pts {
		pts[i] = catalog.CartesianPoint{
			X: size * rng.Float64(),
			Y: size * rng.Float64(),
			Z: size * rng.Float64(),
		}
	}
	return pts
}

// LevyFlight returns n points of a Rayleigh-Levy flight folded into the
// periodic cube [0, size)^3. Step lengths follow P(>l) = (l/l0)^-dim, which
// yields a two-point correlation xi(r) ~ r^(dim-3) for l0 << r << size:
// dim = 1.2 gives the canonical galaxy slope gamma = 1.8.
func LevyFlight(rng *RNG, n int, size, l0, dim float64) []catalog.CartesianPoint {
	pts := make([]catalog.CartesianPoint, n)
	x := size * rng.Float64()
	y := size * rng.Float64()
	z := size * rng.Float64()
	maxStep := size / 2

	for i := range pts {
		pts[i] = catalog.CartesianPoint{X: x, Y: y, Z: z}

		// Pareto step length, capped so a single hop cannot span the box.
		u := 1 - rng.Float64() // (0, 1]
		l := l0 * math.Pow(u, -1/dim)
		if l > maxStep {
			l = maxStep
		}

		// Isotropic direction: uniform in cos(theta) and phi.
		cosT := 2*rng.Float64() - 1
		sinT := math.Sqrt(1 - cosT*cosT)
		phi := 2 * math.Pi * rng.Float64()

		x = wrap(x+l*sinT*math.Cos(phi), size)
		y = wrap(y+l*sinT*math.Sin(phi), size)
		z = wrap(z+l*cosT, size)
	}
	return pts
}

func wrap(v, size float64) float64 {
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	return v
}

// BrutePairCounts bins all unordered pair separations of pts by the given
// edges (boundary values resolve to the lower bin), the O(N^2) reference
// for index-backed counting.
func BrutePairCounts(pts []catalog.CartesianPoint, edges []float64) []int64 {
	counts := make([]int64, len(edges)-1)
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			d := pts[i].DistanceTo(pts[j])
			for b := len(edges) - 2; b >= 0; b-- {
				if d > edges[b] && d <= edges[b+1] {
					counts[b]++
					break
				}
			}
		}
	}
	return counts
}

// BruteNearest returns the index and distance of the point in pts closest
// to q, excluding exact index matches when self >= 0.
func BruteNearest(pts []catalog.CartesianPoint, q catalog.CartesianPoint, self int) (int, float64) {
	best := -1
	bestD := math.Inf(1)
	for i, p := range pts {
		if i == self {
			continue
		}
		if d := p.DistanceTo(q); d < bestD {
			best = i
			bestD = d
		}
	}
	return best, bestD
}
