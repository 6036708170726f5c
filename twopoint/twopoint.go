// Package twopoint computes the two-point correlation function of galaxy
// clustering with the Landy-Szalay pair-count estimator:
//
//	xi(r) = (DD(r) - 2 DR(r) + RR(r)) / RR(r)
//
// where DD, DR and RR are pair counts normalized by their catalog-size
// combinatorics. Pair counting is index-backed: each point issues one
// radius query bounded by the outer bin edge and bins exact candidate
// distances, avoiding the naive O(N^2) scan. Counting is deterministic;
// all randomness lives in catalog generation.
package twopoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/cosmoweb/catalog"
	"github.com/hupe1980/cosmoweb/spatial"
)

// ErrInvalidBinEdges indicates bin edges that are not a strictly ascending
// positive sequence of at least two values. Validated eagerly, before any
// pair counting starts.
var ErrInvalidBinEdges = errors.New("bin edges must be at least two strictly ascending positive values")

// Bin is one separation bin of a correlation profile. DD, DR and RR are
// raw (unnormalized) pair counts; Xi is the Landy-Szalay estimate, NaN when
// the bin has no random-random pairs.
type Bin struct {
	RMin float64
	RMax float64
	DD   int64
	DR   int64
	RR   int64
	Xi   float64
}

// Profile is an ordered sequence of bins by increasing radius. It is
// created fresh per estimator run and never mutated after finalization.
type Profile struct {
	Bins []Bin
}

// LogEdges returns n+1 logarithmically spaced bin edges from rMin to rMax,
// the conventional binning for clustering measurements.
func LogEdges(rMin, rMax float64, n int) []float64 {
	edges := make([]float64, n+1)
	floats.LogSpan(edges, rMin, rMax)
	return edges
}

// ValidateEdges enforces the estimator's edge contract: at least two
// strictly ascending positive finite values.
func ValidateEdges(edges []float64) error {
	if len(edges) < 2 {
		return ErrInvalidBinEdges
	}
	for i, e := range edges {
		if e <= 0 || math.IsNaN(e) || math.IsInf(e, 0) {
			return fmt.Errorf("%w: edge %d is %g", ErrInvalidBinEdges, i, e)
		}
		if i > 0 && e <= edges[i-1] {
			return fmt.Errorf("%w: edge %d (%g) not greater than edge %d (%g)", ErrInvalidBinEdges, i, e, i-1, edges[i-1])
		}
	}
	return nil
}

// binFor maps a pair separation to its bin index, or -1 when the
// separation falls outside the binned range. A separation exactly on a bin
// boundary belongs to the lower (inner) bin, so a distance equal to the
// lowest edge is out of range.
func binFor(edges []float64, d float64) int {
	// SearchFloat64s returns the first edge >= d, so a separation exactly
	// on an edge resolves to the lower bin; at or below the lowest edge
	// (i == 0) and above the highest (i == len) it is out of range.
	i := sort.SearchFloat64s(edges, d)
	if i == 0 || i == len(edges) {
		return -1
	}
	return i - 1
}

// Options contains configuration options for the estimator.
type Options struct {
	// Parallelism bounds the number of concurrent pair-counting workers.
	Parallelism int
}

// DefaultOptions contains the default estimator configuration.
var DefaultOptions = Options{
	Parallelism: runtime.GOMAXPROCS(0),
}

// Estimate computes the Landy-Szalay correlation profile of the data
// catalog against the given random catalog over the supplied bin edges.
// Both catalogs must be non-empty; configuration is validated before any
// counting begins. Cancellation is honored between point chunks.
func Estimate(ctx context.Context, data, random *catalog.Catalog, edges []float64, optFns ...func(o *Options)) (*Profile, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Parallelism < 1 {
		return nil, fmt.Errorf("twopoint: parallelism must be at least 1, got %d", opts.Parallelism)
	}
	if err := ValidateEdges(edges); err != nil {
		return nil, err
	}
	if data == nil || data.Len() < 2 {
		return nil, fmt.Errorf("twopoint: data catalog needs at least 2 points: %w", catalog.ErrEmptyCatalog)
	}
	if random == nil || random.Len() < 2 {
		return nil, fmt.Errorf("twopoint: random catalog needs at least 2 points: %w", catalog.ErrEmptyCatalog)
	}

	dataIx, err := spatial.Build(data)
	if err != nil {
		return nil, err
	}
	randIx, err := spatial.Build(random)
	if err != nil {
		return nil, err
	}

	dd, err := countPairs(ctx, data, dataIx, edges, true, opts.Parallelism)
	if err != nil {
		return nil, err
	}
	dr, err := countPairs(ctx, data, randIx, edges, false, opts.Parallelism)
	if err != nil {
		return nil, err
	}
	rr, err := countPairs(ctx, random, randIx, edges, true, opts.Parallelism)
	if err != nil {
		return nil, err
	}

	nd := float64(data.Len())
	nr := float64(random.Len())
	ddNorm := nd * (nd - 1) / 2
	drNorm := nd * nr
	rrNorm := nr * (nr - 1) / 2

	profile := &Profile{Bins: make([]Bin, len(edges)-1)}
	for i := range profile.Bins {
		b := Bin{
			RMin: edges[i],
			RMax: edges[i+1],
			DD:   dd[i],
			DR:   dr[i],
			RR:   rr[i],
		}
		if b.RR == 0 {
			// No random pairs probe this scale; the estimate is
			// undefined, never zero.
			b.Xi = math.NaN()
		} else {
			ddN := float64(b.DD) / ddNorm
			drN := float64(b.DR) / drNorm
			rrN := float64(b.RR) / rrNorm
			b.Xi = (ddN - 2*drN + rrN) / rrN
		}
		profile.Bins[i] = b
	}
	return profile, nil
}

// countPairs bins separations between each point of src and the points of
// target (via its index). With self=true, src and target are the same
// catalog and each unordered pair is counted once by keeping only
// neighbors with a larger index; otherwise every cross pair is counted
// once. Workers accumulate into private count vectors that are summed at
// the end, so no locking is needed.
func countPairs(ctx context.Context, src *catalog.Catalog, target *spatial.Index, edges []float64, self bool, parallelism int) ([]int64, error) {
	n := src.Len()
	rMax := edges[len(edges)-1]

	workers := parallelism
	if workers > n {
		workers = n
	}
	partials := make([][]int64, workers)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			counts := make([]int64, len(edges)-1)
			lo := w * chunk
			hi := min(lo+chunk, n)
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				p := src.Point(i)
				for _, nb := range target.Radius(p, rMax) {
					if self {
						if nb.Index <= i {
							continue
						}
					}
					if bin := binFor(edges, nb.Distance); bin >= 0 {
						counts[bin]++
					}
				}
			}
			partials[w] = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := make([]int64, len(edges)-1)
	for _, counts := range partials {
		for i, c := range counts {
			total[i] += c
		}
	}
	return total, nil
}

// WriteTable writes the profile as a whitespace-separated table with
// columns r_min, r_max, DD, DR, RR, xi. Undefined bins carry "nan".
func WriteTable(w io.Writer, p *Profile) error {
	if _, err := fmt.Fprintln(w, "# r_min r_max DD DR RR xi"); err != nil {
		return err
	}
	for _, b := range p.Bins {
		_, err := fmt.Fprintf(w, "%.8g %.8g %d %d %d %.8g\n", b.RMin, b.RMax, b.DD, b.DR, b.RR, b.Xi)
		if err != nil {
			return err
		}
	}
	return nil
}
