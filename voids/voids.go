// Package voids characterizes underdense regions of a galaxy catalog with
// a Monte-Carlo maximal-empty-sphere scan: random probe seeds are dropped
// into the catalog's bounding volume and the distance to the nearest
// galaxy is, by construction, the radius of the largest galaxy-free sphere
// centered there. The radii of many seeds form the void-size distribution.
package voids

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/cosmoweb/catalog"
	"github.com/hupe1980/cosmoweb/cosmo"
	"github.com/hupe1980/cosmoweb/footprint"
	"github.com/hupe1980/cosmoweb/spatial"
)

// maxRejectFactor bounds mask rejection: if fewer than one seed in
// maxRejectFactor lands inside the survey volume, the mask and the
// catalog's bounding box barely overlap and the scan fails.
const maxRejectFactor = 1000

// Record pairs a probe seed with its void radius, the distance to the
// nearest catalog galaxy.
type Record struct {
	Seed   catalog.CartesianPoint
	Radius float64
}

// Distribution is the ordered collection of records from one scan, in
// seed-draw order. It is never mutated after Scan returns.
type Distribution struct {
	Records []Record
}

// Options contains configuration options for the void scanner.
type Options struct {
	// Seeds is the number of probe points to draw.
	Seeds int

	// Seed seeds the probe generator for reproducible scans.
	Seed int64

	// Parallelism bounds the number of concurrent scan workers.
	Parallelism int

	// Mask, when set together with Model, rejects probe seeds outside the
	// survey volume so boundary artifacts do not masquerade as large voids.
	Mask *footprint.Mask

	// Model maps Cartesian seeds back to sky coordinates for mask checks.
	Model *cosmo.Model
}

// DefaultOptions contains the default scanner configuration.
var DefaultOptions = Options{
	Seeds:       10000,
	Seed:        1,
	Parallelism: runtime.GOMAXPROCS(0),
}

// Scan draws probe seeds uniformly in the catalog's bounding box and
// records each seed's nearest-neighbor distance as its void radius. Seeds
// rejected by the optional footprint mask are redrawn, never counted. The
// scan is deterministic for a fixed seed and independent of parallelism.
func Scan(ctx context.Context, c *catalog.Catalog, optFns ...func(o *Options)) (*Distribution, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Seeds < 1 {
		return nil, fmt.Errorf("voids: seed count must be at least 1, got %d", opts.Seeds)
	}
	if opts.Parallelism < 1 {
		return nil, fmt.Errorf("voids: parallelism must be at least 1, got %d", opts.Parallelism)
	}
	if opts.Mask != nil && opts.Model == nil {
		return nil, fmt.Errorf("voids: a footprint mask requires a distance model")
	}

	ix, err := spatial.Build(c)
	if err != nil {
		return nil, err
	}
	min, max, err := c.Bounds()
	if err != nil {
		return nil, err
	}

	workers := opts.Parallelism
	if workers > opts.Seeds {
		workers = opts.Seeds
	}
	chunks := make([][]Record, workers)
	quota := opts.Seeds / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			want := quota
			if w == workers-1 {
				want = opts.Seeds - quota*(workers-1)
			}
			rng := rand.New(rand.NewSource(opts.Seed + int64(w)*7919))
			out := make([]Record, 0, want)
			attempts := 0
			for len(out) < want {
				if attempts%4096 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				attempts++
				if attempts > want*maxRejectFactor {
					return fmt.Errorf("voids: seed acceptance below 1/%d; mask barely overlaps the catalog volume", maxRejectFactor)
				}
				seed := catalog.CartesianPoint{
					X: min.X + (max.X-min.X)*rng.Float64(),
					Y: min.Y + (max.Y-min.Y)*rng.Float64(),
					Z: min.Z + (max.Z-min.Z)*rng.Float64(),
				}
				if opts.Mask != nil && !opts.Mask.ContainsPoint(seed, opts.Model) {
					continue
				}
				out = append(out, Record{Seed: seed, Radius: ix.Nearest(seed).Distance})
			}
			chunks[w] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Distribution{Records: make([]Record, 0, opts.Seeds)}
	for _, chunk := range chunks {
		d.Records = append(d.Records, chunk...)
	}
	return d, nil
}

// Len returns the number of converged probe seeds.
func (d *Distribution) Len() int { return len(d.Records) }

// Mean returns the mean void radius, zero for an empty distribution.
func (d *Distribution) Mean() float64 {
	if len(d.Records) == 0 {
		return 0
	}
	return stat.Mean(d.radii(), nil)
}

// Max returns the largest void radius found, zero for an empty
// distribution.
func (d *Distribution) Max() float64 {
	var max float64
	for _, r := range d.Records {
		if r.Radius > max {
			max = r.Radius
		}
	}
	return max
}

// Histogram bins the radii by the given ascending edges. Radii outside
// the edge range are dropped; boundary values follow gonum's divider
// convention (lower edge inclusive).
func (d *Distribution) Histogram(edges []float64) []float64 {
	radii := d.radii()
	sort.Float64s(radii)
	// stat.Histogram requires every sample inside [edges[0], edges[last]).
	lo := sort.SearchFloat64s(radii, edges[0])
	hi := sort.SearchFloat64s(radii, edges[len(edges)-1])
	return stat.Histogram(make([]float64, len(edges)-1), edges, radii[lo:hi], nil)
}

func (d *Distribution) radii() []float64 {
	radii := make([]float64, len(d.Records))
	for i, r := range d.Records {
		radii[i] = r.Radius
	}
	return radii
}

// WriteTable writes the distribution as a whitespace-separated table with
// columns seed_x, seed_y, seed_z, radius.
func WriteTable(w io.Writer, d *Distribution) error {
	if _, err := fmt.Fprintln(w, "# seed_x seed_y seed_z radius"); err != nil {
		return err
	}
	for _, r := range d.Records {
		_, err := fmt.Fprintf(w, "%.8g %.8g %.8g %.8g\n", r.Seed.X, r.Seed.Y, r.Seed.Z, r.Radius)
		if err != nil {
			return err
		}
	}
	return nil
}
