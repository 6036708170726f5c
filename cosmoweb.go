// Package cosmoweb provides a statistics engine for the large-scale
// structure of galaxy surveys.
//
// The engine ingests observational catalogs (right ascension,
// declination, redshift), maps them into comoving Cartesian space with a
// configurable cosmological distance model, and derives the standard
// large-scale structure statistics from the resulting point set:
//
//   - Geometry-aware random catalogs matched to the survey footprint and
//     depth distribution
//   - The two-point correlation function via the Landy-Szalay pair-count
//     estimator
//   - The filament proximity graph of the cosmic web, with solidification
//     into a renderable mesh
//   - The void-size distribution via Monte-Carlo maximal-empty-sphere
//     scanning
//
// # Quick Start
//
//	ctx := context.Background()
//	engine, err := cosmoweb.New(
//	    cosmoweb.WithRandomRatio(10),
//	    cosmoweb.WithLinkingRadius(10),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	data, summary, err := engine.Ingest(ctx, source)
//	mask, err := engine.Footprint(data)
//	randoms, err := engine.Randoms(ctx, mask, data.Len())
//	profile, err := engine.Correlate(ctx, data, randoms)
//	graph, err := engine.FilamentGraph(ctx, data)
//	dist, err := engine.ScanVoids(ctx, data, mask)
//
// Completed runs can be published to a blobstore backend (local disk,
// S3, MinIO) with PublishRun, which uploads the artifact tables, a JSON
// manifest, and atomically advances the CURRENT pointer.
//
// All heavy operations accept a context and honor cancellation; results
// are deterministic for a fixed RNG seed regardless of parallelism.
package cosmoweb

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/cosmoweb/catalog"
	"github.com/hupe1980/cosmoweb/cosmo"
	"github.com/hupe1980/cosmoweb/filament"
	"github.com/hupe1980/cosmoweb/footprint"
	"github.com/hupe1980/cosmoweb/randcat"
	"github.com/hupe1980/cosmoweb/twopoint"
	"github.com/hupe1980/cosmoweb/voids"
)

// Engine ties the analysis pipeline together behind one configuration
// surface. It is immutable after New and safe for concurrent use; each
// operation builds its own spatial index over the catalogs it is given.
type Engine struct {
	model   *cosmo.Model
	opts    options
	metrics MetricsCollector
	logger  *Logger
}

// New creates an Engine. All configuration is validated eagerly so a
// misconfigured pipeline fails here, not hours into a scan.
func New(optFns ...Option) (*Engine, error) {
	opts := applyOptions(optFns)

	if opts.randomRatio < 1 {
		return nil, fmt.Errorf("%w: random ratio must be at least 1, got %d", ErrInvalidConfig, opts.randomRatio)
	}
	if opts.linkingRadius <= 0 {
		return nil, fmt.Errorf("%w: linking radius must be positive, got %g", ErrInvalidConfig, opts.linkingRadius)
	}
	if opts.cubeSize <= 0 {
		return nil, fmt.Errorf("%w: cube size must be positive, got %g", ErrInvalidConfig, opts.cubeSize)
	}
	if opts.voidSeeds < 1 {
		return nil, fmt.Errorf("%w: void seeds must be at least 1, got %d", ErrInvalidConfig, opts.voidSeeds)
	}
	if opts.footprintTolerance <= 0 || opts.footprintTolerance > 90 {
		return nil, fmt.Errorf("%w: footprint tolerance must be in (0, 90] degrees, got %g", ErrInvalidConfig, opts.footprintTolerance)
	}
	if opts.parallelism < 1 {
		return nil, fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrInvalidConfig, opts.parallelism)
	}
	if opts.binEdges == nil {
		opts.binEdges = twopoint.LogEdges(0.1, 50, 16)
	} else if err := twopoint.ValidateEdges(opts.binEdges); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	model, err := cosmo.New(opts.cosmoOptions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &Engine{
		model:   model,
		opts:    opts,
		metrics: opts.metricsCollector,
		logger:  opts.logger,
	}, nil
}

// Model returns the engine's cosmological distance model.
func (e *Engine) Model() *cosmo.Model {
	return e.model
}

// BinEdges returns the separation bin edges Correlate uses.
func (e *Engine) BinEdges() []float64 {
	edges := make([]float64, len(e.opts.binEdges))
	copy(edges, e.opts.binEdges)
	return edges
}

// Ingest pulls all records from the source, rejects malformed rows, and
// transforms the survivors into a Cartesian data catalog. Per-record
// failures are aggregated in the summary, never raised as errors.
func (e *Engine) Ingest(ctx context.Context, src catalog.Source) (*catalog.Catalog, *catalog.Summary, error) {
	start := time.Now()
	c, summary, err := catalog.Ingest(ctx, e.model, src, func(o *catalog.IngestOptions) {
		o.Parallelism = e.opts.parallelism
	})
	err = translateError(err)

	accepted, rejected := 0, 0
	if summary != nil {
		accepted, rejected = summary.Accepted, summary.Rejected
	}
	e.metrics.RecordIngest(accepted, rejected, time.Since(start), err)
	e.logger.LogIngest(ctx, accepted, rejected, err)
	return c, summary, err
}

// Footprint estimates the survey mask (angular acceptance cells plus the
// empirical redshift distribution) from an observed data catalog.
func (e *Engine) Footprint(c *catalog.Catalog) (*footprint.Mask, error) {
	mask, err := footprint.FromCatalog(c, func(o *footprint.Options) {
		o.Tolerance = e.opts.footprintTolerance
	})
	return mask, translateError(err)
}

// Randoms generates a geometry-aware random catalog of dataLen times the
// configured ratio points, uniform within the mask with depths matching
// the data's redshift distribution.
func (e *Engine) Randoms(ctx context.Context, mask *footprint.Mask, dataLen int) (*catalog.Catalog, error) {
	start := time.Now()
	rc, err := randcat.Footprint(ctx, e.model, mask, dataLen, func(o *randcat.Options) {
		o.Ratio = e.opts.randomRatio
		o.Seed = e.opts.seed
		o.Parallelism = e.opts.parallelism
	})
	err = translateError(err)

	n := 0
	if rc != nil {
		n = rc.Len()
	}
	e.metrics.RecordRandoms(n, time.Since(start), err)
	e.logger.LogRandoms(ctx, n, err)
	return rc, err
}

// Correlate computes the Landy-Szalay correlation profile of data
// against randoms over the engine's bin edges.
func (e *Engine) Correlate(ctx context.Context, data, randoms *catalog.Catalog) (*twopoint.Profile, error) {
	start := time.Now()
	profile, err := twopoint.Estimate(ctx, data, randoms, e.opts.binEdges, func(o *twopoint.Options) {
		o.Parallelism = e.opts.parallelism
	})
	err = translateError(err)

	bins, undefined := 0, 0
	if profile != nil {
		bins = len(profile.Bins)
		for _, b := range profile.Bins {
			if math.IsNaN(b.Xi) {
				undefined++
			}
		}
	}
	e.metrics.RecordCorrelate(bins, time.Since(start), err)
	e.logger.LogCorrelate(ctx, bins, undefined, err)
	return profile, err
}

// FilamentGraph links every catalog pair within the configured linking
// radius into the cosmic web skeleton.
func (e *Engine) FilamentGraph(ctx context.Context, c *catalog.Catalog) (*filament.Graph, error) {
	start := time.Now()
	g, err := filament.Build(ctx, c, e.opts.linkingRadius, func(o *filament.Options) {
		o.Parallelism = e.opts.parallelism
	})
	err = translateError(err)

	edges, components := 0, 0
	if g != nil {
		edges, components = g.Stats.EdgeCount, g.Stats.Components
	}
	e.metrics.RecordGraph(edges, time.Since(start), err)
	e.logger.LogGraph(ctx, edges, components, err)
	return g, err
}

// SolidifyMesh expands a skeleton graph into a renderable mesh using the
// configured cube size.
func (e *Engine) SolidifyMesh(c *catalog.Catalog, g *filament.Graph) (*filament.Mesh, error) {
	m, err := filament.Solidify(c, g, func(o *filament.SolidifyOptions) {
		o.CubeSize = e.opts.cubeSize
		o.WithPrisms = e.opts.withPrisms
	})
	return m, translateError(err)
}

// ScanVoids runs the Monte-Carlo void scan over the catalog's bounding
// volume. A non-nil mask rejects probe seeds outside the survey so
// boundary artifacts do not masquerade as large voids.
func (e *Engine) ScanVoids(ctx context.Context, c *catalog.Catalog, mask *footprint.Mask) (*voids.Distribution, error) {
	start := time.Now()
	d, err := voids.Scan(ctx, c, func(o *voids.Options) {
		o.Seeds = e.opts.voidSeeds
		o.Seed = e.opts.seed
		o.Parallelism = e.opts.parallelism
		if mask != nil {
			o.Mask = mask
			o.Model = e.model
		}
	})
	err = translateError(err)

	seeds := 0
	if d != nil {
		seeds = d.Len()
	}
	e.metrics.RecordVoidScan(seeds, time.Since(start), err)
	e.logger.LogVoidScan(ctx, seeds, err)
	return d, err
}
