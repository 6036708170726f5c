package catalog

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/cosmoweb/cosmo"
)

// Reject reasons reported in an ingestion Summary.
const (
	RejectNotFinite        = "non-finite coordinate"
	RejectRAOutOfRange     = "right ascension out of [0,360)"
	RejectDecOutOfRange    = "declination out of [-90,90]"
	RejectNegativeRedshift = "negative redshift"
)

// maxRejectExamples caps the example records retained per summary.
const maxRejectExamples = 5

// RejectedRecord pairs a bad record with the reason it was dropped.
type RejectedRecord struct {
	Record Record
	Reason string
}

// Summary aggregates per-record ingestion outcomes. Malformed rows never
// abort a catalog; they are counted here instead.
type Summary struct {
	Accepted int
	Rejected int
	Reasons  map[string]int
	Examples []RejectedRecord
}

func newSummary() *Summary {
	return &Summary{Reasons: make(map[string]int)}
}

func (s *Summary) reject(r Record, reason string) {
	s.Rejected++
	s.Reasons[reason]++
	if len(s.Examples) < maxRejectExamples {
		s.Examples = append(s.Examples, RejectedRecord{Record: r, Reason: reason})
	}
}

func (s *Summary) merge(o *Summary) {
	s.Accepted += o.Accepted
	s.Rejected += o.Rejected
	for reason, n := range o.Reasons {
		s.Reasons[reason] += n
	}
	for _, ex := range o.Examples {
		if len(s.Examples) >= maxRejectExamples {
			break
		}
		s.Examples = append(s.Examples, ex)
	}
}

// validate classifies a record, returning the empty string when it is good.
func validate(r Record) string {
	switch {
	case math.IsNaN(r.RA) || math.IsInf(r.RA, 0),
		math.IsNaN(r.Dec) || math.IsInf(r.Dec, 0),
		math.IsNaN(r.Z) || math.IsInf(r.Z, 0):
		return RejectNotFinite
	case r.RA < 0 || r.RA >= 360:
		return RejectRAOutOfRange
	case r.Dec < -90 || r.Dec > 90:
		return RejectDecOutOfRange
	case r.Z < 0:
		return RejectNegativeRedshift
	default:
		return ""
	}
}

// IngestOptions contains configuration options for catalog ingestion.
type IngestOptions struct {
	// Slices is the number of disjoint RA ranges fetched independently.
	Slices int

	// Parallelism bounds the number of slices fetched concurrently.
	Parallelism int
}

// DefaultIngestOptions contains the default ingestion configuration.
var DefaultIngestOptions = IngestOptions{
	Slices:      8,
	Parallelism: runtime.GOMAXPROCS(0),
}

// sliceResult is the private per-slice accumulation merged after the join.
type sliceResult struct {
	points   []CartesianPoint
	observed []ObservedPoint
	masses   []float64
	hasMass  bool
	summary  *Summary
}

// Ingest fetches records from src, validates them, transforms good rows via
// the distance model, and assembles a data catalog. The RA span is split
// into disjoint slices processed by independent workers; slice results share
// no mutable state and are concatenated in slice order, so the output is
// deterministic for a deterministic source.
//
// Malformed records are rejected individually and reported in the Summary;
// ingestion only fails on source or transform errors.
func Ingest(ctx context.Context, model *cosmo.Model, src Source, optFns ...func(o *IngestOptions)) (*Catalog, *Summary, error) {
	opts := DefaultIngestOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Slices < 1 {
		return nil, nil, fmt.Errorf("catalog: slices must be at least 1, got %d", opts.Slices)
	}
	if opts.Parallelism < 1 {
		return nil, nil, fmt.Errorf("catalog: parallelism must be at least 1, got %d", opts.Parallelism)
	}

	results := make([]sliceResult, opts.Slices)
	width := 360.0 / float64(opts.Slices)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i := range opts.Slices {
		g.Go(func() error {
			raMin := float64(i) * width
			raMax := raMin + width
			if i == opts.Slices-1 {
				raMax = 360 // absorb rounding at the top edge
			}
			res, err := ingestSlice(gctx, model, src, raMin, raMax)
			if err != nil {
				return fmt.Errorf("slice [%g,%g): %w", raMin, raMax, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("catalog: ingest: %w", err)
	}

	// Merge by concatenation.
	summary := newSummary()
	var n int
	hasMass := false
	for _, res := range results {
		n += len(res.points)
		hasMass = hasMass || res.hasMass
	}
	points := make([]CartesianPoint, 0, n)
	observed := make([]ObservedPoint, 0, n)
	var masses []float64
	if hasMass {
		masses = make([]float64, 0, n)
	}
	for _, res := range results {
		points = append(points, res.points...)
		observed = append(observed, res.observed...)
		if hasMass {
			masses = append(masses, res.masses...)
		}
		summary.merge(res.summary)
	}

	cat, err := NewObserved(KindData, points, observed, masses)
	if err != nil {
		return nil, nil, err
	}
	return cat, summary, nil
}

func ingestSlice(ctx context.Context, model *cosmo.Model, src Source, raMin, raMax float64) (sliceResult, error) {
	res := sliceResult{summary: newSummary()}
	for r, err := range src.Records(ctx, raMin, raMax) {
		if err != nil {
			return sliceResult{}, err
		}
		if reason := validate(r); reason != "" {
			res.summary.reject(r, reason)
			continue
		}
		x, y, z, err := model.Cartesian(r.RA, r.Dec, r.Z)
		if err != nil {
			return sliceResult{}, err
		}
		res.points = append(res.points, CartesianPoint{X: x, Y: y, Z: z})
		res.observed = append(res.observed, ObservedPoint{RA: r.RA, Dec: r.Dec, Z: r.Z})
		if r.Mass != nil {
			res.hasMass = true
			res.masses = append(res.masses, *r.Mass)
		} else {
			res.masses = append(res.masses, 0)
		}
		res.summary.Accepted++
	}
	return res, nil
}
