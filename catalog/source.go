package catalog

import (
	"context"
	"iter"

	"golang.org/x/time/rate"
)

// Record is one raw catalog row as supplied by an external catalog client.
// RA/Dec are in degrees, Z is the redshift. Mass is optional passthrough
// metadata; it plays no role in the spatial statistics.
type Record struct {
	RA   float64
	Dec  float64
	Z    float64
	Mass *float64
}

// Source supplies raw records for an angular slice of the sky. The range
// parameter lets ingestion split the 360 degree RA span into independent
// slices that are fetched concurrently and merged by concatenation.
//
// Implementations yield a non-nil error to abort the slice; per-record
// quality problems should be yielded as records and left to ingestion's
// validation, which tolerates partial failure.
type Source interface {
	// Records iterates the records with raMin <= RA < raMax.
	Records(ctx context.Context, raMin, raMax float64) iter.Seq2[Record, error]
}

// SliceSource adapts an in-memory record slice to the Source interface.
// Useful for tests and for catalogs already fetched elsewhere.
type SliceSource []Record

// Records implements Source.
func (s SliceSource) Records(ctx context.Context, raMin, raMax float64) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, r := range s {
			if err := ctx.Err(); err != nil {
				yield(Record{}, err)
				return
			}
			// Inclusion test so a non-finite RA matches no slice, like a
			// range-partitioned remote query.
			if !(r.RA >= raMin && r.RA < raMax) {
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// RateLimitedSource throttles an underlying Source. Remote survey services
// (SDSS casjobs and friends) enforce request quotas; wrapping the network
// client keeps the parallel slice fetchers collectively under the limit.
type RateLimitedSource struct {
	inner   Source
	limiter *rate.Limiter
}

// NewRateLimitedSource wraps src so that at most limit records per second
// are yielded across all slices, with the given burst.
func NewRateLimitedSource(src Source, limit rate.Limit, burst int) *RateLimitedSource {
	return &RateLimitedSource{
		inner:   src,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Records implements Source.
func (s *RateLimitedSource) Records(ctx context.Context, raMin, raMax float64) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for r, err := range s.inner.Records(ctx, raMin, raMax) {
			if err != nil {
				yield(Record{}, err)
				return
			}
			if err := s.limiter.Wait(ctx); err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}
