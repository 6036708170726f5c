package cosmoweb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordIngest is called after each catalog ingestion. accepted and
	// rejected are record counts; err is nil on success.
	RecordIngest(accepted, rejected int, duration time.Duration, err error)

	// RecordRandoms is called after each random catalog generation with
	// the number of points drawn.
	RecordRandoms(n int, duration time.Duration, err error)

	// RecordCorrelate is called after each correlation estimate with the
	// number of separation bins.
	RecordCorrelate(bins int, duration time.Duration, err error)

	// RecordGraph is called after each filament graph build with the
	// number of edges found.
	RecordGraph(edges int, duration time.Duration, err error)

	// RecordVoidScan is called after each void scan with the number of
	// converged seeds.
	RecordVoidScan(seeds int, duration time.Duration, err error)

	// RecordPublish is called after each run publication.
	RecordPublish(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIngest(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRandoms(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordCorrelate(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordGraph(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordVoidScan(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordPublish(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	IngestCount         atomic.Int64
	IngestAccepted      atomic.Int64
	IngestRejected      atomic.Int64
	IngestErrors        atomic.Int64
	RandomsCount        atomic.Int64
	RandomsPoints       atomic.Int64
	RandomsErrors       atomic.Int64
	CorrelateCount      atomic.Int64
	CorrelateErrors     atomic.Int64
	CorrelateTotalNanos atomic.Int64
	GraphCount          atomic.Int64
	GraphEdges          atomic.Int64
	GraphErrors         atomic.Int64
	VoidScanCount       atomic.Int64
	VoidScanSeeds       atomic.Int64
	VoidScanErrors      atomic.Int64
	PublishCount        atomic.Int64
	PublishErrors       atomic.Int64
}

// RecordIngest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIngest(accepted, rejected int, _ time.Duration, err error) {
	b.IngestCount.Add(1)
	b.IngestAccepted.Add(int64(accepted))
	b.IngestRejected.Add(int64(rejected))
	if err != nil {
		b.IngestErrors.Add(1)
	}
}

// RecordRandoms implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRandoms(n int, _ time.Duration, err error) {
	b.RandomsCount.Add(1)
	b.RandomsPoints.Add(int64(n))
	if err != nil {
		b.RandomsErrors.Add(1)
	}
}

// RecordCorrelate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCorrelate(_ int, duration time.Duration, err error) {
	b.CorrelateCount.Add(1)
	b.CorrelateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CorrelateErrors.Add(1)
	}
}

// RecordGraph implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGraph(edges int, _ time.Duration, err error) {
	b.GraphCount.Add(1)
	b.GraphEdges.Add(int64(edges))
	if err != nil {
		b.GraphErrors.Add(1)
	}
}

// RecordVoidScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordVoidScan(seeds int, _ time.Duration, err error) {
	b.VoidScanCount.Add(1)
	b.VoidScanSeeds.Add(int64(seeds))
	if err != nil {
		b.VoidScanErrors.Add(1)
	}
}

// RecordPublish implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPublish(_ time.Duration, err error) {
	b.PublishCount.Add(1)
	if err != nil {
		b.PublishErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		IngestCount:       b.IngestCount.Load(),
		IngestAccepted:    b.IngestAccepted.Load(),
		IngestRejected:    b.IngestRejected.Load(),
		IngestErrors:      b.IngestErrors.Load(),
		RandomsCount:      b.RandomsCount.Load(),
		RandomsPoints:     b.RandomsPoints.Load(),
		RandomsErrors:     b.RandomsErrors.Load(),
		CorrelateCount:    b.CorrelateCount.Load(),
		CorrelateErrors:   b.CorrelateErrors.Load(),
		CorrelateAvgNanos: b.getAvgCorrelateNanos(),
		GraphCount:        b.GraphCount.Load(),
		GraphEdges:        b.GraphEdges.Load(),
		GraphErrors:       b.GraphErrors.Load(),
		VoidScanCount:     b.VoidScanCount.Load(),
		VoidScanSeeds:     b.VoidScanSeeds.Load(),
		VoidScanErrors:    b.VoidScanErrors.Load(),
		PublishCount:      b.PublishCount.Load(),
		PublishErrors:     b.PublishErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgCorrelateNanos() int64 {
	count := b.CorrelateCount.Load()
	if count == 0 {
		return 0
	}
	return b.CorrelateTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	IngestCount       int64
	IngestAccepted    int64
	IngestRejected    int64
	IngestErrors      int64
	RandomsCount      int64
	RandomsPoints     int64
	RandomsErrors     int64
	CorrelateCount    int64
	CorrelateErrors   int64
	CorrelateAvgNanos int64
	GraphCount        int64
	GraphEdges        int64
	GraphErrors       int64
	VoidScanCount     int64
	VoidScanSeeds     int64
	VoidScanErrors    int64
	PublishCount      int64
	PublishErrors     int64
}
