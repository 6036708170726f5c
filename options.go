package cosmoweb

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/cosmoweb/codec"
	"github.com/hupe1980/cosmoweb/cosmo"
)

type options struct {
	cosmoOptions       []func(*cosmo.Options)
	randomRatio        int
	binEdges           []float64
	linkingRadius      float64
	cubeSize           float64
	withPrisms         bool
	voidSeeds          int
	footprintTolerance float64
	parallelism        int
	seed               int64
	codec              codec.Codec
	compression        codec.Compression
	metricsCollector   MetricsCollector
	logger             *Logger
}

// Option configures Engine construction.
type Option func(*options)

// WithCosmology overrides the cosmological distance model parameters
// (H0, density parameters, lookup table resolution).
func WithCosmology(optFns ...func(*cosmo.Options)) Option {
	return func(o *options) {
		o.cosmoOptions = append(o.cosmoOptions, optFns...)
	}
}

// WithRandomRatio sets the random-to-data catalog size ratio used by
// Randoms. Larger ratios reduce estimator shot noise at linear cost in
// pair counting. Default 10.
func WithRandomRatio(ratio int) Option {
	return func(o *options) {
		o.randomRatio = ratio
	}
}

// WithBinEdges sets the separation bin edges for Correlate. Edges must
// be at least two strictly ascending positive values. The default is 16
// logarithmic bins from 0.1 to 50 Mpc.
func WithBinEdges(edges []float64) Option {
	return func(o *options) {
		o.binEdges = edges
	}
}

// WithLinkingRadius sets the neighbor threshold in Mpc for
// FilamentGraph. Default 10.
func WithLinkingRadius(radius float64) Option {
	return func(o *options) {
		o.linkingRadius = radius
	}
}

// WithCubeSize sets the side length in Mpc of the cube each point
// expands into during mesh solidification. Default 1.
func WithCubeSize(size float64) Option {
	return func(o *options) {
		o.cubeSize = size
	}
}

// WithPrisms enables edge prisms in solidified meshes, connecting the
// point cubes along every graph edge.
func WithPrisms(enabled bool) Option {
	return func(o *options) {
		o.withPrisms = enabled
	}
}

// WithVoidSeeds sets the number of Monte-Carlo probe seeds for
// ScanVoids. Default 10000.
func WithVoidSeeds(n int) Option {
	return func(o *options) {
		o.voidSeeds = n
	}
}

// WithFootprintTolerance sets the angular mask cell size in degrees used
// when estimating the survey footprint. Default 1.
func WithFootprintTolerance(deg float64) Option {
	return func(o *options) {
		o.footprintTolerance = deg
	}
}

// WithParallelism bounds concurrent workers across all engine
// operations. Default runtime.GOMAXPROCS(0).
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithRNGSeed fixes the seed for random catalog generation and void
// seeding, making runs reproducible. Default 1.
func WithRNGSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithCodec configures the codec used for run manifests.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures the compression applied to published
// artifact tables. Default is no compression.
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		if c == nil {
			c = codec.None{}
		}
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets
// it. Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		randomRatio:        10,
		linkingRadius:      10,
		cubeSize:           1,
		voidSeeds:          10000,
		footprintTolerance: 1,
		parallelism:        runtime.GOMAXPROCS(0),
		seed:               1,
		codec:              codec.Default,
		compression:        codec.None{},
		metricsCollector:   NoopMetricsCollector{},
		logger:             NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
