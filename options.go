package twincache

import "github.com/rs/zerolog"

/*
Option is the functional-options pattern used to configure a Cache:
the disk budget, the record codec, an optional stats sink, and an
optional logger.

    cache := New(cacheDir,
        WithMaxMB(250),
        WithStatsSink(metricsSink),
    )
*/
type Option func(*Cache)

// WithMaxMB sets the disk budget (§4.3 budget reclamation). The spec's
// documented default is 100.
func WithMaxMB(maxMB float64) Option {
	return func(c *Cache) {
		c.maxMB = maxMB
	}
}

// WithCodec overrides the default JSON record codec, e.g. with a
// test double or a compressed codec.
func WithCodec(codec Codec) Option {
	return func(c *Cache) {
		c.codec = codec
	}
}

// WithStatsSink wires an observer (e.g. NewPrometheusStats) that receives
// a Stats snapshot after every counter-affecting operation. Passing nil
// disables observation, which is also the zero-value default.
func WithStatsSink(sink StatsSink) Option {
	return func(c *Cache) {
		c.sink = sink
	}
}

// WithLogger overrides the package default zerolog.Logger used for
// debug-level logging of swallowed persistence errors.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}
