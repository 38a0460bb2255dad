package services

import (
	"github.com/dimitrije/family-core/internal/clock"
	"github.com/dimitrije/family-core/internal/metrics"
)

type options struct {
	clock   clock.Clock
	metrics *metrics.Metrics
}

type Option func(*options)

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
