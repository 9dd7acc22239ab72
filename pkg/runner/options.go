package runner

import (
	"log/slog"
	"time"
)

// DefaultPeriod is the tick period when no rate is configured.
const DefaultPeriod = 10 * time.Millisecond

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithRate sets the number of ticks per second. Non-positive rates are ignored.
func WithRate(hz float64) Option {
	return func(r *Runner) {
		if hz > 0 {
			r.Period = time.Duration(float64(time.Second) / hz)
		}
	}
}

// WithPeriod sets the tick period directly.
func WithPeriod(d time.Duration) Option {
	return func(r *Runner) {
		r.Period = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithMaxTicks stops the runner after n ticks. Zero runs until cancellation.
func WithMaxTicks(n int) Option {
	return func(r *Runner) {
		r.MaxTicks = n
	}
}

// WithOnTick registers a callback run after every tick, failed or not.
func WithOnTick(fn func(Result)) Option {
	return func(r *Runner) {
		r.OnTick = fn
	}
}
