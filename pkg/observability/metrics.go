package observability

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the solver collectors.
type Metrics struct {
	ticks         *prometheus.CounterVec
	tickDuration  prometheus.Histogram
	levelDuration *prometheus.HistogramVec
	levelFailures *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	iterations    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sot",
				Subsystem: "solver",
				Name:      "ticks_total",
				Help:      "Total control ticks by outcome.",
			},
			[]string{"success"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sot",
				Subsystem: "solver",
				Name:      "tick_duration_seconds",
				Help:      "Duration of a full cascade solve.",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
		),
		levelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sot",
				Subsystem: "level",
				Name:      "solve_duration_seconds",
				Help:      "Duration of one priority level solve.",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"level", "task"},
		),
		levelFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sot",
				Subsystem: "level",
				Name:      "failures_total",
				Help:      "Priority levels that aborted a tick.",
			},
			[]string{"level", "task"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sot",
				Subsystem: "qp",
				Name:      "attempts_total",
				Help:      "QP solve attempts by retry tier and outcome.",
			},
			[]string{"level", "tier", "success"},
		),
		iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sot",
				Subsystem: "qp",
				Name:      "working_set_changes",
				Help:      "Working set changes per QP attempt.",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 132},
			},
			[]string{"tier"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.tickDuration, m.levelDuration, m.levelFailures, m.attempts, m.iterations)
	}
	return m
}

// RecordTick records the outcome of a tick.
func (m *Metrics) RecordTick(e *domain.TickEvent) {
	m.ticks.WithLabelValues(strconv.FormatBool(e.Err == nil)).Inc()
	m.tickDuration.Observe(e.Duration.Seconds())
}

// RecordLevel records the outcome of a level.
func (m *Metrics) RecordLevel(e *domain.LevelEvent) {
	level := strconv.Itoa(e.Level)
	m.levelDuration.WithLabelValues(level, e.TaskID).Observe(e.Duration.Seconds())
	if e.Err != nil {
		m.levelFailures.WithLabelValues(level, e.TaskID).Inc()
	}
}

// RecordAttempt records one QP tier attempt.
func (m *Metrics) RecordAttempt(e *domain.SolveAttemptEvent) {
	m.attempts.WithLabelValues(strconv.Itoa(e.Level), e.Tier, strconv.FormatBool(e.Err == nil)).Inc()
	m.iterations.WithLabelValues(e.Tier).Observe(float64(e.Iterations))
}

// Hooks returns lifecycle hooks that log through logger and record into m.
// Either may be nil.
func Hooks(logger *slog.Logger, m *Metrics) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTickEnd: func(ctx context.Context, e *domain.TickEvent) {
			if logger != nil {
				if e.Err != nil {
					logger.Warn("tick_end", "tick", e.Tick, "duration", e.Duration, "error", e.Err)
				} else {
					logger.Debug("tick_end", "tick", e.Tick, "duration", e.Duration)
				}
			}
			if m != nil {
				m.RecordTick(e)
			}
		},
		OnLevelSolved: func(ctx context.Context, e *domain.LevelEvent) {
			if logger != nil {
				logger.Debug("level_solved", "tick", e.Tick, "level", e.Level, "task", e.TaskID, "constraints", e.Constraints)
			}
			if m != nil {
				m.RecordLevel(e)
			}
		},
		OnSolveAttempt: func(ctx context.Context, e *domain.SolveAttemptEvent) {
			if logger != nil && e.Err != nil {
				logger.Debug("solve_attempt_failed", "tick", e.Tick, "level", e.Level, "tier", e.Tier, "error", e.Err)
			}
			if m != nil {
				m.RecordAttempt(e)
			}
		},
	}
}

// Combine fans every event out to each set of hooks in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTickStart: func(ctx context.Context, e *domain.TickEvent) {
			for _, h := range all {
				if h.OnTickStart != nil {
					h.OnTickStart(ctx, e)
				}
			}
		},
		OnTickEnd: func(ctx context.Context, e *domain.TickEvent) {
			for _, h := range all {
				if h.OnTickEnd != nil {
					h.OnTickEnd(ctx, e)
				}
			}
		},
		OnLevelSolved: func(ctx context.Context, e *domain.LevelEvent) {
			for _, h := range all {
				if h.OnLevelSolved != nil {
					h.OnLevelSolved(ctx, e)
				}
			}
		},
		OnSolveAttempt: func(ctx context.Context, e *domain.SolveAttemptEvent) {
			for _, h := range all {
				if h.OnSolveAttempt != nil {
					h.OnSolveAttempt(ctx, e)
				}
			}
		},
	}
}
