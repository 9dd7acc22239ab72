package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := observability.Hooks(nil, m)
	ctx := context.Background()

	hooks.OnSolveAttempt(ctx, &domain.SolveAttemptEvent{Level: 0, Tier: "hotstart", Iterations: 2, Err: errors.New("nwsr")})
	hooks.OnSolveAttempt(ctx, &domain.SolveAttemptEvent{Level: 0, Tier: "warmstart", Iterations: 3})
	hooks.OnLevelSolved(ctx, &domain.LevelEvent{Level: 0, TaskID: "postural", Duration: time.Millisecond})
	hooks.OnLevelSolved(ctx, &domain.LevelEvent{Level: 1, TaskID: "ee", Err: errors.New("infeasible")})
	hooks.OnTickEnd(ctx, &domain.TickEvent{Duration: time.Millisecond, Err: errors.New("infeasible")})
	hooks.OnTickEnd(ctx, &domain.TickEvent{Duration: time.Millisecond})

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "sot_solver_ticks_total")
	assert.Contains(t, names, "sot_qp_attempts_total")
	assert.Contains(t, names, "sot_level_failures_total")

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "sot_level_failures_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(reg, "sot_qp_attempts_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(reg, "sot_solver_ticks_total"))
}

func TestMetrics_NilRegisterer(t *testing.T) {
	m := observability.NewMetrics(nil)
	assert.NotPanics(t, func() {
		m.RecordTick(&domain.TickEvent{})
	})
}

func TestHooks_NilMetrics(t *testing.T) {
	hooks := observability.Hooks(nil, nil)
	assert.NotPanics(t, func() {
		hooks.OnTickEnd(context.Background(), &domain.TickEvent{})
		hooks.OnLevelSolved(context.Background(), &domain.LevelEvent{})
		hooks.OnSolveAttempt(context.Background(), &domain.SolveAttemptEvent{})
	})
}

func TestCombine(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnTickEnd: func(context.Context, *domain.TickEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnTickEnd:   func(context.Context, *domain.TickEvent) { calls = append(calls, "b") },
		OnTickStart: func(context.Context, *domain.TickEvent) { calls = append(calls, "b-start") },
	}

	hooks := observability.Combine(a, b)
	hooks.OnTickStart(context.Background(), &domain.TickEvent{})
	hooks.OnTickEnd(context.Background(), &domain.TickEvent{})
	hooks.OnLevelSolved(context.Background(), &domain.LevelEvent{})

	assert.Equal(t, []string{"b-start", "a", "b"}, calls)
}
