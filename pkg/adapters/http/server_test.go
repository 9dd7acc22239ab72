package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sot "github.com/aretw0/sot"
	"github.com/aretw0/sot/pkg/adapters/memory"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/observability"
	"github.com/aretw0/sot/pkg/registry"
	"github.com/aretw0/sot/pkg/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSolver(t *testing.T, opts ...sot.Option) *sot.Solver {
	t.Helper()
	reg := registry.NewRegistry()
	p, err := task.NewPostural("postural", []float64{1, -1})
	require.NoError(t, err)
	require.NoError(t, p.SetLambda(0.5))
	solver, err := sot.New(reg, domain.Stack{reg.AddTask(p)}, 2, opts...)
	require.NoError(t, err)
	return solver
}

func postTick(t *testing.T, h http.Handler, x []float64) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(TickRequest{X: x})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/tick", bytes.NewReader(body)))
	return w
}

func TestPostTick(t *testing.T) {
	h := NewHandler(newSolver(t))

	w := postTick(t, h, []float64{0, 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TickResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Tick)
	assert.InDelta(t, 0.5, resp.DX[0], 1e-6)
	assert.InDelta(t, -0.5, resp.DX[1], 1e-6)
	require.Len(t, resp.Levels, 1)
	assert.Equal(t, "postural", resp.Levels[0].TaskID)
}

func TestPostTick_BadRequests(t *testing.T) {
	h := NewHandler(newSolver(t))

	w := postTick(t, h, []float64{0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/tick", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLevels(t *testing.T) {
	solver := newSolver(t)
	h := NewHandler(solver)
	require.Equal(t, http.StatusOK, postTick(t, h, []float64{0, 0}).Code)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/levels", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var levels []domain.LevelReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &levels))
	require.Len(t, levels, 1)
	assert.Equal(t, 2, levels[0].Variables)
}

func TestSnapshots(t *testing.T) {
	store := memory.NewStore()
	solver := newSolver(t, sot.WithDiagnosticSink(observability.NewRecorder(store)))
	h := NewHandler(solver, WithStore(store))
	require.Equal(t, http.StatusOK, postTick(t, h, []float64{0, 0}).Code)

	tests := []struct {
		path string
		code int
	}{
		{"/snapshots", http.StatusOK},
		{"/snapshots/latest", http.StatusOK},
		{"/snapshots/1", http.StatusOK},
		{"/snapshots/99", http.StatusNotFound},
		{"/snapshots/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/snapshots/latest", nil))
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, uint64(1), snap.Tick)
	assert.Contains(t, snap.Vectors, "solution_0")
}

func TestSnapshots_NoStore(t *testing.T) {
	h := NewHandler(newSolver(t))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/snapshots", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	solver := newSolver(t, sot.WithLifecycleHooks(observability.Hooks(nil, m)))
	h := NewHandler(solver, WithGatherer(reg))
	require.Equal(t, http.StatusOK, postTick(t, h, []float64{0, 0}).Code)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sot_solver_ticks_total")
}

func TestSubscribeEvents(t *testing.T) {
	srv := NewServer(newSolver(t))
	h := srv.Routes()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(wSub, reqSub)
	}()

	require.Eventually(t, func() bool { return srv.Streams.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, http.StatusOK, postTick(t, h, []float64{0, 0}).Code)

	// Give the stream a moment to write before disconnecting.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"tick":1`)
}
