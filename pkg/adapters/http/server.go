package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Solver defines what the API needs from the solver facade.
type Solver interface {
	Tick(ctx context.Context, x []float64) ([]float64, error)
	Levels() []domain.LevelReport
	TickCount() uint64
	XSize() int
}

// Server serves the diagnostics API of one solver.
type Server struct {
	Solver   Solver
	Store    ports.SnapshotStore
	Streams  *StreamManager
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStore exposes the snapshots of store under /snapshots.
func WithStore(store ports.SnapshotStore) Option {
	return func(s *Server) {
		s.Store = store
	}
}

// WithGatherer serves gatherer on /metrics. Defaults to the prometheus default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewServer creates the server without routing it.
func NewServer(solver Solver, opts ...Option) *Server {
	s := &Server{
		Solver:   solver,
		Streams:  NewStreamManager(),
		Gatherer: prometheus.DefaultGatherer,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for the solver.
func NewHandler(solver Solver, opts ...Option) http.Handler {
	return NewServer(solver, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/levels", s.GetLevels)
	r.Post("/tick", s.PostTick)
	r.Get("/events", s.SubscribeEvents)
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", s.ListSnapshots)
		r.Get("/latest", s.GetLatestSnapshot)
		r.Get("/{tick}", s.GetSnapshot)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TickRequest is the body of POST /tick.
type TickRequest struct {
	X []float64 `json:"x"`
}

// TickResponse is the reply of POST /tick.
type TickResponse struct {
	Tick   uint64               `json:"tick"`
	DX     []float64            `json:"dx"`
	Levels []domain.LevelReport `json:"levels"`
}

// PostTick handles POST /tick: update at x, solve and return the command.
func (s *Server) PostTick(w http.ResponseWriter, r *http.Request) {
	var body TickRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("PostTick: Invalid request body", "error", err)
		return
	}
	if len(body.X) != s.Solver.XSize() {
		http.Error(w, fmt.Sprintf("x has %d elements, want %d", len(body.X), s.Solver.XSize()), http.StatusBadRequest)
		return
	}

	dx, err := s.Solver.Tick(r.Context(), body.X)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrSolveFailure) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, fmt.Sprintf("Tick error: %v", err), status)
		s.Logger.Error("Tick failed", "error", err)
		return
	}

	resp := TickResponse{Tick: s.Solver.TickCount(), DX: dx, Levels: s.Solver.Levels()}
	if msg, err := json.Marshal(resp); err == nil {
		s.Streams.Broadcast(string(msg))
	}
	writeJSON(w, s.Logger, resp)
}

// GetLevels handles GET /levels.
func (s *Server) GetLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, s.Solver.Levels())
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, map[string]any{
		"x_size": s.Solver.XSize(),
		"ticks":  s.Solver.TickCount(),
		"levels": len(s.Solver.Levels()),
	})
}

// ListSnapshots handles GET /snapshots.
func (s *Server) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ticks, err := s.Store.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("List snapshots failed", "error", err)
		return
	}
	writeJSON(w, s.Logger, ticks)
}

// GetLatestSnapshot handles GET /snapshots/latest.
func (s *Server) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	snap, err := s.Store.Latest(r.Context())
	s.writeSnapshot(w, snap, err)
}

// GetSnapshot handles GET /snapshots/{tick}.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	tick, err := strconv.ParseUint(chi.URLParam(r, "tick"), 10, 64)
	if err != nil {
		http.Error(w, "tick must be an unsigned integer", http.StatusBadRequest)
		return
	}
	snap, err := s.Store.Load(r.Context(), tick)
	s.writeSnapshot(w, snap, err)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.Store == nil {
		http.Error(w, "No snapshot store configured", http.StatusNotImplemented)
		return false
	}
	return true
}

func (s *Server) writeSnapshot(w http.ResponseWriter, snap *domain.Snapshot, err error) {
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Snapshot error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("Load snapshot failed", "error", err)
		return
	}
	writeJSON(w, s.Logger, snap)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "error", err)
	}
}
