package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sot "github.com/aretw0/sot"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TickResponse is the structured result of solve_tick.
type TickResponse struct {
	Tick   uint64               `json:"tick" jsonschema_description:"Index of the tick just solved"`
	DX     []float64            `json:"dx" jsonschema_description:"Command vector of the tick"`
	Levels []domain.LevelReport `json:"levels" jsonschema_description:"Per-level solve report"`
}

// Solver defines what the MCP server needs from the solver facade.
type Solver interface {
	Tick(ctx context.Context, x []float64) ([]float64, error)
	Levels() []domain.LevelReport
	Describe() ([]domain.LevelSummary, error)
	TickCount() uint64
	XSize() int
}

// Server wraps a Solver and exposes it as an MCP Server.
type Server struct {
	solver    Solver
	store     ports.SnapshotStore
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. store may be nil.
func NewServer(solver Solver, store ports.SnapshotStore) *Server {
	s := &Server{
		solver:    solver,
		store:     store,
		mcpServer: server.NewMCPServer("sot-mcp", strings.TrimSpace(sot.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mostly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: solve_tick
	tickTool := mcp.NewTool("solve_tick",
		mcp.WithDescription("Update every task at state x and solve one control tick."),
		mcp.WithString("x", mcp.Required(), mcp.Description("JSON array with the current state")),
		mcp.WithOutputSchema[TickResponse](),
	)
	s.mcpServer.AddTool(tickTool, mcp.NewStructuredToolHandler(s.handleSolveTick))

	// TOOL: list_levels
	s.mcpServer.AddTool(mcp.NewTool("list_levels",
		mcp.WithDescription("Report the last solve of every priority level."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.solver.Levels())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_snapshot
	s.mcpServer.AddTool(mcp.NewTool("get_snapshot",
		mcp.WithDescription("Get the diagnostic matrices of a tick. Omit tick for the latest one."),
		mcp.WithString("tick", mcp.Description("Tick index (optional)")),
	), s.handleGetSnapshot)
}

func (s *Server) handleSolveTick(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TickResponse, error) {
	raw, _ := args["x"].(string)
	var x []float64
	if err := json.Unmarshal([]byte(raw), &x); err != nil {
		return TickResponse{}, fmt.Errorf("x must be a JSON array of numbers: %w", err)
	}
	if len(x) != s.solver.XSize() {
		return TickResponse{}, fmt.Errorf("x has %d elements, want %d", len(x), s.solver.XSize())
	}

	dx, err := s.solver.Tick(ctx, x)
	if err != nil {
		slog.Warn("MCP solve_tick failed", "error", err)
		return TickResponse{}, fmt.Errorf("tick failed: %w", err)
	}
	return TickResponse{Tick: s.solver.TickCount(), DX: dx, Levels: s.solver.Levels()}, nil
}

func (s *Server) handleGetSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no snapshot store configured"), nil
	}

	var (
		snap *domain.Snapshot
		err  error
	)
	args := request.GetArguments()
	if raw, ok := args["tick"].(string); ok && raw != "" {
		tick, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid tick %q", raw)), nil
		}
		snap, err = s.store.Load(ctx, tick)
	} else {
		snap, err = s.store.Latest(ctx)
	}
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(snap)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// StackDescription lists the levels of the solver, most important first.
func (s *Server) StackDescription() ([]domain.LevelSummary, error) {
	return s.solver.Describe()
}

func (s *Server) registerResources() {
	// EXPOSE: sot://stack
	s.mcpServer.AddResource(mcp.NewResource("sot://stack", "Priority Stack",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries, err := s.StackDescription()
		if err != nil {
			return nil, fmt.Errorf("failed to describe stack: %w", err)
		}
		jsonBytes, _ := json.Marshal(entries)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "sot://stack",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
