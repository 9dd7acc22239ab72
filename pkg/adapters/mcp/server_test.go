package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	sot "github.com/aretw0/sot"
	"github.com/aretw0/sot/pkg/adapters/memory"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/observability"
	"github.com/aretw0/sot/pkg/registry"
	"github.com/aretw0/sot/pkg/task"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	reg := registry.NewRegistry()
	p, err := task.NewPostural("postural", []float64{1, 2})
	require.NoError(t, err)
	solver, err := sot.New(reg, domain.Stack{reg.AddTask(p)}, 2,
		sot.WithDiagnosticSink(observability.NewRecorder(store)))
	require.NoError(t, err)
	return NewServer(solver, store), store
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestSolveTick(t *testing.T) {
	s, _ := newServer(t)

	resp, err := s.handleSolveTick(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"x": "[0, 0]"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.Tick)
	assert.InDelta(t, 1, resp.DX[0], 1e-6)
	assert.InDelta(t, 2, resp.DX[1], 1e-6)

	_, err = s.handleSolveTick(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"x": "[0]"})
	assert.Error(t, err)

	_, err = s.handleSolveTick(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"x": "nope"})
	assert.Error(t, err)
}

func TestGetSnapshot(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	res, err := s.handleGetSnapshot(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.IsError, "store is empty before the first tick")

	_, err = s.handleSolveTick(ctx, req, map[string]interface{}{"x": "[0, 0]"})
	require.NoError(t, err)

	res, err = s.handleGetSnapshot(ctx, req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &snap))
	assert.Equal(t, uint64(1), snap.Tick)

	req.Params.Arguments = map[string]any{"tick": "7"}
	res, err = s.handleGetSnapshot(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestStackDescription(t *testing.T) {
	s, _ := newServer(t)
	entries, err := s.StackDescription()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.LevelSummary{Level: 0, TaskID: "postural", Rows: 2, Constraints: 0}, entries[0])
}

func TestStackDescription_ConcurrentWithTicks(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := s.handleSolveTick(ctx, mcp.CallToolRequest{}, map[string]interface{}{"x": "[0.5, -0.5]"})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			entries, err := s.StackDescription()
			assert.NoError(t, err)
			assert.Len(t, entries, 1)
		}
	}()
	wg.Wait()
}
