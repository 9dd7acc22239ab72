package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/sot/pkg/config"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/aretw0/sot/pkg/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = "../../pkg/config/testdata/two_link.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "--solve", scenario)
	require.NoError(t, err)
	assert.Contains(t, out, `"two-link reach" is valid: 2 levels, 2 tasks, 2 constraints`)
}

func TestValidate_Missing(t *testing.T) {
	_, err := execute(t, "validate", "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "--ticks", "5", scenario)
	require.NoError(t, err)
	assert.Contains(t, out, "# two-link reach")
	assert.Contains(t, out, "Ran **5** ticks.")
	assert.Contains(t, out, "| 1 | postural |")
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph", scenario)
	require.NoError(t, err)
	assert.Contains(t, out, "L0 -- \"priority\" --> L1")
	assert.Contains(t, out, "c_velocity_limits ==> L1")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sotctl version")
}

func TestOpenStore_Middleware(t *testing.T) {
	store, closer, err := openStore(config.SinkConfig{Type: "memory", Include: []string{"^solution_"}, Precision: 1})
	require.NoError(t, err)
	defer closer()

	snap := domain.NewSnapshot(1)
	snap.Vectors["solution_0"] = []float64{0.26}
	snap.Vectors["g_0"] = []float64{1}
	require.NoError(t, store.Save(context.Background(), snap))

	got, err := store.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"solution_0"}, got.Names())
	assert.Equal(t, []float64{0.3}, got.Vectors["solution_0"])
}

func TestOpenStore_Errors(t *testing.T) {
	_, _, err := openStore(config.SinkConfig{Type: "tape"})
	assert.Error(t, err)

	_, _, err = openStore(config.SinkConfig{Type: "memory", Exclude: []string{"["}})
	assert.Error(t, err)

	store, _, err := openStore(config.SinkConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestControlLoop_ReportsSetupError(t *testing.T) {
	_, built, err := loadScenario(scenario)
	require.NoError(t, err)
	solver, err := built.NewSolver("control")
	require.NoError(t, err)

	errs := make(chan error, 1)
	controlLoop(context.Background(), runner.New(solver, built.Q0, runner.WithPeriod(0)), errs)

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "control loop")
	default:
		t.Fatal("setup error was dropped")
	}
}

func TestControlLoop_CancelIsClean(t *testing.T) {
	_, built, err := loadScenario(scenario)
	require.NoError(t, err)
	solver, err := built.NewSolver("control")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	errs := make(chan error, 1)
	controlLoop(ctx, runner.New(solver, built.Q0, runner.WithRate(100)), errs)
	assert.Empty(t, errs)
}
