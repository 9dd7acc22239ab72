package main

import (
	"os"
	"os/signal"
	"syscall"

	sot "github.com/aretw0/sot"
	"github.com/aretw0/sot/pkg/adapters/mcp"
	"github.com/aretw0/sot/pkg/adapters/memory"
	"github.com/aretw0/sot/pkg/observability"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <scenario>",
	Short: "Start an MCP server for a scenario",
	Long: `Exposes the solver as Model Context Protocol tools (solve_tick, list_levels,
get_snapshot) and the sot://stack resource, over stdio by default.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFrom(cmd)
		if err != nil {
			return err
		}
		sc, built, err := loadScenario(args[0])
		if err != nil {
			return err
		}

		store, closeStore, err := openStore(sc.Sink)
		if err != nil {
			return err
		}
		defer closeStore()
		if store == nil {
			store = memory.NewStore(memory.WithLimit(100))
		}

		solver, err := built.NewSolver(sc.Name,
			sot.WithLogger(logger),
			sot.WithDiagnosticSink(observability.NewRecorder(store)),
		)
		if err != nil {
			return err
		}

		server := mcp.NewServer(solver, store)
		port, _ := cmd.Flags().GetInt("sse")
		if port > 0 {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ServeSSE(ctx, port)
		}
		return server.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Int("sse", 0, "Serve over SSE on this port instead of stdio")
}
