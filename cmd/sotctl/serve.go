package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sot "github.com/aretw0/sot"
	httpAdapter "github.com/aretw0/sot/pkg/adapters/http"
	"github.com/aretw0/sot/pkg/observability"
	"github.com/aretw0/sot/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <scenario>",
	Short: "Serve a scenario over HTTP",
	Long: `Exposes the solver of a scenario over a JSON API with snapshots, an SSE tick
stream and Prometheus metrics. With --rate the server also integrates the scenario
on its own clock.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFrom(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")
		rate, _ := cmd.Flags().GetFloat64("rate")

		sc, built, err := loadScenario(args[0])
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(sc.Sink)
		if err != nil {
			return err
		}
		defer closeStore()

		reg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(reg)
		api := httpAdapter.NewServer(nil, httpAdapter.WithStore(store), httpAdapter.WithGatherer(reg), httpAdapter.WithLogger(logger))

		opts := []sot.Option{
			sot.WithLogger(logger),
			sot.WithLifecycleHooks(observability.Combine(observability.Hooks(logger, metrics), api.Hooks())),
		}
		if store != nil {
			opts = append(opts, sot.WithDiagnosticSink(observability.NewRecorder(store, observability.WithSampling(sc.Sink.Sampling))))
		}
		solver, err := built.NewSolver(sc.Name, opts...)
		if err != nil {
			return err
		}
		api.Solver = solver

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: api.Routes(),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Buffered for the listener and the control loop.
		serverErrors := make(chan error, 2)

		var wg sync.WaitGroup
		if rate > 0 {
			ctrl := runner.New(solver, built.Q0, runner.WithRate(rate), runner.WithLogger(logger))
			wg.Add(1)
			go func() {
				defer wg.Done()
				controlLoop(ctx, ctrl, serverErrors)
			}()
		}

		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Serving scenario %q on %s\n", sc.Name, srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			stop()
			wg.Wait()
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete: %w", err)
			}
			wg.Wait()
			fmt.Fprintln(cmd.OutOrStdout(), "Server stopped gracefully")
			return nil
		}
	},
}

// controlLoop runs ctrl until ctx is done and reports a failure to start on errs.
func controlLoop(ctx context.Context, ctrl *runner.Runner, errs chan<- error) {
	if err := ctrl.Run(ctx); err != nil {
		errs <- fmt.Errorf("control loop: %w", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Float64("rate", 0, "Ticks per second of the built-in control loop (0 disables it)")
}
