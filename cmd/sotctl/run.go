package main

import (
	"fmt"
	"os"

	sot "github.com/aretw0/sot"
	"github.com/aretw0/sot/internal/presentation/tui"
	"github.com/aretw0/sot/pkg/observability"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Integrate a scenario offline",
	Long: `Runs the control loop q <- q + dq from the scenario's initial state for the
configured number of ticks (or until the command vanishes) and prints a report.`,
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

		ticks, _ := cmd.Flags().GetInt("ticks")
		if ticks <= 0 {
			ticks = sc.Ticks
		}
		if ticks <= 0 && sc.Tolerance <= 0 {
			ticks = 100
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		store, closeStore, err := openStore(sc.Sink)
		if err != nil {
			return err
		}
		defer closeStore()

		opts := []sot.Option{
			sot.WithLogger(logger),
			sot.WithLifecycleHooks(observability.Hooks(logger, nil)),
		}
		if store != nil {
			opts = append(opts, sot.WithDiagnosticSink(observability.NewRecorder(store, observability.WithSampling(sc.Sink.Sampling))))
		}
		solver, err := built.NewSolver(sc.Name, opts...)
		if err != nil {
			return err
		}

		loop := sot.NewLoop(solver)
		loop.Ticks = ticks
		loop.Tolerance = sc.Tolerance
		q, runErr := loop.Run(cmd.Context(), built.Q0)

		out := cmd.OutOrStdout()
		tty := out == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
		if tty && !quiet {
			tui.PrintBanner(out, sot.Version)
		}
		render := tui.NewRenderer(tty)
		report, err := render(tui.Report(tui.Summary{
			Scenario: sc.Name,
			Ticks:    int(solver.TickCount()),
			Final:    q,
			Levels:   solver.Levels(),
			Err:      runErr,
		}))
		if err != nil {
			return err
		}
		fmt.Fprint(out, report)
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int("ticks", 0, "Number of ticks (overrides the scenario)")
	runCmd.Flags().BoolP("quiet", "q", false, "Skip the banner")
}
