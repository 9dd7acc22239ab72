package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario>",
	Short: "Check a scenario for consistency",
	Long: `Parses the scenario, builds every task and constraint and the priority stack.
With --solve it also solves one tick at the initial state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, built, err := loadScenario(args[0])
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		if solve, _ := cmd.Flags().GetBool("solve"); solve {
			solver, err := built.NewSolver(sc.Name)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			if _, err := solver.Tick(cmd.Context(), built.Q0); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
		}

		tasks, constraints := built.Registry.Len()
		fmt.Fprintf(cmd.OutOrStdout(), "Scenario %q is valid: %d levels, %d tasks, %d constraints\n",
			sc.Name, len(built.Stack), tasks, constraints)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("solve", false, "Also solve one tick at q0")
}
