package main

import (
	"fmt"

	"github.com/aretw0/sot/internal/presentation/graph"
	"github.com/aretw0/sot/pkg/config"
	"github.com/aretw0/sot/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <scenario>",
	Short: "Print the priority stack as a Mermaid diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, built, err := loadScenario(args[0])
		if err != nil {
			return err
		}
		levels, global, err := describe(built)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(levels, global, nil))
		return nil
	},
}

func describe(built *config.Built) ([]graph.Level, []string, error) {
	reg := built.Registry
	constraintIDs := func(hs []domain.ConstraintHandle) ([]string, error) {
		ids := make([]string, 0, len(hs))
		for _, h := range hs {
			c, err := reg.Constraint(h)
			if err != nil {
				return nil, err
			}
			ids = append(ids, c.ID())
		}
		return ids, nil
	}

	levels := make([]graph.Level, 0, len(built.Stack))
	for _, h := range built.Stack {
		t, err := reg.Task(h)
		if err != nil {
			return nil, nil, err
		}
		lvl := graph.Level{TaskID: t.ID()}
		if agg, ok := t.(interface{ SubTasks() []domain.TaskHandle }); ok {
			for _, sh := range agg.SubTasks() {
				sub, err := reg.Task(sh)
				if err != nil {
					return nil, nil, err
				}
				lvl.SubTasks = append(lvl.SubTasks, sub.ID())
			}
		}
		if lvl.Constraints, err = constraintIDs(t.Constraints()); err != nil {
			return nil, nil, err
		}
		levels = append(levels, lvl)
	}

	global, err := constraintIDs(built.Global)
	if err != nil {
		return nil, nil, err
	}
	return levels, global, nil
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
