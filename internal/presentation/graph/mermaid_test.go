package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/sot/internal/presentation/graph"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		levels   []graph.Level
		global   []string
		overlay  *graph.Overlay
		contains []string
		absent   []string
	}{
		{
			name: "Priority Chain",
			levels: []graph.Level{
				{TaskID: "ee"},
				{TaskID: "postural"},
			},
			contains: []string{
				"L0[\"0: ee\"]",
				"L1[\"1: postural\"]",
				"L0 -- \"priority\" --> L1",
			},
		},
		{
			name: "Aggregated Level",
			levels: []graph.Level{
				{TaskID: "xplusy", SubTasks: []string{"x", "y"}},
			},
			contains: []string{
				"L0_t0([\"x\"])",
				"L0_t1 --- L0",
			},
		},
		{
			name: "Shared Constraint Declared Once",
			levels: []graph.Level{
				{TaskID: "a", Constraints: []string{"joint-limits"}},
				{TaskID: "b", Constraints: []string{"joint-limits"}},
			},
			contains: []string{
				"c_joint_limits{{\"joint-limits\"}}",
				"c_joint_limits -.-> L0",
				"c_joint_limits -.-> L1",
			},
		},
		{
			name:   "Global Constraint",
			levels: []graph.Level{{TaskID: "a"}, {TaskID: "b"}},
			global: []string{"vel"},
			contains: []string{
				"c_vel ==> L0",
				"c_vel ==> L1",
			},
		},
		{
			name:    "Overlay",
			levels:  []graph.Level{{TaskID: "a"}, {TaskID: "b"}},
			overlay: &graph.Overlay{SolvedLevels: 1, FailedLevel: 1},
			contains: []string{
				"class L0 solved;",
				"class L1 failed;",
			},
			absent: []string{"class L1 solved;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.levels, tt.global, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output not to contain %q, got:\n%s", unwanted, got)
				}
			}
			if strings.Count(got, "c_joint_limits{{") > 1 {
				t.Errorf("shared constraint declared twice:\n%s", got)
			}
		})
	}
}
