package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/sot/pkg/domain"
)

// Summary is what a run reports at the end.
type Summary struct {
	Scenario string
	Ticks    int
	Final    []float64
	Levels   []domain.LevelReport
	Err      error
}

// Report renders a run summary as markdown.
func Report(s Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", s.Scenario)
	if s.Err != nil {
		fmt.Fprintf(&sb, "**Failed** after %d ticks: `%v`\n\n", s.Ticks, s.Err)
	} else {
		fmt.Fprintf(&sb, "Ran **%d** ticks.\n\n", s.Ticks)
	}

	sb.WriteString("| Level | Task | Vars | Constraints | Tier | Changes | Residual |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, l := range s.Levels {
		fmt.Fprintf(&sb, "| %d | %s | %d | %d | %s | %d | %.3e |\n",
			l.Level, l.TaskID, l.Variables, l.Constraints, l.Tier, l.Iterations, l.Residual)
	}

	if len(s.Final) > 0 {
		parts := make([]string, len(s.Final))
		for i, v := range s.Final {
			parts[i] = fmt.Sprintf("%.6f", v)
		}
		fmt.Fprintf(&sb, "\nFinal state: `[%s]`\n", strings.Join(parts, ", "))
	}
	return sb.String()
}
