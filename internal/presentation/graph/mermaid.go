package graph

import (
	"fmt"
	"strings"
)

// Level describes one priority level for rendering.
type Level struct {
	TaskID      string
	SubTasks    []string
	Constraints []string
}

// Overlay contains the outcome of the last tick to visualize on the graph.
type Overlay struct {
	SolvedLevels int
	// FailedLevel is the level that aborted the tick, -1 when none did.
	FailedLevel int
}

// GenerateMermaid produces a Mermaid flowchart of a stack of tasks.
// It applies semantic styling:
// - Level: [Rectangle], chained from the highest priority down
// - Aggregated sub-task: ([Stadium])
// - Constraint: {{Hexagon}}, shared when several levels use it
// - Global constraint: {{Hexagon}} linked to every level with a thick arrow
func GenerateMermaid(levels []Level, global []string, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declared := make(map[string]bool)
	constraintNode := func(id string) string {
		safe := "c_" + sanitizeMermaidID(id)
		if !declared[safe] {
			declared[safe] = true
			sb.WriteString(fmt.Sprintf("    %s{{\"%s\"}}\n", safe, id))
		}
		return safe
	}

	for k, lvl := range levels {
		safeID := levelID(k)
		sb.WriteString(fmt.Sprintf("    %s[\"%d: %s\"]\n", safeID, k, lvl.TaskID))
		if k > 0 {
			sb.WriteString(fmt.Sprintf("    %s -- \"priority\" --> %s\n", levelID(k-1), safeID))
		}
		for i, sub := range lvl.SubTasks {
			subID := fmt.Sprintf("%s_t%d", safeID, i)
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", subID, sub))
			sb.WriteString(fmt.Sprintf("    %s --- %s\n", subID, safeID))
		}
		for _, c := range lvl.Constraints {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", constraintNode(c), safeID))
		}
	}

	for _, c := range global {
		safe := constraintNode(c)
		for k := range levels {
			sb.WriteString(fmt.Sprintf("    %s ==> %s\n", safe, levelID(k)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef solved fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")
		for k := 0; k < overlay.SolvedLevels && k < len(levels); k++ {
			sb.WriteString(fmt.Sprintf("    class %s solved;\n", levelID(k)))
		}
		if overlay.FailedLevel >= 0 && overlay.FailedLevel < len(levels) {
			sb.WriteString(fmt.Sprintf("    class %s failed;\n", levelID(overlay.FailedLevel)))
		}
	}

	return sb.String()
}

func levelID(k int) string {
	return fmt.Sprintf("L%d", k)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
