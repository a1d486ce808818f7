package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// PlanEntry is one planned action, shown by dry runs
type PlanEntry struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
}

// Plan is the outcome of an analysis before anything is executed
type Plan struct {
	Kind    string      `json:"kind"`
	Entries []PlanEntry `json:"entries"`
}

// Counts returns the number of entries per action
func (p *Plan) Counts() map[string]int {
	counts := make(map[string]int)
	for _, e := range p.Entries {
		counts[e.Action]++
	}
	return counts
}

// WritePlan writes the plan in "human" or "json" format
func WritePlan(w io.Writer, plan *Plan, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			*Plan
			Counts map[string]int `json:"counts"`
		}{plan, plan.Counts()})
	default:
		return writePlanHuman(w, plan)
	}
}

func writePlanHuman(w io.Writer, plan *Plan) error {
	fmt.Fprintf(w, "%s plan (dry run)\n\n", plan.Kind)

	byAction := make(map[string][]PlanEntry)
	for _, e := range plan.Entries {
		byAction[e.Action] = append(byAction[e.Action], e)
	}

	actions := make([]string, 0, len(byAction))
	for a := range byAction {
		actions = append(actions, a)
	}
	sort.Strings(actions)

	for _, action := range actions {
		entries := byAction[action]
		fmt.Fprintf(w, "%s (%d):\n", action, len(entries))
		for _, e := range entries {
			if e.Target != "" {
				fmt.Fprintf(w, "  %s -> %s\n", e.Path, e.Target)
			} else {
				fmt.Fprintf(w, "  %s\n", e.Path)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "Total: %d entries\n", len(plan.Entries))
	return nil
}
