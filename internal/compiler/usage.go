package compiler

import (
	"fmt"

	"github.com/roach88/sobootstrap/internal/ir"
)

// UsageWarning flags a step whose result nothing consumes.
//
// Unused results are warnings, not errors: a program may evaluate INVALID
// for its fault, or keep a step for readability.
type UsageWarning struct {
	Step    int    `json:"step"`
	Message string `json:"message"`
	Level   string `json:"level"` // "warning" or "info"
}

// AnalyzeUsage reports steps whose results are never referenced. The last
// step is the program's result and is never reported. INVALID steps are
// reported at info level since they exist for their fault.
//
// Refs only look backwards (E204), so the step graph is acyclic and a single
// pass over the operands is enough.
func AnalyzeUsage(prog *ir.Program) []UsageWarning {
	used := make([]bool, len(prog.Steps))
	for _, step := range prog.Steps {
		for _, op := range step.Operands {
			if op.Ref != nil && *op.Ref >= 0 && *op.Ref < len(used) {
				used[*op.Ref] = true
			}
		}
	}

	warnings := []UsageWarning{}
	for i := 0; i < len(prog.Steps)-1; i++ {
		if used[i] {
			continue
		}
		level := "warning"
		if prog.Steps[i].Op == ir.OpInvalid {
			level = "info"
		}
		warnings = append(warnings, UsageWarning{
			Step:    i,
			Message: fmt.Sprintf("result of step %d (%s) is never used", i, prog.Steps[i].Op),
			Level:   level,
		})
	}
	return warnings
}
