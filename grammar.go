package ploom

import (
	"regexp"
	"strings"
)

// stepLineRegex recognizes one step definition per line of planner output:
//
//	#E<n> = <ToolName>[<argument>]
//
// The argument capture is greedy, so the bracket that terminates the call
// is the last "]" on the line. Lines not matching this shape are reasoning
// text and are ignored by the runner.
var stepLineRegex = regexp.MustCompile(`^#E(\d+)\s*=\s*([A-Za-z0-9_]+)\[(.*)\]\s*$`)

// stepRefRegex matches a step reference token inside an argument. The match
// is maximal, so "#E12" is never read as "#E1" followed by "2".
var stepRefRegex = regexp.MustCompile(`#E\d+`)

// planStep is one parsed step definition.
type planStep struct {
	// ID is the declared reference token including the "#E" prefix.
	ID string

	// Tool is the tool name with its original casing.
	Tool string

	// Argument is the raw argument text, references unresolved.
	Argument string
}

// parsePlanSteps extracts every step definition from the plan text in order
// of appearance. Numeric step ids play no role in ordering: a planner that
// emits #E2 before #E1 still executes #E2 first.
func parsePlanSteps(plan string) []planStep {
	var steps []planStep
	for _, line := range strings.Split(plan, "\n") {
		m := stepLineRegex.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if m == nil {
			continue
		}
		steps = append(steps, planStep{
			ID:       "#E" + m[1],
			Tool:     m[2],
			Argument: m[3],
		})
	}
	return steps
}

// resolveReferences substitutes each reference token in arg with the output
// of the step it names, when that step has already executed successfully in
// this pass. Unresolved tokens (forward references, failed steps) are left
// as literal text. The outputs table is scoped to a single execution pass.
func resolveReferences(arg string, outputs map[string]string) string {
	return stepRefRegex.ReplaceAllStringFunc(arg, func(token string) string {
		if out, ok := outputs[token]; ok {
			return out
		}
		return token
	})
}
