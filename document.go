package ploom

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/ploom/tools"
)

// BuildClarificationRequest renders the pause artifact returned to the
// driver when the orchestrator needs more input.
func BuildClarificationRequest(s *PlanSession) string {
	var b strings.Builder
	b.WriteString("Before planning, one question:\n\n")
	b.WriteString(s.PendingClarification)
	b.WriteString("\n")
	return b.String()
}

// BuildPlanDocument renders the persisted plan document. It is a pure
// function of the session snapshot: the same session yields byte-identical
// output on every call.
func BuildPlanDocument(s *PlanSession) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Plan: %s\n\n", s.Task)
	fmt.Fprintf(&b, "Generated: %s\n\n", s.CreatedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Clarifications\n\n")
	if len(s.Clarifications) == 0 {
		b.WriteString("(none)\n")
	} else {
		for i, c := range s.Clarifications {
			fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, c.Question, c.Answer)
		}
	}
	b.WriteString("\n## Plan\n\n")
	b.WriteString("```\n")
	b.WriteString(strings.TrimRight(s.PlanMarkdown, "\n"))
	b.WriteString("\n```\n")

	b.WriteString("\n## Tool Executions\n\n")
	if len(s.ToolExecutions) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, exec := range s.ToolExecutions {
			fmt.Fprintf(&b, "### %s %s[%s]\n\n", exec.ID, exec.Tool, exec.Argument)
			if exec.Error != "" {
				fmt.Fprintf(&b, "ERROR: %s\n\n", exec.Error)
			} else {
				fmt.Fprintf(&b, "%s\n\n", exec.Output)
			}
		}
	}

	b.WriteString("## Summary\n\n")
	if s.SolverSummary == "" {
		b.WriteString("(pending)\n")
	} else {
		b.WriteString(s.SolverSummary)
		b.WriteString("\n")
	}

	return b.String()
}

// BuildCompletionMessage renders the user-facing completion response. Tool
// outputs are quoted through the same truncation as read-file. Like
// BuildPlanDocument, it is pure and reproducible.
func BuildCompletionMessage(s *PlanSession) string {
	var b strings.Builder

	if s.PlanFilePath != "" {
		fmt.Fprintf(&b, "Plan saved to %s\n\n", s.PlanFilePath)
	} else {
		b.WriteString("Plan was not persisted (no workspace root available).\n\n")
	}

	if len(s.Clarifications) > 0 {
		b.WriteString("Clarifications:\n")
		for _, c := range s.Clarifications {
			fmt.Fprintf(&b, "- Q: %s\n  A: %s\n", c.Question, c.Answer)
		}
		b.WriteString("\n")
	}

	b.WriteString("Plan draft:\n")
	b.WriteString(strings.TrimRight(s.PlanMarkdown, "\n"))
	b.WriteString("\n\n")

	if len(s.ToolExecutions) > 0 {
		b.WriteString("Tool observations:\n")
		for _, exec := range s.ToolExecutions {
			fmt.Fprintf(&b, "- %s %s[%s]:\n", exec.ID, exec.Tool, exec.Argument)
			if exec.Error != "" {
				fmt.Fprintf(&b, "  ERROR: %s\n", exec.Error)
			} else {
				fmt.Fprintf(&b, "  %s\n", tools.Truncate(exec.Output))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Summary:\n")
	b.WriteString(s.SolverSummary)
	b.WriteString("\n")

	return b.String()
}
