package ploom_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/ploom"
)

func sampleSession() *ploom.PlanSession {
	return &ploom.PlanSession{
		ID:        "4b5e8a1c-0000-0000-0000-000000000000",
		CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Task:      "add tests for the parser",
		Status:    ploom.StatusCompleted,
		Clarifications: []ploom.Clarification{
			{Question: "Which parser?", Answer: "the markdown one"},
		},
		PlanMarkdown: "Look around first.\n#E1 = ListFiles[.]\n#E2 = ReadFile[parser.go]\n",
		ToolExecutions: []ploom.ToolExecution{
			{ID: "#E1", Tool: "ListFiles", Argument: ".", Output: "parser.go\nmain.go"},
			{ID: "#E2", Tool: "DeleteFile", Argument: "tmp", Error: "Unsupported tool: DeleteFile"},
		},
		SolverSummary: "Add table tests covering headings and lists.",
		PlanFilePath:  "/work/.ploom/plan-4b5e8a1c.md",
	}
}

func TestBuildClarificationRequest(t *testing.T) {
	sess := ploom.NewSession("task")
	gt.NoError(t, ploom.RequestClarification(sess, "Which directory holds the parser?"))

	msg := ploom.BuildClarificationRequest(sess)
	gt.Equal(t, "Before planning, one question:\n\nWhich directory holds the parser?\n", msg)
}

func TestBuildPlanDocument(t *testing.T) {
	sess := sampleSession()

	doc := ploom.BuildPlanDocument(sess)

	gt.S(t, doc).Contains("# Plan: add tests for the parser")
	gt.S(t, doc).Contains("Generated: 2025-03-14T09:26:53Z")
	gt.S(t, doc).Contains("1. Q: Which parser?\n   A: the markdown one")
	gt.S(t, doc).Contains("```\nLook around first.\n#E1 = ListFiles[.]\n#E2 = ReadFile[parser.go]\n```")
	gt.S(t, doc).Contains("### #E1 ListFiles[.]\n\nparser.go\nmain.go")
	gt.S(t, doc).Contains("### #E2 DeleteFile[tmp]\n\nERROR: Unsupported tool: DeleteFile")
	gt.S(t, doc).Contains("## Summary\n\nAdd table tests covering headings and lists.")

	t.Run("rendering is reproducible", func(t *testing.T) {
		gt.Equal(t, doc, ploom.BuildPlanDocument(sess))
	})

	t.Run("placeholders for a bare session", func(t *testing.T) {
		bare := ploom.NewSession("bare task")
		doc := ploom.BuildPlanDocument(bare)
		gt.S(t, doc).Contains("## Clarifications\n\n(none)")
		gt.S(t, doc).Contains("## Tool Executions\n\n(none)")
		gt.S(t, doc).Contains("## Summary\n\n(pending)")
	})
}

func TestBuildCompletionMessage(t *testing.T) {
	sess := sampleSession()

	msg := ploom.BuildCompletionMessage(sess)

	gt.S(t, msg).Contains("Plan saved to /work/.ploom/plan-4b5e8a1c.md")
	gt.S(t, msg).Contains("- Q: Which parser?\n  A: the markdown one")
	gt.S(t, msg).Contains("- #E1 ListFiles[.]:\n  parser.go\nmain.go")
	gt.S(t, msg).Contains("- #E2 DeleteFile[tmp]:\n  ERROR: Unsupported tool: DeleteFile")
	gt.S(t, msg).Contains("Summary:\nAdd table tests covering headings and lists.")

	t.Run("rendering is reproducible", func(t *testing.T) {
		gt.Equal(t, msg, ploom.BuildCompletionMessage(sess))
	})

	t.Run("without a persisted path", func(t *testing.T) {
		sess := sampleSession()
		sess.PlanFilePath = ""
		msg := ploom.BuildCompletionMessage(sess)
		gt.S(t, msg).Contains("Plan was not persisted (no workspace root available).")
	})

	t.Run("long outputs are truncated", func(t *testing.T) {
		sess := sampleSession()
		sess.ToolExecutions = []ploom.ToolExecution{
			{ID: "#E1", Tool: "ReadFile", Argument: "big.go", Output: strings.Repeat("x", 2500)},
		}
		msg := ploom.BuildCompletionMessage(sess)
		gt.S(t, msg).Contains("...(truncated 500 characters)")
		gt.S(t, msg).NotContains(strings.Repeat("x", 2001))
	})
}
