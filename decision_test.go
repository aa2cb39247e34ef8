package ploom_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/ploom"
)

func TestParseDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("clarify with question", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, `{"action":"clarify","question":"Which file should be tested?"}`)
		gt.Equal(t, ploom.ActionClarify, dec.Action)
		gt.Equal(t, "Which file should be tested?", dec.Question)
	})

	t.Run("proceed with summary", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, `{"action":"proceed","summary":"add tests","reasoning":"task is clear"}`)
		gt.Equal(t, ploom.ActionProceed, dec.Action)
		gt.Equal(t, "add tests", dec.Summary)
		gt.Equal(t, "task is clear", dec.Reasoning)
	})

	t.Run("proceed without summary is valid", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, `{"action":"proceed"}`)
		gt.Equal(t, ploom.ActionProceed, dec.Action)
	})

	t.Run("fenced JSON is unwrapped", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, "```json\n{\"action\":\"clarify\",\"question\":\"which one?\"}\n```")
		gt.Equal(t, ploom.ActionClarify, dec.Action)
		gt.Equal(t, "which one?", dec.Question)
	})

	t.Run("JSON embedded in prose is extracted", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, `Sure! Here is my decision: {"action":"proceed","summary":"go"} hope that helps`)
		gt.Equal(t, ploom.ActionProceed, dec.Action)
		gt.Equal(t, "go", dec.Summary)
	})

	t.Run("non-JSON falls back to proceed with cleaned text", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, "let's just get going")
		gt.Equal(t, ploom.ActionProceed, dec.Action)
		gt.Equal(t, "let's just get going", dec.Summary)
	})

	t.Run("clarify without question falls back to proceed", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, `{"action":"clarify"}`)
		gt.Equal(t, ploom.ActionProceed, dec.Action)
	})

	t.Run("unknown action falls back to proceed", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, `{"action":"retreat"}`)
		gt.Equal(t, ploom.ActionProceed, dec.Action)
	})

	t.Run("wrong question type falls back to proceed", func(t *testing.T) {
		dec := ploom.ParseDecision(ctx, `{"action":"clarify","question":42}`)
		gt.Equal(t, ploom.ActionProceed, dec.Action)
	})
}

func TestExtractJSON(t *testing.T) {
	t.Run("plain object passes through", func(t *testing.T) {
		gt.Equal(t, `{"a":1}`, ploom.ExtractJSON(`{"a":1}`))
	})

	t.Run("fence without language tag", func(t *testing.T) {
		gt.Equal(t, `{"a":1}`, ploom.ExtractJSON("```\n{\"a\":1}\n```"))
	})

	t.Run("braces inside string literals are skipped", func(t *testing.T) {
		in := `prefix {"q":"use } carefully"} suffix`
		gt.Equal(t, `{"q":"use } carefully"}`, ploom.ExtractJSON(in))
	})

	t.Run("unbalanced input is kept intact", func(t *testing.T) {
		in := `{"truncated": "stream`
		gt.Equal(t, in, ploom.ExtractJSON(in))
	})
}
