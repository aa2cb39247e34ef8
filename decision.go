package ploom

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/decision.json
var decisionSchemaRaw []byte

var decisionSchema *jsonschema.Schema

func init() {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(decisionSchemaRaw))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("decision.json", doc); err != nil {
		panic(err)
	}
	decisionSchema = compiler.MustCompile("decision.json")
}

const (
	actionClarify = "clarify"
	actionProceed = "proceed"
)

// orchestratorDecision is the structured outcome of one orchestration pass.
// It is transient: parsed, acted on, and discarded.
type orchestratorDecision struct {
	Action    string `json:"action"`
	Question  string `json:"question,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// parseOrchestratorDecision interprets raw orchestrator output. Decoding is
// strict (schema-validated); on any failure the decision falls back to
// proceed with the cleaned text as summary, so the session can never get
// stuck on unparsable output. The failure is logged at Warn.
func parseOrchestratorDecision(ctx context.Context, raw string) *orchestratorDecision {
	cleaned := extractJSON(raw)

	dec, err := decodeDecision(cleaned)
	if err != nil {
		LoggerFromContext(ctx).Warn("orchestrator output is not a valid decision, falling back to proceed",
			"error", err,
			"cleaned_len", len(cleaned))
		return &orchestratorDecision{
			Action:  actionProceed,
			Summary: strings.TrimSpace(cleaned),
		}
	}
	return dec
}

func decodeDecision(text string) (*orchestratorDecision, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, goerr.Wrap(err, "decision is not valid JSON")
	}
	if err := decisionSchema.Validate(value); err != nil {
		return nil, goerr.Wrap(err, "decision does not match schema")
	}

	var dec orchestratorDecision
	if err := json.Unmarshal([]byte(text), &dec); err != nil {
		return nil, goerr.Wrap(err, "failed to decode decision")
	}
	return &dec, nil
}

// codeFenceRegex captures the body of a markdown code block, with or
// without a language tag. Models wrap JSON in fences even when told not to.
var codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// extractJSON strips code-fence wrapping and narrows the text to the first
// balanced JSON object. It is a pragmatic boundary scanner, not a parser:
// it tracks string literals and escapes well enough for LLM output.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if m := codeFenceRegex.FindStringSubmatch(text); len(m) > 1 {
		text = strings.TrimSpace(m[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}

	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate
				}
			}
		}
	}

	if depth > 0 || inString {
		// Unbalanced: likely truncated output, keep it intact.
		return text
	}
	return text[start:]
}
