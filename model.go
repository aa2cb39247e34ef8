package ploom

import "context"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a stage transcript. The orchestrator stage keeps
// its own transcript on the session, separate from any user-visible chat.
type Message struct {
	Role    Role
	Content string

	// Reasoning holds model-internal reasoning text attached to an
	// assistant message. It is kept for observability and never rendered
	// to the user surface.
	Reasoning string
}

// GenerateRequest describes one stage's model invocation.
type GenerateRequest struct {
	// SystemPrompt is the stage instruction text.
	SystemPrompt string

	// Messages is the message history for this stage, oldest first.
	Messages []Message

	// StepBudget is the maximum output token budget for this stage.
	StepBudget int
}

// GenerateResponse is the fully drained output of one model invocation.
type GenerateResponse struct {
	Text      string
	Reasoning string
}

// ModelClient is a client for one LLM backend. Implementations must drain
// streamed output to completion before returning and must honor
// cancellation of ctx by returning an error wrapping context.Canceled.
type ModelClient interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}
