package ploom

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// Status represents the lifecycle state of a plan session.
type Status string

const (
	StatusOrchestrating          Status = "orchestrating"
	StatusAwaitingClarifications Status = "awaiting_clarifications"
	StatusPlanning               Status = "planning"
	StatusExecutingTools         Status = "executing_tools"
	StatusSolving                Status = "solving"
	StatusCompleted              Status = "completed"
)

// legalTransitions is the explicit transition table of the session state
// machine. Completed is terminal: a new task starts a new session.
var legalTransitions = map[Status][]Status{
	StatusOrchestrating:          {StatusAwaitingClarifications, StatusPlanning},
	StatusAwaitingClarifications: {StatusOrchestrating},
	StatusPlanning:               {StatusExecutingTools},
	StatusExecutingTools:         {StatusSolving},
	StatusSolving:                {StatusCompleted},
	StatusCompleted:              {},
}

func (s Status) canTransitionTo(next Status) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Clarification is one question/answer round between the orchestrator and
// the driver.
type Clarification struct {
	Question string
	Answer   string
}

// ToolExecution records one executed plan step.
type ToolExecution struct {
	// ID is the step's declared reference token, e.g. "#E1".
	ID string

	// Tool is the tool name exactly as written in the plan. Matching
	// against the recognized tool set is case-insensitive; the original
	// casing is preserved for display.
	Tool string

	// Argument is the argument text after resolving references to earlier
	// steps' outputs.
	Argument string

	// Output is the result of a successful run; empty when Error is set.
	Output string

	// Error describes a per-step failure. A step error never halts the
	// remaining steps of the pass.
	Error string
}

// PlanSession is the end-to-end orchestration lifecycle of one task thread,
// from initial question to completed answer.
type PlanSession struct {
	ID        string
	CreatedAt time.Time

	// Task is the original task text, set once at creation.
	Task string

	// TaskHistory is the append-only list of all task statements the
	// driver supplied for this session (original plus refinements).
	TaskHistory []string

	Status Status

	// Clarifications grows by one pair per clarification round.
	Clarifications []Clarification

	// PendingClarification is set if and only if Status is
	// StatusAwaitingClarifications.
	PendingClarification string

	// PlanMarkdown is the raw planner output. Replanning overwrites it and
	// invalidates prior tool executions.
	PlanMarkdown string

	// ToolExecutions reflects exactly the steps parsed from the current
	// PlanMarkdown at the moment the tool pass ran.
	ToolExecutions []ToolExecution

	// SolverSummary is the final synthesized answer.
	SolverSummary string

	// PlanFilePath is where the plan document was persisted; empty when no
	// writable root was available.
	PlanFilePath string

	// OrchestratorMessages is the append-only transcript fed to the
	// orchestration stage.
	OrchestratorMessages []Message
}

func newPlanSession(task string) *PlanSession {
	return &PlanSession{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now(),
		Task:        task,
		TaskHistory: []string{task},
		Status:      StatusOrchestrating,
		OrchestratorMessages: []Message{
			{Role: RoleUser, Content: task},
		},
	}
}

func (p *PlanSession) transition(next Status) error {
	if !p.Status.canTransitionTo(next) {
		return goerr.Wrap(ErrInvalidTransition, "transition not allowed",
			goerr.V("from", p.Status), goerr.V("to", next))
	}
	p.Status = next
	return nil
}

// requestClarification pauses the session with a question for the driver.
func (p *PlanSession) requestClarification(question string) error {
	if err := p.transition(StatusAwaitingClarifications); err != nil {
		return err
	}
	p.PendingClarification = question
	return nil
}

// answerClarification consumes the driver's input as the answer to the
// pending question and resumes orchestration.
func (p *PlanSession) answerClarification(answer string) error {
	if p.Status != StatusAwaitingClarifications {
		return goerr.Wrap(ErrInvalidTransition, "no clarification pending",
			goerr.V("status", p.Status))
	}
	p.Clarifications = append(p.Clarifications, Clarification{
		Question: p.PendingClarification,
		Answer:   answer,
	})
	p.PendingClarification = ""
	return p.transition(StatusOrchestrating)
}

// Snapshot returns a deep copy of the session. Observers receive snapshots
// so that later mutations by the engine are never visible to a slow sink.
func (p *PlanSession) Snapshot() *PlanSession {
	s := *p
	s.TaskHistory = append([]string(nil), p.TaskHistory...)
	s.Clarifications = append([]Clarification(nil), p.Clarifications...)
	s.ToolExecutions = append([]ToolExecution(nil), p.ToolExecutions...)
	s.OrchestratorMessages = append([]Message(nil), p.OrchestratorMessages...)
	return &s
}
