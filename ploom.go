// Package ploom is a plan-session orchestration engine. It turns a
// free-form task into clarifying questions, a step-by-step plan in a
// constrained textual grammar, deterministic execution of the plan's
// read-only tool steps against a sandboxed workspace, and a synthesized
// final answer.
package ploom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/ploom/tools"
)

// DefaultStepBudget is the per-stage output token budget handed to the
// model adapter.
const DefaultStepBudget = 4096

// Engine advances plan sessions through their stages. One engine serves
// one driver; the driver is responsible for serializing calls, the engine
// performs no locking of its own.
type Engine struct {
	model ModelClient

	engineConfig

	// current is the session the next task submission is resolved
	// against, per the re-entrancy rules of resolveSession.
	current *PlanSession
}

type engineConfig struct {
	logger       *slog.Logger
	workspace    tools.Workspace
	observer     Observer
	persister    Persister
	systemPrompt string
	stepBudget   int
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger. Default discards all records.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// WithWorkspace sets the workspace the tool executors resolve paths
// against. Without one, every tool step errors with a missing-root result.
func WithWorkspace(ws tools.Workspace) Option {
	return func(cfg *engineConfig) {
		cfg.workspace = ws
	}
}

// WithObserver registers the session-update sink. It is called after every
// state transition and after every individual tool execution.
func WithObserver(observer Observer) Option {
	return func(cfg *engineConfig) {
		cfg.observer = observer
	}
}

// WithPersister sets where completed plan documents are stored.
func WithPersister(persister Persister) Option {
	return func(cfg *engineConfig) {
		cfg.persister = persister
	}
}

// WithSystemPrompt appends caller instructions to every stage prompt.
func WithSystemPrompt(prompt string) Option {
	return func(cfg *engineConfig) {
		cfg.systemPrompt = prompt
	}
}

// WithStepBudget overrides the per-stage output token budget.
func WithStepBudget(budget int) Option {
	return func(cfg *engineConfig) {
		cfg.stepBudget = budget
	}
}

// New creates an engine on top of a model client.
func New(model ModelClient, options ...Option) *Engine {
	e := &Engine{
		model: model,
		engineConfig: engineConfig{
			logger:     slog.New(slog.DiscardHandler),
			stepBudget: DefaultStepBudget,
		},
	}
	for _, opt := range options {
		opt(&e.engineConfig)
	}
	return e
}

// Result is the outcome of one HandleTask advance.
type Result struct {
	// Session is a snapshot taken when the advance returned.
	Session *PlanSession

	// Text is the artifact for the driver: a clarifying-question response
	// when AwaitingInput is set, otherwise the completion message.
	Text string

	// AwaitingInput reports that the session paused for a clarification
	// answer; the next HandleTask input is consumed as that answer.
	AwaitingInput bool

	// Aborted reports that the advance was cancelled mid-stage. The
	// session keeps the state it had before the aborted stage; the driver
	// may retry or abandon, and must not surface this as a failure.
	Aborted bool
}

// Session returns a snapshot of the engine's current session, or nil when
// no task has been submitted yet.
func (e *Engine) Session() *PlanSession {
	if e.current == nil {
		return nil
	}
	return e.current.Snapshot()
}

// HandleTask submits one task input and advances the resolved session
// until it pauses for clarification or completes. A non-nil error means
// the advance failed after the session's last reached state; resubmitting
// a task retries from there.
func (e *Engine) HandleTask(ctx context.Context, task string) (*Result, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, goerr.Wrap(ErrEmptyTask, "task must not be empty")
	}

	sess, err := e.resolveSession(task)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With("ploom.session_id", sess.ID)
	ctx = ctxWithLogger(ctx, logger)
	logger.Info("task accepted", "status", sess.Status, "task", task)

	for {
		if ctx.Err() != nil {
			return e.abortResult(sess), nil
		}

		switch sess.Status {
		case StatusOrchestrating:
			decision, aborted, err := e.orchestrate(ctx, sess)
			if aborted {
				return e.abortResult(sess), nil
			}
			if err != nil {
				return nil, err
			}
			if decision.Action == actionClarify {
				if err := sess.requestClarification(decision.Question); err != nil {
					return nil, err
				}
				e.publish(ctx, sess)
				return &Result{
					Session:       sess.Snapshot(),
					Text:          BuildClarificationRequest(sess),
					AwaitingInput: true,
				}, nil
			}
			if err := sess.transition(StatusPlanning); err != nil {
				return nil, err
			}
			e.publish(ctx, sess)

		case StatusPlanning:
			plan, aborted, err := e.runPlanner(ctx, sess)
			if aborted {
				return e.abortResult(sess), nil
			}
			if err != nil {
				return nil, err
			}
			sess.PlanMarkdown = plan
			// Proceed even when the plan is empty or malformed: lines that
			// do not parse simply yield no steps.
			if err := sess.transition(StatusExecutingTools); err != nil {
				return nil, err
			}
			e.publish(ctx, sess)

		case StatusExecutingTools:
			e.runToolPass(ctx, sess)
			if err := sess.transition(StatusSolving); err != nil {
				return nil, err
			}
			e.publish(ctx, sess)

		case StatusSolving:
			summary, aborted, err := e.runSolver(ctx, sess)
			if aborted {
				return e.abortResult(sess), nil
			}
			if err != nil {
				return nil, err
			}
			sess.SolverSummary = summary

			document := BuildPlanDocument(sess)
			if e.persister != nil {
				location, err := e.persister.Persist(ctx, sess, document)
				if err != nil {
					logger.Warn("failed to persist plan document", "error", err)
				} else {
					sess.PlanFilePath = location
				}
			}

			if err := sess.transition(StatusCompleted); err != nil {
				return nil, err
			}
			e.publish(ctx, sess)
			logger.Info("plan session completed",
				"tool_executions", len(sess.ToolExecutions),
				"plan_file", sess.PlanFilePath)

			return &Result{
				Session: sess.Snapshot(),
				Text:    BuildCompletionMessage(sess),
			}, nil

		default:
			return nil, goerr.Wrap(ErrInvalidTransition, "session cannot advance",
				goerr.V("status", sess.Status))
		}
	}
}

// resolveSession applies the re-entrancy rules: input during
// awaiting_clarifications answers the pending question, input during
// orchestrating refines the same session, input in any other state starts
// a fresh session.
func (e *Engine) resolveSession(task string) (*PlanSession, error) {
	sess := e.current

	switch {
	case sess == nil:
		sess = newPlanSession(task)
		e.current = sess

	case sess.Status == StatusAwaitingClarifications:
		if err := sess.answerClarification(task); err != nil {
			return nil, err
		}
		sess.OrchestratorMessages = append(sess.OrchestratorMessages,
			Message{Role: RoleUser, Content: task})

	case sess.Status == StatusOrchestrating:
		sess.TaskHistory = append(sess.TaskHistory, task)
		sess.OrchestratorMessages = append(sess.OrchestratorMessages,
			Message{Role: RoleUser, Content: task})

	default:
		sess = newPlanSession(task)
		e.current = sess
	}

	return sess, nil
}

// invoke runs one model stage and drains it. A cancellation is reported as
// aborted=true with no error; any other failure is fatal to the advance.
func (e *Engine) invoke(ctx context.Context, systemPrompt string, messages []Message) (*GenerateResponse, bool, error) {
	resp, err := e.model.Generate(ctx, &GenerateRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		StepBudget:   e.stepBudget,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			LoggerFromContext(ctx).Debug("model stage cancelled")
			return nil, true, nil
		}
		return nil, false, goerr.Wrap(err, "model invocation failed")
	}
	if resp == nil || resp.Text == "" {
		return nil, false, goerr.Wrap(ErrEmptyResponse, "model stage produced no text")
	}
	return resp, false, nil
}

func (e *Engine) orchestrate(ctx context.Context, sess *PlanSession) (*orchestratorDecision, bool, error) {
	var prompt bytes.Buffer
	if err := orchestratorTmpl.Execute(&prompt, orchestratorTemplateData{
		SystemPrompt: e.systemPrompt,
	}); err != nil {
		return nil, false, goerr.Wrap(err, "failed to render orchestrator prompt")
	}

	resp, aborted, err := e.invoke(ctx, prompt.String(), sess.OrchestratorMessages)
	if aborted || err != nil {
		return nil, aborted, err
	}

	sess.OrchestratorMessages = append(sess.OrchestratorMessages, Message{
		Role:      RoleAssistant,
		Content:   resp.Text,
		Reasoning: resp.Reasoning,
	})

	decision := parseOrchestratorDecision(ctx, resp.Text)
	LoggerFromContext(ctx).Info("orchestrator decision",
		"action", decision.Action, "question", decision.Question)
	return decision, false, nil
}

func (e *Engine) runPlanner(ctx context.Context, sess *PlanSession) (string, bool, error) {
	var prompt bytes.Buffer
	if err := plannerTmpl.Execute(&prompt, plannerTemplateData{
		Task:           sess.Task,
		TaskHistory:    formatTaskHistory(sess),
		Clarifications: formatClarifications(sess),
		SystemPrompt:   e.systemPrompt,
	}); err != nil {
		return "", false, goerr.Wrap(err, "failed to render planner prompt")
	}

	resp, aborted, err := e.invoke(ctx, "", []Message{{Role: RoleUser, Content: prompt.String()}})
	if aborted || err != nil {
		return "", aborted, err
	}

	return resp.Text, false, nil
}

func (e *Engine) runSolver(ctx context.Context, sess *PlanSession) (string, bool, error) {
	var prompt bytes.Buffer
	if err := solverTmpl.Execute(&prompt, solverTemplateData{
		Task:           sess.Task,
		Clarifications: formatClarifications(sess),
		Plan:           sess.PlanMarkdown,
		Observations:   formatObservations(sess),
		SystemPrompt:   e.systemPrompt,
	}); err != nil {
		return "", false, goerr.Wrap(err, "failed to render solver prompt")
	}

	resp, aborted, err := e.invoke(ctx, "", []Message{{Role: RoleUser, Content: prompt.String()}})
	if aborted || err != nil {
		return "", aborted, err
	}

	return resp.Text, false, nil
}

// runToolPass parses the current plan and executes every recognized step
// in appearance order. A step failure is recorded on that step and never
// halts the pass. The session is published after each step so drivers can
// show incremental progress.
func (e *Engine) runToolPass(ctx context.Context, sess *PlanSession) {
	steps := parsePlanSteps(sess.PlanMarkdown)
	sess.ToolExecutions = nil

	// Resolution table for this pass only; discarded afterwards.
	outputs := make(map[string]string, len(steps))

	for _, step := range steps {
		argument := resolveReferences(step.Argument, outputs)
		exec := ToolExecution{
			ID:       step.ID,
			Tool:     step.Tool,
			Argument: argument,
		}

		output, err := e.runTool(ctx, step.Tool, argument)
		if err != nil {
			exec.Error = err.Error()
			LoggerFromContext(ctx).Info("tool step failed",
				"step", step.ID, "tool", step.Tool, "error", err)
		} else {
			exec.Output = output
			outputs[step.ID] = output
		}

		sess.ToolExecutions = append(sess.ToolExecutions, exec)
		e.publish(ctx, sess)
	}
}

func (e *Engine) runTool(ctx context.Context, name, argument string) (string, error) {
	switch strings.ToLower(name) {
	case "listfiles":
		return tools.ListFiles(ctx, e.workspace, argument)
	case "readfile":
		return tools.ReadFile(ctx, e.workspace, argument)
	case "searchtext":
		return tools.SearchText(ctx, e.workspace, argument)
	default:
		return "", fmt.Errorf("Unsupported tool: %s", name)
	}
}

func (e *Engine) publish(ctx context.Context, sess *PlanSession) {
	if e.observer == nil {
		return
	}
	e.observer(ctx, sess.Snapshot())
}

func (e *Engine) abortResult(sess *PlanSession) *Result {
	return &Result{
		Session: sess.Snapshot(),
		Aborted: true,
	}
}

func formatTaskHistory(sess *PlanSession) string {
	if len(sess.TaskHistory) <= 1 {
		return ""
	}
	var b strings.Builder
	for _, task := range sess.TaskHistory[1:] {
		fmt.Fprintf(&b, "- %s\n", task)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatClarifications(sess *PlanSession) string {
	if len(sess.Clarifications) == 0 {
		return ""
	}
	var b strings.Builder
	for _, c := range sess.Clarifications {
		fmt.Fprintf(&b, "- Q: %s\n  A: %s\n", c.Question, c.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatObservations(sess *PlanSession) string {
	if len(sess.ToolExecutions) == 0 {
		return "(no tool steps were executed)"
	}
	var b strings.Builder
	for _, exec := range sess.ToolExecutions {
		fmt.Fprintf(&b, "%s %s[%s]:\n", exec.ID, exec.Tool, exec.Argument)
		if exec.Error != "" {
			fmt.Fprintf(&b, "ERROR: %s\n", exec.Error)
		} else {
			fmt.Fprintf(&b, "%s\n", tools.Truncate(exec.Output))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
