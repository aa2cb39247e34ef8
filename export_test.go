package ploom

// Exposes internals for tests in the ploom_test package.

type (
	PlanStep = planStep
	Decision = orchestratorDecision
)

const (
	ActionClarify = actionClarify
	ActionProceed = actionProceed
)

var (
	ParsePlanSteps    = parsePlanSteps
	ResolveReferences = resolveReferences
	ExtractJSON       = extractJSON
	ParseDecision     = parseOrchestratorDecision
	NewSession        = newPlanSession
)

func Transition(p *PlanSession, next Status) error {
	return p.transition(next)
}

func RequestClarification(p *PlanSession, question string) error {
	return p.requestClarification(question)
}

func AnswerClarification(p *PlanSession, answer string) error {
	return p.answerClarification(answer)
}
