package ploom

import (
	_ "embed"
	"text/template"
)

//go:embed templates/orchestrator_prompt.md
var orchestratorPromptTemplate string

//go:embed templates/planner_prompt.md
var plannerPromptTemplate string

//go:embed templates/solver_prompt.md
var solverPromptTemplate string

var (
	orchestratorTmpl *template.Template
	plannerTmpl      *template.Template
	solverTmpl       *template.Template
)

func init() {
	orchestratorTmpl = template.Must(template.New("orchestrator").Parse(orchestratorPromptTemplate))
	plannerTmpl = template.Must(template.New("planner").Parse(plannerPromptTemplate))
	solverTmpl = template.Must(template.New("solver").Parse(solverPromptTemplate))
}

type orchestratorTemplateData struct {
	SystemPrompt string
}

type plannerTemplateData struct {
	Task           string
	TaskHistory    string
	Clarifications string
	SystemPrompt   string
}

type solverTemplateData struct {
	Task           string
	Clarifications string
	Plan           string
	Observations   string
	SystemPrompt   string
}
