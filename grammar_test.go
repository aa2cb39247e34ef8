package ploom_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/ploom"
)

func TestParsePlanSteps(t *testing.T) {
	type testCase struct {
		plan     string
		expected []ploom.PlanStep
	}

	runTest := func(tc testCase) func(t *testing.T) {
		return func(t *testing.T) {
			steps := ploom.ParsePlanSteps(tc.plan)
			gt.Equal(t, tc.expected, steps)
		}
	}

	t.Run("steps interleaved with reasoning lines", runTest(testCase{
		plan: "First I look at the tree.\n" +
			"#E1 = ListFiles[.]\n" +
			"Then I read the parser.\n" +
			"#E2 = ReadFile[parser.go]\n",
		expected: []ploom.PlanStep{
			{ID: "#E1", Tool: "ListFiles", Argument: "."},
			{ID: "#E2", Tool: "ReadFile", Argument: "parser.go"},
		},
	}))

	t.Run("appearance order wins over numeric order", runTest(testCase{
		plan: "#E3 = ListFiles[.]\n#E1 = ReadFile[a.go]\n#E2 = ReadFile[b.go]\n",
		expected: []ploom.PlanStep{
			{ID: "#E3", Tool: "ListFiles", Argument: "."},
			{ID: "#E1", Tool: "ReadFile", Argument: "a.go"},
			{ID: "#E2", Tool: "ReadFile", Argument: "b.go"},
		},
	}))

	t.Run("argument ends at the last bracket on the line", runTest(testCase{
		plan: "#E1 = SearchText[foo[0] | src]\n",
		expected: []ploom.PlanStep{
			{ID: "#E1", Tool: "SearchText", Argument: "foo[0] | src"},
		},
	}))

	t.Run("whitespace around the equals sign", runTest(testCase{
		plan: "#E1=ListFiles[.]\n#E2   =   ReadFile[x]  \n",
		expected: []ploom.PlanStep{
			{ID: "#E1", Tool: "ListFiles", Argument: "."},
			{ID: "#E2", Tool: "ReadFile", Argument: "x"},
		},
	}))

	t.Run("malformed lines are skipped silently", runTest(testCase{
		plan: "#E1 = ListFiles[.\n" + // missing closing bracket
			"E2 = ReadFile[x]\n" + // missing hash
			"  #E3 = ReadFile[y]\n" + // leading whitespace breaks the anchor
			"#E4 = ReadFile[z]\n",
		expected: []ploom.PlanStep{
			{ID: "#E4", Tool: "ReadFile", Argument: "z"},
		},
	}))

	t.Run("windows line endings", runTest(testCase{
		plan: "#E1 = ListFiles[.]\r\n#E2 = ReadFile[x]\r\n",
		expected: []ploom.PlanStep{
			{ID: "#E1", Tool: "ListFiles", Argument: "."},
			{ID: "#E2", Tool: "ReadFile", Argument: "x"},
		},
	}))

	t.Run("empty plan yields no steps", runTest(testCase{
		plan:     "",
		expected: nil,
	}))
}

func TestResolveReferences(t *testing.T) {
	outputs := map[string]string{
		"#E1":  "first output",
		"#E12": "twelfth output",
	}

	t.Run("known reference is substituted", func(t *testing.T) {
		gt.Equal(t, "see first output here",
			ploom.ResolveReferences("see #E1 here", outputs))
	})

	t.Run("unknown reference stays literal", func(t *testing.T) {
		gt.Equal(t, "see #E9 here",
			ploom.ResolveReferences("see #E9 here", outputs))
	})

	t.Run("longer id is not read as a prefix", func(t *testing.T) {
		gt.Equal(t, "twelfth output",
			ploom.ResolveReferences("#E12", outputs))
	})

	t.Run("multiple occurrences all resolve", func(t *testing.T) {
		gt.Equal(t, "first output and first output",
			ploom.ResolveReferences("#E1 and #E1", outputs))
	})

	t.Run("resolved argument never contains the token", func(t *testing.T) {
		resolved := ploom.ResolveReferences("grep #E1 in #E12 or #E3", outputs)
		gt.Equal(t, "grep first output in twelfth output or #E3", resolved)
	})
}
