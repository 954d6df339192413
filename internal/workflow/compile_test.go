package workflow

import (
	"context"
	"testing"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/planner"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGatePlan(t *testing.T) planner.Plan {
	t.Helper()
	reg := actions.NewRegistry()
	actions.DefaultCatalog(reg)
	p := planner.New(reg)
	initial := worldstate.WorldState{Resources: worldstate.Resources{TimeRemainingSeconds: 900}}
	goal := worldstate.ConditionSet{{Field: "quality.gateStatus", Operator: worldstate.OpEq, Value: "passed"}}
	plan, err := p.Plan(context.Background(), "gate-passed", initial, goal, planner.Constraints{})
	require.NoError(t, err)
	return *plan
}

func TestCompileSequentialChainsEveryStep(t *testing.T) {
	plan := buildGatePlan(t)
	steps := Compile(plan, StrategySequential)
	require.Len(t, steps, len(plan.Actions))
	assert.Empty(t, steps[0].DependsOn)
	for i := 1; i < len(steps); i++ {
		assert.Equal(t, []string{steps[i-1].ID}, steps[i].DependsOn)
	}
}

func TestCompileParallelUsesDataflowDependencies(t *testing.T) {
	plan := buildGatePlan(t)
	steps := Compile(plan, StrategyParallel)

	byAction := map[string]WorkflowStep{}
	for _, s := range steps {
		byAction[s.SourceActionID] = s
	}
	gateEval, ok := byAction["evaluate-quality-gate"]
	require.True(t, ok)
	require.NotEmpty(t, gateEval.DependsOn)

	finalize, ok := byAction["finalize-quality-gate"]
	require.True(t, ok)
	assert.Contains(t, finalize.DependsOn, gateEval.ID)
}

func TestCompileAdaptiveMarksParallelOnlyWhenNoDependencies(t *testing.T) {
	plan := buildGatePlan(t)
	steps := Compile(plan, StrategyAdaptive)
	for _, s := range steps {
		if len(s.DependsOn) == 0 {
			assert.True(t, s.CanRunParallel)
		} else {
			assert.False(t, s.CanRunParallel)
		}
	}
}

func TestStepTypeMapping(t *testing.T) {
	reg := actions.NewRegistry()
	actions.DefaultCatalog(reg)
	genTests, err := reg.Get("generate-missing-tests")
	require.NoError(t, err)
	assert.Equal(t, StepTestGeneration, stepType(genTests))

	measureCoverage, err := reg.Get("measure-coverage")
	require.NoError(t, err)
	assert.Equal(t, StepCoverageAnalysis, stepType(measureCoverage))

	runUnit, err := reg.Get("run-unit-tests")
	require.NoError(t, err)
	assert.Equal(t, StepTestExecution, stepType(runUnit))
}
