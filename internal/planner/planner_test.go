package planner

import (
	"context"
	"testing"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRegistry(t *testing.T) *actions.Registry {
	t.Helper()
	reg := actions.NewRegistry()
	actions.DefaultCatalog(reg)
	return reg
}

// S1: measurement before improvement.
func TestPlanMeasurementBeforeImprovement(t *testing.T) {
	p := New(defaultRegistry(t))
	initial := worldstate.WorldState{
		Coverage:  worldstate.Coverage{Line: 40, Measured: false},
		Resources: worldstate.Resources{TimeRemainingSeconds: 900},
	}
	goal := worldstate.ConditionSet{{Field: "coverage.line", Operator: worldstate.OpGte, Value: 80.0}}

	plan, err := p.Plan(context.Background(), "coverage-target", initial, goal, Constraints{})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Actions)

	ids := plan.ActionIDs()
	measureIdx, genIdx := -1, -1
	for i, id := range ids {
		if id == "measure-coverage" && measureIdx == -1 {
			measureIdx = i
		}
		if id == "generate-missing-tests" && genIdx == -1 {
			genIdx = i
		}
	}
	require.GreaterOrEqual(t, measureIdx, 0)
	require.GreaterOrEqual(t, genIdx, 0)
	assert.Less(t, measureIdx, genIdx)

	final := applySequence(initial, plan.Actions)
	assert.GreaterOrEqual(t, final.Coverage.Line, 80.0)
}

// S2: unreachable under budget.
func TestPlanBudgetExceeded(t *testing.T) {
	p := New(defaultRegistry(t))
	initial := worldstate.WorldState{
		Quality:   worldstate.Quality{SecurityScore: 10},
		Resources: worldstate.Resources{TimeRemainingSeconds: 100},
	}
	goal := worldstate.ConditionSet{{Field: "quality.securityScore", Operator: worldstate.OpGte, Value: 95.0}}

	_, err := p.Plan(context.Background(), "security-hardened", initial, goal, Constraints{})
	require.Error(t, err)
	kind, ok := coreerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.KindBudgetExceeded, kind)
}

// S3: category restriction.
func TestPlanCategoryRestriction(t *testing.T) {
	p := New(defaultRegistry(t))
	initial := worldstate.WorldState{Resources: worldstate.Resources{TimeRemainingSeconds: 900}}
	goal := worldstate.ConditionSet{{Field: "quality.testsPassing", Operator: worldstate.OpGte, Value: 95.0}}

	plan, err := p.Plan(context.Background(), "tests-passing", initial, goal,
		Constraints{AllowedCategories: []actions.Category{actions.CategoryTest}})
	require.NoError(t, err)
	for _, a := range plan.Actions {
		assert.Equal(t, actions.CategoryTest, a.Category)
	}
}

// S4: dependency chain for a process-gated plan.
func TestPlanGateDependencyChain(t *testing.T) {
	p := New(defaultRegistry(t))
	initial := worldstate.WorldState{Resources: worldstate.Resources{TimeRemainingSeconds: 900}}
	goal := worldstate.ConditionSet{{Field: "quality.gateStatus", Operator: worldstate.OpEq, Value: "passed"}}

	plan, err := p.Plan(context.Background(), "gate-passed", initial, goal, Constraints{})
	require.NoError(t, err)

	ids := plan.ActionIDs()
	idx := map[string]int{}
	for i, id := range ids {
		idx[id] = i
	}
	require.Contains(t, idx, "run-unit-tests")
	require.Contains(t, idx, "evaluate-quality-gate")
	require.Contains(t, idx, "finalize-quality-gate")
	assert.Less(t, idx["run-unit-tests"], idx["evaluate-quality-gate"])
	assert.Less(t, idx["evaluate-quality-gate"], idx["finalize-quality-gate"])
}

func TestPlanValidityInvariant(t *testing.T) {
	p := New(defaultRegistry(t))
	initial := worldstate.WorldState{
		Coverage:  worldstate.Coverage{Line: 40},
		Resources: worldstate.Resources{TimeRemainingSeconds: 900},
	}
	goal := worldstate.ConditionSet{{Field: "coverage.line", Operator: worldstate.OpGte, Value: 80.0}}

	plan, err := p.Plan(context.Background(), "coverage-target", initial, goal, Constraints{})
	require.NoError(t, err)
	final := applySequence(plan.InitialState, plan.Actions)
	assert.True(t, goal.Evaluate(final))
}

func TestPlanAlternativesReturnsDistinctSequences(t *testing.T) {
	p := New(defaultRegistry(t))
	initial := worldstate.WorldState{
		Coverage:  worldstate.Coverage{Line: 40},
		Resources: worldstate.Resources{TimeRemainingSeconds: 900},
	}
	goal := worldstate.ConditionSet{{Field: "coverage.line", Operator: worldstate.OpGte, Value: 80.0}}

	base, alts, err := p.PlanAlternatives(context.Background(), "coverage-target", initial, goal, Constraints{})
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.LessOrEqual(t, len(alts), maxAlternatives)
	for _, alt := range alts {
		assert.NotEqual(t, planSignature(*base), planSignature(alt))
	}
}

func applySequence(initial worldstate.WorldState, seq []actions.Action) worldstate.WorldState {
	state := initial
	for _, a := range seq {
		state = a.Apply(state)
	}
	return state
}
