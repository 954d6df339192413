package worldstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetClampsPercentages(t *testing.T) {
	var s WorldState
	require.NoError(t, s.Set("coverage.line", 150.0))
	assert.Equal(t, 100.0, s.Coverage.Line)

	require.NoError(t, s.Set("coverage.line", -10.0))
	assert.Equal(t, 0.0, s.Coverage.Line)
}

func TestSetClampsCounts(t *testing.T) {
	var s WorldState
	require.NoError(t, s.Set("context.previousFailures", -5.0))
	assert.Equal(t, 0, s.Context.PreviousFailures)
}

func TestSetUnknownFieldIsInvalidInput(t *testing.T) {
	var s WorldState
	err := s.Set("nonexistent.field", 1.0)
	require.Error(t, err)
}

func TestConditionOperators(t *testing.T) {
	s := WorldState{Coverage: Coverage{Line: 80, Measured: true}}

	assert.True(t, (Condition{Field: "coverage.line", Operator: OpGte, Value: 80.0}).Evaluate(s))
	assert.False(t, (Condition{Field: "coverage.line", Operator: OpGte, Value: 81.0}).Evaluate(s))
	assert.True(t, (Condition{Field: "coverage.measured", Operator: OpEq, Value: true}).Evaluate(s))
	assert.True(t, (Condition{Field: "coverage.line", Operator: OpExists}).Evaluate(s))
}

func TestConditionMatches(t *testing.T) {
	s := WorldState{Context: Context{Environment: EnvProduction}}
	cond := Condition{Field: "context.environment", Operator: OpMatches, Value: "^prod"}
	assert.True(t, cond.Evaluate(s))
}

func TestConditionIn(t *testing.T) {
	s := WorldState{Context: Context{RiskLevel: RiskHigh}}
	cond := Condition{Field: "context.riskLevel", Operator: OpIn, Set: []interface{}{"high", "critical"}}
	assert.True(t, cond.Evaluate(s))
}

func TestEffectIncreaseClampsAtBoundary(t *testing.T) {
	s := WorldState{Coverage: Coverage{Line: 95}}
	eff := Effect{Field: "coverage.line", Operation: EffectIncrease, Value: 20.0}
	next := eff.Apply(s)
	assert.Equal(t, 100.0, next.Coverage.Line)
}

func TestEffectAddIsIdempotent(t *testing.T) {
	s := WorldState{Context: Context{ImpactedFiles: []string{"a.go"}}}
	eff := Effect{Field: "context.impactedFiles", Operation: EffectAdd, Value: "a.go"}
	next := eff.Apply(s)
	assert.Equal(t, []string{"a.go"}, next.Context.ImpactedFiles)
}

func TestHashIsDeterministicAndOrderInsensitiveForSets(t *testing.T) {
	s1 := WorldState{Fleet: Fleet{AvailableAgents: []string{"a", "b"}}}
	s2 := WorldState{Fleet: Fleet{AvailableAgents: []string{"b", "a"}}}
	assert.Equal(t, s1.Hash(), s2.Hash())
}

func TestHashDiffersOnDifferentState(t *testing.T) {
	s1 := WorldState{Coverage: Coverage{Line: 10}}
	s2 := WorldState{Coverage: Coverage{Line: 90}}
	assert.NotEqual(t, s1.Hash(), s2.Hash())
}

func TestCloneIsIndependent(t *testing.T) {
	s := WorldState{Context: Context{ImpactedFiles: []string{"a.go"}}}
	clone := s.Clone()
	clone.Context.ImpactedFiles[0] = "b.go"
	assert.Equal(t, "a.go", s.Context.ImpactedFiles[0])
}
