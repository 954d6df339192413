package goals

import (
	"testing"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowsCategoryUnrestrictedByDefault(t *testing.T) {
	g := Goal{ID: "g1"}
	assert.True(t, g.AllowsCategory(actions.CategorySecurity))
}

func TestAllowsCategoryWhitelist(t *testing.T) {
	g := Goal{ID: "g1", AllowedCategories: []actions.Category{actions.CategoryTest}}
	assert.True(t, g.AllowsCategory(actions.CategoryTest))
	assert.False(t, g.AllowsCategory(actions.CategorySecurity))
}

func TestSatisfied(t *testing.T) {
	g := Goal{Conditions: worldstate.ConditionSet{
		{Field: "coverage.line", Operator: worldstate.OpGte, Value: 80.0},
	}}
	assert.False(t, g.Satisfied(worldstate.WorldState{}))
	assert.True(t, g.Satisfied(worldstate.WorldState{Coverage: worldstate.Coverage{Line: 85}}))
}

func TestApplyOverridesThreshold(t *testing.T) {
	g := Goal{Conditions: worldstate.ConditionSet{
		{Field: "coverage.line", Operator: worldstate.OpGte, Value: 80.0},
	}}
	min := 90.0
	customized := g.Apply(Customization{MinCoverageLine: &min})
	require.Len(t, customized.Conditions, 1)
	assert.Equal(t, 90.0, customized.Conditions[0].Value)
	// original goal's conditions are untouched
	assert.Equal(t, 80.0, g.Conditions[0].Value)
}

func TestApplyAppendsRequirements(t *testing.T) {
	g := Goal{}
	customized := g.Apply(Customization{AdditionalRequirements: []string{"pci-dss"}})
	require.Len(t, customized.Conditions, 1)
	assert.Equal(t, "context.requirements", customized.Conditions[0].Field)
	state := worldstate.WorldState{Context: worldstate.Context{Requirements: []string{"pci-dss"}}}
	assert.True(t, customized.Satisfied(state))
}

func TestRegistryRegisterIsIdempotentAndRejectsUnknownField(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Goal{ID: "a", Name: "first"}))
	require.NoError(t, reg.Register(Goal{ID: "a", Name: "second"}))
	assert.Equal(t, 1, reg.Count())
	got, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)

	err = reg.Register(Goal{ID: "bad", Conditions: worldstate.ConditionSet{
		{Field: "nonexistent.field", Operator: worldstate.OpEq, Value: 1.0},
	}})
	assert.Error(t, err)
}

func TestDefaultCatalogRegistersGoals(t *testing.T) {
	reg := NewRegistry()
	DefaultCatalog(reg)
	assert.Greater(t, reg.Count(), 0)
	_, err := reg.Get("release-ready")
	assert.NoError(t, err)
}
