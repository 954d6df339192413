// Package goals implements the Goal Catalog (C3): named goals as condition
// sets with allowed action categories and customization hooks, grounded on
// the same Register/Get/List registry shape used throughout this module.
package goals

import (
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// Goal is a named target condition set the planner must satisfy.
type Goal struct {
	ID                string
	Name              string
	Conditions        worldstate.ConditionSet
	Priority          float64
	AllowedCategories []actions.Category // optional whitelist; empty means unrestricted
	DeadlineBudget    *float64           // optional seconds
}

// AllowsCategory reports whether c may be scheduled toward this goal. An
// empty AllowedCategories means every category is permitted.
func (g Goal) AllowsCategory(c actions.Category) bool {
	if len(g.AllowedCategories) == 0 {
		return true
	}
	for _, allowed := range g.AllowedCategories {
		if allowed == c {
			return true
		}
	}
	return false
}

// Satisfied reports whether state already meets every condition of this goal.
func (g Goal) Satisfied(state worldstate.WorldState) bool {
	return g.Conditions.Evaluate(state)
}

// Customization carries goal customization hooks per spec.md 4.4: numeric
// threshold overrides for coverage/security/performance/test-passing, plus
// appended free-form requirements translated into context.requirements
// conditions.
type Customization struct {
	MinCoverageLine      *float64
	MinSecurityScore     *float64
	MinPerformanceScore  *float64
	MinTestsPassing      *float64
	AdditionalRequirements []string
}

// Apply returns a copy of g with the customization's overrides merged in:
// each non-nil threshold replaces (or adds) the corresponding condition, and
// each additional requirement becomes an `in` condition against
// context.requirements.
func (g Goal) Apply(c Customization) Goal {
	out := g
	out.Conditions = append(worldstate.ConditionSet(nil), g.Conditions...)

	replace := func(field string, value *float64) {
		if value == nil {
			return
		}
		filtered := out.Conditions[:0:0]
		for _, cond := range out.Conditions {
			if cond.Field != field {
				filtered = append(filtered, cond)
			}
		}
		filtered = append(filtered, worldstate.Condition{
			Field: field, Operator: worldstate.OpGte, Value: *value,
		})
		out.Conditions = filtered
	}
	replace("coverage.line", c.MinCoverageLine)
	replace("quality.securityScore", c.MinSecurityScore)
	replace("quality.performanceScore", c.MinPerformanceScore)
	replace("quality.testsPassing", c.MinTestsPassing)

	for _, req := range c.AdditionalRequirements {
		out.Conditions = append(out.Conditions, worldstate.Condition{
			Field: "context.requirements", Operator: worldstate.OpIn, Set: []interface{}{req},
		})
	}
	return out
}
