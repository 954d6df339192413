package goals

import (
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

func cond(field string, op worldstate.Operator, value interface{}) worldstate.Condition {
	return worldstate.Condition{Field: field, Operator: op, Value: value}
}

// DefaultCatalog registers the built-in goal catalog into reg, covering the
// coverage/security/performance/process targets exercised by the
// measurement-before-improvement and category-restriction scenarios.
func DefaultCatalog(reg *Registry) {
	must := func(g Goal) { _ = reg.Register(g) }

	must(Goal{
		ID: "coverage-target", Name: "Reach line coverage target", Priority: 0.6,
		Conditions: worldstate.ConditionSet{cond("coverage.line", worldstate.OpGte, 80.0)},
	})

	must(Goal{
		ID: "security-hardened", Name: "Reach minimum security score", Priority: 0.9,
		Conditions: worldstate.ConditionSet{cond("quality.securityScore", worldstate.OpGte, 95.0)},
	})

	must(Goal{
		ID: "performance-acceptable", Name: "Reach minimum performance score", Priority: 0.7,
		Conditions: worldstate.ConditionSet{cond("quality.performanceScore", worldstate.OpGte, 85.0)},
	})

	must(Goal{
		ID: "tests-passing", Name: "Unit tests passing", Priority: 0.8,
		AllowedCategories: []actions.Category{actions.CategoryTest},
		Conditions:        worldstate.ConditionSet{cond("quality.testsPassing", worldstate.OpGte, 95.0)},
	})

	must(Goal{
		ID: "gate-passed", Name: "Quality gate passed", Priority: 1.0,
		Conditions: worldstate.ConditionSet{cond("quality.gateStatus", worldstate.OpEq, "passed")},
	})

	must(Goal{
		ID: "release-ready", Name: "Full release readiness", Priority: 1.0,
		Conditions: worldstate.ConditionSet{
			cond("coverage.line", worldstate.OpGte, 80.0),
			cond("quality.testsPassing", worldstate.OpGte, 95.0),
			cond("quality.securityScore", worldstate.OpGte, 90.0),
			cond("quality.gateStatus", worldstate.OpEq, "passed"),
		},
	})
}
