package actions

import (
	"time"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// cond/eff are small constructors to keep the default catalog readable.
func cond(field string, op worldstate.Operator, value interface{}) worldstate.Condition {
	return worldstate.Condition{Field: field, Operator: op, Value: value}
}

func eff(field string, op worldstate.EffectOp, value interface{}) worldstate.Effect {
	return worldstate.Effect{Field: field, Operation: op, Value: value}
}

// DefaultCatalog registers the built-in action catalog into reg. Every
// "improvement" action's preconditions include the corresponding *Measured
// flag, per the measurement-before-improvement invariant in spec.md 3, and
// every remediation-class action costs >=300 (matching scenario S2's
// "remediation actions each cost >= 300s" expectation).
func DefaultCatalog(reg *Registry) {
	must := func(a Action) { _ = reg.Register(a) }

	must(Action{
		ID: "measure-coverage", Name: "Measure code coverage", AgentType: "coverage-analyzer",
		Category: CategoryAnalysis,
		Effects:  worldstate.Effects{eff("coverage.measured", worldstate.EffectSet, true)},
		Cost:     5, DurationEstimate: 3 * time.Second, SuccessRate: 0.95,
	})

	must(Action{
		ID: "generate-missing-tests", Name: "Generate tests to close coverage gaps",
		AgentType: "test-generator", Category: CategoryTest,
		Preconditions: worldstate.ConditionSet{cond("coverage.measured", worldstate.OpEq, true)},
		Effects: worldstate.Effects{
			eff("coverage.line", worldstate.EffectIncrease, 15.0),
			eff("coverage.branch", worldstate.EffectIncrease, 10.0),
		},
		Cost: 30, DurationEstimate: 20 * time.Second, SuccessRate: 0.85,
	})

	must(Action{
		ID: "measure-complexity", Name: "Measure cyclomatic complexity", AgentType: "complexity-analyzer",
		Category: CategoryAnalysis,
		Effects:  worldstate.Effects{eff("quality.complexityMeasured", worldstate.EffectSet, true)},
		Cost:     5, DurationEstimate: 3 * time.Second, SuccessRate: 0.95,
	})

	must(Action{
		ID: "reduce-technical-debt", Name: "Refactor to reduce technical debt",
		AgentType: "refactor-agent", Category: CategoryProcess,
		Preconditions: worldstate.ConditionSet{cond("quality.complexityMeasured", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("quality.technicalDebt", worldstate.EffectDecrease, 5.0)},
		Cost:          15, DurationEstimate: 15 * time.Second, SuccessRate: 0.8,
	})

	must(Action{
		ID: "run-unit-tests", Name: "Run the unit test suite", AgentType: "test-runner",
		Category: CategoryTest,
		Effects: worldstate.Effects{
			eff("quality.testsMeasured", worldstate.EffectSet, true),
			eff("quality.testsPassing", worldstate.EffectSet, 95.0),
		},
		Cost: 20, DurationEstimate: 20 * time.Second, SuccessRate: 0.9,
	})

	must(Action{
		ID: "run-integration-tests", Name: "Run the integration test suite", AgentType: "test-runner",
		Category: CategoryTest,
		Preconditions: worldstate.ConditionSet{cond("quality.testsMeasured", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("quality.integrationTested", worldstate.EffectSet, true)},
		Cost:          40, DurationEstimate: 60 * time.Second, SuccessRate: 0.85,
	})

	must(Action{
		ID: "run-smoke-tests", Name: "Run smoke tests", AgentType: "test-runner",
		Category: CategoryTest,
		Effects:  worldstate.Effects{eff("quality.smokeTestsPassing", worldstate.EffectSet, true)},
		Cost:     5, DurationEstimate: 5 * time.Second, SuccessRate: 0.95,
	})

	must(Action{
		ID: "run-critical-path-tests", Name: "Run critical-path end-to-end tests", AgentType: "test-runner",
		Category: CategoryTest,
		Preconditions: worldstate.ConditionSet{cond("quality.smokeTestsPassing", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("quality.criticalPathTested", worldstate.EffectSet, true)},
		Cost:          25, DurationEstimate: 30 * time.Second, SuccessRate: 0.85,
	})

	must(Action{
		ID: "evaluate-quality-gate", Name: "Evaluate the quality gate", AgentType: "gate-evaluator",
		Category: CategoryProcess,
		Preconditions: worldstate.ConditionSet{cond("quality.testsMeasured", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("quality.gateEvaluated", worldstate.EffectSet, true)},
		Cost:          5, DurationEstimate: 2 * time.Second, SuccessRate: 0.99,
	})

	must(Action{
		ID: "finalize-quality-gate", Name: "Finalize the quality gate decision", AgentType: "gate-finalizer",
		Category: CategoryProcess,
		Preconditions: worldstate.ConditionSet{cond("quality.gateEvaluated", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("quality.gateStatus", worldstate.EffectSet, "passed")},
		Cost:          5, DurationEstimate: 1 * time.Second, SuccessRate: 0.99,
	})

	must(Action{
		ID: "request-gate-exception", Name: "Request an exception to the quality gate",
		AgentType: "gate-finalizer", Category: CategoryProcess,
		Preconditions: worldstate.ConditionSet{cond("quality.gateEvaluated", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("quality.gateStatus", worldstate.EffectSet, "exception_requested")},
		Cost:          10, DurationEstimate: 5 * time.Second, SuccessRate: 0.6,
	})

	must(Action{
		ID: "measure-security", Name: "Run static and dependency security scans",
		AgentType: "security-scanner", Category: CategoryAnalysis,
		Effects: worldstate.Effects{eff("quality.securityMeasured", worldstate.EffectSet, true)},
		Cost:    10, DurationEstimate: 8 * time.Second, SuccessRate: 0.9,
	})

	must(Action{
		ID: "remediate-security-findings", Name: "Remediate high/critical security findings",
		AgentType: "security-remediator", Category: CategorySecurity,
		Preconditions: worldstate.ConditionSet{cond("quality.securityMeasured", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("quality.securityScore", worldstate.EffectIncrease, 20.0)},
		Cost:          300, DurationEstimate: 300 * time.Second, SuccessRate: 0.7,
	})

	must(Action{
		ID: "measure-performance", Name: "Run performance benchmark suite",
		AgentType: "performance-profiler", Category: CategoryAnalysis,
		Effects: worldstate.Effects{eff("quality.performanceMeasured", worldstate.EffectSet, true)},
		Cost:    15, DurationEstimate: 30 * time.Second, SuccessRate: 0.9,
	})

	must(Action{
		ID: "optimize-performance", Name: "Apply performance optimizations",
		AgentType: "performance-optimizer", Category: CategoryPerformance,
		Preconditions: worldstate.ConditionSet{cond("quality.performanceMeasured", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("quality.performanceScore", worldstate.EffectIncrease, 15.0)},
		Cost:          60, DurationEstimate: 90 * time.Second, SuccessRate: 0.75,
	})

	must(Action{
		ID: "analyze-impact", Name: "Analyze blast radius of the change", AgentType: "impact-analyzer",
		Category: CategoryAnalysis,
		Effects:  worldstate.Effects{eff("context.impactAnalyzed", worldstate.EffectSet, true)},
		Cost:     5, DurationEstimate: 5 * time.Second, SuccessRate: 0.95,
	})

	must(Action{
		ID: "analyze-coverage-gaps", Name: "Analyze coverage gaps against impacted files",
		AgentType: "coverage-analyzer", Category: CategoryAnalysis,
		Preconditions: worldstate.ConditionSet{cond("context.impactAnalyzed", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("context.coverageGapsAnalyzed", worldstate.EffectSet, true)},
		Cost:          10, DurationEstimate: 8 * time.Second, SuccessRate: 0.9,
	})

	must(Action{
		ID: "generate-bdd-scenarios", Name: "Generate BDD scenarios from requirements",
		AgentType: "bdd-generator", Category: CategoryTest,
		Preconditions: worldstate.ConditionSet{cond("context.impactAnalyzed", worldstate.OpEq, true)},
		Effects:       worldstate.Effects{eff("context.bddGenerated", worldstate.EffectSet, true)},
		Cost:          15, DurationEstimate: 10 * time.Second, SuccessRate: 0.85,
	})

	must(Action{
		ID: "optimize-fleet-topology", Name: "Re-balance the executor fleet topology",
		AgentType: "fleet-coordinator", Category: CategoryFleet,
		Effects: worldstate.Effects{eff("fleet.topologyOptimized", worldstate.EffectSet, true)},
		Cost:    10, DurationEstimate: 5 * time.Second, SuccessRate: 0.9,
	})

	must(Action{
		ID: "spawn-additional-agents", Name: "Spawn additional executors for the current fleet",
		AgentType: "fleet-coordinator", Category: CategoryFleet,
		Effects: worldstate.Effects{eff("fleet.activeAgents", worldstate.EffectIncrement, nil)},
		Cost:    8, DurationEstimate: 4 * time.Second, SuccessRate: 0.95,
	})
}
