// Package workflow implements the Plan-to-Workflow Compiler (C6): turns a
// planner.Plan's linear action sequence into an ordered sequence of
// WorkflowStep with dependencies extracted from action preconditions/effects
// dataflow, under a chosen scheduling strategy. Grounded on the teacher's
// WorldModel.CompareActions/ExploreAlternatives capability
// (internal/memory/world_model.go) for the alternative-DAG comparison
// feature, generalized here to plan-to-DAG compilation.
package workflow

import "github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"

// Strategy selects how dependencies beyond the extracted dataflow map are
// added to the compiled DAG.
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyParallel   Strategy = "parallel"
	StrategyAdaptive   Strategy = "adaptive"
)

// StepType is a coarse classification of a workflow step's purpose.
type StepType string

const (
	StepAnalysis          StepType = "analysis"
	StepTestGeneration    StepType = "test-generation"
	StepTestExecution     StepType = "test-execution"
	StepCoverageAnalysis  StepType = "coverage-analysis"
	StepSecurityAnalysis  StepType = "security-analysis"
	StepPerformanceTest   StepType = "performance-testing"
	StepDecisionMaking    StepType = "decision-making"
	StepResourceManagement StepType = "resource-management"
)

// StepStatus is a workflow step's execution lifecycle stage.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// WorkflowStep is one compiled node of the execution DAG.
type WorkflowStep struct {
	ID                  string
	Name                string
	Type                StepType
	DependsOn           []string
	EstimatedDurationMs int64
	Status              StepStatus
	ExecutorType        string
	Category            actions.Category
	CanRunParallel      bool
	SourceActionID      string
}

// stepType maps an action to a coarse step type per spec.md 4.3. Category
// alone only distinguishes 6 of the 8 step types (test-generation and
// coverage-analysis both fall under CategoryTest/CategoryAnalysis
// respectively alongside other actions of the same category), so generation
// and coverage-specific actions are recognized by ID first, with category as
// the fallback for everything else in that category.
func stepType(a actions.Action) StepType {
	switch a.ID {
	case "generate-missing-tests", "generate-bdd-scenarios":
		return StepTestGeneration
	case "measure-coverage", "analyze-coverage-gaps":
		return StepCoverageAnalysis
	}
	switch a.Category {
	case actions.CategoryAnalysis:
		return StepAnalysis
	case actions.CategoryTest:
		return StepTestExecution
	case actions.CategorySecurity:
		return StepSecurityAnalysis
	case actions.CategoryPerformance:
		return StepPerformanceTest
	case actions.CategoryProcess:
		return StepDecisionMaking
	case actions.CategoryFleet:
		return StepResourceManagement
	default:
		return StepAnalysis
	}
}
