package workflow

import "github.com/iamthegreatdestroyer/agentic-qe-core/internal/planner"

// CompileAlternatives compiles the base plan plus each of its alternatives
// independently, so a caller can compare workflow shapes rather than just
// linear action lists. Recovered from the teacher's
// WorldModel.CompareActions/ExploreAlternatives capability, generalized to
// whole-DAG comparison.
func CompileAlternatives(base planner.Plan, alternatives []planner.Plan, strategy Strategy) (baseDAG []WorkflowStep, alternativeDAGs [][]WorkflowStep) {
	baseDAG = Compile(base, strategy)
	alternativeDAGs = make([][]WorkflowStep, len(alternatives))
	for i, alt := range alternatives {
		alternativeDAGs[i] = Compile(alt, strategy)
	}
	return baseDAG, alternativeDAGs
}
