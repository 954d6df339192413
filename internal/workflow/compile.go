package workflow

import (
	"strconv"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/planner"
)

// Compile turns a plan's linear action sequence into an ordered sequence of
// WorkflowStep under strategy, per spec.md 4.3.
func Compile(plan planner.Plan, strategy Strategy) []WorkflowStep {
	steps := make([]WorkflowStep, len(plan.Actions))
	for i, a := range plan.Actions {
		steps[i] = WorkflowStep{
			ID:                  stepID(i, a.ID),
			Name:                a.Name,
			Type:                stepType(a),
			EstimatedDurationMs: a.DurationEstimate.Milliseconds(),
			Status:              StepPending,
			ExecutorType:        a.AgentType,
			Category:            a.Category,
			SourceActionID:      a.ID,
		}
	}

	deps := extractDependencies(plan.Actions)

	switch strategy {
	case StrategySequential:
		for i := range steps {
			if i > 0 {
				steps[i].DependsOn = []string{steps[i-1].ID}
			}
		}
	case StrategyParallel:
		applyExtractedDependencies(steps, plan.Actions, deps)
	case StrategyAdaptive:
		applyExtractedDependencies(steps, plan.Actions, deps)
		for i := range steps {
			steps[i].CanRunParallel = len(steps[i].DependsOn) == 0
		}
	}

	return steps
}

// stepID derives a deterministic, position-qualified step ID so repeated
// uses of the same action within one plan (e.g. generate-missing-tests run
// more than once to close a coverage gap) get distinct step identities.
func stepID(position int, actionID string) string {
	return actionID + "#" + strconv.Itoa(position)
}

// extractDependencies builds action-ID -> producing-action-IDs: action B
// depends on action A when a field named in B's preconditions appears in
// A's effects with a boolean-true set, per spec.md 4.3's dependency
// extraction rule.
func extractDependencies(seq []actions.Action) map[string][]string {
	deps := map[string][]string{}
	for i, b := range seq {
		for _, precond := range b.Preconditions {
			for j := 0; j < i; j++ {
				a := seq[j]
				if producesFlag(a, precond.Field) {
					deps[b.ID] = appendUnique(deps[b.ID], a.ID)
				}
			}
		}
	}
	return deps
}

func producesFlag(a actions.Action, field string) bool {
	for _, e := range a.Effects {
		if e.Field == field && e.SetsFlagTrue() {
			return true
		}
	}
	return false
}

func appendUnique(in []string, v string) []string {
	for _, existing := range in {
		if existing == v {
			return in
		}
	}
	return append(in, v)
}

// applyExtractedDependencies resolves each step's action-ID-level
// dependencies down to the concrete step IDs of the nearest preceding
// occurrence of each producing action.
func applyExtractedDependencies(steps []WorkflowStep, seq []actions.Action, deps map[string][]string) {
	for i, step := range steps {
		producerIDs := deps[step.SourceActionID]
		if len(producerIDs) == 0 {
			continue
		}
		var resolved []string
		for _, producerActionID := range producerIDs {
			if stepID, ok := nearestPriorStep(steps, i, producerActionID); ok {
				resolved = appendUnique(resolved, stepID)
			}
		}
		steps[i].DependsOn = resolved
	}
}

func nearestPriorStep(steps []WorkflowStep, before int, actionID string) (string, bool) {
	for j := before - 1; j >= 0; j-- {
		if steps[j].SourceActionID == actionID {
			return steps[j].ID, true
		}
	}
	return "", false
}
