package planner

import (
	"context"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// maxAlternatives bounds the alternative-path search, per spec.md 4.1
// ("return up to three meaningfully different alternatives").
const maxAlternatives = 3

// PlanAlternatives runs Plan once for the base plan, then re-runs with one
// prior action's ID excluded at a time (skipping actions that set
// measurement flags, since those are typically mandatory), returning up to
// maxAlternatives plans whose action set differs from the base plan's by at
// least one ID.
func (p *Planner) PlanAlternatives(ctx context.Context, goalID string, initial worldstate.WorldState, goal worldstate.ConditionSet, c Constraints) (*Plan, []Plan, error) {
	base, err := p.Plan(ctx, goalID, initial, goal, c)
	if err != nil {
		return nil, nil, err
	}

	var alternatives []Plan
	seen := map[string]bool{planSignature(*base): true}

	for _, a := range base.Actions {
		if len(alternatives) >= maxAlternatives {
			break
		}
		if a.SetsMeasurementFlag() {
			continue
		}
		altConstraints := c
		altConstraints.ExcludedActions = cloneExclusions(c.ExcludedActions)
		altConstraints.ExcludedActions[a.ID] = true

		alt, err := p.Plan(ctx, goalID, initial, goal, altConstraints)
		if err != nil {
			continue // this exclusion made the goal unreachable; not a usable alternative
		}
		sig := planSignature(*alt)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		alternatives = append(alternatives, *alt)
	}

	return base, alternatives, nil
}

func planSignature(p Plan) string {
	var sig string
	for _, id := range p.ActionIDs() {
		sig += id + ">"
	}
	return sig
}

func cloneExclusions(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
