package planner

import (
	"math"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// minActionCost finds the minimum cost among catalog actions, used as the
// cost-per-unit-progress multiplier so the heuristic never overestimates
// remaining cost (admissibility), per spec.md 4.1.
func minActionCost(catalog []actions.Action) float64 {
	min := math.Inf(1)
	for _, a := range catalog {
		if a.Cost < min {
			min = a.Cost
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// heuristic estimates remaining cost to satisfy goal from state: the sum,
// over unsatisfied goal conditions, of a per-condition normalized distance
// scaled by minCost so the estimate never exceeds the true minimum cost to
// close that gap.
func heuristic(state worldstate.WorldState, goal worldstate.ConditionSet, minCost float64) float64 {
	var total float64
	for _, c := range goal.Unsatisfied(state) {
		total += minCost * conditionDistance(state, c)
	}
	return total
}

// conditionDistance returns a normalized, unitless remaining-distance
// estimate for one unsatisfied condition: for numeric gte/lte it is the
// field-scaled gap toward the threshold; for every other operator
// (eq/ne/in/exists/matches) it is a flat 1, since those are binary
// satisfied/unsatisfied tests.
func conditionDistance(state worldstate.WorldState, c worldstate.Condition) float64 {
	switch c.Operator {
	case worldstate.OpGte, worldstate.OpLte:
		kind, ok := worldstate.FieldKindOf(c.Field)
		if !ok {
			return 1
		}
		cur, exists := state.Get(c.Field)
		if !exists {
			return 1
		}
		curF, curOk := cur.(float64)
		if !curOk {
			if i, ok := cur.(int); ok {
				curF = float64(i)
			} else {
				return 1
			}
		}
		target, ok := c.Value.(float64)
		if !ok {
			return 1
		}
		dist := math.Abs(target-curF) / kind.Scale()
		if dist < 0 {
			return 0
		}
		return dist
	default:
		return 1
	}
}
