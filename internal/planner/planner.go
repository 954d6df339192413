package planner

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// epsilon floors successRate in the gCost denominator per spec.md 4.1, so a
// near-zero success rate inflates cost steeply rather than dividing by zero.
const epsilon = 0.05

// defaultMaxIterations bounds search when the caller leaves it unset.
const defaultMaxIterations = 100000

// Constraints bound a single plan() call.
type Constraints struct {
	MaxIterations     int
	TimeoutMs         int64
	AllowedCategories []actions.Category // optional whitelist
	ExcludedActions   map[string]bool    // optional
	MaxPlanLength     int                // 0 means unbounded
}

// Planner runs A* search over a fixed action catalog. A *Planner holds only
// the read-mostly registry, so concurrent plan() calls on a shared instance
// need no locking in the hot path: each call allocates its own open/closed
// sets.
type Planner struct {
	registry *actions.Registry
}

// New creates a Planner backed by registry.
func New(registry *actions.Registry) *Planner {
	return &Planner{registry: registry}
}

// Plan runs A* search from initial toward a state satisfying goal, honoring
// constraints. Returns a *Plan on success, or a *coreerrors.Error with one of
// the structured failure-mode kinds on failure. Never panics on valid
// inputs.
func (p *Planner) Plan(ctx context.Context, goalID string, initial worldstate.WorldState, goal worldstate.ConditionSet, c Constraints) (*Plan, error) {
	catalog := p.catalog(c)
	if len(catalog) == 0 {
		return nil, coreerrors.New("Planner.Plan", coreerrors.KindNoApplicableAction,
			fmt.Errorf("no actions available under the given constraints"))
	}

	maxIter := c.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	var deadline time.Time
	if c.TimeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(c.TimeoutMs) * time.Millisecond)
	}

	minCost := minActionCost(catalog)
	start := time.Now()

	root := &node{state: initial, hCost: heuristic(initial, goal, minCost)}
	open := &openQueue{root}
	heap.Init(open)
	closed := map[uint64]float64{} // state hash -> best gCost seen

	budgetPruned := false
	iterations := 0

	for open.Len() > 0 {
		iterations++
		if iterations > maxIter {
			return nil, coreerrors.New("Planner.Plan", coreerrors.KindUnreachableGoal,
				fmt.Errorf("exceeded maxIterations (%d)", maxIter))
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, coreerrors.New("Planner.Plan", coreerrors.KindTimeout,
				fmt.Errorf("exceeded timeoutMs (%d)", c.TimeoutMs))
		}
		select {
		case <-ctx.Done():
			return nil, coreerrors.New("Planner.Plan", coreerrors.KindCancelled, ctx.Err())
		default:
		}

		current := heap.Pop(open).(*node)

		if goal.Evaluate(current.state) {
			seq := current.path()
			plan := newPlan(goalID, seq, initial, current.state, start)
			plan.Status = StatusPending
			return &plan, nil
		}

		h := current.state.Hash()
		if best, ok := closed[h]; ok && best <= current.gCost {
			continue
		}
		closed[h] = current.gCost

		if c.MaxPlanLength > 0 && current.depth >= c.MaxPlanLength {
			continue
		}

		for i := range catalog {
			a := catalog[i]
			if a.SuccessRate <= 0 {
				continue
			}
			if !a.IsApplicable(current.state) {
				continue
			}
			childDuration := cumulativeDurationSeconds(current) + a.DurationEstimate.Seconds()
			if childDuration > initial.Resources.TimeRemainingSeconds {
				budgetPruned = true
				continue
			}
			child := &node{
				state:       a.Apply(current.state),
				parent:      current,
				actionTaken: &catalog[i],
				gCost:       current.gCost + a.Cost/maxFloat(a.SuccessRate, epsilon),
				depth:       current.depth + 1,
			}
			child.hCost = heuristic(child.state, goal, minCost)
			if best, ok := closed[child.state.Hash()]; ok && best <= child.gCost {
				continue
			}
			heap.Push(open, child)
		}
	}

	if budgetPruned {
		return nil, coreerrors.New("Planner.Plan", coreerrors.KindBudgetExceeded,
			fmt.Errorf("goal unreachable within resources.timeRemaining=%.0fs", initial.Resources.TimeRemainingSeconds))
	}
	return nil, coreerrors.New("Planner.Plan", coreerrors.KindUnreachableGoal,
		fmt.Errorf("no action sequence satisfies the goal"))
}

// catalog returns the registry's actions filtered by allowed categories and
// excluded action IDs, sorted by ID for deterministic expansion order.
func (p *Planner) catalog(c Constraints) []actions.Action {
	all := p.registry.All()
	out := make([]actions.Action, 0, len(all))
	for _, a := range all {
		if c.ExcludedActions != nil && c.ExcludedActions[a.ID] {
			continue
		}
		if len(c.AllowedCategories) > 0 && !categoryAllowed(a.Category, c.AllowedCategories) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func categoryAllowed(cat actions.Category, allowed []actions.Category) bool {
	for _, a := range allowed {
		if a == cat {
			return true
		}
	}
	return false
}

func cumulativeDurationSeconds(n *node) float64 {
	var total float64
	for cur := n; cur.parent != nil; cur = cur.parent {
		total += cur.actionTaken.DurationEstimate.Seconds()
	}
	return total
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
