// Package planner implements the GOAP Planner (C4): A* search from a
// measured world state to a state satisfying a goal's condition set,
// grounded on the heap.Interface priority-queue idiom in
// internal/memory/goal_stack.go (goalPriorityQueue), generalized from
// goal-priority ordering to search-node fCost ordering.
package planner

import (
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// node is one A* search node. Search-node identity is ephemeral: it exists
// only for the duration of a single plan() call and is never persisted.
type node struct {
	state       worldstate.WorldState
	parent      *node
	actionTaken *actions.Action // nil for the root node
	gCost       float64
	hCost       float64
	depth       int
	index       int // heap.Interface bookkeeping
}

func (n *node) fCost() float64 { return n.gCost + n.hCost }

// path walks parent links back to the root and returns the ordered action
// sequence (root excluded, since it carries no actionTaken).
func (n *node) path() []actions.Action {
	var rev []actions.Action
	for cur := n; cur.parent != nil; cur = cur.parent {
		rev = append(rev, *cur.actionTaken)
	}
	out := make([]actions.Action, len(rev))
	for i, a := range rev {
		out[i] = rev[len(rev)-1-i]
		_ = a
	}
	return out
}

// openQueue implements heap.Interface over *node, ordered by fCost with the
// tie-break chain from spec.md 4.1: lower hCost, then lower total duration
// estimate (the path's summed DurationEstimate, see durationEstimateMs),
// then lexicographic action-id of the last step.
type openQueue []*node

func (q openQueue) Len() int { return len(q) }

func (q openQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	fa, fb := a.fCost(), b.fCost()
	if fa != fb {
		return fa < fb
	}
	if a.hCost != b.hCost {
		return a.hCost < b.hCost
	}
	da, db := durationEstimateMs(a), durationEstimateMs(b)
	if da != db {
		return da < db
	}
	return lastActionID(a) < lastActionID(b)
}

func (q openQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *openQueue) Push(x interface{}) {
	n := len(*q)
	nd := x.(*node)
	nd.index = n
	*q = append(*q, nd)
}

func (q *openQueue) Pop() interface{} {
	old := *q
	n := len(old)
	nd := old[n-1]
	old[n-1] = nil
	nd.index = -1
	*q = old[0 : n-1]
	return nd
}

func durationEstimateMs(n *node) int64 {
	var total int64
	for cur := n; cur.parent != nil; cur = cur.parent {
		total += cur.actionTaken.DurationEstimate.Milliseconds()
	}
	return total
}

func lastActionID(n *node) string {
	if n.actionTaken == nil {
		return ""
	}
	return n.actionTaken.ID
}
