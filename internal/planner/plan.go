package planner

import (
	"time"

	"github.com/google/uuid"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// Status is a plan's lifecycle stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusReplanned Status = "replanned"
)

// Plan is an ordered sequence of actions transforming an initial state into
// a goal-satisfying state, exactly as spec.md 3.
type Plan struct {
	ID                  string
	GoalID              string
	Actions             []actions.Action
	TotalCost           float64
	EstimatedDurationMs int64
	InitialState        worldstate.WorldState
	GoalState           worldstate.WorldState
	Status              Status
	CreatedAt           time.Time
	StartedAt           *time.Time
	CompletedAt         *time.Time
}

// ActionIDs returns the plan's action sequence as IDs only, convenient for
// logging and for the workflow compiler's dependency extraction.
func (p Plan) ActionIDs() []string {
	out := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = a.ID
	}
	return out
}

func newPlan(goalID string, seq []actions.Action, initial, goalState worldstate.WorldState, now time.Time) Plan {
	var totalCost float64
	var totalDuration int64
	for _, a := range seq {
		totalCost += a.Cost
		totalDuration += a.DurationEstimate.Milliseconds()
	}
	return Plan{
		ID:                  uuid.NewString(),
		GoalID:              goalID,
		Actions:             seq,
		TotalCost:           totalCost,
		EstimatedDurationMs: totalDuration,
		InitialState:        initial,
		GoalState:           goalState,
		Status:              StatusPending,
		CreatedAt:           now,
	}
}
