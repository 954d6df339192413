// Package actions implements the Action Library (C2): the catalog of
// registered actions with preconditions, effects, cost, duration and success
// rate, using the map + sync.RWMutex + idempotent Register/Get/List/Count
// registry shape used throughout this module.
package actions

import (
	"time"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// Category restricts which goals may schedule an action.
type Category string

const (
	CategoryTest        Category = "test"
	CategorySecurity    Category = "security"
	CategoryPerformance Category = "performance"
	CategoryProcess     Category = "process"
	CategoryFleet       Category = "fleet"
	CategoryAnalysis    Category = "analysis"
)

// Action is an immutable-after-registration unit of work.
type Action struct {
	ID                string
	Name              string
	AgentType         string
	Category          Category
	Preconditions     worldstate.ConditionSet
	Effects           worldstate.Effects
	Cost              float64
	DurationEstimate  time.Duration
	SuccessRate       float64 // [0,1]
}

// IsApplicable reports whether every precondition holds in state.
func (a Action) IsApplicable(state worldstate.WorldState) bool {
	return a.Preconditions.Evaluate(state)
}

// Apply returns the state resulting from this action's effects.
func (a Action) Apply(state worldstate.WorldState) worldstate.WorldState {
	return a.Effects.ApplyAll(state)
}

// SetsMeasurementFlag reports whether any of this action's effects sets a
// boolean measurement flag true, used by alternative-path generation to
// avoid excluding mandatory measurement actions.
func (a Action) SetsMeasurementFlag() bool {
	for _, e := range a.Effects {
		if e.SetsFlagTrue() {
			return true
		}
	}
	return false
}
