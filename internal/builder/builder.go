// Package builder implements the World-State Builder (C5): composes a
// worldstate.WorldState from a quality-metrics struct, a fleet snapshot, a
// resource budget, and a context record, applying a set of deterministic
// inferences over those inputs. Reads the executor registry through its
// narrow SupportedTypes()/All() surface to populate fleet state without depending on
// what a given executor implementation looks like.
package builder

import (
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/executor"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
)

// SecurityFindings is the raw finding-count input to the security-score
// inference.
type SecurityFindings struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

// PerformanceSample is the raw latency/error input to the performance-score
// inference. ErrorRate is in the same units the formula in spec.md 4.2
// expects (10 * errorRate as a score penalty), i.e. a percentage point value
// such as 2.0 for a 2% error rate.
type PerformanceSample struct {
	P95LatencyMs float64
	ErrorRate    float64
}

// QualityMetrics is the quality-metrics struct the builder composes from.
type QualityMetrics struct {
	CoverageLine     float64
	CoverageBranch   float64
	CoverageFunction float64
	CoverageTarget   float64
	TestsPassing     float64
	TechnicalDebt    float64
	Security         SecurityFindings
	Performance      PerformanceSample
}

// ResourceBudget is the resource input to the builder.
type ResourceBudget struct {
	TimeRemainingSeconds float64
	MemoryAvailableMB    float64
	ParallelSlots        int
}

// ChangeContext is the context input to the builder: raw facts the builder
// turns into Environment/ChangeSize/RiskLevel inferences.
type ChangeContext struct {
	Environment      worldstate.Environment
	IsHotfix         bool
	ChangedFileCount int
	PreviousFailures int
	ImpactedFiles    []string
	ProjectID        string
	Requirements     []string

	// ExplicitRiskLevel overrides inference when non-empty, per spec.md 4.2
	// ("Risk-level inference (when not explicit)").
	ExplicitRiskLevel worldstate.RiskLevel
}

// Build composes a WorldState. execRegistry may be nil, in which case the
// fleet's availableAgents falls back to the default list of action agent
// types from catalog.
func Build(metrics QualityMetrics, budget ResourceBudget, ctx ChangeContext, execRegistry executor.Registry, catalog *actions.Registry) worldstate.WorldState {
	state := worldstate.WorldState{
		Coverage: worldstate.Coverage{
			Line: metrics.CoverageLine, Branch: metrics.CoverageBranch,
			Function: metrics.CoverageFunction, Target: metrics.CoverageTarget,
			Measured: false,
		},
		Quality: worldstate.Quality{
			TestsPassing:     metrics.TestsPassing,
			SecurityScore:    securityScore(metrics.Security),
			PerformanceScore: performanceScore(metrics.Performance),
			TechnicalDebt:    metrics.TechnicalDebt,
			GateStatus:       worldstate.GatePending,
		},
		Resources: worldstate.Resources{
			TimeRemainingSeconds: budget.TimeRemainingSeconds,
			MemoryAvailableMB:    budget.MemoryAvailableMB,
			ParallelSlots:        budget.ParallelSlots,
		},
		Context: worldstate.Context{
			Environment:      ctx.Environment,
			ChangeSize:       inferChangeSize(ctx.ChangedFileCount),
			PreviousFailures: ctx.PreviousFailures,
			ImpactedFiles:    append([]string(nil), ctx.ImpactedFiles...),
			ProjectID:        ctx.ProjectID,
			Requirements:     append([]string(nil), ctx.Requirements...),
		},
	}
	state.Context.RiskLevel = inferRiskLevel(ctx, state.Context.ChangeSize)
	state.Fleet = buildFleet(execRegistry, catalog)
	return state
}

func securityScore(f SecurityFindings) float64 {
	score := 100.0 - 25*float64(f.Critical) - 15*float64(f.High) - 5*float64(f.Medium) - 1*float64(f.Low)
	if score < 0 {
		return 0
	}
	return score
}

func performanceScore(p PerformanceSample) float64 {
	score := 100.0
	if latencyPenalty := (p.P95LatencyMs - 200) / 20; latencyPenalty > 0 {
		score -= latencyPenalty
	}
	score -= 10 * p.ErrorRate
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func inferChangeSize(changedFiles int) worldstate.ChangeSize {
	switch {
	case changedFiles <= 5:
		return worldstate.ChangeSmall
	case changedFiles <= 20:
		return worldstate.ChangeMedium
	default:
		return worldstate.ChangeLarge
	}
}

func inferRiskLevel(ctx ChangeContext, size worldstate.ChangeSize) worldstate.RiskLevel {
	if ctx.ExplicitRiskLevel != "" {
		return ctx.ExplicitRiskLevel
	}
	switch {
	case ctx.Environment == worldstate.EnvProduction && ctx.IsHotfix:
		return worldstate.RiskCritical
	case ctx.Environment == worldstate.EnvProduction:
		return worldstate.RiskHigh
	case ctx.Environment == worldstate.EnvStaging && size == worldstate.ChangeLarge:
		return worldstate.RiskHigh
	case ctx.PreviousFailures >= 3:
		return worldstate.RiskHigh
	case ctx.PreviousFailures >= 1:
		return worldstate.RiskMedium
	case size == worldstate.ChangeLarge:
		return worldstate.RiskMedium
	default:
		return worldstate.RiskLow
	}
}

// buildFleet populates fleet.availableAgents from idle executors when a
// registry is attached; if none are idle, from registry-supported types that
// match some registered action's agentType (signalling executors can be
// spawned on demand); with no registry at all, from the default list of
// action agent types in catalog.
func buildFleet(execRegistry executor.Registry, catalog *actions.Registry) worldstate.Fleet {
	fleet := worldstate.Fleet{AgentTypes: map[string]int{}}

	if execRegistry == nil {
		if catalog != nil {
			seen := map[string]bool{}
			for _, a := range catalog.All() {
				if !seen[a.AgentType] {
					seen[a.AgentType] = true
					fleet.AvailableAgents = append(fleet.AvailableAgents, a.AgentType)
				}
			}
		}
		return fleet
	}

	var idle []string
	for _, rec := range execRegistry.All() {
		switch rec.Status {
		case executor.StatusIdle, executor.StatusAvailable:
			idle = append(idle, rec.ID)
			fleet.AgentTypes[rec.Type]++
		case executor.StatusBusy, executor.StatusRunning:
			fleet.BusyAgents = append(fleet.BusyAgents, rec.ID)
			fleet.AgentTypes[rec.Type]++
		}
	}
	fleet.ActiveAgents = len(execRegistry.All())

	if len(idle) > 0 {
		fleet.AvailableAgents = idle
		return fleet
	}

	if catalog == nil {
		return fleet
	}
	supported := map[string]bool{}
	for _, t := range execRegistry.SupportedTypes() {
		supported[t] = true
	}
	seen := map[string]bool{}
	for _, a := range catalog.All() {
		if supported[a.AgentType] && !seen[a.AgentType] {
			seen[a.AgentType] = true
			fleet.AvailableAgents = append(fleet.AvailableAgents, a.AgentType)
		}
	}
	return fleet
}
