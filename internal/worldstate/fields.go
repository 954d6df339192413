package worldstate

import (
	"fmt"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
)

// FieldKind classifies a field's value domain, used both for effect clamping
// (percentages clamp to [0,100], counts never go negative) and for the
// planner's admissible-heuristic scale table.
type FieldKind int

const (
	KindPercent FieldKind = iota
	KindCount
	KindFloat
	KindBool
	KindString
	KindStringSet
	KindEnum
)

// FieldSpec describes one addressable WorldState field.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// Scale returns the field-specific normalization scale used by the planner's
// heuristic for numeric gte/lte conditions: 100 for percentages, 1 for counts
// and other numeric fields, per spec.md 4.1.
func (k FieldKind) Scale() float64 {
	if k == KindPercent {
		return 100
	}
	return 1
}

// fieldOrder is the fixed field order used by the canonical state hash; it
// must be stable across process runs for the hash to be reproducible.
var fieldOrder = []string{
	"coverage.line", "coverage.branch", "coverage.function", "coverage.target", "coverage.measured",
	"quality.testsPassing", "quality.securityScore", "quality.performanceScore", "quality.technicalDebt",
	"quality.gateStatus", "quality.testsMeasured", "quality.integrationTested", "quality.securityMeasured",
	"quality.performanceMeasured", "quality.complexityMeasured", "quality.gateEvaluated",
	"quality.smokeTestsPassing", "quality.criticalPathTested",
	"fleet.activeAgents", "fleet.availableAgents", "fleet.busyAgents", "fleet.topologyOptimized",
	"resources.timeRemaining", "resources.memoryAvailable", "resources.parallelSlots",
	"context.environment", "context.changeSize", "context.riskLevel", "context.previousFailures",
	"context.impactedFiles", "context.projectId", "context.impactAnalyzed", "context.coverageGapsAnalyzed",
	"context.bddGenerated", "context.requirements",
}

// FieldOrder returns the fixed, stable field ordering used for hashing.
func FieldOrder() []string { return append([]string(nil), fieldOrder...) }

var fieldKinds = map[string]FieldKind{
	"coverage.line": KindPercent, "coverage.branch": KindPercent, "coverage.function": KindPercent,
	"coverage.target": KindPercent, "coverage.measured": KindBool,

	"quality.testsPassing": KindPercent, "quality.securityScore": KindPercent,
	"quality.performanceScore": KindPercent, "quality.technicalDebt": KindFloat,
	"quality.gateStatus": KindEnum, "quality.testsMeasured": KindBool,
	"quality.integrationTested": KindBool, "quality.securityMeasured": KindBool,
	"quality.performanceMeasured": KindBool, "quality.complexityMeasured": KindBool,
	"quality.gateEvaluated": KindBool, "quality.smokeTestsPassing": KindBool,
	"quality.criticalPathTested": KindBool,

	"fleet.activeAgents": KindCount, "fleet.availableAgents": KindStringSet,
	"fleet.busyAgents": KindStringSet, "fleet.topologyOptimized": KindBool,

	"resources.timeRemaining": KindFloat, "resources.memoryAvailable": KindFloat,
	"resources.parallelSlots": KindCount,

	"context.environment": KindEnum, "context.changeSize": KindEnum, "context.riskLevel": KindEnum,
	"context.previousFailures": KindCount, "context.impactedFiles": KindStringSet,
	"context.projectId": KindString, "context.impactAnalyzed": KindBool,
	"context.coverageGapsAnalyzed": KindBool, "context.bddGenerated": KindBool,
	"context.requirements": KindStringSet,
}

// FieldKindOf returns the kind of a known field, or false if unknown.
func FieldKindOf(field string) (FieldKind, bool) {
	k, ok := fieldKinds[field]
	return k, ok
}

// Get reads a field's current value as an interface{}; booleans are bool,
// numeric fields are float64, string fields are string, set fields are
// []string. Returns false for an unknown field name.
func (s WorldState) Get(field string) (interface{}, bool) {
	switch field {
	case "coverage.line":
		return s.Coverage.Line, true
	case "coverage.branch":
		return s.Coverage.Branch, true
	case "coverage.function":
		return s.Coverage.Function, true
	case "coverage.target":
		return s.Coverage.Target, true
	case "coverage.measured":
		return s.Coverage.Measured, true
	case "quality.testsPassing":
		return s.Quality.TestsPassing, true
	case "quality.securityScore":
		return s.Quality.SecurityScore, true
	case "quality.performanceScore":
		return s.Quality.PerformanceScore, true
	case "quality.technicalDebt":
		return s.Quality.TechnicalDebt, true
	case "quality.gateStatus":
		return string(s.Quality.GateStatus), true
	case "quality.testsMeasured":
		return s.Quality.TestsMeasured, true
	case "quality.integrationTested":
		return s.Quality.IntegrationTested, true
	case "quality.securityMeasured":
		return s.Quality.SecurityMeasured, true
	case "quality.performanceMeasured":
		return s.Quality.PerformanceMeasured, true
	case "quality.complexityMeasured":
		return s.Quality.ComplexityMeasured, true
	case "quality.gateEvaluated":
		return s.Quality.GateEvaluated, true
	case "quality.smokeTestsPassing":
		return s.Quality.SmokeTestsPassing, true
	case "quality.criticalPathTested":
		return s.Quality.CriticalPathTested, true
	case "fleet.activeAgents":
		return float64(s.Fleet.ActiveAgents), true
	case "fleet.availableAgents":
		return s.Fleet.AvailableAgents, true
	case "fleet.busyAgents":
		return s.Fleet.BusyAgents, true
	case "fleet.topologyOptimized":
		return s.Fleet.TopologyOptimized, true
	case "resources.timeRemaining":
		return s.Resources.TimeRemainingSeconds, true
	case "resources.memoryAvailable":
		return s.Resources.MemoryAvailableMB, true
	case "resources.parallelSlots":
		return float64(s.Resources.ParallelSlots), true
	case "context.environment":
		return string(s.Context.Environment), true
	case "context.changeSize":
		return string(s.Context.ChangeSize), true
	case "context.riskLevel":
		return string(s.Context.RiskLevel), true
	case "context.previousFailures":
		return float64(s.Context.PreviousFailures), true
	case "context.impactedFiles":
		return s.Context.ImpactedFiles, true
	case "context.projectId":
		return s.Context.ProjectID, true
	case "context.impactAnalyzed":
		return s.Context.ImpactAnalyzed, true
	case "context.coverageGapsAnalyzed":
		return s.Context.CoverageGapsAnalyzed, true
	case "context.bddGenerated":
		return s.Context.BDDGenerated, true
	case "context.requirements":
		return s.Context.Requirements, true
	default:
		return nil, false
	}
}

// Set writes a field's value, clamping numeric fields per their FieldKind
// (percentages to [0,100], counts to >=0). Returns an invalid_input error for
// an unknown field.
func (s *WorldState) Set(field string, value interface{}) error {
	switch field {
	case "coverage.line":
		s.Coverage.Line = clampPercent(toFloat(value))
	case "coverage.branch":
		s.Coverage.Branch = clampPercent(toFloat(value))
	case "coverage.function":
		s.Coverage.Function = clampPercent(toFloat(value))
	case "coverage.target":
		s.Coverage.Target = clampPercent(toFloat(value))
	case "coverage.measured":
		s.Coverage.Measured = toBool(value)
	case "quality.testsPassing":
		s.Quality.TestsPassing = clampPercent(toFloat(value))
	case "quality.securityScore":
		s.Quality.SecurityScore = clampPercent(toFloat(value))
	case "quality.performanceScore":
		s.Quality.PerformanceScore = clampPercent(toFloat(value))
	case "quality.technicalDebt":
		s.Quality.TechnicalDebt = clampNonNegative(toFloat(value))
	case "quality.gateStatus":
		s.Quality.GateStatus = GateStatus(toString(value))
	case "quality.testsMeasured":
		s.Quality.TestsMeasured = toBool(value)
	case "quality.integrationTested":
		s.Quality.IntegrationTested = toBool(value)
	case "quality.securityMeasured":
		s.Quality.SecurityMeasured = toBool(value)
	case "quality.performanceMeasured":
		s.Quality.PerformanceMeasured = toBool(value)
	case "quality.complexityMeasured":
		s.Quality.ComplexityMeasured = toBool(value)
	case "quality.gateEvaluated":
		s.Quality.GateEvaluated = toBool(value)
	case "quality.smokeTestsPassing":
		s.Quality.SmokeTestsPassing = toBool(value)
	case "quality.criticalPathTested":
		s.Quality.CriticalPathTested = toBool(value)
	case "fleet.activeAgents":
		s.Fleet.ActiveAgents = int(clampNonNegative(toFloat(value)))
	case "fleet.availableAgents":
		s.Fleet.AvailableAgents = toStringSlice(value)
	case "fleet.busyAgents":
		s.Fleet.BusyAgents = toStringSlice(value)
	case "fleet.topologyOptimized":
		s.Fleet.TopologyOptimized = toBool(value)
	case "resources.timeRemaining":
		s.Resources.TimeRemainingSeconds = clampNonNegative(toFloat(value))
	case "resources.memoryAvailable":
		s.Resources.MemoryAvailableMB = clampNonNegative(toFloat(value))
	case "resources.parallelSlots":
		s.Resources.ParallelSlots = int(clampNonNegative(toFloat(value)))
	case "context.environment":
		s.Context.Environment = Environment(toString(value))
	case "context.changeSize":
		s.Context.ChangeSize = ChangeSize(toString(value))
	case "context.riskLevel":
		s.Context.RiskLevel = RiskLevel(toString(value))
	case "context.previousFailures":
		s.Context.PreviousFailures = int(clampNonNegative(toFloat(value)))
	case "context.impactedFiles":
		s.Context.ImpactedFiles = toStringSlice(value)
	case "context.projectId":
		s.Context.ProjectID = toString(value)
	case "context.impactAnalyzed":
		s.Context.ImpactAnalyzed = toBool(value)
	case "context.coverageGapsAnalyzed":
		s.Context.CoverageGapsAnalyzed = toBool(value)
	case "context.bddGenerated":
		s.Context.BDDGenerated = toBool(value)
	case "context.requirements":
		s.Context.Requirements = toStringSlice(value)
	default:
		return coreerrors.New("worldstate.Set", coreerrors.KindInvalidInput,
			fmt.Errorf("unknown field %q", field))
	}
	return nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func toBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return false
	}
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toStringSlice(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case string:
		return []string{t}
	default:
		return nil
	}
}
