package builder

import (
	"testing"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/executor"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityScoreFormula(t *testing.T) {
	score := securityScore(SecurityFindings{Critical: 1, High: 1, Medium: 2, Low: 5})
	assert.Equal(t, 100.0-25-15-10-5, score)
}

func TestSecurityScoreClampsAtZero(t *testing.T) {
	score := securityScore(SecurityFindings{Critical: 10})
	assert.Equal(t, 0.0, score)
}

func TestPerformanceScoreFormula(t *testing.T) {
	score := performanceScore(PerformanceSample{P95LatencyMs: 300, ErrorRate: 2.0})
	// (300-200)/20 = 5; 10*2.0 = 20
	assert.InDelta(t, 100-5-20, score, 0.001)
}

func TestChangeSizeInference(t *testing.T) {
	assert.Equal(t, worldstate.ChangeSmall, inferChangeSize(3))
	assert.Equal(t, worldstate.ChangeMedium, inferChangeSize(15))
	assert.Equal(t, worldstate.ChangeLarge, inferChangeSize(50))
}

func TestRiskLevelInference(t *testing.T) {
	assert.Equal(t, worldstate.RiskCritical, inferRiskLevel(ChangeContext{
		Environment: worldstate.EnvProduction, IsHotfix: true,
	}, worldstate.ChangeSmall))
	assert.Equal(t, worldstate.RiskHigh, inferRiskLevel(ChangeContext{
		Environment: worldstate.EnvProduction,
	}, worldstate.ChangeSmall))
	assert.Equal(t, worldstate.RiskHigh, inferRiskLevel(ChangeContext{
		Environment: worldstate.EnvStaging,
	}, worldstate.ChangeLarge))
	assert.Equal(t, worldstate.RiskHigh, inferRiskLevel(ChangeContext{PreviousFailures: 3}, worldstate.ChangeSmall))
	assert.Equal(t, worldstate.RiskMedium, inferRiskLevel(ChangeContext{PreviousFailures: 1}, worldstate.ChangeSmall))
	assert.Equal(t, worldstate.RiskMedium, inferRiskLevel(ChangeContext{}, worldstate.ChangeLarge))
	assert.Equal(t, worldstate.RiskLow, inferRiskLevel(ChangeContext{}, worldstate.ChangeSmall))
	assert.Equal(t, worldstate.RiskLow, inferRiskLevel(ChangeContext{ExplicitRiskLevel: worldstate.RiskLow}, worldstate.ChangeLarge))
}

func TestBuildAllMeasurementFlagsStartFalse(t *testing.T) {
	state := Build(QualityMetrics{}, ResourceBudget{}, ChangeContext{}, nil, nil)
	assert.False(t, state.Coverage.Measured)
	assert.False(t, state.Quality.TestsMeasured)
	assert.False(t, state.Quality.SecurityMeasured)
	assert.False(t, state.Quality.PerformanceMeasured)
}

func TestBuildFleetFallsBackToCatalogAgentTypesWithoutRegistry(t *testing.T) {
	catalog := actions.NewRegistry()
	actions.DefaultCatalog(catalog)
	state := Build(QualityMetrics{}, ResourceBudget{}, ChangeContext{}, nil, catalog)
	assert.NotEmpty(t, state.Fleet.AvailableAgents)
}

func TestBuildFleetPrefersIdleExecutors(t *testing.T) {
	reg := executor.NewMemoryRegistry([]executor.Record{
		{ID: "e1", Type: "test-runner", Status: executor.StatusIdle},
		{ID: "e2", Type: "security-scanner", Status: executor.StatusBusy},
	})
	state := Build(QualityMetrics{}, ResourceBudget{}, ChangeContext{}, reg, nil)
	assert.Equal(t, []string{"e1"}, state.Fleet.AvailableAgents)
	assert.Equal(t, []string{"e2"}, state.Fleet.BusyAgents)
	assert.Equal(t, 2, state.Fleet.ActiveAgents)
}

func TestBuildFleetSpawnableTypesWhenNoneIdle(t *testing.T) {
	reg := executor.NewMemoryRegistry([]executor.Record{
		{ID: "e1", Type: "test-runner", Status: executor.StatusBusy},
	})
	catalog := actions.NewRegistry()
	actions.DefaultCatalog(catalog)
	state := Build(QualityMetrics{}, ResourceBudget{}, ChangeContext{}, reg, catalog)
	require.NotEmpty(t, state.Fleet.AvailableAgents)
	assert.Contains(t, state.Fleet.AvailableAgents, "test-runner")
}
