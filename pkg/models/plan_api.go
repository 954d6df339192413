package models

// PlanRequest is the wire shape of POST /plan: a goal ID plus the raw inputs
// the world-state builder composes into a worldstate.WorldState, and the
// customization/constraints the planner honors for this call.
type PlanRequest struct {
	GoalID string `json:"goalId"`

	Metrics QualityMetricsDTO `json:"metrics"`
	Budget  ResourceBudgetDTO `json:"budget"`
	Context ChangeContextDTO  `json:"context"`

	Customization *CustomizationDTO `json:"customization,omitempty"`
	Constraints   *ConstraintsDTO   `json:"constraints,omitempty"`
}

// QualityMetricsDTO mirrors internal/builder.QualityMetrics for JSON transport.
type QualityMetricsDTO struct {
	CoverageLine     float64 `json:"coverageLine"`
	CoverageBranch   float64 `json:"coverageBranch"`
	CoverageFunction float64 `json:"coverageFunction"`
	CoverageTarget   float64 `json:"coverageTarget"`
	TestsPassing     float64 `json:"testsPassing"`
	TechnicalDebt    float64 `json:"technicalDebt"`

	SecurityCritical int `json:"securityCritical"`
	SecurityHigh     int `json:"securityHigh"`
	SecurityMedium   int `json:"securityMedium"`
	SecurityLow      int `json:"securityLow"`

	P95LatencyMs float64 `json:"p95LatencyMs"`
	ErrorRate    float64 `json:"errorRate"`
}

// ResourceBudgetDTO mirrors internal/builder.ResourceBudget.
type ResourceBudgetDTO struct {
	TimeRemainingSeconds float64 `json:"timeRemainingSeconds"`
	MemoryAvailableMB    float64 `json:"memoryAvailableMb"`
	ParallelSlots        int     `json:"parallelSlots"`
}

// ChangeContextDTO mirrors internal/builder.ChangeContext.
type ChangeContextDTO struct {
	Environment       string   `json:"environment"`
	IsHotfix          bool     `json:"isHotfix"`
	ChangedFileCount  int      `json:"changedFileCount"`
	PreviousFailures  int      `json:"previousFailures"`
	ImpactedFiles     []string `json:"impactedFiles,omitempty"`
	ProjectID         string   `json:"projectId,omitempty"`
	Requirements      []string `json:"requirements,omitempty"`
	ExplicitRiskLevel string   `json:"explicitRiskLevel,omitempty"`
}

// CustomizationDTO mirrors internal/goals.Customization.
type CustomizationDTO struct {
	MinCoverageLine        *float64 `json:"minCoverageLine,omitempty"`
	MinSecurityScore       *float64 `json:"minSecurityScore,omitempty"`
	MinPerformanceScore    *float64 `json:"minPerformanceScore,omitempty"`
	MinTestsPassing        *float64 `json:"minTestsPassing,omitempty"`
	AdditionalRequirements []string `json:"additionalRequirements,omitempty"`
}

// ConstraintsDTO mirrors internal/planner.Constraints.
type ConstraintsDTO struct {
	MaxIterations     int      `json:"maxIterations,omitempty"`
	TimeoutMs         int64    `json:"timeoutMs,omitempty"`
	AllowedCategories []string `json:"allowedCategories,omitempty"`
	ExcludedActions   []string `json:"excludedActions,omitempty"`
	MaxPlanLength     int      `json:"maxPlanLength,omitempty"`
}

// PlanResponse is the wire shape of a successful POST /plan response.
type PlanResponse struct {
	ID                  string   `json:"id"`
	GoalID              string   `json:"goalId"`
	ActionIDs           []string `json:"actionIds"`
	TotalCost           float64  `json:"totalCost"`
	EstimatedDurationMs int64    `json:"estimatedDurationMs"`
	Status              string   `json:"status"`
}

// WorkflowRequest is the wire shape of POST /workflow: a plan (as returned by
// POST /plan, re-submitted verbatim) plus the compilation strategy.
type WorkflowRequest struct {
	Plan     PlanResponse `json:"plan"`
	Strategy string       `json:"strategy"`
}

// WorkflowStepDTO is one compiled step of a POST /workflow response.
type WorkflowStepDTO struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Type                string   `json:"type"`
	DependsOn           []string `json:"dependsOn,omitempty"`
	EstimatedDurationMs int64    `json:"estimatedDurationMs"`
	ExecutorType        string   `json:"executorType"`
	CanRunParallel      bool     `json:"canRunParallel"`
	SourceActionID      string   `json:"sourceActionId"`
}

// InvokeExecutorRequest is the wire shape of POST /agents/{type}/invoke.
type InvokeExecutorRequest struct {
	ExecutorID string                 `json:"executorId"`
	ActionID   string                 `json:"actionId"`
	Inputs     map[string]interface{} `json:"inputs,omitempty"`
}

// InvokeExecutorResponse is the wire shape of a successful invoke response.
type InvokeExecutorResponse struct {
	EffectDeltas map[string]interface{} `json:"effectDeltas"`
}
