// Package httpapi provides the optional HTTP front door over the planning
// core: POST /plan, POST /workflow, GET /agents, POST /agents/{type}/invoke,
// and GET /health. Grounded on the teacher's Handler shape (registry field,
// json.NewEncoder response writing, log.Printf around request handling)
// generalized from per-codename Copilot chat routes to per-executor-type
// planning routes.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/builder"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/executor"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/goals"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/planner"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/workflow"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
	"github.com/iamthegreatdestroyer/agentic-qe-core/pkg/models"
)

// Handler provides the HTTP handlers for the planning core's external
// interface: registry-backed executor listing and dispatch, plus plan and
// workflow compilation.
type Handler struct {
	planner    *planner.Planner
	catalog    *actions.Registry
	goals      *goals.Registry
	executors  executor.Registry
	dispatcher executor.Dispatcher
}

// NewHandler wires a Handler from the planning core's component registries.
func NewHandler(p *planner.Planner, catalog *actions.Registry, goalCatalog *goals.Registry, execRegistry executor.Registry, dispatcher executor.Dispatcher) *Handler {
	return &Handler{
		planner:    p,
		catalog:    catalog,
		goals:      goalCatalog,
		executors:  execRegistry,
		dispatcher: dispatcher,
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "agentic-qe-core",
	})
}

// ListExecutors handles GET /agents, reporting every known executor
// instance across all registered types.
func (h *Handler) ListExecutors(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.executors.All()); err != nil {
		log.Printf("Error encoding executor list: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Plan handles POST /plan: builds a WorldState from the request's raw
// inputs, resolves and customizes the named goal, and runs A* search.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req models.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	goal, err := h.goals.Get(req.GoalID)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	if req.Customization != nil {
		goal = goal.Apply(customizationFromDTO(*req.Customization))
	}

	state := builder.Build(
		metricsFromDTO(req.Metrics),
		budgetFromDTO(req.Budget),
		contextFromDTO(req.Context),
		h.executors,
		h.catalog,
	)

	constraints := constraintsFromDTO(req.Constraints)

	plan, err := h.planner.Plan(r.Context(), goal.ID, state, goal.Conditions, constraints)
	if err != nil {
		log.Printf("Plan %s failed: %v", req.GoalID, err)
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(planToDTO(*plan)); err != nil {
		log.Printf("Error encoding plan response: %v", err)
	}
}

// Workflow handles POST /workflow: compiles a previously returned plan into
// an execution DAG under the requested scheduling strategy.
func (h *Handler) Workflow(w http.ResponseWriter, r *http.Request) {
	var req models.WorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	seq, err := h.resolveActions(req.Plan.ActionIDs)
	if err != nil {
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	plan := planner.Plan{
		ID:                  req.Plan.ID,
		GoalID:              req.Plan.GoalID,
		Actions:             seq,
		TotalCost:           req.Plan.TotalCost,
		EstimatedDurationMs: req.Plan.EstimatedDurationMs,
	}

	strategy := workflow.Strategy(req.Strategy)
	if strategy == "" {
		strategy = workflow.StrategySequential
	}
	steps := workflow.Compile(plan, strategy)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stepsToDTO(steps)); err != nil {
		log.Printf("Error encoding workflow response: %v", err)
	}
}

// InvokeExecutor handles POST /agents/{type}/invoke: {type} selects the
// candidate pool, the request body names the specific instance and action
// within it.
func (h *Handler) InvokeExecutor(w http.ResponseWriter, r *http.Request) {
	execType := chi.URLParam(r, "type")

	var req models.InvokeExecutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !h.typeKnown(execType) {
		writeError(w, "unknown executor type: "+execType, http.StatusNotFound)
		return
	}

	log.Printf("Invoking executor %s (type %s) with action %s", req.ExecutorID, execType, req.ActionID)

	deltas, err := h.dispatcher.RunAction(req.ExecutorID, req.ActionID, req.Inputs)
	if err != nil {
		log.Printf("Error invoking executor %s: %v", req.ExecutorID, err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(models.InvokeExecutorResponse{EffectDeltas: deltas}); err != nil {
		log.Printf("Error encoding invoke response: %v", err)
	}
}

func (h *Handler) typeKnown(execType string) bool {
	for _, t := range h.executors.SupportedTypes() {
		if t == execType {
			return true
		}
	}
	return false
}

func (h *Handler) resolveActions(ids []string) ([]actions.Action, error) {
	seq := make([]actions.Action, 0, len(ids))
	for _, id := range ids {
		a, err := h.catalog.Get(id)
		if err != nil {
			return nil, err
		}
		seq = append(seq, a)
	}
	return seq, nil
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func planToDTO(p planner.Plan) models.PlanResponse {
	return models.PlanResponse{
		ID:                  p.ID,
		GoalID:              p.GoalID,
		ActionIDs:           p.ActionIDs(),
		TotalCost:           p.TotalCost,
		EstimatedDurationMs: p.EstimatedDurationMs,
		Status:              string(p.Status),
	}
}

func stepsToDTO(steps []workflow.WorkflowStep) []models.WorkflowStepDTO {
	out := make([]models.WorkflowStepDTO, len(steps))
	for i, s := range steps {
		out[i] = models.WorkflowStepDTO{
			ID:                  s.ID,
			Name:                s.Name,
			Type:                string(s.Type),
			DependsOn:           s.DependsOn,
			EstimatedDurationMs: s.EstimatedDurationMs,
			ExecutorType:        s.ExecutorType,
			CanRunParallel:      s.CanRunParallel,
			SourceActionID:      s.SourceActionID,
		}
	}
	return out
}

func metricsFromDTO(d models.QualityMetricsDTO) builder.QualityMetrics {
	return builder.QualityMetrics{
		CoverageLine:     d.CoverageLine,
		CoverageBranch:   d.CoverageBranch,
		CoverageFunction: d.CoverageFunction,
		CoverageTarget:   d.CoverageTarget,
		TestsPassing:     d.TestsPassing,
		TechnicalDebt:    d.TechnicalDebt,
		Security: builder.SecurityFindings{
			Critical: d.SecurityCritical,
			High:     d.SecurityHigh,
			Medium:   d.SecurityMedium,
			Low:      d.SecurityLow,
		},
		Performance: builder.PerformanceSample{
			P95LatencyMs: d.P95LatencyMs,
			ErrorRate:    d.ErrorRate,
		},
	}
}

func budgetFromDTO(d models.ResourceBudgetDTO) builder.ResourceBudget {
	return builder.ResourceBudget{
		TimeRemainingSeconds: d.TimeRemainingSeconds,
		MemoryAvailableMB:    d.MemoryAvailableMB,
		ParallelSlots:        d.ParallelSlots,
	}
}

func contextFromDTO(d models.ChangeContextDTO) builder.ChangeContext {
	return builder.ChangeContext{
		Environment:       worldstate.Environment(d.Environment),
		IsHotfix:          d.IsHotfix,
		ChangedFileCount:  d.ChangedFileCount,
		PreviousFailures:  d.PreviousFailures,
		ImpactedFiles:     d.ImpactedFiles,
		ProjectID:         d.ProjectID,
		Requirements:      d.Requirements,
		ExplicitRiskLevel: worldstate.RiskLevel(d.ExplicitRiskLevel),
	}
}

func customizationFromDTO(d models.CustomizationDTO) goals.Customization {
	return goals.Customization{
		MinCoverageLine:        d.MinCoverageLine,
		MinSecurityScore:       d.MinSecurityScore,
		MinPerformanceScore:    d.MinPerformanceScore,
		MinTestsPassing:        d.MinTestsPassing,
		AdditionalRequirements: d.AdditionalRequirements,
	}
}

func constraintsFromDTO(d *models.ConstraintsDTO) planner.Constraints {
	if d == nil {
		return planner.Constraints{}
	}
	cats := make([]actions.Category, len(d.AllowedCategories))
	for i, c := range d.AllowedCategories {
		cats[i] = actions.Category(c)
	}
	excluded := make(map[string]bool, len(d.ExcludedActions))
	for _, id := range d.ExcludedActions {
		excluded[id] = true
	}
	return planner.Constraints{
		MaxIterations:     d.MaxIterations,
		TimeoutMs:         d.TimeoutMs,
		AllowedCategories: cats,
		ExcludedActions:   excluded,
		MaxPlanLength:     d.MaxPlanLength,
	}
}
