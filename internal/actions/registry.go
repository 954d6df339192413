package actions

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
	"gopkg.in/yaml.v3"
)

// Registry holds the process-wide action catalog. Mirrors the teacher's
// agents.Registry: a map guarded by a RWMutex, idempotent Register, total
// lookups.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds or replaces an action by ID after validating its
// preconditions/effects reference known fields with compatible operators.
// Registration is idempotent on ID: re-registering the same ID overwrites.
func (r *Registry) Register(a Action) error {
	for _, c := range a.Preconditions {
		if err := c.Validate(); err != nil {
			return coreerrors.New("Registry.Register", coreerrors.KindInvalidInput, err)
		}
	}
	for _, e := range a.Effects {
		if err := e.Validate(); err != nil {
			return coreerrors.New("Registry.Register", coreerrors.KindInvalidInput, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.ID] = a
	return nil
}

// Get retrieves an action by ID.
func (r *Registry) Get(id string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return Action{}, coreerrors.New("Registry.Get", coreerrors.KindNotFound,
			fmt.Errorf("action not found: %s", id))
	}
	return a, nil
}

// All returns every registered action, sorted by ID for deterministic
// iteration (the planner's successor expansion relies on this for the
// determinism testable property).
func (r *Registry) All() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered actions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// ByCategory returns all actions of a given category.
func (r *Registry) ByCategory(c Category) []Action {
	return filter(r.All(), func(a Action) bool { return a.Category == c })
}

// ByExecutorType returns all actions requiring a given agent/executor type.
func (r *Registry) ByExecutorType(agentType string) []Action {
	return filter(r.All(), func(a Action) bool { return a.AgentType == agentType })
}

// WithinCostBudget returns all actions whose cost does not exceed budget.
func (r *Registry) WithinCostBudget(budget float64) []Action {
	return filter(r.All(), func(a Action) bool { return a.Cost <= budget })
}

// WithinTimeBudget returns all actions whose duration estimate does not
// exceed the millisecond budget.
func (r *Registry) WithinTimeBudget(ms int64) []Action {
	return filter(r.All(), func(a Action) bool { return a.DurationEstimate.Milliseconds() <= ms })
}

// AtLeastSuccessRate returns all actions whose success rate meets or exceeds minRate.
func (r *Registry) AtLeastSuccessRate(minRate float64) []Action {
	return filter(r.All(), func(a Action) bool { return a.SuccessRate >= minRate })
}

func filter(in []Action, keep func(Action) bool) []Action {
	out := make([]Action, 0, len(in))
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// ============================================================================
// YAML manifest loading, mirroring agents.LoadManifest/RegistryFromManifest.
// ============================================================================

// ManifestAction is the YAML shape of one action-manifest entry.
type ManifestAction struct {
	ID               string                   `yaml:"id"`
	Name             string                   `yaml:"name"`
	AgentType        string                   `yaml:"agentType"`
	Category         string                   `yaml:"category"`
	Cost             float64                  `yaml:"cost"`
	DurationMs       int64                    `yaml:"durationMs"`
	SuccessRate      float64                  `yaml:"successRate"`
	Preconditions    []ManifestCondition      `yaml:"preconditions"`
	Effects          []ManifestEffect         `yaml:"effects"`
}

// ManifestCondition is the YAML shape of one condition.
type ManifestCondition struct {
	Field    string        `yaml:"field"`
	Operator string        `yaml:"operator"`
	Value    interface{}   `yaml:"value"`
	Set      []interface{} `yaml:"set"`
}

// ManifestEffect is the YAML shape of one effect.
type ManifestEffect struct {
	Field     string      `yaml:"field"`
	Operation string      `yaml:"operation"`
	Value     interface{} `yaml:"value"`
}

// ManifestConfig is the top-level actions-manifest.yaml structure.
type ManifestConfig struct {
	Version string           `yaml:"version"`
	Actions []ManifestAction `yaml:"actions"`
}

// LoadManifest reads and parses an actions manifest YAML file.
func LoadManifest(path string) (*ManifestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.New("LoadManifest", coreerrors.KindInvalidInput, err)
	}
	var manifest ManifestConfig
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, coreerrors.New("LoadManifest", coreerrors.KindInvalidInput, err)
	}
	return &manifest, nil
}

// RegistryFromManifest builds a Registry from a manifest file, falling back
// to the built-in default catalog if loading fails, exactly as the teacher's
// agents.DefaultRegistry falls back on manifest errors.
func RegistryFromManifest(manifestPath string) *Registry {
	registry := NewRegistry()
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: actions.LoadManifest returned error: %v\n", err)
		DefaultCatalog(registry)
		return registry
	}
	for _, ma := range manifest.Actions {
		a := Action{
			ID:               ma.ID,
			Name:             ma.Name,
			AgentType:        ma.AgentType,
			Category:         Category(ma.Category),
			Cost:             ma.Cost,
			DurationEstimate: time.Duration(ma.DurationMs) * time.Millisecond,
			SuccessRate:      ma.SuccessRate,
		}
		for _, c := range ma.Preconditions {
			a.Preconditions = append(a.Preconditions, worldstate.Condition{
				Field: c.Field, Operator: worldstate.Operator(c.Operator), Value: c.Value, Set: c.Set,
			})
		}
		for _, e := range ma.Effects {
			a.Effects = append(a.Effects, worldstate.Effect{
				Field: e.Field, Operation: worldstate.EffectOp(e.Operation), Value: e.Value,
			})
		}
		if err := registry.Register(a); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping invalid manifest action %q: %v\n", ma.ID, err)
		}
	}
	return registry
}
