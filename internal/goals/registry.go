package goals

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/worldstate"
	"gopkg.in/yaml.v3"
)

// Registry holds the process-wide goal catalog, mirroring actions.Registry's
// map + sync.RWMutex + idempotent Register/Get/List shape.
type Registry struct {
	mu    sync.RWMutex
	goals map[string]Goal
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{goals: make(map[string]Goal)}
}

// Register adds or replaces a goal by ID after validating its condition set
// references known fields with compatible operators. Idempotent on ID.
func (r *Registry) Register(g Goal) error {
	for _, c := range g.Conditions {
		if err := c.Validate(); err != nil {
			return coreerrors.New("goals.Registry.Register", coreerrors.KindInvalidInput, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goals[g.ID] = g
	return nil
}

// Get retrieves a goal by ID.
func (r *Registry) Get(id string) (Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.goals[id]
	if !ok {
		return Goal{}, coreerrors.New("goals.Registry.Get", coreerrors.KindNotFound,
			fmt.Errorf("goal not found: %s", id))
	}
	return g, nil
}

// All returns every registered goal, sorted by ID.
func (r *Registry) All() []Goal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Goal, 0, len(r.goals))
	for _, g := range r.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered goals.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.goals)
}

// ============================================================================
// YAML manifest loading, mirroring actions.LoadManifest/RegistryFromManifest.
// ============================================================================

// ManifestGoal is the YAML shape of one goal-manifest entry.
type ManifestGoal struct {
	ID                string                          `yaml:"id"`
	Name              string                          `yaml:"name"`
	Priority          float64                         `yaml:"priority"`
	AllowedCategories []string                         `yaml:"allowedCategories"`
	DeadlineBudget    *float64                         `yaml:"deadlineBudget"`
	Conditions        []actions.ManifestCondition      `yaml:"conditions"`
}

// ManifestConfig is the top-level goals-manifest.yaml structure.
type ManifestConfig struct {
	Version string         `yaml:"version"`
	Goals   []ManifestGoal `yaml:"goals"`
}

// LoadManifest reads and parses a goals manifest YAML file.
func LoadManifest(path string) (*ManifestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.New("goals.LoadManifest", coreerrors.KindInvalidInput, err)
	}
	var manifest ManifestConfig
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, coreerrors.New("goals.LoadManifest", coreerrors.KindInvalidInput, err)
	}
	return &manifest, nil
}

// RegistryFromManifest builds a Registry from a manifest file, falling back
// to the built-in default catalog if loading fails.
func RegistryFromManifest(manifestPath string) *Registry {
	registry := NewRegistry()
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: goals.LoadManifest returned error: %v\n", err)
		DefaultCatalog(registry)
		return registry
	}
	for _, mg := range manifest.Goals {
		g := Goal{
			ID: mg.ID, Name: mg.Name, Priority: mg.Priority, DeadlineBudget: mg.DeadlineBudget,
		}
		for _, cat := range mg.AllowedCategories {
			g.AllowedCategories = append(g.AllowedCategories, actions.Category(cat))
		}
		for _, c := range mg.Conditions {
			g.Conditions = append(g.Conditions, worldstate.Condition{
				Field: c.Field, Operator: worldstate.Operator(c.Operator), Value: c.Value, Set: c.Set,
			})
		}
		if err := registry.Register(g); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping invalid manifest goal %q: %v\n", mg.ID, err)
		}
	}
	return registry
}
