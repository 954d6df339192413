// Package executor defines the narrow external-executor dispatch contract:
// a registry of executors the world-state builder snapshots into fleet
// state, and a dispatch interface the workflow runner calls against.
// Deliberately narrow: what a concrete executor does internally (a human
// reviewer, a CI job, an external agent process) is outside this package's
// concern, by design.
package executor

// Status is an executor's current availability.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusBusy      Status = "busy"
	StatusAvailable Status = "available"
	StatusRunning   Status = "running"
)

// Record describes one executor instance known to the fleet.
type Record struct {
	ID     string
	Type   string
	Status Status
}

// Registry is the narrow read interface the world-state builder consumes.
// Concrete implementations (MemoryRegistry, StubRegistry, or an adapter over
// a real external fleet) satisfy this without the builder depending on
// their internals.
type Registry interface {
	// SupportedTypes returns every executor type this registry can provide,
	// whether or not an instance is currently running.
	SupportedTypes() []string
	// All returns every known executor instance.
	All() []Record
	// ByType returns every known instance of the given executor type.
	ByType(execType string) []Record
}

// Dispatcher is the narrow invocation contract: run one action against a
// concrete executor and report the resulting effect deltas.
type Dispatcher interface {
	RunAction(executorID, actionID string, inputs map[string]interface{}) (effectDeltas map[string]interface{}, err error)
}
