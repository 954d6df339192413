package executor

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// StubExecutor is one registered executor instance: an ID and the executor
// type (action category) it services. It carries no persona, no wire format
// of its own — just enough identity for the world-state builder to snapshot
// it and for Dispatcher.RunAction to simulate running an action against it.
type StubExecutor struct {
	ID   string
	Type string
}

// StubRegistry is an in-process Registry/Dispatcher: a map of registered
// executor instances guarded by a mutex, plus in-flight-dispatch tracking so
// All/ByType can report StatusRunning while RunAction is in flight. Grounded
// on the Register/Get/All/Count registry shape used throughout this module
// (internal/actions.Registry, internal/goals.Registry), generalized here to
// the narrow executor.Registry/Dispatcher contract instead of any specific
// external agent implementation.
type StubRegistry struct {
	mu        sync.RWMutex
	executors map[string]StubExecutor

	runningMu sync.RWMutex
	running   map[string]bool
}

// NewStubRegistry builds an empty registry ready for Register calls.
func NewStubRegistry() *StubRegistry {
	return &StubRegistry{
		executors: make(map[string]StubExecutor),
		running:   make(map[string]bool),
	}
}

// Register adds or replaces one executor instance.
func (s *StubRegistry) Register(id, execType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executors[id] = StubExecutor{ID: id, Type: execType}
}

func (s *StubRegistry) SupportedTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.executors {
		if !seen[e.Type] {
			seen[e.Type] = true
			out = append(out, e.Type)
		}
	}
	sort.Strings(out)
	return out
}

func (s *StubRegistry) All() []Record {
	s.mu.RLock()
	ids := make([]string, 0, len(s.executors))
	types := make(map[string]string, len(s.executors))
	for id, e := range s.executors {
		ids = append(ids, id)
		types[id] = e.Type
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	s.runningMu.RLock()
	defer s.runningMu.RUnlock()
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		status := StatusAvailable
		if s.running[id] {
			status = StatusRunning
		}
		out = append(out, Record{ID: id, Type: types[id], Status: status})
	}
	return out
}

func (s *StubRegistry) ByType(execType string) []Record {
	var out []Record
	for _, r := range s.All() {
		if r.Type == execType {
			out = append(out, r)
		}
	}
	return out
}

// RunAction simulates dispatching actionID to executorID: it marks the
// instance running for the call's duration and returns a deterministic
// effect-delta map describing what ran, standing in for the real executor
// invocation a production dispatcher would perform (out of scope per this
// library's boundary around individual executor implementations).
func (s *StubRegistry) RunAction(executorID, actionID string, inputs map[string]interface{}) (map[string]interface{}, error) {
	s.mu.RLock()
	_, ok := s.executors[executorID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("executor: unknown executor %q", executorID)
	}

	s.runningMu.Lock()
	s.running[executorID] = true
	s.runningMu.Unlock()
	defer func() {
		s.runningMu.Lock()
		delete(s.running, executorID)
		s.runningMu.Unlock()
	}()

	return map[string]interface{}{
		"executorId": executorID,
		"actionId":   actionID,
		"inputs":     inputs,
		"ranAt":      time.Now().Format(time.RFC3339),
		"status":     "completed",
	}, nil
}
