package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
)

// InMemoryRemote is a fake remote Provider for tests and for the zero-config
// default when no real remote backend is configured. It implements the same
// Provider interface as LocalProvider so a HybridProvider can compose either
// one interchangeably, per spec.md 4.5's "optional remote provider" text.
type InMemoryRemote struct {
	mu      sync.RWMutex
	memory  map[string]MemoryEntry
	events  []EventRecord
	chunks  map[string]CodeChunk
	exps    []Experience
	pats    []Pattern
	state   map[string][]byte

	// ForceConflictOn makes every write to a flagged
	// "memory_entries/partition/key" key return a conflict error instead of
	// succeeding, for as long as the flag is set; only memory-entry writes
	// check it. Used for exercising the sync engine's conflict-resolution
	// paths in tests.
	ForceConflictOn map[string]bool
}

// NewInMemoryRemote constructs an empty in-memory remote store.
func NewInMemoryRemote() *InMemoryRemote {
	return &InMemoryRemote{
		memory:          make(map[string]MemoryEntry),
		chunks:          make(map[string]CodeChunk),
		state:           make(map[string][]byte),
		ForceConflictOn: make(map[string]bool),
	}
}

func (r *InMemoryRemote) Initialize(ctx context.Context) error { return nil }
func (r *InMemoryRemote) Shutdown(ctx context.Context) error   { return nil }
func (r *InMemoryRemote) ProviderInfo() ProviderInfo {
	return ProviderInfo{Name: "in-memory-remote", Mode: "remote", Online: true, Version: "1"}
}

func (r *InMemoryRemote) memKey(partition, key string) string { return partition + "/" + key }

func (r *InMemoryRemote) StoreMemoryEntry(ctx context.Context, e MemoryEntry) error {
	k := r.memKey(e.Partition, e.Key)
	if r.ForceConflictOn["memory_entries/"+k] {
		return coreerrors.New("StoreMemoryEntry", coreerrors.KindConflict, fmt.Errorf("forced conflict on %s", k))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory[k] = e
	return nil
}

func (r *InMemoryRemote) StoreMemoryEntries(ctx context.Context, entries []MemoryEntry) error {
	for _, e := range entries {
		if err := r.StoreMemoryEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *InMemoryRemote) GetMemoryEntry(ctx context.Context, key, partition string) (MemoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.memory[r.memKey(partition, key)]
	if !ok {
		return MemoryEntry{}, coreerrors.New("GetMemoryEntry", coreerrors.KindNotFound,
			fmt.Errorf("memory entry not found: %s/%s", partition, key))
	}
	return e, nil
}

func (r *InMemoryRemote) QueryMemoryEntries(ctx context.Context, q MemoryQuery) ([]MemoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var out []MemoryEntry
	for _, e := range r.memory {
		if e.ExpiresAt != nil && e.ExpiresAt.Before(now) {
			continue
		}
		if q.Partition != "" && e.Partition != q.Partition {
			continue
		}
		if q.Owner != "" && e.Owner != q.Owner {
			continue
		}
		if q.AccessLevel != "" && e.AccessLevel != q.AccessLevel {
			continue
		}
		if q.TeamID != "" && e.TeamID != q.TeamID {
			continue
		}
		out = append(out, e)
	}
	sortMemoryEntriesDescending(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *InMemoryRemote) DeleteMemoryEntries(ctx context.Context, keyPattern string, partition string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.memory {
		if partition != "" && e.Partition != partition {
			continue
		}
		if !likeMatch(e.Key, keyPattern) {
			continue
		}
		delete(r.memory, k)
		n++
	}
	return n, nil
}

func (r *InMemoryRemote) StoreEvent(ctx context.Context, e EventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *InMemoryRemote) StoreEvents(ctx context.Context, events []EventRecord) error {
	for _, e := range events {
		if err := r.StoreEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *InMemoryRemote) QueryEvents(ctx context.Context, q EventQuery) ([]EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []EventRecord
	for _, e := range r.events {
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		if q.Source != "" && e.Source != q.Source {
			continue
		}
		if q.Since != nil && e.Timestamp.Before(*q.Since) {
			continue
		}
		out = append(out, e)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *InMemoryRemote) DeleteOldEvents(ctx context.Context, cutoff int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []EventRecord
	n := 0
	for _, e := range r.events {
		if e.Timestamp.UnixMilli() < cutoff {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return n, nil
}

func (r *InMemoryRemote) chunkKey(projectID, id string) string { return projectID + "/" + id }

func (r *InMemoryRemote) StoreCodeChunk(ctx context.Context, c CodeChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks[r.chunkKey(c.ProjectID, c.ID)] = c
	return nil
}

func (r *InMemoryRemote) StoreCodeChunks(ctx context.Context, chunks []CodeChunk) error {
	for _, c := range chunks {
		if err := r.StoreCodeChunk(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *InMemoryRemote) QueryCodeChunks(ctx context.Context, q CodeChunkQuery) ([]CodeChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []CodeChunk
	for _, c := range r.chunks {
		if q.ProjectID != "" && c.ProjectID != q.ProjectID {
			continue
		}
		if q.FilePath != "" && c.FilePath != q.FilePath {
			continue
		}
		if q.Language != "" && c.Language != q.Language {
			continue
		}
		out = append(out, c)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *InMemoryRemote) SearchSimilarCode(ctx context.Context, embedding []float32, opts SimilarCodeOptions) ([]ScoredCodeChunk, error) {
	chunks, err := r.QueryCodeChunks(ctx, CodeChunkQuery{ProjectID: opts.ProjectID})
	if err != nil {
		return nil, err
	}
	var scored []ScoredCodeChunk
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		score := cosineSimilarity(embedding, c.Embedding)
		if score < opts.MinScore {
			continue
		}
		scored = append(scored, ScoredCodeChunk{Chunk: c, Score: score})
	}
	sortScoredDescending(scored)
	if opts.TopK > 0 && len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}
	return scored, nil
}

func (r *InMemoryRemote) DeleteCodeChunksForFile(ctx context.Context, projectID, filePath string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, c := range r.chunks {
		if c.ProjectID == projectID && c.FilePath == filePath {
			delete(r.chunks, k)
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRemote) DeleteCodeChunksForProject(ctx context.Context, projectID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, c := range r.chunks {
		if c.ProjectID == projectID {
			delete(r.chunks, k)
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRemote) StoreExperience(ctx context.Context, e Experience) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exps = append(r.exps, e)
	return nil
}

func (r *InMemoryRemote) QueryExperiences(ctx context.Context, q ExperienceQuery) ([]Experience, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Experience
	for _, e := range r.exps {
		if q.AgentID != "" && e.AgentID != q.AgentID {
			continue
		}
		out = append(out, e)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *InMemoryRemote) StorePattern(ctx context.Context, p Pattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pats = append(r.pats, p)
	return nil
}

func (r *InMemoryRemote) QueryPatterns(ctx context.Context, q PatternQuery) ([]Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Pattern
	for _, p := range r.pats {
		if p.Confidence < q.MinConfidence {
			continue
		}
		out = append(out, p)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *InMemoryRemote) SaveState(ctx context.Context, agentID string, state []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[agentID] = state
	return nil
}

func (r *InMemoryRemote) LoadState(ctx context.Context, agentID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.state[agentID]
	if !ok {
		return nil, coreerrors.New("LoadState", coreerrors.KindNotFound, fmt.Errorf("no state for agent %s", agentID))
	}
	return s, nil
}

func (r *InMemoryRemote) DeleteState(ctx context.Context, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, agentID)
	return nil
}

func (r *InMemoryRemote) ListAgentsWithState(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.state))
	for id := range r.state {
		out = append(out, id)
	}
	return out, nil
}

func likeMatch(s, pattern string) bool {
	prefix := pattern
	wildcard := false
	if len(pattern) > 0 && pattern[len(pattern)-1] == '%' {
		prefix = pattern[:len(pattern)-1]
		wildcard = true
	}
	if wildcard {
		return len(s) >= len(prefix) && s[:len(prefix)] == prefix
	}
	return s == pattern
}

func sortMemoryEntriesDescending(entries []MemoryEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
}
