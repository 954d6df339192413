package persistence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/corelog"
	syncengine "github.com/iamthegreatdestroyer/agentic-qe-core/internal/sync"
)

// Table name constants used both as sync_queue.table_name values and as the
// dispatch key in remoteApplierAdapter.Apply.
const (
	tableMemoryEntries = "memory_entries"
	tableEvents        = "events"
	tableCodeChunks    = "code_chunks"
	tableExperiences   = "experiences"
	tablePatterns      = "patterns"
	tableAgentState    = "agent_state"
)

// HybridProvider composes a local and a remote Provider: writes land on the
// local store first and are then enqueued for background remote sync. Reads
// of memory entries, events and agent state go to the remote whenever the
// engine is online, falling back to local on any remote error, on an empty
// remote query result, or while offline; the local store is not consulted
// first. Code-chunk, experience, pattern and agent-list reads are local only.
// Grounded on spec.md 4.5's hybrid-provider paragraph.
type HybridProvider struct {
	local  *LocalProvider
	remote Provider
	engine *syncengine.Engine
	log    corelog.Logger
}

// NewHybrid wires a local store, a remote store, and a sync engine with the
// given conflict strategy into one Provider.
func NewHybrid(local *LocalProvider, remote Provider, cfg syncengine.Config, log corelog.Logger) *HybridProvider {
	if log == nil {
		log = corelog.Nop()
	}
	h := &HybridProvider{local: local, remote: remote, log: log}
	h.engine = syncengine.New(&remoteApplierAdapter{remote: remote}, cfg, log)
	return h
}

// SetOnlineStatus toggles the underlying sync engine's online/offline mode.
func (h *HybridProvider) SetOnlineStatus(online bool) { h.engine.SetOnlineStatus(online) }

func (h *HybridProvider) Initialize(ctx context.Context) error {
	if err := h.local.Initialize(ctx); err != nil {
		return err
	}
	return h.remote.Initialize(ctx)
}

func (h *HybridProvider) Shutdown(ctx context.Context) error {
	if err := h.engine.Shutdown(ctx); err != nil {
		h.log.Error("sync engine shutdown reported an error", "err", err)
	}
	if err := h.local.Shutdown(ctx); err != nil {
		return err
	}
	return h.remote.Shutdown(ctx)
}

func (h *HybridProvider) ProviderInfo() ProviderInfo {
	info := h.local.ProviderInfo()
	info.Mode = "hybrid"
	info.Online = h.engine.Online()
	return info
}

// --- Memory ---

func (h *HybridProvider) StoreMemoryEntry(ctx context.Context, e MemoryEntry) error {
	if err := h.local.StoreMemoryEntry(ctx, e); err != nil {
		return err
	}
	h.enqueue(tableMemoryEntries, e.Partition+"/"+e.Key, e)
	return nil
}

func (h *HybridProvider) StoreMemoryEntries(ctx context.Context, entries []MemoryEntry) error {
	if err := h.local.StoreMemoryEntries(ctx, entries); err != nil {
		return err
	}
	for _, e := range entries {
		h.enqueue(tableMemoryEntries, e.Partition+"/"+e.Key, e)
	}
	return nil
}

func (h *HybridProvider) GetMemoryEntry(ctx context.Context, key, partition string) (MemoryEntry, error) {
	if h.engine.Online() {
		if e, err := h.remote.GetMemoryEntry(ctx, key, partition); err == nil {
			return e, nil
		}
	}
	return h.local.GetMemoryEntry(ctx, key, partition)
}

func (h *HybridProvider) QueryMemoryEntries(ctx context.Context, q MemoryQuery) ([]MemoryEntry, error) {
	if h.engine.Online() {
		if out, err := h.remote.QueryMemoryEntries(ctx, q); err == nil && len(out) > 0 {
			return out, nil
		}
	}
	return h.local.QueryMemoryEntries(ctx, q)
}

func (h *HybridProvider) DeleteMemoryEntries(ctx context.Context, keyPattern string, partition string) (int, error) {
	n, err := h.local.DeleteMemoryEntries(ctx, keyPattern, partition)
	if err != nil {
		return n, err
	}
	h.enqueueDelete(tableMemoryEntries, partition+"/"+keyPattern)
	return n, nil
}

// --- Events ---

func (h *HybridProvider) StoreEvent(ctx context.Context, e EventRecord) error {
	if err := h.local.StoreEvent(ctx, e); err != nil {
		return err
	}
	h.enqueue(tableEvents, e.ID, e)
	return nil
}

func (h *HybridProvider) StoreEvents(ctx context.Context, events []EventRecord) error {
	if err := h.local.StoreEvents(ctx, events); err != nil {
		return err
	}
	for _, e := range events {
		h.enqueue(tableEvents, e.ID, e)
	}
	return nil
}

func (h *HybridProvider) QueryEvents(ctx context.Context, q EventQuery) ([]EventRecord, error) {
	if h.engine.Online() {
		if out, err := h.remote.QueryEvents(ctx, q); err == nil && len(out) > 0 {
			return out, nil
		}
	}
	return h.local.QueryEvents(ctx, q)
}

func (h *HybridProvider) DeleteOldEvents(ctx context.Context, cutoff int64) (int, error) {
	return h.local.DeleteOldEvents(ctx, cutoff)
}

// --- Code chunks ---

func (h *HybridProvider) StoreCodeChunk(ctx context.Context, c CodeChunk) error {
	if err := h.local.StoreCodeChunk(ctx, c); err != nil {
		return err
	}
	h.enqueue(tableCodeChunks, c.ID, c)
	return nil
}

func (h *HybridProvider) StoreCodeChunks(ctx context.Context, chunks []CodeChunk) error {
	if err := h.local.StoreCodeChunks(ctx, chunks); err != nil {
		return err
	}
	for _, c := range chunks {
		h.enqueue(tableCodeChunks, c.ID, c)
	}
	return nil
}

func (h *HybridProvider) QueryCodeChunks(ctx context.Context, q CodeChunkQuery) ([]CodeChunk, error) {
	return h.local.QueryCodeChunks(ctx, q)
}

func (h *HybridProvider) SearchSimilarCode(ctx context.Context, embedding []float32, opts SimilarCodeOptions) ([]ScoredCodeChunk, error) {
	return h.local.SearchSimilarCode(ctx, embedding, opts)
}

func (h *HybridProvider) DeleteCodeChunksForFile(ctx context.Context, projectID, filePath string) (int, error) {
	return h.local.DeleteCodeChunksForFile(ctx, projectID, filePath)
}

func (h *HybridProvider) DeleteCodeChunksForProject(ctx context.Context, projectID string) (int, error) {
	return h.local.DeleteCodeChunksForProject(ctx, projectID)
}

// --- Experiences and patterns ---

func (h *HybridProvider) StoreExperience(ctx context.Context, e Experience) error {
	if err := h.local.StoreExperience(ctx, e); err != nil {
		return err
	}
	h.enqueue(tableExperiences, e.ID, e)
	return nil
}

func (h *HybridProvider) QueryExperiences(ctx context.Context, q ExperienceQuery) ([]Experience, error) {
	return h.local.QueryExperiences(ctx, q)
}

func (h *HybridProvider) StorePattern(ctx context.Context, p Pattern) error {
	if err := h.local.StorePattern(ctx, p); err != nil {
		return err
	}
	h.enqueue(tablePatterns, p.ID, p)
	return nil
}

func (h *HybridProvider) QueryPatterns(ctx context.Context, q PatternQuery) ([]Pattern, error) {
	return h.local.QueryPatterns(ctx, q)
}

// --- Nervous-system state ---

func (h *HybridProvider) SaveState(ctx context.Context, agentID string, state []byte) error {
	if err := h.local.SaveState(ctx, agentID, state); err != nil {
		return err
	}
	h.engine.Enqueue(syncengine.SyncOp{OpType: syncengine.OpUpdate, Table: tableAgentState, RecordID: agentID, Payload: state})
	return nil
}

func (h *HybridProvider) LoadState(ctx context.Context, agentID string) ([]byte, error) {
	if h.engine.Online() {
		if s, err := h.remote.LoadState(ctx, agentID); err == nil {
			return s, nil
		}
	}
	return h.local.LoadState(ctx, agentID)
}

func (h *HybridProvider) DeleteState(ctx context.Context, agentID string) error {
	return h.local.DeleteState(ctx, agentID)
}

func (h *HybridProvider) ListAgentsWithState(ctx context.Context) ([]string, error) {
	return h.local.ListAgentsWithState(ctx)
}

// enqueue marshals v and queues an upsert for the given table/recordID.
func (h *HybridProvider) enqueue(table, recordID string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to marshal sync payload", "table", table, "recordId", recordID, "err", err)
		return
	}
	h.engine.Enqueue(syncengine.SyncOp{
		OpType: syncengine.OpInsert, Table: table, RecordID: recordID, Payload: payload,
		UpdatedAt: time.Now(),
	})
}

func (h *HybridProvider) enqueueDelete(table, recordID string) {
	h.engine.Enqueue(syncengine.SyncOp{OpType: syncengine.OpDelete, Table: table, RecordID: recordID})
}

// remoteApplierAdapter satisfies syncengine.RemoteApplier by dispatching a
// generic SyncOp to the concrete Provider method for its table.
type remoteApplierAdapter struct {
	remote Provider
}

func (a *remoteApplierAdapter) Apply(ctx context.Context, op syncengine.SyncOp) error {
	if op.OpType == syncengine.OpDelete {
		return a.applyDelete(ctx, op)
	}
	switch op.Table {
	case tableMemoryEntries:
		var e MemoryEntry
		if err := json.Unmarshal(op.Payload, &e); err != nil {
			return coreerrors.New("Apply", coreerrors.KindInvalidInput, err)
		}
		return a.remote.StoreMemoryEntry(ctx, e)
	case tableEvents:
		var e EventRecord
		if err := json.Unmarshal(op.Payload, &e); err != nil {
			return coreerrors.New("Apply", coreerrors.KindInvalidInput, err)
		}
		return a.remote.StoreEvent(ctx, e)
	case tableCodeChunks:
		var c CodeChunk
		if err := json.Unmarshal(op.Payload, &c); err != nil {
			return coreerrors.New("Apply", coreerrors.KindInvalidInput, err)
		}
		return a.remote.StoreCodeChunk(ctx, c)
	case tableExperiences:
		var e Experience
		if err := json.Unmarshal(op.Payload, &e); err != nil {
			return coreerrors.New("Apply", coreerrors.KindInvalidInput, err)
		}
		return a.remote.StoreExperience(ctx, e)
	case tablePatterns:
		var p Pattern
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return coreerrors.New("Apply", coreerrors.KindInvalidInput, err)
		}
		return a.remote.StorePattern(ctx, p)
	case tableAgentState:
		return a.remote.SaveState(ctx, op.RecordID, op.Payload)
	default:
		return coreerrors.New("Apply", coreerrors.KindInvalidInput,
			errUnknownTable(op.Table))
	}
}

// RemoteUpdatedAt reports the remote's current MemoryEntry.CreatedAt for op's
// record, the only table in this narrow Provider surface that exposes both a
// single-record read and a timestamp field. Other tables have no by-ID get
// in Provider, so found is always false for them and StrategyNewest defers
// to applying the local write.
func (a *remoteApplierAdapter) RemoteUpdatedAt(ctx context.Context, op syncengine.SyncOp) (time.Time, bool, error) {
	if op.Table != tableMemoryEntries {
		return time.Time{}, false, nil
	}
	partition, key, ok := splitRecordID(op.RecordID)
	if !ok {
		return time.Time{}, false, nil
	}
	e, err := a.remote.GetMemoryEntry(ctx, key, partition)
	if err != nil {
		if kind, isErr := coreerrors.KindOf(err); isErr && kind == coreerrors.KindNotFound {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return e.CreatedAt, true, nil
}

func splitRecordID(recordID string) (partition, key string, ok bool) {
	idx := strings.Index(recordID, "/")
	if idx < 0 {
		return "", "", false
	}
	return recordID[:idx], recordID[idx+1:], true
}

func (a *remoteApplierAdapter) applyDelete(ctx context.Context, op syncengine.SyncOp) error {
	switch op.Table {
	case tableMemoryEntries:
		partition, keyPattern, ok := splitRecordID(op.RecordID)
		if !ok {
			return nil
		}
		_, err := a.remote.DeleteMemoryEntries(ctx, keyPattern, partition)
		return err
	case tableAgentState:
		return a.remote.DeleteState(ctx, op.RecordID)
	default:
		return nil
	}
}

type unknownTableError string

func (e unknownTableError) Error() string { return "persistence: unknown sync table: " + string(e) }

func errUnknownTable(table string) error { return unknownTableError(table) }
