package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/corelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestProvider(t *testing.T) *LocalProvider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := OpenLocal(path, corelog.Nop())
	require.NoError(t, err)
	require.NoError(t, p.Initialize(context.Background()))
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestStoreAndGetMemoryEntry(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()

	entry := MemoryEntry{
		Key: "k1", Partition: "ns1", Value: []byte("hello"),
		Owner: "agent-1", AccessLevel: AccessPrivate, CreatedAt: time.Now(),
	}
	require.NoError(t, p.StoreMemoryEntry(ctx, entry))

	got, err := p.GetMemoryEntry(ctx, "k1", "ns1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Value)
	assert.Equal(t, "agent-1", got.Owner)
}

func TestGetMemoryEntryNotFound(t *testing.T) {
	p := openTestProvider(t)
	_, err := p.GetMemoryEntry(context.Background(), "missing", "ns1")
	kind, ok := coreerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.KindNotFound, kind)
}

func TestQueryMemoryEntriesExcludesExpired(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	require.NoError(t, p.StoreMemoryEntries(ctx, []MemoryEntry{
		{Key: "live", Partition: "ns", Value: []byte("a"), CreatedAt: time.Now()},
		{Key: "dead", Partition: "ns", Value: []byte("b"), CreatedAt: time.Now(), ExpiresAt: &past},
	}))

	entries, err := p.QueryMemoryEntries(ctx, MemoryQuery{Partition: "ns"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "live", entries[0].Key)
}

func TestDeleteMemoryEntriesByPattern(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()
	require.NoError(t, p.StoreMemoryEntries(ctx, []MemoryEntry{
		{Key: "plan.1", Partition: "ns", Value: []byte("a"), CreatedAt: time.Now()},
		{Key: "plan.2", Partition: "ns", Value: []byte("a"), CreatedAt: time.Now()},
		{Key: "other", Partition: "ns", Value: []byte("a"), CreatedAt: time.Now()},
	}))

	n, err := p.DeleteMemoryEntries(ctx, "plan.%", "ns")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := p.QueryMemoryEntries(ctx, MemoryQuery{Partition: "ns"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "other", remaining[0].Key)
}

func TestStoreAndQueryEvents(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, p.StoreEvents(ctx, []EventRecord{
		{Type: "plan.created", Payload: []byte("{}"), Source: "planner", Timestamp: now},
		{Type: "plan.failed", Payload: []byte("{}"), Source: "planner", Timestamp: now.Add(time.Second)},
	}))

	events, err := p.QueryEvents(ctx, EventQuery{Type: "plan.created"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "plan.created", events[0].Type)
}

func TestDeleteOldEvents(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()
	old := time.Now().Add(-24 * time.Hour)
	require.NoError(t, p.StoreEvent(ctx, EventRecord{Type: "stale", Payload: []byte("{}"), Timestamp: old}))
	require.NoError(t, p.StoreEvent(ctx, EventRecord{Type: "fresh", Payload: []byte("{}"), Timestamp: time.Now()}))

	n, err := p.DeleteOldEvents(ctx, time.Now().Add(-time.Hour).UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreAndSearchSimilarCode(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.StoreCodeChunks(ctx, []CodeChunk{
		{ProjectID: "proj", FilePath: "a.go", Content: "func A(){}", Embedding: []float32{1, 0, 0}},
		{ProjectID: "proj", FilePath: "b.go", Content: "func B(){}", Embedding: []float32{0, 1, 0}},
	}))

	results, err := p.SearchSimilarCode(ctx, []float32{1, 0, 0}, SimilarCodeOptions{ProjectID: "proj", TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].Chunk.FilePath)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestDeleteCodeChunksForFile(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()
	require.NoError(t, p.StoreCodeChunks(ctx, []CodeChunk{
		{ProjectID: "proj", FilePath: "a.go", Content: "x"},
		{ProjectID: "proj", FilePath: "b.go", Content: "y"},
	}))

	n, err := p.DeleteCodeChunksForFile(ctx, "proj", "a.go")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := p.QueryCodeChunks(ctx, CodeChunkQuery{ProjectID: "proj"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b.go", remaining[0].FilePath)
}

func TestStoreAndQueryExperiencesAndPatterns(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.StoreExperience(ctx, Experience{
		AgentID: "agent-1", Action: "run-tests", Outcome: "pass", Reward: 1.0, CreatedAt: time.Now(),
	}))
	experiences, err := p.QueryExperiences(ctx, ExperienceQuery{AgentID: "agent-1"})
	require.NoError(t, err)
	require.Len(t, experiences, 1)
	assert.Equal(t, "run-tests", experiences[0].Action)

	require.NoError(t, p.StorePattern(ctx, Pattern{
		Description: "flaky test retried then passed", Support: 5, Confidence: 0.8, CreatedAt: time.Now(),
	}))
	patterns, err := p.QueryPatterns(ctx, PatternQuery{MinConfidence: 0.5})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
}

func TestSaveLoadDeleteState(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.SaveState(ctx, "agent-1", []byte("state-blob")))
	got, err := p.LoadState(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("state-blob"), got)

	agents, err := p.ListAgentsWithState(ctx)
	require.NoError(t, err)
	assert.Contains(t, agents, "agent-1")

	require.NoError(t, p.DeleteState(ctx, "agent-1"))
	_, err = p.LoadState(ctx, "agent-1")
	kind, ok := coreerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coreerrors.KindNotFound, kind)
}

func TestProviderInfoReportsLocalMode(t *testing.T) {
	p := openTestProvider(t)
	info := p.ProviderInfo()
	assert.Equal(t, "local", info.Mode)
	assert.True(t, info.Online)
}
