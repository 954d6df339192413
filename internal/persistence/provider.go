package persistence

import "context"

// Provider is the single interface every concrete store (local, remote,
// hybrid) satisfies, covering every operation family spec.md 4.5 names.
type Provider interface {
	// Memory
	StoreMemoryEntry(ctx context.Context, e MemoryEntry) error
	StoreMemoryEntries(ctx context.Context, entries []MemoryEntry) error
	GetMemoryEntry(ctx context.Context, key, partition string) (MemoryEntry, error)
	QueryMemoryEntries(ctx context.Context, q MemoryQuery) ([]MemoryEntry, error)
	DeleteMemoryEntries(ctx context.Context, keyPattern string, partition string) (int, error)

	// Events
	StoreEvent(ctx context.Context, e EventRecord) error
	StoreEvents(ctx context.Context, events []EventRecord) error
	QueryEvents(ctx context.Context, q EventQuery) ([]EventRecord, error)
	DeleteOldEvents(ctx context.Context, cutoff int64) (int, error)

	// Code chunks
	StoreCodeChunk(ctx context.Context, c CodeChunk) error
	StoreCodeChunks(ctx context.Context, chunks []CodeChunk) error
	QueryCodeChunks(ctx context.Context, q CodeChunkQuery) ([]CodeChunk, error)
	SearchSimilarCode(ctx context.Context, embedding []float32, opts SimilarCodeOptions) ([]ScoredCodeChunk, error)
	DeleteCodeChunksForFile(ctx context.Context, projectID, filePath string) (int, error)
	DeleteCodeChunksForProject(ctx context.Context, projectID string) (int, error)

	// Experiences and patterns
	StoreExperience(ctx context.Context, e Experience) error
	QueryExperiences(ctx context.Context, q ExperienceQuery) ([]Experience, error)
	StorePattern(ctx context.Context, p Pattern) error
	QueryPatterns(ctx context.Context, q PatternQuery) ([]Pattern, error)

	// Nervous-system state: opaque per-agent blobs.
	SaveState(ctx context.Context, agentID string, state []byte) error
	LoadState(ctx context.Context, agentID string) ([]byte, error)
	DeleteState(ctx context.Context, agentID string) error
	ListAgentsWithState(ctx context.Context) ([]string, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	ProviderInfo() ProviderInfo
}
