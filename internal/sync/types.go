// Package sync implements the Sync Engine (C8): a coalescing mutation queue
// that debounces background flushes to a remote store, resolves conflicts
// per a configured strategy, retries transient failures with linear backoff,
// and tracks online/offline transitions. Grounded on the teacher's
// internal/memory.MemoryConsolidator background-worker shape
// (stopChan/doneChan + time.Ticker run loop) generalized from periodic
// consolidation to debounced mutation draining.
package sync

import (
	"context"
	"time"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
)

// OpType identifies the kind of mutation a SyncOp represents.
type OpType string

const (
	OpInsert OpType = "insert"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// SyncOp is a queued mutation awaiting remote application.
type SyncOp struct {
	ID         string
	OpType     OpType
	Table      string
	RecordID   string
	Payload    []byte
	Retries    int
	EnqueuedAt time.Time

	// UpdatedAt is when the local write this op represents was made. The
	// StrategyNewest resolution path compares it against the remote's
	// current timestamp for the same record (RemoteApplier.RemoteUpdatedAt)
	// to decide which side actually is newest, rather than assuming either
	// side.
	UpdatedAt time.Time
}

func (op SyncOp) key() string { return op.Table + "/" + op.RecordID }

// Strategy is the configured conflict-resolution policy.
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyRemote Strategy = "remote"
	StrategyNewest Strategy = "newest"
)

// Config tunes debounce, batch, retry, and conflict behavior. Zero-value
// fields fall back to spec-mandated defaults in New.
type Config struct {
	DebounceMs    int
	MaxQueueSize  int
	RetryAttempts int
	RetryDelayMs  int
	SyncInterval  time.Duration
	Conflict      Strategy
}

func (c Config) withDefaults() Config {
	if c.DebounceMs <= 0 {
		c.DebounceMs = 1000
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelayMs <= 0 {
		c.RetryDelayMs = 500
	}
	if c.Conflict == "" {
		c.Conflict = StrategyNewest
	}
	return c
}

// RemoteApplier applies a single coalesced mutation to the remote store. A
// conflict is signaled by returning an error whose coreerrors.Kind is
// KindConflict or KindDuplicate; any other error is treated as transient and
// retried.
type RemoteApplier interface {
	Apply(ctx context.Context, op SyncOp) error

	// RemoteUpdatedAt reports the remote store's current last-write
	// timestamp for op's record. found is false when the store holds no
	// record for op (or cannot report a timestamp for op.Table), in which
	// case StrategyNewest falls back to applying the local write outright.
	RemoteUpdatedAt(ctx context.Context, op SyncOp) (ts time.Time, found bool, err error)
}

func isConflict(err error) bool {
	kind, ok := coreerrors.KindOf(err)
	return ok && (kind == coreerrors.KindConflict || kind == coreerrors.KindDuplicate)
}
