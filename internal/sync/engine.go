package sync

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/corelog"
)

// Engine is the single background worker draining a coalesced mutation queue
// into a remote store. One Engine per provider instance, per spec.md 5's
// concurrency model.
type Engine struct {
	cfg     Config
	remote  RemoteApplier
	log     corelog.Logger

	mu        sync.Mutex
	queue     []SyncOp
	index     map[string]int // key() -> position in queue, for coalescing
	isSyncing bool
	online    bool

	flushTimer *time.Timer
	stopChan   chan struct{}
	doneChan   chan struct{}

	// dropped holds ops abandoned after exhausting retryAttempts.
	droppedMu sync.Mutex
	dropped   []SyncOp
}

// New creates an Engine bound to remote, starting in online mode.
func New(remote RemoteApplier, cfg Config, log corelog.Logger) *Engine {
	if log == nil {
		log = corelog.Nop()
	}
	e := &Engine{
		cfg:      cfg.withDefaults(),
		remote:   remote,
		log:      log,
		index:    make(map[string]int),
		online:   true,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go e.run()
	return e
}

// Enqueue appends or coalesces op into the pending queue. A new op for the
// same (table, recordId) replaces the previous one (last-write-wins at the
// queue level), preserving the enqueue order of the most recent observation.
func (e *Engine) Enqueue(op SyncOp) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	op.EnqueuedAt = time.Now()
	if op.UpdatedAt.IsZero() {
		op.UpdatedAt = op.EnqueuedAt
	}

	e.mu.Lock()
	if pos, ok := e.index[op.key()]; ok {
		e.queue[pos] = op
	} else {
		e.index[op.key()] = len(e.queue)
		e.queue = append(e.queue, op)
	}
	shouldFlushNow := len(e.queue) >= e.cfg.MaxQueueSize
	e.armFlushTimerLocked()
	e.mu.Unlock()

	if shouldFlushNow {
		e.ForceSyncNow()
	}
}

// armFlushTimerLocked (re)arms the debounce timer. Caller holds e.mu.
func (e *Engine) armFlushTimerLocked() {
	if e.flushTimer != nil {
		e.flushTimer.Stop()
	}
	e.flushTimer = time.AfterFunc(time.Duration(e.cfg.DebounceMs)*time.Millisecond, e.ForceSyncNow)
}

// run is the single background worker. It only reacts to the periodic
// syncInterval tick (a coarse safety net) and shutdown; debounce flushes are
// driven by time.AfterFunc from Enqueue/armFlushTimerLocked, matching the
// spec's "independent timers" ordering guarantee.
func (e *Engine) run() {
	defer close(e.doneChan)
	interval := e.cfg.SyncInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.ForceSyncNow()
		case <-e.stopChan:
			return
		}
	}
}

// SetOnlineStatus toggles online/offline mode. Transitioning offline->online
// with a non-empty queue triggers an immediate forceSyncNow.
func (e *Engine) SetOnlineStatus(online bool) {
	e.mu.Lock()
	wasOffline := !e.online
	e.online = online
	pending := len(e.queue)
	e.mu.Unlock()

	if online && wasOffline && pending > 0 {
		e.ForceSyncNow()
	}
}

func (e *Engine) Online() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// QueueLen reports the number of pending coalesced ops, for tests and health
// checks.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Dropped returns ops that exhausted retryAttempts and were abandoned.
func (e *Engine) Dropped() []SyncOp {
	e.droppedMu.Lock()
	defer e.droppedMu.Unlock()
	out := make([]SyncOp, len(e.dropped))
	copy(out, e.dropped)
	return out
}

// ForceSyncNow drains the queue into the remote store in enqueue order. At
// most one drain runs at a time; a concurrent call while a drain is already
// in flight is a no-op (the running drain will pick up anything enqueued
// meanwhile on its next invocation).
func (e *Engine) ForceSyncNow() {
	e.mu.Lock()
	if e.isSyncing || !e.online || len(e.queue) == 0 {
		e.mu.Unlock()
		return
	}
	e.isSyncing = true
	snapshot := e.queue
	e.queue = nil
	e.index = make(map[string]int)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.isSyncing = false
		e.mu.Unlock()
	}()

	ctx := context.Background()
	var requeue []SyncOp
	for _, op := range snapshot {
		if err := e.applyWithConflictResolution(ctx, op); err != nil {
			if op.Retries+1 >= e.cfg.RetryAttempts {
				e.log.Warn("sync op exhausted retries, dropping", "table", op.Table, "recordId", op.RecordID, "err", err)
				e.droppedMu.Lock()
				e.dropped = append(e.dropped, op)
				e.droppedMu.Unlock()
				continue
			}
			op.Retries++
			e.log.Error("sync op failed, will retry", "table", op.Table, "recordId", op.RecordID,
				"retries", op.Retries, "err", err)
			requeue = append(requeue, op)
		}
	}

	if len(requeue) > 0 {
		e.scheduleRetry(requeue)
	}
}

// scheduleRetry re-enqueues failed ops after a linear delay
// (retryDelay × attempt), via a cenkalti/backoff/v4 constant backoff reused
// per attempt count to produce the spec's linear schedule.
func (e *Engine) scheduleRetry(ops []SyncOp) {
	for _, op := range ops {
		delay := time.Duration(e.cfg.RetryDelayMs*op.Retries) * time.Millisecond
		bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), 1)
		wait := bo.NextBackOff()
		time.AfterFunc(wait, func(op SyncOp) func() {
			return func() {
				e.mu.Lock()
				if _, ok := e.index[op.key()]; !ok {
					e.index[op.key()] = len(e.queue)
					e.queue = append(e.queue, op)
				}
				e.mu.Unlock()
				e.ForceSyncNow()
			}
		}(op))
	}
}

// applyWithConflictResolution applies op to the remote store, resolving any
// reported conflict per the configured strategy before returning.
func (e *Engine) applyWithConflictResolution(ctx context.Context, op SyncOp) error {
	err := e.remote.Apply(ctx, op)
	if err == nil {
		return nil
	}
	if !isConflict(err) {
		return err
	}

	switch e.cfg.Conflict {
	case StrategyLocal:
		op.Retries = 0
		return e.remote.Apply(ctx, op)
	case StrategyRemote:
		e.log.Warn("conflict resolved in favor of remote, discarding local op",
			"table", op.Table, "recordId", op.RecordID)
		return nil
	case StrategyNewest:
		remoteTS, found, tsErr := e.remote.RemoteUpdatedAt(ctx, op)
		if tsErr != nil {
			return tsErr
		}
		if !found {
			// The remote has nothing to compare against (or the store can't
			// report a timestamp for this table); there is no newer side to
			// defer to, so the local write stands.
			op.Retries = 0
			return e.remote.Apply(ctx, op)
		}
		if !op.UpdatedAt.After(remoteTS) {
			e.log.Warn("conflict resolved in favor of newer remote record, discarding local op",
				"table", op.Table, "recordId", op.RecordID, "localUpdatedAt", op.UpdatedAt, "remoteUpdatedAt", remoteTS)
			return nil
		}
		op.Retries = 0
		return e.remote.Apply(ctx, op)
	default:
		return err
	}
}

// Shutdown stops both the periodic ticker and any pending debounce timer,
// then drains the queue synchronously before returning.
func (e *Engine) Shutdown(ctx context.Context) error {
	close(e.stopChan)
	<-e.doneChan

	e.mu.Lock()
	if e.flushTimer != nil {
		e.flushTimer.Stop()
	}
	e.mu.Unlock()

	e.ForceSyncNow()
	return ctx.Err()
}
