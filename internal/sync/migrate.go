package sync

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// MigrationOptions controls the one-shot local-to-remote migration.
type MigrationOptions struct {
	BatchSize int
}

// MigrationBatch is one table's worth of rows to migrate, keyed by original
// record ID.
type MigrationBatch struct {
	Table string
	Rows  map[string][]byte
}

// MigrationResult summarizes a completed migration run.
type MigrationResult struct {
	TablesMigrated int
	RowsMigrated   int
	Errors         []error
}

// MigrateLocalToRemote performs the one-shot migrateLocalToRemote operation:
// read batches from fetch, write each row to the remote applier, preserving
// the original ID under metadata.original_id whenever it is not a valid
// remote identifier (not UUID-shaped). Timestamps inside the payload are
// written as fetched; NormalizeTimestamp is not applied here.
func MigrateLocalToRemote(ctx context.Context, remote RemoteApplier, fetch func() ([]MigrationBatch, error), opts MigrationOptions) (MigrationResult, error) {
	batches, err := fetch()
	if err != nil {
		return MigrationResult{}, err
	}

	var result MigrationResult
	for _, batch := range batches {
		result.TablesMigrated++
		for recordID, payload := range batch.Rows {
			op := SyncOp{
				OpType:     OpInsert,
				Table:      batch.Table,
				RecordID:   recordID,
				Payload:    withOriginalID(payload, recordID),
				EnqueuedAt: time.Now(),
			}
			if err := remote.Apply(ctx, op); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			result.RowsMigrated++
		}
	}
	return result, nil
}

// withOriginalID appends metadata.original_id to a JSON payload when id is
// not already a valid remote identifier (here: not a UUID-shaped string),
// leaving non-JSON payloads untouched.
func withOriginalID(payload []byte, id string) []byte {
	if isValidRemoteID(id) {
		return payload
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return payload
	}
	meta, _ := doc["metadata"].(map[string]interface{})
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["original_id"] = id
	doc["metadata"] = meta
	out, err := json.Marshal(doc)
	if err != nil {
		return payload
	}
	return out
}

func isValidRemoteID(id string) bool {
	if len(id) != 36 {
		return false
	}
	for i, c := range id {
		if i == 8 || i == 13 || i == 18 || i == 23 {
			if c != '-' {
				return false
			}
			continue
		}
		if !isHexDigit(byte(c)) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// NormalizeTimestamp accepts seconds, milliseconds, or an ISO-8601 string and
// returns the corresponding time.Time; an unparsable input normalizes to now.
func NormalizeTimestamp(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case int64:
		return normalizeEpoch(t)
	case float64:
		return normalizeEpoch(int64(t))
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return normalizeEpoch(n)
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Now()
}

func normalizeEpoch(n int64) time.Time {
	// Values above this threshold are already in milliseconds; below, seconds.
	const msThreshold = 1_000_000_000_000
	if n >= msThreshold {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}
