package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/corelog"
	_ "modernc.org/sqlite"
)

// LocalProvider is the single-file embedded SQLite provider: WAL-mode
// journaling, prepared statements, transactional batch inserts. Grounded on
// modernc.org/sqlite as the dominant pure-Go SQLite driver across the
// retrieved corpus (no cgo dependency, unlike mattn/go-sqlite3).
type LocalProvider struct {
	db  *sql.DB
	log corelog.Logger
}

// OpenLocal opens (creating if necessary) the SQLite file at path, enables
// WAL mode, and applies embedded migrations.
func OpenLocal(path string, log corelog.Logger) (*LocalProvider, error) {
	return OpenLocalWithMigrations(path, "", log)
}

// OpenLocalWithMigrations is OpenLocal with an AGENTIC_MIGRATIONS_PATH-style
// override: when migrationsPath is non-empty, migrations are read from that
// directory on disk instead of the embedded set.
func OpenLocalWithMigrations(path, migrationsPath string, log corelog.Logger) (*LocalProvider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, coreerrors.New("OpenLocal", coreerrors.KindCorruptState, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, coreerrors.New("OpenLocal", coreerrors.KindCorruptState, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, coreerrors.New("OpenLocal", coreerrors.KindCorruptState, err)
	}
	if err := runMigrationsFrom(db, path, migrationsPath); err != nil {
		if log != nil {
			log.Error("apply migrations failed", "path", path, "err", err)
		}
		return nil, err
	}
	return &LocalProvider{db: db, log: log}, nil
}

func (p *LocalProvider) Initialize(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *LocalProvider) Shutdown(ctx context.Context) error { return p.db.Close() }

func (p *LocalProvider) ProviderInfo() ProviderInfo {
	return ProviderInfo{Name: "sqlite-local", Mode: "local", Online: true, Version: "1"}
}

// ============================================================================
// Memory
// ============================================================================

func (p *LocalProvider) StoreMemoryEntry(ctx context.Context, e MemoryEntry) error {
	return p.StoreMemoryEntries(ctx, []MemoryEntry{e})
}

func (p *LocalProvider) StoreMemoryEntries(ctx context.Context, entries []MemoryEntry) error {
	err := p.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO memory_entries (partition, key, value, owner, access_level, team_id, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(partition, key) DO UPDATE SET
				value=excluded.value, owner=excluded.owner, access_level=excluded.access_level,
				team_id=excluded.team_id, expires_at=excluded.expires_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Partition, e.Key, e.Value, e.Owner, string(e.AccessLevel),
				e.TeamID, e.CreatedAt.UnixMilli(), nullableMillis(e.ExpiresAt)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && p.log != nil {
		p.log.Error("store memory entries failed", "count", len(entries), "err", err)
	}
	return err
}

func (p *LocalProvider) GetMemoryEntry(ctx context.Context, key, partition string) (MemoryEntry, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT key, partition, value, owner, access_level, team_id, created_at, expires_at
		FROM memory_entries WHERE partition = ? AND key = ?`, partition, key)
	e, err := scanMemoryEntry(row)
	if err == sql.ErrNoRows {
		return MemoryEntry{}, coreerrors.New("GetMemoryEntry", coreerrors.KindNotFound,
			fmt.Errorf("memory entry not found: %s/%s", partition, key))
	}
	return e, err
}

func (p *LocalProvider) QueryMemoryEntries(ctx context.Context, q MemoryQuery) ([]MemoryEntry, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT key, partition, value, owner, access_level, team_id, created_at, expires_at
		FROM memory_entries WHERE (expires_at IS NULL OR expires_at > ?)`)
	args := []interface{}{time.Now().UnixMilli()}
	if q.Partition != "" {
		sb.WriteString(" AND partition = ?")
		args = append(args, q.Partition)
	}
	if q.Owner != "" {
		sb.WriteString(" AND owner = ?")
		args = append(args, q.Owner)
	}
	if q.AccessLevel != "" {
		sb.WriteString(" AND access_level = ?")
		args = append(args, string(q.AccessLevel))
	}
	if q.TeamID != "" {
		sb.WriteString(" AND team_id = ?")
		args = append(args, q.TeamID)
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemoryEntry
	for rows.Next() {
		e, err := scanMemoryEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *LocalProvider) DeleteMemoryEntries(ctx context.Context, keyPattern string, partition string) (int, error) {
	query := "DELETE FROM memory_entries WHERE key LIKE ?"
	args := []interface{}{keyPattern}
	if partition != "" {
		query += " AND partition = ?"
		args = append(args, partition)
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemoryEntry(row rowScanner) (MemoryEntry, error) {
	var e MemoryEntry
	var createdAt int64
	var expiresAt sql.NullInt64
	var owner, teamID sql.NullString
	if err := row.Scan(&e.Key, &e.Partition, &e.Value, &owner, &e.AccessLevel, &teamID, &createdAt, &expiresAt); err != nil {
		return MemoryEntry{}, err
	}
	e.Owner = owner.String
	e.TeamID = teamID.String
	e.CreatedAt = time.UnixMilli(createdAt)
	if expiresAt.Valid {
		t := time.UnixMilli(expiresAt.Int64)
		e.ExpiresAt = &t
	}
	return e, nil
}

func nullableMillis(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

// ============================================================================
// Events
// ============================================================================

func (p *LocalProvider) StoreEvent(ctx context.Context, e EventRecord) error {
	return p.StoreEvents(ctx, []EventRecord{e})
}

func (p *LocalProvider) StoreEvents(ctx context.Context, events []EventRecord) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO events (id, type, payload, source, timestamp, ttl) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range events {
			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			var ttl interface{}
			if e.TTL != nil {
				ttl = e.TTL.Milliseconds()
			}
			if _, err := stmt.ExecContext(ctx, e.ID, e.Type, e.Payload, e.Source, e.Timestamp.UnixMilli(), ttl); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *LocalProvider) QueryEvents(ctx context.Context, q EventQuery) ([]EventRecord, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT id, type, payload, source, timestamp, ttl FROM events WHERE 1=1`)
	var args []interface{}
	if q.Type != "" {
		sb.WriteString(" AND type = ?")
		args = append(args, q.Type)
	}
	if q.Source != "" {
		sb.WriteString(" AND source = ?")
		args = append(args, q.Source)
	}
	if q.Since != nil {
		sb.WriteString(" AND timestamp >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	sb.WriteString(" ORDER BY timestamp DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var e EventRecord
		var ts int64
		var ttl sql.NullInt64
		var source sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &e.Payload, &source, &ts, &ttl); err != nil {
			return nil, err
		}
		e.Source = source.String
		e.Timestamp = time.UnixMilli(ts)
		if ttl.Valid {
			d := time.Duration(ttl.Int64) * time.Millisecond
			e.TTL = &d
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *LocalProvider) DeleteOldEvents(ctx context.Context, cutoff int64) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ============================================================================
// Code chunks
// ============================================================================

func (p *LocalProvider) StoreCodeChunk(ctx context.Context, c CodeChunk) error {
	return p.StoreCodeChunks(ctx, []CodeChunk{c})
}

func (p *LocalProvider) StoreCodeChunks(ctx context.Context, chunks []CodeChunk) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO code_chunks (id, project_id, file_path, start_line, end_line, content, language, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET content=excluded.content, embedding=excluded.embedding`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range chunks {
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			blob, err := encodeEmbedding(c.Embedding)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, c.ID, c.ProjectID, c.FilePath, c.StartLine, c.EndLine,
				c.Content, c.Language, blob); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *LocalProvider) QueryCodeChunks(ctx context.Context, q CodeChunkQuery) ([]CodeChunk, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT id, project_id, file_path, start_line, end_line, content, language, embedding
		FROM code_chunks WHERE 1=1`)
	var args []interface{}
	if q.ProjectID != "" {
		sb.WriteString(" AND project_id = ?")
		args = append(args, q.ProjectID)
	}
	if q.FilePath != "" {
		sb.WriteString(" AND file_path = ?")
		args = append(args, q.FilePath)
	}
	if q.Language != "" {
		sb.WriteString(" AND language = ?")
		args = append(args, q.Language)
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CodeChunk
	for rows.Next() {
		c, err := scanCodeChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SearchSimilarCode performs an in-process cosine-similarity scan over every
// embedded chunk in the project. This is intentionally a pure-Go linear scan
// rather than a vector-index extension: modernc.org/sqlite offers no
// loadable-extension support, so a virtual-table vector index (as seen
// elsewhere in the corpus) is not available without cgo.
func (p *LocalProvider) SearchSimilarCode(ctx context.Context, embedding []float32, opts SimilarCodeOptions) ([]ScoredCodeChunk, error) {
	chunks, err := p.QueryCodeChunks(ctx, CodeChunkQuery{ProjectID: opts.ProjectID})
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

func (p *LocalProvider) DeleteCodeChunksForFile(ctx context.Context, projectID, filePath string) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM code_chunks WHERE project_id = ? AND file_path = ?`, projectID, filePath)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (p *LocalProvider) DeleteCodeChunksForProject(ctx context.Context, projectID string) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM code_chunks WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanCodeChunk(row rowScanner) (CodeChunk, error) {
	var c CodeChunk
	var language sql.NullString
	var blob []byte
	if err := row.Scan(&c.ID, &c.ProjectID, &c.FilePath, &c.StartLine, &c.EndLine, &c.Content, &language, &blob); err != nil {
		return CodeChunk{}, err
	}
	c.Language = language.String
	emb, err := decodeEmbedding(blob)
	if err != nil {
		return CodeChunk{}, err
	}
	c.Embedding = emb
	return c, nil
}

func encodeEmbedding(v []float32) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(blob, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ============================================================================
// Experiences and patterns
// ============================================================================

func (p *LocalProvider) StoreExperience(ctx context.Context, e Experience) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	blob, err := encodeEmbedding(e.Embedding)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO experiences (id, agent_id, context, action, outcome, reward, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AgentID, e.Context, e.Action, e.Outcome, e.Reward, blob, e.CreatedAt.UnixMilli())
	return err
}

func (p *LocalProvider) QueryExperiences(ctx context.Context, q ExperienceQuery) ([]Experience, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT id, agent_id, context, action, outcome, reward, embedding, created_at
		FROM experiences WHERE 1=1`)
	var args []interface{}
	if q.AgentID != "" {
		sb.WriteString(" AND agent_id = ?")
		args = append(args, q.AgentID)
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Experience
	for rows.Next() {
		var e Experience
		var createdAt int64
		var blob []byte
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Context, &e.Action, &e.Outcome, &e.Reward, &blob, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		emb, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		e.Embedding = emb
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *LocalProvider) StorePattern(ctx context.Context, pat Pattern) error {
	if pat.ID == "" {
		pat.ID = uuid.NewString()
	}
	blob, err := encodeEmbedding(pat.Embedding)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO patterns (id, description, support, confidence, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pat.ID, pat.Description, pat.Support, pat.Confidence, blob, pat.CreatedAt.UnixMilli())
	return err
}

func (p *LocalProvider) QueryPatterns(ctx context.Context, q PatternQuery) ([]Pattern, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT id, description, support, confidence, embedding, created_at FROM patterns WHERE confidence >= ?`)
	args := []interface{}{q.MinConfidence}
	sb.WriteString(" ORDER BY confidence DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Pattern
	for rows.Next() {
		var pat Pattern
		var createdAt int64
		var blob []byte
		if err := rows.Scan(&pat.ID, &pat.Description, &pat.Support, &pat.Confidence, &blob, &createdAt); err != nil {
			return nil, err
		}
		pat.CreatedAt = time.UnixMilli(createdAt)
		emb, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		pat.Embedding = emb
		out = append(out, pat)
	}
	return out, rows.Err()
}

// ============================================================================
// Nervous-system state
// ============================================================================

func (p *LocalProvider) SaveState(ctx context.Context, agentID string, state []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO agent_state (agent_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET state=excluded.state, updated_at=excluded.updated_at`,
		agentID, state, time.Now().UnixMilli())
	return err
}

func (p *LocalProvider) LoadState(ctx context.Context, agentID string) ([]byte, error) {
	var state []byte
	err := p.db.QueryRowContext(ctx, `SELECT state FROM agent_state WHERE agent_id = ?`, agentID).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, coreerrors.New("LoadState", coreerrors.KindNotFound,
			fmt.Errorf("no state for agent %s", agentID))
	}
	return state, err
}

func (p *LocalProvider) DeleteState(ctx context.Context, agentID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM agent_state WHERE agent_id = ?`, agentID)
	return err
}

func (p *LocalProvider) ListAgentsWithState(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT agent_id FROM agent_state ORDER BY agent_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ============================================================================
// Shared helpers
// ============================================================================

func (p *LocalProvider) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
