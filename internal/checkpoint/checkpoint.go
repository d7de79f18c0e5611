// Package checkpoint records which ingestion batches have been committed to
// the graph so an interrupted run can be resumed without rewriting them.
package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Status of a batch in the ledger.
type Status string

const (
	StatusCommitted Status = "committed"
	StatusFailed    Status = "failed"
)

// Entry is one batch outcome.
type Entry struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Index     int       `json:"index"`
	FirstKey  string    `json:"first_key"`
	LastKey   string    `json:"last_key"`
	Size      int       `json:"size"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type key struct {
	runID string
	stage string
	index int
}

// Ledger keeps batch outcomes in memory and, when a pool is configured,
// mirrors them to PostgreSQL.
type Ledger struct {
	pool   *pgxpool.Pool
	mu     sync.RWMutex
	memory map[key]Entry
}

// New creates a ledger. A nil pool keeps the ledger in memory only.
func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{
		pool:   pool,
		memory: make(map[key]Entry),
	}
}

// Persistent reports whether entries survive the process.
func (l *Ledger) Persistent() bool {
	return l.pool != nil
}

const createTable = `
CREATE TABLE IF NOT EXISTS ingest_batches (
	run_id      TEXT        NOT NULL,
	stage       TEXT        NOT NULL,
	batch_index INTEGER     NOT NULL,
	first_key   TEXT        NOT NULL,
	last_key    TEXT        NOT NULL,
	size        INTEGER     NOT NULL,
	status      TEXT        NOT NULL,
	error       TEXT        NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, stage, batch_index)
)`

// EnsureTable creates the ledger table when it does not exist.
func (l *Ledger) EnsureTable(ctx context.Context) error {
	if l.pool == nil {
		return nil
	}
	if _, err := l.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create ingest_batches: %w", err)
	}
	return nil
}

const upsertEntry = `
INSERT INTO ingest_batches (run_id, stage, batch_index, first_key, last_key, size, status, error, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (run_id, stage, batch_index) DO UPDATE SET
	first_key = EXCLUDED.first_key,
	last_key = EXCLUDED.last_key,
	size = EXCLUDED.size,
	status = EXCLUDED.status,
	error = EXCLUDED.error,
	updated_at = EXCLUDED.updated_at`

// Record stores a batch outcome, replacing any earlier one for the same
// run, stage and index.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	l.memory[key{e.RunID, e.Stage, e.Index}] = e
	l.mu.Unlock()

	if l.pool == nil {
		return nil
	}
	_, err := l.pool.Exec(ctx, upsertEntry,
		e.RunID, e.Stage, e.Index, e.FirstKey, e.LastKey, e.Size, string(e.Status), e.Error, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("record batch %s/%d: %w", e.Stage, e.Index, err)
	}
	return nil
}

// IsCommitted reports whether the batch described by b was committed. The
// recorded entry must cover the same records: a batch at the same index
// with a different size or key range does not count.
func (l *Ledger) IsCommitted(b Entry) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.memory[key{b.RunID, b.Stage, b.Index}]
	return ok && e.Status == StatusCommitted && e.Covers(b)
}

// Covers reports whether e and b describe the same records.
func (e Entry) Covers(b Entry) bool {
	return e.Size == b.Size && e.FirstKey == b.FirstKey && e.LastKey == b.LastKey
}

const selectRun = `
SELECT run_id, stage, batch_index, first_key, last_key, size, status, error, updated_at
FROM ingest_batches
WHERE run_id = $1`

// Preload loads every recorded batch of a run into memory and returns how
// many batches the ledger knows for that run.
func (l *Ledger) Preload(ctx context.Context, runID string) (int, error) {
	if l.pool == nil {
		return len(l.Entries(runID)), nil
	}
	rows, err := l.pool.Query(ctx, selectRun, runID)
	if err != nil {
		return 0, fmt.Errorf("preload ledger: %w", err)
	}
	defer rows.Close()

	var loaded []Entry
	for rows.Next() {
		var (
			e      Entry
			status string
		)
		if err := rows.Scan(&e.RunID, &e.Stage, &e.Index, &e.FirstKey, &e.LastKey, &e.Size, &status, &e.Error, &e.UpdatedAt); err != nil {
			return 0, fmt.Errorf("scan ledger row: %w", err)
		}
		e.Status = Status(status)
		loaded = append(loaded, e)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("preload ledger: %w", err)
	}

	l.mu.Lock()
	for _, e := range loaded {
		l.memory[key{e.RunID, e.Stage, e.Index}] = e
	}
	l.mu.Unlock()

	log.Info().Str("run_id", runID).Int("count", len(loaded)).Msg("Preloaded ingestion ledger")
	return len(l.Entries(runID)), nil
}

// Entries returns the batches of a run ordered by stage and index.
func (l *Ledger) Entries(runID string) []Entry {
	l.mu.RLock()
	var out []Entry
	for k, e := range l.memory {
		if k.runID == runID {
			out = append(out, e)
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		return out[i].Index < out[j].Index
	})
	return out
}
