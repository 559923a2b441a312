package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

const journalSchemaLockKey int64 = 2025030101

// JournalRepository appends submission attempts to submission_journal.
type JournalRepository struct {
	db *sql.DB
}

func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

func (r *JournalRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Several consoles may share one journal database.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, journalSchemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS submission_journal (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL DEFAULT '',
	request JSONB NOT NULL,
	decision_id TEXT,
	decision TEXT,
	reason TEXT,
	confidence_score DOUBLE PRECISION,
	failure_kind TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	submitted_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submission_journal_submitted_at ON submission_journal(submitted_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JournalRepository) Record(ctx context.Context, entry domain.JournalEntry) error {
	requestJSON, err := json.Marshal(entry.Request)
	if err != nil {
		return fmt.Errorf("marshal journal request: %w", err)
	}

	var decisionID, verdict, reason sql.NullString
	var confidence sql.NullFloat64
	if entry.Decision != nil {
		decisionID = sql.NullString{String: entry.Decision.ID, Valid: true}
		verdict = sql.NullString{String: string(entry.Decision.Decision), Valid: true}
		reason = sql.NullString{String: entry.Decision.Reason, Valid: true}
		confidence = sql.NullFloat64{Float64: entry.Decision.ConfidenceScore, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO submission_journal (
	id, request_id, request, decision_id, decision, reason, confidence_score, failure_kind, error_message, submitted_at, duration_ms
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		entry.ID, entry.RequestID, requestJSON, decisionID, verdict, reason, confidence,
		entry.FailureKind, entry.Error, entry.SubmittedAt, entry.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Recent returns the newest journal entries first.
func (r *JournalRepository) Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, request_id, request, decision_id, decision, reason, confidence_score, failure_kind, error_message, submitted_at, duration_ms
FROM submission_journal
ORDER BY submitted_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0, limit)
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

func scanJournalEntry(rows *sql.Rows) (domain.JournalEntry, error) {
	var entry domain.JournalEntry
	var requestRaw []byte
	var decisionID, verdict, reason sql.NullString
	var confidence sql.NullFloat64
	var durationMS int64

	if err := rows.Scan(
		&entry.ID, &entry.RequestID, &requestRaw, &decisionID, &verdict, &reason, &confidence,
		&entry.FailureKind, &entry.Error, &entry.SubmittedAt, &durationMS,
	); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("scan journal entry: %w", err)
	}
	if err := json.Unmarshal(requestRaw, &entry.Request); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("unmarshal journal request %s: %w", entry.ID, err)
	}
	if decisionID.Valid {
		entry.Decision = &domain.Decision{
			ID:              decisionID.String,
			Decision:        domain.DecisionStatus(verdict.String),
			Reason:          reason.String,
			ConfidenceScore: confidence.Float64,
			Timestamp:       entry.SubmittedAt,
		}
	}
	entry.Duration = time.Duration(durationMS) * time.Millisecond
	return entry, nil
}
