// Package sqlite persists prediction records to the observation log.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
	"github.com/couchcryptid/creek-flow-service/internal/observability"
	_ "github.com/mattn/go-sqlite3"
)

// Recorder is the observation log: an append-mostly table keyed by the
// formatted prediction timestamp. Writes are idempotent upserts, so
// concurrent runs for the same key cannot produce duplicate rows.
type Recorder struct {
	db      *sql.DB
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRecorder opens (creating if needed) the log database at path.
// Use ":memory:" for tests.
func NewRecorder(path string, metrics *observability.Metrics, logger *slog.Logger) (*Recorder, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open observation log: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS predictions (
		recorded_at   TEXT PRIMARY KEY,
		label         TEXT NOT NULL,
		predicted_cfs REAL NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create predictions table: %w", err)
	}

	return &Recorder{db: db, metrics: metrics, logger: logger}, nil
}

// Record upserts one prediction keyed by its formatted timestamp. Reports
// whether the row was appended or an existing row was overwritten
// (last-wins).
func (r *Recorder) Record(ctx context.Context, rec domain.PredictionRecord) (domain.RecordOutcome, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM predictions WHERE recorded_at = ?)`, rec.Key,
	).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("check existing key: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO predictions(recorded_at, label, predicted_cfs)
		VALUES(?, ?, ?)
		ON CONFLICT(recorded_at) DO UPDATE SET
			label = excluded.label,
			predicted_cfs = excluded.predicted_cfs`,
		rec.Key, rec.Label, rec.PredictedCFS,
	)
	if err != nil {
		return "", fmt.Errorf("record prediction %s: %w", rec.Key, err)
	}

	outcome := domain.RecordAppended
	if exists {
		outcome = domain.RecordUpdated
		r.logger.Debug("overwrote existing prediction", "key", rec.Key)
	}
	r.metrics.RecordsWritten.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

// Recent returns up to limit records, newest first. The key format sorts
// lexicographically in time order.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]domain.PredictionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT recorded_at, label, predicted_cfs
		FROM predictions
		ORDER BY recorded_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent predictions: %w", err)
	}
	defer rows.Close()

	var records []domain.PredictionRecord
	for rows.Next() {
		var rec domain.PredictionRecord
		if err := rows.Scan(&rec.Key, &rec.Label, &rec.PredictedCFS); err != nil {
			return nil, fmt.Errorf("scan prediction row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of persisted records.
func (r *Recorder) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n)
	return n, err
}

// Close releases the underlying database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}
