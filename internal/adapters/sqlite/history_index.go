// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/ports/secondary"
)

// HistoryIndex implements secondary.HistoryIndex with SQLite. The table
// is a query cache over the per-business ledger files; Replace rebuilds
// a business's rows wholesale from its ledger.
type HistoryIndex struct {
	db *sql.DB
}

// NewHistoryIndex creates a new SQLite history index.
func NewHistoryIndex(db *sql.DB) *HistoryIndex {
	return &HistoryIndex{db: db}
}

// Replace swaps a business's indexed entries inside one transaction.
func (r *HistoryIndex) Replace(ctx context.Context, business string, entries []bottleneck.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bottleneck_history WHERE business = ?", business); err != nil {
		return fmt.Errorf("failed to clear index for %s: %w", business, err)
	}

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bottleneck_history
				(business, run_id, timestamp, diagnosis_status, constraint_key, constraint_stage, constraint_metric, reason_code, severity)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			business, entry.RunID, entry.Timestamp, string(entry.DiagnosisStatus), entry.ConstraintKey,
			nullable(entry.ConstraintStage), nullable(entry.ConstraintMetric), nullable(entry.ReasonCode), entry.Severity,
		)
		if err != nil {
			return fmt.Errorf("failed to index entry for run %s: %w", entry.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index rebuild: %w", err)
	}
	return nil
}

// Query returns indexed entries for a business, oldest first.
func (r *HistoryIndex) Query(ctx context.Context, business, severity string, limit int) ([]bottleneck.Entry, error) {
	query := `SELECT run_id, timestamp, diagnosis_status, constraint_key, constraint_stage, constraint_metric, reason_code, severity
		FROM bottleneck_history WHERE business = ?`
	args := []any{business}

	if severity != "" {
		query += " AND severity = ?"
		args = append(args, severity)
	}
	query += " ORDER BY run_id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history index: %w", err)
	}
	defer rows.Close()

	var entries []bottleneck.Entry
	for rows.Next() {
		var (
			entry  bottleneck.Entry
			status string
			stage  sql.NullString
			metric sql.NullString
			reason sql.NullString
		)
		if err := rows.Scan(&entry.RunID, &entry.Timestamp, &status, &entry.ConstraintKey, &stage, &metric, &reason, &entry.Severity); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.DiagnosisStatus = bottleneck.DiagnosisStatus(status)
		if stage.Valid {
			entry.ConstraintStage = &stage.String
		}
		if metric.Valid {
			entry.ConstraintMetric = &metric.String
		}
		if reason.Valid {
			entry.ReasonCode = &reason.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history entries: %w", err)
	}
	return entries, nil
}

func nullable(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ secondary.HistoryIndex = (*HistoryIndex)(nil)
