package database

import (
	"fmt"

	"github.com/google/uuid"
)

var _ OutcomeRepository = (*OutcomeRepo)(nil)

// OutcomeRepo handles database operations for run outcome rows
type OutcomeRepo struct {
	db *DB
}

func NewOutcomeRepository(db *DB) *OutcomeRepo {
	return &OutcomeRepo{db: db}
}

// Record upserts the outcome for one input of a run. Outcome rows are the
// audit log and the resume source, so re-running an input overwrites its
// previous row rather than appending a duplicate.
func (r *OutcomeRepo) Record(runName string, outcome OutcomeRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO run_outcomes (id, run_name, input, status, items_written, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_name, input) DO UPDATE SET
			status = excluded.status,
			items_written = excluded.items_written,
			error = excluded.error,
			updated_at = CURRENT_TIMESTAMP
	`, uuid.New().String(), runName, outcome.Input, outcome.Status,
		outcome.ItemsWritten, outcome.Error)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

func (r *OutcomeRepo) GetOutcomes(runName string) ([]RunOutcome, error) {
	rows, err := r.db.Query(`
		SELECT id, run_name, input, status, items_written, error, created_at, updated_at
		FROM run_outcomes
		WHERE run_name = ?
		ORDER BY updated_at
	`, runName)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []RunOutcome
	for rows.Next() {
		var o RunOutcome
		err := rows.Scan(&o.ID, &o.RunName, &o.Input, &o.Status,
			&o.ItemsWritten, &o.Error, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome rows: %w", err)
	}

	return outcomes, nil
}

// GetCompletedInputs returns the inputs of a run that already reached a
// terminal-success status. Resume processes only the complement.
func (r *OutcomeRepo) GetCompletedInputs(runName string) (map[string]bool, error) {
	rows, err := r.db.Query(`
		SELECT input FROM run_outcomes
		WHERE run_name = ? AND status IN (?, ?, ?)
	`, runName, StatusMatched, StatusNotFound, StatusExtractionEmpty)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed inputs: %w", err)
	}
	defer rows.Close()

	completed := make(map[string]bool)
	for rows.Next() {
		var input string
		if err := rows.Scan(&input); err != nil {
			return nil, fmt.Errorf("failed to scan completed input: %w", err)
		}
		completed[input] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completed inputs: %w", err)
	}

	return completed, nil
}

func (r *OutcomeRepo) GetStats() (OutcomeStats, error) {
	var stats OutcomeStats
	err := r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as matched,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as not_found,
			COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0) as failed,
			COALESCE(SUM(items_written), 0) as items_written
		FROM run_outcomes
	`, StatusMatched, StatusNotFound, StatusPersistError, StatusFailed).Scan(
		&stats.Total, &stats.Matched, &stats.NotFound, &stats.Failed, &stats.ItemsWritten)
	if err != nil {
		return OutcomeStats{}, fmt.Errorf("failed to get outcome stats: %w", err)
	}

	return stats, nil
}
