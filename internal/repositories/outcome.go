package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
)

// OutcomeRepository persists per-term create outcomes for run history.
//
// Outcomes are written once when a sync completes and read back by run ID.
// Listings are ordered by sequence so they match the order creates were attempted.
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository creates a new OutcomeRepository with the given database connection
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Create inserts a new outcome into the database with generated ID and sequence
func (r *OutcomeRepository) Create(outcome *models.CreationOutcome) error {
	sequence, err := NextSequence(r.db, "run_outcomes")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	outcome.SetID(id)

	if err := outcome.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO run_outcomes (id, sequence, run_id, term_id, term_name, created, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var reason any = outcome.Reason()
	if reason == "" {
		reason = nil
	}

	_, err = r.db.Exec(query,
		id,
		sequence,
		outcome.RunID(),
		outcome.TermID(),
		outcome.TermName(),
		outcome.Created(),
		reason,
		outcome.CreatedAt(),
		outcome.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}

	return nil
}

// ListByRun retrieves all outcomes recorded for a run, excluding soft-deleted outcomes
func (r *OutcomeRepository) ListByRun(runID string) ([]*models.CreationOutcome, error) {
	query := `
		SELECT id, sequence, run_id, term_id, term_name, created, reason, created_at, updated_at, deleted_at
		FROM run_outcomes
		WHERE run_id = ? AND deleted_at IS NULL
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*models.CreationOutcome
	for rows.Next() {
		outcome, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return outcomes, nil
}

// DeleteByRun soft-deletes every outcome recorded for a run.
// Deleting a run with no outcomes is not an error; dry runs never record any.
func (r *OutcomeRepository) DeleteByRun(runID string) error {
	now := time.Now()

	query := `
		UPDATE run_outcomes
		SET deleted_at = ?
		WHERE run_id = ? AND deleted_at IS NULL
	`

	if _, err := r.db.Exec(query, now, runID); err != nil {
		return fmt.Errorf("failed to delete outcomes: %w", err)
	}

	return nil
}

// scanRow scans a row from [sql.Rows] into a [models.CreationOutcome]
func (r *OutcomeRepository) scanRow(rows *sql.Rows) (*models.CreationOutcome, error) {
	var (
		id        string
		sequence  int
		runID     string
		termID    int
		termName  string
		created   bool
		reason    sql.NullString
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &runID, &termID, &termName, &created, &reason, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan outcome: %w", err)
	}

	outcome := models.NewCreationOutcome(sequence, runID, models.Term{Name: termName, ID: termID})
	outcome.SetID(id)
	outcome.SetUpdatedAt(updatedAt)

	outcome.SetCreated(created)
	if reason.Valid {
		outcome.SetReason(reason.String)
	}
	if deletedAt.Valid {
		outcome.SetDeletedAt(&deletedAt.Time)
	}

	return outcome, nil
}
