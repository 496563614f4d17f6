package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
)

// SyncRunRepository implements models.Repository[*models.SyncRun] for run history.
//
// Handles reconciliation run CRUD operations with soft delete support and
// registry/status-based queries.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (
			id, sequence, source_path, registry, status, dry_run,
			terms_total, terms_matching, terms_mismatched, terms_missing,
			terms_extra, terms_created, terms_failed, error_message,
			started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage any = run.ErrorMessage()
	if errorMessage == "" {
		errorMessage = nil
	}

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.SourcePath(),
		run.Registry(),
		run.Status(),
		run.DryRun(),
		run.TermsTotal(),
		run.TermsMatching(),
		run.TermsMismatched(),
		run.TermsMissing(),
		run.TermsExtra(),
		run.TermsCreated(),
		run.TermsFailed(),
		errorMessage,
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `
		SELECT
			id, sequence, source_path, registry, status, dry_run,
			terms_total, terms_matching, terms_mismatched, terms_missing,
			terms_extra, terms_created, terms_failed, error_message,
			started_at, completed_at, created_at, updated_at, deleted_at
		FROM runs
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing run in the database
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET status = ?, terms_total = ?, terms_matching = ?,
			terms_mismatched = ?, terms_missing = ?, terms_extra = ?,
			terms_created = ?, terms_failed = ?, error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	var errorMessage any = run.ErrorMessage()
	if errorMessage == "" {
		errorMessage = nil
	}

	result, err := r.db.Exec(query,
		run.Status(),
		run.TermsTotal(),
		run.TermsMatching(),
		run.TermsMismatched(),
		run.TermsMissing(),
		run.TermsExtra(),
		run.TermsCreated(),
		run.TermsFailed(),
		errorMessage,
		run.StartedAt(),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a run by ID
func (r *SyncRunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all runs matching the given criteria, excluding soft-deleted runs.
// Runs are returned newest first.
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `
		SELECT
			id, sequence, source_path, registry, status, dry_run,
			terms_total, terms_matching, terms_mismatched, terms_missing,
			terms_extra, terms_created, terms_failed, error_message,
			started_at, completed_at, created_at, updated_at, deleted_at
		FROM runs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if registry, ok := criteria["registry"].(string); ok && registry != "" {
		query += " AND registry = ?"
		args = append(args, registry)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scanOne scans a single [sql.Row] into a [models.SyncRun]
func (r *SyncRunRepository) scanOne(row *sql.Row) (*models.SyncRun, error) {
	var (
		id              string
		sequence        int
		sourcePath      string
		registry        string
		status          string
		dryRun          bool
		termsTotal      int
		termsMatching   int
		termsMismatched int
		termsMissing    int
		termsExtra      int
		termsCreated    int
		termsFailed     int
		errorMessage    sql.NullString
		startedAt       sql.NullTime
		completedAt     sql.NullTime
		createdAt       time.Time
		updatedAt       time.Time
		deletedAt       sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &sourcePath, &registry, &status, &dryRun,
		&termsTotal, &termsMatching, &termsMismatched, &termsMissing,
		&termsExtra, &termsCreated, &termsFailed, &errorMessage,
		&startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewSyncRun(sequence, sourcePath, registry)
	run.SetID(id)
	run.SetUpdatedAt(updatedAt)

	run.SetStatus(status)
	run.SetDryRun(dryRun)
	run.SetTermsTotal(termsTotal)
	run.SetTermsMatching(termsMatching)
	run.SetTermsMismatched(termsMismatched)
	run.SetTermsMissing(termsMissing)
	run.SetTermsExtra(termsExtra)
	run.SetTermsCreated(termsCreated)
	run.SetTermsFailed(termsFailed)
	if errorMessage.Valid {
		run.SetErrorMessage(errorMessage.String)
	}
	if startedAt.Valid {
		run.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

// scanRow scans a row from [sql.Rows] into a [models.SyncRun]
func (r *SyncRunRepository) scanRow(rows *sql.Rows) (*models.SyncRun, error) {
	var (
		id              string
		sequence        int
		sourcePath      string
		registry        string
		status          string
		dryRun          bool
		termsTotal      int
		termsMatching   int
		termsMismatched int
		termsMissing    int
		termsExtra      int
		termsCreated    int
		termsFailed     int
		errorMessage    sql.NullString
		startedAt       sql.NullTime
		completedAt     sql.NullTime
		createdAt       time.Time
		updatedAt       time.Time
		deletedAt       sql.NullTime
	)

	err := rows.Scan(
		&id, &sequence, &sourcePath, &registry, &status, &dryRun,
		&termsTotal, &termsMatching, &termsMismatched, &termsMissing,
		&termsExtra, &termsCreated, &termsFailed, &errorMessage,
		&startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewSyncRun(sequence, sourcePath, registry)
	run.SetID(id)
	run.SetUpdatedAt(updatedAt)

	run.SetStatus(status)
	run.SetDryRun(dryRun)
	run.SetTermsTotal(termsTotal)
	run.SetTermsMatching(termsMatching)
	run.SetTermsMismatched(termsMismatched)
	run.SetTermsMissing(termsMissing)
	run.SetTermsExtra(termsExtra)
	run.SetTermsCreated(termsCreated)
	run.SetTermsFailed(termsFailed)
	if errorMessage.Valid {
		run.SetErrorMessage(errorMessage.String)
	}
	if startedAt.Valid {
		run.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
