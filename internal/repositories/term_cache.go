package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
)

// SnapshotRepository caches the terms seen on the last successful registry fetch.
//
// Snapshots let the terms command show registry state without a live
// connection. Rows are keyed by (registry, term_id) and replaced wholesale on
// every fetch, so the table always mirrors the most recent registry state.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a new snapshot row into the database with generated ID and sequence
func (r *SnapshotRepository) Create(snapshot *models.TermSnapshot) error {
	sequence, err := NextSequence(r.db, "term_snapshots")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	snapshot.SetID(id)

	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO term_snapshots (id, sequence, registry, term_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		snapshot.Registry(),
		snapshot.TermID(),
		snapshot.Name(),
		snapshot.CreatedAt(),
		snapshot.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// Replace swaps the cached terms for a registry with a fresh fetch.
//
// Existing rows for the registry are removed outright rather than soft-deleted;
// the UNIQUE (registry, term_id) constraint would otherwise reject re-caching a
// term seen on an earlier fetch.
func (r *SnapshotRepository) Replace(registry string, terms []models.Term) error {
	if _, err := r.db.Exec("DELETE FROM term_snapshots WHERE registry = ?", registry); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}

	for _, term := range terms {
		if err := r.Create(models.NewTermSnapshot(0, registry, term)); err != nil {
			return fmt.Errorf("failed to cache term %d: %w", term.ID, err)
		}
	}

	return nil
}

// ListByRegistry retrieves the cached snapshot rows for a registry in fetch order
func (r *SnapshotRepository) ListByRegistry(registry string) ([]*models.TermSnapshot, error) {
	query := `
		SELECT id, sequence, registry, term_id, name, created_at, updated_at, deleted_at
		FROM term_snapshots
		WHERE registry = ? AND deleted_at IS NULL
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.TermSnapshot
	for rows.Next() {
		snapshot, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return snapshots, nil
}

// Terms returns the cached terms for a registry as plain term values
func (r *SnapshotRepository) Terms(registry string) ([]models.Term, error) {
	snapshots, err := r.ListByRegistry(registry)
	if err != nil {
		return nil, err
	}

	terms := make([]models.Term, 0, len(snapshots))
	for _, snapshot := range snapshots {
		terms = append(terms, snapshot.Term())
	}

	return terms, nil
}

// scanRow scans a row from [sql.Rows] into a [models.TermSnapshot]
func (r *SnapshotRepository) scanRow(rows *sql.Rows) (*models.TermSnapshot, error) {
	var (
		id        string
		sequence  int
		registry  string
		termID    int
		name      string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &registry, &termID, &name, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snapshot := models.NewTermSnapshot(sequence, registry, models.Term{Name: name, ID: termID})
	snapshot.SetID(id)
	snapshot.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		snapshot.SetDeletedAt(&deletedAt.Time)
	}

	return snapshot, nil
}
