package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/termsync/internal/models"
)

// History implements tasks.RunHistory over the run, outcome, and snapshot repositories.
//
// The engine talks to this facade through contexts; the repositories underneath
// do not take them, matching the rest of this package.
type History struct {
	runs      *SyncRunRepository
	outcomes  *OutcomeRepository
	snapshots *SnapshotRepository
}

// NewHistory creates a History facade over the given database connection
func NewHistory(db *sql.DB) *History {
	return &History{
		runs:      NewSyncRunRepository(db),
		outcomes:  NewOutcomeRepository(db),
		snapshots: NewSnapshotRepository(db),
	}
}

// CreateRun records a new run
func (h *History) CreateRun(_ context.Context, run *models.SyncRun) error {
	return h.runs.Create(run)
}

// UpdateRun persists status, counter, and timestamp changes to a run
func (h *History) UpdateRun(_ context.Context, run *models.SyncRun) error {
	return h.runs.Update(run)
}

// SaveOutcomes records one outcome row per attempted term.
// Created terms are written first, then failures, each group in report order.
func (h *History) SaveOutcomes(_ context.Context, runID string, report *models.CreationReport) error {
	for _, term := range report.Created {
		outcome := models.NewCreationOutcome(0, runID, term)
		outcome.SetCreated(true)

		if err := h.outcomes.Create(outcome); err != nil {
			return fmt.Errorf("failed to save outcome for term %d: %w", term.ID, err)
		}
	}

	for _, failure := range report.Failed {
		outcome := models.NewCreationOutcome(0, runID, failure.Term)
		outcome.SetReason(failure.Reason)

		if err := h.outcomes.Create(outcome); err != nil {
			return fmt.Errorf("failed to save outcome for term %d: %w", failure.Term.ID, err)
		}
	}

	return nil
}

// SaveSnapshot replaces the cached terms for a registry with a fresh fetch
func (h *History) SaveSnapshot(_ context.Context, registry string, terms []models.Term) error {
	return h.snapshots.Replace(registry, terms)
}
