package repositories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/desertthunder/termsync/internal/tasks"
)

// History must satisfy the engine's persistence contract.
var _ tasks.RunHistory = (*History)(nil)

// setupTestDB creates an in-memory SQLite database with migrations applied.
// The pool is capped at one connection so the shared memory database and the
// foreign key pragma hold for every query.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	shared.ConfigureDatabase(db, 1, 1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestSyncRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)

		err := repo.Create(run)
		if err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.ID() != run.ID() {
			t.Errorf("expected ID %s, got %s", run.ID(), retrieved.ID())
		}

		if retrieved.SourcePath() != "q1_terms.xlsx" {
			t.Errorf("expected source path 'q1_terms.xlsx', got %s", retrieved.SourcePath())
		}

		if retrieved.Registry() != models.RegistryDesktop {
			t.Errorf("expected registry 'desktop', got %s", retrieved.Registry())
		}

		if retrieved.Status() != models.RunStatusPending {
			t.Errorf("expected status 'pending', got %s", retrieved.Status())
		}

		if retrieved.StartedAt() != nil {
			t.Error("unstarted run should have nil started_at")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.SetStatus(models.RunStatusPartial)
		run.SetTermsTotal(4)
		run.SetTermsMatching(2)
		run.SetTermsMissing(2)
		run.SetTermsCreated(1)
		run.SetTermsFailed(1)
		run.SetErrorMessage("")

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.Status() != models.RunStatusPartial {
			t.Errorf("expected status 'completed_with_errors', got %s", retrieved.Status())
		}

		if retrieved.TermsTotal() != 4 {
			t.Errorf("expected 4 total terms, got %d", retrieved.TermsTotal())
		}

		if retrieved.TermsCreated() != 1 {
			t.Errorf("expected 1 created term, got %d", retrieved.TermsCreated())
		}

		if retrieved.TermsFailed() != 1 {
			t.Errorf("expected 1 failed term, got %d", retrieved.TermsFailed())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		_, err := repo.Get(run.ID())
		if err == nil {
			t.Error("expected error when getting deleted run")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)

		first := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)
		second := models.NewSyncRun(0, "q2_terms.xlsx", models.RegistryDesktop)
		third := models.NewSyncRun(0, "q3_terms.xlsx", models.RegistryOnline)

		for _, run := range []*models.SyncRun{first, second, third} {
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		retrieved, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}

		if len(retrieved) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(retrieved))
		}

		if retrieved[0].ID() != third.ID() {
			t.Errorf("expected newest run first, got %s", retrieved[0].SourcePath())
		}

		filtered, err := repo.List(map[string]any{"registry": models.RegistryOnline})
		if err != nil {
			t.Fatalf("failed to list filtered runs: %v", err)
		}

		if len(filtered) != 1 {
			t.Errorf("expected 1 online run, got %d", len(filtered))
		}

		if len(filtered) > 0 && filtered[0].SourcePath() != "q3_terms.xlsx" {
			t.Errorf("expected q3_terms.xlsx, got %s", filtered[0].SourcePath())
		}
	})

	t.Run("ListFilterByStatus", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)

		completed := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)
		if err := repo.Create(completed); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		completed.SetStatus(models.RunStatusCompleted)
		if err := repo.Update(completed); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		pending := models.NewSyncRun(0, "q2_terms.xlsx", models.RegistryDesktop)
		if err := repo.Create(pending); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		filtered, err := repo.List(map[string]any{"status": models.RunStatusCompleted})
		if err != nil {
			t.Fatalf("failed to list completed runs: %v", err)
		}

		if len(filtered) != 1 {
			t.Errorf("expected 1 completed run, got %d", len(filtered))
		}

		if len(filtered) > 0 && filtered[0].ID() != completed.ID() {
			t.Errorf("expected completed run, got status %s", filtered[0].Status())
		}
	})
}

func TestOutcomeRepository(t *testing.T) {
	t.Run("Create & ListByRun", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		runRepo := NewSyncRunRepository(db)
		run := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)
		if err := runRepo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		repo := NewOutcomeRepository(db)

		created := models.NewCreationOutcome(0, run.ID(), models.Term{Name: "Net 60", ID: 6})
		created.SetCreated(true)
		if err := repo.Create(created); err != nil {
			t.Fatalf("failed to create outcome: %v", err)
		}

		failed := models.NewCreationOutcome(0, run.ID(), models.Term{Name: "Net 15", ID: 5})
		failed.SetReason("name already exists")
		if err := repo.Create(failed); err != nil {
			t.Fatalf("failed to create outcome: %v", err)
		}

		outcomes, err := repo.ListByRun(run.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}

		if len(outcomes) != 2 {
			t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
		}

		if outcomes[0].TermID() != 6 || !outcomes[0].Created() {
			t.Errorf("expected first outcome to be created term 6, got term %d created=%v", outcomes[0].TermID(), outcomes[0].Created())
		}

		if outcomes[1].TermID() != 5 || outcomes[1].Created() {
			t.Errorf("expected second outcome to be failed term 5, got term %d created=%v", outcomes[1].TermID(), outcomes[1].Created())
		}

		if outcomes[1].Reason() != "name already exists" {
			t.Errorf("expected failure reason to round-trip, got %q", outcomes[1].Reason())
		}

		if outcomes[0].Term().Label() != `"Net 60" (id 6)` {
			t.Errorf("expected term to reconstruct, got %s", outcomes[0].Term().Label())
		}
	})

	t.Run("ListScopedToRun", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		runRepo := NewSyncRunRepository(db)
		repo := NewOutcomeRepository(db)

		first := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)
		second := models.NewSyncRun(0, "q2_terms.xlsx", models.RegistryDesktop)
		for _, run := range []*models.SyncRun{first, second} {
			if err := runRepo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}

			outcome := models.NewCreationOutcome(0, run.ID(), models.Term{Name: "Net 30", ID: 1})
			outcome.SetCreated(true)
			if err := repo.Create(outcome); err != nil {
				t.Fatalf("failed to create outcome: %v", err)
			}
		}

		outcomes, err := repo.ListByRun(first.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}

		if len(outcomes) != 1 {
			t.Errorf("expected 1 outcome for first run, got %d", len(outcomes))
		}

		if len(outcomes) > 0 && outcomes[0].RunID() != first.ID() {
			t.Errorf("expected outcome for run %s, got %s", first.ID(), outcomes[0].RunID())
		}
	})

	t.Run("DeleteByRun", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		runRepo := NewSyncRunRepository(db)
		run := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryDesktop)
		if err := runRepo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		repo := NewOutcomeRepository(db)
		outcome := models.NewCreationOutcome(0, run.ID(), models.Term{Name: "Net 60", ID: 6})
		outcome.SetCreated(true)
		if err := repo.Create(outcome); err != nil {
			t.Fatalf("failed to create outcome: %v", err)
		}

		if err := repo.DeleteByRun(run.ID()); err != nil {
			t.Fatalf("failed to delete outcomes: %v", err)
		}

		outcomes, err := repo.ListByRun(run.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}

		if len(outcomes) != 0 {
			t.Errorf("expected no outcomes after delete, got %d", len(outcomes))
		}

		if err := repo.DeleteByRun(run.ID()); err != nil {
			t.Errorf("deleting a run with no outcomes should not error: %v", err)
		}
	})
}

func TestSnapshotRepository(t *testing.T) {
	t.Run("Replace & Terms", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)

		terms := []models.Term{
			{Name: "Net 30", ID: 1},
			{Name: "Net 15", ID: 2},
			{Name: "Net 60", ID: 6},
		}

		if err := repo.Replace(models.RegistryDesktop, terms); err != nil {
			t.Fatalf("failed to replace snapshots: %v", err)
		}

		cached, err := repo.Terms(models.RegistryDesktop)
		if err != nil {
			t.Fatalf("failed to read cached terms: %v", err)
		}

		if len(cached) != 3 {
			t.Fatalf("expected 3 cached terms, got %d", len(cached))
		}

		for i, term := range terms {
			if cached[i] != term {
				t.Errorf("expected cached[%d] = %v, got %v", i, term, cached[i])
			}
		}
	})

	t.Run("ReplaceDiscardsStaleTerms", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)

		if err := repo.Replace(models.RegistryDesktop, []models.Term{
			{Name: "Net 30", ID: 1},
			{Name: "Net 15", ID: 2},
		}); err != nil {
			t.Fatalf("failed to replace snapshots: %v", err)
		}

		// Re-caching a term seen before must not trip the uniqueness constraint.
		if err := repo.Replace(models.RegistryDesktop, []models.Term{
			{Name: "Net 15", ID: 2},
		}); err != nil {
			t.Fatalf("failed to replace snapshots a second time: %v", err)
		}

		cached, err := repo.Terms(models.RegistryDesktop)
		if err != nil {
			t.Fatalf("failed to read cached terms: %v", err)
		}

		if len(cached) != 1 {
			t.Fatalf("expected 1 cached term, got %d", len(cached))
		}

		if cached[0].ID != 2 {
			t.Errorf("expected term 2, got %d", cached[0].ID)
		}
	})

	t.Run("RegistriesAreIsolated", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)

		if err := repo.Replace(models.RegistryDesktop, []models.Term{{Name: "Net 30", ID: 1}}); err != nil {
			t.Fatalf("failed to replace desktop snapshots: %v", err)
		}

		if err := repo.Replace(models.RegistryOnline, []models.Term{{Name: "Net 45", ID: 4}}); err != nil {
			t.Fatalf("failed to replace online snapshots: %v", err)
		}

		desktop, err := repo.Terms(models.RegistryDesktop)
		if err != nil {
			t.Fatalf("failed to read desktop terms: %v", err)
		}

		if len(desktop) != 1 || desktop[0].ID != 1 {
			t.Errorf("online replace should not touch desktop cache, got %v", desktop)
		}
	})

	t.Run("EmptyRegistry", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)

		cached, err := repo.Terms(models.RegistryOnline)
		if err != nil {
			t.Fatalf("failed to read cached terms: %v", err)
		}

		if len(cached) != 0 {
			t.Errorf("expected no cached terms, got %d", len(cached))
		}
	})
}

func TestHistory(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	history := NewHistory(db)
	ctx := context.Background()

	run := models.NewSyncRun(0, "q1_terms.xlsx", models.RegistryOnline)
	if err := history.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if run.ID() == "" {
		t.Fatal("run ID should be set after creation")
	}

	run.SetStatus(models.RunStatusPartial)
	run.SetTermsCreated(1)
	run.SetTermsFailed(1)
	if err := history.UpdateRun(ctx, run); err != nil {
		t.Fatalf("failed to update run: %v", err)
	}

	report := &models.CreationReport{
		Created: []models.Term{{Name: "Net 60", ID: 6}},
		Failed: []models.CreationFailure{
			{Term: models.Term{Name: "Net 15", ID: 5}, Reason: "name already exists"},
		},
	}

	if err := history.SaveOutcomes(ctx, run.ID(), report); err != nil {
		t.Fatalf("failed to save outcomes: %v", err)
	}

	outcomes, err := NewOutcomeRepository(db).ListByRun(run.ID())
	if err != nil {
		t.Fatalf("failed to list outcomes: %v", err)
	}

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}

	if !outcomes[0].Created() || outcomes[0].TermID() != 6 {
		t.Errorf("expected created term 6 first, got term %d created=%v", outcomes[0].TermID(), outcomes[0].Created())
	}

	if outcomes[1].Created() || outcomes[1].Reason() != "name already exists" {
		t.Errorf("expected failed term with reason, got created=%v reason=%q", outcomes[1].Created(), outcomes[1].Reason())
	}

	registryTerms := []models.Term{
		{Name: "Net 30", ID: 1},
		{Name: "Net 60", ID: 6},
	}

	if err := history.SaveSnapshot(ctx, models.RegistryOnline, registryTerms); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	cached, err := NewSnapshotRepository(db).Terms(models.RegistryOnline)
	if err != nil {
		t.Fatalf("failed to read cached terms: %v", err)
	}

	if len(cached) != 2 {
		t.Errorf("expected 2 cached terms, got %d", len(cached))
	}
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seq1, err := NextSequence(db, "runs")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}

	if seq1 != 1 {
		t.Errorf("expected first sequence to be 1, got %d", seq1)
	}

	// Get second sequence
	seq2, err := NextSequence(db, "runs")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}

	if seq2 != 2 {
		t.Errorf("expected second sequence to be 2, got %d", seq2)
	}

	snapshotSeq, err := NextSequence(db, "term_snapshots")
	if err != nil {
		t.Fatalf("failed to get snapshot sequence: %v", err)
	}

	if snapshotSeq != 1 {
		t.Errorf("expected first snapshot sequence to be 1, got %d", snapshotSeq)
	}
}
