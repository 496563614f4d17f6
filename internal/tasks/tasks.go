// package tasks implements term reconciliation between a workbook source and an accounting registry.
//
// The core is the pure Compare function; TermEngine wraps it with the read, fetch,
// create, and persist phases of a full run. Operations emit progress updates via
// channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/services"
	"github.com/desertthunder/termsync/internal/shared"
)

// Compare partitions source and registry terms into the four reconciliation buckets.
//
// Both collections are checked for duplicate ids before any bucket is built; a
// duplicate fails the comparison with a [shared.DuplicateIDError] and no partial
// result. Every id from either side lands in exactly one bucket: Matching when
// both names agree byte for byte, Mismatched when the id is shared but the names
// differ, OnlyInSource and OnlyInRegistry otherwise. Bucket slices preserve the
// input order of their side. Compare is pure: it never touches the registry and
// equal inputs always produce equal results.
func Compare(source, registry []models.Term) (*models.Comparison, error) {
	if err := checkDuplicates(source, shared.OriginSource); err != nil {
		return nil, err
	}
	if err := checkDuplicates(registry, shared.OriginRegistry); err != nil {
		return nil, err
	}

	registryByID := make(map[int]models.Term, len(registry))
	for _, term := range registry {
		registryByID[term.ID] = term
	}

	comparison := &models.Comparison{}
	sourceIDs := make(map[int]struct{}, len(source))

	for _, term := range source {
		sourceIDs[term.ID] = struct{}{}

		counterpart, found := registryByID[term.ID]
		if !found {
			comparison.OnlyInSource = append(comparison.OnlyInSource, term)
			continue
		}

		if counterpart.Name == term.Name {
			comparison.Matching++
			continue
		}

		comparison.Mismatched = append(comparison.Mismatched, models.NameMismatch{
			ID:           term.ID,
			SourceName:   term.Name,
			RegistryName: counterpart.Name,
		})
	}

	for _, term := range registry {
		if _, found := sourceIDs[term.ID]; !found {
			comparison.OnlyInRegistry = append(comparison.OnlyInRegistry, term)
		}
	}

	return comparison, nil
}

// checkDuplicates rejects a collection containing the same term id twice.
func checkDuplicates(terms []models.Term, origin string) error {
	seen := make(map[int]struct{}, len(terms))
	for _, term := range terms {
		if _, dup := seen[term.ID]; dup {
			return &shared.DuplicateIDError{ID: term.ID, Origin: origin}
		}
		seen[term.ID] = struct{}{}
	}
	return nil
}

// Plan returns the terms a sync would create: exactly the OnlyInSource bucket in
// source order, no filtering. Terms the registry rejects are reported at create
// time instead of being second-guessed here.
func Plan(c *models.Comparison) []models.Term {
	return c.OnlyInSource
}

// SourceReader loads an ordered term collection from a workbook path.
type SourceReader interface {
	ReadTerms(path string) ([]models.Term, error)
}

// ReaderFunc adapts a plain function to the [SourceReader] interface.
type ReaderFunc func(path string) ([]models.Term, error)

func (f ReaderFunc) ReadTerms(path string) ([]models.Term, error) { return f(path) }

// RunHistory persists runs, their per-term outcomes, and registry snapshots.
//
// Implemented by repositories.History; a nil history disables persistence.
// History failures never fail a run, they are logged and skipped.
type RunHistory interface {
	CreateRun(ctx context.Context, run *models.SyncRun) error
	UpdateRun(ctx context.Context, run *models.SyncRun) error
	SaveOutcomes(ctx context.Context, runID string, report *models.CreationReport) error
	SaveSnapshot(ctx context.Context, registry string, terms []models.Term) error
}

// RunOpts configures a reconciliation run.
type RunOpts struct {
	DryRun bool // compare and plan only, never create
}

// RunResult contains everything a full run produced.
type RunResult struct {
	RunID         string                 // persisted run id, empty without history
	SourceCount   int                    // terms read from the workbook
	RegistryCount int                    // terms fetched from the registry
	Comparison    *models.Comparison     // the four-bucket partition
	Plan          []models.Term          // terms a sync creates (OnlyInSource)
	Report        *models.CreationReport // nil on dry runs and empty plans
	DryRun        bool
}

// DiffResult contains the read-only comparison a diff produced.
type DiffResult struct {
	SourceCount   int
	RegistryCount int
	Comparison    *models.Comparison
}

// SyncEngine defines reconciliation operations against an accounting registry.
type SyncEngine interface {
	// Run executes the full workflow: read the workbook, fetch the registry,
	// compare, create the missing terms, and record the run.
	Run(ctx context.Context, sourcePath string, opts RunOpts, progress chan<- ProgressUpdate) (*RunResult, error)

	// Diff executes the read-only half of Run: read, fetch, compare.
	Diff(ctx context.Context, sourcePath string, progress chan<- ProgressUpdate) (*DiffResult, error)

	// Export writes the registry collection to a workbook at path.
	Export(ctx context.Context, path string, opts ExportOpts, progress chan<- ProgressUpdate) (*ExportResult, error)
}

// TermEngine implements [SyncEngine] against a single configured registry.
type TermEngine struct {
	registry string // models.RegistryDesktop or models.RegistryOnline
	reader   SourceReader
	service  services.TermService
	history  RunHistory
	logger   *log.Logger
}

// NewTermEngine creates an engine from its collaborators.
// history may be nil, which disables run persistence.
func NewTermEngine(registry string, reader SourceReader, service services.TermService, history RunHistory) *TermEngine {
	return &TermEngine{
		registry: registry,
		reader:   reader,
		service:  service,
		history:  history,
		logger:   shared.NewLogger(nil),
	}
}

// SetLogger replaces the engine logger.
func (e *TermEngine) SetLogger(logger *log.Logger) {
	e.logger = logger
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *TermEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run performs a full reconciliation of the workbook at sourcePath.
//
// Fatal errors (unreadable workbook, empty source, unreachable registry,
// duplicate ids) unwind before any registry mutation and mark the recorded run
// failed. Per-item creation failures land in the report and never abort the run.
func (e *TermEngine) Run(ctx context.Context, sourcePath string, opts RunOpts, progress chan<- ProgressUpdate) (*RunResult, error) {
	if e.reader == nil {
		return nil, fmt.Errorf("%w: source reader not initialized", shared.ErrServiceUnavailable)
	}
	if e.service == nil {
		return nil, fmt.Errorf("%w: registry service not initialized", shared.ErrServiceUnavailable)
	}

	run := e.beginRun(ctx, sourcePath, opts)

	e.sendProgress(progress, readSourceUpdate(sourcePath))
	source, err := e.reader.ReadTerms(sourcePath)
	if err != nil {
		return nil, e.failRun(ctx, run, err)
	}
	if len(source) == 0 {
		return nil, e.failRun(ctx, run, fmt.Errorf("%w: %s", shared.ErrNoTerms, sourcePath))
	}
	e.sendProgress(progress, sourceReadUpdate(len(source)))

	e.sendProgress(progress, fetchRegistryUpdate(e.service.Name()))
	if err := e.service.Authenticate(ctx); err != nil {
		return nil, e.failRun(ctx, run, err)
	}
	registry, err := e.service.FetchTerms(ctx)
	if err != nil {
		return nil, e.failRun(ctx, run, err)
	}
	e.sendProgress(progress, registryFetchedUpdate(e.service.Name(), len(registry)))

	e.sendProgress(progress, compareUpdate(len(source), len(registry)))
	comparison, err := Compare(source, registry)
	if err != nil {
		return nil, e.failRun(ctx, run, err)
	}
	e.sendProgress(progress, comparedUpdate(comparison))

	result := &RunResult{
		SourceCount:   len(source),
		RegistryCount: len(registry),
		Comparison:    comparison,
		Plan:          Plan(comparison),
		DryRun:        opts.DryRun,
	}
	if run != nil {
		run.ApplyComparison(comparison)
	}

	if !opts.DryRun && len(result.Plan) > 0 {
		e.sendProgress(progress, createMissingUpdate(len(result.Plan)))

		report, err := e.service.CreateTerms(ctx, result.Plan)
		if err != nil {
			return nil, e.failRun(ctx, run, err)
		}

		result.Report = report
		if run != nil {
			run.ApplyReport(report)
		}
		e.sendProgress(progress, createdUpdate(report))
	}

	e.sendProgress(progress, saveRunUpdate())
	e.completeRun(ctx, run, result, registry)

	if run != nil {
		result.RunID = run.ID()
	}
	return result, nil
}

// Diff performs the read-only half of [TermEngine.Run]: read the workbook, fetch
// the registry, compare. The registry is never mutated and no run is recorded.
func (e *TermEngine) Diff(ctx context.Context, sourcePath string, progress chan<- ProgressUpdate) (*DiffResult, error) {
	if e.reader == nil {
		return nil, fmt.Errorf("%w: source reader not initialized", shared.ErrServiceUnavailable)
	}
	if e.service == nil {
		return nil, fmt.Errorf("%w: registry service not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, readSourceUpdate(sourcePath))
	source, err := e.reader.ReadTerms(sourcePath)
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoTerms, sourcePath)
	}
	e.sendProgress(progress, sourceReadUpdate(len(source)))

	e.sendProgress(progress, fetchRegistryUpdate(e.service.Name()))
	if err := e.service.Authenticate(ctx); err != nil {
		return nil, err
	}
	registry, err := e.service.FetchTerms(ctx)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, registryFetchedUpdate(e.service.Name(), len(registry)))

	e.sendProgress(progress, compareUpdate(len(source), len(registry)))
	comparison, err := Compare(source, registry)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, comparedUpdate(comparison))

	return &DiffResult{
		SourceCount:   len(source),
		RegistryCount: len(registry),
		Comparison:    comparison,
	}, nil
}

// beginRun records a running run, returning nil when history is disabled or the
// record could not be written.
func (e *TermEngine) beginRun(ctx context.Context, sourcePath string, opts RunOpts) *models.SyncRun {
	if e.history == nil {
		return nil
	}

	run := models.NewSyncRun(0, sourcePath, e.registry)
	run.SetDryRun(opts.DryRun)
	run.SetStatus(models.RunStatusRunning)
	now := time.Now()
	run.SetStartedAt(&now)

	if err := e.history.CreateRun(ctx, run); err != nil {
		e.logger.Warn("run history disabled for this run", "error", err)
		return nil
	}
	return run
}

// failRun marks the recorded run failed and returns err unchanged.
func (e *TermEngine) failRun(ctx context.Context, run *models.SyncRun, err error) error {
	if run == nil || e.history == nil {
		return err
	}

	now := time.Now()
	run.SetStatus(models.RunStatusFailed)
	run.SetErrorMessage(err.Error())
	run.SetCompletedAt(&now)

	if uerr := e.history.UpdateRun(ctx, run); uerr != nil {
		e.logger.Warn("failed to record run failure", "run_id", run.ID(), "error", uerr)
	}
	return err
}

// completeRun records the final run state, its outcomes, and the registry snapshot.
func (e *TermEngine) completeRun(ctx context.Context, run *models.SyncRun, result *RunResult, registry []models.Term) {
	if run == nil || e.history == nil {
		return
	}

	status := models.RunStatusCompleted
	if result.Report != nil && !result.Report.AllSucceeded() {
		status = models.RunStatusPartial
	}
	now := time.Now()
	run.SetStatus(status)
	run.SetCompletedAt(&now)

	if err := e.history.UpdateRun(ctx, run); err != nil {
		e.logger.Warn("failed to record run completion", "run_id", run.ID(), "error", err)
	}

	if result.Report != nil {
		if err := e.history.SaveOutcomes(ctx, run.ID(), result.Report); err != nil {
			e.logger.Warn("failed to record creation outcomes", "run_id", run.ID(), "error", err)
		}
	}

	if err := e.history.SaveSnapshot(ctx, e.registry, registry); err != nil {
		e.logger.Warn("failed to cache registry snapshot", "registry", e.registry, "error", err)
	}
}
