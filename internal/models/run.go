package models

import (
	"fmt"
	"time"
)

// Statuses recorded on a [SyncRun].
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "completed_with_errors"
	RunStatusFailed    = "failed"
)

// Registry identifiers recorded on runs and snapshots.
const (
	RegistryDesktop = "desktop"
	RegistryOnline  = "online"
)

// SyncRun tracks a single reconciliation run from workbook read through registry sync.
//
// Counts describe the comparison partition (total, matching, mismatched, missing,
// extra) and the sync outcome (created, failed). A dry run records the comparison
// but never reaches the create phase.
type SyncRun struct {
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
	errorMessage    string
	startedAt       *time.Time
	completedAt     *time.Time
	createdAt       time.Time
	updatedAt       time.Time
	deletedAt       *time.Time
}

// NewSyncRun creates a pending run for the given workbook path and registry.
func NewSyncRun(sequence int, sourcePath, registry string) *SyncRun {
	now := time.Now()
	return &SyncRun{
		sequence:   sequence,
		sourcePath: sourcePath,
		registry:   registry,
		status:     RunStatusPending,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (r *SyncRun) ID() string         { return r.id }
func (r *SyncRun) SetID(id string)    { r.id = id }
func (r *SyncRun) Sequence() int      { return r.sequence }
func (r *SyncRun) SourcePath() string { return r.sourcePath }
func (r *SyncRun) Registry() string   { return r.registry }
func (r *SyncRun) Status() string     { return r.status }
func (r *SyncRun) SetStatus(s string) { r.status = s }
func (r *SyncRun) DryRun() bool       { return r.dryRun }
func (r *SyncRun) SetDryRun(v bool)   { r.dryRun = v }

func (r *SyncRun) TermsTotal() int             { return r.termsTotal }
func (r *SyncRun) SetTermsTotal(n int)         { r.termsTotal = n }
func (r *SyncRun) TermsMatching() int          { return r.termsMatching }
func (r *SyncRun) SetTermsMatching(n int)      { r.termsMatching = n }
func (r *SyncRun) TermsMismatched() int        { return r.termsMismatched }
func (r *SyncRun) SetTermsMismatched(n int)    { r.termsMismatched = n }
func (r *SyncRun) TermsMissing() int           { return r.termsMissing }
func (r *SyncRun) SetTermsMissing(n int)       { r.termsMissing = n }
func (r *SyncRun) TermsExtra() int             { return r.termsExtra }
func (r *SyncRun) SetTermsExtra(n int)         { r.termsExtra = n }
func (r *SyncRun) TermsCreated() int           { return r.termsCreated }
func (r *SyncRun) SetTermsCreated(n int)       { r.termsCreated = n }
func (r *SyncRun) TermsFailed() int            { return r.termsFailed }
func (r *SyncRun) SetTermsFailed(n int)        { r.termsFailed = n }
func (r *SyncRun) ErrorMessage() string        { return r.errorMessage }
func (r *SyncRun) SetErrorMessage(msg string)  { r.errorMessage = msg }
func (r *SyncRun) StartedAt() *time.Time       { return r.startedAt }
func (r *SyncRun) SetStartedAt(t *time.Time)   { r.startedAt = t }
func (r *SyncRun) CompletedAt() *time.Time     { return r.completedAt }
func (r *SyncRun) SetCompletedAt(t *time.Time) { r.completedAt = t }
func (r *SyncRun) CreatedAt() time.Time        { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time        { return r.updatedAt }
func (r *SyncRun) SetUpdatedAt(t time.Time)    { r.updatedAt = t }
func (r *SyncRun) DeletedAt() *time.Time       { return r.deletedAt }
func (r *SyncRun) SetDeletedAt(t *time.Time)   { r.deletedAt = t }

// ApplyComparison copies partition counts from a comparison onto the run.
func (r *SyncRun) ApplyComparison(c *Comparison) {
	r.termsTotal = c.SourceTotal()
	r.termsMatching = c.Matching
	r.termsMismatched = len(c.Mismatched)
	r.termsMissing = len(c.OnlyInSource)
	r.termsExtra = len(c.OnlyInRegistry)
}

// ApplyReport copies create outcomes from a report onto the run.
func (r *SyncRun) ApplyReport(report *CreationReport) {
	r.termsCreated = len(report.Created)
	r.termsFailed = len(report.Failed)
}

// Validate checks that the run has a workbook path, a known registry, and a known status.
func (r *SyncRun) Validate() error {
	if r.sourcePath == "" {
		return fmt.Errorf("source path is required")
	}
	if r.registry != RegistryDesktop && r.registry != RegistryOnline {
		return fmt.Errorf("unknown registry: %s", r.registry)
	}
	switch r.status {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusPartial, RunStatusFailed:
	default:
		return fmt.Errorf("unknown status: %s", r.status)
	}
	if r.termsTotal < 0 || r.termsCreated < 0 || r.termsFailed < 0 {
		return fmt.Errorf("term counts cannot be negative")
	}
	return nil
}
