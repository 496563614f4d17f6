package models

import (
	"fmt"
	"time"
)

// CreationOutcome records the result of one term create attempt within a run.
type CreationOutcome struct {
	id        string
	sequence  int
	runID     string
	termID    int
	termName  string
	created   bool
	reason    string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewCreationOutcome creates an outcome row for the given run and term.
func NewCreationOutcome(sequence int, runID string, term Term) *CreationOutcome {
	now := time.Now()
	return &CreationOutcome{
		sequence:  sequence,
		runID:     runID,
		termID:    term.ID,
		termName:  term.Name,
		createdAt: now,
		updatedAt: now,
	}
}

func (o *CreationOutcome) ID() string                  { return o.id }
func (o *CreationOutcome) SetID(id string)             { o.id = id }
func (o *CreationOutcome) Sequence() int               { return o.sequence }
func (o *CreationOutcome) RunID() string               { return o.runID }
func (o *CreationOutcome) TermID() int                 { return o.termID }
func (o *CreationOutcome) TermName() string            { return o.termName }
func (o *CreationOutcome) Created() bool               { return o.created }
func (o *CreationOutcome) SetCreated(v bool)           { o.created = v }
func (o *CreationOutcome) Reason() string              { return o.reason }
func (o *CreationOutcome) SetReason(reason string)     { o.reason = reason }
func (o *CreationOutcome) CreatedAt() time.Time        { return o.createdAt }
func (o *CreationOutcome) UpdatedAt() time.Time        { return o.updatedAt }
func (o *CreationOutcome) SetUpdatedAt(t time.Time)    { o.updatedAt = t }
func (o *CreationOutcome) DeletedAt() *time.Time       { return o.deletedAt }
func (o *CreationOutcome) SetDeletedAt(t *time.Time)   { o.deletedAt = t }

// Term reconstructs the term this outcome describes.
func (o *CreationOutcome) Term() Term {
	return Term{Name: o.termName, ID: o.termID}
}

// Validate checks that the outcome references a run and names a term.
func (o *CreationOutcome) Validate() error {
	if o.runID == "" {
		return fmt.Errorf("run id is required")
	}
	if o.termName == "" {
		return fmt.Errorf("term name is required")
	}
	if !o.created && o.reason == "" {
		return fmt.Errorf("failed outcome requires a reason")
	}
	return nil
}
