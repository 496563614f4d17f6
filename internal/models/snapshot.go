package models

import (
	"fmt"
	"time"
)

// TermSnapshot caches a registry term from the most recent fetch.
//
// Snapshots let the runs and terms commands show registry state without
// a live registry connection. They are keyed by (registry, term_id).
type TermSnapshot struct {
	id        string
	sequence  int
	registry  string
	termID    int
	name      string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewTermSnapshot creates a snapshot of a registry term.
func NewTermSnapshot(sequence int, registry string, term Term) *TermSnapshot {
	now := time.Now()
	return &TermSnapshot{
		sequence:  sequence,
		registry:  registry,
		termID:    term.ID,
		name:      term.Name,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *TermSnapshot) ID() string                { return s.id }
func (s *TermSnapshot) SetID(id string)           { s.id = id }
func (s *TermSnapshot) Sequence() int             { return s.sequence }
func (s *TermSnapshot) Registry() string          { return s.registry }
func (s *TermSnapshot) TermID() int               { return s.termID }
func (s *TermSnapshot) Name() string              { return s.name }
func (s *TermSnapshot) SetName(name string)       { s.name = name }
func (s *TermSnapshot) CreatedAt() time.Time      { return s.createdAt }
func (s *TermSnapshot) UpdatedAt() time.Time      { return s.updatedAt }
func (s *TermSnapshot) SetUpdatedAt(t time.Time)  { s.updatedAt = t }
func (s *TermSnapshot) DeletedAt() *time.Time     { return s.deletedAt }
func (s *TermSnapshot) SetDeletedAt(t *time.Time) { s.deletedAt = t }

// Term reconstructs the cached term.
func (s *TermSnapshot) Term() Term {
	return Term{Name: s.name, ID: s.termID}
}

// Validate checks that the snapshot names a registry and a term.
func (s *TermSnapshot) Validate() error {
	if s.registry != RegistryDesktop && s.registry != RegistryOnline {
		return fmt.Errorf("unknown registry: %s", s.registry)
	}
	if s.name == "" {
		return fmt.Errorf("term name is required")
	}
	return nil
}
