package models

import "fmt"

// Term represents a payment term as it appears in a source workbook or in the registry.
// The integer ID is the reconciliation key; names are compared byte for byte.
type Term struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// Label returns a short human-readable identifier for log lines and reports.
func (t Term) Label() string {
	return fmt.Sprintf("%q (id %d)", t.Name, t.ID)
}

// NameMismatch records a term id that exists on both sides under different names.
type NameMismatch struct {
	ID           int    `json:"id"`
	SourceName   string `json:"source_name"`
	RegistryName string `json:"registry_name"`
}

// Comparison is the partition produced by comparing source terms against registry terms.
//
// Every source term lands in exactly one of Matching, Mismatched, or OnlyInSource,
// and every registry term in exactly one of Matching, Mismatched, or OnlyInRegistry.
// Slices preserve the encounter order of their originating side.
type Comparison struct {
	Matching       int            `json:"matching"`
	Mismatched     []NameMismatch `json:"mismatched"`
	OnlyInSource   []Term         `json:"only_in_source"`
	OnlyInRegistry []Term         `json:"only_in_registry"`
}

// InSync reports whether no source terms are missing from the registry.
func (c *Comparison) InSync() bool {
	return len(c.OnlyInSource) == 0
}

// SourceTotal returns how many source terms participated in the comparison.
func (c *Comparison) SourceTotal() int {
	return c.Matching + len(c.Mismatched) + len(c.OnlyInSource)
}

// RegistryTotal returns how many registry terms participated in the comparison.
func (c *Comparison) RegistryTotal() int {
	return c.Matching + len(c.Mismatched) + len(c.OnlyInRegistry)
}

// CreationFailure records a term the registry rejected along with the reason.
type CreationFailure struct {
	Term   Term   `json:"term"`
	Reason string `json:"reason"`
}

// CreationReport summarizes the per-term outcomes of a batch create call.
// A failed term never aborts the batch; it is collected here instead.
type CreationReport struct {
	Created []Term            `json:"created"`
	Failed  []CreationFailure `json:"failed"`
}

// AllSucceeded reports whether every requested term was created.
func (r *CreationReport) AllSucceeded() bool {
	return len(r.Failed) == 0
}

// Total returns how many terms the batch attempted.
func (r *CreationReport) Total() int {
	return len(r.Created) + len(r.Failed)
}
