package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/termsync/internal/models"
)

var (
	_ list.Item = bucketItem{}
	_ list.Item = termItem{}
	_ list.Item = mismatchItem{}
)

// bucketKind identifies one partition of a comparison.
type bucketKind int

const (
	bucketOnlyInSource bucketKind = iota
	bucketMismatched
	bucketOnlyInRegistry
	bucketMatching
)

func (k bucketKind) title() string {
	switch k {
	case bucketOnlyInSource:
		return "Missing from registry"
	case bucketMismatched:
		return "Name mismatches"
	case bucketOnlyInRegistry:
		return "Registry only"
	case bucketMatching:
		return "Matching"
	default:
		return ""
	}
}

// bucketItem wraps one comparison bucket to implement [list.Item].
type bucketItem struct {
	kind  bucketKind
	count int
}

func (i bucketItem) FilterValue() string { return i.kind.title() }
func (i bucketItem) Title() string       { return i.kind.title() }
func (i bucketItem) Description() string {
	switch i.kind {
	case bucketOnlyInSource:
		return fmt.Sprintf("%d terms a sync would create", i.count)
	case bucketMismatched:
		return fmt.Sprintf("%d ids whose names disagree", i.count)
	case bucketOnlyInRegistry:
		return fmt.Sprintf("%d terms the source never mentions", i.count)
	case bucketMatching:
		return fmt.Sprintf("%d terms already in agreement", i.count)
	default:
		return ""
	}
}

// termItem wraps [models.Term] to implement [list.Item].
type termItem struct {
	term models.Term
}

func (i termItem) FilterValue() string { return i.term.Name }
func (i termItem) Title() string       { return i.term.Name }
func (i termItem) Description() string { return fmt.Sprintf("id %d", i.term.ID) }

// mismatchItem wraps [models.NameMismatch] to implement [list.Item].
type mismatchItem struct {
	mismatch models.NameMismatch
}

func (i mismatchItem) FilterValue() string { return i.mismatch.SourceName }
func (i mismatchItem) Title() string       { return i.mismatch.SourceName }
func (i mismatchItem) Description() string {
	return fmt.Sprintf("id %d: registry name %q", i.mismatch.ID, i.mismatch.RegistryName)
}
