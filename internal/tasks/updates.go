package tasks

import (
	"fmt"

	"github.com/desertthunder/termsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ReadSource Phase = iota
	FetchRegistry
	CompareTerms
	CreateMissing
	SaveRun
	ExportTerms
)

func (p Phase) String() string {
	switch p {
	case ReadSource:
		return "read_source"
	case FetchRegistry:
		return "fetch_registry"
	case CompareTerms:
		return "compare_terms"
	case CreateMissing:
		return "create_missing"
	case SaveRun:
		return "save_run"
	case ExportTerms:
		return "export_terms"
	default:
		return ""
	}
}

func readSourceUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reading payment terms from %s...", path),
	}
}

func sourceReadUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d terms in the source workbook", count),
	}
}

func fetchRegistryUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRegistry,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching terms from %s...", name),
	}
}

func registryFetchedUpdate(name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRegistry,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s holds %d terms", name, count),
	}
}

func compareUpdate(sourceCount, registryCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CompareTerms,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Comparing %d source terms against %d registry terms...", sourceCount, registryCount),
	}
}

func comparedUpdate(c *models.Comparison) ProgressUpdate {
	return ProgressUpdate{
		Phase: CompareTerms,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("%d matching, %d mismatched, %d missing, %d extra",
			c.Matching, len(c.Mismatched), len(c.OnlyInSource), len(c.OnlyInRegistry)),
		Data: c,
	}
}

func createMissingUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateMissing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating %d missing terms...", count),
	}
}

func createdUpdate(report *models.CreationReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateMissing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Created %d terms, %d failed", len(report.Created), len(report.Failed)),
		Data:    report,
	}
}

func saveRunUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveRun,
		Step:    1,
		Total:   1,
		Message: "Recording run history...",
	}
}

func exportTermsUpdate(count int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTerms,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %d terms to %s...", count, path),
	}
}
