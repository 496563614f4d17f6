// package formatter renders reconciliation results to text, JSON, CSV, and xlsx
package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/xuri/excelize/v2"
)

// Render writes the full human-readable reconciliation report to w: the
// four-bucket summary, the per-bucket listings, and the sync ending.
func Render(w io.Writer, c *models.Comparison, report *models.CreationReport) error {
	if err := RenderComparison(w, c); err != nil {
		return err
	}
	return RenderOutcome(w, report)
}

// RenderComparison writes the four-bucket summary and listings to w.
func RenderComparison(w io.Writer, c *models.Comparison) error {
	var err error

	write := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	write("Compared %d source terms against %d registry terms.\n\n", c.SourceTotal(), c.RegistryTotal())
	write("  Matching:         %d\n", c.Matching)
	write("  Name mismatches:  %d\n", len(c.Mismatched))
	write("  Only in source:   %d\n", len(c.OnlyInSource))
	write("  Only in registry: %d\n", len(c.OnlyInRegistry))

	if len(c.Mismatched) > 0 {
		write("\nName mismatches (same id, different name):\n")
		for _, m := range c.Mismatched {
			write("  id %d: source %q, registry %q\n", m.ID, m.SourceName, m.RegistryName)
		}
	}

	if len(c.OnlyInSource) > 0 {
		write("\nOnly in source (missing from the registry):\n")
		for _, term := range c.OnlyInSource {
			write("  %s\n", term.Label())
		}
	}

	if len(c.OnlyInRegistry) > 0 {
		write("\nOnly in registry (not in the source workbook):\n")
		for _, term := range c.OnlyInRegistry {
			write("  %s\n", term.Label())
		}
	}

	return err
}

// RenderPlan writes the dry-run listing of terms a sync would create.
func RenderPlan(w io.Writer, plan []models.Term) error {
	if len(plan) == 0 {
		_, err := fmt.Fprintf(w, "\nDry run: nothing to sync.\n")
		return err
	}

	if _, err := fmt.Fprintf(w, "\nDry run: %d terms would be created:\n", len(plan)); err != nil {
		return err
	}
	for _, term := range plan {
		if _, err := fmt.Fprintf(w, "  %s\n", term.Label()); err != nil {
			return err
		}
	}
	return nil
}

// Summary returns the one-line sync ending for a report.
//
// The three cases are: nothing to sync (nil or empty report), sync fully
// succeeded, and sync partially failed.
func Summary(report *models.CreationReport) string {
	switch {
	case report == nil || report.Total() == 0:
		return "Nothing to sync."
	case report.AllSucceeded():
		return fmt.Sprintf("Sync fully succeeded (%d created).", len(report.Created))
	default:
		return fmt.Sprintf("Sync partially failed (%d created, %d failed).", len(report.Created), len(report.Failed))
	}
}

// RenderOutcome writes the sync ending to w, listing failed terms with the
// registry's reason when the sync partially failed.
func RenderOutcome(w io.Writer, report *models.CreationReport) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", Summary(report)); err != nil {
		return err
	}

	if report == nil || report.AllSucceeded() {
		return nil
	}

	for _, failure := range report.Failed {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", failure.Term.Label(), failure.Reason); err != nil {
			return err
		}
	}
	return nil
}

// ReportPayload is the JSON shape of a full reconciliation report.
type ReportPayload struct {
	Comparison *models.Comparison     `json:"comparison"`
	Plan       []models.Term          `json:"plan,omitempty"`
	Sync       *models.CreationReport `json:"sync,omitempty"`
	Outcome    string                 `json:"outcome"`
}

// RenderJSON writes the reconciliation report to w as indented JSON.
func RenderJSON(w io.Writer, c *models.Comparison, plan []models.Term, report *models.CreationReport) error {
	payload := ReportPayload{
		Comparison: c,
		Plan:       plan,
		Sync:       report,
		Outcome:    Summary(report),
	}

	data, err := shared.MarshalJSON(payload, true)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

// RenderTerms writes a plain listing of a term collection to w.
func RenderTerms(w io.Writer, terms []models.Term) error {
	if _, err := fmt.Fprintf(w, "%d terms:\n", len(terms)); err != nil {
		return err
	}
	for _, term := range terms {
		if _, err := fmt.Fprintf(w, "  %4d  %s\n", term.ID, term.Name); err != nil {
			return err
		}
	}
	return nil
}

// RenderTermsCSV writes a term collection to w as CSV with columns: ID, Name
func RenderTermsCSV(w io.Writer, terms []models.Term) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"ID", "Name"}); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, term := range terms {
		if err := writer.Write([]string{strconv.Itoa(term.ID), term.Name}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// WriteTermsWorkbook writes a term collection to an xlsx workbook at path.
//
// The worksheet uses the source layout: a header row, names in column A, ids in
// column B. Callers pass the source worksheet name to produce files that can be
// read back as a source.
func WriteTermsWorkbook(terms []models.Term, sheet, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	f.SetCellValue(sheet, "A1", "Name")
	f.SetCellValue(sheet, "B1", "ID")

	for i, term := range terms {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(sheet, "A"+row, term.Name)
		f.SetCellValue(sheet, "B"+row, term.ID)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// RenderRuns writes a one-line-per-run listing of run history to w.
func RenderRuns(w io.Writer, runs []*models.SyncRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No recorded runs.")
		return err
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  #%d  %-10s  %-22s  %s", run.ID(), run.Sequence(), run.Registry(), run.Status(), run.SourcePath())
		if run.DryRun() {
			line += "  (dry run)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderRun writes the detail view of one run and its outcomes to w.
func RenderRun(w io.Writer, run *models.SyncRun, outcomes []*models.CreationOutcome) error {
	var err error

	write := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	write("Run %s (#%d)\n", run.ID(), run.Sequence())
	write("  Source:   %s\n", run.SourcePath())
	write("  Registry: %s\n", run.Registry())
	write("  Status:   %s\n", run.Status())
	if run.DryRun() {
		write("  Mode:     dry run\n")
	}
	if run.StartedAt() != nil {
		write("  Started:  %s\n", run.StartedAt().Format("2006-01-02 15:04:05"))
	}
	if run.CompletedAt() != nil {
		write("  Finished: %s\n", run.CompletedAt().Format("2006-01-02 15:04:05"))
	}
	if run.ErrorMessage() != "" {
		write("  Error:    %s\n", run.ErrorMessage())
	}

	write("\n  Matching:         %d\n", run.TermsMatching())
	write("  Name mismatches:  %d\n", run.TermsMismatched())
	write("  Only in source:   %d\n", run.TermsMissing())
	write("  Only in registry: %d\n", run.TermsExtra())
	write("  Created:          %d\n", run.TermsCreated())
	write("  Failed:           %d\n", run.TermsFailed())

	if len(outcomes) > 0 {
		write("\nOutcomes:\n")
		for _, outcome := range outcomes {
			if outcome.Created() {
				write("  created %s\n", outcome.Term().Label())
			} else {
				write("  failed  %s: %s\n", outcome.Term().Label(), outcome.Reason())
			}
		}
	}

	return err
}
