package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/termsync/internal/formatter"
	"github.com/desertthunder/termsync/internal/reader"
	"github.com/desertthunder/termsync/internal/shared"
)

// ExportOpts contains configuration for registry exports.
type ExportOpts struct {
	Sheet string // target worksheet (default: the source worksheet name)
}

// ExportResult describes a written registry export.
type ExportResult struct {
	Path     string // workbook path
	Sheet    string // worksheet the terms landed in
	Registry string // service the terms came from
	Count    int    // terms written
}

// Export fetches the registry collection and writes it to an xlsx workbook at path.
//
// The workbook uses the source layout (payment_terms worksheet, header row, name
// and id columns), so an export can be fed straight back into compare. The fetch
// also refreshes the registry snapshot when history is enabled.
func (e *TermEngine) Export(ctx context.Context, path string, opts ExportOpts, progress chan<- ProgressUpdate) (*ExportResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: registry service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Sheet == "" {
		opts.Sheet = reader.SheetName
	}

	e.sendProgress(progress, fetchRegistryUpdate(e.service.Name()))
	if err := e.service.Authenticate(ctx); err != nil {
		return nil, err
	}

	terms, err := e.service.FetchTerms(ctx)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, registryFetchedUpdate(e.service.Name(), len(terms)))

	e.sendProgress(progress, exportTermsUpdate(len(terms), path))
	if err := formatter.WriteTermsWorkbook(terms, opts.Sheet, path); err != nil {
		return nil, fmt.Errorf("failed to write export workbook: %w", err)
	}

	if e.history != nil {
		if err := e.history.SaveSnapshot(ctx, e.registry, terms); err != nil {
			e.logger.Warn("failed to cache registry snapshot", "registry", e.registry, "error", err)
		}
	}

	return &ExportResult{
		Path:     path,
		Sheet:    opts.Sheet,
		Registry: e.service.Name(),
		Count:    len(terms),
	}, nil
}
