package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/termsync/internal/formatter"
	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/repositories"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/desertthunder/termsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TermsList fetches and prints the registry's payment term collection.
//
// With --cached the terms come from the snapshot recorded on the last sync or
// export instead of a live fetch, so no registry session is needed.
func (r *Runner) TermsList(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	if cmd.Bool("cached") {
		return r.cachedTerms(cmd)
	}

	_, svc, err := r.resolveEngine(cmd.String("service"))
	if err != nil {
		return err
	}
	defer r.closeService(ctx, svc)

	r.logger.Info("listing registry terms", "registry", svc.Name())

	if err := svc.Authenticate(ctx); err != nil {
		return r.authGuidance(err, svc)
	}

	terms, err := svc.FetchTerms(ctx)
	if err != nil {
		return r.authGuidance(err, svc)
	}

	if cmd.Bool("json") {
		return r.writeJSON(terms, true)
	}

	if cmd.Bool("csv") {
		return formatter.RenderTermsCSV(r.output, terms)
	}

	r.writePlain("%s holds ", svc.Name())
	return formatter.RenderTerms(r.output, terms)
}

// cachedTerms prints the snapshot left by the last registry fetch.
func (r *Runner) cachedTerms(cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	registry := cmd.String("service")
	if registry == "" {
		registry = r.registry
	}
	if registry != models.RegistryDesktop && registry != models.RegistryOnline {
		return fmt.Errorf("%w: unknown registry '%s' (must be 'desktop' or 'online')", shared.ErrInvalidArgument, registry)
	}

	terms, err := repositories.NewSnapshotRepository(r.db).Terms(registry)
	if err != nil {
		return fmt.Errorf("failed to read cached terms: %w", err)
	}

	if len(terms) == 0 {
		return r.writePlain("No cached terms for %s; run 'termsync sync' or 'termsync terms export' to record a snapshot\n", registry)
	}

	if cmd.Bool("json") {
		return r.writeJSON(terms, true)
	}

	if cmd.Bool("csv") {
		return formatter.RenderTermsCSV(r.output, terms)
	}

	r.writePlain("%s snapshot holds ", registry)
	return formatter.RenderTerms(r.output, terms)
}

// TermsExport writes the registry's term collection to an xlsx workbook.
//
// The workbook uses the source layout, so the file feeds straight back into
// compare and sync.
func (r *Runner) TermsExport(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	outPath := cmd.StringArg("file")
	if outPath == "" {
		return fmt.Errorf("%w: output .xlsx path is required", shared.ErrMissingArgument)
	}

	engine, svc, err := r.resolveEngine(cmd.String("service"))
	if err != nil {
		return err
	}
	defer r.closeService(ctx, svc)

	r.logger.Info("exporting registry terms", "registry", svc.Name(), "path", outPath)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchRegistry:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ExportTerms:
				r.writePlain("📄 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Export(ctx, outPath, tasks.ExportOpts{Sheet: cmd.String("sheet")}, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return r.authGuidance(err, svc)
	}

	r.writePlainln("✓ Exported %d terms from %s", result.Count, result.Registry)
	r.writePlain("  Workbook: %s\n", result.Path)
	r.writePlain("  Worksheet: %s\n", result.Sheet)

	return nil
}

// termsCommand groups read-only operations on the registry's term collection.
func termsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "terms",
		Usage: "Inspect and export registry payment terms",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the payment terms defined in the registry",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "service",
						Usage: "Registry to read (desktop or online)",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output CSV",
					},
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Read the last recorded snapshot instead of the registry",
					},
				},
				Action: r.TermsList,
			},
			{
				Name:  "export",
				Usage: "Write the registry's payment terms to an xlsx workbook",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "file",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "service",
						Usage: "Registry to read (desktop or online)",
					},
					&cli.StringFlag{
						Name:  "sheet",
						Usage: "Worksheet name (default: payment_terms)",
					},
				},
				Action: r.TermsExport,
			},
		},
	}
}
