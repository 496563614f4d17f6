package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/termsync/internal/formatter"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/desertthunder/termsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync runs a full reconciliation: compare the workbook against the registry
// and create the terms the registry is missing.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	sourcePath := cmd.StringArg("file")
	if sourcePath == "" {
		return fmt.Errorf("%w: path to an .xlsx workbook is required", shared.ErrMissingArgument)
	}

	dryRun := cmd.Bool("dry-run")

	if r.service == nil {
		return fmt.Errorf("%w: %s service not initialized", shared.ErrServiceUnavailable, r.registry)
	}
	defer r.closeService(ctx, r.service)

	r.logger.Info("starting sync", "source", sourcePath, "registry", r.service.Name(), "dry_run", dryRun)
	r.writePlain("Starting payment term sync...\n")
	r.writePlain("Source: %s\n", sourcePath)
	r.writePlain("Registry: %s\n\n", r.service.Name())

	// Create progress channel and goroutine to handle updates
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ReadSource:
				r.writePlain("📄 %s\n", update.Message)
			case tasks.FetchRegistry:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.CompareTerms:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.CreateMissing:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.SaveRun:
				r.writePlain("💾 %s\n", update.Message)
			}
		}
	}()

	// Run the engine operation
	result, err := r.engine.Run(ctx, sourcePath, tasks.RunOpts{DryRun: dryRun}, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return r.authGuidance(err, r.service)
	}

	if cmd.Bool("json") {
		return formatter.RenderJSON(r.output, result.Comparison, result.Plan, result.Report)
	}

	if dryRun {
		r.writePlain("\n")
		r.writePlainHeader("Dry Run Results")
		if err := formatter.RenderComparison(r.output, result.Comparison); err != nil {
			return err
		}
		return formatter.RenderPlan(r.output, result.Plan)
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Results")
	if err := formatter.Render(r.output, result.Comparison, result.Report); err != nil {
		return err
	}

	if result.RunID != "" {
		r.writePlain("\nRun recorded as %s\n", result.RunID)
	}

	return nil
}

// syncCommand reconciles a workbook against the configured registry.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Create the registry terms the workbook has and the registry lacks",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the plan without modifying the registry",
			},
		},
		Action: r.Sync,
	}
}
