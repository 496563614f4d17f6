package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/termsync/internal/formatter"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/desertthunder/termsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Compare reads the workbook, fetches the registry, and reports the partition.
//
// The registry is never mutated; the exit hint points at sync when terms are
// missing.
func (r *Runner) Compare(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	sourcePath := cmd.StringArg("file")
	if sourcePath == "" {
		return fmt.Errorf("%w: path to an .xlsx workbook is required", shared.ErrMissingArgument)
	}

	engine, svc, err := r.resolveEngine(cmd.String("service"))
	if err != nil {
		return err
	}
	defer r.closeService(ctx, svc)

	r.logger.Info("comparing terms", "source", sourcePath, "registry", svc.Name())

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("📥 %s\n", update.Message)
		}
	}()

	result, err := engine.Diff(ctx, sourcePath, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return r.authGuidance(err, svc)
	}

	if cmd.Bool("json") {
		return formatter.RenderJSON(r.output, result.Comparison, nil, nil)
	}

	r.writePlain("\n")
	r.writePlainHeader("Comparison Results")
	if err := formatter.RenderComparison(r.output, result.Comparison); err != nil {
		return err
	}

	if !result.Comparison.InSync() {
		r.writePlain("\nRun 'termsync sync %s' to create the %d missing terms.\n", sourcePath, len(result.Comparison.OnlyInSource))
	}

	return nil
}

// compareCommand reports workbook/registry drift without touching the registry.
func compareCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Compare workbook terms against the registry",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "service",
				Usage: "Registry to compare against (desktop or online)",
			},
		},
		Action: r.Compare,
	}
}
