package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/termsync/internal/formatter"
	"github.com/desertthunder/termsync/internal/repositories"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// requireDB guards history commands against a missing run database.
func (r *Runner) requireDB() error {
	if r.db == nil {
		return fmt.Errorf("%w: no run database configured; run 'termsync setup' first", shared.ErrServiceUnavailable)
	}
	return nil
}

// RunsList prints recorded reconciliation runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	if err := r.requireDB(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if registry := cmd.String("registry"); registry != "" {
		criteria["registry"] = registry
	}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}

	r.logger.Info("listing runs", "criteria", criteria)

	runs, err := repositories.NewSyncRunRepository(r.db).List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	return formatter.RenderRuns(r.output, runs)
}

// RunsShow prints one run with its per-term outcomes.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	if err := r.requireDB(); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrMissingArgument)
	}

	run, err := repositories.NewSyncRunRepository(r.db).Get(id)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	outcomes, err := repositories.NewOutcomeRepository(r.db).ListByRun(id)
	if err != nil {
		return fmt.Errorf("failed to load outcomes: %w", err)
	}

	return formatter.RenderRun(r.output, run, outcomes)
}

// RunsDelete removes a run and its outcomes from the history.
func (r *Runner) RunsDelete(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	if err := r.requireDB(); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrMissingArgument)
	}

	r.logger.Info("deleting run", "id", id)

	if err := repositories.NewOutcomeRepository(r.db).DeleteByRun(id); err != nil {
		return fmt.Errorf("failed to delete outcomes: %w", err)
	}

	if err := repositories.NewSyncRunRepository(r.db).Delete(id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return r.writePlain("✓ Run %s deleted\n", id)
}

// runsCommand groups run history operations.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect recorded reconciliation runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded runs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "registry",
						Usage: "Only runs against this registry (desktop or online)",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status",
					},
				},
				Action: r.RunsList,
			},
			{
				Name:  "show",
				Usage: "Show one run with its per-term outcomes",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.RunsShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a run and its outcomes",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.RunsDelete,
			},
		},
	}
}
