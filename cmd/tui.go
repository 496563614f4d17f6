package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/desertthunder/termsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for a comparison session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	sourcePath := cmd.StringArg("file")
	if sourcePath == "" {
		return fmt.Errorf("%w: path to an .xlsx workbook is required", shared.ErrMissingArgument)
	}

	engine, svc, err := r.resolveEngine(cmd.String("service"))
	if err != nil {
		return err
	}
	defer r.closeService(ctx, svc)

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/termsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, engine, svc.Name(), sourcePath)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiCommand launches the interactive comparison browser.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse a comparison interactively",
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
		Action: r.TUI,
	}
}
