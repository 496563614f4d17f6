package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/termsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the desktop bridge
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	path := cmd.StringArg("path")

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, !cmd.Bool("json"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIPost makes a direct POST request to the desktop bridge
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	path := cmd.StringArg("path")
	data := cmd.String("data")

	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	r.logger.Info("POST request", "path", path)

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	resp, err := r.api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, !cmd.Bool("json"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIXML posts a raw QBXML document to the desktop bridge.
//
// Useful for replaying a request the sync engine generated, or probing what a
// bridge version supports.
func (r *Runner) APIXML(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	path := cmd.StringArg("path")
	data := cmd.String("data")
	file := cmd.String("file")

	if data == "" && file == "" {
		return fmt.Errorf("%w: either --data or --file must be provided", shared.ErrMissingArgument)
	}

	if data != "" && file != "" {
		return fmt.Errorf("%w: cannot specify both --data and --file", shared.ErrInvalidArgument)
	}

	body := []byte(data)
	if file != "" {
		var err error
		if body, err = os.ReadFile(file); err != nil {
			return fmt.Errorf("failed to read request file: %w", err)
		}
	}

	r.logger.Info("POST request", "path", path, "bytes", len(body))

	resp, err := r.api.PostXML(ctx, path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIDelete makes a direct DELETE request to the desktop bridge
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	path := cmd.StringArg("path")

	r.logger.Info("DELETE request", "path", path)

	resp, err := r.api.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, !cmd.Bool("json"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// apiCommand handles direct requests against the QuickBooks Desktop bridge
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct requests against the QuickBooks Desktop bridge",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the bridge, prints the response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "xml",
				Usage: "Direct POST with a raw QBXML body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "QBXML body to send",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the QBXML body from a file",
					},
				},
				Action: r.APIXML,
			},
			{
				Name:  "delete",
				Usage: "Direct DELETE to the bridge",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Action: r.APIDelete,
			},
		},
	}
}
