package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/saur-hub/watchlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the GitHub API with the stored credential
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: API path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	store, err := r.githubStore(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := store.API().Get(ctx, path, nil)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if !resp.IsJSON {
		r.output.Write(resp.Body)
		r.output.Write([]byte("\n"))
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp.JSONData, false)
	}
	return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
}
