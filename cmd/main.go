package main

import (
	"context"
	"errors"
	"os"

	"github.com/saur-hub/watchlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Exit statuses
const (
	exitOK       = 0
	exitError    = 1
	exitUsage    = 2
	exitAuth     = 3
	exitConflict = 4
	exitNetwork  = 5
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "watchlist",
		Usage:   "Keep a movie & series watchlist in a GitHub repository",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("WATCHLIST_CONFIG"),
			},
		},
		Before:   runner.Before,
		After:    runner.After,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		code := exitCode(err)
		if code == exitOK {
			logger.Warn("not implemented")
		} else {
			logger.Error("application error", "error", err)
		}
		os.Exit(code)
	}
}

// exitCode maps the shared error taxonomy onto process exit statuses.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, shared.ErrNotImplemented):
		return exitOK
	case errors.Is(err, shared.ErrAuth), errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrNotOwner):
		return exitAuth
	case errors.Is(err, shared.ErrConflict):
		return exitConflict
	case errors.Is(err, shared.ErrNetwork), errors.Is(err, shared.ErrTimeout):
		return exitNetwork
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrDuplicate),
		errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidConfig), errors.Is(err, shared.ErrMissingConfig):
		return exitUsage
	default:
		return exitError
	}
}
