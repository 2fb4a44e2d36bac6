package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/saur-hub/watchlist/internal/services"
	"github.com/saur-hub/watchlist/internal/shared"
	"github.com/saur-hub/watchlist/internal/tasks"
	"github.com/saur-hub/watchlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for browsing and editing the watchlist.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.cfg().Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if err := shared.SetLogLevel(fileLogger, r.cfg().Log.Level); err != nil {
		fileLogger.Warn("ignoring log level", "error", err)
	}
	r.SetLogger(fileLogger)

	progress := make(chan tasks.ProgressUpdate, 64)
	ctrl, err := r.controller(ctx, progress)
	if err != nil {
		return err
	}

	var metadata services.MetadataProvider
	if omdb, err := r.metadata(); err == nil {
		metadata = omdb
	} else {
		r.logger.Warn("search disabled", "error", err)
	}

	model := ui.NewModel(ctx, ctrl, metadata, progress)
	p := tea.NewProgram(model, tea.WithAltScreen())

	_, runErr := p.Run()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := ctrl.Close(closeCtx); err != nil {
		return fmt.Errorf("failed to save pending changes: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	return nil
}
