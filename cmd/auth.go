package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/saur-hub/watchlist/internal/server"
	"github.com/saur-hub/watchlist/internal/session"
	"github.com/saur-hub/watchlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs the OAuth2 authorization-code flow against GitHub.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for a token, which
// is written to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config := r.cfg()
	if config.GitHub.ClientID == "" || config.GitHub.ClientSecret == "" {
		return fmt.Errorf("%w: github.client_id and github.client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	flow := session.NewFlow(config.GitHub.OAuth2())
	flow.OnTransition(func(from, to session.State) {
		r.logger.Debug("oauth transition", "from", from, "to", to)
	})

	authURL, err := flow.Begin()
	if err != nil {
		return err
	}

	srv, err := server.ListenCallback(config.Server.Addr(), server.NewOAuthHandler(flow), r.logger)
	if err != nil {
		return err
	}

	r.writePlain("Opening browser to authorize with GitHub...\n")
	shared.OpenOrPrint(authURL, r.output)

	waitCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	token, err := srv.Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: no authorization received within %s", shared.ErrTimeout, cmd.Duration("timeout"))
	}
	if err != nil {
		return err
	}

	if err := r.saveToken(token); err != nil {
		return err
	}

	sess, err := r.currentSession(ctx)
	if err != nil {
		return err
	}
	user, _ := sess.User()

	r.writePlainln("✓ Signed in as %s", user.Login)
	r.writePlain("✓ Token saved to %s\n", r.configPath)
	if !sess.CanEdit() {
		r.writePlain("! %s is not the owner (%s); the watchlist is read-only\n", user.Login, sess.Owner())
	}
	return nil
}

// AuthLogout clears the stored access token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	config := r.cfg()
	if config.GitHub.AccessToken == "" {
		return r.writePlain("Not signed in\n")
	}

	config.GitHub.AccessToken = ""
	r.store, r.session = nil, nil
	if r.configPath != "" {
		if err := shared.SaveConfig(r.configPath, config); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	r.logger.Info("signed out")
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the signed-in user and whether they can write the configured repository.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.currentSession(ctx)
	if err != nil {
		return err
	}
	store, err := r.githubStore(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader("GitHub")
	r.writePlain("Repository: %s\n", store.Name())

	user, ok := sess.User()
	if !ok {
		r.writePlain("Authentication: ✗ Not signed in\n")
		return nil
	}
	r.writePlain("Authentication: ✓ %s", user.Login)
	if user.Name != "" {
		r.writePlain(" (%s)", user.Name)
	}
	r.writePlain("\n")

	if sess.CanEdit() {
		r.writePlain("Owner: ✓ %s\n", sess.Owner())
	} else {
		r.writePlain("Owner: ✗ %s is owned by %s\n", store.Name(), sess.Owner())
	}

	repo, err := store.VerifyRepository(ctx)
	if err != nil {
		r.writePlain("Access: ✗ %v\n", err)
		return nil
	}
	access := []string{}
	if repo.Permissions.Pull {
		access = append(access, "read")
	}
	if repo.Permissions.Push {
		access = append(access, "write")
	}
	if len(access) == 0 {
		access = append(access, "none")
	}
	r.writePlain("Access: %s (default branch %s)\n", strings.Join(access, ", "), repo.DefaultBranch)
	return nil
}
