package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/saur-hub/watchlist/internal/repositories"
	"github.com/saur-hub/watchlist/internal/services"
	"github.com/saur-hub/watchlist/internal/session"
	"github.com/saur-hub/watchlist/internal/shared"
	"github.com/saur-hub/watchlist/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built on first use so commands like `setup config` work without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	store      *services.GitHubStore
	omdb       *services.OMDBService
	db         *sql.DB
	session    *session.Session
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      *services.GitHubStore
	OMDB       *services.OMDBService
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		omdb:       opts.OMDB,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, listCommand, searchCommand, addCommand, removeCommand, exportCommand,
		historyCommand, cacheCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config. A missing file falls back to the embedded defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config != nil {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	config, err := shared.LoadConfigOrDefault(r.configPath)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	r.config = config

	if err := shared.SetLogLevel(r.logger, config.Log.Level); err != nil {
		r.logger.Warn("ignoring log level", "error", err)
	}
	return ctx, nil
}

// After releases the database handle and the services that depend on it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.omdb = nil, nil
	return err
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// githubStore returns the store, authenticating with the configured access token when there is one.
func (r *Runner) githubStore(ctx context.Context) (*services.GitHubStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	config := r.cfg()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := r.httpClient
	if token := config.GitHub.AccessToken; token != "" {
		client = services.NewTokenClient(context.WithValue(ctx, oauth2.HTTPClient, r.httpClient), token)
	}
	r.store = services.NewGitHubStore(config.GitHub, client)
	return r.store, nil
}

// database opens the local cache and journal, running migrations on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

// metadata returns the OMDB client, backed by the title cache when the database is available.
func (r *Runner) metadata() (*services.OMDBService, error) {
	if r.omdb != nil {
		return r.omdb, nil
	}

	config := r.cfg().OMDB
	if config.APIKey == "" && config.ProxyURL == "" {
		return nil, fmt.Errorf("%w: set omdb.api_key or omdb.proxy_url in %s", shared.ErrMissingCredentials, r.configPath)
	}

	var cache services.TitleCache
	if db, err := r.database(); err != nil {
		r.logger.Warn("title cache disabled", "error", err)
	} else {
		cache = repositories.NewTitleCacheAdapter(repositories.NewTitleRepository(db))
	}

	r.omdb = services.NewOMDBService(config, r.httpClient, cache)
	return r.omdb, nil
}

// currentSession resolves the configured token to a GitHub user. An invalid token yields a signed-out session.
func (r *Runner) currentSession(ctx context.Context) (*session.Session, error) {
	if r.session != nil {
		return r.session, nil
	}

	config := r.cfg()
	sess := session.New(config.GitHub.Owner)
	r.session = sess
	if config.GitHub.AccessToken == "" {
		return sess, nil
	}

	store, err := r.githubStore(ctx)
	if err != nil {
		return nil, err
	}

	user, err := store.User(ctx)
	switch {
	case errors.Is(err, shared.ErrAuth):
		r.logger.Warn("stored access token was rejected; run `watchlist auth login`", "error", err)
		return sess, nil
	case err != nil:
		return nil, err
	}

	if err := sess.SignIn(config.GitHub.AccessToken, session.User{Login: user.Login, Name: user.Name}); err != nil {
		return nil, err
	}
	return sess, nil
}

// controller wires a [tasks.Controller] for the configured document. progress may be nil.
func (r *Runner) controller(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Controller, error) {
	store, err := r.githubStore(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := r.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	opts := tasks.ControllerOpts{
		Store:    store,
		Session:  sess,
		Config:   r.cfg().Watchlist,
		Path:     r.cfg().GitHub.Path,
		Progress: progress,
		Logger:   r.logger,
	}
	if omdb, err := r.metadata(); err == nil {
		opts.Metadata = omdb
	}
	if db, err := r.database(); err != nil {
		r.logger.Warn("save journal disabled", "error", err)
	} else {
		opts.Journal = repositories.NewSaveRepository(db)
	}

	return tasks.NewController(opts), nil
}

// saveToken stores an access token in the config and persists it when a config path is known.
func (r *Runner) saveToken(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := r.config.GitHub.Update(token); err != nil {
		return fmt.Errorf("failed to update github configuration: %w", err)
	}
	r.store, r.session = nil, nil

	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
