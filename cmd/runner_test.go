package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/services"
	"github.com/saur-hub/watchlist/internal/shared"
	tu "github.com/saur-hub/watchlist/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const testPath = "data/watchlist.json"

var omdbTitles = map[string]models.Title{
	"tt0133093": {IMDbID: "tt0133093", Title: "The Matrix", Year: "1999", Type: "movie", IMDbRating: "8.7", Plot: "A hacker learns the truth."},
	"tt0234215": {IMDbID: "tt0234215", Title: "The Matrix Reloaded", Year: "2003", Type: "movie", IMDbRating: "7.2"},
	"tt0903747": {IMDbID: "tt0903747", Title: "Breaking Bad", Year: "2008–2013", Type: "series", IMDbRating: "9.5"},
}

func newOMDBServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("i") != "":
			title, ok := omdbTitles[q.Get("i")]
			if !ok {
				json.NewEncoder(w).Encode(map[string]string{"Response": "False", "Error": "Incorrect IMDb ID."})
				return
			}
			body, _ := json.Marshal(title)
			var out map[string]any
			json.Unmarshal(body, &out)
			out["Response"] = "True"
			json.NewEncoder(w).Encode(out)
		case strings.Contains(strings.ToLower(q.Get("s")), "matrix"):
			json.NewEncoder(w).Encode(map[string]any{
				"Response": "True",
				"Search": []services.SearchResult{
					{IMDbID: "tt0133093", Title: "The Matrix", Year: "1999", Type: "movie"},
					{IMDbID: "tt0234215", Title: "The Matrix Reloaded", Year: "2003", Type: "movie"},
				},
			})
		default:
			json.NewEncoder(w).Encode(map[string]string{"Response": "False", "Error": "Movie not found!"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type cliFixture struct {
	runner   *Runner
	out      *bytes.Buffer
	contents *tu.ContentsServer
	config   *shared.Config
	path     string
}

func newCLIFixture(t *testing.T, signedIn bool) *cliFixture {
	t.Helper()

	cs := tu.NewContentsServer(t)
	cs.Login = "octo"
	cs.Token = "tok"
	omdb := newOMDBServer(t)
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.GitHub.APIURL = cs.URL
	config.GitHub.Owner = "octo"
	config.GitHub.Repo = "octo.github.io"
	config.GitHub.Branch = "main"
	config.GitHub.Path = testPath
	if signedIn {
		config.GitHub.AccessToken = "tok"
	}
	config.OMDB.BaseURL = omdb.URL
	config.OMDB.APIKey = "key"
	config.OMDB.RequestsPerSecond = 0
	config.Watchlist.SaveDelayMS = 200
	config.Database.Path = filepath.Join(dir, "watchlist.db")

	out := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: filepath.Join(dir, "config.toml"),
		Logger:     shared.NewLogger(&bytes.Buffer{}),
		Output:     out,
	})
	return &cliFixture{runner: runner, out: out, contents: cs, config: config, path: filepath.Join(dir, "config.toml")}
}

// run executes args as a fresh invocation and returns its output.
func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	f.out.Reset()

	app := &cli.Command{
		Name:     "watchlist",
		Flags:    []cli.Flag{&cli.StringFlag{Name: "config", Value: f.path}},
		Before:   f.runner.Before,
		After:    f.runner.After,
		Commands: f.runner.register(),
	}
	err := app.Run(context.Background(), append([]string{"watchlist"}, args...))
	return f.out.String(), err
}

func (f *cliFixture) seed(t *testing.T, doc models.Document) {
	t.Helper()
	content, err := services.EncodeDocument(doc)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	f.contents.Seed(testPath, content)
}

func (f *cliFixture) remote(t *testing.T) models.Document {
	t.Helper()
	content, _, ok := f.contents.File(testPath)
	if !ok {
		t.Fatal("expected remote document")
	}
	doc, err := services.DecodeDocument(content)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return doc
}

func matrixDocument() models.Document {
	return models.Document{
		Movies: []models.Item{{Title: "The Matrix", Year: "1999", IMDbID: "tt0133093", Type: "movie", Notes: "red pill"}},
		Series: []models.Item{{Title: "Breaking Bad", Year: "2008–2013", IMDbID: "tt0903747", Type: "series"}},
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("With All Dependencies Provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("With Nil Dependencies Uses Defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.cfg() == nil {
				t.Error("expected default config on first use")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("Writes Formatted JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("Writes Compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("Handles Marshal Error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("Handles Write Failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("Writes Plain Text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("Handles Write Failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "list", "search", "add", "remove", "export", "history", "cache", "api", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("saveToken", func(t *testing.T) {
		t.Run("Saves Token", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})

			if err := runner.saveToken(&oauth2.Token{AccessToken: "gho_new"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.GitHub.AccessToken != "gho_new" {
				t.Errorf("expected access token to be saved, got %q", loaded.GitHub.AccessToken)
			}
		})

		t.Run("Handles Nil Config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})

			err := runner.saveToken(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "config is nil") {
				t.Errorf("expected nil config error, got %v", err)
			}
		})

		t.Run("Empty ConfigPath Updates Memory Only", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.saveToken(&oauth2.Token{AccessToken: "in_memory"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.GitHub.AccessToken != "in_memory" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("Handles SaveConfig Failure", func(t *testing.T) {
			blocker := filepath.Join(t.TempDir(), "file")
			os.WriteFile(blocker, []byte("x"), 0644)
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), ConfigPath: filepath.Join(blocker, "config.toml")})

			err := runner.saveToken(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("Handles Empty Token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveToken(nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
			if !strings.Contains(err.Error(), "failed to update github configuration") {
				t.Errorf("expected update error, got %v", err)
			}
		})
	})
}

func TestCommands(t *testing.T) {
	t.Run("Add And List", func(t *testing.T) {
		f := newCLIFixture(t, true)

		out, err := f.run(t, "add", "--notes", "with Sam", "tt0133093", "tt0903747")
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if !strings.Contains(out, "✓ Added 2 title(s)") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if f.contents.Puts() != 1 {
			t.Errorf("expected both additions in 1 commit, got %d", f.contents.Puts())
		}

		doc := f.remote(t)
		if len(doc.Movies) != 1 || len(doc.Series) != 1 {
			t.Fatalf("expected 1 movie and 1 series, got %+v", doc)
		}
		if doc.Movies[0].Notes != "with Sam" || doc.Movies[0].AddedAt == "" {
			t.Errorf("expected notes and addedAt on %+v", doc.Movies[0])
		}

		out, err = f.run(t, "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		for _, want := range []string{"MOVIES (1)", "The Matrix (1999) ⭐ 8.7", "SERIES (1)", "Breaking Bad"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("Add Duplicate", func(t *testing.T) {
		f := newCLIFixture(t, true)
		f.seed(t, matrixDocument())

		out, err := f.run(t, "add", "tt0133093")
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if !strings.Contains(out, "Nothing to add") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if f.contents.Puts() != 0 {
			t.Errorf("expected no commits, got %d", f.contents.Puts())
		}
	})

	t.Run("Add Requires Sign In", func(t *testing.T) {
		f := newCLIFixture(t, false)
		f.contents.Token = ""

		_, err := f.run(t, "add", "tt0133093")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if exitCode(err) != exitAuth {
			t.Errorf("expected auth exit status, got %d", exitCode(err))
		}
	})

	t.Run("Add Unknown Title", func(t *testing.T) {
		f := newCLIFixture(t, true)

		_, err := f.run(t, "add", "tt9999999")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Add Without Arguments", func(t *testing.T) {
		f := newCLIFixture(t, true)

		_, err := f.run(t, "add")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		f := newCLIFixture(t, true)
		f.seed(t, matrixDocument())

		out, err := f.run(t, "remove", "tt0133093")
		if err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if !strings.Contains(out, "✓ Removed 1 title(s)") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if doc := f.remote(t); len(doc.Movies) != 0 || len(doc.Series) != 1 {
			t.Errorf("expected only the series to remain, got %+v", doc)
		}

		if _, err := f.run(t, "remove", "tt0133093"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing title, got %v", err)
		}
	})

	t.Run("List Filter As JSON", func(t *testing.T) {
		f := newCLIFixture(t, false)
		f.contents.Token = ""
		f.seed(t, matrixDocument())

		out, err := f.run(t, "list", "--kind", "movies", "--filter", "RED", "--json")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}

		var got map[string][]models.Item
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(got["movies"]) != 1 || got["movies"][0].IMDbID != "tt0133093" {
			t.Errorf("unexpected movies %+v", got["movies"])
		}
		if _, ok := got["series"]; ok {
			t.Error("expected series to be excluded")
		}
	})

	t.Run("List Missing Document", func(t *testing.T) {
		f := newCLIFixture(t, true)

		out, err := f.run(t, "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, "MOVIES (0)") {
			t.Errorf("expected empty lists, got:\n%s", out)
		}
	})

	t.Run("Search", func(t *testing.T) {
		f := newCLIFixture(t, false)

		out, err := f.run(t, "search", "the", "matrix")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !strings.Contains(out, "Found 2 titles") || !strings.Contains(out, "The Matrix (1999) movie [tt0133093]") {
			t.Errorf("unexpected output:\n%s", out)
		}

		out, err = f.run(t, "search", "--details", "--limit", "1", "matrix")
		if err != nil {
			t.Fatalf("detailed search failed: %v", err)
		}
		if !strings.Contains(out, "Found 1 titles") || !strings.Contains(out, "A hacker learns the truth.") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Search Requires Credentials", func(t *testing.T) {
		f := newCLIFixture(t, false)
		f.config.OMDB.APIKey = ""

		if _, err := f.run(t, "search", "matrix"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Export", func(t *testing.T) {
		f := newCLIFixture(t, true)
		f.seed(t, matrixDocument())

		out, err := f.run(t, "export", "--format", "md", "--output", "-")
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(out, "## Movies") || !strings.Contains(out, "**The Matrix** (1999)") {
			t.Errorf("unexpected markdown:\n%s", out)
		}

		path := filepath.Join(t.TempDir(), "list.csv")
		if _, err := f.run(t, "export", "--format", "csv", "--output", path); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "movies,The Matrix,1999") {
			t.Errorf("unexpected CSV:\n%s", content)
		}

		if _, err := f.run(t, "export", "--format", "pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("History", func(t *testing.T) {
		f := newCLIFixture(t, true)

		out, err := f.run(t, "history")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(out, "No saves recorded") {
			t.Errorf("unexpected output:\n%s", out)
		}

		if _, err := f.run(t, "add", "tt0133093"); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		out, err = f.run(t, "history")
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(out, "✓ #1") || !strings.Contains(out, "1 items, 1 change(s)") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Cache", func(t *testing.T) {
		f := newCLIFixture(t, false)

		if _, err := f.run(t, "search", "--details", "matrix"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		out, err := f.run(t, "cache", "list")
		if err != nil {
			t.Fatalf("cache list failed: %v", err)
		}
		if !strings.Contains(out, "2 cached titles") || !strings.Contains(out, "tt0133093  The Matrix (1999)  fresh") {
			t.Errorf("unexpected output:\n%s", out)
		}

		out, err = f.run(t, "cache", "purge")
		if err != nil {
			t.Fatalf("cache purge failed: %v", err)
		}
		if !strings.Contains(out, "✓ Removed 2 cached titles") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Auth Status", func(t *testing.T) {
		f := newCLIFixture(t, true)

		out, err := f.run(t, "auth", "status")
		if err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		for _, want := range []string{"Repository: octo/octo.github.io", "Authentication: ✓ octo", "Owner: ✓ octo", "Access: read, write"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("Auth Status Rejected Token", func(t *testing.T) {
		f := newCLIFixture(t, true)
		f.contents.Token = "other"

		out, err := f.run(t, "auth", "status")
		if err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(out, "✗ Not signed in") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Auth Logout", func(t *testing.T) {
		f := newCLIFixture(t, true)

		out, err := f.run(t, "auth", "logout")
		if err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if !strings.Contains(out, "✓ Signed out") {
			t.Errorf("unexpected output:\n%s", out)
		}

		loaded, err := shared.LoadConfig(f.path)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if loaded.GitHub.AccessToken != "" {
			t.Error("expected token to be cleared")
		}
	})

	t.Run("Auth Login Requires Client", func(t *testing.T) {
		f := newCLIFixture(t, false)
		f.config.GitHub.ClientID = ""

		if _, err := f.run(t, "auth", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("API Get", func(t *testing.T) {
		f := newCLIFixture(t, true)

		out, err := f.run(t, "api", "get", "user")
		if err != nil {
			t.Fatalf("api get failed: %v", err)
		}
		if !strings.Contains(out, `"login": "octo"`) {
			t.Errorf("unexpected output:\n%s", out)
		}

		if _, err := f.run(t, "api", "get", "/nope"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Setup Config", func(t *testing.T) {
		f := newCLIFixture(t, false)

		if _, err := f.run(t, "setup", "config"); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		if _, err := os.Stat(f.path); err != nil {
			t.Errorf("expected config file: %v", err)
		}

		if _, err := f.run(t, "setup", "config"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected error for existing config, got %v", err)
		}
	})

	t.Run("Setup Database", func(t *testing.T) {
		f := newCLIFixture(t, false)

		out, err := f.run(t, "setup", "database")
		if err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		if !strings.Contains(out, "✓ Database ready") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{shared.ErrNotImplemented, exitOK},
		{fmt.Errorf("write: %w", shared.ErrConflict), exitConflict},
		{fmt.Errorf("put: %w", shared.ErrAuth), exitAuth},
		{shared.ErrNotOwner, exitAuth},
		{fmt.Errorf("get: %w", shared.ErrNetwork), exitNetwork},
		{shared.ErrTimeout, exitNetwork},
		{fmt.Errorf("%w: title", shared.ErrValidation), exitUsage},
		{shared.ErrDuplicate, exitUsage},
		{errors.New("boom"), exitError},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, expected %d", tt.err, got, tt.want)
		}
	}
}
