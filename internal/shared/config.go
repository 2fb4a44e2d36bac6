package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	SortByYear  = "year"
	SortByAdded = "added"

	ConflictRefresh = "refresh"
	ConflictStrict  = "strict"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	GitHub    GitHubConfig    `toml:"github"`
	OMDB      OMDBConfig      `toml:"omdb"`
	Watchlist WatchlistConfig `toml:"watchlist"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// GitHubConfig contains OAuth credentials and the location of the watchlist document.
type GitHubConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
	AccessToken  string   `toml:"access_token"`
	APIURL       string   `toml:"api_url"`
	Owner        string   `toml:"owner"`
	Repo         string   `toml:"repo"`
	Branch       string   `toml:"branch"`
	Path         string   `toml:"path"`
}

// OMDBConfig contains metadata lookup settings.
type OMDBConfig struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	ProxyURL          string  `toml:"proxy_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	CacheTTLHours     int     `toml:"cache_ttl_hours"`
}

// WatchlistConfig tunes save coalescing and ordering.
type WatchlistConfig struct {
	SaveDelayMS   int    `toml:"save_delay_ms"`
	CommitMessage string `toml:"commit_message"`
	Sort          string `toml:"sort"`
	ConflictMode  string `toml:"conflict_mode"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig controls logger level and the TUI log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Addr returns host:port for the callback listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SaveDelay returns the coalescing window.
func (w WatchlistConfig) SaveDelay() time.Duration {
	if w.SaveDelayMS <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(w.SaveDelayMS) * time.Millisecond
}

// CacheTTL returns how long OMDB details stay fresh in the local cache.
func (o OMDBConfig) CacheTTL() time.Duration {
	if o.CacheTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(o.CacheTTLHours) * time.Hour
}

// OAuth2 builds the [oauth2.Config] for the GitHub authorization-code flow.
func (g GitHubConfig) OAuth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.RedirectURI,
		Scopes:       g.Scopes,
		Endpoint:     github.Endpoint,
	}
}

// Update stores the access token issued by the OAuth flow.
func (g *GitHubConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrMissingCredentials)
	}
	g.AccessToken = token.AccessToken
	return nil
}

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	var problems []string

	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		problems = append(problems, "github.owner and github.repo are required")
	}
	if c.GitHub.Path == "" {
		problems = append(problems, "github.path is required")
	}
	switch c.Watchlist.Sort {
	case "", SortByYear, SortByAdded:
	default:
		problems = append(problems, fmt.Sprintf("watchlist.sort must be %q or %q", SortByYear, SortByAdded))
	}
	switch c.Watchlist.ConflictMode {
	case "", ConflictRefresh, ConflictStrict:
	default:
		problems = append(problems, fmt.Sprintf("watchlist.conflict_mode must be %q or %q", ConflictRefresh, ConflictStrict))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes config to path as TOML, replacing any existing file.
//
// The file holds an access token, so it is written with owner-only permissions.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
