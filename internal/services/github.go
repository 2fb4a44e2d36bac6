// GitHub Contents API implementation of [DocumentStore]
//
// See https://docs.github.com/en/rest/repos/contents
package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultGitHubAPIURL = "https://api.github.com"
	githubAccept        = "application/vnd.github+json"
	githubAPIVersion    = "2022-11-28"
)

// GitHubUser is the subset of GET /user the session needs.
type GitHubUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// GitHubRepository is the subset of GET /repos/{owner}/{repo} used to verify access.
type GitHubRepository struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Permissions   struct {
		Admin bool `json:"admin"`
		Push  bool `json:"push"`
		Pull  bool `json:"pull"`
	} `json:"permissions"`
}

type githubContent struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type githubPutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type githubPutResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type githubError struct {
	Message string `json:"message"`
}

// GitHubStore reads and writes files in one repository through the Contents API.
type GitHubStore struct {
	api    *APIService
	owner  string
	repo   string
	branch string
}

// NewGitHubStore creates a store for cfg's repository; client should carry the access token.
//
// Use [NewTokenClient] to build an authenticated client.
func NewGitHubStore(cfg shared.GitHubConfig, client *http.Client) *GitHubStore {
	baseURL := strings.TrimRight(cfg.APIURL, "/")
	if baseURL == "" {
		baseURL = defaultGitHubAPIURL
	}

	api := NewAPIService(baseURL, client)
	api.SetHeader("Accept", githubAccept)
	api.SetHeader("X-GitHub-Api-Version", githubAPIVersion)

	return &GitHubStore{
		api:    api,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		branch: cfg.Branch,
	}
}

// NewTokenClient returns an [http.Client] sending token as a bearer credential.
//
// An empty token yields an unauthenticated client, which can still read public repositories.
func NewTokenClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return http.DefaultClient
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// API exposes the underlying raw client for debugging commands.
func (g *GitHubStore) API() *APIService {
	return g.api
}

// Name returns the repository as owner/repo.
func (g *GitHubStore) Name() string {
	return g.owner + "/" + g.repo
}

func (g *GitHubStore) contentsPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(g.owner), url.PathEscape(g.repo), strings.Join(segments, "/"))
}

// ReadDocument fetches the file at path and its revision.
//
// A missing file returns [shared.ErrNotFound], which callers treat as an empty document.
func (g *GitHubStore) ReadDocument(ctx context.Context, path string) (*RemoteFile, error) {
	var query url.Values
	if g.branch != "" {
		query = url.Values{"ref": {g.branch}}
	}

	resp, err := g.api.Get(ctx, g.contentsPath(path), query)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, classifyGitHubError(resp, http.MethodGet, path)
	}

	var content githubContent
	if err := resp.Decode(&content); err != nil {
		return nil, err
	}
	if content.Type != "" && content.Type != "file" {
		return nil, fmt.Errorf("%w: %s is a %s, not a file", shared.ErrAPIRequest, path, content.Type)
	}

	// The API wraps base64 at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\n", "", "\r", "").Replace(content.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}

	return &RemoteFile{Path: path, Content: raw, Revision: content.SHA}, nil
}

// WriteDocument creates or replaces the file at path.
//
// An empty revision creates the file; otherwise revision must match the current blob sha.
func (g *GitHubStore) WriteDocument(ctx context.Context, path string, content []byte, revision, message string) (*WriteResult, error) {
	body, err := json.Marshal(githubPutRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  g.branch,
		SHA:     revision,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := g.api.Put(ctx, g.contentsPath(path), body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, classifyGitHubError(resp, http.MethodPut, path)
	}

	var out githubPutResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}

	return &WriteResult{Revision: out.Content.SHA, CommitSHA: out.Commit.SHA}, nil
}

// User returns the account the token belongs to.
func (g *GitHubStore) User(ctx context.Context) (*GitHubUser, error) {
	resp, err := g.api.Get(ctx, "/user", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, classifyGitHubError(resp, http.MethodGet, "/user")
	}

	var user GitHubUser
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyRepository checks that the configured repository is visible with the current credential.
func (g *GitHubStore) VerifyRepository(ctx context.Context) (*GitHubRepository, error) {
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(g.owner), url.PathEscape(g.repo))
	resp, err := g.api.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, classifyGitHubError(resp, http.MethodGet, path)
	}

	var repo GitHubRepository
	if err := resp.Decode(&repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// classifyGitHubError maps a non-2xx response onto the shared error taxonomy.
//
// GitHub answers 404 rather than 403 when a token cannot see a private repository, so a 404 on a write is an
// authorization problem, not a missing file.
func classifyGitHubError(resp *APIResponse, method, path string) error {
	var ge githubError
	_ = json.Unmarshal(resp.Body, &ge)
	detail := ge.Message
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s: status %d: %s", shared.ErrAuth, method, path, resp.StatusCode, detail)
	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, path)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s: status 404: %s", shared.ErrAuth, method, path, detail)
	case resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(detail), "sha"):
		return fmt.Errorf("%w: %s: %s", shared.ErrConflict, path, detail)
	default:
		return fmt.Errorf("%w: %s %s: status %d: %s", shared.ErrAPIRequest, method, path, resp.StatusCode, detail)
	}
}

// EncodeDocument serializes doc the way it is committed: two-space indented JSON.
func EncodeDocument(doc models.Document) ([]byte, error) {
	doc.Normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// DecodeDocument parses stored content; empty content decodes to an empty document.
func DecodeDocument(content []byte) (models.Document, error) {
	doc := models.NewDocument()
	if len(strings.TrimSpace(string(content))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return models.Document{}, fmt.Errorf("%w: malformed watchlist document: %v", shared.ErrValidation, err)
	}
	doc.Normalize()
	return doc, nil
}
