// package testing contains shared testing utilities
package testing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// ContentsServer is an in-memory stand-in for the GitHub Contents API with sha-checked writes.
//
// Only paths under /repos/{owner}/{repo}/contents/ are served; /user answers with Login.
type ContentsServer struct {
	*httptest.Server

	Login string
	Token string // when set, requests must carry "Bearer <Token>"

	mu       sync.Mutex
	files    map[string]contentsFile
	revision int
	gets     int
	puts     int
	messages []string
	failPuts int
	putHook  func()
}

type contentsFile struct {
	content []byte
	sha     string
}

// NewContentsServer starts a server that is closed when the test ends.
func NewContentsServer(t *testing.T) *ContentsServer {
	t.Helper()
	cs := &ContentsServer{Login: "owner", files: map[string]contentsFile{}}
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.serve))
	t.Cleanup(cs.Close)
	return cs
}

// Seed stores content at path and returns its sha.
func (cs *ContentsServer) Seed(path string, content []byte) string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.storeLocked(path, content)
}

// File returns the current content and sha at path.
func (cs *ContentsServer) File(path string) ([]byte, string, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	f, ok := cs.files[path]
	return f.content, f.sha, ok
}

// Puts counts write requests received, successful or not.
func (cs *ContentsServer) Puts() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.puts
}

// Gets counts read requests received.
func (cs *ContentsServer) Gets() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.gets
}

// Messages returns the commit messages of successful writes.
func (cs *ContentsServer) Messages() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.messages...)
}

// FailNextPuts makes the next n writes answer 500.
func (cs *ContentsServer) FailNextPuts(n int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.failPuts = n
}

// OnPut runs hook at the start of every write, outside the server lock.
func (cs *ContentsServer) OnPut(hook func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.putHook = hook
}

func (cs *ContentsServer) storeLocked(path string, content []byte) string {
	cs.revision++
	sha := fmt.Sprintf("sha-%d", cs.revision)
	cs.files[path] = contentsFile{content: append([]byte(nil), content...), sha: sha}
	return sha
}

func (cs *ContentsServer) serve(w http.ResponseWriter, r *http.Request) {
	if cs.Token != "" && r.Header.Get("Authorization") != "Bearer "+cs.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	if r.URL.Path == "/user" {
		writeJSON(w, http.StatusOK, map[string]string{"login": cs.Login})
		return
	}

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 5)
	if len(parts) == 3 && parts[0] == "repos" {
		writeJSON(w, http.StatusOK, map[string]any{
			"full_name":   parts[1] + "/" + parts[2],
			"permissions": map[string]bool{"push": true, "pull": true},
		})
		return
	}
	if len(parts) < 5 || parts[0] != "repos" || parts[3] != "contents" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	path := parts[4]

	switch r.Method {
	case http.MethodGet:
		cs.mu.Lock()
		cs.gets++
		f, ok := cs.files[path]
		cs.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"type":     "file",
			"path":     path,
			"sha":      f.sha,
			"encoding": "base64",
			"content":  wrap(base64.StdEncoding.EncodeToString(f.content), 60),
		})
	case http.MethodPut:
		cs.mu.Lock()
		hook := cs.putHook
		cs.mu.Unlock()
		if hook != nil {
			hook()
		}
		cs.put(w, r, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (cs *ContentsServer) put(w http.ResponseWriter, r *http.Request, path string) {
	var req struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha"`
	}
	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Problems parsing JSON"})
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.puts++

	if cs.failPuts > 0 {
		cs.failPuts--
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Server Error"})
		return
	}

	current, exists := cs.files[path]
	switch {
	case exists && req.SHA == "":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": `Invalid request. "sha" wasn't supplied.`})
		return
	case exists && req.SHA != current.sha, !exists && req.SHA != "":
		writeJSON(w, http.StatusConflict, map[string]string{"message": fmt.Sprintf("%s does not match %s", path, req.SHA)})
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "content is not valid Base64"})
		return
	}

	sha := cs.storeLocked(path, content)
	cs.messages = append(cs.messages, req.Message)

	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"content": map[string]string{"path": path, "sha": sha},
		"commit":  map[string]string{"sha": "commit-" + sha, "message": req.Message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
