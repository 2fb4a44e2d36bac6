package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/saur-hub/watchlist/internal/session"
	"github.com/saur-hub/watchlist/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the redirect of the authorization-code flow by driving a [session.Flow].
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	flow            *session.Flow
	exchangeTimeout time.Duration
	resultChan      chan OAuthResult
	once            sync.Once
	callbackHit     bool
	mu              sync.Mutex
}

// NewOAuthHandler creates a handler for flow, which must already be in [session.AwaitingCode].
func NewOAuthHandler(flow *session.Flow) *OAuthHandler {
	return &OAuthHandler{
		flow:            flow,
		exchangeTimeout: 30 * time.Second,
		resultChan:      make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Only the first request is processed; the result is sent through [OAuthHandler.Result].
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, errParam, q.Get("error_description"))
		if ferr := h.flow.Fail(err); ferr != nil {
			err = errors.Join(err, ferr)
		}
		h.Send(OAuthResult{err: err})
		renderCallback(w, http.StatusBadRequest, "Authorization Failed", "GitHub did not grant access. Check the terminal for details.")
		return
	}

	if err := h.flow.Receive(q.Get("code"), q.Get("state")); err != nil {
		h.Send(OAuthResult{err: err})
		status := http.StatusBadRequest
		if errors.Is(err, shared.ErrInvalidTransition) {
			status = http.StatusConflict
		}
		renderCallback(w, status, "Authorization Failed", "The authorization response was rejected. Check the terminal for details.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.exchangeTimeout)
	defer cancel()

	token, err := h.flow.Exchange(ctx)
	if err != nil {
		h.Send(OAuthResult{err: err})
		renderCallback(w, http.StatusInternalServerError, "Token Exchange Failed", "Check the terminal for details.")
		return
	}

	h.Send(OAuthResult{Token: token})
	renderCallback(w, http.StatusOK, "Authorization Successful", "You can close this window and return to the terminal.")
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{if .OK}}#2da44e{{else}}#cf222e{{end}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func renderCallback(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, struct {
		OK             bool
		Title, Message string
	}{status == http.StatusOK, title, message})
}
