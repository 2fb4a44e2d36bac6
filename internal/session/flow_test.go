package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/saur-hub/watchlist/internal/shared"
	"golang.org/x/oauth2"
)

func newTestConfig(t *testing.T, status int) *oauth2.Config {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		if r.PostForm.Get("code_verifier") == "" {
			t.Error("expected code_verifier in token request")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer","scope":"repo"}`))
	}))
	t.Cleanup(server.Close)

	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:3000/callback",
		Scopes:       []string{"repo"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  server.URL + "/login/oauth/authorize",
			TokenURL: server.URL + "/login/oauth/access_token",
		},
	}
}

func TestFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy Path", func(t *testing.T) {
		flow := NewFlow(newTestConfig(t, http.StatusOK))

		var (
			mu    sync.Mutex
			steps []State
		)
		flow.OnTransition(func(_, to State) {
			mu.Lock()
			defer mu.Unlock()
			steps = append(steps, to)
		})

		authURL, err := flow.Begin()
		if err != nil {
			t.Fatalf("expected begin to succeed, got %v", err)
		}

		u, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("invalid auth url: %v", err)
		}
		q := u.Query()
		if q.Get("state") == "" || q.Get("state") != flow.CSRFState() {
			t.Errorf("expected auth url to carry csrf state, got %q", q.Get("state"))
		}
		if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
			t.Errorf("expected S256 challenge, got %v", q)
		}

		if err := flow.Receive("good-code", flow.CSRFState()); err != nil {
			t.Fatalf("expected receive to succeed, got %v", err)
		}
		if flow.State() != ExchangingToken {
			t.Fatalf("expected ExchangingToken, got %s", flow.State())
		}

		token, err := flow.Exchange(ctx)
		if err != nil {
			t.Fatalf("expected exchange to succeed, got %v", err)
		}
		if token.AccessToken != "gho_test" {
			t.Errorf("expected gho_test, got %s", token.AccessToken)
		}
		if flow.State() != Authenticated || flow.Token() == nil {
			t.Errorf("expected Authenticated with token, got %s", flow.State())
		}

		mu.Lock()
		defer mu.Unlock()
		want := []State{AwaitingCode, ExchangingToken, Authenticated}
		if len(steps) != len(want) {
			t.Fatalf("expected steps %v, got %v", want, steps)
		}
		for i := range want {
			if steps[i] != want[i] {
				t.Errorf("step %d: expected %s, got %s", i, want[i], steps[i])
			}
		}
	})

	t.Run("State Mismatch Fails", func(t *testing.T) {
		flow := NewFlow(newTestConfig(t, http.StatusOK))
		if _, err := flow.Begin(); err != nil {
			t.Fatalf("expected begin to succeed, got %v", err)
		}

		err := flow.Receive("good-code", "forged")
		if !errors.Is(err, shared.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
		if flow.State() != Failed {
			t.Errorf("expected Failed, got %s", flow.State())
		}
		if !errors.Is(flow.Err(), shared.ErrInvalidState) {
			t.Errorf("expected stored error, got %v", flow.Err())
		}
	})

	t.Run("Missing Code Fails", func(t *testing.T) {
		flow := NewFlow(newTestConfig(t, http.StatusOK))
		flow.Begin()

		if err := flow.Receive("", flow.CSRFState()); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if flow.State() != Failed {
			t.Errorf("expected Failed, got %s", flow.State())
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		flow := NewFlow(newTestConfig(t, http.StatusOK))
		flow.Begin()
		if err := flow.Receive("bad-code", flow.CSRFState()); err != nil {
			t.Fatalf("expected receive to succeed, got %v", err)
		}

		token, err := flow.Exchange(ctx)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if token != nil {
			t.Error("expected no token")
		}
		if flow.State() != Failed {
			t.Errorf("expected Failed, got %s", flow.State())
		}
	})

	t.Run("Retry After Failure", func(t *testing.T) {
		flow := NewFlow(newTestConfig(t, http.StatusOK))
		flow.Begin()
		first := flow.CSRFState()
		flow.Fail(errors.New("access_denied"))

		if _, err := flow.Begin(); err != nil {
			t.Fatalf("expected begin from Failed to succeed, got %v", err)
		}
		if flow.CSRFState() == first {
			t.Error("expected a fresh csrf state")
		}
		if flow.Err() != nil {
			t.Errorf("expected error cleared, got %v", flow.Err())
		}
	})

	t.Run("Invalid Transitions", func(t *testing.T) {
		flow := NewFlow(newTestConfig(t, http.StatusOK))

		if err := flow.Receive("code", "state"); !errors.Is(err, shared.ErrInvalidTransition) {
			t.Errorf("expected receive from Idle to be invalid, got %v", err)
		}
		if _, err := flow.Exchange(ctx); !errors.Is(err, shared.ErrInvalidTransition) {
			t.Errorf("expected exchange from Idle to be invalid, got %v", err)
		}
		if err := flow.Fail(errors.New("x")); !errors.Is(err, shared.ErrInvalidTransition) {
			t.Errorf("expected fail from Idle to be invalid, got %v", err)
		}
		if flow.State() != Idle {
			t.Errorf("expected state unchanged, got %s", flow.State())
		}

		if err := flow.Restore(&oauth2.Token{AccessToken: "x"}); err != nil {
			t.Fatalf("expected restore to succeed, got %v", err)
		}
		if _, err := flow.Begin(); !errors.Is(err, shared.ErrInvalidTransition) {
			t.Errorf("expected begin from Authenticated to be invalid, got %v", err)
		}
	})

	t.Run("Restore Requires Token", func(t *testing.T) {
		flow := NewFlow(newTestConfig(t, http.StatusOK))

		if err := flow.Restore(nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		flow := NewFlow(newTestConfig(t, http.StatusOK))
		flow.Restore(&oauth2.Token{AccessToken: "x"})

		if err := flow.Logout(); err != nil {
			t.Fatalf("expected logout to succeed, got %v", err)
		}
		if flow.State() != Idle || flow.Token() != nil {
			t.Errorf("expected Idle without token, got %s", flow.State())
		}
	})

	t.Run("State Names", func(t *testing.T) {
		for state, want := range map[State]string{
			Idle:            "idle",
			AwaitingCode:    "awaiting_code",
			ExchangingToken: "exchanging_token",
			Authenticated:   "authenticated",
			Failed:          "failed",
		} {
			if state.String() != want {
				t.Errorf("expected %s, got %s", want, state.String())
			}
		}
	})
}
