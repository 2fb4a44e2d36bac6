package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/saur-hub/watchlist/internal/session"
	"github.com/saur-hub/watchlist/internal/shared"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newStartedFlow(t *testing.T) *session.Flow {
	t.Helper()
	tokens := newTokenServer(t)
	flow := session.NewFlow(&oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: tokens.URL + "/authorize", TokenURL: tokens.URL + "/token"},
	})
	if _, err := flow.Begin(); err != nil {
		t.Fatalf("failed to begin flow: %v", err)
	}
	return flow
}

func callbackURL(flow *session.Flow, code string) string {
	q := url.Values{"code": {code}, "state": {flow.CSRFState()}}
	return "/callback?" + q.Encode()
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		h := NewOAuthHandler(newStartedFlow(t))
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("expected [/callback], got %v", routes)
		}
	})

	t.Run("Successful Callback", func(t *testing.T) {
		flow := newStartedFlow(t)
		h := NewOAuthHandler(flow)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, callbackURL(flow, "good-code"), nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page")
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token.AccessToken != "gho_test" {
			t.Errorf("expected gho_test, got %s", result.Token.AccessToken)
		}
		if flow.State() != session.Authenticated {
			t.Errorf("expected Authenticated, got %s", flow.State())
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		flow := newStartedFlow(t)
		h := NewOAuthHandler(flow)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=good-code&state=forged", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", result.Error())
		}
		if flow.State() != session.Failed {
			t.Errorf("expected Failed, got %s", flow.State())
		}
	})

	t.Run("Provider Error", func(t *testing.T) {
		flow := newStartedFlow(t)
		h := NewOAuthHandler(flow)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&error_description=denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Error())
		}
		if !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected provider error in message, got %v", result.Error())
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		flow := newStartedFlow(t)
		h := NewOAuthHandler(flow)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, callbackURL(flow, "bad-code"), nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Error())
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		flow := newStartedFlow(t)
		h := NewOAuthHandler(flow)

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, callbackURL(flow, "good-code"), nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, callbackURL(flow, "good-code"), nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replay, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("Method Filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("expected 200 ok, got %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("first"), tag("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("expected first,second,handler, got %s", got)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Recover", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)

		h := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("expected panic to be logged, got %q", buf.String())
		}
	})

	t.Run("Request Logger Omits Query", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		logger.SetLevel(log.DebugLevel)

		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "/callback") || !strings.Contains(out, fmt.Sprint(http.StatusTeapot)) {
			t.Errorf("expected path and status in log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("expected query to be omitted, got %q", out)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	t.Run("Receives Token", func(t *testing.T) {
		flow := newStartedFlow(t)
		h := NewOAuthHandler(flow)

		cs, err := ListenCallback("127.0.0.1:0", h, shared.NewLogger(&bytes.Buffer{}))
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		go func() {
			resp, err := http.Get("http://" + cs.Addr() + callbackURL(flow, "good-code"))
			if err == nil {
				resp.Body.Close()
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		token, err := cs.Wait(ctx)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if token.AccessToken != "gho_test" {
			t.Errorf("expected gho_test, got %s", token.AccessToken)
		}
	})

	t.Run("Context Timeout", func(t *testing.T) {
		h := NewOAuthHandler(newStartedFlow(t))
		cs, err := ListenCallback("127.0.0.1:0", h, shared.NewLogger(&bytes.Buffer{}))
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if _, err := cs.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}
