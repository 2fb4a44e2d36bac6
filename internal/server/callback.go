package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// CallbackServer listens for a single OAuth redirect.
type CallbackServer struct {
	handler  *OAuthHandler
	listener net.Listener
	server   *http.Server
	logger   *log.Logger
	errs     chan error
}

// ListenCallback binds addr and starts serving handler.
//
// Binding happens before returning so the browser cannot be redirected to a port nobody listens on.
func ListenCallback(addr string, handler *OAuthHandler, logger *log.Logger) (*CallbackServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	router := NewBasicRouter()
	router.Use(Recover(logger), RequestLogger(logger))
	router.Handler(handler)

	cs := &CallbackServer{
		handler:  handler,
		listener: ln,
		server:   &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		logger:   logger,
		errs:     make(chan error, 1),
	}

	go func() {
		logger.Infof("starting OAuth server at %v", ln.Addr())
		if err := cs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cs.errs <- err
		}
	}()

	return cs, nil
}

// Addr returns the bound address.
func (cs *CallbackServer) Addr() string {
	return cs.listener.Addr().String()
}

// Wait blocks until the callback produced a result or ctx ends, then shuts the server down.
func (cs *CallbackServer) Wait(ctx context.Context) (*oauth2.Token, error) {
	defer cs.shutdown()

	var result OAuthResult
	select {
	case result = <-cs.handler.Result():
	case err := <-cs.errs:
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}
	return result.Token, nil
}

func (cs *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cs.server.Shutdown(ctx); err != nil {
		cs.logger.Warn("error shutting down server", "error", err)
	}
}
