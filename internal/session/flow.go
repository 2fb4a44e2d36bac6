package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/saur-hub/watchlist/internal/shared"
	"golang.org/x/oauth2"
)

// State is a step of the authorization-code flow.
type State int

const (
	Idle State = iota
	AwaitingCode
	ExchangingToken
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCode:
		return "awaiting_code"
	case ExchangingToken:
		return "exchanging_token"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type event string

const (
	eventBegin    event = "begin"
	eventReceive  event = "receive"
	eventExchange event = "exchange"
	eventRestore  event = "restore"
	eventFail     event = "fail"
	eventLogout   event = "logout"
)

// transitions is the only place edges are defined.
var transitions = map[State]map[event]State{
	Idle: {
		eventBegin:   AwaitingCode,
		eventRestore: Authenticated,
		eventLogout:  Idle,
	},
	AwaitingCode: {
		eventBegin:   AwaitingCode,
		eventReceive: ExchangingToken,
		eventFail:    Failed,
		eventLogout:  Idle,
	},
	ExchangingToken: {
		eventExchange: Authenticated,
		eventFail:     Failed,
		eventLogout:   Idle,
	},
	Authenticated: {
		eventLogout: Idle,
	},
	Failed: {
		eventBegin:  AwaitingCode,
		eventLogout: Idle,
	},
}

// Flow drives one OAuth authorization-code exchange with PKCE.
type Flow struct {
	mu       sync.Mutex
	config   *oauth2.Config
	state    State
	csrf     string
	verifier string
	code     string
	token    *oauth2.Token
	err      error
	observer func(from, to State)
}

// NewFlow creates a flow in [Idle].
func NewFlow(config *oauth2.Config) *Flow {
	return &Flow{config: config, state: Idle}
}

// OnTransition registers fn to be called after every state change, outside the lock.
func (f *Flow) OnTransition(fn func(from, to State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observer = fn
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Token returns the issued token once [Authenticated].
func (f *Flow) Token() *oauth2.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// Err returns the error that moved the flow to [Failed].
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// fire applies ev under the lock and returns the observer call to make after unlocking.
func (f *Flow) fire(ev event) (func(), error) {
	from := f.state
	to, ok := transitions[from][ev]
	if !ok {
		return nil, fmt.Errorf("%w: %s from %s", shared.ErrInvalidTransition, ev, from)
	}
	f.state = to

	observer := f.observer
	if observer == nil {
		return func() {}, nil
	}
	return func() { observer(from, to) }, nil
}

// Begin starts a new authorization and returns the URL the user must visit.
func (f *Flow) Begin() (string, error) {
	f.mu.Lock()
	notify, err := f.fire(eventBegin)
	if err != nil {
		f.mu.Unlock()
		return "", err
	}

	f.csrf = oauth2.GenerateVerifier()
	f.verifier = oauth2.GenerateVerifier()
	f.code, f.token, f.err = "", nil, nil
	url := f.config.AuthCodeURL(f.csrf, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(f.verifier))
	f.mu.Unlock()

	notify()
	return url, nil
}

// CSRFState returns the state parameter of the authorization in progress.
func (f *Flow) CSRFState() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.csrf
}

// Receive accepts the redirect parameters. A state mismatch or a missing code fails the flow.
func (f *Flow) Receive(code, state string) error {
	f.mu.Lock()
	if f.state != AwaitingCode {
		defer f.mu.Unlock()
		_, err := f.fire(eventReceive)
		return err
	}

	var cause error
	switch {
	case state == "" || state != f.csrf:
		cause = shared.ErrInvalidState
	case code == "":
		cause = fmt.Errorf("%w: no authorization code", shared.ErrAuthFailed)
	}
	if cause != nil {
		notify := f.failLocked(cause)
		f.mu.Unlock()
		notify()
		return cause
	}

	notify, _ := f.fire(eventReceive)
	f.code = code
	f.mu.Unlock()

	notify()
	return nil
}

// Fail moves the flow to [Failed], for errors reported by the provider on the redirect.
func (f *Flow) Fail(cause error) error {
	f.mu.Lock()
	if _, ok := transitions[f.state][eventFail]; !ok {
		defer f.mu.Unlock()
		_, err := f.fire(eventFail)
		return err
	}
	notify := f.failLocked(cause)
	f.mu.Unlock()

	notify()
	return nil
}

func (f *Flow) failLocked(cause error) func() {
	notify, _ := f.fire(eventFail)
	f.err = cause
	f.code = ""
	return notify
}

// Exchange trades the received code for a token.
func (f *Flow) Exchange(ctx context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	if f.state != ExchangingToken {
		defer f.mu.Unlock()
		_, err := f.fire(eventExchange)
		return nil, err
	}
	code, verifier := f.code, f.verifier
	f.mu.Unlock()

	token, err := f.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err == nil && (token == nil || token.AccessToken == "") {
		err = fmt.Errorf("%w: empty access token", shared.ErrAuthFailed)
	}

	f.mu.Lock()
	if f.state != ExchangingToken {
		// Logged out while the exchange was running.
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: flow reset during exchange", shared.ErrInvalidTransition)
	}

	var notify func()
	if err != nil {
		err = fmt.Errorf("%w: token exchange: %w", shared.ErrAuthFailed, err)
		notify = f.failLocked(err)
	} else {
		notify, _ = f.fire(eventExchange)
		f.token = token
		f.code = ""
	}
	f.mu.Unlock()

	notify()
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Restore marks a previously issued token as authenticated without running the exchange.
func (f *Flow) Restore(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrMissingCredentials)
	}

	f.mu.Lock()
	notify, err := f.fire(eventRestore)
	if err == nil {
		f.token = token
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	notify()
	return nil
}

// Logout forgets the token and any authorization in progress.
func (f *Flow) Logout() error {
	f.mu.Lock()
	notify, err := f.fire(eventLogout)
	if err == nil {
		f.csrf, f.verifier, f.code, f.token, f.err = "", "", "", nil, nil
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	notify()
	return nil
}
