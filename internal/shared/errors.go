package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuth              = fmt.Errorf("not authorized")
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")
	ErrNotOwner          = fmt.Errorf("authenticated user is not the repository owner")
	ErrInvalidState      = fmt.Errorf("invalid state parameter")
	ErrInvalidTransition = fmt.Errorf("invalid authentication transition")

	// Remote store errors
	ErrNotFound   = fmt.Errorf("not found")
	ErrConflict   = fmt.Errorf("revision conflict")
	ErrNetwork    = fmt.Errorf("network error")
	ErrAPIRequest = fmt.Errorf("API request failed")

	// Save scheduling errors
	ErrSaverClosed = fmt.Errorf("saver closed")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrDuplicate       = fmt.Errorf("item already in watchlist")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
