// Package session holds who is signed in and how they got there.
//
// [Session] is the single owner of the credential and the GitHub identity; everything else reads it through
// accessors. [Flow] is the OAuth authorization-code exchange as one state machine:
//
//	Idle ──Begin──▶ AwaitingCode ──Receive──▶ ExchangingToken ──Exchange──▶ Authenticated
//	                     │                          │
//	                     └──────────Fail────────────┴──────▶ Failed ──Begin──▶ AwaitingCode
//
// Logout returns any state to Idle. A call that has no edge from the current state fails with
// [shared.ErrInvalidTransition] and leaves the state unchanged.
package session
