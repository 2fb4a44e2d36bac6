// Package server provides the short-lived HTTP listener that receives the GitHub OAuth redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] and [Recover] are the two in use.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] feeds the redirect parameters into a session.Flow: Receive validates the state parameter,
// Exchange trades the code for a token. The outcome is sent through a channel exactly once, and only the first
// request is processed.
//
// # Usage
//
// `watchlist auth login` begins the flow, binds [ListenCallback] on the configured host and port (localhost:3000
// by default, which must match the OAuth app's callback URL), opens the browser and waits on
// [CallbackServer.Wait]. The server shuts down as soon as a result arrives.
package server
