// Package services implements the HTTP clients behind the watchlist: document storage on GitHub and title
// metadata from OMDB.
//
// # Document Store
//
// [DocumentStore] is the read/modify/write contract for a whole file guarded by an opaque revision.
// [GitHubStore] implements it on the Contents API: GET returns base64 content plus the blob sha, PUT takes
// {message, content, branch, sha?} and returns the new sha.
//
// Authentication is a bearer token attached by an [oauth2] client, see [NewTokenClient].
//
// # Metadata
//
// [OMDBService] implements [MetadataProvider]. It talks to OMDB directly with an API key, or to a proxy that
// adds the key server-side. Requests are rate limited and title details are cached through [TitleCache].
//
// # Error Handling
//
// Non-2xx responses are mapped onto the shared taxonomy:
//   - [shared.ErrNotFound] : GET of a missing file; callers treat it as an empty document
//   - [shared.ErrConflict] : PUT with a stale or missing revision
//   - [shared.ErrAuth] : missing, invalid or insufficient credential
//   - [shared.ErrNetwork] : transport failure
//   - [shared.ErrAPIRequest] : anything else
//
// No client retries; retry is always the caller's decision.
package services
