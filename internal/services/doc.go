// Package services contains the HTTP clients for the two remote systems ytmix talks to.
//
// # YouTube Data API
//
// [YouTubeService] lists subscriptions, resolves uploads playlists, pages playlist
// items, batches video lookups (at most [MaxBatchSize] IDs per call), creates
// playlists and appends items. The bearer token is read from a [TokenSource] on
// every request, so a token refreshed mid-run is picked up by the next call.
//
// # Token Exchange
//
// [ExchangeService] talks to the backend relay holding the OAuth client secret:
//   - POST /api/auth/exchange trades an authorization code
//   - POST /api/auth/refresh trades a refresh token
//   - GET /api/health reports availability
//
// # Error Handling
//
// Non-2xx responses and in-body errors become an [*APIError], which matches
// [shared.ErrAPIRequest] and, for 401, [shared.ErrTokenExpired] under [errors.Is].
// A request whose context was cancelled returns [shared.ErrCancelled].
package services
