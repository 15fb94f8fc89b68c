// Package auth owns the OAuth token lifecycle for the YouTube account.
//
// [Manager] is the single writer of the credential cache. It bootstraps from a
// redirect [Callback] or the cache, validates and refreshes tokens through the
// exchange backend, and runs a periodic expiry sweep while authenticated.
//
// Every bootstrap path leaves [Validating] and settles in [Authenticated] or
// [Unauthenticated]. Other components read the current token with
// [Manager.AccessToken] before each remote call instead of holding a copy.
package auth
