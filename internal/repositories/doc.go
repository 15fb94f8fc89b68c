// Package repositories implements SQLite persistence for the credential cache.
//
// [CredentialRepository] is a small key/value table ("credentials") with upserts.
// [CredentialStore] layers the OAuth credential triple on top of it: access token,
// expiry as epoch milliseconds and refresh token, each under a fixed key.
//
// A missing or unparsable expiry reads as expired. Storing an empty refresh token
// keeps the one already stored, since refresh grants do not issue a new one.
package repositories
