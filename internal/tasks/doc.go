// Package tasks implements the playlist generation pipeline.
//
// # Engine
//
// [Engine] turns subscriptions or pasted links into a new playlist. Only one run
// is active at a time; a second start fails with [ErrRunInProgress].
//
//  1. [Engine.GenerateFromSubscriptions]
//     - Lists every subscribed channel with [FetchAll]
//     - Takes the latest uploads of each channel, pacing between channels with a [Pacer]
//     - Keeps videos admitted by the duration filter, newest first, up to the cap
//     - Creates the playlist and appends each video in order
//
//  2. [Engine.GenerateFromLinks]
//     - Extracts unique video IDs from watch and short links with [ParseVideoLinks]
//     - Looks them up in batches through the [Qualifier], keeping the input order
//     - Creates the playlist and appends each admitted video
//
// A channel that fails to list is skipped. A video that fails to append is
// recorded in the [FailedVideoLog]. Neither stops the run.
//
// # Cancellation
//
// Each run owns a [CancelToken]. [Engine.Cancel] or the caller's context ends
// it; every stage checks the token before its next remote call, and calls in
// flight are aborted through the token's context.
//
// # Progress Reporting
//
// Runs emit [ProgressUpdate] values on an optional channel. Sends use select
// with default so a slow reader never blocks the pipeline. [Engine.State]
// returns the latest progress, failed videos and skipped channels.
package tasks
