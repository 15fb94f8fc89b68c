package tasks

import (
	"context"
	"errors"

	"github.com/desertthunder/ytmix/internal/shared"
)

// CancelToken is the cancellation signal shared by every stage of one run.
//
// It wraps a context so that in-flight requests bound to [CancelToken.Context]
// abort as soon as the token is cancelled.
type CancelToken struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewCancelToken derives a token from parent. Cancelling parent cancels the token.
func NewCancelToken(parent context.Context) *CancelToken {
	ctx, cancel := context.WithCancelCause(parent)
	return &CancelToken{ctx: ctx, cancel: cancel}
}

// Context returns the context every call of the run must use.
func (t *CancelToken) Context() context.Context {
	return t.ctx
}

// Cancel sets the token. Later calls are no-ops.
func (t *CancelToken) Cancel() {
	t.cancel(shared.ErrCancelled)
}

// Cancelled reports whether the token or its parent was cancelled.
func (t *CancelToken) Cancelled() bool {
	return t.ctx.Err() != nil && !errors.Is(context.Cause(t.ctx), errReleased)
}

// Err returns an [shared.ErrCancelled] error once cancelled, nil before.
func (t *CancelToken) Err() error {
	if !t.Cancelled() {
		return nil
	}
	return shared.CancelledError(t.ctx)
}

// OnCancel registers f to run once when the token is cancelled. The returned
// func unregisters it and reports whether it did so before f ran.
func (t *CancelToken) OnCancel(f func()) (stop func() bool) {
	return context.AfterFunc(t.ctx, func() {
		if t.Cancelled() {
			f()
		}
	})
}

var errReleased = errors.New("run finished")

// Release discards the token at the end of a run without reporting a cancellation.
func (t *CancelToken) Release() {
	t.cancel(errReleased)
}
