package tasks

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/ytmix/internal/shared"
)

// Pacer spaces sequential units of work to respect upstream rate limits.
//
// Callers Wait before a unit and call Done once it finishes. A Wait after Done
// blocks for at least delay measured from Done, plus up to jitter extra, so slow
// work never eats into the pause. The first Wait returns immediately.
type Pacer struct {
	mu      sync.Mutex
	limit   rate.Limit
	limiter *rate.Limiter
	jitter  time.Duration
}

// NewPacer creates a [Pacer]. A non-positive delay disables pacing.
func NewPacer(delay, jitter time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{limit: limit, limiter: rate.NewLimiter(limit, 1), jitter: jitter}
}

// Done marks the end of a unit of work and restarts the delay from now.
func (p *Pacer) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limit == rate.Inf {
		return
	}
	limiter := rate.NewLimiter(p.limit, 1)
	limiter.Allow()
	p.limiter = limiter
}

// Wait blocks until the next unit may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return shared.CancelledError(ctx)
		}
		return err
	}

	if p.jitter <= 0 {
		return nil
	}

	timer := time.NewTimer(rand.N(p.jitter))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return shared.CancelledError(ctx)
	case <-timer.C:
		return nil
	}
}
