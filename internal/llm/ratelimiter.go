package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider paces calls to the wrapped provider so they stay under
// a requests-per-minute budget. Callers block until their slot comes up or
// their context is cancelled.
type RateLimitedProvider struct {
	provider Provider
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewRateLimitedProvider wraps provider with an rpm requests-per-minute cap.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider: provider,
		interval: time.Minute / time.Duration(rpm),
	}
}

func (r *RateLimitedProvider) Name() string { return r.provider.Name() }

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.reserve(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// reserve claims the next available slot and sleeps until it arrives. Slots
// are handed out in claim order, so concurrent callers queue fairly.
func (r *RateLimitedProvider) reserve(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	slot := r.next
	if slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
