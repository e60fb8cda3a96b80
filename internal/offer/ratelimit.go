package offer

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

// RateLimitedGateway spaces upstream calls at least interval apart. Each call
// reserves the next free slot, so concurrent callers queue in arrival order.
type RateLimitedGateway struct {
	next     Gateway
	interval time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	nextSlot time.Time
}

type RateLimitOption func(*RateLimitedGateway)

// WithRateLimitClock replaces the wall clock and the wait used between slots.
func WithRateLimitClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) RateLimitOption {
	return func(g *RateLimitedGateway) {
		g.now = now
		g.sleep = sleep
	}
}

func NewRateLimitedGateway(next Gateway, interval time.Duration, opts ...RateLimitOption) *RateLimitedGateway {
	g := &RateLimitedGateway{
		next:     next,
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *RateLimitedGateway) GetOffer(ctx context.Context, offerID string) (*domain.OfferSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if delay := g.reserve(); delay > 0 {
		if err := g.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return g.next.GetOffer(ctx, offerID)
}

// reserve books the caller's slot and returns how long to wait for it. A
// canceled caller forfeits its slot.
func (g *RateLimitedGateway) reserve() time.Duration {
	if g.interval <= 0 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	slot := g.nextSlot
	if slot.Before(now) {
		slot = now
	}
	g.nextSlot = slot.Add(g.interval)
	return slot.Sub(now)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Gateway = (*RateLimitedGateway)(nil)
