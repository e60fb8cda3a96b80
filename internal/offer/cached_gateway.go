package offer

import (
	"context"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/sirupsen/logrus"
)

type Cache interface {
	GetOffer(ctx context.Context, offerID string) (*domain.OfferSnapshot, error)
	SetOffer(ctx context.Context, offer *domain.OfferSnapshot, ttl time.Duration) error
}

// CachedGateway serves offers from the cache until min(ttl, offer expiry).
// Cache failures fall through to the upstream.
type CachedGateway struct {
	next   Gateway
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
	logger logrus.FieldLogger
}

func NewCachedGateway(next Gateway, cache Cache, ttl time.Duration, logger logrus.FieldLogger) *CachedGateway {
	return &CachedGateway{next: next, cache: cache, ttl: ttl, now: time.Now, logger: logger}
}

func (g *CachedGateway) GetOffer(ctx context.Context, offerID string) (*domain.OfferSnapshot, error) {
	if g.cache != nil {
		cached, err := g.cache.GetOffer(ctx, offerID)
		if err != nil {
			g.logger.WithError(err).WithField("offer_id", offerID).Warn("offer cache read failed")
		} else if cached != nil && !cached.Expired(g.now()) {
			return cached, nil
		}
	}

	snap, err := g.next.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		ttl := g.ttl
		if snap.ExpiresAt != nil {
			if left := snap.ExpiresAt.Sub(g.now()); left < ttl {
				ttl = left
			}
		}
		if ttl > 0 {
			if err := g.cache.SetOffer(ctx, snap, ttl); err != nil {
				g.logger.WithError(err).WithField("offer_id", offerID).Warn("offer cache write failed")
			}
		}
	}
	return snap, nil
}

var _ Gateway = (*CachedGateway)(nil)
