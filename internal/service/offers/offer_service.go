package offers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/offer"
)

// OfferUseCase previews an upstream offer before a draft is created for it.
type OfferUseCase interface {
	Get(ctx context.Context, offerID string) (*domain.OfferSnapshot, error)
}

type OfferService struct {
	gateway offer.Gateway
	now     func() time.Time
}

func NewOfferService(gateway offer.Gateway, now func() time.Time) *OfferService {
	if now == nil {
		now = time.Now
	}
	return &OfferService{gateway: gateway, now: now}
}

func (s *OfferService) Get(ctx context.Context, offerID string) (*domain.OfferSnapshot, error) {
	offerID = strings.TrimSpace(offerID)
	if offerID == "" {
		return nil, fmt.Errorf("%w: offer id is required", domain.ErrInvalidInput)
	}

	snap, err := s.gateway.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	// a cached snapshot can outlive the quote by up to one cache period
	if snap.Expired(s.now()) {
		return nil, domain.ErrOfferExpired
	}
	return snap, nil
}

var _ OfferUseCase = (*OfferService)(nil)
