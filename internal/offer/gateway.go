package offer

import (
	"context"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

// Gateway reads priced offers from the upstream flight provider.
//
// Implementations return domain.ErrOfferUnavailable when the offer cannot be
// retrieved and domain.ErrOfferExpired when the upstream reports it gone.
type Gateway interface {
	GetOffer(ctx context.Context, offerID string) (*domain.OfferSnapshot, error)
}
