package api

import (
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

type draftResponse struct {
	ID             string                 `json:"id"`
	TripID         string                 `json:"trip_id,omitempty"`
	OfferID        string                 `json:"offer_id"`
	State          domain.DraftState      `json:"state"`
	Version        int64                  `json:"version"`
	Passengers     []domain.Passenger     `json:"passengers"`
	Extras         []domain.SelectedExtra `json:"extras"`
	Totals         domain.Totals          `json:"totals"`
	Outbound       domain.Segment         `json:"outbound"`
	Return         *domain.Segment        `json:"return,omitempty"`
	Policy         domain.Policy          `json:"policy"`
	OfferExpiresAt *time.Time             `json:"offer_expires_at,omitempty"`
	ExpiresAt      *time.Time             `json:"expires_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func newDraftResponse(d *domain.BookingDraft) draftResponse {
	extras := d.Extras
	if extras == nil {
		extras = []domain.SelectedExtra{}
	}
	return draftResponse{
		ID:             d.ID,
		TripID:         d.TripID,
		OfferID:        d.Offer.ID,
		State:          d.State,
		Version:        d.Version,
		Passengers:     d.Passengers,
		Extras:         extras,
		Totals:         d.Totals,
		Outbound:       d.Offer.Outbound,
		Return:         d.Offer.Return,
		Policy:         d.Offer.Policy,
		OfferExpiresAt: d.Offer.ExpiresAt,
		ExpiresAt:      d.ExpiresAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type bookingResponse struct {
	ID                 string                    `json:"id"`
	DraftID            string                    `json:"draft_id"`
	TripID             string                    `json:"trip_id,omitempty"`
	OrderID            string                    `json:"order_id,omitempty"`
	Reference          string                    `json:"reference,omitempty"`
	Status             domain.BookingStatus      `json:"status"`
	FailureReason      string                    `json:"failure_reason,omitempty"`
	Outbound           domain.Segment            `json:"outbound"`
	Return             *domain.Segment           `json:"return,omitempty"`
	Passengers         []domain.BookingPassenger `json:"passengers"`
	Extras             []domain.SelectedExtra    `json:"extras"`
	Policy             domain.Policy             `json:"policy"`
	Total              domain.Money              `json:"total"`
	BasePrice          domain.Money              `json:"base_price"`
	ExtrasTotal        domain.Money              `json:"extras_total"`
	SupportReference   string                    `json:"support_reference,omitempty"`
	ConfirmationSentAt *time.Time                `json:"confirmation_sent_at,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	ConfirmedAt        *time.Time                `json:"confirmed_at,omitempty"`
}

func newBookingResponse(b *domain.Booking) bookingResponse {
	extras := b.Extras
	if extras == nil {
		extras = []domain.SelectedExtra{}
	}
	return bookingResponse{
		ID:                 b.ID,
		DraftID:            b.DraftID,
		TripID:             b.TripID,
		OrderID:            b.OrderID,
		Reference:          b.Reference,
		Status:             b.Status,
		FailureReason:      b.FailureReason,
		Outbound:           b.Outbound,
		Return:             b.Return,
		Passengers:         b.Passengers,
		Extras:             extras,
		Policy:             b.Policy,
		Total:              b.Total,
		BasePrice:          b.BasePrice,
		ExtrasTotal:        b.ExtrasTotal,
		SupportReference:   b.SupportReference,
		ConfirmationSentAt: b.ConfirmationSentAt,
		CreatedAt:          b.CreatedAt,
		ConfirmedAt:        b.ConfirmedAt,
	}
}

type linkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}
