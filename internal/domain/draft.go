package domain

import (
	"fmt"
	"strings"
	"time"
)

type DraftState string

const (
	DraftStateDraft           DraftState = "draft"
	DraftStateExtrasSelected  DraftState = "extras_selected"
	DraftStateReadyForPayment DraftState = "ready_for_payment"
	DraftStateCompleted       DraftState = "completed"
	DraftStateExpired         DraftState = "expired"
)

func (s DraftState) Terminal() bool {
	switch s {
	case DraftStateCompleted, DraftStateExpired:
		return true
	case DraftStateDraft, DraftStateExtrasSelected, DraftStateReadyForPayment:
		return false
	default:
		return true
	}
}

func (s DraftState) Valid() bool {
	switch s {
	case DraftStateDraft, DraftStateExtrasSelected, DraftStateReadyForPayment, DraftStateCompleted, DraftStateExpired:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to DraftState) bool {
	switch from {
	case DraftStateDraft:
		// a draft without extras may go straight to payment
		return to == DraftStateDraft || to == DraftStateExtrasSelected ||
			to == DraftStateReadyForPayment || to == DraftStateExpired
	case DraftStateExtrasSelected:
		return to == DraftStateExtrasSelected || to == DraftStateReadyForPayment || to == DraftStateExpired
	case DraftStateReadyForPayment:
		return to == DraftStateExtrasSelected || to == DraftStateReadyForPayment ||
			to == DraftStateCompleted || to == DraftStateExpired
	case DraftStateCompleted, DraftStateExpired:
		return false
	}
	return false
}

type TravelDocument struct {
	Type           string     `json:"type,omitempty"`
	Number         string     `json:"number,omitempty"`
	IssuingCountry string     `json:"issuing_country,omitempty"`
	Nationality    string     `json:"nationality,omitempty"`
	ExpiresOn      *time.Time `json:"expires_on,omitempty"`
}

type Passenger struct {
	ID          string         `json:"id"`
	Type        string         `json:"type,omitempty"`
	GivenName   string         `json:"given_name"`
	FamilyName  string         `json:"family_name"`
	DateOfBirth *time.Time     `json:"date_of_birth,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Document    TravelDocument `json:"document"`
	ProfileID   string         `json:"profile_id,omitempty"`
}

// MissingFields lists the fields required before payment.
func (p Passenger) MissingFields(requirePassport bool) []string {
	var missing []string
	if strings.TrimSpace(p.GivenName) == "" {
		missing = append(missing, "given_name")
	}
	if strings.TrimSpace(p.FamilyName) == "" {
		missing = append(missing, "family_name")
	}
	if p.DateOfBirth == nil {
		missing = append(missing, "date_of_birth")
	}
	if p.Gender == "" {
		missing = append(missing, "gender")
	}
	if requirePassport {
		if p.Document.Number == "" {
			missing = append(missing, "document.number")
		}
		if p.Document.IssuingCountry == "" {
			missing = append(missing, "document.issuing_country")
		}
		if p.Document.ExpiresOn == nil {
			missing = append(missing, "document.expires_on")
		}
	}
	return missing
}

// ExtraSelection is what the client asks for.
type ExtraSelection struct {
	ServiceID   string `json:"service_id"`
	PassengerID string `json:"passenger_id"`
	SegmentID   string `json:"segment_id"`
	Quantity    int    `json:"quantity"`
}

// SelectedExtra is a priced line item.
type SelectedExtra struct {
	ServiceID   string    `json:"service_id"`
	Kind        ExtraKind `json:"kind"`
	PassengerID string    `json:"passenger_id"`
	SegmentID   string    `json:"segment_id"`
	Quantity    int       `json:"quantity"`
	Designator  string    `json:"designator,omitempty"`
	Price       Money     `json:"price"`
}

type Totals struct {
	Base   Money `json:"base"`
	Extras Money `json:"extras"`
	Grand  Money `json:"grand"`
}

type BookingDraft struct {
	ID        string
	AccountID string
	TripID    string
	Offer     OfferSnapshot
	State     DraftState
	Version   int64

	Passengers []Passenger
	Extras     []SelectedExtra
	Totals     Totals

	BookingID string

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time
}

func (d *BookingDraft) Passenger(id string) (Passenger, bool) {
	for _, p := range d.Passengers {
		if p.ID == id {
			return p, true
		}
	}
	return Passenger{}, false
}

// Elapsed returns ErrOfferExpired or ErrDraftExpired when either deadline has passed.
func (d *BookingDraft) Elapsed(now time.Time) error {
	if d.Offer.Expired(now) {
		return ErrOfferExpired
	}
	if d.ExpiresAt != nil && !now.Before(*d.ExpiresAt) {
		return ErrDraftExpired
	}
	return nil
}

// ComputeTotals derives totals from the base price and line items.
func ComputeTotals(base Money, extras []SelectedExtra) (Totals, error) {
	sum := Zero(base.Currency)
	for _, e := range extras {
		var err error
		if sum, err = sum.Add(e.Price); err != nil {
			return Totals{}, fmt.Errorf("extra %s: %w", e.ServiceID, err)
		}
	}
	grand, err := base.Add(sum)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Base: base, Extras: sum, Grand: grand}, nil
}

// VerifyTotals checks grand == base + sum(extras) with a uniform currency.
func (d *BookingDraft) VerifyTotals() error {
	want, err := ComputeTotals(d.Offer.BasePrice, d.Extras)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTotalsMismatch, err)
	}
	if want != d.Totals {
		return fmt.Errorf("%w: stored %s, computed %s", ErrTotalsMismatch, d.Totals.Grand, want.Grand)
	}
	return nil
}

// Clone returns a deep copy so callers never share slices with a store.
func (d *BookingDraft) Clone() *BookingDraft {
	if d == nil {
		return nil
	}
	c := *d
	c.Passengers = append([]Passenger(nil), d.Passengers...)
	c.Extras = append([]SelectedExtra(nil), d.Extras...)
	c.Offer.Passengers = append([]OfferPassenger(nil), d.Offer.Passengers...)
	c.Offer.AvailableExtras = append([]AvailableExtra(nil), d.Offer.AvailableExtras...)
	if d.Offer.Return != nil {
		r := *d.Offer.Return
		c.Offer.Return = &r
	}
	return &c
}
