package domain

import "time"

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusFailed         BookingStatus = "failed"
)

// CanTransitionTo reports whether the booking status machine allows s -> to.
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	switch s {
	case BookingStatusPendingPayment:
		return to == BookingStatusConfirmed || to == BookingStatusFailed
	case BookingStatusConfirmed:
		return to == BookingStatusCancelled
	case BookingStatusCancelled, BookingStatusFailed:
		return false
	}
	return false
}

type BookingPassenger struct {
	ID          string         `json:"id"`
	Type        string         `json:"type,omitempty"`
	GivenName   string         `json:"given_name"`
	FamilyName  string         `json:"family_name"`
	DateOfBirth *time.Time     `json:"date_of_birth,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Document    TravelDocument `json:"document"`
}

func (p BookingPassenger) FullName() string {
	return p.GivenName + " " + p.FamilyName
}

// Booking is the record created from a paid draft. Flight and passenger data are
// frozen copies and never re-derived from upstream.
type Booking struct {
	ID        string
	AccountID string
	TripID    string
	DraftID   string
	OfferID   string
	OrderID   string
	Reference string

	Outbound   Segment
	Return     *Segment
	Passengers []BookingPassenger
	Extras     []SelectedExtra
	Policy     Policy

	Total       Money
	BasePrice   Money
	ExtrasTotal Money

	Status           BookingStatus
	FailureReason    string
	SupportReference string

	ConfirmationSentAt *time.Time
	CreatedAt          time.Time
	ConfirmedAt        *time.Time
	UpdatedAt          time.Time
}

// Recipients returns the contact addresses of all passengers, de-duplicated.
func (b *Booking) Recipients() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range b.Passengers {
		if p.Email == "" {
			continue
		}
		if _, ok := seen[p.Email]; ok {
			continue
		}
		seen[p.Email] = struct{}{}
		out = append(out, p.Email)
	}
	return out
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.Passengers = append([]BookingPassenger(nil), b.Passengers...)
	c.Extras = append([]SelectedExtra(nil), b.Extras...)
	if b.Return != nil {
		r := *b.Return
		c.Return = &r
	}
	return &c
}

// GuestView is the read-only projection shown through a guest link.
type GuestView struct {
	Reference  string        `json:"reference"`
	Status     BookingStatus `json:"status"`
	Outbound   Segment       `json:"outbound"`
	Return     *Segment      `json:"return,omitempty"`
	Passengers []string      `json:"passengers"`
	Total      Money         `json:"total"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiresAt  time.Time     `json:"link_expires_at"`
}

func NewGuestView(b *Booking, linkExpiry time.Time) GuestView {
	names := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		names = append(names, p.FullName())
	}
	v := GuestView{
		Reference:  b.Reference,
		Status:     b.Status,
		Outbound:   b.Outbound,
		Passengers: names,
		Total:      b.Total,
		CreatedAt:  b.CreatedAt,
		ExpiresAt:  linkExpiry,
	}
	if b.Return != nil {
		r := *b.Return
		v.Return = &r
	}
	return v
}

// BookingLink grants read-only guest access to one booking until ExpiresAt.
type BookingLink struct {
	Token     string
	BookingID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired is checked at read time, never assumed from issuance.
func (l *BookingLink) Expired(now time.Time) bool {
	return l.ExpiresAt.Before(now)
}
