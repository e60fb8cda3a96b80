package domain

import "time"

type ExtraKind string

const (
	ExtraKindBaggage ExtraKind = "baggage"
	ExtraKindSeat    ExtraKind = "seat"
)

// Segment is a frozen copy of one flight leg.
type Segment struct {
	ID                 string    `json:"id"`
	Airline            string    `json:"airline"`
	FlightNumber       string    `json:"flight_number"`
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	OriginCountry      string    `json:"origin_country,omitempty"`
	DestinationCountry string    `json:"destination_country,omitempty"`
	DepartureAt        time.Time `json:"departure_at"`
	ArrivalAt          time.Time `json:"arrival_at"`
	DurationMinutes    int       `json:"duration_minutes"`
	Cabin              string    `json:"cabin"`
}

type OfferPassenger struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// AvailableExtra is a purchasable service attached to passenger/segment pairs.
// Empty PassengerIDs or SegmentIDs means the service applies to all of them.
type AvailableExtra struct {
	ServiceID    string    `json:"service_id"`
	Kind         ExtraKind `json:"kind"`
	Description  string    `json:"description,omitempty"`
	Designator   string    `json:"designator,omitempty"`
	PassengerIDs []string  `json:"passenger_ids,omitempty"`
	SegmentIDs   []string  `json:"segment_ids,omitempty"`
	MaxQuantity  int       `json:"max_quantity"`
	Price        Money     `json:"price"`
}

func (e AvailableExtra) AppliesTo(passengerID, segmentID string) bool {
	return (len(e.PassengerIDs) == 0 || contains(e.PassengerIDs, passengerID)) &&
		(len(e.SegmentIDs) == 0 || contains(e.SegmentIDs, segmentID))
}

// Policy is the change/refund terms captured when the draft is created.
type Policy struct {
	Changeable    bool   `json:"changeable"`
	ChangePenalty *Money `json:"change_penalty,omitempty"`
	Refundable    bool   `json:"refundable"`
	RefundPenalty *Money `json:"refund_penalty,omitempty"`
}

// OfferSnapshot is the validated, owned copy of an upstream offer.
type OfferSnapshot struct {
	ID               string           `json:"id"`
	BasePrice        Money            `json:"base_price"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
	Passengers       []OfferPassenger `json:"passengers"`
	Outbound         Segment          `json:"outbound"`
	Return           *Segment         `json:"return,omitempty"`
	AvailableExtras  []AvailableExtra `json:"available_extras"`
	Policy           Policy           `json:"policy"`
	RequiresPassport bool             `json:"requires_passport"`
}

func (o *OfferSnapshot) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

func (o *OfferSnapshot) Segments() []Segment {
	if o.Return == nil {
		return []Segment{o.Outbound}
	}
	return []Segment{o.Outbound, *o.Return}
}

func (o *OfferSnapshot) HasSegment(id string) bool {
	for _, s := range o.Segments() {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (o *OfferSnapshot) Extra(serviceID string) (AvailableExtra, bool) {
	for _, e := range o.AvailableExtras {
		if e.ServiceID == serviceID {
			return e, true
		}
	}
	return AvailableExtra{}, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
