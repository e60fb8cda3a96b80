package offer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

type offerEnvelope struct {
	Data offerPayload `json:"data"`
}

type offerPayload struct {
	ID                        string         `json:"id"`
	TotalAmount               string         `json:"total_amount"`
	TotalCurrency             string         `json:"total_currency"`
	ExpiresAt                 *time.Time     `json:"expires_at"`
	Passengers                []passengerRaw `json:"passengers"`
	Slices                    []sliceRaw     `json:"slices"`
	AvailableServices         []serviceRaw   `json:"available_services"`
	Conditions                conditionsRaw  `json:"conditions"`
	IdentityDocumentsRequired bool           `json:"passenger_identity_documents_required"`
}

type passengerRaw struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type sliceRaw struct {
	ID                 string    `json:"id"`
	Airline            string    `json:"airline"`
	FlightNumber       string    `json:"flight_number"`
	Origin             string    `json:"origin"`
	OriginCountry      string    `json:"origin_country"`
	Destination        string    `json:"destination"`
	DestinationCountry string    `json:"destination_country"`
	DepartingAt        time.Time `json:"departing_at"`
	ArrivingAt         time.Time `json:"arriving_at"`
	DurationMinutes    int       `json:"duration_minutes"`
	Cabin              string    `json:"cabin_class"`
}

type serviceRaw struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Description     string   `json:"description"`
	Designator      string   `json:"designator"`
	PassengerIDs    []string `json:"passenger_ids"`
	SegmentIDs      []string `json:"segment_ids"`
	MaximumQuantity int      `json:"maximum_quantity"`
	TotalAmount     string   `json:"total_amount"`
	TotalCurrency   string   `json:"total_currency"`
}

type conditionRaw struct {
	Allowed         bool   `json:"allowed"`
	PenaltyAmount   string `json:"penalty_amount"`
	PenaltyCurrency string `json:"penalty_currency"`
}

type conditionsRaw struct {
	Change *conditionRaw `json:"change_before_departure"`
	Refund *conditionRaw `json:"refund_before_departure"`
}

// ParseOffer validates an upstream offer response and converts it into an owned snapshot.
func ParseOffer(body []byte) (*domain.OfferSnapshot, error) {
	var env offerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	p := env.Data

	if p.ID == "" {
		return nil, fmt.Errorf("offer: missing id")
	}
	base, err := ParseAmount(p.TotalAmount, p.TotalCurrency)
	if err != nil {
		return nil, fmt.Errorf("offer %s total: %w", p.ID, err)
	}
	if base.Amount < 0 {
		return nil, fmt.Errorf("offer %s: negative total", p.ID)
	}
	if len(p.Passengers) == 0 {
		return nil, fmt.Errorf("offer %s: no passengers", p.ID)
	}
	if len(p.Slices) == 0 || len(p.Slices) > 2 {
		return nil, fmt.Errorf("offer %s: expected 1 or 2 slices, got %d", p.ID, len(p.Slices))
	}

	snap := &domain.OfferSnapshot{
		ID:               p.ID,
		BasePrice:        base,
		RequiresPassport: p.IdentityDocumentsRequired,
	}
	if p.ExpiresAt != nil {
		exp := p.ExpiresAt.UTC()
		snap.ExpiresAt = &exp
	}

	seen := make(map[string]struct{}, len(p.Passengers))
	for _, raw := range p.Passengers {
		if raw.ID == "" {
			return nil, fmt.Errorf("offer %s: passenger without id", p.ID)
		}
		if _, dup := seen[raw.ID]; dup {
			return nil, fmt.Errorf("offer %s: duplicate passenger %s", p.ID, raw.ID)
		}
		seen[raw.ID] = struct{}{}
		snap.Passengers = append(snap.Passengers, domain.OfferPassenger{ID: raw.ID, Type: raw.Type})
	}

	segments := make([]domain.Segment, 0, len(p.Slices))
	for _, raw := range p.Slices {
		seg, err := toSegment(raw)
		if err != nil {
			return nil, fmt.Errorf("offer %s: %w", p.ID, err)
		}
		if seg.OriginCountry != "" && seg.DestinationCountry != "" && seg.OriginCountry != seg.DestinationCountry {
			snap.RequiresPassport = true
		}
		segments = append(segments, seg)
	}
	snap.Outbound = segments[0]
	if len(segments) == 2 {
		snap.Return = &segments[1]
	}

	for _, raw := range p.AvailableServices {
		extra, err := toExtra(raw, base.Currency)
		if err != nil {
			return nil, fmt.Errorf("offer %s service %s: %w", p.ID, raw.ID, err)
		}
		snap.AvailableExtras = append(snap.AvailableExtras, extra)
	}

	if snap.Policy, err = toPolicy(p.Conditions); err != nil {
		return nil, fmt.Errorf("offer %s conditions: %w", p.ID, err)
	}
	return snap, nil
}

func toSegment(raw sliceRaw) (domain.Segment, error) {
	if raw.ID == "" || raw.Origin == "" || raw.Destination == "" {
		return domain.Segment{}, fmt.Errorf("slice is missing id or airports")
	}
	if raw.DepartingAt.IsZero() || raw.ArrivingAt.Before(raw.DepartingAt) {
		return domain.Segment{}, fmt.Errorf("slice %s has invalid times", raw.ID)
	}
	duration := raw.DurationMinutes
	if duration == 0 {
		duration = int(raw.ArrivingAt.Sub(raw.DepartingAt).Minutes())
	}
	return domain.Segment{
		ID:                 raw.ID,
		Airline:            raw.Airline,
		FlightNumber:       raw.FlightNumber,
		Origin:             strings.ToUpper(raw.Origin),
		OriginCountry:      strings.ToUpper(raw.OriginCountry),
		Destination:        strings.ToUpper(raw.Destination),
		DestinationCountry: strings.ToUpper(raw.DestinationCountry),
		DepartureAt:        raw.DepartingAt,
		ArrivalAt:          raw.ArrivingAt,
		DurationMinutes:    duration,
		Cabin:              raw.Cabin,
	}, nil
}

func toExtra(raw serviceRaw, currency string) (domain.AvailableExtra, error) {
	var kind domain.ExtraKind
	switch raw.Type {
	case "baggage":
		kind = domain.ExtraKindBaggage
	case "seat":
		kind = domain.ExtraKindSeat
	default:
		return domain.AvailableExtra{}, fmt.Errorf("unsupported service type %q", raw.Type)
	}
	if raw.ID == "" {
		return domain.AvailableExtra{}, fmt.Errorf("service without id")
	}
	price, err := ParseAmount(raw.TotalAmount, raw.TotalCurrency)
	if err != nil {
		return domain.AvailableExtra{}, err
	}
	if price.Currency != currency {
		return domain.AvailableExtra{}, fmt.Errorf("%w: service in %s, offer in %s", domain.ErrCurrencyMismatch, price.Currency, currency)
	}
	if price.Amount < 0 {
		return domain.AvailableExtra{}, fmt.Errorf("negative price")
	}
	maxQty := raw.MaximumQuantity
	if maxQty <= 0 {
		maxQty = 1
	}
	if kind == domain.ExtraKindSeat {
		maxQty = 1
	}
	return domain.AvailableExtra{
		ServiceID:    raw.ID,
		Kind:         kind,
		Description:  raw.Description,
		Designator:   raw.Designator,
		PassengerIDs: raw.PassengerIDs,
		SegmentIDs:   raw.SegmentIDs,
		MaxQuantity:  maxQty,
		Price:        price,
	}, nil
}

func toPolicy(c conditionsRaw) (domain.Policy, error) {
	var p domain.Policy
	if c.Change != nil {
		p.Changeable = c.Change.Allowed
		if c.Change.PenaltyAmount != "" {
			m, err := ParseAmount(c.Change.PenaltyAmount, c.Change.PenaltyCurrency)
			if err != nil {
				return p, err
			}
			p.ChangePenalty = &m
		}
	}
	if c.Refund != nil {
		p.Refundable = c.Refund.Allowed
		if c.Refund.PenaltyAmount != "" {
			m, err := ParseAmount(c.Refund.PenaltyAmount, c.Refund.PenaltyCurrency)
			if err != nil {
				return p, err
			}
			p.RefundPenalty = &m
		}
	}
	return p, nil
}

// ParseAmount converts a decimal string such as "200.00" into minor units without
// going through floating point.
func ParseAmount(amount, currency string) (domain.Money, error) {
	m, err := domain.NewMoney(0, currency)
	if err != nil {
		return domain.Money{}, err
	}
	exp := domain.MinorUnits(m.Currency)

	s := strings.TrimSpace(amount)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > exp {
		return domain.Money{}, fmt.Errorf("invalid amount %q for %s", amount, m.Currency)
	}
	frac += strings.Repeat("0", exp-len(frac))

	v, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return domain.Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if neg {
		v = -v
	}
	m.Amount = v
	return m, nil
}
