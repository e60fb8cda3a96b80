package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/offer"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type DraftUseCase interface {
	Create(ctx context.Context, input CreateInput) (*domain.BookingDraft, error)
	Get(ctx context.Context, accountID, draftID string) (*domain.BookingDraft, error)
	Status(ctx context.Context, accountID, draftID string) (*StatusView, error)
	AvailableExtras(ctx context.Context, accountID, draftID string) ([]domain.AvailableExtra, error)
	UpdatePassenger(ctx context.Context, accountID, draftID, passengerID string, details PassengerDetails) (*domain.BookingDraft, error)
	SelectExtras(ctx context.Context, accountID, draftID string, items []domain.ExtraSelection) (*domain.BookingDraft, error)
	MarkReadyForPayment(ctx context.Context, accountID, draftID string) (*domain.BookingDraft, error)
	Complete(ctx context.Context, draftID string) (*domain.Booking, error)
	ExpireStale(ctx context.Context) ([]string, error)
}

// ProfileDirectory answers whether a saved traveler profile still exists.
type ProfileDirectory interface {
	ProfileExists(ctx context.Context, accountID, profileID string) (bool, error)
}

// BookingNotifier is told about bookings created by Complete.
type BookingNotifier interface {
	Created(ctx context.Context, b *domain.Booking)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type CreateInput struct {
	AccountID  string             `json:"-"`
	TripID     string             `json:"trip_id"`
	OfferID    string             `json:"offer_id"`
	Passengers []domain.Passenger `json:"passengers"`
}

// PassengerDetails carries the fields a client may fill in. Empty fields keep
// the current value.
type PassengerDetails struct {
	GivenName   string                 `json:"given_name"`
	FamilyName  string                 `json:"family_name"`
	DateOfBirth *time.Time             `json:"date_of_birth"`
	Gender      string                 `json:"gender"`
	Email       string                 `json:"email"`
	Phone       string                 `json:"phone"`
	Document    *domain.TravelDocument `json:"document"`
	ProfileID   string                 `json:"profile_id"`
}

type StatusView struct {
	DraftID   string            `json:"draft_id"`
	State     domain.DraftState `json:"state"`
	Totals    domain.Totals     `json:"totals"`
	BookingID string            `json:"booking_id,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type DraftService struct {
	drafts   repository.DraftRepository
	bookings repository.BookingRepository
	offers   offer.Gateway
	logger   logrus.FieldLogger

	profiles   ProfileDirectory
	notifier   BookingNotifier
	producer   Producer
	eventTopic string
	draftTTL   time.Duration
	now        func() time.Time
	newID      func() string
}

type DraftServiceOption func(*DraftService)

func WithProfileDirectory(profiles ProfileDirectory) DraftServiceOption {
	return func(s *DraftService) {
		s.profiles = profiles
	}
}

func WithBookingNotifier(notifier BookingNotifier) DraftServiceOption {
	return func(s *DraftService) {
		s.notifier = notifier
	}
}

func WithProducer(producer Producer, topic string) DraftServiceOption {
	return func(s *DraftService) {
		s.producer = producer
		s.eventTopic = topic
	}
}

// WithDraftTTL bounds a draft's lifetime independently of the offer expiry.
func WithDraftTTL(ttl time.Duration) DraftServiceOption {
	return func(s *DraftService) {
		s.draftTTL = ttl
	}
}

func WithClock(now func() time.Time) DraftServiceOption {
	return func(s *DraftService) {
		s.now = now
	}
}

func NewDraftService(
	drafts repository.DraftRepository,
	bookings repository.BookingRepository,
	offers offer.Gateway,
	logger logrus.FieldLogger,
	opts ...DraftServiceOption,
) *DraftService {
	service := &DraftService{
		drafts:   drafts,
		bookings: bookings,
		offers:   offers,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *DraftService) Create(ctx context.Context, input CreateInput) (*domain.BookingDraft, error) {
	if input.AccountID == "" || input.OfferID == "" {
		return nil, fmt.Errorf("%w: account id and offer id are required", domain.ErrInvalidInput)
	}

	snapshot, err := s.offers.GetOffer(ctx, input.OfferID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if snapshot.Expired(now) {
		return nil, domain.ErrOfferExpired
	}

	passengers, err := s.passengersFor(ctx, input.AccountID, snapshot, input.Passengers)
	if err != nil {
		return nil, err
	}
	totals, err := domain.ComputeTotals(snapshot.BasePrice, nil)
	if err != nil {
		return nil, err
	}

	d := &domain.BookingDraft{
		ID:         s.newID(),
		AccountID:  input.AccountID,
		TripID:     input.TripID,
		Offer:      *snapshot,
		State:      domain.DraftStateDraft,
		Passengers: passengers,
		Totals:     totals,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if s.draftTTL > 0 {
		exp := now.Add(s.draftTTL)
		d.ExpiresAt = &exp
	}

	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"draft_id":   d.ID,
		"account_id": d.AccountID,
		"offer_id":   snapshot.ID,
	}).Info("draft created")
	return d.Clone(), nil
}

// passengersFor matches client passengers to the offer's passenger ids. Passengers
// the client leaves out are created empty so the list always mirrors the offer.
func (s *DraftService) passengersFor(ctx context.Context, accountID string, snapshot *domain.OfferSnapshot, given []domain.Passenger) ([]domain.Passenger, error) {
	offered := make(map[string]struct{}, len(snapshot.Passengers))
	for _, op := range snapshot.Passengers {
		offered[op.ID] = struct{}{}
	}
	byID := make(map[string]domain.Passenger, len(given))
	for _, p := range given {
		if _, ok := offered[p.ID]; !ok {
			return nil, fmt.Errorf("%w: passenger %q is not part of the offer", domain.ErrInvalidReference, p.ID)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate passenger %s", domain.ErrInvalidReference, p.ID)
		}
		byID[p.ID] = p
	}

	out := make([]domain.Passenger, 0, len(snapshot.Passengers))
	for _, op := range snapshot.Passengers {
		p := byID[op.ID]
		p.ID = op.ID
		p.Type = op.Type
		if p.ProfileID != "" {
			if err := s.checkProfile(ctx, accountID, p.ProfileID); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *DraftService) Get(ctx context.Context, accountID, draftID string) (*domain.BookingDraft, error) {
	d, err := s.open(ctx, accountID, draftID)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Status is readable in every state so clients can observe completion and expiry.
func (s *DraftService) Status(ctx context.Context, accountID, draftID string) (*StatusView, error) {
	d, err := s.load(ctx, accountID, draftID)
	if err != nil {
		return nil, err
	}
	if !d.State.Terminal() {
		now := s.now().UTC()
		if d.Elapsed(now) != nil {
			s.expire(ctx, d, now)
		}
	}
	return &StatusView{
		DraftID:   d.ID,
		State:     d.State,
		Totals:    d.Totals,
		BookingID: d.BookingID,
		ExpiresAt: d.ExpiresAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func (s *DraftService) AvailableExtras(ctx context.Context, accountID, draftID string) ([]domain.AvailableExtra, error) {
	d, err := s.open(ctx, accountID, draftID)
	if err != nil {
		return nil, err
	}
	return d.Offer.AvailableExtras, nil
}

func (s *DraftService) UpdatePassenger(ctx context.Context, accountID, draftID, passengerID string, details PassengerDetails) (*domain.BookingDraft, error) {
	if details.ProfileID != "" {
		if err := s.checkProfile(ctx, accountID, details.ProfileID); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, accountID, draftID, func(d *domain.BookingDraft, _ time.Time) error {
		if d.State != domain.DraftStateDraft && d.State != domain.DraftStateExtrasSelected {
			return fmt.Errorf("%w: passengers are locked in %s", domain.ErrInvalidTransition, d.State)
		}
		for i := range d.Passengers {
			if d.Passengers[i].ID == passengerID {
				applyDetails(&d.Passengers[i], details)
				return nil
			}
		}
		return fmt.Errorf("%w: passenger %s", domain.ErrInvalidReference, passengerID)
	})
}

func applyDetails(p *domain.Passenger, d PassengerDetails) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&p.GivenName, d.GivenName)
	set(&p.FamilyName, d.FamilyName)
	set(&p.Gender, d.Gender)
	set(&p.Email, d.Email)
	set(&p.Phone, d.Phone)
	set(&p.ProfileID, d.ProfileID)
	if d.DateOfBirth != nil {
		dob := *d.DateOfBirth
		p.DateOfBirth = &dob
	}
	if d.Document != nil {
		doc := *d.Document
		doc.IssuingCountry = strings.ToUpper(doc.IssuingCountry)
		doc.Nationality = strings.ToUpper(doc.Nationality)
		p.Document = doc
	}
}

// SelectExtras replaces the whole selection, so a retried request leaves the same
// line items and totals.
func (s *DraftService) SelectExtras(ctx context.Context, accountID, draftID string, items []domain.ExtraSelection) (*domain.BookingDraft, error) {
	current, err := s.open(ctx, accountID, draftID)
	if err != nil {
		return nil, err
	}
	if err := s.checkProfiles(ctx, current, items); err != nil {
		return nil, err
	}

	return s.mutate(ctx, accountID, draftID, func(d *domain.BookingDraft, _ time.Time) error {
		lines, err := priceSelection(d, items)
		if err != nil {
			return err
		}
		totals, err := domain.ComputeTotals(d.Offer.BasePrice, lines)
		if err != nil {
			return err
		}
		d.Extras = lines
		d.Totals = totals
		d.State = domain.DraftStateExtrasSelected
		return nil
	})
}

// checkProfiles rejects selections for passengers whose linked traveler profile
// no longer exists.
func (s *DraftService) checkProfiles(ctx context.Context, d *domain.BookingDraft, items []domain.ExtraSelection) error {
	checked := make(map[string]struct{})
	for _, it := range items {
		p, ok := d.Passenger(it.PassengerID)
		if !ok || p.ProfileID == "" {
			continue
		}
		if _, done := checked[p.ProfileID]; done {
			continue
		}
		checked[p.ProfileID] = struct{}{}
		if err := s.checkProfile(ctx, d.AccountID, p.ProfileID); err != nil {
			return fmt.Errorf("passenger %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *DraftService) checkProfile(ctx context.Context, accountID, profileID string) error {
	if s.profiles == nil {
		return nil
	}
	ok, err := s.profiles.ProfileExists(ctx, accountID, profileID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: traveler profile %s not found", domain.ErrInvalidReference, profileID)
	}
	return nil
}

func priceSelection(d *domain.BookingDraft, items []domain.ExtraSelection) ([]domain.SelectedExtra, error) {
	type key struct{ service, passenger, segment string }
	seen := make(map[key]struct{}, len(items))
	seats := make(map[[2]string]struct{})

	lines := make([]domain.SelectedExtra, 0, len(items))
	for _, it := range items {
		extra, ok := d.Offer.Extra(it.ServiceID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown service %q", domain.ErrInvalidExtra, it.ServiceID)
		}
		if _, ok := d.Passenger(it.PassengerID); !ok {
			return nil, fmt.Errorf("%w: passenger %q", domain.ErrInvalidReference, it.PassengerID)
		}
		if !d.Offer.HasSegment(it.SegmentID) {
			return nil, fmt.Errorf("%w: segment %q", domain.ErrInvalidReference, it.SegmentID)
		}
		if !extra.AppliesTo(it.PassengerID, it.SegmentID) {
			return nil, fmt.Errorf("%w: %s is not offered for passenger %s on %s", domain.ErrInvalidExtra, it.ServiceID, it.PassengerID, it.SegmentID)
		}

		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 || qty > extra.MaxQuantity {
			return nil, fmt.Errorf("%w: quantity %d for %s (max %d)", domain.ErrInvalidExtra, it.Quantity, it.ServiceID, extra.MaxQuantity)
		}

		k := key{it.ServiceID, it.PassengerID, it.SegmentID}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: %s selected twice for passenger %s on %s", domain.ErrInvalidExtra, it.ServiceID, it.PassengerID, it.SegmentID)
		}
		seen[k] = struct{}{}
		if extra.Kind == domain.ExtraKindSeat {
			sk := [2]string{it.PassengerID, it.SegmentID}
			if _, taken := seats[sk]; taken {
				return nil, fmt.Errorf("%w: passenger %s already has a seat on %s", domain.ErrInvalidExtra, it.PassengerID, it.SegmentID)
			}
			seats[sk] = struct{}{}
		}

		price, err := extra.Price.Mul(int64(qty))
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.SelectedExtra{
			ServiceID:   extra.ServiceID,
			Kind:        extra.Kind,
			PassengerID: it.PassengerID,
			SegmentID:   it.SegmentID,
			Quantity:    qty,
			Designator:  extra.Designator,
			Price:       price,
		})
	}
	return lines, nil
}

func (s *DraftService) MarkReadyForPayment(ctx context.Context, accountID, draftID string) (*domain.BookingDraft, error) {
	return s.mutate(ctx, accountID, draftID, func(d *domain.BookingDraft, _ time.Time) error {
		if d.State == domain.DraftStateReadyForPayment {
			return nil
		}
		if d.State != domain.DraftStateDraft && d.State != domain.DraftStateExtrasSelected {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, d.State, domain.DraftStateReadyForPayment)
		}
		for _, p := range d.Passengers {
			if missing := p.MissingFields(d.Offer.RequiresPassport); len(missing) > 0 {
				return fmt.Errorf("%w: passenger %s missing %s", domain.ErrIncompleteTravelerData, p.ID, strings.Join(missing, ", "))
			}
		}
		d.State = domain.DraftStateReadyForPayment
		return nil
	})
}

// Complete converts a paid draft into its booking exactly once. Every later call
// for the same draft returns the booking created by the first. A draft past its
// offer or draft deadline is never converted and fails with ErrDraftFinalized
// carrying the deadline that passed, whether or not the sweep got to it first.
func (s *DraftService) Complete(ctx context.Context, draftID string) (*domain.Booking, error) {
	d, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	switch d.State {
	case domain.DraftStateCompleted:
		return s.bookings.GetByDraftID(ctx, draftID)
	case domain.DraftStateExpired:
		if err := d.Elapsed(now); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDraftFinalized, err)
		}
		return nil, domain.ErrDraftFinalized
	case domain.DraftStateReadyForPayment:
	default:
		return nil, fmt.Errorf("%w: draft %s is %s", domain.ErrInvalidTransition, draftID, d.State)
	}

	if err := d.Elapsed(now); err != nil {
		s.expire(ctx, d, now)
		return nil, fmt.Errorf("%w: %w", domain.ErrDraftFinalized, err)
	}

	b, err := booking.Convert(d, s.newID(), now)
	if err != nil {
		return nil, err
	}

	d.State = domain.DraftStateCompleted
	d.BookingID = b.ID
	d.UpdatedAt = now
	if err := s.drafts.Complete(ctx, d, b); err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			return s.afterLostCompletion(ctx, draftID)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"draft_id":   d.ID,
		"booking_id": b.ID,
		"total":      b.Total.String(),
	}).Info("draft completed")
	if s.notifier != nil {
		s.notifier.Created(ctx, b)
	}
	return b, nil
}

func (s *DraftService) afterLostCompletion(ctx context.Context, draftID string) (*domain.Booking, error) {
	b, err := s.bookings.GetByDraftID(ctx, draftID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}
	// Another writer changed the draft without completing it.
	d, getErr := s.drafts.Get(ctx, draftID)
	if getErr != nil {
		return nil, getErr
	}
	if d.State.Terminal() {
		return nil, domain.ErrDraftFinalized
	}
	return nil, domain.ErrConcurrentUpdate
}

func (s *DraftService) ExpireStale(ctx context.Context) ([]string, error) {
	ids, err := s.drafts.ExpireBefore(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.publish(ctx, id, "")
	}
	if len(ids) > 0 {
		s.logger.WithField("count", len(ids)).Info("expired stale drafts")
	}
	return ids, nil
}

func (s *DraftService) load(ctx context.Context, accountID, draftID string) (*domain.BookingDraft, error) {
	d, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.AccountID != accountID {
		return nil, domain.ErrDraftNotFound
	}
	return d, nil
}

// open loads a draft that may still be read or changed. Elapsed drafts are moved
// to expired on the way.
func (s *DraftService) open(ctx context.Context, accountID, draftID string) (*domain.BookingDraft, error) {
	d, err := s.load(ctx, accountID, draftID)
	if err != nil {
		return nil, err
	}
	if d.State.Terminal() {
		return nil, domain.ErrDraftFinalized
	}
	now := s.now().UTC()
	if err := d.Elapsed(now); err != nil {
		s.expire(ctx, d, now)
		return nil, err
	}
	return d, nil
}

// mutate applies fn to a fresh copy and writes it back with a compare-and-swap on
// the state and version it was read at.
func (s *DraftService) mutate(ctx context.Context, accountID, draftID string, fn func(d *domain.BookingDraft, now time.Time) error) (*domain.BookingDraft, error) {
	d, err := s.open(ctx, accountID, draftID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expected := d.State
	if err := fn(d, now); err != nil {
		return nil, err
	}
	if !domain.CanTransition(expected, d.State) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, expected, d.State)
	}
	if err := d.VerifyTotals(); err != nil {
		s.logger.WithError(err).WithField("draft_id", d.ID).Error("draft totals inconsistent, transition aborted")
		return nil, err
	}

	d.UpdatedAt = now
	if err := s.drafts.Update(ctx, d, expected); err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

func (s *DraftService) expire(ctx context.Context, d *domain.BookingDraft, now time.Time) {
	from := d.State
	d.State = domain.DraftStateExpired
	d.UpdatedAt = now
	if err := s.drafts.Update(ctx, d, from); err != nil {
		if !errors.Is(err, domain.ErrConcurrentUpdate) {
			s.logger.WithError(err).WithField("draft_id", d.ID).Warn("failed to expire draft")
		}
		return
	}
	s.logger.WithField("draft_id", d.ID).Info("draft expired")
	s.publish(ctx, d.ID, d.AccountID)
}

func (s *DraftService) publish(ctx context.Context, draftID, accountID string) {
	if s.producer == nil || s.eventTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:       kafka.EventDraftExpired,
		DraftID:    draftID,
		AccountID:  accountID,
		Status:     string(domain.DraftStateExpired),
		OccurredAt: s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.eventTopic, draftID, event); err != nil {
		s.logger.WithError(err).WithField("draft_id", draftID).Warn("failed to publish draft event")
	}
}

var _ DraftUseCase = (*DraftService)(nil)
