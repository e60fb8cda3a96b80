package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	Get(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetForAccount(ctx context.Context, accountID, bookingID string) (*domain.Booking, error)
	ListForAccount(ctx context.Context, accountID string) ([]domain.Booking, error)
	Confirm(ctx context.Context, bookingID, orderID, reference string) (*domain.Booking, error)
	Fail(ctx context.Context, bookingID, reason string) (*domain.Booking, error)
	Cancel(ctx context.Context, accountID, bookingID string) (*domain.Booking, error)
	SetSupportReference(ctx context.Context, bookingID, reference string) (bool, error)
	Created(ctx context.Context, b *domain.Booking)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type BookingService struct {
	bookings     repository.BookingRepository
	producer     Producer
	bookingTopic string
	logger       logrus.FieldLogger
	now          func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithProducer(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = topic
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(bookings repository.BookingRepository, logger logrus.FieldLogger, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		bookings: bookings,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Convert builds the pending booking for a draft that is ready for payment. Flight,
// passenger and price data are copied by value. Nothing is persisted.
func Convert(d *domain.BookingDraft, id string, now time.Time) (*domain.Booking, error) {
	if d.State != domain.DraftStateReadyForPayment {
		return nil, fmt.Errorf("%w: draft %s is %s", domain.ErrInvalidTransition, d.ID, d.State)
	}
	if err := d.VerifyTotals(); err != nil {
		return nil, err
	}

	passengers := make([]domain.BookingPassenger, 0, len(d.Passengers))
	for _, p := range d.Passengers {
		if missing := p.MissingFields(d.Offer.RequiresPassport); len(missing) > 0 {
			return nil, fmt.Errorf("%w: passenger %s missing %s", domain.ErrIncompleteTravelerData, p.ID, strings.Join(missing, ", "))
		}
		passengers = append(passengers, domain.BookingPassenger{
			ID:          p.ID,
			Type:        p.Type,
			GivenName:   p.GivenName,
			FamilyName:  p.FamilyName,
			DateOfBirth: p.DateOfBirth,
			Gender:      p.Gender,
			Email:       p.Email,
			Phone:       p.Phone,
			Document:    p.Document,
		})
	}

	b := &domain.Booking{
		ID:          id,
		AccountID:   d.AccountID,
		TripID:      d.TripID,
		DraftID:     d.ID,
		OfferID:     d.Offer.ID,
		Outbound:    d.Offer.Outbound,
		Passengers:  passengers,
		Extras:      append([]domain.SelectedExtra(nil), d.Extras...),
		Policy:      d.Offer.Policy,
		Total:       d.Totals.Grand,
		BasePrice:   d.Totals.Base,
		ExtrasTotal: d.Totals.Extras,
		Status:      domain.BookingStatusPendingPayment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.Offer.Return != nil {
		r := *d.Offer.Return
		b.Return = &r
	}
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.bookings.Get(ctx, bookingID)
}

// GetForAccount hides bookings of other accounts behind ErrBookingNotFound.
func (s *BookingService) GetForAccount(ctx context.Context, accountID, bookingID string) (*domain.Booking, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.AccountID != accountID {
		return nil, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *BookingService) ListForAccount(ctx context.Context, accountID string) ([]domain.Booking, error) {
	return s.bookings.ListByAccount(ctx, accountID)
}

func (s *BookingService) Confirm(ctx context.Context, bookingID, orderID, reference string) (*domain.Booking, error) {
	if orderID == "" || reference == "" {
		return nil, fmt.Errorf("%w: order id and reference are required", domain.ErrInvalidInput)
	}
	updated, err := s.transition(ctx, bookingID, domain.BookingStatusPendingPayment, domain.BookingStatusConfirmed,
		repository.StatusChange{OrderID: orderID, Reference: reference})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.EventBookingConfirmed, updated)
	return updated, nil
}

func (s *BookingService) Fail(ctx context.Context, bookingID, reason string) (*domain.Booking, error) {
	updated, err := s.transition(ctx, bookingID, domain.BookingStatusPendingPayment, domain.BookingStatusFailed,
		repository.StatusChange{FailureReason: reason})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.EventBookingFailed, updated)
	return updated, nil
}

func (s *BookingService) Cancel(ctx context.Context, accountID, bookingID string) (*domain.Booking, error) {
	current, err := s.GetForAccount(ctx, accountID, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}

	updated, err := s.transition(ctx, bookingID, current.Status, domain.BookingStatusCancelled, repository.StatusChange{})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.EventBookingCancelled, updated)
	return updated, nil
}

func (s *BookingService) SetSupportReference(ctx context.Context, bookingID, reference string) (bool, error) {
	if strings.TrimSpace(reference) == "" {
		return false, fmt.Errorf("%w: empty support reference", domain.ErrInvalidInput)
	}
	return s.bookings.SetSupportReference(ctx, bookingID, reference)
}

// Created announces a booking that was just persisted by the draft completion.
func (s *BookingService) Created(ctx context.Context, b *domain.Booking) {
	s.publish(ctx, kafka.EventBookingCreated, b)
}

func (s *BookingService) transition(ctx context.Context, bookingID string, from, to domain.BookingStatus, change repository.StatusChange) (*domain.Booking, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	change.At = s.now().UTC()

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, from, to, change)
	if errors.Is(err, domain.ErrInvalidTransition) {
		current, getErr := s.bookings.Get(ctx, bookingID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: booking %s is %s, not %s", domain.ErrInvalidTransition, bookingID, current.Status, from)
	}
	return updated, err
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		DraftID:    b.DraftID,
		AccountID:  b.AccountID,
		Status:     string(b.Status),
		Reference:  b.Reference,
		OccurredAt: s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, b.ID, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":      eventType,
			"booking_id": b.ID,
		}).Warn("failed to publish booking event")
	}
}

var _ BookingUseCase = (*BookingService)(nil)
