package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL = 30 * 24 * time.Hour

	maxIssueAttempts = 3
)

type LinkUseCase interface {
	Issue(ctx context.Context, bookingID string, ttl time.Duration) (*domain.BookingLink, error)
	EnsureLink(ctx context.Context, bookingID string, ttl time.Duration) (*domain.BookingLink, error)
	Resolve(ctx context.Context, token string) (*domain.GuestView, error)
	Revoke(ctx context.Context, bookingID, token string) error
	Active(ctx context.Context, bookingID string) (*domain.BookingLink, error)
}

type TokenGenerator interface {
	Generate() (string, error)
}

type LinkService struct {
	links    repository.LinkRepository
	bookings repository.BookingRepository
	tokens   TokenGenerator
	logger   logrus.FieldLogger
	now      func() time.Time
}

type LinkServiceOption func(*LinkService)

func WithClock(now func() time.Time) LinkServiceOption {
	return func(s *LinkService) {
		s.now = now
	}
}

func NewLinkService(
	links repository.LinkRepository,
	bookings repository.BookingRepository,
	tokens TokenGenerator,
	logger logrus.FieldLogger,
	opts ...LinkServiceOption,
) *LinkService {
	service := &LinkService{
		links:    links,
		bookings: bookings,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Issue mints a fresh guest token for the booking. ttl <= 0 means DefaultTTL.
func (s *LinkService) Issue(ctx context.Context, bookingID string, ttl time.Duration) (*domain.BookingLink, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if _, err := s.bookings.Get(ctx, bookingID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for attempt := 1; ; attempt++ {
		tok, err := s.tokens.Generate()
		if err != nil {
			return nil, err
		}
		link := &domain.BookingLink{
			Token:     tok,
			BookingID: bookingID,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}
		err = s.links.Create(ctx, link)
		if err == nil {
			s.logger.WithFields(logrus.Fields{
				"booking_id": bookingID,
				"expires_at": link.ExpiresAt,
			}).Info("guest link issued")
			return link, nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) || attempt == maxIssueAttempts {
			return nil, err
		}
	}
}

// EnsureLink returns the booking's newest unexpired link, issuing one if none is
// left, so retried confirmation handling does not mint a token per attempt.
// Concurrent calls for one booking return the same link.
func (s *LinkService) EnsureLink(ctx context.Context, bookingID string, ttl time.Duration) (*domain.BookingLink, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	link, err := s.Active(ctx, bookingID)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, domain.ErrTokenNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	for attempt := 1; ; attempt++ {
		tok, err := s.tokens.Generate()
		if err != nil {
			return nil, err
		}
		stored, created, err := s.links.CreateUnlessActive(ctx, &domain.BookingLink{
			Token:     tok,
			BookingID: bookingID,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}, now)
		if err == nil {
			if created {
				s.logger.WithFields(logrus.Fields{
					"booking_id": bookingID,
					"expires_at": stored.ExpiresAt,
				}).Info("guest link issued")
			}
			return stored, nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) || attempt == maxIssueAttempts {
			return nil, err
		}
	}
}

// Active returns the newest link of the booking that has not expired yet.
func (s *LinkService) Active(ctx context.Context, bookingID string) (*domain.BookingLink, error) {
	link, err := s.links.LatestForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if link.Expired(s.now()) {
		return nil, domain.ErrTokenNotFound
	}
	return link, nil
}

// Resolve checks expiry at read time and returns the guest projection.
func (s *LinkService) Resolve(ctx context.Context, token string) (*domain.GuestView, error) {
	if token == "" {
		return nil, domain.ErrTokenNotFound
	}
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.Expired(s.now()) {
		return nil, domain.ErrTokenExpired
	}

	b, err := s.bookings.Get(ctx, link.BookingID)
	if err != nil {
		return nil, fmt.Errorf("resolve link: %w", err)
	}
	view := domain.NewGuestView(b, link.ExpiresAt)
	return &view, nil
}

// Revoke expires the booking's token immediately. Links are never deleted.
func (s *LinkService) Revoke(ctx context.Context, bookingID, token string) error {
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if link.BookingID != bookingID {
		return domain.ErrTokenNotFound
	}
	return s.links.SetExpiry(ctx, token, s.now().UTC().Add(-time.Millisecond))
}

var _ LinkUseCase = (*LinkService)(nil)
