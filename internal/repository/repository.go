package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

// ErrDuplicateToken is returned when a link token collides with an existing one.
var ErrDuplicateToken = errors.New("duplicate link token")

type DraftRepository interface {
	Create(ctx context.Context, draft *domain.BookingDraft) error
	Get(ctx context.Context, id string) (*domain.BookingDraft, error)
	// Update persists draft only if the stored row still has the expected state and
	// draft.Version. On success draft.Version is incremented.
	Update(ctx context.Context, draft *domain.BookingDraft, expected domain.DraftState) error
	// Complete flips ready_for_payment -> completed and inserts the booking in one
	// atomic step. A lost race returns domain.ErrConcurrentUpdate and writes nothing.
	Complete(ctx context.Context, draft *domain.BookingDraft, booking *domain.Booking) error
	// ExpireBefore moves every non-terminal draft whose offer or draft deadline is
	// not after now to expired and returns their ids.
	ExpireBefore(ctx context.Context, now time.Time) ([]string, error)
}

// StatusChange carries the append-only fields set by a status transition.
type StatusChange struct {
	OrderID       string
	Reference     string
	FailureReason string
	At            time.Time
}

type BookingRepository interface {
	Get(ctx context.Context, id string) (*domain.Booking, error)
	GetByDraftID(ctx context.Context, draftID string) (*domain.Booking, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Booking, error)
	// UpdateStatus applies from -> to only if the stored status equals from.
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus, change StatusChange) (*domain.Booking, error)
	// MarkConfirmationSent sets confirmation_sent_at if it is still null and
	// reports whether this call set it.
	MarkConfirmationSent(ctx context.Context, id string, at time.Time) (bool, error)
	// ClaimConfirmation reserves the confirmation send for one sender. It succeeds
	// only for a confirmed booking with no sent marker and no claim younger than
	// lease. The claim time identifies the holder for ReleaseConfirmationClaim.
	ClaimConfirmation(ctx context.Context, id string, at time.Time, lease time.Duration) (bool, error)
	ReleaseConfirmationClaim(ctx context.Context, id string, claimedAt time.Time) error
	SetSupportReference(ctx context.Context, id, reference string) (bool, error)
	// ListUnsentConfirmations returns confirmed bookings without a sent marker
	// that were confirmed no later than confirmedBefore, oldest first.
	ListUnsentConfirmations(ctx context.Context, confirmedBefore time.Time, limit int) ([]domain.Booking, error)
}

type LinkRepository interface {
	Create(ctx context.Context, link *domain.BookingLink) error
	GetByToken(ctx context.Context, token string) (*domain.BookingLink, error)
	LatestForBooking(ctx context.Context, bookingID string) (*domain.BookingLink, error)
	// CreateUnlessActive stores link only if its booking has no link unexpired at
	// now, and otherwise returns that link. Concurrent callers for one booking end
	// up with the same link. created reports whether link was stored.
	CreateUnlessActive(ctx context.Context, link *domain.BookingLink, now time.Time) (stored *domain.BookingLink, created bool, err error)
	SetExpiry(ctx context.Context, token string, expiresAt time.Time) error
}
