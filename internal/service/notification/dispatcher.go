package notification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/email"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type NotificationUseCase interface {
	SendConfirmation(ctx context.Context, bookingID string) (Result, error)
}

// Result reports what SendConfirmation did. AlreadySent means no provider was called.
type Result struct {
	AlreadySent bool   `json:"already_sent"`
	Provider    string `json:"provider,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
}

// SendLock keeps two workers from sending the same confirmation at once. The
// token returned by a successful acquire identifies the holder on release.
type SendLock interface {
	AcquireSendLock(ctx context.Context, bookingID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseSendLock(ctx context.Context, bookingID, token string) error
}

const defaultClaimTTL = 5 * time.Minute

type LinkFinder interface {
	Active(ctx context.Context, bookingID string) (*domain.BookingLink, error)
}

type Dispatcher struct {
	bookings repository.BookingRepository
	primary  email.Provider
	fallback email.Provider
	logger   logrus.FieldLogger

	lock         SendLock
	lockTTL      time.Duration
	claimTTL     time.Duration
	links        LinkFinder
	guestBaseURL string
	now          func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithFallback(provider email.Provider) DispatcherOption {
	return func(d *Dispatcher) {
		d.fallback = provider
	}
}

func WithSendLock(lock SendLock, ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.lock = lock
		d.lockTTL = ttl
	}
}

// WithClaimTTL bounds how long a send claim blocks other senders when its holder
// dies before recording the result. Non-positive values keep the default.
func WithClaimTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.claimTTL = ttl
		}
	}
}

// WithGuestLinks adds the booking's active guest link to the message.
func WithGuestLinks(links LinkFinder, baseURL string) DispatcherOption {
	return func(d *Dispatcher) {
		d.links = links
		d.guestBaseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(bookings repository.BookingRepository, primary email.Provider, logger logrus.FieldLogger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		bookings: bookings,
		primary:  primary,
		logger:   logger,
		lockTTL:  time.Minute,
		claimTTL: defaultClaimTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendConfirmation delivers the booking confirmation at most once. The
// confirmation_sent_at marker records the send; a claim in the store keeps
// concurrent senders out until it is set. Retries are the caller's job.
func (d *Dispatcher) SendConfirmation(ctx context.Context, bookingID string) (Result, error) {
	b, err := d.bookings.Get(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	if b.ConfirmationSentAt != nil {
		return Result{AlreadySent: true}, nil
	}
	if b.Status != domain.BookingStatusConfirmed {
		return Result{}, fmt.Errorf("%w: booking %s is %s", domain.ErrInvalidTransition, b.ID, b.Status)
	}
	recipients := b.Recipients()
	if len(recipients) == 0 {
		return Result{}, domain.ErrNoRecipientAddress
	}

	if d.lock != nil {
		token, ok, err := d.lock.AcquireSendLock(ctx, b.ID, d.lockTTL)
		if err != nil {
			return Result{}, fmt.Errorf("acquire send lock: %w", err)
		}
		if !ok {
			return Result{}, domain.ErrSendInProgress
		}
		defer func() {
			if err := d.lock.ReleaseSendLock(context.WithoutCancel(ctx), b.ID, token); err != nil {
				d.logger.WithError(err).WithField("booking_id", b.ID).Warn("failed to release send lock")
			}
		}()
	}

	// The claim is taken in the store, so it holds with or without a lock backend.
	claimedAt := d.now().UTC().Truncate(time.Microsecond)
	claimed, err := d.bookings.ClaimConfirmation(ctx, b.ID, claimedAt, d.claimTTL)
	if err != nil {
		return Result{}, fmt.Errorf("claim confirmation: %w", err)
	}
	if !claimed {
		return d.notClaimed(ctx, bookingID)
	}

	msg, err := render(b, d.guestURL(ctx, b.ID), recipients)
	if err != nil {
		d.releaseClaim(ctx, b.ID, claimedAt)
		return Result{}, fmt.Errorf("render confirmation: %w", err)
	}

	receipt, err := d.deliver(ctx, msg)
	if err != nil {
		d.releaseClaim(ctx, b.ID, claimedAt)
		return Result{}, err
	}

	log := d.logger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"provider":   receipt.Provider,
		"message_id": receipt.MessageID,
	})
	set, err := d.bookings.MarkConfirmationSent(ctx, b.ID, d.now().UTC())
	switch {
	case err != nil:
		// The message is out; reporting failure would invite a duplicate send.
		log.WithError(err).Error("confirmation sent but marker not recorded")
	case !set:
		log.Warn("confirmation marker was already set by another sender")
	default:
		log.Info("confirmation sent")
	}
	return Result{Provider: receipt.Provider, MessageID: receipt.MessageID}, nil
}

// notClaimed explains a lost claim: the marker was set meanwhile, the booking
// left confirmed, or another sender is still at work.
func (d *Dispatcher) notClaimed(ctx context.Context, bookingID string) (Result, error) {
	b, err := d.bookings.Get(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	switch {
	case b.ConfirmationSentAt != nil:
		return Result{AlreadySent: true}, nil
	case b.Status != domain.BookingStatusConfirmed:
		return Result{}, fmt.Errorf("%w: booking %s is %s", domain.ErrInvalidTransition, b.ID, b.Status)
	default:
		return Result{}, domain.ErrSendInProgress
	}
}

func (d *Dispatcher) releaseClaim(ctx context.Context, bookingID string, claimedAt time.Time) {
	if err := d.bookings.ReleaseConfirmationClaim(context.WithoutCancel(ctx), bookingID, claimedAt); err != nil {
		d.logger.WithError(err).WithField("booking_id", bookingID).Warn("failed to release confirmation claim")
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg email.Message) (email.Receipt, error) {
	receipt, primaryErr := d.primary.Send(ctx, msg)
	if primaryErr == nil {
		return receipt, nil
	}
	primaryErr = fmt.Errorf("%s: %w", d.primary.Name(), primaryErr)
	if d.fallback == nil {
		return email.Receipt{}, errors.Join(domain.ErrDeliveryFailed, primaryErr)
	}

	d.logger.WithError(primaryErr).Warn("primary provider failed, trying fallback")
	receipt, fallbackErr := d.fallback.Send(ctx, msg)
	if fallbackErr == nil {
		return receipt, nil
	}
	fallbackErr = fmt.Errorf("%s: %w", d.fallback.Name(), fallbackErr)
	return email.Receipt{}, errors.Join(domain.ErrDeliveryFailed, primaryErr, fallbackErr)
}

func (d *Dispatcher) guestURL(ctx context.Context, bookingID string) string {
	if d.links == nil || d.guestBaseURL == "" {
		return ""
	}
	link, err := d.links.Active(ctx, bookingID)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenNotFound) {
			d.logger.WithError(err).WithField("booking_id", bookingID).Warn("guest link lookup failed")
		}
		return ""
	}
	return d.guestBaseURL + "/" + url.PathEscape(link.Token)
}

var _ NotificationUseCase = (*Dispatcher)(nil)
