package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/service/notification"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRetryBatch = 50
	defaultRetryGrace = 2 * time.Minute
)

type DraftExpirer interface {
	ExpireStale(ctx context.Context) ([]string, error)
}

type UnsentLister interface {
	ListUnsentConfirmations(ctx context.Context, confirmedBefore time.Time, limit int) ([]domain.Booking, error)
}

// EventSource delivers booking events. A handler error stops consumption
// without committing the message.
type EventSource interface {
	Consume(ctx context.Context, handler func(context.Context, kafkaGo.Message) error) error
}

// Worker runs the background jobs: confirmation delivery on booking events,
// the draft expiry sweep and the retry of confirmations that were never sent.
type Worker struct {
	drafts   DraftExpirer
	unsent   UnsentLister
	notifier notification.NotificationUseCase
	logger   logrus.FieldLogger

	sweepInterval time.Duration
	retryInterval time.Duration
	retryGrace    time.Duration
	retryBatch    int
	now           func() time.Time
}

type Option func(*Worker)

func WithSweepInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.sweepInterval = d
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.retryInterval = d
	}
}

// WithRetryGrace leaves freshly confirmed bookings to the event handler for d
// before the retry loop picks them up.
func WithRetryGrace(d time.Duration) Option {
	return func(w *Worker) {
		w.retryGrace = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

func New(drafts DraftExpirer, unsent UnsentLister, notifier notification.NotificationUseCase, logger logrus.FieldLogger, opts ...Option) *Worker {
	w := &Worker{
		drafts:        drafts,
		unsent:        unsent,
		notifier:      notifier,
		logger:        logger,
		sweepInterval: 5 * time.Minute,
		retryInterval: time.Minute,
		retryGrace:    defaultRetryGrace,
		retryBatch:    defaultRetryBatch,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is canceled or a job fails. source may be nil, in which
// case confirmations are only sent by the retry loop.
func (w *Worker) Run(ctx context.Context, source EventSource) error {
	g, ctx := errgroup.WithContext(ctx)

	if source != nil {
		g.Go(func() error {
			err := source.Consume(ctx, w.HandleMessage)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		w.every(ctx, w.sweepInterval, w.SweepExpired)
		return nil
	})
	g.Go(func() error {
		w.every(ctx, w.retryInterval, w.RetryUnsent)
		return nil
	})
	return g.Wait()
}

func (w *Worker) every(ctx context.Context, interval time.Duration, job func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

// HandleMessage sends the confirmation for booking_confirmed events and ignores
// everything else. Only infrastructure errors are returned; delivery failures
// are left for the retry loop.
func (w *Worker) HandleMessage(ctx context.Context, msg kafkaGo.Message) error {
	var event kafka.BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.WithError(err).WithField("offset", msg.Offset).Warn("skipping undecodable event")
		return nil
	}
	if event.Type != kafka.EventBookingConfirmed || event.BookingID == "" {
		return nil
	}
	return w.send(ctx, event.BookingID)
}

func (w *Worker) send(ctx context.Context, bookingID string) error {
	log := w.logger.WithField("booking_id", bookingID)

	res, err := w.notifier.SendConfirmation(ctx, bookingID)
	switch {
	case err == nil:
		if res.AlreadySent {
			log.Debug("confirmation already sent")
			return nil
		}
		log.WithFields(logrus.Fields{"provider": res.Provider, "message_id": res.MessageID}).Info("confirmation sent")
		return nil
	case errors.Is(err, domain.ErrSendInProgress):
		log.Debug("confirmation send in progress elsewhere")
		return nil
	case errors.Is(err, domain.ErrNoRecipientAddress),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrBookingNotFound):
		log.WithError(err).Warn("confirmation cannot be sent")
		return nil
	case errors.Is(err, domain.ErrDeliveryFailed):
		log.WithError(err).Warn("confirmation delivery failed, will retry")
		return nil
	default:
		return err
	}
}

func (w *Worker) SweepExpired(ctx context.Context) {
	expired, err := w.drafts.ExpireStale(ctx)
	if err != nil {
		w.logger.WithError(err).Error("expire drafts")
		return
	}
	if len(expired) > 0 {
		w.logger.WithField("count", len(expired)).Info("expired drafts")
	}
}

// RetryUnsent resends confirmations whose marker is still null, oldest first,
// once they are older than the retry grace.
func (w *Worker) RetryUnsent(ctx context.Context) {
	cutoff := w.now().UTC().Add(-w.retryGrace)
	bookings, err := w.unsent.ListUnsentConfirmations(ctx, cutoff, w.retryBatch)
	if err != nil {
		w.logger.WithError(err).Error("list unsent confirmations")
		return
	}
	for _, b := range bookings {
		if ctx.Err() != nil {
			return
		}
		if err := w.send(ctx, b.ID); err != nil {
			w.logger.WithError(err).WithField("booking_id", b.ID).Error("retry confirmation")
		}
	}
}
