package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/service/notification"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendConfirmation(ctx context.Context, bookingID string) (notification.Result, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(notification.Result), args.Error(1)
}

type MockDrafts struct {
	mock.Mock
}

func (m *MockDrafts) ExpireStale(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type MockUnsent struct {
	mock.Mock
}

func (m *MockUnsent) ListUnsentConfirmations(ctx context.Context, confirmedBefore time.Time, limit int) ([]domain.Booking, error) {
	args := m.Called(ctx, confirmedBefore, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type sliceSource struct {
	messages []kafkaGo.Message
	handled  int
	err      error
}

func (s *sliceSource) Consume(ctx context.Context, handler func(context.Context, kafkaGo.Message) error) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			s.err = err
			return err
		}
		s.handled++
	}
	<-ctx.Done()
	return ctx.Err()
}

func eventMessage(t *testing.T, eventType, bookingID string) kafkaGo.Message {
	t.Helper()
	data, err := json.Marshal(kafka.BookingEvent{Type: eventType, BookingID: bookingID, OccurredAt: time.Now()})
	require.NoError(t, err)
	return kafkaGo.Message{Key: []byte(bookingID), Value: data}
}

func newTestWorker() (*Worker, *MockNotifier, *MockDrafts, *MockUnsent) {
	logger, _ := test.NewNullLogger()
	notifier := &MockNotifier{}
	drafts := &MockDrafts{}
	unsent := &MockUnsent{}
	return New(drafts, unsent, notifier, logger), notifier, drafts, unsent
}

func TestWorker_HandleMessage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		result  notification.Result
		err     error
		wantErr bool
	}{
		{"sent", notification.Result{Provider: "smtp", MessageID: "m1"}, nil, false},
		{"already sent", notification.Result{AlreadySent: true}, nil, false},
		{"in progress", notification.Result{}, domain.ErrSendInProgress, false},
		{"no recipient", notification.Result{}, domain.ErrNoRecipientAddress, false},
		{"delivery failed", notification.Result{}, fmt.Errorf("%w: smtp: timeout", domain.ErrDeliveryFailed), false},
		{"storage down", notification.Result{}, errors.New("pg: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, notifier, _, _ := newTestWorker()
			notifier.On("SendConfirmation", ctx, "b1").Return(tt.result, tt.err).Once()

			err := w.HandleMessage(ctx, eventMessage(t, kafka.EventBookingConfirmed, "b1"))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			notifier.AssertExpectations(t)
		})
	}
}

func TestWorker_HandleMessageIgnoresOtherEvents(t *testing.T) {
	ctx := context.Background()
	w, notifier, _, _ := newTestWorker()

	assert.NoError(t, w.HandleMessage(ctx, eventMessage(t, kafka.EventBookingCreated, "b1")))
	assert.NoError(t, w.HandleMessage(ctx, eventMessage(t, kafka.EventDraftExpired, "")))
	assert.NoError(t, w.HandleMessage(ctx, kafkaGo.Message{Value: []byte("{not json")}))
	notifier.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything)
}

func TestWorker_RetryUnsent(t *testing.T) {
	ctx := context.Background()
	w, notifier, _, unsent := newTestWorker()

	unsent.On("ListUnsentConfirmations", ctx, mock.Anything, defaultRetryBatch).
		Return([]domain.Booking{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}}, nil)
	notifier.On("SendConfirmation", ctx, "b1").Return(notification.Result{Provider: "smtp"}, nil)
	notifier.On("SendConfirmation", ctx, "b2").Return(notification.Result{}, errors.New("boom"))
	notifier.On("SendConfirmation", ctx, "b3").Return(notification.Result{AlreadySent: true}, nil)

	w.RetryUnsent(ctx)

	notifier.AssertNumberOfCalls(t, "SendConfirmation", 3)
}

func TestWorker_RetryUnsentSkipsFreshConfirmations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger, _ := test.NewNullLogger()
	notifier := &MockNotifier{}
	unsent := &MockUnsent{}
	w := New(&MockDrafts{}, unsent, notifier, logger,
		WithClock(func() time.Time { return now }),
		WithRetryGrace(3*time.Minute),
	)

	unsent.On("ListUnsentConfirmations", ctx, now.Add(-3*time.Minute), defaultRetryBatch).
		Return([]domain.Booking{}, nil).Once()

	w.RetryUnsent(ctx)

	unsent.AssertExpectations(t)
	notifier.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything)
}

func TestWorker_SweepExpired(t *testing.T) {
	ctx := context.Background()
	w, _, drafts, _ := newTestWorker()
	drafts.On("ExpireStale", ctx).Return([]string{"d1", "d2"}, nil).Once()
	drafts.On("ExpireStale", ctx).Return([]string(nil), errors.New("boom")).Once()

	w.SweepExpired(ctx)
	w.SweepExpired(ctx)

	drafts.AssertExpectations(t)
}

func TestWorker_Run(t *testing.T) {
	logger, _ := test.NewNullLogger()
	notifier := &MockNotifier{}
	drafts := &MockDrafts{}
	unsent := &MockUnsent{}
	notifier.On("SendConfirmation", mock.Anything, "b1").Return(notification.Result{Provider: "smtp"}, nil)
	drafts.On("ExpireStale", mock.Anything).Return([]string{}, nil)
	unsent.On("ListUnsentConfirmations", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Booking{}, nil)

	w := New(drafts, unsent, notifier, logger,
		WithSweepInterval(5*time.Millisecond),
		WithRetryInterval(5*time.Millisecond),
	)
	source := &sliceSource{messages: []kafkaGo.Message{eventMessage(t, kafka.EventBookingConfirmed, "b1")}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx, source))
	assert.Equal(t, 1, source.handled)
	notifier.AssertCalled(t, "SendConfirmation", mock.Anything, "b1")
	drafts.AssertCalled(t, "ExpireStale", mock.Anything)
}

func TestWorker_RunStopsOnInfrastructureError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	notifier := &MockNotifier{}
	notifier.On("SendConfirmation", mock.Anything, "b1").Return(notification.Result{}, errors.New("pg down"))

	w := New(&MockDrafts{}, &MockUnsent{}, notifier, logger, WithSweepInterval(time.Hour), WithRetryInterval(time.Hour))
	source := &sliceSource{messages: []kafkaGo.Message{eventMessage(t, kafka.EventBookingConfirmed, "b1")}}

	err := w.Run(context.Background(), source)

	assert.EqualError(t, err, "pg down")
	assert.Equal(t, 0, source.handled)
}
