package api

import (
	"context"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/draft"
	"github.com/stretchr/testify/mock"
)

type MockDraftUseCase struct {
	mock.Mock
}

func (m *MockDraftUseCase) Create(ctx context.Context, input draft.CreateInput) (*domain.BookingDraft, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDraft), args.Error(1)
}

func (m *MockDraftUseCase) Get(ctx context.Context, accountID, draftID string) (*domain.BookingDraft, error) {
	args := m.Called(ctx, accountID, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDraft), args.Error(1)
}

func (m *MockDraftUseCase) Status(ctx context.Context, accountID, draftID string) (*draft.StatusView, error) {
	args := m.Called(ctx, accountID, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*draft.StatusView), args.Error(1)
}

func (m *MockDraftUseCase) AvailableExtras(ctx context.Context, accountID, draftID string) ([]domain.AvailableExtra, error) {
	args := m.Called(ctx, accountID, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AvailableExtra), args.Error(1)
}

func (m *MockDraftUseCase) UpdatePassenger(ctx context.Context, accountID, draftID, passengerID string, details draft.PassengerDetails) (*domain.BookingDraft, error) {
	args := m.Called(ctx, accountID, draftID, passengerID, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDraft), args.Error(1)
}

func (m *MockDraftUseCase) SelectExtras(ctx context.Context, accountID, draftID string, items []domain.ExtraSelection) (*domain.BookingDraft, error) {
	args := m.Called(ctx, accountID, draftID, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDraft), args.Error(1)
}

func (m *MockDraftUseCase) MarkReadyForPayment(ctx context.Context, accountID, draftID string) (*domain.BookingDraft, error) {
	args := m.Called(ctx, accountID, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDraft), args.Error(1)
}

func (m *MockDraftUseCase) Complete(ctx context.Context, draftID string) (*domain.Booking, error) {
	args := m.Called(ctx, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockDraftUseCase) ExpireStale(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetForAccount(ctx context.Context, accountID, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, accountID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListForAccount(ctx context.Context, accountID string) ([]domain.Booking, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Confirm(ctx context.Context, bookingID, orderID, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, orderID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Fail(ctx context.Context, bookingID, reason string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Cancel(ctx context.Context, accountID, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, accountID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) SetSupportReference(ctx context.Context, bookingID, reference string) (bool, error) {
	args := m.Called(ctx, bookingID, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingUseCase) Created(ctx context.Context, b *domain.Booking) {
	m.Called(ctx, b)
}

type MockLinkUseCase struct {
	mock.Mock
}

func (m *MockLinkUseCase) Issue(ctx context.Context, bookingID string, ttl time.Duration) (*domain.BookingLink, error) {
	args := m.Called(ctx, bookingID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingLink), args.Error(1)
}

func (m *MockLinkUseCase) EnsureLink(ctx context.Context, bookingID string, ttl time.Duration) (*domain.BookingLink, error) {
	args := m.Called(ctx, bookingID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingLink), args.Error(1)
}

func (m *MockLinkUseCase) Resolve(ctx context.Context, token string) (*domain.GuestView, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GuestView), args.Error(1)
}

func (m *MockLinkUseCase) Revoke(ctx context.Context, bookingID, token string) error {
	args := m.Called(ctx, bookingID, token)
	return args.Error(0)
}

func (m *MockLinkUseCase) Active(ctx context.Context, bookingID string) (*domain.BookingLink, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingLink), args.Error(1)
}

type MockOfferUseCase struct {
	mock.Mock
}

func (m *MockOfferUseCase) Get(ctx context.Context, offerID string) (*domain.OfferSnapshot, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OfferSnapshot), args.Error(1)
}
