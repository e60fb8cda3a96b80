package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eur(v int64) domain.Money { return domain.Money{Amount: v, Currency: "EUR"} }

func newDraft(now time.Time) *domain.BookingDraft {
	exp := now.Add(time.Hour)
	return &domain.BookingDraft{
		ID:        uuid.NewString(),
		AccountID: "acc-1",
		TripID:    "trip-1",
		Offer: domain.OfferSnapshot{
			ID:         "OFF1",
			BasePrice:  eur(20000),
			ExpiresAt:  &exp,
			Passengers: []domain.OfferPassenger{{ID: "p1", Type: "adult"}},
			Outbound:   domain.Segment{ID: "s1", Airline: "LH", FlightNumber: "LH100", Origin: "FRA", Destination: "LIS"},
		},
		State:      domain.DraftStateDraft,
		Version:    1,
		Passengers: []domain.Passenger{{ID: "p1", GivenName: "Ada", FamilyName: "Lovelace", Email: "ada@example.com"}},
		Totals:     domain.Totals{Base: eur(20000), Extras: eur(0), Grand: eur(20000)},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func bookingFor(d *domain.BookingDraft, now time.Time) *domain.Booking {
	return &domain.Booking{
		ID:          uuid.NewString(),
		AccountID:   d.AccountID,
		TripID:      d.TripID,
		DraftID:     d.ID,
		OfferID:     d.Offer.ID,
		Outbound:    d.Offer.Outbound,
		Passengers:  []domain.BookingPassenger{{ID: "p1", GivenName: "Ada", FamilyName: "Lovelace", Email: "ada@example.com"}},
		Total:       d.Totals.Grand,
		BasePrice:   d.Totals.Base,
		ExtrasTotal: d.Totals.Extras,
		Status:      domain.BookingStatusPendingPayment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// runContract checks the atomicity guarantees every repository implementation must give.
func containsBooking(list []domain.Booking, id string) bool {
	for _, b := range list {
		if b.ID == id {
			return true
		}
	}
	return false
}

func runContract(t *testing.T, drafts DraftRepository, bookings BookingRepository, links LinkRepository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("draft compare and swap", func(t *testing.T) {
		d := newDraft(now)
		require.NoError(t, drafts.Create(ctx, d))

		stale, err := drafts.Get(ctx, d.ID)
		require.NoError(t, err)

		d.State = domain.DraftStateExtrasSelected
		d.Extras = []domain.SelectedExtra{{ServiceID: "bag", PassengerID: "p1", SegmentID: "s1", Quantity: 1, Price: eur(3000)}}
		d.Totals = domain.Totals{Base: eur(20000), Extras: eur(3000), Grand: eur(23000)}
		require.NoError(t, drafts.Update(ctx, d, domain.DraftStateDraft))
		assert.Equal(t, int64(2), d.Version)

		stale.State = domain.DraftStateExtrasSelected
		assert.ErrorIs(t, drafts.Update(ctx, stale, domain.DraftStateDraft), domain.ErrConcurrentUpdate)

		got, err := drafts.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, eur(23000), got.Totals.Grand)
		assert.Len(t, got.Extras, 1)
	})

	t.Run("complete exactly once", func(t *testing.T) {
		d := newDraft(now)
		d.State = domain.DraftStateReadyForPayment
		require.NoError(t, drafts.Create(ctx, d))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				mine := *d
				mine.State = domain.DraftStateCompleted
				b := bookingFor(&mine, now)
				mine.BookingID = b.ID
				if err := drafts.Complete(ctx, &mine, b); err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, winners)

		got, err := drafts.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DraftStateCompleted, got.State)

		b, err := bookings.GetByDraftID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, got.BookingID, b.ID)
	})

	t.Run("booking transitions and markers", func(t *testing.T) {
		d := newDraft(now)
		d.State = domain.DraftStateReadyForPayment
		require.NoError(t, drafts.Create(ctx, d))
		d.State = domain.DraftStateCompleted
		b := bookingFor(d, now)
		d.BookingID = b.ID
		require.NoError(t, drafts.Complete(ctx, d, b))

		confirmed, err := bookings.UpdateStatus(ctx, b.ID, domain.BookingStatusPendingPayment, domain.BookingStatusConfirmed,
			StatusChange{OrderID: "ORD1", Reference: "ABC123", At: now})
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)
		assert.Equal(t, "ORD1", confirmed.OrderID)
		require.NotNil(t, confirmed.ConfirmedAt)

		_, err = bookings.UpdateStatus(ctx, b.ID, domain.BookingStatusPendingPayment, domain.BookingStatusConfirmed, StatusChange{At: now})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = bookings.UpdateStatus(ctx, "missing", domain.BookingStatusPendingPayment, domain.BookingStatusConfirmed, StatusChange{At: now})
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)

		unsent, err := bookings.ListUnsentConfirmations(ctx, now.Add(-time.Minute), 10)
		require.NoError(t, err)
		assert.False(t, containsBooking(unsent, b.ID), "confirmed too recently")
		unsent, err = bookings.ListUnsentConfirmations(ctx, now, 10)
		require.NoError(t, err)
		assert.True(t, containsBooking(unsent, b.ID))

		claimed, err := bookings.ClaimConfirmation(ctx, b.ID, now, time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)
		claimed, err = bookings.ClaimConfirmation(ctx, b.ID, now.Add(30*time.Second), time.Minute)
		require.NoError(t, err)
		assert.False(t, claimed, "claim is held")

		// a release by a stale holder leaves the current claim in place
		require.NoError(t, bookings.ReleaseConfirmationClaim(ctx, b.ID, now.Add(-time.Hour)))
		claimed, err = bookings.ClaimConfirmation(ctx, b.ID, now.Add(30*time.Second), time.Minute)
		require.NoError(t, err)
		assert.False(t, claimed)

		require.NoError(t, bookings.ReleaseConfirmationClaim(ctx, b.ID, now))
		claimed, err = bookings.ClaimConfirmation(ctx, b.ID, now.Add(30*time.Second), time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)

		// a holder that died is taken over once the lease ran out
		claimed, err = bookings.ClaimConfirmation(ctx, b.ID, now.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)

		_, err = bookings.ClaimConfirmation(ctx, "missing", now, time.Minute)
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)

		set, err := bookings.MarkConfirmationSent(ctx, b.ID, now)
		require.NoError(t, err)
		assert.True(t, set)

		claimed, err = bookings.ClaimConfirmation(ctx, b.ID, now.Add(time.Hour), time.Minute)
		require.NoError(t, err)
		assert.False(t, claimed, "already sent")

		unsent, err = bookings.ListUnsentConfirmations(ctx, now, 10)
		require.NoError(t, err)
		assert.False(t, containsBooking(unsent, b.ID))
		set, err = bookings.MarkConfirmationSent(ctx, b.ID, now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, set)

		set, err = bookings.SetSupportReference(ctx, b.ID, "SUP-1")
		require.NoError(t, err)
		assert.True(t, set)
		set, err = bookings.SetSupportReference(ctx, b.ID, "SUP-2")
		require.NoError(t, err)
		assert.False(t, set)

		got, err := bookings.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "SUP-1", got.SupportReference)
		require.NotNil(t, got.ConfirmationSentAt)
		assert.True(t, got.ConfirmationSentAt.Equal(now))

		list, err := bookings.ListByAccount(ctx, "acc-1")
		require.NoError(t, err)
		assert.NotEmpty(t, list)

		t.Run("links", func(t *testing.T) {
			first := &domain.BookingLink{Token: uuid.NewString(), BookingID: b.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
			second := &domain.BookingLink{Token: uuid.NewString(), BookingID: b.ID, ExpiresAt: now.Add(2 * time.Hour), CreatedAt: now}
			require.NoError(t, links.Create(ctx, first))
			require.NoError(t, links.Create(ctx, second))
			assert.ErrorIs(t, links.Create(ctx, first), ErrDuplicateToken)

			latest, err := links.LatestForBooking(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, second.Token, latest.Token)

			require.NoError(t, links.SetExpiry(ctx, second.Token, now.Add(-time.Second)))
			got, err := links.GetByToken(ctx, second.Token)
			require.NoError(t, err)
			assert.True(t, got.Expired(now))

			kept, created, err := links.CreateUnlessActive(ctx,
				&domain.BookingLink{Token: uuid.NewString(), BookingID: b.ID, ExpiresAt: now.Add(3 * time.Hour), CreatedAt: now}, now)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, first.Token, kept.Token)

			require.NoError(t, links.SetExpiry(ctx, first.Token, now.Add(-time.Second)))
			fresh := &domain.BookingLink{Token: uuid.NewString(), BookingID: b.ID, ExpiresAt: now.Add(3 * time.Hour), CreatedAt: now}
			stored, created, err := links.CreateUnlessActive(ctx, fresh, now)
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, fresh.Token, stored.Token)

			_, _, err = links.CreateUnlessActive(ctx,
				&domain.BookingLink{Token: uuid.NewString(), BookingID: "missing", ExpiresAt: now.Add(time.Hour), CreatedAt: now}, now)
			assert.ErrorIs(t, err, domain.ErrBookingNotFound)

			_, err = links.GetByToken(ctx, "nope")
			assert.ErrorIs(t, err, domain.ErrTokenNotFound)
		})
	})

	t.Run("expire sweep", func(t *testing.T) {
		d := newDraft(now)
		past := now.Add(-time.Minute)
		d.Offer.ExpiresAt = &past
		require.NoError(t, drafts.Create(ctx, d))

		ids, err := drafts.ExpireBefore(ctx, now)
		require.NoError(t, err)
		assert.Contains(t, ids, d.ID)

		got, err := drafts.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DraftStateExpired, got.State)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	store := NewMemoryStore()
	runContract(t, store.Drafts(), store.Bookings(), store.Links())
}

func TestMemoryStore_GetReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	d := newDraft(time.Now())
	require.NoError(t, store.Drafts().Create(ctx, d))

	got, err := store.Drafts().Get(ctx, d.ID)
	require.NoError(t, err)
	got.Passengers[0].GivenName = "changed"

	again, err := store.Drafts().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Passengers[0].GivenName)
}
