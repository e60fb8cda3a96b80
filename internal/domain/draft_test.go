package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eur(v int64) Money { return Money{Amount: v, Currency: "EUR"} }

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		from, to DraftState
		ok       bool
	}{
		{DraftStateDraft, DraftStateExtrasSelected, true},
		{DraftStateDraft, DraftStateReadyForPayment, true},
		{DraftStateDraft, DraftStateCompleted, false},
		{DraftStateExtrasSelected, DraftStateReadyForPayment, true},
		{DraftStateReadyForPayment, DraftStateCompleted, true},
		{DraftStateReadyForPayment, DraftStateExtrasSelected, true},
		{DraftStateExtrasSelected, DraftStateCompleted, false},
		{DraftStateDraft, DraftStateExpired, true},
		{DraftStateCompleted, DraftStateExpired, false},
		{DraftStateExpired, DraftStateDraft, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to))
		})
	}
}

func TestComputeTotals(t *testing.T) {
	totals, err := ComputeTotals(eur(20000), []SelectedExtra{
		{ServiceID: "bag", Price: eur(3000)},
		{ServiceID: "seat", Price: eur(1250)},
	})
	require.NoError(t, err)
	assert.Equal(t, eur(20000), totals.Base)
	assert.Equal(t, eur(4250), totals.Extras)
	assert.Equal(t, eur(24250), totals.Grand)

	_, err = ComputeTotals(eur(20000), []SelectedExtra{{ServiceID: "bag", Price: Money{Amount: 1, Currency: "USD"}}})
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestBookingDraft_VerifyTotals(t *testing.T) {
	d := &BookingDraft{
		Offer:  OfferSnapshot{BasePrice: eur(20000)},
		Extras: []SelectedExtra{{ServiceID: "bag", Price: eur(3000)}},
		Totals: Totals{Base: eur(20000), Extras: eur(3000), Grand: eur(23000)},
	}
	assert.NoError(t, d.VerifyTotals())

	d.Totals.Grand = eur(22999)
	assert.ErrorIs(t, d.VerifyTotals(), ErrTotalsMismatch)
}

func TestBookingDraft_Elapsed(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	offerExp := now.Add(time.Hour)
	draftExp := now.Add(30 * time.Minute)
	d := &BookingDraft{Offer: OfferSnapshot{ExpiresAt: &offerExp}, ExpiresAt: &draftExp}

	assert.NoError(t, d.Elapsed(now))
	assert.ErrorIs(t, d.Elapsed(now.Add(45*time.Minute)), ErrDraftExpired)
	assert.ErrorIs(t, d.Elapsed(now.Add(2*time.Hour)), ErrOfferExpired)

	d.Offer.ExpiresAt = nil
	d.ExpiresAt = nil
	assert.NoError(t, d.Elapsed(now.Add(24*time.Hour)))
}

func TestPassenger_MissingFields(t *testing.T) {
	dob := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
	p := Passenger{ID: "p1", GivenName: "Ada", FamilyName: "Lovelace", DateOfBirth: &dob, Gender: "f"}

	assert.Empty(t, p.MissingFields(false))
	assert.ElementsMatch(t, []string{"document.number", "document.issuing_country", "document.expires_on"}, p.MissingFields(true))

	assert.Contains(t, Passenger{}.MissingFields(false), "given_name")
}

func TestBookingLink_Expired(t *testing.T) {
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := &BookingLink{ExpiresAt: exp}

	assert.False(t, l.Expired(exp.Add(-time.Millisecond)))
	assert.True(t, l.Expired(exp.Add(time.Millisecond)))
}

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, BookingStatusPendingPayment.CanTransitionTo(BookingStatusConfirmed))
	assert.True(t, BookingStatusPendingPayment.CanTransitionTo(BookingStatusFailed))
	assert.True(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusCancelled))
	assert.False(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusFailed))
	assert.False(t, BookingStatusFailed.CanTransitionTo(BookingStatusConfirmed))
	assert.False(t, BookingStatusCancelled.CanTransitionTo(BookingStatusConfirmed))
}
