package domain

import "errors"

// Validation errors. Surfaced to the caller, never retried.
var (
	ErrInvalidExtra           = errors.New("invalid extra")
	ErrInvalidReference       = errors.New("invalid passenger or segment reference")
	ErrIncompleteTravelerData = errors.New("incomplete traveler data")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidCurrency        = errors.New("invalid currency")
)

// Temporal errors. Terminal for the affected entity.
var (
	ErrOfferExpired = errors.New("offer expired")
	ErrDraftExpired = errors.New("draft expired")
	ErrTokenExpired = errors.New("token expired")
)

// Upstream errors. Safe to retry.
var (
	ErrOfferUnavailable = errors.New("offer unavailable")
	ErrDeliveryFailed   = errors.New("confirmation delivery failed")
	ErrSendInProgress   = errors.New("confirmation send already in progress")
)

// State conflicts. A concurrent or duplicate request already produced the effect.
var (
	ErrDraftFinalized    = errors.New("draft already finalized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConcurrentUpdate  = errors.New("concurrent update")
)

// Lookups.
var (
	ErrDraftNotFound   = errors.New("draft not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrTokenNotFound   = errors.New("token not found")
)

var (
	ErrNoRecipientAddress = errors.New("no recipient address")

	// ErrTotalsMismatch is an internal consistency failure: the stored totals do not
	// equal the sum of the line items. The transition is aborted.
	ErrTotalsMismatch   = errors.New("totals do not match line items")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrAmountOverflow   = errors.New("amount overflow")
)
