package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidExtra, http.StatusUnprocessableEntity, "invalid_extra"},
	{domain.ErrInvalidReference, http.StatusUnprocessableEntity, "invalid_reference"},
	{domain.ErrIncompleteTravelerData, http.StatusUnprocessableEntity, "incomplete_traveler_data"},
	{domain.ErrInvalidCurrency, http.StatusUnprocessableEntity, "invalid_currency"},
	{domain.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input"},
	{domain.ErrNoRecipientAddress, http.StatusUnprocessableEntity, "no_recipient_address"},

	{domain.ErrOfferExpired, http.StatusGone, "offer_expired"},
	{domain.ErrDraftExpired, http.StatusGone, "draft_expired"},
	{domain.ErrTokenExpired, http.StatusGone, "token_expired"},

	{domain.ErrDraftNotFound, http.StatusNotFound, "draft_not_found"},
	{domain.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{domain.ErrTokenNotFound, http.StatusNotFound, "token_not_found"},

	{domain.ErrDraftFinalized, http.StatusConflict, "draft_finalized"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{domain.ErrSendInProgress, http.StatusConflict, "send_in_progress"},

	{domain.ErrOfferUnavailable, http.StatusBadGateway, "offer_unavailable"},
	{domain.ErrDeliveryFailed, http.StatusBadGateway, "delivery_failed"},
}

func statusFor(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeError maps domain errors to HTTP statuses. Unknown errors are attached to
// the context for the request logger and hidden from the client.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "bad_request"})
}
