package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/Domenick1991/tripbooking/internal/service/draft"
	"github.com/Domenick1991/tripbooking/internal/service/link"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// PaymentHandler is the seam the payment provider calls once a charge settles.
// Deliveries may repeat; every step is safe to run again.
type PaymentHandler struct {
	drafts   draft.DraftUseCase
	bookings booking.BookingUseCase
	links    link.LinkUseCase
	linkTTL  time.Duration
	logger   logrus.FieldLogger
}

type paymentWebhookRequest struct {
	DraftID   string `json:"draft_id" binding:"required"`
	OrderID   string `json:"order_id"`
	Reference string `json:"reference"`
	Status    string `json:"status" binding:"required"`
	Reason    string `json:"reason"`
}

type paymentWebhookResponse struct {
	BookingID string               `json:"booking_id"`
	Status    domain.BookingStatus `json:"status"`
	Reference string               `json:"reference,omitempty"`
	Duplicate bool                 `json:"duplicate"`
}

func NewPaymentHandler(drafts draft.DraftUseCase, bookings booking.BookingUseCase, links link.LinkUseCase, linkTTL time.Duration, logger logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{
		drafts:   drafts,
		bookings: bookings,
		links:    links,
		linkTTL:  linkTTL,
		logger:   logger,
	}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/webhook", h.webhook)
}

func (h *PaymentHandler) webhook(c *gin.Context) {
	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	b, err := h.drafts.Complete(ctx, req.DraftID)
	if err != nil {
		writeError(c, err)
		return
	}

	var duplicate bool
	switch req.Status {
	case PaymentSucceeded:
		b, duplicate, err = h.confirm(ctx, b, req)
	case PaymentFailed:
		b, duplicate, err = h.fail(ctx, b, req.Reason)
	default:
		err = fmt.Errorf("%w: unknown payment status %q", domain.ErrInvalidInput, req.Status)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		"draft_id":   req.DraftID,
		"booking_id": b.ID,
		"status":     b.Status,
	})
	if duplicate {
		log.Info("duplicate payment notification ignored")
	} else {
		log.Info("payment notification applied")
	}
	c.JSON(http.StatusOK, paymentWebhookResponse{BookingID: b.ID, Status: b.Status, Reference: b.Reference, Duplicate: duplicate})
}

func (h *PaymentHandler) confirm(ctx context.Context, b *domain.Booking, req paymentWebhookRequest) (*domain.Booking, bool, error) {
	// Confirm publishes booking_confirmed, so the link has to exist before it
	// for the confirmation to carry one.
	if b.Status == domain.BookingStatusPendingPayment {
		h.ensureLink(ctx, b.ID)
	}

	confirmed, err := h.bookings.Confirm(ctx, b.ID, req.OrderID, req.Reference)
	if errors.Is(err, domain.ErrInvalidTransition) {
		current, getErr := h.bookings.Get(ctx, b.ID)
		if getErr != nil {
			return nil, false, getErr
		}
		if current.Status != domain.BookingStatusConfirmed || current.OrderID != req.OrderID {
			return nil, false, err
		}
		// an earlier delivery may have failed to mint the link
		h.ensureLink(ctx, current.ID)
		return current, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return confirmed, false, nil
}

// ensureLink failures only mean the confirmation goes out without a guest link.
func (h *PaymentHandler) ensureLink(ctx context.Context, bookingID string) {
	if _, err := h.links.EnsureLink(ctx, bookingID, h.linkTTL); err != nil {
		h.logger.WithError(err).WithField("booking_id", bookingID).Warn("failed to issue guest link")
	}
}

func (h *PaymentHandler) fail(ctx context.Context, b *domain.Booking, reason string) (*domain.Booking, bool, error) {
	failed, err := h.bookings.Fail(ctx, b.ID, reason)
	if errors.Is(err, domain.ErrInvalidTransition) {
		current, getErr := h.bookings.Get(ctx, b.ID)
		if getErr != nil {
			return nil, false, getErr
		}
		if current.Status == domain.BookingStatusFailed {
			return current, true, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return failed, false, nil
}
