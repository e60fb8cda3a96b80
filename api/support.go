package api

import (
	"net/http"

	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// SupportHandler serves the back-office tooling behind the shared secret.
type SupportHandler struct {
	bookings booking.BookingUseCase
}

type supportReferenceRequest struct {
	Reference string `json:"reference" binding:"required"`
}

func NewSupportHandler(bookings booking.BookingUseCase) *SupportHandler {
	return &SupportHandler{bookings: bookings}
}

func (h *SupportHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings/:id", h.get)
	router.PUT("/bookings/:id/support-reference", h.setReference)
}

func (h *SupportHandler) get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *SupportHandler) setReference(c *gin.Context) {
	var req supportReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	set, err := h.bookings.SetSupportReference(c.Request.Context(), c.Param("id"), req.Reference)
	if err != nil {
		writeError(c, err)
		return
	}
	if !set {
		c.JSON(http.StatusConflict, errorResponse{Error: "support reference already set", Code: "already_set"})
		return
	}
	c.Status(http.StatusNoContent)
}
