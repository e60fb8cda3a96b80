package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/Domenick1991/tripbooking/internal/service/link"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookings     booking.BookingUseCase
	links        link.LinkUseCase
	linkTTL      time.Duration
	guestBaseURL string
}

type issueLinkRequest struct {
	TTLHours int `json:"ttl_hours"`
}

func NewBookingHandler(bookings booking.BookingUseCase, links link.LinkUseCase, linkTTL time.Duration, guestBaseURL string) *BookingHandler {
	return &BookingHandler{
		bookings:     bookings,
		links:        links,
		linkTTL:      linkTTL,
		guestBaseURL: strings.TrimRight(guestBaseURL, "/"),
	}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/links", h.issueLink)
	router.POST("/:id/links/:token/revoke", h.revokeLink)
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.bookings.ListForAccount(c.Request.Context(), accountID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		items = append(items, newBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.bookings.GetForAccount(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.bookings.Cancel(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) issueLink(c *gin.Context) {
	var req issueLinkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	b, err := h.bookings.GetForAccount(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	ttl := h.linkTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}
	l, err := h.links.Issue(c.Request.Context(), b.ID, ttl)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, linkResponse{Token: l.Token, URL: h.guestURL(l.Token), ExpiresAt: l.ExpiresAt})
}

func (h *BookingHandler) revokeLink(c *gin.Context) {
	b, err := h.bookings.GetForAccount(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.links.Revoke(c.Request.Context(), b.ID, c.Param("token")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) guestURL(token string) string {
	if h.guestBaseURL == "" {
		return ""
	}
	return h.guestBaseURL + "/" + url.PathEscape(token)
}
