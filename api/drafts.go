package api

import (
	"net/http"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/draft"
	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	service draft.DraftUseCase
}

type createDraftRequest struct {
	TripID     string             `json:"trip_id"`
	OfferID    string             `json:"offer_id" binding:"required"`
	Passengers []domain.Passenger `json:"passengers"`
}

type selectExtrasRequest struct {
	Items []domain.ExtraSelection `json:"items"`
}

func NewDraftHandler(service draft.DraftUseCase) *DraftHandler {
	return &DraftHandler{service: service}
}

func (h *DraftHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.GET("/:id/status", h.status)
	router.GET("/:id/extras", h.extras)
	router.PUT("/:id/extras", h.selectExtras)
	router.PATCH("/:id/passengers/:passengerId", h.updatePassenger)
	router.POST("/:id/ready", h.ready)
}

func (h *DraftHandler) create(c *gin.Context) {
	var req createDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.service.Create(c.Request.Context(), draft.CreateInput{
		AccountID:  accountID(c),
		TripID:     req.TripID,
		OfferID:    req.OfferID,
		Passengers: req.Passengers,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDraftResponse(d))
}

func (h *DraftHandler) get(c *gin.Context) {
	d, err := h.service.Get(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(d))
}

func (h *DraftHandler) status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *DraftHandler) extras(c *gin.Context) {
	extras, err := h.service.AvailableExtras(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if extras == nil {
		extras = []domain.AvailableExtra{}
	}
	c.JSON(http.StatusOK, gin.H{"items": extras})
}

func (h *DraftHandler) selectExtras(c *gin.Context) {
	var req selectExtrasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.service.SelectExtras(c.Request.Context(), accountID(c), c.Param("id"), req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(d))
}

func (h *DraftHandler) updatePassenger(c *gin.Context) {
	var req draft.PassengerDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.service.UpdatePassenger(c.Request.Context(), accountID(c), c.Param("id"), c.Param("passengerId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(d))
}

func (h *DraftHandler) ready(c *gin.Context) {
	d, err := h.service.MarkReadyForPayment(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(d))
}
