package api

import (
	"net/http"

	"github.com/Domenick1991/tripbooking/internal/service/link"
	"github.com/gin-gonic/gin"
)

// GuestHandler serves the read-only booking page reached through a guest link.
type GuestHandler struct {
	links link.LinkUseCase
}

func NewGuestHandler(links link.LinkUseCase) *GuestHandler {
	return &GuestHandler{links: links}
}

func (h *GuestHandler) Register(router *gin.RouterGroup) {
	router.GET("/:token", h.resolve)
}

func (h *GuestHandler) resolve(c *gin.Context) {
	view, err := h.links.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, view)
}
