package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	multiplierService "skaila.com/gamification/internal/modules/multiplier/service"
	"skaila.com/gamification/pkg/response"
)

type PowerUpHandler struct {
	service multiplierService.PowerUpService
}

func NewPowerUpHandler(service multiplierService.PowerUpService) *PowerUpHandler {
	return &PowerUpHandler{service: service}
}

// Activate starts a power-up for the user. The window begins now.
func (h *PowerUpHandler) Activate(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	active, err := h.service.Activate(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": active})
}
