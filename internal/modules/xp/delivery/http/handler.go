package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"skaila.com/gamification/internal/entity"
	xpDto "skaila.com/gamification/internal/modules/xp/dto"
	xpService "skaila.com/gamification/internal/modules/xp/service"
	"skaila.com/gamification/pkg/response"
	"skaila.com/gamification/pkg/validator"
)

type XPHandler struct {
	service xpService.XPService
}

func NewXPHandler(service xpService.XPService) *XPHandler {
	return &XPHandler{service: service}
}

// Award is called by trusted platform services after a user acts.
func (h *XPHandler) Award(c *gin.Context) {
	var req xpDto.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	outcome, err := h.service.Award(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": outcome})
}

func (h *XPHandler) GetProfile(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

func (h *XPHandler) UpdateCosmetics(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req xpDto.CosmeticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	profile, err := h.service.UpdateCosmetics(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// ResetWindow is an admin fallback for the scheduled window resets.
func (h *XPHandler) ResetWindow(c *gin.Context) {
	result, err := h.service.ResetWindow(c.Request.Context(), entity.Window(c.Param("window")))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
