package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	challengeService "skaila.com/gamification/internal/modules/challenge/service"
	"skaila.com/gamification/pkg/response"
)

type ChallengeHandler struct {
	service challengeService.ChallengeService
}

func NewChallengeHandler(service challengeService.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{service: service}
}

func (h *ChallengeHandler) GetActive(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	active, err := h.service.GetActive(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": active})
}

func (h *ChallengeHandler) AssignDaily(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	challenge, err := h.service.AssignDaily(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": challenge})
}

func (h *ChallengeHandler) AssignWeekly(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	challenges, err := h.service.AssignWeekly(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": challenges})
}

func (h *ChallengeHandler) AssignClass(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	challenge, err := h.service.AssignClass(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": challenge})
}
