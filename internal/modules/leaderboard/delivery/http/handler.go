package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	leaderboardDto "skaila.com/gamification/internal/modules/leaderboard/dto"
	leaderboardService "skaila.com/gamification/internal/modules/leaderboard/service"
	"skaila.com/gamification/pkg/response"
	"skaila.com/gamification/pkg/validator"
)

type LeaderboardHandler struct {
	service leaderboardService.LeaderboardService
}

func NewLeaderboardHandler(service leaderboardService.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	var query leaderboardDto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	window, err := leaderboardService.ParseWindow(query.Window)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	leaderboard, err := h.service.GetLeaderboard(c.Request.Context(), window, query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": leaderboard})
}

func (h *LeaderboardHandler) GetPosition(c *gin.Context) {
	userID, err := response.ParseUUIDParam(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	window, err := leaderboardService.ParseWindow(c.Query("window"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	position, err := h.service.GetPosition(c.Request.Context(), userID, window)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": position})
}
