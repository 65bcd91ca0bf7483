package dto

import (
	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
	commonDto "skaila.com/gamification/pkg/dto"
)

type LeaderboardQuery struct {
	Window string `form:"window" binding:"omitempty,oneof=daily weekly monthly seasonal lifetime all_time"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// LeaderboardEntry is one user on a leaderboard. Position is 1-based.
type LeaderboardEntry struct {
	UserID             uuid.UUID                    `json:"user_id"`
	Position           int                          `json:"position"`
	XP                 int64                        `json:"xp"`
	GamificationStatus commonDto.GamificationStatus `json:"gamification_status"`
}

type LeaderboardResponse struct {
	Window  entity.Window      `json:"window"`
	Entries []LeaderboardEntry `json:"entries"`
}

type PositionResponse struct {
	UserID             uuid.UUID                    `json:"user_id"`
	Window             entity.Window                `json:"window"`
	Position           int                          `json:"position"`
	XP                 int64                        `json:"xp"`
	GamificationStatus commonDto.GamificationStatus `json:"gamification_status"`
}
