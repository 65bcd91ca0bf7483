package dto

import (
	"time"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
)

type UserChallengeResponse struct {
	ID          uuid.UUID            `json:"id"`
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Kind        entity.ChallengeKind `json:"kind"`
	Difficulty  entity.Difficulty    `json:"difficulty"`
	Objectives  entity.Objectives    `json:"objectives"`
	Progress    entity.Objectives    `json:"progress"`
	Status      string               `json:"status"`
	RewardXP    int64                `json:"reward_xp"`
	AssignedAt  time.Time            `json:"assigned_at"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

type ActiveChallengesResponse struct {
	Daily  *UserChallengeResponse  `json:"daily"`
	Weekly []UserChallengeResponse `json:"weekly"`
	Class  []UserChallengeResponse `json:"class"`
}

// FanOutResult summarises a scheduled assignment run.
type FanOutResult struct {
	Users    int `json:"users"`
	Assigned int `json:"assigned"`
	Failed   int `json:"failed"`
}
