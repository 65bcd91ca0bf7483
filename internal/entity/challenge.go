package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Objectives map an action kind to the count required (or reached, when
// used as progress).
type Objectives map[ActionKind]int64

type Challenge struct {
	Code        string                         `gorm:"size:50;primaryKey" json:"code"`
	Name        string                         `gorm:"size:100;not null" json:"name"`
	Description string                         `gorm:"type:text" json:"description"`
	Kind        ChallengeKind                  `gorm:"size:20;not null;index" json:"kind"`
	Difficulty  Difficulty                     `gorm:"size:20;not null" json:"difficulty"`
	Objectives  datatypes.JSONType[Objectives] `gorm:"type:jsonb" json:"objectives"`
	RewardXP    int64                          `gorm:"not null" json:"reward_xp"`
	Active      bool                           `gorm:"not null;default:true" json:"active"`
}

const (
	ChallengeStatusAssigned   = "assigned"
	ChallengeStatusInProgress = "in_progress"
	ChallengeStatusCompleted  = "completed"
)

// UserChallenge is a challenge instance assigned to a user. SlotKey is unique
// per user so a period can hold at most one instance per slot.
type UserChallenge struct {
	ID            uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:idx_user_challenge_slot,priority:1;index" json:"user_id"`
	SlotKey       string                         `gorm:"size:80;not null;uniqueIndex:idx_user_challenge_slot,priority:2" json:"slot_key"`
	ChallengeCode string                         `gorm:"size:50;not null" json:"challenge_code"`
	Kind          ChallengeKind                  `gorm:"size:20;not null" json:"kind"`
	Difficulty    Difficulty                     `gorm:"size:20;not null" json:"difficulty"`
	Progress      datatypes.JSONType[Objectives] `gorm:"type:jsonb" json:"progress"`
	Completed     bool                           `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt   *time.Time                     `json:"completed_at,omitempty"`
	AssignedAt    time.Time                      `gorm:"not null;index" json:"assigned_at"`
	ExpiresAt     *time.Time                     `json:"expires_at,omitempty"`
}

func (uc *UserChallenge) Status() string {
	if uc.Completed {
		return ChallengeStatusCompleted
	}
	for _, v := range uc.Progress.Data() {
		if v > 0 {
			return ChallengeStatusInProgress
		}
	}
	return ChallengeStatusAssigned
}

// Open reports whether the instance can still make progress at now.
func (uc *UserChallenge) Open(now time.Time) bool {
	return !uc.Completed && (uc.ExpiresAt == nil || uc.ExpiresAt.After(now))
}

// AddProgress copies the progress map before changing it.
func (uc *UserChallenge) AddProgress(action ActionKind, amount int64) Objectives {
	current := uc.Progress.Data()
	next := make(Objectives, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[action] += amount
	uc.Progress = datatypes.NewJSONType(next)
	return next
}
