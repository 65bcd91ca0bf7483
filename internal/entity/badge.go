package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BadgePredicate unlocks a badge once every listed stat reaches its minimum
// and, when MinRank is set, the user's rank is at least that rank.
type BadgePredicate struct {
	Min     map[string]int64 `json:"min,omitempty"`
	MinRank string           `json:"min_rank,omitempty"`
}

type Badge struct {
	Code        string                             `gorm:"size:50;primaryKey" json:"code"`
	Name        string                             `gorm:"size:100;not null" json:"name"`
	Description string                             `gorm:"type:text" json:"description"`
	Icon        string                             `gorm:"size:20" json:"icon"`
	Rarity      string                             `gorm:"size:20" json:"rarity"`
	Predicate   datatypes.JSONType[BadgePredicate] `gorm:"type:jsonb" json:"predicate"`
	RewardXP    int64                              `gorm:"not null;default:0" json:"reward_xp"`
}

type UserBadge struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge,priority:1" json:"user_id"`
	BadgeCode string    `gorm:"size:50;not null;uniqueIndex:idx_user_badge,priority:2" json:"badge_code"`
	AwardedAt time.Time `gorm:"not null" json:"awarded_at"`
}
