package entity

import (
	"time"

	"github.com/google/uuid"
)

type PowerUp struct {
	Code            string  `gorm:"size:50;primaryKey" json:"code"`
	Name            string  `gorm:"size:100;not null" json:"name"`
	Description     string  `gorm:"type:text" json:"description"`
	XPMultiplier    float64 `gorm:"not null;default:1" json:"xp_multiplier"`
	DurationMinutes int     `gorm:"not null;default:0" json:"duration_minutes"`
	Available       bool    `gorm:"not null;default:true" json:"available"`
}

// UserPowerUp is an activated power-up. The multiplier is copied at
// activation so later catalog edits don't change running boosts.
type UserPowerUp struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PowerUpCode  string     `gorm:"size:50;not null" json:"power_up_code"`
	XPMultiplier float64    `gorm:"not null" json:"xp_multiplier"`
	Active       bool       `gorm:"not null;default:true" json:"active"`
	ActivatedAt  time.Time  `gorm:"not null" json:"activated_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func (u UserPowerUp) Covers(at time.Time) bool {
	if !u.Active || at.Before(u.ActivatedAt) {
		return false
	}
	return u.ExpiresAt == nil || at.Before(*u.ExpiresAt)
}

// Event is a platform-wide XP boost valid between StartsAt and EndsAt.
type Event struct {
	Code         string    `gorm:"size:50;primaryKey" json:"code"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	XPMultiplier float64   `gorm:"not null;default:1" json:"xp_multiplier"`
	StartsAt     time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt       time.Time `gorm:"not null;index" json:"ends_at"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
}

func (e Event) Covers(at time.Time) bool {
	return e.Active && !at.Before(e.StartsAt) && !at.After(e.EndsAt)
}
