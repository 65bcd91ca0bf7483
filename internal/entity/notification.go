package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Notification struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string            `gorm:"size:50;not null" json:"type"`
	Title     string            `gorm:"size:150;not null" json:"title"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Data      datatypes.JSONMap `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead    bool              `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "gamification_notifications" }

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
