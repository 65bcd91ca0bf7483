package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// XPLedgerEntry is an append-only record of a single XP grant.
type XPLedgerEntry struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_ledger_user_source_time,priority:1" json:"user_id"`
	Amount      int64             `gorm:"not null" json:"amount"`
	Source      Source            `gorm:"size:30;not null;index:idx_ledger_user_source_time,priority:2" json:"source"`
	Action      ActionKind        `gorm:"size:30" json:"action,omitempty"`
	CapExempt   bool              `gorm:"not null;default:false" json:"cap_exempt"`
	Reference   string            `gorm:"size:100" json:"reference,omitempty"`
	Description string            `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index:idx_ledger_user_source_time,priority:3" json:"created_at"`
}

func (XPLedgerEntry) TableName() string { return "xp_ledger" }
