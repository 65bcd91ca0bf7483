package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Counters are monotonically increasing activity tallies used by badge
// predicates (messages_sent, quizzes_completed, ...).
type Counters map[string]int64

// Cosmetics are purely visual choices, never read by the award path.
type Cosmetics struct {
	AvatarID string `json:"avatar_id,omitempty"`
	Theme    string `json:"theme,omitempty"`
	Title    string `json:"title,omitempty"`
	Frame    string `json:"frame,omitempty"`
}

type UserGamification struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	XPTotal     int64     `gorm:"not null;default:0" json:"xp_total"`
	XPSeasonal  int64     `gorm:"not null;default:0" json:"xp_seasonal"`
	XPWeekly    int64     `gorm:"not null;default:0" json:"xp_weekly"`
	XPDaily     int64     `gorm:"not null;default:0" json:"xp_daily"`
	Rank        string    `gorm:"size:50;not null" json:"rank"`
	RankMaxEver string    `gorm:"size:50;not null" json:"rank_max_ever"`

	StreakDays    int `gorm:"not null;default:0" json:"streak_days"`
	StreakLongest int `gorm:"not null;default:0" json:"streak_longest"`
	// LastActiveDate is a calendar date (YYYY-MM-DD) in the platform timezone.
	LastActiveDate string    `gorm:"size:10" json:"last_active_date"`
	LastActivityAt time.Time `gorm:"index" json:"last_activity_at"`

	Counters  datatypes.JSONType[Counters]  `gorm:"type:jsonb" json:"counters"`
	Cosmetics datatypes.JSONType[Cosmetics] `gorm:"type:jsonb" json:"cosmetics"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserGamification) TableName() string { return "user_gamification" }

func NewUserGamification(userID uuid.UUID, baseRank string, now time.Time) *UserGamification {
	return &UserGamification{
		UserID:         userID,
		Rank:           baseRank,
		RankMaxEver:    baseRank,
		LastActivityAt: now,
		Counters:       datatypes.NewJSONType(Counters{}),
		Cosmetics:      datatypes.NewJSONType(Cosmetics{}),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (p *UserGamification) Counter(name string) int64 {
	return p.Counters.Data()[name]
}

// AddCounters applies deltas on a fresh map so earlier snapshots of the
// profile never observe the change. Counters never go below zero.
func (p *UserGamification) AddCounters(deltas map[string]int64) {
	if len(deltas) == 0 {
		return
	}
	current := p.Counters.Data()
	next := make(Counters, len(current)+len(deltas))
	for k, v := range current {
		next[k] = v
	}
	for k, d := range deltas {
		next[k] = max(0, next[k]+d)
	}
	p.Counters = datatypes.NewJSONType(next)
}

// Stats is the view badge predicates are evaluated against.
func (p *UserGamification) Stats() map[string]int64 {
	current := p.Counters.Data()
	stats := make(map[string]int64, len(current)+3)
	for k, v := range current {
		stats[k] = v
	}
	stats["xp_total"] = p.XPTotal
	stats["streak_days"] = int64(p.StreakDays)
	stats["streak_longest"] = int64(p.StreakLongest)
	return stats
}

// LeaderboardRow holds per-window XP totals. Positions are derived from it
// at read time and never stored.
type LeaderboardRow struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	XPToday    int64     `gorm:"not null;default:0;index" json:"xp_today"`
	XPWeek     int64     `gorm:"not null;default:0;index" json:"xp_week"`
	XPMonth    int64     `gorm:"not null;default:0;index" json:"xp_month"`
	XPSeason   int64     `gorm:"not null;default:0;index" json:"xp_season"`
	XPLifetime int64     `gorm:"not null;default:0;index" json:"xp_lifetime"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (LeaderboardRow) TableName() string { return "leaderboard" }

func (r LeaderboardRow) Value(w Window) int64 {
	switch w {
	case WindowDaily:
		return r.XPToday
	case WindowWeekly:
		return r.XPWeek
	case WindowMonthly:
		return r.XPMonth
	case WindowSeasonal:
		return r.XPSeason
	default:
		return r.XPLifetime
	}
}

// WindowReset records that a window was zeroed for a period, making resets
// idempotent when a tick is delivered twice.
type WindowReset struct {
	Window    Window    `gorm:"size:20;primaryKey" json:"window"`
	PeriodKey string    `gorm:"size:20;primaryKey" json:"period_key"`
	ResetAt   time.Time `json:"reset_at"`
}
