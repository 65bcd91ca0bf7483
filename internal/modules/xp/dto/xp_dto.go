package dto

import (
	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
)

// AwardRequest is the input of a single award. Amount, ApplyCaps and
// ApplyMultipliers are pointers so that omitted fields take their defaults.
type AwardRequest struct {
	UserID           uuid.UUID         `json:"user_id" binding:"required"`
	Source           entity.Source     `json:"source"`
	Action           entity.ActionKind `json:"action"`
	Amount           *int64            `json:"amount"`
	Flags            map[string]bool   `json:"flags"`
	Counters         map[string]int64  `json:"counters"`
	FirstOfDay       bool              `json:"first_of_day"`
	Description      string            `json:"description" binding:"max=500"`
	Metadata         map[string]any    `json:"metadata"`
	ApplyCaps        *bool             `json:"apply_caps"`
	ApplyMultipliers *bool             `json:"apply_multipliers"`
}

type CompletedChallenge struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	RewardXP int64  `json:"reward_xp"`
}

// Grant is one ledger-bearing step of an award: the root action or a
// reward it triggered.
type Grant struct {
	Source entity.Source `json:"source"`
	Amount int64         `json:"amount"`
	Ref    string        `json:"ref,omitempty"`
	Depth  int           `json:"depth"`
}

type Outcome struct {
	XPGranted           int64                `json:"xp_granted"`
	XPTotal             int64                `json:"xp_total"`
	Rank                string               `json:"rank"`
	RankChanged         bool                 `json:"rank_changed"`
	RankNew             string               `json:"rank_new,omitempty"`
	BadgesUnlocked      []string             `json:"badges_unlocked"`
	ChallengesCompleted []CompletedChallenge `json:"challenges_completed"`
	Capped              bool                 `json:"capped"`
	StreakDays          int                  `json:"streak_days"`
	Grants              []Grant              `json:"grants"`
}

type WindowTotals struct {
	Daily    int64 `json:"daily"`
	Weekly   int64 `json:"weekly"`
	Monthly  int64 `json:"monthly"`
	Seasonal int64 `json:"seasonal"`
	Lifetime int64 `json:"lifetime"`
}

type RankProgress struct {
	NextRank string  `json:"next_rank,omitempty"`
	XPNeeded int64   `json:"xp_needed"`
	Percent  float64 `json:"percent"`
}

type ProfileResponse struct {
	UserID         uuid.UUID        `json:"user_id"`
	XPTotal        int64            `json:"xp_total"`
	XPWindows      WindowTotals     `json:"xp_window_totals"`
	Rank           string           `json:"rank"`
	RankIcon       string           `json:"rank_icon"`
	RankColor      string           `json:"rank_color"`
	RankMaxEver    string           `json:"rank_max_ever"`
	StreakDays     int              `json:"streak_days"`
	StreakLongest  int              `json:"streak_longest"`
	LastActiveDate string           `json:"last_active_date,omitempty"`
	Counters       entity.Counters  `json:"counters"`
	Cosmetics      entity.Cosmetics `json:"cosmetics"`
	Badges         []string         `json:"badges"`
	Progress       RankProgress     `json:"progress_to_next_rank"`
}

type CosmeticsRequest struct {
	AvatarID string `json:"avatar_id" binding:"max=50"`
	Theme    string `json:"theme" binding:"max=30"`
	Title    string `json:"title" binding:"max=50"`
	Frame    string `json:"frame" binding:"max=30"`
}

type ResetResponse struct {
	Window    entity.Window `json:"window"`
	PeriodKey string        `json:"period_key"`
	Reset     bool          `json:"reset"`
}
