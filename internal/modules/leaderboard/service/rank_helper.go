package service

import (
	"skaila.com/gamification/internal/rulebook"
	"skaila.com/gamification/pkg/dto"
)

// Weekly activity thresholds, in XP earned during the current ISO week.
const (
	WeeklyOnFire = 500
	WeeklyRising = 250
	WeeklyActive = 100
)

// MaxLevel is shown as the next rank once the top rank is reached.
const MaxLevel = "Livello massimo"

// GetGamificationStatus builds the rank summary for a leaderboard entry.
// The rank always follows lifetime XP; the weekly label only reflects recent
// activity.
func GetGamificationStatus(rules *rulebook.Rulebook, lifetimeXP, weeklyXP int64) dto.GamificationStatus {
	progress := rules.Progress(lifetimeXP)

	status := dto.GamificationStatus{
		RankName:      progress.Current.Name,
		RankIcon:      progress.Current.Icon,
		RankColor:     progress.Current.Color,
		CurrentPoints: lifetimeXP,
		Progress:      progress.Percent,
		WeeklyPoints:  weeklyXP,
		WeeklyLabel:   WeeklyLabel(weeklyXP),
	}
	if progress.Next != nil {
		status.NextRank = progress.Next.Name
		status.TargetPoints = progress.Next.MinXP
	} else {
		status.NextRank = MaxLevel
		status.TargetPoints = progress.Current.MinXP
	}
	return status
}

func WeeklyLabel(weeklyXP int64) string {
	switch {
	case weeklyXP >= WeeklyOnFire:
		return "🔥 In fiamme!"
	case weeklyXP >= WeeklyRising:
		return "⚡ In ascesa"
	case weeklyXP >= WeeklyActive:
		return "📈 Attivo"
	default:
		return ""
	}
}
