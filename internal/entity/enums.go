package entity

// Source identifies where XP came from. Caps and ledger sums are keyed by it.
type Source string

const (
	SourceMessage   Source = "message"
	SourceChatbot   Source = "chatbot"
	SourceQuiz      Source = "quiz"
	SourceHelp      Source = "help"
	SourceReaction  Source = "reaction"
	SourceChallenge Source = "challenge"
	SourceStreak    Source = "streak"
	SourceBadge     Source = "badge"
	SourceAdmin     Source = "admin"
)

var knownSources = map[Source]bool{
	SourceMessage:   true,
	SourceChatbot:   true,
	SourceQuiz:      true,
	SourceHelp:      true,
	SourceReaction:  true,
	SourceChallenge: true,
	SourceStreak:    true,
	SourceBadge:     true,
	SourceAdmin:     true,
}

func (s Source) Valid() bool { return knownSources[s] }

// CapExempt sources are reward or correction grants: no daily cap and no
// multipliers apply to them.
func (s Source) CapExempt() bool {
	switch s {
	case SourceChallenge, SourceStreak, SourceBadge, SourceAdmin:
		return true
	}
	return false
}

// ActionKind is what the user did. Challenge objectives are keyed by it.
type ActionKind string

const (
	ActionMessage    ActionKind = "message"
	ActionChatbot    ActionKind = "chatbot"
	ActionQuiz       ActionKind = "quiz"
	ActionHelp       ActionKind = "help"
	ActionReaction   ActionKind = "reaction"
	ActionStudyGroup ActionKind = "study_group"
)

type ChallengeKind string

const (
	ChallengeDaily  ChallengeKind = "daily"
	ChallengeWeekly ChallengeKind = "weekly"
	ChallengeClass  ChallengeKind = "class"
)

func (k ChallengeKind) Valid() bool {
	return k == ChallengeDaily || k == ChallengeWeekly || k == ChallengeClass
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties in assignment order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Window is a rolling XP aggregation period.
type Window string

const (
	WindowDaily    Window = "daily"
	WindowWeekly   Window = "weekly"
	WindowMonthly  Window = "monthly"
	WindowSeasonal Window = "seasonal"
	WindowLifetime Window = "lifetime"
)

// Resettable reports whether the window is zeroed periodically.
func (w Window) Resettable() bool {
	return w == WindowDaily || w == WindowWeekly || w == WindowMonthly || w == WindowSeasonal
}

func (w Window) Valid() bool {
	return w.Resettable() || w == WindowLifetime
}

// Notification types written by the engine.
const (
	NotificationRankUp             = "rank_up"
	NotificationBadgeUnlocked      = "badge_unlocked"
	NotificationChallengeCompleted = "challenge_completed"
	NotificationStreakMilestone    = "streak_milestone"
)
