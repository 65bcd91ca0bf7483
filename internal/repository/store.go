package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
)

// InsertResult reports whether an insert created Row or found an existing
// row under the same unique key.
type InsertResult[T any] struct {
	Row      T
	Inserted bool
}

// Store opens transactions and serves reads that don't need one.
type Store interface {
	// WithinTx commits when fn returns nil and rolls back otherwise. fn may
	// be invoked more than once when the store retries transient failures.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Reader
}

type Reader interface {
	// FindProfile returns apperror.ErrNotFound for users never awarded.
	FindProfile(ctx context.Context, userID uuid.UUID) (*entity.UserGamification, error)
	FindLeaderboardRow(ctx context.Context, userID uuid.UUID) (*entity.LeaderboardRow, error)
	TopLeaderboard(ctx context.Context, window entity.Window, limit int) ([]entity.LeaderboardRow, error)
	// LeaderboardPosition is 1 + the number of users strictly ahead.
	LeaderboardPosition(ctx context.Context, userID uuid.UUID, window entity.Window) (int, error)
	UserBadges(ctx context.Context, userID uuid.UUID) ([]entity.UserBadge, error)
	ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// Tx is the set of primitives available inside a transaction.
type Tx interface {
	// GetOrCreateProfile creates the profile and leaderboard row when
	// missing and returns the profile locked for the rest of the tx.
	GetOrCreateProfile(ctx context.Context, seed *entity.UserGamification) (*entity.UserGamification, error)
	SaveProfile(ctx context.Context, profile *entity.UserGamification) error

	AppendLedger(ctx context.Context, entry *entity.XPLedgerEntry) error
	// SumLedger sums capped (non exempt) rows of source created in
	// [since, until), including rows written earlier in this tx.
	SumLedger(ctx context.Context, userID uuid.UUID, source entity.Source, since, until time.Time) (int64, error)
	UpdateLeaderboard(ctx context.Context, userID uuid.UUID, delta int64) error

	UserBadgeCodes(ctx context.Context, userID uuid.UUID) (map[string]bool, error)
	InsertUserBadge(ctx context.Context, badge *entity.UserBadge) (InsertResult[entity.UserBadge], error)

	OpenChallenges(ctx context.Context, userID uuid.UUID, now time.Time) ([]entity.UserChallenge, error)
	ChallengesAssignedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]entity.UserChallenge, error)
	// FindUserChallengeBySlot returns nil when the slot is empty.
	FindUserChallengeBySlot(ctx context.Context, userID uuid.UUID, slot string) (*entity.UserChallenge, error)
	InsertUserChallenge(ctx context.Context, uc *entity.UserChallenge) (InsertResult[entity.UserChallenge], error)
	SaveUserChallenge(ctx context.Context, uc *entity.UserChallenge) error
	// DeleteStaleChallenges removes uncompleted instances of kind assigned
	// before the cutoff.
	DeleteStaleChallenges(ctx context.Context, userID uuid.UUID, kind entity.ChallengeKind, before time.Time) (int64, error)

	ActivePowerUps(ctx context.Context, userID uuid.UUID, at time.Time) ([]entity.UserPowerUp, error)
	ActiveEvents(ctx context.Context, at time.Time) ([]entity.Event, error)
	FindPowerUp(ctx context.Context, code string) (*entity.PowerUp, error)
	InsertUserPowerUp(ctx context.Context, up *entity.UserPowerUp) error

	InsertNotification(ctx context.Context, n *entity.Notification) error

	// ClaimWindowReset returns false when the period was already reset.
	ClaimWindowReset(ctx context.Context, window entity.Window, periodKey string, at time.Time) (bool, error)
	// RebaseWindow sets every user's window total to the sum of their
	// ledger entries created at or after since.
	RebaseWindow(ctx context.Context, window entity.Window, since time.Time) error
}

// NotificationRepository serves the notification inbox outside the award
// path.
type NotificationRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}
