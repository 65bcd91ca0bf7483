package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/pkg/apperror"
)

type gormStore struct {
	db          *gorm.DB
	txTimeout   time.Duration
	lockTimeout time.Duration
}

// NewGormStore returns a Postgres-backed Store. Each transaction runs under
// txTimeout and sets lock_timeout so a stuck lock surfaces as a transient
// error instead of blocking the caller.
func NewGormStore(db *gorm.DB, txTimeout, lockTimeout time.Duration) Store {
	return &gormStore{db: db, txTimeout: txTimeout, lockTimeout: lockTimeout}
}

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := db.Exec(stmt).Error; err != nil {
				return err
			}
		}
		if s.txTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", s.txTimeout.Milliseconds())
			if err := db.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(&gormTx{db: db, ctx: ctx})
	})
	return classify(err)
}

func (s *gormStore) FindProfile(ctx context.Context, userID uuid.UUID) (*entity.UserGamification, error) {
	var rows []entity.UserGamification
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no gamification profile for %s", apperror.ErrNotFound, userID)
	}
	return &rows[0], nil
}

func (s *gormStore) FindLeaderboardRow(ctx context.Context, userID uuid.UUID) (*entity.LeaderboardRow, error) {
	var rows []entity.LeaderboardRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	if len(rows) == 0 {
		// Users without activity simply have zero totals.
		return &entity.LeaderboardRow{UserID: userID}, nil
	}
	return &rows[0], nil
}

func windowColumn(w entity.Window) (string, error) {
	switch w {
	case entity.WindowDaily:
		return "xp_today", nil
	case entity.WindowWeekly:
		return "xp_week", nil
	case entity.WindowMonthly:
		return "xp_month", nil
	case entity.WindowSeasonal:
		return "xp_season", nil
	case entity.WindowLifetime:
		return "xp_lifetime", nil
	}
	return "", fmt.Errorf("%w: unknown window %q", apperror.ErrInvalidInput, w)
}

func (s *gormStore) TopLeaderboard(ctx context.Context, window entity.Window, limit int) ([]entity.LeaderboardRow, error) {
	col, err := windowColumn(window)
	if err != nil {
		return nil, err
	}
	var rows []entity.LeaderboardRow
	err = s.db.WithContext(ctx).
		Where(col + " > 0").
		Order(col + " DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, classify(err)
}

func (s *gormStore) LeaderboardPosition(ctx context.Context, userID uuid.UUID, window entity.Window) (int, error) {
	col, err := windowColumn(window)
	if err != nil {
		return 0, err
	}
	row, err := s.FindLeaderboardRow(ctx, userID)
	if err != nil {
		return 0, err
	}
	value := row.Value(window)

	var ahead int64
	err = s.db.WithContext(ctx).Model(&entity.LeaderboardRow{}).
		Where(col+" > ? OR ("+col+" = ? AND user_id < ?)", value, value, userID).
		Count(&ahead).Error
	if err != nil {
		return 0, classify(err)
	}
	return int(ahead) + 1, nil
}

func (s *gormStore) UserBadges(ctx context.Context, userID uuid.UUID) ([]entity.UserBadge, error) {
	var badges []entity.UserBadge
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("awarded_at ASC").Find(&badges).Error
	return badges, classify(err)
}

func (s *gormStore) ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&entity.UserGamification{}).
		Where("last_activity_at >= ?", since).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, classify(err)
}

// gormTx runs every statement under the transaction context, which carries
// the txTimeout deadline, whatever context the caller passes in.
type gormTx struct {
	db  *gorm.DB
	ctx context.Context
}

func (t *gormTx) conn() *gorm.DB {
	return t.db.WithContext(t.ctx)
}

func (t *gormTx) GetOrCreateProfile(ctx context.Context, seed *entity.UserGamification) (*entity.UserGamification, error) {
	db := t.conn()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, err
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.LeaderboardRow{UserID: seed.UserID, UpdatedAt: seed.CreatedAt}).Error; err != nil {
		return nil, err
	}

	var profile entity.UserGamification
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", seed.UserID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (t *gormTx) SaveProfile(ctx context.Context, profile *entity.UserGamification) error {
	return t.conn().Save(profile).Error
}

func (t *gormTx) AppendLedger(ctx context.Context, entry *entity.XPLedgerEntry) error {
	return t.conn().Create(entry).Error
}

func (t *gormTx) SumLedger(ctx context.Context, userID uuid.UUID, source entity.Source, since, until time.Time) (int64, error) {
	var total int64
	err := t.conn().Model(&entity.XPLedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND source = ? AND cap_exempt = ? AND created_at >= ? AND created_at < ?",
			userID, source, false, since, until).
		Scan(&total).Error
	return total, err
}

func (t *gormTx) UpdateLeaderboard(ctx context.Context, userID uuid.UUID, delta int64) error {
	return t.conn().Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"xp_today":    gorm.Expr("leaderboard.xp_today + ?", delta),
			"xp_week":     gorm.Expr("leaderboard.xp_week + ?", delta),
			"xp_month":    gorm.Expr("leaderboard.xp_month + ?", delta),
			"xp_season":   gorm.Expr("leaderboard.xp_season + ?", delta),
			"xp_lifetime": gorm.Expr("leaderboard.xp_lifetime + ?", delta),
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&entity.LeaderboardRow{
		UserID:     userID,
		XPToday:    delta,
		XPWeek:     delta,
		XPMonth:    delta,
		XPSeason:   delta,
		XPLifetime: delta,
	}).Error
}

func (t *gormTx) UserBadgeCodes(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	var codes []string
	if err := t.conn().Model(&entity.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_code", &codes).Error; err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(codes))
	for _, c := range codes {
		held[c] = true
	}
	return held, nil
}

func (t *gormTx) InsertUserBadge(ctx context.Context, badge *entity.UserBadge) (InsertResult[entity.UserBadge], error) {
	if badge.ID == uuid.Nil {
		badge.ID = uuid.New()
	}
	db := t.conn()
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_code"}},
		DoNothing: true,
	}).Create(badge)
	if res.Error != nil {
		return InsertResult[entity.UserBadge]{}, res.Error
	}
	if res.RowsAffected == 1 {
		return InsertResult[entity.UserBadge]{Row: *badge, Inserted: true}, nil
	}

	var existing entity.UserBadge
	if err := db.Where("user_id = ? AND badge_code = ?", badge.UserID, badge.BadgeCode).First(&existing).Error; err != nil {
		return InsertResult[entity.UserBadge]{}, err
	}
	return InsertResult[entity.UserBadge]{Row: existing}, nil
}

func (t *gormTx) OpenChallenges(ctx context.Context, userID uuid.UUID, now time.Time) ([]entity.UserChallenge, error) {
	var rows []entity.UserChallenge
	err := t.conn().
		Where("user_id = ? AND completed = ? AND (expires_at IS NULL OR expires_at > ?)", userID, false, now).
		Order("challenge_code ASC").
		Find(&rows).Error
	return rows, err
}

func (t *gormTx) ChallengesAssignedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]entity.UserChallenge, error) {
	var rows []entity.UserChallenge
	err := t.conn().
		Where("user_id = ? AND assigned_at >= ?", userID, since).
		Order("challenge_code ASC").
		Find(&rows).Error
	return rows, err
}

func (t *gormTx) FindUserChallengeBySlot(ctx context.Context, userID uuid.UUID, slot string) (*entity.UserChallenge, error) {
	var rows []entity.UserChallenge
	if err := t.conn().
		Where("user_id = ? AND slot_key = ?", userID, slot).
		Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (t *gormTx) InsertUserChallenge(ctx context.Context, uc *entity.UserChallenge) (InsertResult[entity.UserChallenge], error) {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	res := t.conn().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "slot_key"}},
		DoNothing: true,
	}).Create(uc)
	if res.Error != nil {
		return InsertResult[entity.UserChallenge]{}, res.Error
	}
	if res.RowsAffected == 1 {
		return InsertResult[entity.UserChallenge]{Row: *uc, Inserted: true}, nil
	}

	existing, err := t.FindUserChallengeBySlot(ctx, uc.UserID, uc.SlotKey)
	if err != nil {
		return InsertResult[entity.UserChallenge]{}, err
	}
	if existing == nil {
		return InsertResult[entity.UserChallenge]{}, fmt.Errorf("%w: slot %s vanished after conflict", apperror.ErrStorageTransient, uc.SlotKey)
	}
	return InsertResult[entity.UserChallenge]{Row: *existing}, nil
}

func (t *gormTx) SaveUserChallenge(ctx context.Context, uc *entity.UserChallenge) error {
	return t.conn().Save(uc).Error
}

func (t *gormTx) DeleteStaleChallenges(ctx context.Context, userID uuid.UUID, kind entity.ChallengeKind, before time.Time) (int64, error) {
	res := t.conn().
		Where("user_id = ? AND kind = ? AND completed = ? AND assigned_at < ?", userID, kind, false, before).
		Delete(&entity.UserChallenge{})
	return res.RowsAffected, res.Error
}

func (t *gormTx) ActivePowerUps(ctx context.Context, userID uuid.UUID, at time.Time) ([]entity.UserPowerUp, error) {
	var rows []entity.UserPowerUp
	err := t.conn().
		Where("user_id = ? AND active = ? AND activated_at <= ? AND (expires_at IS NULL OR expires_at > ?)", userID, true, at, at).
		Find(&rows).Error
	return rows, err
}

func (t *gormTx) ActiveEvents(ctx context.Context, at time.Time) ([]entity.Event, error) {
	var rows []entity.Event
	err := t.conn().
		Where("active = ? AND starts_at <= ? AND ends_at >= ?", true, at, at).
		Find(&rows).Error
	return rows, err
}

func (t *gormTx) FindPowerUp(ctx context.Context, code string) (*entity.PowerUp, error) {
	var p entity.PowerUp
	if err := t.conn().Where("code = ?", code).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *gormTx) InsertUserPowerUp(ctx context.Context, up *entity.UserPowerUp) error {
	if up.ID == uuid.Nil {
		up.ID = uuid.New()
	}
	return t.conn().Create(up).Error
}

func (t *gormTx) InsertNotification(ctx context.Context, n *entity.Notification) error {
	return t.conn().Create(n).Error
}

func (t *gormTx) ClaimWindowReset(ctx context.Context, window entity.Window, periodKey string, at time.Time) (bool, error) {
	res := t.conn().Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.WindowReset{Window: window, PeriodKey: periodKey, ResetAt: at})
	return res.RowsAffected == 1, res.Error
}

// RebaseWindow recomputes a window from the ledger instead of zeroing it,
// so XP earned between the period boundary and the reset survives.
func (t *gormTx) RebaseWindow(ctx context.Context, window entity.Window, since time.Time) error {
	var profileCol string
	switch window {
	case entity.WindowDaily:
		profileCol = "xp_daily"
	case entity.WindowWeekly:
		profileCol = "xp_weekly"
	case entity.WindowSeasonal:
		profileCol = "xp_seasonal"
	case entity.WindowMonthly:
		// monthly totals only live on the leaderboard
	default:
		return fmt.Errorf("%w: window %q cannot be reset", apperror.ErrInvalidInput, window)
	}

	db := t.conn()
	if profileCol != "" {
		if err := db.Exec(rebaseSQL("user_gamification", profileCol), since).Error; err != nil {
			return err
		}
	}

	col, err := windowColumn(window)
	if err != nil {
		return err
	}
	return db.Exec(rebaseSQL("leaderboard", col), since).Error
}

func rebaseSQL(table, col string) string {
	return fmt.Sprintf(
		"UPDATE %[1]s SET %[2]s = COALESCE((SELECT SUM(l.amount) FROM xp_ledger l WHERE l.user_id = %[1]s.user_id AND l.created_at >= ?), 0)",
		table, col,
	)
}
