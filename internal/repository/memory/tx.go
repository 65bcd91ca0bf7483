package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/pkg/apperror"
)

type tx struct {
	st    *state
	fault Fault
}

func (t *tx) check(op string) error {
	if t.fault == nil {
		return nil
	}
	return t.fault(op)
}

func (t *tx) GetOrCreateProfile(ctx context.Context, seed *entity.UserGamification) (*entity.UserGamification, error) {
	if err := t.check("GetOrCreateProfile"); err != nil {
		return nil, err
	}
	p, ok := t.st.profiles[seed.UserID]
	if !ok {
		p = *seed
		t.st.profiles[seed.UserID] = p
	}
	if _, ok := t.st.leaderboard[seed.UserID]; !ok {
		t.st.leaderboard[seed.UserID] = entity.LeaderboardRow{UserID: seed.UserID, UpdatedAt: seed.CreatedAt}
	}
	return &p, nil
}

func (t *tx) SaveProfile(ctx context.Context, profile *entity.UserGamification) error {
	if err := t.check("SaveProfile"); err != nil {
		return err
	}
	t.st.profiles[profile.UserID] = *profile
	return nil
}

func (t *tx) AppendLedger(ctx context.Context, entry *entity.XPLedgerEntry) error {
	if err := t.check("AppendLedger"); err != nil {
		return err
	}
	t.st.nextLedgerID++
	entry.ID = t.st.nextLedgerID
	t.st.ledger = append(t.st.ledger, *entry)
	return nil
}

func (t *tx) SumLedger(ctx context.Context, userID uuid.UUID, source entity.Source, since, until time.Time) (int64, error) {
	if err := t.check("SumLedger"); err != nil {
		return 0, err
	}
	var total int64
	for _, e := range t.st.ledger {
		if e.UserID != userID || e.Source != source || e.CapExempt {
			continue
		}
		if e.CreatedAt.Before(since) || !e.CreatedAt.Before(until) {
			continue
		}
		total += e.Amount
	}
	return total, nil
}

func (t *tx) UpdateLeaderboard(ctx context.Context, userID uuid.UUID, delta int64) error {
	if err := t.check("UpdateLeaderboard"); err != nil {
		return err
	}
	row := t.st.leaderboard[userID]
	row.UserID = userID
	row.XPToday += delta
	row.XPWeek += delta
	row.XPMonth += delta
	row.XPSeason += delta
	row.XPLifetime += delta
	t.st.leaderboard[userID] = row
	return nil
}

func (t *tx) UserBadgeCodes(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	if err := t.check("UserBadgeCodes"); err != nil {
		return nil, err
	}
	held := map[string]bool{}
	for _, b := range t.st.userBadges {
		if b.UserID == userID {
			held[b.BadgeCode] = true
		}
	}
	return held, nil
}

func (t *tx) InsertUserBadge(ctx context.Context, badge *entity.UserBadge) (repository.InsertResult[entity.UserBadge], error) {
	if err := t.check("InsertUserBadge"); err != nil {
		return repository.InsertResult[entity.UserBadge]{}, err
	}
	for _, b := range t.st.userBadges {
		if b.UserID == badge.UserID && b.BadgeCode == badge.BadgeCode {
			return repository.InsertResult[entity.UserBadge]{Row: b}, nil
		}
	}
	if badge.ID == uuid.Nil {
		badge.ID = uuid.New()
	}
	t.st.userBadges = append(t.st.userBadges, *badge)
	return repository.InsertResult[entity.UserBadge]{Row: *badge, Inserted: true}, nil
}

func (t *tx) filterChallenges(keep func(entity.UserChallenge) bool) []entity.UserChallenge {
	var out []entity.UserChallenge
	for _, c := range t.st.challenges {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChallengeCode != out[j].ChallengeCode {
			return out[i].ChallengeCode < out[j].ChallengeCode
		}
		return out[i].SlotKey < out[j].SlotKey
	})
	return out
}

func (t *tx) OpenChallenges(ctx context.Context, userID uuid.UUID, now time.Time) ([]entity.UserChallenge, error) {
	if err := t.check("OpenChallenges"); err != nil {
		return nil, err
	}
	return t.filterChallenges(func(c entity.UserChallenge) bool {
		return c.UserID == userID && c.Open(now)
	}), nil
}

func (t *tx) ChallengesAssignedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]entity.UserChallenge, error) {
	if err := t.check("ChallengesAssignedSince"); err != nil {
		return nil, err
	}
	return t.filterChallenges(func(c entity.UserChallenge) bool {
		return c.UserID == userID && !c.AssignedAt.Before(since)
	}), nil
}

func (t *tx) FindUserChallengeBySlot(ctx context.Context, userID uuid.UUID, slot string) (*entity.UserChallenge, error) {
	if err := t.check("FindUserChallengeBySlot"); err != nil {
		return nil, err
	}
	for _, c := range t.st.challenges {
		if c.UserID == userID && c.SlotKey == slot {
			return &c, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertUserChallenge(ctx context.Context, uc *entity.UserChallenge) (repository.InsertResult[entity.UserChallenge], error) {
	if err := t.check("InsertUserChallenge"); err != nil {
		return repository.InsertResult[entity.UserChallenge]{}, err
	}
	for _, c := range t.st.challenges {
		if c.UserID == uc.UserID && c.SlotKey == uc.SlotKey {
			return repository.InsertResult[entity.UserChallenge]{Row: c}, nil
		}
	}
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	t.st.challenges[uc.ID] = *uc
	return repository.InsertResult[entity.UserChallenge]{Row: *uc, Inserted: true}, nil
}

func (t *tx) SaveUserChallenge(ctx context.Context, uc *entity.UserChallenge) error {
	if err := t.check("SaveUserChallenge"); err != nil {
		return err
	}
	t.st.challenges[uc.ID] = *uc
	return nil
}

func (t *tx) DeleteStaleChallenges(ctx context.Context, userID uuid.UUID, kind entity.ChallengeKind, before time.Time) (int64, error) {
	if err := t.check("DeleteStaleChallenges"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range t.st.challenges {
		if c.UserID == userID && c.Kind == kind && !c.Completed && c.AssignedAt.Before(before) {
			delete(t.st.challenges, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) ActivePowerUps(ctx context.Context, userID uuid.UUID, at time.Time) ([]entity.UserPowerUp, error) {
	if err := t.check("ActivePowerUps"); err != nil {
		return nil, err
	}
	var out []entity.UserPowerUp
	for _, up := range t.st.userPowerUps {
		if up.UserID == userID && up.Covers(at) {
			out = append(out, up)
		}
	}
	return out, nil
}

func (t *tx) ActiveEvents(ctx context.Context, at time.Time) ([]entity.Event, error) {
	if err := t.check("ActiveEvents"); err != nil {
		return nil, err
	}
	var out []entity.Event
	for _, e := range t.st.events {
		if e.Covers(at) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (t *tx) FindPowerUp(ctx context.Context, code string) (*entity.PowerUp, error) {
	if err := t.check("FindPowerUp"); err != nil {
		return nil, err
	}
	p, ok := t.st.powerUps[code]
	if !ok {
		return nil, fmt.Errorf("%w: power-up %q", apperror.ErrNotFound, code)
	}
	return &p, nil
}

func (t *tx) InsertUserPowerUp(ctx context.Context, up *entity.UserPowerUp) error {
	if err := t.check("InsertUserPowerUp"); err != nil {
		return err
	}
	if up.ID == uuid.Nil {
		up.ID = uuid.New()
	}
	t.st.userPowerUps = append(t.st.userPowerUps, *up)
	return nil
}

func (t *tx) InsertNotification(ctx context.Context, n *entity.Notification) error {
	if err := t.check("InsertNotification"); err != nil {
		return err
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	t.st.notifications = append(t.st.notifications, *n)
	return nil
}

func (t *tx) ClaimWindowReset(ctx context.Context, window entity.Window, periodKey string, at time.Time) (bool, error) {
	if err := t.check("ClaimWindowReset"); err != nil {
		return false, err
	}
	key := string(window) + "|" + periodKey
	if _, done := t.st.resets[key]; done {
		return false, nil
	}
	t.st.resets[key] = entity.WindowReset{Window: window, PeriodKey: periodKey, ResetAt: at}
	return true, nil
}

func (t *tx) RebaseWindow(ctx context.Context, window entity.Window, since time.Time) error {
	if err := t.check("RebaseWindow"); err != nil {
		return err
	}
	if !window.Resettable() {
		return fmt.Errorf("%w: window %q cannot be reset", apperror.ErrInvalidInput, window)
	}

	earned := map[uuid.UUID]int64{}
	for _, e := range t.st.ledger {
		if !e.CreatedAt.Before(since) {
			earned[e.UserID] += e.Amount
		}
	}

	for id, p := range t.st.profiles {
		switch window {
		case entity.WindowDaily:
			p.XPDaily = earned[id]
		case entity.WindowWeekly:
			p.XPWeekly = earned[id]
		case entity.WindowSeasonal:
			p.XPSeasonal = earned[id]
		}
		t.st.profiles[id] = p
	}
	for id, r := range t.st.leaderboard {
		switch window {
		case entity.WindowDaily:
			r.XPToday = earned[id]
		case entity.WindowWeekly:
			r.XPWeek = earned[id]
		case entity.WindowMonthly:
			r.XPMonth = earned[id]
		case entity.WindowSeasonal:
			r.XPSeason = earned[id]
		}
		t.st.leaderboard[id] = r
	}
	return nil
}
