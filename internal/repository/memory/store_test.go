package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/pkg/apperror"
)

var t0 = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func seedProfile(userID uuid.UUID) *entity.UserGamification {
	return entity.NewUserGamification(userID, "Base", t0)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	user := uuid.New()
	before := s.Snapshot()

	boom := errors.New("boom")
	err := s.WithinTx(context.Background(), func(tx repository.Tx) error {
		p, err := tx.GetOrCreateProfile(context.Background(), seedProfile(user))
		if err != nil {
			return err
		}
		p.XPTotal = 42
		if err := tx.SaveProfile(context.Background(), p); err != nil {
			return err
		}
		if err := tx.AppendLedger(context.Background(), &entity.XPLedgerEntry{UserID: user, Amount: 42, Source: entity.SourceAdmin, CreatedAt: t0}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx error = %v, want boom", err)
	}
	if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("state changed after rollback")
	}
	if _, err := s.FindProfile(context.Background(), user); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindProfile error = %v, want ErrNotFound", err)
	}
}

func TestGetOrCreateProfileKeepsExisting(t *testing.T) {
	s := New()
	user := uuid.New()
	ctx := context.Background()

	_ = s.WithinTx(ctx, func(tx repository.Tx) error {
		p, _ := tx.GetOrCreateProfile(ctx, seedProfile(user))
		p.XPTotal = 10
		return tx.SaveProfile(ctx, p)
	})
	_ = s.WithinTx(ctx, func(tx repository.Tx) error {
		p, _ := tx.GetOrCreateProfile(ctx, seedProfile(user))
		if p.XPTotal != 10 {
			t.Errorf("XPTotal = %d, want 10", p.XPTotal)
		}
		return nil
	})

	row, _ := s.FindLeaderboardRow(ctx, user)
	if row.UserID != user {
		t.Errorf("leaderboard row not created with profile")
	}
}

func TestSumLedgerExcludesExemptAndSeesOwnWrites(t *testing.T) {
	s := New()
	user := uuid.New()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx repository.Tx) error {
		entries := []entity.XPLedgerEntry{
			{UserID: user, Amount: 10, Source: entity.SourceMessage, CreatedAt: t0},
			{UserID: user, Amount: 5, Source: entity.SourceMessage, CreatedAt: t0.Add(time.Hour)},
			{UserID: user, Amount: 100, Source: entity.SourceMessage, CapExempt: true, CreatedAt: t0},
			{UserID: user, Amount: 7, Source: entity.SourceQuiz, CreatedAt: t0},
			{UserID: user, Amount: 3, Source: entity.SourceMessage, CreatedAt: t0.Add(-24 * time.Hour)},
		}
		for i := range entries {
			if err := tx.AppendLedger(ctx, &entries[i]); err != nil {
				return err
			}
		}
		got, err := tx.SumLedger(ctx, user, entity.SourceMessage, t0.Add(-time.Hour), t0.Add(23*time.Hour))
		if err != nil {
			return err
		}
		if got != 15 {
			t.Errorf("SumLedger = %d, want 15", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestInsertUserChallengeConflictReturnsExisting(t *testing.T) {
	s := New()
	user := uuid.New()
	ctx := context.Background()

	var first, second repository.InsertResult[entity.UserChallenge]
	_ = s.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		first, err = tx.InsertUserChallenge(ctx, &entity.UserChallenge{UserID: user, SlotKey: "daily:2026-10-17", ChallengeCode: "chat-5", AssignedAt: t0})
		return err
	})
	_ = s.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		second, err = tx.InsertUserChallenge(ctx, &entity.UserChallenge{UserID: user, SlotKey: "daily:2026-10-17", ChallengeCode: "quiz-2", AssignedAt: t0})
		return err
	})

	if !first.Inserted || second.Inserted {
		t.Fatalf("Inserted = %v, %v; want true, false", first.Inserted, second.Inserted)
	}
	if second.Row.ID != first.Row.ID || second.Row.ChallengeCode != "chat-5" {
		t.Errorf("conflict returned %+v, want the first row", second.Row)
	}
	if got := len(s.UserChallenges(user)); got != 1 {
		t.Errorf("challenges = %d, want 1", got)
	}
}

func TestInsertUserBadgeIdempotent(t *testing.T) {
	s := New()
	user := uuid.New()
	ctx := context.Background()

	for i, wantInserted := range []bool{true, false} {
		_ = s.WithinTx(ctx, func(tx repository.Tx) error {
			res, err := tx.InsertUserBadge(ctx, &entity.UserBadge{UserID: user, BadgeCode: "chatty", AwardedAt: t0})
			if err != nil {
				return err
			}
			if res.Inserted != wantInserted {
				t.Errorf("attempt %d Inserted = %v, want %v", i, res.Inserted, wantInserted)
			}
			return nil
		})
	}
	badges, _ := s.UserBadges(ctx, user)
	if len(badges) != 1 {
		t.Errorf("badges = %d, want 1", len(badges))
	}
}

func TestFaultAbortsTransaction(t *testing.T) {
	s := New()
	user := uuid.New()
	ctx := context.Background()
	s.SetFault(func(op string) error {
		if op == "AppendLedger" {
			return fmt.Errorf("%w: injected", apperror.ErrStorageTransient)
		}
		return nil
	})

	err := s.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetOrCreateProfile(ctx, seedProfile(user)); err != nil {
			return err
		}
		return tx.AppendLedger(ctx, &entity.XPLedgerEntry{UserID: user, Amount: 1, Source: entity.SourceMessage, CreatedAt: t0})
	})
	if !errors.Is(err, apperror.ErrStorageTransient) {
		t.Fatalf("error = %v, want transient", err)
	}
	if _, err := s.FindProfile(ctx, user); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("profile should not exist after aborted tx")
	}
}

func TestLeaderboardOrderingAndWindows(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	_ = s.WithinTx(ctx, func(tx repository.Tx) error {
		_ = tx.UpdateLeaderboard(ctx, a, 30)
		_ = tx.UpdateLeaderboard(ctx, b, 50)
		_ = tx.UpdateLeaderboard(ctx, c, 10)
		return nil
	})
	_ = s.WithinTx(ctx, func(tx repository.Tx) error {
		if ok, err := tx.ClaimWindowReset(ctx, entity.WindowDaily, "2026-10-17", t0); !ok || err != nil {
			t.Errorf("first claim = %v, %v", ok, err)
		}
		if ok, _ := tx.ClaimWindowReset(ctx, entity.WindowDaily, "2026-10-17", t0); ok {
			t.Errorf("second claim for the same period should fail")
		}
		return tx.RebaseWindow(ctx, entity.WindowDaily, t0)
	})
	_ = s.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.UpdateLeaderboard(ctx, c, 5)
	})

	top, err := s.TopLeaderboard(ctx, entity.WindowLifetime, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].UserID != b || top[1].UserID != a {
		t.Errorf("lifetime top = %+v", top)
	}

	today, _ := s.TopLeaderboard(ctx, entity.WindowDaily, 10)
	if len(today) != 1 || today[0].UserID != c || today[0].XPToday != 5 {
		t.Errorf("daily top = %+v, want only c with 5", today)
	}

	pos, _ := s.LeaderboardPosition(ctx, a, entity.WindowLifetime)
	if pos != 2 {
		t.Errorf("position(a) = %d, want 2", pos)
	}
}

func TestRebaseWindowKeepsLedgerSincePeriodStart(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := uuid.New()
	weekStart := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	err := s.WithinTx(ctx, func(tx repository.Tx) error {
		p, err := tx.GetOrCreateProfile(ctx, seedProfile(user))
		if err != nil {
			return err
		}
		for _, e := range []entity.XPLedgerEntry{
			{UserID: user, Amount: 10, Source: entity.SourceMessage, CreatedAt: weekStart.Add(-time.Hour)},
			{UserID: user, Amount: 3, Source: entity.SourceMessage, CreatedAt: weekStart},
			{UserID: user, Amount: 4, Source: entity.SourceQuiz, CreatedAt: weekStart.Add(2 * time.Minute)},
		} {
			e := e
			if err := tx.AppendLedger(ctx, &e); err != nil {
				return err
			}
			if err := tx.UpdateLeaderboard(ctx, user, e.Amount); err != nil {
				return err
			}
			p.XPTotal += e.Amount
			p.XPWeekly += e.Amount
		}
		return tx.SaveProfile(ctx, p)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.RebaseWindow(ctx, entity.WindowWeekly, weekStart)
	})
	if err != nil {
		t.Fatal(err)
	}

	row, _ := s.FindLeaderboardRow(ctx, user)
	if row.XPWeek != 7 || row.XPLifetime != 17 || row.XPToday != 17 {
		t.Errorf("leaderboard = %+v, want week 7 lifetime 17 today untouched", row)
	}
	p, _ := s.FindProfile(ctx, user)
	if p.XPWeekly != 7 || p.XPTotal != 17 {
		t.Errorf("profile weekly = %d total = %d, want 7 and 17", p.XPWeekly, p.XPTotal)
	}

	err = s.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.RebaseWindow(ctx, entity.WindowLifetime, weekStart)
	})
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Errorf("lifetime rebase error = %v, want invalid input", err)
	}
}

func TestNotificationsPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := uuid.New()

	_ = s.WithinTx(ctx, func(tx repository.Tx) error {
		for i := 0; i < 3; i++ {
			_ = tx.InsertNotification(ctx, &entity.Notification{UserID: user, Type: entity.NotificationRankUp, Title: "t", Message: "m", CreatedAt: t0.Add(time.Duration(i) * time.Minute)})
		}
		return nil
	})

	repo := s.NotificationRepository()
	page, _ := repo.GetByUserID(ctx, user, 2, 0)
	if len(page) != 2 || !page[0].CreatedAt.Equal(t0.Add(2*time.Minute)) {
		t.Fatalf("first page = %+v", page)
	}
	if err := repo.MarkAsRead(ctx, user, page[0].ID); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.CountUnread(ctx, user); n != 2 {
		t.Errorf("unread = %d, want 2", n)
	}
	if err := repo.MarkAsRead(ctx, uuid.New(), page[1].ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("marking someone else's notification = %v, want ErrNotFound", err)
	}
	_ = repo.MarkAllAsRead(ctx, user)
	if n, _ := repo.CountUnread(ctx, user); n != 0 {
		t.Errorf("unread after mark all = %d", n)
	}
}
