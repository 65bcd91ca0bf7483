package xp

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/calendar"
	"skaila.com/gamification/internal/entity"
	challengeService "skaila.com/gamification/internal/modules/challenge/service"
	multiplierService "skaila.com/gamification/internal/modules/multiplier/service"
	"skaila.com/gamification/internal/modules/xp/dto"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/internal/repository/memory"
	"skaila.com/gamification/internal/rulebook"
	"skaila.com/gamification/internal/rulebook/rulebooktest"
	"skaila.com/gamification/pkg/apperror"
)

// Saturday 2026-10-17 09:00 UTC.
var now = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	rules   *rulebook.Rulebook
	cal     calendar.Calendar
	tracker *challengeService.Tracker
	clock   time.Time
	hook    *recordingHook
	svc     XPService
}

type recordingHook struct {
	mu    sync.Mutex
	calls [][]entity.Notification
}

func (h *recordingHook) AfterAward(ctx context.Context, userID uuid.UUID, notifications []entity.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, notifications)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, rulebooktest.Scenario(t), nil)
}

func newFixtureWith(t *testing.T, rules *rulebook.Rulebook, wrap func(repository.Store) repository.Store) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		rules: rules,
		cal:   calendar.New(time.UTC),
		clock: now,
		hook:  &recordingHook{},
	}
	f.tracker = challengeService.NewTracker(rules, f.cal, challengeService.WithPicker(func(int) int { return 0 }))
	var store repository.Store = f.store
	if wrap != nil {
		store = wrap(store)
	}
	f.svc = NewXPService(store, rules, f.cal, multiplierService.NewResolver(rules, f.cal), f.tracker,
		WithClock(func() time.Time { return f.clock }),
		WithHooks(f.hook),
	)
	return f
}

func (f *fixture) seedProfile(t *testing.T, user uuid.UUID, edit func(p *entity.UserGamification)) {
	t.Helper()
	err := f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		p, err := tx.GetOrCreateProfile(context.Background(), entity.NewUserGamification(user, "Base", f.clock))
		if err != nil {
			return err
		}
		edit(p)
		return tx.SaveProfile(context.Background(), p)
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func (f *fixture) award(t *testing.T, req dto.AwardRequest) *dto.Outcome {
	t.Helper()
	out, err := f.svc.Award(context.Background(), req)
	if err != nil {
		t.Fatalf("Award(%+v) error = %v", req, err)
	}
	return out
}

func message(user uuid.UUID) dto.AwardRequest {
	return dto.AwardRequest{UserID: user, Source: entity.SourceMessage, Action: entity.ActionMessage}
}

func amount(n int64) *int64 { return &n }

func checkLedgerConservation(t *testing.T, f *fixture, user uuid.UUID) {
	t.Helper()
	var sum int64
	for _, e := range f.store.Ledger(user) {
		sum += e.Amount
	}
	p, err := f.store.FindProfile(context.Background(), user)
	if err != nil {
		t.Fatalf("FindProfile: %v", err)
	}
	if p.XPTotal != sum {
		t.Errorf("xp_total = %d, ledger sum = %d", p.XPTotal, sum)
	}
	if p.StreakDays > p.StreakLongest {
		t.Errorf("streak_days %d > streak_longest %d", p.StreakDays, p.StreakLongest)
	}
}

func TestAwardFreshUserSingleMessage(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	req := message(user)
	req.Counters = map[string]int64{"messages_sent": 1}
	out := f.award(t, req)

	if out.XPGranted != 2 || out.XPTotal != 2 || out.Rank != "Base" || out.RankChanged || out.Capped {
		t.Errorf("outcome = %+v", out)
	}
	if len(out.BadgesUnlocked) != 0 || len(out.ChallengesCompleted) != 0 {
		t.Errorf("unexpected consequences: %+v", out)
	}

	row, _ := f.store.FindLeaderboardRow(context.Background(), user)
	if row.XPToday != 2 || row.XPLifetime != 2 {
		t.Errorf("leaderboard = %+v, want 2 in every window", row)
	}
	checkLedgerConservation(t, f, user)
}

func TestAwardDailyCap(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	for i := 0; i < 25; i++ {
		f.award(t, message(user))
	}
	out := f.award(t, message(user))

	if out.XPGranted != 0 || out.XPTotal != 50 || !out.Capped {
		t.Errorf("outcome = %+v, want 0 granted at 50 capped", out)
	}
	if got := len(f.store.Ledger(user)); got != 25 {
		t.Errorf("ledger rows = %d, want 25", got)
	}

	// The cap resets on the next calendar day.
	f.clock = now.AddDate(0, 0, 1)
	if out := f.award(t, message(user)); out.XPGranted != 2 || out.Capped {
		t.Errorf("next day outcome = %+v", out)
	}
	checkLedgerConservation(t, f, user)
}

func TestAwardCapClampsPartially(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceChatbot, Action: entity.ActionChatbot, Amount: amount(28)})
	out := f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceChatbot, Action: entity.ActionChatbot})

	if out.XPGranted != 2 || !out.Capped {
		t.Errorf("outcome = %+v, want 2 granted and capped", out)
	}
}

func TestAwardBadgeAndRankCombined(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.seedProfile(t, user, func(p *entity.UserGamification) {
		p.XPTotal = 98
		p.AddCounters(map[string]int64{"messages_sent": 4})
	})

	req := message(user)
	req.Counters = map[string]int64{"messages_sent": 1}
	out := f.award(t, req)

	want := dto.Outcome{
		XPGranted:           22,
		XPTotal:             120,
		Rank:                "R1",
		RankChanged:         true,
		RankNew:             "R1",
		BadgesUnlocked:      []string{"chatty"},
		ChallengesCompleted: []dto.CompletedChallenge{},
		Grants: []dto.Grant{
			{Source: entity.SourceMessage, Amount: 2},
			{Source: entity.SourceBadge, Amount: 20, Ref: "chatty", Depth: 1},
		},
	}
	if !reflect.DeepEqual(*out, want) {
		t.Errorf("outcome = %+v\nwant      %+v", *out, want)
	}

	p, _ := f.store.FindProfile(context.Background(), user)
	if p.RankMaxEver != "R1" {
		t.Errorf("rank_max_ever = %s, want R1", p.RankMaxEver)
	}

	var kinds []string
	for _, n := range f.hook.calls[0] {
		kinds = append(kinds, n.Type)
	}
	if !reflect.DeepEqual(kinds, []string{entity.NotificationBadgeUnlocked, entity.NotificationRankUp}) {
		t.Errorf("notifications = %v", kinds)
	}
}

func TestAwardStreakMilestone(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.seedProfile(t, user, func(p *entity.UserGamification) {
		p.LastActiveDate = "2026-10-16"
		p.StreakDays = 6
		p.StreakLongest = 6
	})

	out := f.award(t, dto.AwardRequest{
		UserID:     user,
		Source:     entity.SourceQuiz,
		Action:     entity.ActionQuiz,
		Flags:      map[string]bool{"perfect": true},
		FirstOfDay: true,
	})

	if out.XPGranted != 175 || out.StreakDays != 7 {
		t.Errorf("outcome = %+v, want 175 XP and a 7 day streak", out)
	}

	// A second first-of-day call on the same day leaves the streak alone.
	again := f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceQuiz, Action: entity.ActionQuiz, FirstOfDay: true})
	if again.XPGranted != 10 || again.StreakDays != 7 {
		t.Errorf("same day outcome = %+v", again)
	}
	checkLedgerConservation(t, f, user)
}

func TestStreakTransitions(t *testing.T) {
	tests := []struct {
		name        string
		last        string
		days        int
		longest     int
		wantDays    int
		wantLongest int
	}{
		{"first activity", "", 0, 0, 1, 1},
		{"consecutive day", "2026-10-16", 3, 5, 4, 5},
		{"new longest", "2026-10-16", 5, 5, 6, 6},
		{"gap resets", "2026-10-14", 9, 9, 1, 9},
		{"same day", "2026-10-17", 2, 4, 2, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			user := uuid.New()
			f.seedProfile(t, user, func(p *entity.UserGamification) {
				p.LastActiveDate = tt.last
				p.StreakDays = tt.days
				p.StreakLongest = tt.longest
			})

			f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceHelp, Action: entity.ActionHelp, FirstOfDay: true})

			p, _ := f.store.FindProfile(context.Background(), user)
			if p.StreakDays != tt.wantDays || p.StreakLongest != tt.wantLongest {
				t.Errorf("streak = %d/%d, want %d/%d", p.StreakDays, p.StreakLongest, tt.wantDays, tt.wantLongest)
			}
			if p.LastActiveDate != "2026-10-17" {
				t.Errorf("last_active_date = %s", p.LastActiveDate)
			}
		})
	}
}

func TestCappedAwardDoesNotAdvanceStreak(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceMessage, Action: entity.ActionMessage, Amount: amount(50)})
	f.seedProfile(t, user, func(p *entity.UserGamification) {
		p.LastActiveDate = "2026-10-16"
		p.StreakDays = 2
		p.StreakLongest = 2
	})

	req := message(user)
	req.FirstOfDay = true
	req.Counters = map[string]int64{"messages_sent": 1}
	out := f.award(t, req)

	if out.XPGranted != 0 || !out.Capped || out.StreakDays != 2 {
		t.Errorf("outcome = %+v, want capped with streak unchanged", out)
	}
	p, _ := f.store.FindProfile(context.Background(), user)
	if p.Counter("messages_sent") != 1 {
		t.Errorf("messages_sent = %d, want 1", p.Counter("messages_sent"))
	}
}

func TestAwardChallengeCompletion(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	err := f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		_, err := f.tracker.AssignDaily(context.Background(), tx, user, now)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		if out := f.award(t, message(user)); len(out.ChallengesCompleted) != 0 {
			t.Fatalf("challenge completed early on award %d", i)
		}
	}
	out := f.award(t, message(user))

	if out.XPGranted != 102 {
		t.Errorf("xp_granted = %d, want 102", out.XPGranted)
	}
	want := []dto.CompletedChallenge{{Code: "chat-5", Name: "Chat five", RewardXP: 100}}
	if !reflect.DeepEqual(out.ChallengesCompleted, want) {
		t.Errorf("challenges_completed = %+v", out.ChallengesCompleted)
	}

	// Challenge rewards are cap exempt and don't count toward the message cap.
	for _, e := range f.store.Ledger(user) {
		if e.Source == entity.SourceChallenge && !e.CapExempt {
			t.Errorf("challenge ledger row not cap exempt: %+v", e)
		}
	}

	if out := f.award(t, message(user)); len(out.ChallengesCompleted) != 0 {
		t.Errorf("completed challenge reported again")
	}
	checkLedgerConservation(t, f, user)
}

func TestConcurrentAwardsSameUser(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Award(context.Background(), message(user))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Award error = %v", err)
		}
	}

	p, _ := f.store.FindProfile(context.Background(), user)
	row, _ := f.store.FindLeaderboardRow(context.Background(), user)
	if p.XPTotal != 4 || row.XPToday != 4 || len(f.store.Ledger(user)) != 2 {
		t.Errorf("xp_total = %d, xp_today = %d, ledger = %d; want 4, 4, 2", p.XPTotal, row.XPToday, len(f.store.Ledger(user)))
	}
}

func TestBadgeUnlockedOnlyOnce(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	var unlocked int
	for i := 0; i < 8; i++ {
		req := message(user)
		req.Counters = map[string]int64{"messages_sent": 1}
		unlocked += len(f.award(t, req).BadgesUnlocked)
	}
	if unlocked != 1 {
		t.Errorf("badge unlocked %d times, want 1", unlocked)
	}
	checkLedgerConservation(t, f, user)
}

func TestMultiplierAppliedBeforeCap(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	err := f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertUserPowerUp(context.Background(), &entity.UserPowerUp{
			ID: uuid.New(), UserID: user, PowerUpCode: "double", XPMultiplier: 2, Active: true, ActivatedAt: now.Add(-time.Minute),
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	if out := f.award(t, message(user)); out.XPGranted != 4 {
		t.Errorf("doubled message = %d, want 4", out.XPGranted)
	}

	out := f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceMessage, Action: entity.ActionMessage, Amount: amount(30)})
	if out.XPGranted != 46 || !out.Capped {
		t.Errorf("outcome = %+v, want clamp to the remaining 46", out)
	}

	var capped int64
	for _, e := range f.store.Ledger(user) {
		if e.Source == entity.SourceMessage && !e.CapExempt {
			capped += e.Amount
		}
	}
	if capped > 50 {
		t.Errorf("capped ledger sum = %d exceeds cap", capped)
	}

	noMult := false
	exempt := f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceHelp, Action: entity.ActionHelp, ApplyMultipliers: &noMult})
	if exempt.XPGranted != 5 {
		t.Errorf("apply_multipliers=false granted %d, want 5", exempt.XPGranted)
	}
}

func TestAwardInvalidInput(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	tests := []struct {
		name string
		req  dto.AwardRequest
	}{
		{"missing user", dto.AwardRequest{Source: entity.SourceMessage, Action: entity.ActionMessage}},
		{"unknown source", dto.AwardRequest{UserID: user, Source: "gossip", Amount: amount(1)}},
		{"unknown action", dto.AwardRequest{UserID: user, Source: entity.SourceMessage, Action: "dance"}},
		{"nothing to award", dto.AwardRequest{UserID: user, Source: entity.SourceMessage}},
		{"negative non admin", dto.AwardRequest{UserID: user, Source: entity.SourceQuiz, Amount: amount(-5)}},
		{"negative counter", dto.AwardRequest{UserID: user, Action: entity.ActionMessage, Counters: map[string]int64{"messages_sent": -1}}},
		{"admin below zero", dto.AwardRequest{UserID: user, Source: entity.SourceAdmin, Amount: amount(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.store.Snapshot()
			_, err := f.svc.Award(context.Background(), tt.req)
			if !errors.Is(err, apperror.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
			if !reflect.DeepEqual(before, f.store.Snapshot()) {
				t.Errorf("state changed on invalid input")
			}
		})
	}
}

func TestAdminCorrection(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceAdmin, Amount: amount(260), Description: "<b>Recupero</b> punti"})
	if p, _ := f.store.FindProfile(context.Background(), user); p.Rank != "R2" {
		t.Fatalf("rank = %s, want R2", p.Rank)
	}

	out := f.award(t, dto.AwardRequest{UserID: user, Source: entity.SourceAdmin, Amount: amount(-200)})
	if out.XPGranted != -200 || out.XPTotal != 60 || out.Rank != "Base" || !out.RankChanged {
		t.Errorf("outcome = %+v", out)
	}

	p, _ := f.store.FindProfile(context.Background(), user)
	if p.RankMaxEver != "R2" {
		t.Errorf("rank_max_ever regressed to %s", p.RankMaxEver)
	}
	if got := f.store.Ledger(user)[0].Description; got != "Recupero punti" {
		t.Errorf("description = %q, want markup stripped", got)
	}
	checkLedgerConservation(t, f, user)
}

func TestAwardSourceDefaultsFromAction(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	out := f.award(t, dto.AwardRequest{UserID: user, Action: entity.ActionChatbot})
	if out.XPGranted != 3 || out.Grants[0].Source != entity.SourceChatbot {
		t.Errorf("outcome = %+v", out)
	}
}

func TestAwardAtomicOnFailure(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.seedProfile(t, user, func(p *entity.UserGamification) {
		p.AddCounters(map[string]int64{"messages_sent": 4})
	})

	boom := errors.New("disk on fire")
	f.store.SetFault(func(op string) error {
		if op == "InsertNotification" {
			return boom
		}
		return nil
	})

	before := f.store.Snapshot()
	req := message(user)
	req.Counters = map[string]int64{"messages_sent": 1}
	if _, err := f.svc.Award(context.Background(), req); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want injected failure", err)
	}
	if !reflect.DeepEqual(before, f.store.Snapshot()) {
		t.Errorf("failed award changed persisted state")
	}
	if len(f.hook.calls) != 0 {
		t.Errorf("commit hook ran for a failed award")
	}
}

func TestAwardRetriesTransientFailures(t *testing.T) {
	policy := repository.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	f := newFixtureWith(t, rulebooktest.Scenario(t), func(s repository.Store) repository.Store {
		return repository.WithRetry(s, policy)
	})
	user := uuid.New()

	failures := 2
	f.store.SetFault(func(op string) error {
		if op == "AppendLedger" && failures > 0 {
			failures--
			return apperror.ErrStorageTransient
		}
		return nil
	})

	out := f.award(t, message(user))
	if out.XPTotal != 2 || len(f.store.Ledger(user)) != 1 {
		t.Errorf("outcome = %+v, ledger = %d; want a single grant", out, len(f.store.Ledger(user)))
	}

	f.store.SetFault(func(op string) error {
		if op == "AppendLedger" {
			return apperror.ErrStorageTransient
		}
		return nil
	})
	if _, err := f.svc.Award(context.Background(), message(user)); !errors.Is(err, apperror.ErrStorageUnavailable) {
		t.Errorf("error = %v, want ErrStorageUnavailable", err)
	}
}

func TestGrantChainDepthAndOrder(t *testing.T) {
	rules := rulebooktest.MustParse(t, `
actions:
  help: {source: help, base_xp: 5}
ranks:
  - {name: Base, min_xp: 0}
badges:
  - {code: a-first, name: First, predicate: {xp_total: 5}, reward_xp: 10}
  - {code: b-second, name: Second, predicate: {xp_total: 15}, reward_xp: 10}
  - {code: c-third, name: Third, predicate: {xp_total: 25}, reward_xp: 10}
  - {code: d-fourth, name: Fourth, predicate: {xp_total: 35}, reward_xp: 10}
`)
	f := newFixtureWith(t, rules, nil)
	user := uuid.New()

	out := f.award(t, dto.AwardRequest{UserID: user, Action: entity.ActionHelp})

	// d-fourth unlocks at depth 4 and its reward is dropped.
	if !reflect.DeepEqual(out.BadgesUnlocked, []string{"a-first", "b-second", "c-third", "d-fourth"}) {
		t.Errorf("badges = %v", out.BadgesUnlocked)
	}
	if out.XPGranted != 35 || len(out.Grants) != 4 {
		t.Errorf("outcome = %+v, want 35 XP over 4 grants", out)
	}
	for i, g := range out.Grants {
		if g.Depth != i {
			t.Errorf("grant %d depth = %d", i, g.Depth)
		}
	}
	checkLedgerConservation(t, f, user)
}

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	empty, err := f.svc.GetProfile(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	if empty.XPTotal != 0 || empty.Rank != "Base" || empty.Progress.NextRank != "R1" || empty.Progress.XPNeeded != 100 {
		t.Errorf("zero profile = %+v", empty)
	}

	req := message(user)
	req.Counters = map[string]int64{"messages_sent": 5}
	f.award(t, req)

	got, err := f.svc.GetProfile(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	if got.XPTotal != 22 || got.XPWindows.Daily != 22 || got.XPWindows.Lifetime != 22 {
		t.Errorf("totals = %d / %+v", got.XPTotal, got.XPWindows)
	}
	if got.Counters["messages_sent"] != 5 || !reflect.DeepEqual(got.Badges, []string{"chatty"}) {
		t.Errorf("counters = %v, badges = %v", got.Counters, got.Badges)
	}
	if got.Progress.XPNeeded != 78 || got.Progress.Percent != 22 || got.RankIcon != "🌱" {
		t.Errorf("progress = %+v icon = %s", got.Progress, got.RankIcon)
	}
}

func TestUpdateCosmetics(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.seedProfile(t, user, func(p *entity.UserGamification) {
		p.XPTotal = 120
		p.Rank = "R1"
		p.RankMaxEver = "R1"
	})

	got, err := f.svc.UpdateCosmetics(context.Background(), user, dto.CosmeticsRequest{Theme: "notte", Title: "R1"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Cosmetics.Theme != "notte" || got.Cosmetics.Title != "R1" {
		t.Errorf("cosmetics = %+v", got.Cosmetics)
	}

	for _, title := range []string{"R2", "Imperatore"} {
		if _, err := f.svc.UpdateCosmetics(context.Background(), user, dto.CosmeticsRequest{Title: title}); !errors.Is(err, apperror.ErrInvalidInput) {
			t.Errorf("title %s error = %v, want ErrInvalidInput", title, err)
		}
	}
}

func TestResetWindowIdempotent(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.clock = now.AddDate(0, 0, -1)
	yesterday := f.award(t, message(user))

	f.clock = now
	first, err := f.svc.ResetWindow(context.Background(), entity.WindowDaily)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Reset || first.PeriodKey != "2026-10-17" {
		t.Errorf("first reset = %+v", first)
	}

	today := f.award(t, message(user))
	second, err := f.svc.ResetWindow(context.Background(), entity.WindowDaily)
	if err != nil {
		t.Fatal(err)
	}
	if second.Reset {
		t.Errorf("second reset in the same period ran again")
	}

	row, _ := f.store.FindLeaderboardRow(context.Background(), user)
	earnedToday := today.XPTotal - yesterday.XPTotal
	if row.XPToday != earnedToday || row.XPLifetime != today.XPTotal {
		t.Errorf("leaderboard = %+v, want today %d lifetime %d", row, earnedToday, today.XPTotal)
	}

	if _, err := f.svc.ResetWindow(context.Background(), entity.WindowLifetime); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Errorf("lifetime reset error = %v", err)
	}
}

func TestResetAfterBoundaryKeepsNewPeriodXP(t *testing.T) {
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	windows := []struct {
		window entity.Window
		since  time.Time
		total  func(r *entity.LeaderboardRow, p *entity.UserGamification) (int64, int64)
	}{
		{entity.WindowDaily, monday, func(r *entity.LeaderboardRow, p *entity.UserGamification) (int64, int64) { return r.XPToday, p.XPDaily }},
		{entity.WindowWeekly, monday, func(r *entity.LeaderboardRow, p *entity.UserGamification) (int64, int64) { return r.XPWeek, p.XPWeekly }},
	}

	for _, w := range windows {
		t.Run(string(w.window), func(t *testing.T) {
			f := newFixture(t)
			user := uuid.New()

			f.clock = monday.Add(-14 * time.Hour)
			f.award(t, message(user))
			f.clock = monday.Add(2 * time.Minute)
			f.award(t, message(user))

			f.clock = monday.Add(5 * time.Minute)
			res, err := f.svc.ResetWindow(context.Background(), w.window)
			if err != nil {
				t.Fatal(err)
			}
			if !res.Reset {
				t.Fatalf("reset = %+v, want a fresh period", res)
			}

			var inWindow, lifetime int64
			for _, e := range f.store.Ledger(user) {
				lifetime += e.Amount
				if !e.CreatedAt.Before(w.since) {
					inWindow += e.Amount
				}
			}
			if inWindow == 0 || inWindow == lifetime {
				t.Fatalf("ledger in window = %d of %d, want a split across the boundary", inWindow, lifetime)
			}

			row, _ := f.store.FindLeaderboardRow(context.Background(), user)
			p, _ := f.store.FindProfile(context.Background(), user)
			board, profile := w.total(row, p)
			if board != inWindow || profile != inWindow {
				t.Errorf("%s totals = leaderboard %d profile %d, want ledger sum %d", w.window, board, profile, inWindow)
			}
			if row.XPLifetime != lifetime {
				t.Errorf("lifetime = %d, want %d", row.XPLifetime, lifetime)
			}
			checkLedgerConservation(t, f, user)
		})
	}
}
