package challenge

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"skaila.com/gamification/internal/calendar"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/internal/rulebook"
	"skaila.com/gamification/pkg/apperror"
)

// Completion is a challenge finished by an observed action.
type Completion struct {
	Code     string
	Name     string
	RewardXP int64
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// Tracker assigns challenge instances and advances their progress. All
// methods run inside a caller-provided transaction.
type Tracker struct {
	rules *rulebook.Rulebook
	cal   calendar.Calendar
	pick  Picker
}

type TrackerOption func(*Tracker)

// WithPicker replaces the random daily/weekly selection.
func WithPicker(p Picker) TrackerOption {
	return func(t *Tracker) { t.pick = p }
}

func NewTracker(rules *rulebook.Rulebook, cal calendar.Calendar, opts ...TrackerOption) *Tracker {
	t := &Tracker{rules: rules, cal: cal, pick: rand.IntN}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func DailySlot(cal calendar.Calendar, now time.Time) string {
	return "daily:" + cal.DateKey(now)
}

func WeeklySlot(cal calendar.Calendar, now time.Time, d entity.Difficulty) string {
	return fmt.Sprintf("weekly:%s:%s", cal.WeekKey(now), d)
}

func ClassSlot(code string) string {
	return "class:" + code
}

func newInstance(userID uuid.UUID, ch rulebook.Challenge, slot string, now time.Time, expires *time.Time) *entity.UserChallenge {
	return &entity.UserChallenge{
		ID:            uuid.New(),
		UserID:        userID,
		SlotKey:       slot,
		ChallengeCode: ch.Code,
		Kind:          ch.Kind,
		Difficulty:    ch.Difficulty,
		Progress:      datatypes.NewJSONType(entity.Objectives{}),
		AssignedAt:    now,
		ExpiresAt:     expires,
	}
}

func openCodes(open []entity.UserChallenge) map[string]bool {
	codes := make(map[string]bool, len(open))
	for _, uc := range open {
		codes[uc.ChallengeCode] = true
	}
	return codes
}

// candidates are active challenges of kind, optionally of one difficulty,
// that the user doesn't already have open.
func (t *Tracker) candidates(kind entity.ChallengeKind, difficulty entity.Difficulty, exclude map[string]bool) []rulebook.Challenge {
	var out []rulebook.Challenge
	for _, ch := range t.rules.Challenges(kind) {
		if exclude[ch.Code] {
			continue
		}
		if difficulty != "" && ch.Difficulty != difficulty {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// AssignDaily gives the user one daily challenge for today. Calling it again
// on the same day returns the existing instance.
func (t *Tracker) AssignDaily(ctx context.Context, tx repository.Tx, userID uuid.UUID, now time.Time) (*entity.UserChallenge, error) {
	slot := DailySlot(t.cal, now)
	existing, err := tx.FindUserChallengeBySlot(ctx, userID, slot)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	open, err := tx.OpenChallenges(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	pool := t.candidates(entity.ChallengeDaily, "", openCodes(open))
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no daily challenge available", apperror.ErrNotFound)
	}

	chosen := pool[t.pick(len(pool))]
	expires := t.cal.NextDay(now)
	res, err := tx.InsertUserChallenge(ctx, newInstance(userID, chosen, slot, now, &expires))
	if err != nil {
		return nil, err
	}
	return &res.Row, nil
}

// AssignWeekly keeps at most one weekly challenge per difficulty in the
// current ISO week and drops unfinished ones from earlier weeks.
func (t *Tracker) AssignWeekly(ctx context.Context, tx repository.Tx, userID uuid.UUID, now time.Time) ([]entity.UserChallenge, error) {
	removed, err := tx.DeleteStaleChallenges(ctx, userID, entity.ChallengeWeekly, t.cal.WeekStart(now))
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		log.Printf("🧹 Removed %d stale weekly challenges for user %s", removed, userID)
	}

	open, err := tx.OpenChallenges(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	exclude := openCodes(open)
	expires := t.cal.NextWeek(now)

	var assigned []entity.UserChallenge
	for _, d := range entity.Difficulties {
		slot := WeeklySlot(t.cal, now, d)
		existing, err := tx.FindUserChallengeBySlot(ctx, userID, slot)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			assigned = append(assigned, *existing)
			continue
		}

		pool := t.candidates(entity.ChallengeWeekly, d, exclude)
		if len(pool) == 0 {
			continue
		}
		chosen := pool[t.pick(len(pool))]
		res, err := tx.InsertUserChallenge(ctx, newInstance(userID, chosen, slot, now, &expires))
		if err != nil {
			return nil, err
		}
		exclude[chosen.Code] = true
		assigned = append(assigned, res.Row)
	}
	return assigned, nil
}

// AssignClass enrols the user in a class challenge chosen by a teacher.
// Class challenges don't expire.
func (t *Tracker) AssignClass(ctx context.Context, tx repository.Tx, userID uuid.UUID, code string, now time.Time) (*entity.UserChallenge, error) {
	ch, ok := t.rules.Challenge(code)
	if !ok {
		return nil, fmt.Errorf("%w: challenge %q", apperror.ErrNotFound, code)
	}
	if ch.Kind != entity.ChallengeClass {
		return nil, fmt.Errorf("%w: challenge %q is a %s challenge", apperror.ErrInvalidInput, code, ch.Kind)
	}
	if !ch.IsActive() {
		return nil, fmt.Errorf("%w: challenge %q is not active", apperror.ErrInvalidInput, code)
	}

	res, err := tx.InsertUserChallenge(ctx, newInstance(userID, ch, ClassSlot(code), now, nil))
	if err != nil {
		return nil, err
	}
	return &res.Row, nil
}

// ObserveAction adds amount to every open instance with an objective for
// action. Instances are visited in code order so completions are
// deterministic.
func (t *Tracker) ObserveAction(ctx context.Context, tx repository.Tx, userID uuid.UUID, action entity.ActionKind, amount int64, now time.Time) ([]Completion, error) {
	if action == "" || amount <= 0 {
		return nil, nil
	}

	open, err := tx.OpenChallenges(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].ChallengeCode < open[j].ChallengeCode })

	var completed []Completion
	for i := range open {
		uc := &open[i]
		ch, ok := t.rules.Challenge(uc.ChallengeCode)
		if !ok {
			continue
		}
		if _, tracked := ch.Objectives[action]; !tracked {
			continue
		}

		progress := uc.AddProgress(action, amount)
		if ch.Satisfied(progress) {
			at := now
			uc.Completed = true
			uc.CompletedAt = &at
			completed = append(completed, Completion{Code: ch.Code, Name: ch.Name, RewardXP: ch.RewardXP})
		}
		if err := tx.SaveUserChallenge(ctx, uc); err != nil {
			return nil, err
		}
	}
	return completed, nil
}

// Active groups the user's current instances by kind. Today's daily and this
// week's weekly instances are listed even when completed.
func (t *Tracker) Active(ctx context.Context, tx repository.Tx, userID uuid.UUID, now time.Time) (Active, error) {
	var out Active

	recent, err := tx.ChallengesAssignedSince(ctx, userID, t.cal.WeekStart(now))
	if err != nil {
		return out, err
	}
	today := DailySlot(t.cal, now)
	for _, uc := range recent {
		switch {
		case uc.Kind == entity.ChallengeDaily && uc.SlotKey == today:
			daily := uc
			out.Daily = &daily
		case uc.Kind == entity.ChallengeWeekly:
			out.Weekly = append(out.Weekly, uc)
		}
	}

	open, err := tx.OpenChallenges(ctx, userID, now)
	if err != nil {
		return out, err
	}
	for _, uc := range open {
		if uc.Kind == entity.ChallengeClass {
			out.Class = append(out.Class, uc)
		}
	}
	return out, nil
}

type Active struct {
	Daily  *entity.UserChallenge
	Weekly []entity.UserChallenge
	Class  []entity.UserChallenge
}
