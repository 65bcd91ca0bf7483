package multiplier

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/calendar"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/internal/rulebook"
	"skaila.com/gamification/pkg/apperror"
)

// Query describes the award a multiplier is resolved for.
type Query struct {
	UserID uuid.UUID
	Action entity.ActionKind
	Flags  map[string]bool
	Now    time.Time
}

// Resolver combines active power-ups, platform events and contextual
// modifiers into one multiplier.
type Resolver struct {
	rules *rulebook.Rulebook
	cal   calendar.Calendar
}

func NewResolver(rules *rulebook.Rulebook, cal calendar.Calendar) *Resolver {
	return &Resolver{rules: rules, cal: cal}
}

// Multiplier returns the product of every applicable factor, never below 1.
func (r *Resolver) Multiplier(ctx context.Context, tx repository.Tx, q Query) (float64, error) {
	m := 1.0

	powerUps, err := tx.ActivePowerUps(ctx, q.UserID, q.Now)
	if err != nil {
		return 0, err
	}
	for _, up := range powerUps {
		if up.Covers(q.Now) && up.XPMultiplier > 0 {
			m *= up.XPMultiplier
		}
	}

	events, err := tx.ActiveEvents(ctx, q.Now)
	if err != nil {
		return 0, err
	}
	for _, e := range events {
		if e.Covers(q.Now) && e.XPMultiplier > 0 {
			m *= e.XPMultiplier
		}
	}

	m *= r.contextual(q)

	return math.Max(1, m), nil
}

func (r *Resolver) contextual(q Query) float64 {
	m := 1.0
	local := q.Now.In(r.cal.Location())

	if f, ok := r.rules.Modifier(rulebook.ModifierWeekend); ok {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			m *= f
		}
	}
	if f, ok := r.rules.Modifier(rulebook.ModifierLateNight); ok {
		if h := local.Hour(); h >= 22 || h < 6 {
			m *= f
		}
	}
	if f, ok := r.rules.Modifier(rulebook.ModifierFirstOfDay); ok && q.Flags[rulebook.FlagFirstOfDay] {
		m *= f
	}
	return m
}

// Apply scales base by m, truncating toward zero. A positive base never
// drops below 1.
func Apply(base int64, m float64) int64 {
	if base <= 0 {
		return base
	}
	// The epsilon absorbs float error such as 3 * 1.1 = 3.3000000000000003.
	scaled := int64(math.Floor(float64(base)*m + 1e-9))
	return max(1, scaled)
}

type PowerUpService interface {
	Activate(ctx context.Context, userID uuid.UUID, code string) (*entity.UserPowerUp, error)
}

type powerUpService struct {
	store repository.Store
	now   func() time.Time
}

func NewPowerUpService(store repository.Store, now func() time.Time) PowerUpService {
	if now == nil {
		now = time.Now
	}
	return &powerUpService{store: store, now: now}
}

// Activate starts a power-up for the user. It is valid from now for the
// power-up's duration; a zero duration never expires.
func (s *powerUpService) Activate(ctx context.Context, userID uuid.UUID, code string) (*entity.UserPowerUp, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", apperror.ErrInvalidInput)
	}

	var activated *entity.UserPowerUp
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		pu, err := tx.FindPowerUp(ctx, code)
		if err != nil {
			return err
		}
		if !pu.Available {
			return fmt.Errorf("%w: power-up %q is not available", apperror.ErrInvalidInput, code)
		}

		now := s.now()
		up := &entity.UserPowerUp{
			ID:           uuid.New(),
			UserID:       userID,
			PowerUpCode:  pu.Code,
			XPMultiplier: pu.XPMultiplier,
			Active:       true,
			ActivatedAt:  now,
		}
		if pu.DurationMinutes > 0 {
			expires := now.Add(time.Duration(pu.DurationMinutes) * time.Minute)
			up.ExpiresAt = &expires
		}
		if err := tx.InsertUserPowerUp(ctx, up); err != nil {
			return err
		}
		activated = up
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("⚡ Power-up %s activated for user %s (x%.2f)", code, userID, activated.XPMultiplier)
	return activated, nil
}
