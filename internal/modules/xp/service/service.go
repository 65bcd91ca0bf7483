package xp

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"skaila.com/gamification/internal/calendar"
	"skaila.com/gamification/internal/entity"
	challengeService "skaila.com/gamification/internal/modules/challenge/service"
	multiplierService "skaila.com/gamification/internal/modules/multiplier/service"
	"skaila.com/gamification/internal/modules/xp/dto"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/internal/rulebook"
	"skaila.com/gamification/pkg/apperror"
)

// maxGrantDepth bounds reward chains: action, challenge reward, badge
// reward, badge reward.
const maxGrantDepth = 3

// CommitHook observes awards after their transaction committed.
type CommitHook interface {
	AfterAward(ctx context.Context, userID uuid.UUID, notifications []entity.Notification)
}

type XPService interface {
	Award(ctx context.Context, req dto.AwardRequest) (*dto.Outcome, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error)
	UpdateCosmetics(ctx context.Context, userID uuid.UUID, req dto.CosmeticsRequest) (*dto.ProfileResponse, error)
	ResetWindow(ctx context.Context, window entity.Window) (*dto.ResetResponse, error)
}

type xpService struct {
	store      repository.Store
	rules      *rulebook.Rulebook
	cal        calendar.Calendar
	multiplier *multiplierService.Resolver
	tracker    *challengeService.Tracker
	sanitizer  *bluemonday.Policy
	hooks      []CommitHook
	now        func() time.Time
}

type Option func(*xpService)

func WithClock(now func() time.Time) Option {
	return func(s *xpService) { s.now = now }
}

func WithHooks(hooks ...CommitHook) Option {
	return func(s *xpService) { s.hooks = append(s.hooks, hooks...) }
}

func NewXPService(
	store repository.Store,
	rules *rulebook.Rulebook,
	cal calendar.Calendar,
	multiplier *multiplierService.Resolver,
	tracker *challengeService.Tracker,
	opts ...Option,
) XPService {
	s := &xpService{
		store:      store,
		rules:      rules,
		cal:        cal,
		multiplier: multiplier,
		tracker:    tracker,
		sanitizer:  bluemonday.StrictPolicy(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperror.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// normalize fills defaults and rejects malformed requests before any
// storage access.
func (s *xpService) normalize(req *dto.AwardRequest) error {
	if req.UserID == uuid.Nil {
		return invalid("user_id is required")
	}

	if req.Source == "" {
		if req.Action == "" {
			return invalid("source or action is required")
		}
		src, ok := s.rules.SourceFor(req.Action)
		if !ok {
			return invalid("unknown action %q", req.Action)
		}
		req.Source = src
	}
	if !req.Source.Valid() {
		return invalid("unknown source %q", req.Source)
	}

	if req.Amount == nil && req.Action == "" {
		return invalid("amount or action is required")
	}
	if req.Amount != nil && *req.Amount < 0 && req.Source != entity.SourceAdmin {
		return invalid("negative amount is only allowed for %s corrections", entity.SourceAdmin)
	}
	for name, delta := range req.Counters {
		if delta < 0 {
			return invalid("counter %q cannot decrease", name)
		}
	}

	if req.FirstOfDay {
		flags := make(map[string]bool, len(req.Flags)+1)
		for k, v := range req.Flags {
			flags[k] = v
		}
		flags[rulebook.FlagFirstOfDay] = true
		req.Flags = flags
	}
	req.Description = strings.TrimSpace(s.sanitizer.Sanitize(req.Description))
	return nil
}

// Award grants XP for one action and every reward it triggers in a single
// transaction.
func (s *xpService) Award(ctx context.Context, req dto.AwardRequest) (*dto.Outcome, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}
	now := s.now()

	var run *awardRun
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		// A retried transaction starts from scratch.
		run = &awardRun{svc: s, tx: tx, req: req, now: now}
		return run.execute(ctx)
	})
	if err != nil {
		if !apperror.IsKnown(err) {
			log.Printf("❌ award failed for user %s: %v", req.UserID, err)
		}
		return nil, err
	}

	if len(run.notifications) > 0 {
		for _, h := range s.hooks {
			h.AfterAward(ctx, req.UserID, run.notifications)
		}
	}
	return &run.outcome, nil
}
