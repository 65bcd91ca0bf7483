package challenge

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/modules/challenge/dto"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/internal/rulebook"
	"skaila.com/gamification/pkg/apperror"
)

type ChallengeService interface {
	AssignDaily(ctx context.Context, userID uuid.UUID) (*dto.UserChallengeResponse, error)
	AssignWeekly(ctx context.Context, userID uuid.UUID) ([]dto.UserChallengeResponse, error)
	AssignClass(ctx context.Context, userID uuid.UUID, code string) (*dto.UserChallengeResponse, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*dto.ActiveChallengesResponse, error)

	AssignDailyToActiveUsers(ctx context.Context, since time.Time) (dto.FanOutResult, error)
	AssignWeeklyToActiveUsers(ctx context.Context, since time.Time) (dto.FanOutResult, error)
}

type challengeService struct {
	store   repository.Store
	tracker *Tracker
	rules   *rulebook.Rulebook
	now     func() time.Time
}

func NewChallengeService(store repository.Store, tracker *Tracker, rules *rulebook.Rulebook, now func() time.Time) ChallengeService {
	if now == nil {
		now = time.Now
	}
	return &challengeService{store: store, tracker: tracker, rules: rules, now: now}
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: user_id is required", apperror.ErrInvalidInput)
	}
	return nil
}

func (s *challengeService) AssignDaily(ctx context.Context, userID uuid.UUID) (*dto.UserChallengeResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var uc *entity.UserChallenge
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		uc, err = s.tracker.AssignDaily(ctx, tx, userID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(*uc)
	return &resp, nil
}

func (s *challengeService) AssignWeekly(ctx context.Context, userID uuid.UUID) ([]dto.UserChallengeResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var list []entity.UserChallenge
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		list, err = s.tracker.AssignWeekly(ctx, tx, userID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.toResponses(list), nil
}

func (s *challengeService) AssignClass(ctx context.Context, userID uuid.UUID, code string) (*dto.UserChallengeResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var uc *entity.UserChallenge
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		uc, err = s.tracker.AssignClass(ctx, tx, userID, code, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(*uc)
	return &resp, nil
}

func (s *challengeService) GetActive(ctx context.Context, userID uuid.UUID) (*dto.ActiveChallengesResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var active Active
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		active, err = s.tracker.Active(ctx, tx, userID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.ActiveChallengesResponse{
		Weekly: s.toResponses(active.Weekly),
		Class:  s.toResponses(active.Class),
	}
	if active.Daily != nil {
		daily := s.toResponse(*active.Daily)
		resp.Daily = &daily
	}
	return resp, nil
}

func (s *challengeService) AssignDailyToActiveUsers(ctx context.Context, since time.Time) (dto.FanOutResult, error) {
	return s.fanOut(ctx, since, "daily", func(userID uuid.UUID) (int, error) {
		_, err := s.AssignDaily(ctx, userID)
		return 1, err
	})
}

func (s *challengeService) AssignWeeklyToActiveUsers(ctx context.Context, since time.Time) (dto.FanOutResult, error) {
	return s.fanOut(ctx, since, "weekly", func(userID uuid.UUID) (int, error) {
		list, err := s.AssignWeekly(ctx, userID)
		return len(list), err
	})
}

// fanOut runs assign for every user active since the cutoff, one
// transaction each. A failure for one user doesn't stop the others;
// cancellation does.
func (s *challengeService) fanOut(ctx context.Context, since time.Time, label string, assign func(uuid.UUID) (int, error)) (dto.FanOutResult, error) {
	var result dto.FanOutResult

	users, err := s.store.ActiveUserIDs(ctx, since)
	if err != nil {
		return result, err
	}

	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Users++
		n, err := assign(userID)
		if err != nil {
			result.Failed++
			log.Printf("⚠️ %s challenge assignment failed for user %s: %v", label, userID, err)
			continue
		}
		result.Assigned += n
	}

	log.Printf("🎯 %s challenges: %d users, %d instances, %d failures", label, result.Users, result.Assigned, result.Failed)
	return result, nil
}

func (s *challengeService) toResponse(uc entity.UserChallenge) dto.UserChallengeResponse {
	resp := dto.UserChallengeResponse{
		ID:          uc.ID,
		Code:        uc.ChallengeCode,
		Kind:        uc.Kind,
		Difficulty:  uc.Difficulty,
		Progress:    uc.Progress.Data(),
		Status:      uc.Status(),
		AssignedAt:  uc.AssignedAt,
		ExpiresAt:   uc.ExpiresAt,
		CompletedAt: uc.CompletedAt,
	}
	if resp.Progress == nil {
		resp.Progress = entity.Objectives{}
	}
	if ch, ok := s.rules.Challenge(uc.ChallengeCode); ok {
		resp.Name = ch.Name
		resp.Description = ch.Description
		resp.Objectives = ch.Objectives
		resp.RewardXP = ch.RewardXP
	}
	return resp
}

func (s *challengeService) toResponses(list []entity.UserChallenge) []dto.UserChallengeResponse {
	out := make([]dto.UserChallengeResponse, 0, len(list))
	for _, uc := range list {
		out = append(out, s.toResponse(uc))
	}
	return out
}
