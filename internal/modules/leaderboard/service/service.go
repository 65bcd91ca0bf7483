package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"skaila.com/gamification/internal/entity"
	leaderboardDto "skaila.com/gamification/internal/modules/leaderboard/dto"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/internal/rulebook"
	"skaila.com/gamification/pkg/apperror"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, window entity.Window, limit int) (*leaderboardDto.LeaderboardResponse, error)
	GetPosition(ctx context.Context, userID uuid.UUID, window entity.Window) (*leaderboardDto.PositionResponse, error)
}

type leaderboardService struct {
	reader      repository.Reader
	rules       *rulebook.Rulebook
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewLeaderboardService caches top lists in Redis for cacheTTL. A nil client
// or a zero TTL disables caching.
func NewLeaderboardService(reader repository.Reader, rules *rulebook.Rulebook, redisClient *redis.Client, cacheTTL time.Duration) LeaderboardService {
	return &leaderboardService{
		reader:      reader,
		rules:       rules,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// ParseWindow accepts the window names plus "all_time" for lifetime. An empty
// string selects the weekly board.
func ParseWindow(raw string) (entity.Window, error) {
	switch raw {
	case "":
		return entity.WindowWeekly, nil
	case "all_time":
		return entity.WindowLifetime, nil
	}
	w := entity.Window(raw)
	if !w.Valid() {
		return "", fmt.Errorf("%w: unknown leaderboard window %q", apperror.ErrInvalidInput, raw)
	}
	return w, nil
}

func cacheKey(window entity.Window, limit int) string {
	return fmt.Sprintf("leaderboard:%s:%d", window, limit)
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, window entity.Window, limit int) (*leaderboardDto.LeaderboardResponse, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("%w: unknown leaderboard window %q", apperror.ErrInvalidInput, window)
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if cached, ok := s.fromCache(ctx, window, limit); ok {
		return cached, nil
	}

	rows, err := s.reader.TopLeaderboard(ctx, window, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboardDto.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, leaderboardDto.LeaderboardEntry{
			UserID:             row.UserID,
			Position:           i + 1,
			XP:                 row.Value(window),
			GamificationStatus: GetGamificationStatus(s.rules, row.XPLifetime, row.XPWeek),
		})
	}

	resp := &leaderboardDto.LeaderboardResponse{Window: window, Entries: entries}
	s.toCache(ctx, window, limit, resp)
	return resp, nil
}

func (s *leaderboardService) fromCache(ctx context.Context, window entity.Window, limit int) (*leaderboardDto.LeaderboardResponse, bool) {
	if s.redisClient == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	raw, err := s.redisClient.Get(ctx, cacheKey(window, limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Leaderboard cache read failed: %v", err)
		}
		return nil, false
	}
	var resp leaderboardDto.LeaderboardResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (s *leaderboardService) toCache(ctx context.Context, window entity.Window, limit int, resp *leaderboardDto.LeaderboardResponse) {
	if s.redisClient == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, cacheKey(window, limit), payload, s.cacheTTL).Err(); err != nil {
		log.Printf("Leaderboard cache write failed: %v", err)
	}
}

// GetPosition is always read from the store; positions move with every
// award.
func (s *leaderboardService) GetPosition(ctx context.Context, userID uuid.UUID, window entity.Window) (*leaderboardDto.PositionResponse, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", apperror.ErrInvalidInput)
	}
	if !window.Valid() {
		return nil, fmt.Errorf("%w: unknown leaderboard window %q", apperror.ErrInvalidInput, window)
	}

	row, err := s.reader.FindLeaderboardRow(ctx, userID)
	if err != nil {
		return nil, err
	}
	position, err := s.reader.LeaderboardPosition(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	return &leaderboardDto.PositionResponse{
		UserID:             userID,
		Window:             window,
		Position:           position,
		XP:                 row.Value(window),
		GamificationStatus: GetGamificationStatus(s.rules, row.XPLifetime, row.XPWeek),
	}, nil
}
