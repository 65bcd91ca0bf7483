package xp

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/modules/xp/dto"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/pkg/apperror"
)

// GetProfile returns a read-only snapshot. Users never awarded get a zero
// profile at the base rank.
func (s *xpService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id is required")
	}

	profile, err := s.store.FindProfile(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		profile = entity.NewUserGamification(userID, s.rules.BaseRank().Name, s.now())
	} else if err != nil {
		return nil, err
	}

	row, err := s.store.FindLeaderboardRow(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.store.UserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.toProfileResponse(profile, row, badges), nil
}

func (s *xpService) toProfileResponse(p *entity.UserGamification, row *entity.LeaderboardRow, badges []entity.UserBadge) *dto.ProfileResponse {
	tier, ok := s.rules.Rank(p.Rank)
	if !ok {
		tier = s.rules.RankOf(p.XPTotal)
	}
	progress := s.rules.Progress(p.XPTotal)

	codes := make([]string, 0, len(badges))
	for _, b := range badges {
		codes = append(codes, b.BadgeCode)
	}
	sort.Strings(codes)

	counters := p.Counters.Data()
	if counters == nil {
		counters = entity.Counters{}
	}

	resp := &dto.ProfileResponse{
		UserID:         p.UserID,
		XPTotal:        p.XPTotal,
		Rank:           tier.Name,
		RankIcon:       tier.Icon,
		RankColor:      tier.Color,
		RankMaxEver:    p.RankMaxEver,
		StreakDays:     p.StreakDays,
		StreakLongest:  p.StreakLongest,
		LastActiveDate: p.LastActiveDate,
		Counters:       counters,
		Cosmetics:      p.Cosmetics.Data(),
		Badges:         codes,
		Progress: dto.RankProgress{
			XPNeeded: progress.XPNeeded,
			Percent:  progress.Percent,
		},
	}
	if progress.Next != nil {
		resp.Progress.NextRank = progress.Next.Name
	}
	if row != nil {
		resp.XPWindows = dto.WindowTotals{
			Daily:    row.XPToday,
			Weekly:   row.XPWeek,
			Monthly:  row.XPMonth,
			Seasonal: row.XPSeason,
			Lifetime: row.XPLifetime,
		}
	}
	return resp
}

// UpdateCosmetics replaces the user's visual choices. A title must name a
// rank the user has reached at some point.
func (s *xpService) UpdateCosmetics(ctx context.Context, userID uuid.UUID, req dto.CosmeticsRequest) (*dto.ProfileResponse, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id is required")
	}
	if req.Title != "" && s.rules.RankOrder(req.Title) < 0 {
		return nil, invalid("unknown title %q", req.Title)
	}

	now := s.now()
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		seed := entity.NewUserGamification(userID, s.rules.BaseRank().Name, now)
		p, err := tx.GetOrCreateProfile(ctx, seed)
		if err != nil {
			return err
		}
		if req.Title != "" && s.rules.RankOrder(req.Title) > s.rules.RankOrder(p.RankMaxEver) {
			return invalid("title %q is not unlocked yet", req.Title)
		}
		p.Cosmetics = datatypes.NewJSONType(entity.Cosmetics{
			AvatarID: req.AvatarID,
			Theme:    req.Theme,
			Title:    req.Title,
			Frame:    req.Frame,
		})
		p.UpdatedAt = now
		return tx.SaveProfile(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// ResetWindow starts a new period for window once per calendar period. Each
// total is rebuilt from the ledger since the period start, so awards that
// land before the scheduled tick are kept. Repeating the call in the same
// period is a no-op.
func (s *xpService) ResetWindow(ctx context.Context, window entity.Window) (*dto.ResetResponse, error) {
	if !window.Resettable() {
		return nil, invalid("window %q cannot be reset", window)
	}

	now := s.now()
	key, err := s.cal.PeriodKey(window, now)
	if err != nil {
		return nil, err
	}
	since, err := s.cal.PeriodStart(window, now)
	if err != nil {
		return nil, err
	}

	resp := &dto.ResetResponse{Window: window, PeriodKey: key}
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		claimed, err := tx.ClaimWindowReset(ctx, window, key, now)
		if err != nil || !claimed {
			resp.Reset = false
			return err
		}
		resp.Reset = true
		return tx.RebaseWindow(ctx, window, since)
	})
	if err != nil {
		return nil, err
	}

	if resp.Reset {
		log.Printf("🔄 %s XP window reset for period %s", window, key)
	} else {
		log.Printf("ℹ️ %s XP window already reset for period %s", window, key)
	}
	return resp, nil
}
