package xp

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"skaila.com/gamification/internal/entity"
	multiplierService "skaila.com/gamification/internal/modules/multiplier/service"
	"skaila.com/gamification/internal/modules/xp/dto"
	"skaila.com/gamification/internal/repository"
)

// pendingGrant is a cap-exempt reward queued by an earlier grant of the same
// award.
type pendingGrant struct {
	source      entity.Source
	amount      int64
	ref         string
	description string
	depth       int
}

func (g pendingGrant) key() string { return string(g.source) + ":" + g.ref }

// awardRun holds the state of one award inside one transaction attempt.
type awardRun struct {
	svc *xpService
	tx  repository.Tx
	req dto.AwardRequest
	now time.Time

	profile   *entity.UserGamification
	startRank int
	held      map[string]bool
	queue     []pendingGrant
	seen      map[string]bool

	outcome       dto.Outcome
	notifications []entity.Notification
}

func (r *awardRun) execute(ctx context.Context) error {
	s := r.svc
	seed := entity.NewUserGamification(r.req.UserID, s.rules.BaseRank().Name, r.now)
	profile, err := r.tx.GetOrCreateProfile(ctx, seed)
	if err != nil {
		return err
	}
	r.profile = profile
	r.startRank = s.rules.RankOrder(profile.Rank)
	r.seen = map[string]bool{}
	r.outcome.BadgesUnlocked = []string{}
	r.outcome.ChallengesCompleted = []dto.CompletedChallenge{}
	r.outcome.Grants = []dto.Grant{}

	if r.held, err = r.tx.UserBadgeCodes(ctx, profile.UserID); err != nil {
		return err
	}

	if err := r.root(ctx); err != nil {
		return err
	}

	for len(r.queue) > 0 {
		g := r.queue[0]
		r.queue = r.queue[1:]
		if g.depth > maxGrantDepth {
			log.Printf("⚠️ dropping %s reward %s for user %s: depth %d", g.source, g.ref, profile.UserID, g.depth)
			continue
		}
		if r.seen[g.key()] {
			continue
		}
		r.seen[g.key()] = true

		if err := r.credit(ctx, g.source, "", g.amount, g.ref, g.description, nil, true); err != nil {
			return err
		}
		r.outcome.Grants = append(r.outcome.Grants, dto.Grant{Source: g.source, Amount: g.amount, Ref: g.ref, Depth: g.depth})
		if err := r.evaluateBadges(ctx, g.depth+1); err != nil {
			return err
		}
	}

	return r.finish(ctx)
}

// root applies the caller's action: base amount, multiplier, cap, counters,
// streak, badges and challenge progress.
func (r *awardRun) root(ctx context.Context) error {
	s := r.svc
	req := r.req
	exempt := req.Source.CapExempt()

	var amount int64
	if req.Amount != nil {
		amount = *req.Amount
	} else {
		base, err := s.rules.BaseXP(req.Action, req.Flags)
		if err != nil {
			return err
		}
		amount = base
	}

	if !exempt && enabled(req.ApplyMultipliers) && amount > 0 {
		m, err := s.multiplier.Multiplier(ctx, r.tx, multiplierService.Query{
			UserID: req.UserID,
			Action: req.Action,
			Flags:  req.Flags,
			Now:    r.now,
		})
		if err != nil {
			return err
		}
		amount = multiplierService.Apply(amount, m)
	}

	if !exempt && enabled(req.ApplyCaps) && amount > 0 {
		if limit, ok := s.rules.DailyCap(req.Source); ok {
			spent, err := r.tx.SumLedger(ctx, req.UserID, req.Source, s.cal.StartOfDay(r.now), s.cal.NextDay(r.now))
			if err != nil {
				return err
			}
			if remaining := max(0, limit-spent); amount > remaining {
				amount = remaining
				r.outcome.Capped = true
			}
		}
	}

	if amount < 0 && r.profile.XPTotal+amount < 0 {
		return invalid("correction of %d would take xp_total below zero", amount)
	}

	if amount != 0 {
		if err := r.credit(ctx, req.Source, req.Action, amount, "", req.Description, req.Metadata, exempt); err != nil {
			return err
		}
		r.outcome.Grants = append(r.outcome.Grants, dto.Grant{Source: req.Source, Amount: amount})
	}

	r.profile.AddCounters(req.Counters)

	if req.FirstOfDay && amount > 0 {
		if err := r.advanceStreak(); err != nil {
			return err
		}
	}

	if err := r.evaluateBadges(ctx, 1); err != nil {
		return err
	}

	completed, err := s.tracker.ObserveAction(ctx, r.tx, req.UserID, req.Action, 1, r.now)
	if err != nil {
		return err
	}
	for _, c := range completed {
		r.outcome.ChallengesCompleted = append(r.outcome.ChallengesCompleted, dto.CompletedChallenge{Code: c.Code, Name: c.Name, RewardXP: c.RewardXP})
		r.notify(entity.NotificationChallengeCompleted,
			"Sfida completata! 🎯",
			fmt.Sprintf("Hai completato la sfida \"%s\" e guadagnato %d XP", c.Name, c.RewardXP),
			map[string]any{"challenge_code": c.Code, "reward_xp": c.RewardXP})
		if c.RewardXP > 0 {
			r.enqueue(pendingGrant{
				source:      entity.SourceChallenge,
				amount:      c.RewardXP,
				ref:         c.Code,
				description: "Sfida completata: " + c.Name,
				depth:       1,
			})
		}
	}
	return nil
}

func enabled(flag *bool) bool { return flag == nil || *flag }

func (r *awardRun) enqueue(g pendingGrant) { r.queue = append(r.queue, g) }

// credit writes one ledger row and moves every total by amount.
func (r *awardRun) credit(ctx context.Context, source entity.Source, action entity.ActionKind, amount int64, ref, description string, metadata map[string]any, exempt bool) error {
	p := r.profile
	entry := &entity.XPLedgerEntry{
		UserID:      p.UserID,
		Amount:      amount,
		Source:      source,
		Action:      action,
		CapExempt:   exempt,
		Reference:   ref,
		Description: description,
		CreatedAt:   r.now,
	}
	if len(metadata) > 0 {
		entry.Metadata = datatypes.JSONMap(metadata)
	}
	if err := r.tx.AppendLedger(ctx, entry); err != nil {
		return err
	}
	if err := r.tx.UpdateLeaderboard(ctx, p.UserID, amount); err != nil {
		return err
	}

	p.XPTotal += amount
	p.XPSeasonal += amount
	p.XPWeekly += amount
	p.XPDaily += amount

	rank := r.svc.rules.RankOf(p.XPTotal)
	p.Rank = rank.Name
	if r.svc.rules.RankOrder(rank.Name) > r.svc.rules.RankOrder(p.RankMaxEver) {
		p.RankMaxEver = rank.Name
	}

	r.outcome.XPGranted += amount
	return nil
}

// advanceStreak moves the streak for a first-of-day grant and queues the
// milestone bonus when one is reached.
func (r *awardRun) advanceStreak() error {
	p := r.profile
	today := r.svc.cal.DateKey(r.now)

	if p.LastActiveDate == "" {
		p.StreakDays = 1
	} else {
		gap, err := r.svc.cal.DaysBetween(p.LastActiveDate, today)
		if err != nil {
			return err
		}
		switch {
		case gap <= 0:
			return nil
		case gap == 1:
			p.StreakDays++
		default:
			p.StreakDays = 1
		}
	}
	p.LastActiveDate = today
	p.StreakLongest = max(p.StreakLongest, p.StreakDays)

	if bonus := r.svc.rules.StreakBonus(p.StreakDays); bonus > 0 {
		r.notify(entity.NotificationStreakMilestone,
			"Serie da record! 🔥",
			fmt.Sprintf("%d giorni consecutivi di attività: +%d XP", p.StreakDays, bonus),
			map[string]any{"streak_days": p.StreakDays, "bonus_xp": bonus})
		r.enqueue(pendingGrant{
			source:      entity.SourceStreak,
			amount:      bonus,
			ref:         fmt.Sprintf("%s:%d", today, p.StreakDays),
			description: fmt.Sprintf("Bonus serie di %d giorni", p.StreakDays),
			depth:       1,
		})
	}
	return nil
}

// evaluateBadges unlocks every badge the profile now qualifies for, in code
// order, and queues their rewards at depth.
func (r *awardRun) evaluateBadges(ctx context.Context, depth int) error {
	rules := r.svc.rules
	stats := r.profile.Stats()

	for _, b := range rules.Badges() {
		if r.held[b.Code] || !rules.Qualifies(b, stats, r.profile.Rank) {
			continue
		}
		r.held[b.Code] = true

		res, err := r.tx.InsertUserBadge(ctx, &entity.UserBadge{
			ID:        uuid.New(),
			UserID:    r.profile.UserID,
			BadgeCode: b.Code,
			AwardedAt: r.now,
		})
		if err != nil {
			return err
		}
		if !res.Inserted {
			continue
		}

		r.outcome.BadgesUnlocked = append(r.outcome.BadgesUnlocked, b.Code)
		r.notify(entity.NotificationBadgeUnlocked,
			"Nuovo badge sbloccato! "+b.Icon,
			fmt.Sprintf("Hai ottenuto il badge \"%s\"", b.Name),
			map[string]any{"badge_code": b.Code, "reward_xp": b.RewardXP})
		if b.RewardXP > 0 {
			r.enqueue(pendingGrant{
				source:      entity.SourceBadge,
				amount:      b.RewardXP,
				ref:         b.Code,
				description: "Badge sbloccato: " + b.Name,
				depth:       depth,
			})
		}
	}
	return nil
}

func (r *awardRun) notify(kind, title, message string, data map[string]any) {
	r.notifications = append(r.notifications, entity.Notification{
		ID:        uuid.New(),
		UserID:    r.profile.UserID,
		Type:      kind,
		Title:     strings.TrimSpace(title),
		Message:   message,
		Data:      datatypes.JSONMap(data),
		CreatedAt: r.now,
	})
}

// finish writes the rank-up notification, the profile and every queued
// notification, then fills the outcome totals.
func (r *awardRun) finish(ctx context.Context) error {
	p := r.profile
	rules := r.svc.rules

	if order := rules.RankOrder(p.Rank); order > r.startRank {
		tier, _ := rules.Rank(p.Rank)
		r.notify(entity.NotificationRankUp,
			"Nuovo grado raggiunto! "+tier.Icon,
			fmt.Sprintf("Sei salito al grado %s", tier.Name),
			map[string]any{"rank": tier.Name, "xp_total": p.XPTotal})
	}

	p.LastActivityAt = r.now
	p.UpdatedAt = r.now
	if err := r.tx.SaveProfile(ctx, p); err != nil {
		return err
	}
	for i := range r.notifications {
		if err := r.tx.InsertNotification(ctx, &r.notifications[i]); err != nil {
			return err
		}
	}

	r.outcome.XPTotal = p.XPTotal
	r.outcome.Rank = p.Rank
	r.outcome.StreakDays = p.StreakDays
	if order := rules.RankOrder(p.Rank); order != r.startRank {
		r.outcome.RankChanged = true
		r.outcome.RankNew = p.Rank
	}
	return nil
}
