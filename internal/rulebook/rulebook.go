// Package rulebook holds the immutable rule tables: base XP per action,
// daily caps, rank thresholds, badge predicates, streak bonuses, challenge
// definitions and contextual multipliers.
package rulebook

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gorm.io/datatypes"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/pkg/apperror"
)

// Contextual modifier names understood by the multiplier resolver.
const (
	ModifierWeekend    = "weekend"
	ModifierLateNight  = "late_night"
	ModifierFirstOfDay = "first_of_day"
)

// FlagFirstOfDay is set by callers on the first qualifying action of a day.
const FlagFirstOfDay = "first_of_day"

var knownModifiers = map[string]bool{
	ModifierWeekend:    true,
	ModifierLateNight:  true,
	ModifierFirstOfDay: true,
}

type Rulebook struct {
	actions    map[entity.ActionKind]Action
	caps       map[entity.Source]int64
	ranks      []RankTier
	rankIndex  map[string]int
	streak     map[int]int64
	modifiers  map[string]float64
	badges     []Badge
	challenges map[string]Challenge
	byKind     map[entity.ChallengeKind][]Challenge
	powerUps   []PowerUp
	events     []Event
}

// New validates cat and builds a Rulebook from it.
func New(cat Catalog) (*Rulebook, error) {
	if err := validate(cat); err != nil {
		return nil, err
	}

	r := &Rulebook{
		actions:    cat.Actions,
		caps:       make(map[entity.Source]int64),
		ranks:      append([]RankTier(nil), cat.Ranks...),
		rankIndex:  make(map[string]int, len(cat.Ranks)),
		streak:     make(map[int]int64, len(cat.StreakBonuses)),
		modifiers:  make(map[string]float64, len(cat.Modifiers)),
		badges:     append([]Badge(nil), cat.Badges...),
		challenges: make(map[string]Challenge, len(cat.Challenges)),
		byKind:     make(map[entity.ChallengeKind][]Challenge),
		powerUps:   append([]PowerUp(nil), cat.PowerUps...),
		events:     append([]Event(nil), cat.Events...),
	}
	if r.actions == nil {
		r.actions = map[entity.ActionKind]Action{}
	}
	for src, limit := range cat.Caps {
		if limit != nil {
			r.caps[src] = *limit
		}
	}
	for i, tier := range r.ranks {
		r.rankIndex[tier.Name] = i
	}
	for days, bonus := range cat.StreakBonuses {
		r.streak[days] = bonus
	}
	for name, m := range cat.Modifiers {
		r.modifiers[name] = m
	}
	sort.Slice(r.badges, func(i, j int) bool { return r.badges[i].Code < r.badges[j].Code })
	for _, ch := range cat.Challenges {
		r.challenges[ch.Code] = ch
		if ch.IsActive() {
			r.byKind[ch.Kind] = append(r.byKind[ch.Kind], ch)
		}
	}
	for kind := range r.byKind {
		list := r.byKind[kind]
		sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	}
	return r, nil
}

func validate(cat Catalog) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("catalog: "+format, args...))
	}

	if len(cat.Ranks) == 0 {
		add("at least one rank is required")
	}
	seenRank := map[string]bool{}
	for i, tier := range cat.Ranks {
		if tier.Name == "" {
			add("rank %d has no name", i)
		}
		if seenRank[tier.Name] {
			add("duplicate rank %q", tier.Name)
		}
		seenRank[tier.Name] = true
		if i == 0 && tier.MinXP != 0 {
			add("lowest rank %q must start at 0 XP", tier.Name)
		}
		if i > 0 && tier.MinXP <= cat.Ranks[i-1].MinXP {
			add("rank %q threshold %d must be above %d", tier.Name, tier.MinXP, cat.Ranks[i-1].MinXP)
		}
	}

	for kind, action := range cat.Actions {
		if !action.Source.Valid() {
			add("action %q has unknown source %q", kind, action.Source)
		}
		if action.BaseXP < 0 {
			add("action %q has negative base_xp", kind)
		}
		for _, o := range action.Overrides {
			if len(o.Flags) == 0 || o.BaseXP < 0 {
				add("action %q has an invalid override", kind)
			}
		}
		for flag, bonus := range action.Bonuses {
			if bonus < 0 {
				add("action %q bonus %q is negative", kind, flag)
			}
		}
	}

	for src, limit := range cat.Caps {
		if !src.Valid() {
			add("cap for unknown source %q", src)
		}
		if src.CapExempt() {
			add("source %q is cap exempt and cannot have a cap", src)
		}
		if limit != nil && *limit < 0 {
			add("cap for %q is negative", src)
		}
	}

	for days, bonus := range cat.StreakBonuses {
		if days <= 0 || bonus < 0 {
			add("invalid streak bonus %d -> %d", days, bonus)
		}
	}

	for name, m := range cat.Modifiers {
		if !knownModifiers[name] {
			add("unknown modifier %q", name)
		}
		if m <= 0 {
			add("modifier %q must be positive", name)
		}
	}

	seenBadge := map[string]bool{}
	for _, b := range cat.Badges {
		if b.Code == "" || seenBadge[b.Code] {
			add("badge code %q is empty or duplicated", b.Code)
		}
		seenBadge[b.Code] = true
		if len(b.Predicate.Min) == 0 && b.Predicate.MinRank == "" {
			add("badge %q has an empty predicate", b.Code)
		}
		if b.Predicate.MinRank != "" && !seenRank[b.Predicate.MinRank] {
			add("badge %q requires unknown rank %q", b.Code, b.Predicate.MinRank)
		}
		if b.RewardXP < 0 {
			add("badge %q has negative reward", b.Code)
		}
	}

	seenChallenge := map[string]bool{}
	for _, c := range cat.Challenges {
		if c.Code == "" || seenChallenge[c.Code] {
			add("challenge code %q is empty or duplicated", c.Code)
		}
		seenChallenge[c.Code] = true
		if !c.Kind.Valid() {
			add("challenge %q has unknown kind %q", c.Code, c.Kind)
		}
		if !c.Difficulty.Valid() {
			add("challenge %q has unknown difficulty %q", c.Code, c.Difficulty)
		}
		if len(c.Objectives) == 0 {
			add("challenge %q has no objectives", c.Code)
		}
		for action, n := range c.Objectives {
			if n <= 0 {
				add("challenge %q objective %q must be positive", c.Code, action)
			}
		}
		if c.RewardXP < 0 {
			add("challenge %q has negative reward", c.Code)
		}
	}

	for _, p := range cat.PowerUps {
		if p.Code == "" || p.XPMultiplier <= 0 || p.DurationMinutes < 0 {
			add("invalid power-up %q", p.Code)
		}
	}
	for _, e := range cat.Events {
		if e.Code == "" || e.XPMultiplier <= 0 || !e.EndsAt.After(e.StartsAt) {
			add("invalid event %q", e.Code)
		}
	}

	return errors.Join(errs...)
}

// BaseXP returns the XP for action given the flags set on the request. The
// most specific matching override replaces the base value (the larger one
// on equal specificity), then bonuses of every set flag are added.
func (r *Rulebook) BaseXP(action entity.ActionKind, flags map[string]bool) (int64, error) {
	spec, ok := r.actions[action]
	if !ok {
		return 0, fmt.Errorf("%w: unknown action %q", apperror.ErrInvalidInput, action)
	}

	base := spec.BaseXP
	best := -1
	for i, o := range spec.Overrides {
		if !allSet(o.Flags, flags) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := spec.Overrides[best]
		if len(o.Flags) > len(cur.Flags) || (len(o.Flags) == len(cur.Flags) && o.BaseXP > cur.BaseXP) {
			best = i
		}
	}
	if best >= 0 {
		base = spec.Overrides[best].BaseXP
	}
	for flag, bonus := range spec.Bonuses {
		if flags[flag] {
			base += bonus
		}
	}
	return base, nil
}

func allSet(names []string, flags map[string]bool) bool {
	for _, n := range names {
		if !flags[n] {
			return false
		}
	}
	return true
}

// SourceFor is the ledger source an action is booked under.
func (r *Rulebook) SourceFor(action entity.ActionKind) (entity.Source, bool) {
	spec, ok := r.actions[action]
	return spec.Source, ok
}

// DailyCap returns the daily cap for source; ok is false when uncapped.
func (r *Rulebook) DailyCap(source entity.Source) (limit int64, ok bool) {
	limit, ok = r.caps[source]
	return limit, ok
}

func (r *Rulebook) BaseRank() RankTier { return r.ranks[0] }

func (r *Rulebook) Ranks() []RankTier { return append([]RankTier(nil), r.ranks...) }

// RankOf maps an XP total to the highest rank whose threshold it reaches.
func (r *Rulebook) RankOf(xp int64) RankTier {
	idx := sort.Search(len(r.ranks), func(i int) bool { return r.ranks[i].MinXP > xp }) - 1
	if idx < 0 {
		idx = 0
	}
	return r.ranks[idx]
}

func (r *Rulebook) Rank(name string) (RankTier, bool) {
	idx, ok := r.rankIndex[name]
	if !ok {
		return RankTier{}, false
	}
	return r.ranks[idx], true
}

// RankOrder is the position of a rank in the ladder, -1 when unknown.
func (r *Rulebook) RankOrder(name string) int {
	idx, ok := r.rankIndex[name]
	if !ok {
		return -1
	}
	return idx
}

// XPForNextRank returns the threshold of the rank above name. ok is false
// for the top rank.
func (r *Rulebook) XPForNextRank(name string) (int64, bool) {
	idx, found := r.rankIndex[name]
	if !found || idx+1 >= len(r.ranks) {
		return 0, false
	}
	return r.ranks[idx+1].MinXP, true
}

type RankProgress struct {
	Current  RankTier
	Next     *RankTier
	XPNeeded int64
	Percent  float64
}

// Progress describes how far xp is through its current rank tier.
func (r *Rulebook) Progress(xp int64) RankProgress {
	current := r.RankOf(xp)
	idx := r.rankIndex[current.Name]
	if idx+1 >= len(r.ranks) {
		return RankProgress{Current: current, Percent: 100}
	}
	next := r.ranks[idx+1]
	span := next.MinXP - current.MinXP
	pct := float64(max(0, xp-current.MinXP)) / float64(span) * 100
	return RankProgress{
		Current:  current,
		Next:     &next,
		XPNeeded: next.MinXP - xp,
		Percent:  math.Round(pct*100) / 100,
	}
}

// Badges are returned sorted by code.
func (r *Rulebook) Badges() []Badge { return r.badges }

func (r *Rulebook) Badge(code string) (Badge, bool) {
	for _, b := range r.badges {
		if b.Code == code {
			return b, true
		}
	}
	return Badge{}, false
}

// Qualifies evaluates a badge predicate against profile stats and rank.
func (r *Rulebook) Qualifies(b Badge, stats map[string]int64, rank string) bool {
	for stat, want := range b.Predicate.Min {
		if stats[stat] < want {
			return false
		}
	}
	if b.Predicate.MinRank != "" && r.RankOrder(rank) < r.RankOrder(b.Predicate.MinRank) {
		return false
	}
	return true
}

// StreakBonus pays only on exact milestone days.
func (r *Rulebook) StreakBonus(days int) int64 {
	return r.streak[days]
}

// Challenges lists active challenges of a kind sorted by code.
func (r *Rulebook) Challenges(kind entity.ChallengeKind) []Challenge {
	return r.byKind[kind]
}

func (r *Rulebook) Challenge(code string) (Challenge, bool) {
	c, ok := r.challenges[code]
	return c, ok
}

func (r *Rulebook) Modifier(name string) (float64, bool) {
	m, ok := r.modifiers[name]
	return m, ok
}

// BadgeRows converts the badge catalog into storable rows.
func (r *Rulebook) BadgeRows() []entity.Badge {
	rows := make([]entity.Badge, 0, len(r.badges))
	for _, b := range r.badges {
		rows = append(rows, entity.Badge{
			Code:        b.Code,
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			Rarity:      b.Rarity,
			Predicate:   datatypes.NewJSONType(entity.BadgePredicate{Min: b.Predicate.Min, MinRank: b.Predicate.MinRank}),
			RewardXP:    b.RewardXP,
		})
	}
	return rows
}

func (r *Rulebook) ChallengeRows() []entity.Challenge {
	codes := make([]string, 0, len(r.challenges))
	for code := range r.challenges {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([]entity.Challenge, 0, len(codes))
	for _, code := range codes {
		c := r.challenges[code]
		rows = append(rows, entity.Challenge{
			Code:        c.Code,
			Name:        c.Name,
			Description: c.Description,
			Kind:        c.Kind,
			Difficulty:  c.Difficulty,
			Objectives:  datatypes.NewJSONType(c.Objectives),
			RewardXP:    c.RewardXP,
			Active:      c.IsActive(),
		})
	}
	return rows
}

func (r *Rulebook) PowerUpRows() []entity.PowerUp {
	rows := make([]entity.PowerUp, 0, len(r.powerUps))
	for _, p := range r.powerUps {
		rows = append(rows, entity.PowerUp{
			Code:            p.Code,
			Name:            p.Name,
			Description:     p.Description,
			XPMultiplier:    p.XPMultiplier,
			DurationMinutes: p.DurationMinutes,
			Available:       true,
		})
	}
	return rows
}

func (r *Rulebook) EventRows() []entity.Event {
	rows := make([]entity.Event, 0, len(r.events))
	for _, e := range r.events {
		rows = append(rows, entity.Event{
			Code:         e.Code,
			Name:         e.Name,
			Description:  e.Description,
			XPMultiplier: e.XPMultiplier,
			StartsAt:     e.StartsAt,
			EndsAt:       e.EndsAt,
			Active:       true,
		})
	}
	return rows
}
