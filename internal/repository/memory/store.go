// Package memory is an in-process Store. Transactions are serialized by a
// single mutex and work on a copy of the state that replaces the committed
// state only when the transaction function succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/pkg/apperror"
)

// Fault is consulted before every transactional operation. A non-nil error
// aborts the operation, which lets tests simulate storage failures.
type Fault func(op string) error

type state struct {
	profiles      map[uuid.UUID]entity.UserGamification
	leaderboard   map[uuid.UUID]entity.LeaderboardRow
	ledger        []entity.XPLedgerEntry
	userBadges    []entity.UserBadge
	challenges    map[uuid.UUID]entity.UserChallenge
	powerUps      map[string]entity.PowerUp
	userPowerUps  []entity.UserPowerUp
	events        map[string]entity.Event
	notifications []entity.Notification
	resets        map[string]entity.WindowReset
	nextLedgerID  uint
}

func newState() *state {
	return &state{
		profiles:    map[uuid.UUID]entity.UserGamification{},
		leaderboard: map[uuid.UUID]entity.LeaderboardRow{},
		challenges:  map[uuid.UUID]entity.UserChallenge{},
		powerUps:    map[string]entity.PowerUp{},
		events:      map[string]entity.Event{},
		resets:      map[string]entity.WindowReset{},
	}
}

// clone copies every container. Row values are copied by value; JSON
// columns are replaced, never mutated, by the entity helpers.
func (s *state) clone() *state {
	c := &state{
		profiles:      make(map[uuid.UUID]entity.UserGamification, len(s.profiles)),
		leaderboard:   make(map[uuid.UUID]entity.LeaderboardRow, len(s.leaderboard)),
		ledger:        append([]entity.XPLedgerEntry(nil), s.ledger...),
		userBadges:    append([]entity.UserBadge(nil), s.userBadges...),
		challenges:    make(map[uuid.UUID]entity.UserChallenge, len(s.challenges)),
		powerUps:      make(map[string]entity.PowerUp, len(s.powerUps)),
		userPowerUps:  append([]entity.UserPowerUp(nil), s.userPowerUps...),
		events:        make(map[string]entity.Event, len(s.events)),
		notifications: append([]entity.Notification(nil), s.notifications...),
		resets:        make(map[string]entity.WindowReset, len(s.resets)),
		nextLedgerID:  s.nextLedgerID,
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.leaderboard {
		c.leaderboard[k] = v
	}
	for k, v := range s.challenges {
		c.challenges[k] = v
	}
	for k, v := range s.powerUps {
		c.powerUps[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.resets {
		c.resets[k] = v
	}
	return c
}

var (
	_ repository.Store                  = (*Store)(nil)
	_ repository.Tx                     = (*tx)(nil)
	_ repository.NotificationRepository = (*Notifications)(nil)
)

type Store struct {
	mu    sync.Mutex
	state *state
	fault Fault
}

func New() *Store {
	return &Store{state: newState()}
}

// SetFault installs (or clears, with nil) a fault hook.
func (s *Store) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Seed loads catalog-backed rows that live in storage.
func (s *Store) Seed(powerUps []entity.PowerUp, events []entity.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range powerUps {
		s.state.powerUps[p.Code] = p
	}
	for _, e := range events {
		s.state.events[e.Code] = e
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrStorageUnavailable, err)
	}

	work := s.state.clone()
	if err := fn(&tx{st: work, fault: s.fault}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) FindProfile(ctx context.Context, userID uuid.UUID) (*entity.UserGamification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: no gamification profile for %s", apperror.ErrNotFound, userID)
	}
	return &p, nil
}

func (s *Store) FindLeaderboardRow(ctx context.Context, userID uuid.UUID) (*entity.LeaderboardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.leaderboard[userID]
	if !ok {
		row = entity.LeaderboardRow{UserID: userID}
	}
	return &row, nil
}

// sortedLeaderboard orders rows by window value descending, then user id.
func (s *Store) sortedLeaderboard(window entity.Window) []entity.LeaderboardRow {
	rows := make([]entity.LeaderboardRow, 0, len(s.state.leaderboard))
	for _, r := range s.state.leaderboard {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		vi, vj := rows[i].Value(window), rows[j].Value(window)
		if vi != vj {
			return vi > vj
		}
		return rows[i].UserID.String() < rows[j].UserID.String()
	})
	return rows
}

func (s *Store) TopLeaderboard(ctx context.Context, window entity.Window, limit int) ([]entity.LeaderboardRow, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("%w: unknown window %q", apperror.ErrInvalidInput, window)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.LeaderboardRow
	for _, r := range s.sortedLeaderboard(window) {
		if r.Value(window) <= 0 || len(out) >= limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) LeaderboardPosition(ctx context.Context, userID uuid.UUID, window entity.Window) (int, error) {
	if !window.Valid() {
		return 0, fmt.Errorf("%w: unknown window %q", apperror.ErrInvalidInput, window)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mine, ok := s.state.leaderboard[userID]
	if !ok {
		mine = entity.LeaderboardRow{UserID: userID}
	}
	ahead := 0
	for _, r := range s.state.leaderboard {
		v, mv := r.Value(window), mine.Value(window)
		if v > mv || (v == mv && r.UserID.String() < userID.String()) {
			ahead++
		}
	}
	return ahead + 1, nil
}

func (s *Store) UserBadges(ctx context.Context, userID uuid.UUID) ([]entity.UserBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.UserBadge
	for _, b := range s.state.userBadges {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range s.state.profiles {
		if !p.LastActivityAt.Before(since) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Ledger returns the committed ledger rows of a user in insertion order.
func (s *Store) Ledger(userID uuid.UUID) []entity.XPLedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.XPLedgerEntry
	for _, e := range s.state.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) UserChallenges(userID uuid.UUID) []entity.UserChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.UserChallenge
	for _, c := range s.state.challenges {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotKey < out[j].SlotKey })
	return out
}

// Snapshot is a comparable copy of everything committed.
type Snapshot struct {
	Profiles      map[uuid.UUID]entity.UserGamification
	Leaderboard   map[uuid.UUID]entity.LeaderboardRow
	Ledger        []entity.XPLedgerEntry
	UserBadges    []entity.UserBadge
	Challenges    map[uuid.UUID]entity.UserChallenge
	UserPowerUps  []entity.UserPowerUp
	Notifications []entity.Notification
	Resets        map[string]entity.WindowReset
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.state.clone()
	return Snapshot{
		Profiles:      c.profiles,
		Leaderboard:   c.leaderboard,
		Ledger:        c.ledger,
		UserBadges:    c.userBadges,
		Challenges:    c.challenges,
		UserPowerUps:  c.userPowerUps,
		Notifications: c.notifications,
		Resets:        c.resets,
	}
}
