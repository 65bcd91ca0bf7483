package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/pkg/apperror"
)

// NotificationRepository exposes the notifications committed to the store.
func (s *Store) NotificationRepository() *Notifications {
	return &Notifications{store: s}
}

type Notifications struct {
	store *Store
}

func (n *Notifications) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()

	var mine []entity.Notification
	for _, item := range n.store.state.notifications {
		if item.UserID == userID {
			mine = append(mine, item)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	if offset >= len(mine) {
		return []entity.Notification{}, nil
	}
	end := min(len(mine), offset+limit)
	return mine[offset:end], nil
}

func (n *Notifications) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	for i := range n.store.state.notifications {
		item := &n.store.state.notifications[i]
		if item.ID == id && item.UserID == userID {
			item.IsRead = true
			return nil
		}
	}
	return fmt.Errorf("%w: notification %s", apperror.ErrNotFound, id)
}

func (n *Notifications) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	for i := range n.store.state.notifications {
		if n.store.state.notifications[i].UserID == userID {
			n.store.state.notifications[i].IsRead = true
		}
	}
	return nil
}

func (n *Notifications) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	var count int64
	for _, item := range n.store.state.notifications {
		if item.UserID == userID && !item.IsRead {
			count++
		}
	}
	return count, nil
}
