package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"skaila.com/gamification/internal/entity"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/pkg/apperror"
)

// Publisher is the subset of *redis.Client used to fan notifications out to
// downstream delivery services.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)

	// AfterAward publishes notifications written by a committed award.
	AfterAward(ctx context.Context, userID uuid.UUID, notifications []entity.Notification)
}

type notificationService struct {
	repo      repository.NotificationRepository
	publisher Publisher
}

// NewNotificationService accepts a nil publisher, in which case
// notifications are only stored.
func NewNotificationService(repo repository.NotificationRepository, publisher Publisher) NotificationService {
	return &notificationService{
		repo:      repo,
		publisher: publisher,
	}
}

func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("gamification_notifications:%s", userID.String())
}

func (s *notificationService) AfterAward(ctx context.Context, userID uuid.UUID, notifications []entity.Notification) {
	if s.publisher == nil {
		return
	}

	channel := Channel(userID)
	for _, n := range notifications {
		payload, err := json.Marshal(n)
		if err != nil {
			log.Printf("Failed to encode notification %s: %v", n.ID, err)
			continue
		}
		if err := s.publisher.Publish(ctx, channel, payload).Err(); err != nil {
			log.Printf("Failed to publish notification %s to %s: %v", n.ID, channel, err)
		}
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", apperror.ErrInvalidInput)
	}
	notifications, err := s.repo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []entity.Notification{}
	}
	return notifications, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
