package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"anoa.com/campuspulse/internal/entity"
	notifRepo "anoa.com/campuspulse/internal/modules/notification/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChannelFor is the Redis pub/sub channel the dashboard feed and the external
// notification subsystem subscribe to, per scope.
func ChannelFor(scopeID uuid.UUID) string {
	return fmt.Sprintf("recommendations:%s", scopeID)
}

type NotificationService interface {
	// Emit persists the recommendation and publishes it fire-and-forget.
	// Nothing in the pipeline waits on delivery.
	Emit(ctx context.Context, rec *entity.Recommendation) error
	Recent(ctx context.Context, scopeID uuid.UUID, limit int) ([]entity.Recommendation, error)
	RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Recommendation, error)
}

type notificationService struct {
	repo        notifRepo.RecommendationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.RecommendationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

func (s *notificationService) Emit(ctx context.Context, rec *entity.Recommendation) error {
	if err := s.repo.Create(ctx, rec); err != nil {
		return err
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(rec)
		if err == nil {
			if err := s.redisClient.Publish(ctx, ChannelFor(rec.ScopeID), payload).Err(); err != nil {
				// Delivery is best-effort; the durable row is the record.
				log.Printf("recommendation publish failed: %v", err)
			}
		}
	}

	return nil
}

func (s *notificationService) Recent(ctx context.Context, scopeID uuid.UUID, limit int) ([]entity.Recommendation, error) {
	return s.repo.Recent(ctx, scopeID, limit)
}

func (s *notificationService) RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Recommendation, error) {
	return s.repo.RecentForUser(ctx, userID, limit)
}
