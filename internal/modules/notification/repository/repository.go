package repository

import (
	"context"

	"anoa.com/campuspulse/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecommendationRepository interface {
	Create(ctx context.Context, rec *entity.Recommendation) error
	Recent(ctx context.Context, scopeID uuid.UUID, limit int) ([]entity.Recommendation, error)
	RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Recommendation, error)
}

type recommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

func (r *recommendationRepository) Create(ctx context.Context, rec *entity.Recommendation) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recommendationRepository) Recent(ctx context.Context, scopeID uuid.UUID, limit int) ([]entity.Recommendation, error) {
	var recs []entity.Recommendation
	err := r.db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

func (r *recommendationRepository) RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Recommendation, error) {
	var recs []entity.Recommendation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
