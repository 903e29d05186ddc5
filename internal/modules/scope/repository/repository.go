package repository

import (
	"context"

	"anoa.com/campuspulse/internal/entity"
	"gorm.io/gorm"
)

type ScopeRepository interface {
	Create(ctx context.Context, college *entity.College) error
	FindBySlug(ctx context.Context, slug string) (*entity.College, error)
	List(ctx context.Context) ([]entity.College, error)
}

type scopeRepository struct {
	db *gorm.DB
}

func NewScopeRepository(db *gorm.DB) ScopeRepository {
	return &scopeRepository{db: db}
}

func (r *scopeRepository) Create(ctx context.Context, college *entity.College) error {
	return r.db.WithContext(ctx).Create(college).Error
}

func (r *scopeRepository) FindBySlug(ctx context.Context, slug string) (*entity.College, error) {
	var college entity.College
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&college).Error; err != nil {
		return nil, err
	}
	return &college, nil
}

func (r *scopeRepository) List(ctx context.Context) ([]entity.College, error) {
	var colleges []entity.College
	err := r.db.WithContext(ctx).Order("name ASC").Find(&colleges).Error
	return colleges, err
}
