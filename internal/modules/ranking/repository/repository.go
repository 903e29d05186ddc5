package repository

import (
	"context"
	"errors"

	"anoa.com/campuspulse/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContentRepository interface {
	CreateContent(ctx context.Context, content *entity.Content) error
	FindContent(ctx context.Context, id uuid.UUID) (*entity.Content, error)
	SaveContent(ctx context.Context, content *entity.Content) error
	// ToggleLike flips the (content, user) like membership and reports the
	// resulting state.
	ToggleLike(ctx context.Context, contentID, userID uuid.UUID) (bool, error)
	ContentCounts(ctx context.Context, contentID uuid.UUID) (likes, comments int64, err error)
	TopContentByHotScore(ctx context.Context, scopeID uuid.UUID, limit int) ([]entity.Content, error)

	CreateComment(ctx context.Context, comment *entity.Comment) error
	FindComment(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	SaveComment(ctx context.Context, comment *entity.Comment) error
	ToggleCommentLike(ctx context.Context, commentID, userID uuid.UUID) (bool, error)
	CommentCounts(ctx context.Context, commentID uuid.UUID) (likes, replies int64, err error)
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) CreateContent(ctx context.Context, content *entity.Content) error {
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *contentRepository) FindContent(ctx context.Context, id uuid.UUID) (*entity.Content, error) {
	var content entity.Content
	if err := r.db.WithContext(ctx).First(&content, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) SaveContent(ctx context.Context, content *entity.Content) error {
	return r.db.WithContext(ctx).Save(content).Error
}

func (r *contentRepository) ToggleLike(ctx context.Context, contentID, userID uuid.UUID) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.ContentLike
		err := tx.Where("content_id = ? AND user_id = ?", contentID, userID).First(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			liked = true
			return tx.Create(&entity.ContentLike{ContentID: contentID, UserID: userID}).Error
		default:
			return err
		}
	})
	return liked, err
}

func (r *contentRepository) ContentCounts(ctx context.Context, contentID uuid.UUID) (int64, int64, error) {
	var likes, comments int64
	if err := r.db.WithContext(ctx).Model(&entity.ContentLike{}).
		Where("content_id = ?", contentID).Count(&likes).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&entity.Comment{}).
		Where("content_id = ?", contentID).Count(&comments).Error; err != nil {
		return 0, 0, err
	}
	return likes, comments, nil
}

func (r *contentRepository) TopContentByHotScore(ctx context.Context, scopeID uuid.UUID, limit int) ([]entity.Content, error) {
	var contents []entity.Content
	err := r.db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Order("hot_score DESC").
		Limit(limit).
		Find(&contents).Error
	return contents, err
}

func (r *contentRepository) CreateComment(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *contentRepository) FindComment(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *contentRepository) SaveComment(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

func (r *contentRepository) ToggleCommentLike(ctx context.Context, commentID, userID uuid.UUID) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.CommentLike
		err := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).First(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			liked = true
			return tx.Create(&entity.CommentLike{CommentID: commentID, UserID: userID}).Error
		default:
			return err
		}
	})
	return liked, err
}

func (r *contentRepository) CommentCounts(ctx context.Context, commentID uuid.UUID) (int64, int64, error) {
	var likes, replies int64
	if err := r.db.WithContext(ctx).Model(&entity.CommentLike{}).
		Where("comment_id = ?", commentID).Count(&likes).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&entity.Comment{}).
		Where("parent_id = ?", commentID).Count(&replies).Error; err != nil {
		return 0, 0, err
	}
	return likes, replies, nil
}
