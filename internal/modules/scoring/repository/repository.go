package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/campuspulse/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetadataTargetAuthor carries the receiving user of an engagement event
// (the author of the liked/commented content) so receiver-side counters can
// be credited deterministically on both the live path and replay.
const MetadataTargetAuthor = "target_author_id"

type UserPeriodRepository interface {
	// ApplyEvent folds one event into the daily records of the actor and,
	// when the metadata names one, the receiving author. Deterministic, so
	// replaying the log rebuilds identical records.
	ApplyEvent(ctx context.Context, event *entity.DomainEvent) error
	Find(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, error)
	Save(ctx context.Context, record *entity.UserPeriodRecord) error
	// ForDate lists every record touched in the given bucket, for batch
	// finalization at the period boundary.
	ForDate(ctx context.Context, period entity.Period, date time.Time) ([]entity.UserPeriodRecord, error)
	TopByOverall(ctx context.Context, scopeID uuid.UUID, period entity.Period, since time.Time, limit int) ([]entity.UserPeriodRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	TruncateAll(ctx context.Context) error
}

type userPeriodRepository struct {
	db *gorm.DB
}

func NewUserPeriodRepository(db *gorm.DB) UserPeriodRepository {
	return &userPeriodRepository{db: db}
}

// periodDelta is the set of counter increments one event contributes to a
// single user's daily record.
type periodDelta struct {
	Sessions         int64
	PostsCreated     int64
	CommentsCreated  int64
	AnswersProvided  int64
	AIInteractions   int64
	LikesGiven       int64
	LikesReceived    int64
	CommentsReceived int64
	SharesReceived   int64
	FollowersGained  int64
	FollowersLost    int64
}

func (d periodDelta) empty() bool {
	return d == periodDelta{}
}

func actorDelta(t entity.EventType) periodDelta {
	switch t {
	case entity.EventLogin:
		return periodDelta{Sessions: 1}
	case entity.EventPostCreated:
		return periodDelta{PostsCreated: 1}
	case entity.EventCommentCreated:
		return periodDelta{CommentsCreated: 1}
	case entity.EventAnswerProvided:
		return periodDelta{AnswersProvided: 1}
	case entity.EventAIInteraction:
		return periodDelta{AIInteractions: 1}
	case entity.EventLikeGiven:
		return periodDelta{LikesGiven: 1}
	case entity.EventLikeRemoved:
		return periodDelta{LikesGiven: -1}
	}
	return periodDelta{}
}

func receiverDelta(t entity.EventType) periodDelta {
	switch t {
	case entity.EventLikeGiven:
		return periodDelta{LikesReceived: 1}
	case entity.EventLikeRemoved:
		return periodDelta{LikesReceived: -1}
	case entity.EventCommentCreated:
		return periodDelta{CommentsReceived: 1}
	case entity.EventShare:
		return periodDelta{SharesReceived: 1}
	case entity.EventFollow:
		return periodDelta{FollowersGained: 1}
	case entity.EventUnfollow:
		return periodDelta{FollowersLost: 1}
	}
	return periodDelta{}
}

func (r *userPeriodRepository) ApplyEvent(ctx context.Context, event *entity.DomainEvent) error {
	date := entity.BucketStart(entity.PeriodDaily, event.OccurredAt)

	if event.ActorUserID != nil {
		if delta := actorDelta(event.Type); !delta.empty() {
			if err := r.upsertDelta(ctx, *event.ActorUserID, event.ScopeID, date, delta); err != nil {
				return err
			}
		}
	}

	if raw, ok := event.Metadata[MetadataTargetAuthor]; ok {
		if target, err := uuid.Parse(raw); err == nil {
			// Self-engagement credits nothing on the receiving side.
			if event.ActorUserID != nil && target == *event.ActorUserID {
				return nil
			}
			if delta := receiverDelta(event.Type); !delta.empty() {
				if err := r.upsertDelta(ctx, target, event.ScopeID, date, delta); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// upsertDelta is an atomic find-or-create with additive assignments, so
// concurrent bumps on the same (user, period, date) key never lose updates.
func (r *userPeriodRepository) upsertDelta(ctx context.Context, userID, scopeID uuid.UUID, date time.Time, d periodDelta) error {
	record := &entity.UserPeriodRecord{
		UserID:           userID,
		ScopeID:          scopeID,
		Period:           entity.PeriodDaily,
		BucketDate:       date,
		Sessions:         d.Sessions,
		PostsCreated:     d.PostsCreated,
		CommentsCreated:  d.CommentsCreated,
		AnswersProvided:  d.AnswersProvided,
		AIInteractions:   d.AIInteractions,
		LikesGiven:       d.LikesGiven,
		LikesReceived:    d.LikesReceived,
		CommentsReceived: d.CommentsReceived,
		SharesReceived:   d.SharesReceived,
		FollowersGained:  d.FollowersGained,
		FollowersLost:    d.FollowersLost,
	}

	assignments := map[string]interface{}{}
	add := func(column string, delta int64) {
		if delta != 0 {
			assignments[column] = gorm.Expr("user_period_records."+column+" + ?", delta)
		}
	}
	add("sessions", d.Sessions)
	add("posts_created", d.PostsCreated)
	add("comments_created", d.CommentsCreated)
	add("answers_provided", d.AnswersProvided)
	add("ai_interactions", d.AIInteractions)
	add("likes_given", d.LikesGiven)
	add("likes_received", d.LikesReceived)
	add("comments_received", d.CommentsReceived)
	add("shares_received", d.SharesReceived)
	add("followers_gained", d.FollowersGained)
	add("followers_lost", d.FollowersLost)
	assignments["updated_at"] = gorm.Expr("CURRENT_TIMESTAMP")

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "period"}, {Name: "bucket_date"},
		},
		DoUpdates: clause.Assignments(assignments),
	}).Create(record).Error
}

func (r *userPeriodRepository) Find(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, error) {
	var record entity.UserPeriodRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period = ? AND bucket_date = ?", userID, period, date).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *userPeriodRepository) Save(ctx context.Context, record *entity.UserPeriodRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *userPeriodRepository) ForDate(ctx context.Context, period entity.Period, date time.Time) ([]entity.UserPeriodRecord, error) {
	var records []entity.UserPeriodRecord
	err := r.db.WithContext(ctx).
		Where("period = ? AND bucket_date = ?", period, date).
		Find(&records).Error
	return records, err
}

func (r *userPeriodRepository) TopByOverall(ctx context.Context, scopeID uuid.UUID, period entity.Period, since time.Time, limit int) ([]entity.UserPeriodRecord, error) {
	var records []entity.UserPeriodRecord
	// Ties break on the lexicographically smaller user ID for determinism.
	err := r.db.WithContext(ctx).
		Where("scope_id = ? AND period = ? AND bucket_date >= ?", scopeID, period, since).
		Order("score_overall DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *userPeriodRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("bucket_date < ?", cutoff).
		Delete(&entity.UserPeriodRecord{})
	return result.RowsAffected, result.Error
}

func (r *userPeriodRepository) TruncateAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&entity.UserPeriodRecord{}).Error
}
