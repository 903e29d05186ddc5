package repository

import (
	"context"
	"time"

	"anoa.com/campuspulse/internal/entity"
	"anoa.com/campuspulse/pkg/eventlog"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Delta is the set of counter increments destined for one rollup bucket.
// All fields are additive, so folding deltas in any order is equivalent.
type Delta struct {
	Users       entity.UserCounters
	Content     entity.ContentCounters
	Engagement  entity.EngagementCounters
	AI          entity.AICounters
	Academic    entity.AcademicCounters
	Performance entity.PerformanceCounters
	ByType      entity.CountMap
	ByRole      entity.CountMap
}

// Fold accumulates other into d.
func (d *Delta) Fold(other Delta) {
	d.Users.Sessions += other.Users.Sessions
	d.Users.Logins += other.Users.Logins
	d.Users.Logouts += other.Users.Logouts
	d.Users.Follows += other.Users.Follows
	d.Content.PostsCreated += other.Content.PostsCreated
	d.Content.CommentsCreated += other.Content.CommentsCreated
	d.Content.Shares += other.Content.Shares
	d.Content.Saves += other.Content.Saves
	d.Content.Views += other.Content.Views
	d.Engagement.LikesGiven += other.Engagement.LikesGiven
	d.Engagement.LikesRemoved += other.Engagement.LikesRemoved
	d.Engagement.Total += other.Engagement.Total
	d.AI.Interactions += other.AI.Interactions
	d.Academic.AnswersProvided += other.Academic.AnswersProvided
	d.Performance.EventsProcessed += other.Performance.EventsProcessed
	d.ByType.Merge(other.ByType)
	d.ByRole.Merge(other.ByRole)
}

// EntryDelta pairs a delta with the stream entry it came from, so the
// monotonic guard can filter already-applied entries per bucket.
type EntryDelta struct {
	EventStreamID string
	Delta         Delta
}

// BucketUpdate addresses one (scope, period, bucket) key with the entries
// destined for it.
type BucketUpdate struct {
	ScopeID     uuid.UUID
	Period      entity.Period
	BucketStart time.Time
	Entries     []EntryDelta
}

type RollupRepository interface {
	// ApplyBatch folds every update in a single transaction: either all
	// bucket writes commit or none do. Entries at or below a bucket's
	// last_event_id guard are skipped, which makes crash-replay of the same
	// batch a no-op on buckets it already reached.
	ApplyBatch(ctx context.Context, updates []BucketUpdate) error
	Find(ctx context.Context, scopeID uuid.UUID, period entity.Period, bucketStart time.Time) (*entity.ScopePeriodRollup, error)
	Range(ctx context.Context, scopeID uuid.UUID, period entity.Period, start, end time.Time) ([]entity.ScopePeriodRollup, error)
	UpdateInsights(ctx context.Context, id uuid.UUID, insights entity.Insights) error
	DeleteOlderThan(ctx context.Context, period entity.Period, cutoff time.Time) (int64, error)
	TruncateAll(ctx context.Context) error
}

type rollupRepository struct {
	db *gorm.DB
}

func NewRollupRepository(db *gorm.DB) RollupRepository {
	return &rollupRepository{db: db}
}

func (r *rollupRepository) ApplyBatch(ctx context.Context, updates []BucketUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			if err := applyBucket(tx, update); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyBucket(tx *gorm.DB, update BucketUpdate) error {
	// Atomic find-or-create: two concurrent first-touches of a new bucket
	// resolve to one row, the loser of the insert race proceeds as an update.
	seed := &entity.ScopePeriodRollup{
		ScopeID:     update.ScopeID,
		Period:      update.Period,
		BucketStart: update.BucketStart,
		ByType:      entity.CountMap{},
		ByRole:      entity.CountMap{},
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "scope_id"}, {Name: "period"}, {Name: "bucket_start"},
		},
		DoNothing: true,
	}).Create(seed).Error; err != nil {
		return err
	}

	var rollup entity.ScopePeriodRollup
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope_id = ? AND period = ? AND bucket_start = ?",
			update.ScopeID, update.Period, update.BucketStart).
		First(&rollup).Error; err != nil {
		return err
	}

	var combined Delta
	maxID := rollup.LastEventID
	applied := false
	for _, entry := range update.Entries {
		// Monotonic offset guard: anything at or below the recorded stream
		// position was folded by a previous (possibly crashed) run.
		if eventlog.CompareIDs(entry.EventStreamID, rollup.LastEventID) <= 0 {
			continue
		}
		combined.Fold(entry.Delta)
		if eventlog.CompareIDs(entry.EventStreamID, maxID) > 0 {
			maxID = entry.EventStreamID
		}
		applied = true
	}
	if !applied {
		return nil
	}

	rollup.Users.Sessions += combined.Users.Sessions
	rollup.Users.Logins += combined.Users.Logins
	rollup.Users.Logouts += combined.Users.Logouts
	rollup.Users.Follows += combined.Users.Follows
	rollup.Content.PostsCreated += combined.Content.PostsCreated
	rollup.Content.CommentsCreated += combined.Content.CommentsCreated
	rollup.Content.Shares += combined.Content.Shares
	rollup.Content.Saves += combined.Content.Saves
	rollup.Content.Views += combined.Content.Views
	rollup.Engagement.LikesGiven += combined.Engagement.LikesGiven
	rollup.Engagement.LikesRemoved += combined.Engagement.LikesRemoved
	rollup.Engagement.Total += combined.Engagement.Total
	rollup.AI.Interactions += combined.AI.Interactions
	rollup.Academic.AnswersProvided += combined.Academic.AnswersProvided
	rollup.Performance.EventsProcessed += combined.Performance.EventsProcessed
	rollup.ByType.Merge(combined.ByType)
	rollup.ByRole.Merge(combined.ByRole)
	rollup.LastEventID = maxID

	return tx.Save(&rollup).Error
}

func (r *rollupRepository) Find(ctx context.Context, scopeID uuid.UUID, period entity.Period, bucketStart time.Time) (*entity.ScopePeriodRollup, error) {
	var rollup entity.ScopePeriodRollup
	err := r.db.WithContext(ctx).
		Where("scope_id = ? AND period = ? AND bucket_start = ?", scopeID, period, bucketStart).
		First(&rollup).Error
	if err != nil {
		return nil, err
	}
	return &rollup, nil
}

func (r *rollupRepository) Range(ctx context.Context, scopeID uuid.UUID, period entity.Period, start, end time.Time) ([]entity.ScopePeriodRollup, error) {
	var rollups []entity.ScopePeriodRollup
	err := r.db.WithContext(ctx).
		Where("scope_id = ? AND period = ? AND bucket_start >= ? AND bucket_start <= ?",
			scopeID, period, start, end).
		Order("bucket_start ASC").
		Find(&rollups).Error
	return rollups, err
}

func (r *rollupRepository) UpdateInsights(ctx context.Context, id uuid.UUID, insights entity.Insights) error {
	return r.db.WithContext(ctx).
		Model(&entity.ScopePeriodRollup{}).
		Where("id = ?", id).
		Update("insights", insights).Error
}

func (r *rollupRepository) DeleteOlderThan(ctx context.Context, period entity.Period, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("period = ? AND bucket_start < ?", period, cutoff).
		Delete(&entity.ScopePeriodRollup{})
	return result.RowsAffected, result.Error
}

func (r *rollupRepository) TruncateAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&entity.ScopePeriodRollup{}).Error
}
