package scoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"anoa.com/campuspulse/internal/entity"
	notifService "anoa.com/campuspulse/internal/modules/notification/service"
	"anoa.com/campuspulse/internal/modules/scoring/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChurnAlertThreshold is the risk level above which a retention
// recommendation is emitted.
const ChurnAlertThreshold = 70

// NeutralChurnRisk is the conservative default when no history exists.
const NeutralChurnRisk = 50

type Service interface {
	// Finalize computes and persists the derived scores for one record.
	// Deterministic and idempotent: re-finalizing the same counters yields
	// the same scores.
	Finalize(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, error)

	// Snapshot computes the derived fields without persisting, so "my
	// stats" reads mid-period reflect current counters.
	Snapshot(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, error)

	// FinalizeDay finalizes every record touched in the given daily bucket.
	FinalizeDay(ctx context.Context, date time.Time) (int, error)
}

type service struct {
	repo     repository.UserPeriodRepository
	notifier notifService.NotificationService
}

func NewService(repo repository.UserPeriodRepository, notifier notifService.NotificationService) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
	}
}

// ComputeScores derives the five behavioral scores and the retention block
// from a record's raw counters plus the immediately preceding period's
// record (nil when none exists). Pure: no clock, no store access. Values
// stay unrounded floats; rounding is a presentation concern.
func ComputeScores(rec *entity.UserPeriodRecord, prior *entity.UserPeriodRecord) (entity.ScoreSet, entity.RetentionSet) {
	var scores entity.ScoreSet

	scores.Engagement = clamp(float64(rec.Sessions)*5 + float64(rec.PostsCreated)*10 + float64(rec.LikesGiven)*2)
	scores.Contribution = clamp(float64(rec.PostsCreated)*15 + float64(rec.CommentsCreated)*5 + float64(rec.AnswersProvided)*10)

	posts := float64(rec.PostsCreated)
	if posts < 1 {
		posts = 1
	}
	received := float64(rec.LikesReceived + rec.CommentsReceived)
	scores.Influence = clamp(float64(rec.Followers)*0.3 + received/posts*0.7)
	scores.Quality = clamp(float64(rec.LikesReceived) / posts * 100)

	scores.Overall = 0.25*scores.Engagement + 0.30*scores.Contribution + 0.25*scores.Influence + 0.20*scores.Quality

	var retention entity.RetentionSet
	if prior == nil {
		retention.Streak = 1
		retention.Retained = true
		retention.ChurnRisk = NeutralChurnRisk
	} else {
		retention.Retained = rec.Sessions > 0
		if retention.Retained {
			retention.Streak = prior.Retention.Streak + 1
		} else {
			retention.Streak = 1
		}
		// Crude activity-drop heuristic, intentionally simple.
		retention.ChurnRisk = clamp(float64(prior.Sessions-rec.Sessions) * 10)
	}
	retention.LoyaltyScore = clamp(float64(retention.Streak)*5 + scores.Overall*0.5)

	return scores, retention
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func (s *service) Finalize(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, error) {
	record, prior, err := s.loadPair(ctx, userID, period, date)
	if err != nil {
		return nil, err
	}

	record.Scores, record.Retention = ComputeScores(record, prior)
	now := time.Now().UTC()
	record.FinalizedAt = &now

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}

	if record.Retention.ChurnRisk > ChurnAlertThreshold {
		s.emitChurnAlert(ctx, record)
	}

	return record, nil
}

func (s *service) Snapshot(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, error) {
	record, prior, err := s.loadPair(ctx, userID, period, date)
	if err != nil {
		return nil, err
	}

	record.Scores, record.Retention = ComputeScores(record, prior)
	return record, nil
}

func (s *service) loadPair(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, *entity.UserPeriodRecord, error) {
	bucket := entity.BucketStart(period, date)

	record, err := s.repo.Find(ctx, userID, period, bucket)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		record = nil
	}

	prior, err := s.repo.Find(ctx, userID, period, entity.PrevBucketStart(period, date))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		prior = nil
	}

	// A user with no activity in the bucket has no row yet. Score the
	// period as all zeros instead of failing the read.
	if record == nil {
		record = &entity.UserPeriodRecord{
			UserID:     userID,
			Period:     period,
			BucketDate: bucket,
		}
		if prior != nil {
			record.ScopeID = prior.ScopeID
		}
	}

	return record, prior, nil
}

func (s *service) FinalizeDay(ctx context.Context, date time.Time) (int, error) {
	bucket := entity.BucketStart(entity.PeriodDaily, date)

	records, err := s.repo.ForDate(ctx, entity.PeriodDaily, bucket)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for i := range records {
		if _, err := s.Finalize(ctx, records[i].UserID, entity.PeriodDaily, bucket); err != nil {
			log.Printf("finalize user %s failed: %v", records[i].UserID, err)
			continue
		}
		finalized++
	}

	return finalized, nil
}

func (s *service) emitChurnAlert(ctx context.Context, record *entity.UserPeriodRecord) {
	if s.notifier == nil {
		return
	}

	userID := record.UserID
	rec := &entity.Recommendation{
		ScopeID:  record.ScopeID,
		UserID:   &userID,
		Type:     entity.RecommendationChurnRisk,
		Priority: entity.PriorityHigh,
		Message: fmt.Sprintf("churn risk %.0f for user %s (streak %d, sessions %d)",
			record.Retention.ChurnRisk, userID, record.Retention.Streak, record.Sessions),
		Action: "send_reengagement_nudge",
	}
	if err := s.notifier.Emit(ctx, rec); err != nil {
		log.Printf("churn recommendation emit failed: %v", err)
	}
}
