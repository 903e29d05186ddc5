package jobs

import (
	"context"
	"log"
	"time"

	"anoa.com/campuspulse/internal/entity"
	rollupRepo "anoa.com/campuspulse/internal/modules/rollup/repository"
	scoringRepo "anoa.com/campuspulse/internal/modules/scoring/repository"
)

// Retention windows per period. Monthly and yearly rollups are kept
// indefinitely.
var rollupRetention = map[entity.Period]time.Duration{
	entity.PeriodHourly: 7 * 24 * time.Hour,
	entity.PeriodDaily:  90 * 24 * time.Hour,
	entity.PeriodWeekly: 365 * 24 * time.Hour,
}

const userRecordRetention = 180 * 24 * time.Hour

// RetentionJob deletes rollups and user records past their retention window.
// Runs nightly, off-peak.
type RetentionJob struct {
	rollups     rollupRepo.RollupRepository
	userPeriods scoringRepo.UserPeriodRepository
}

func NewRetentionJob(rollups rollupRepo.RollupRepository, userPeriods scoringRepo.UserPeriodRepository) *RetentionJob {
	return &RetentionJob{
		rollups:     rollups,
		userPeriods: userPeriods,
	}
}

func (j *RetentionJob) Name() string     { return "retention_cleanup" }
func (j *RetentionJob) Schedule() string { return "30 3 * * *" }

func (j *RetentionJob) Run(ctx context.Context) error {
	now := time.Now().UTC()

	for period, window := range rollupRetention {
		deleted, err := j.rollups.DeleteOlderThan(ctx, period, now.Add(-window))
		if err != nil {
			return err
		}
		if deleted > 0 {
			log.Printf("🧹 retention: deleted %d %s rollups", deleted, period)
		}
	}

	deleted, err := j.userPeriods.DeleteOlderThan(ctx, now.Add(-userRecordRetention))
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Printf("🧹 retention: deleted %d user period records", deleted)
	}

	return nil
}
