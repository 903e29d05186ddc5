package jobs

import (
	"context"
	"log"
	"time"

	scoring "anoa.com/campuspulse/internal/modules/scoring/service"
)

// FinalizeJob closes out the previous day's user records shortly after
// midnight UTC, computing scores and retention against the prior day.
type FinalizeJob struct {
	service scoring.Service
}

func NewFinalizeJob(service scoring.Service) *FinalizeJob {
	return &FinalizeJob{service: service}
}

func (j *FinalizeJob) Name() string     { return "scoring_finalize" }
func (j *FinalizeJob) Schedule() string { return "5 0 * * *" }

func (j *FinalizeJob) Run(ctx context.Context) error {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)

	finalized, err := j.service.FinalizeDay(ctx, yesterday)
	if err != nil {
		return err
	}
	log.Printf("🏁 finalized %d user records for %s", finalized, yesterday.Format("2006-01-02"))
	return nil
}
