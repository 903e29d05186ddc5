package jobs

import (
	"context"
	"log"

	rollup "anoa.com/campuspulse/internal/modules/rollup/service"
)

// RollupJob drains the event log into period rollups on a fixed interval.
// The same service backs the admin trigger, so a manual run and a scheduled
// run are indistinguishable.
type RollupJob struct {
	service   rollup.Service
	batchSize int
	schedule  string
}

func NewRollupJob(service rollup.Service, batchSize int, schedule string) *RollupJob {
	return &RollupJob{
		service:   service,
		batchSize: batchSize,
		schedule:  schedule,
	}
}

func (j *RollupJob) Name() string     { return "rollup_batch" }
func (j *RollupJob) Schedule() string { return j.schedule }

func (j *RollupJob) Run(ctx context.Context) error {
	processed, err := j.service.RunBatch(ctx, j.batchSize)
	if err != nil {
		return err
	}
	if processed > 0 {
		log.Printf("📊 rollup batch processed %d events", processed)
	}
	return nil
}
