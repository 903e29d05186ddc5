package jobs

import (
	"context"
	"time"

	scopeRepo "anoa.com/campuspulse/internal/modules/scope/repository"
	"anoa.com/campuspulse/pkg/counterstore"
)

// PruneJob trims expired members out of the per-scope active-user sets so
// the live dashboard's cardinality reads stay cheap. Members are scored by
// last-seen unix time; anything older than the window can go.
type PruneJob struct {
	counters counterstore.CounterStore
	scopes   scopeRepo.ScopeRepository
	window   time.Duration
}

func NewPruneJob(counters counterstore.CounterStore, scopes scopeRepo.ScopeRepository, window time.Duration) *PruneJob {
	return &PruneJob{
		counters: counters,
		scopes:   scopes,
		window:   window,
	}
}

func (j *PruneJob) Name() string     { return "active_user_prune" }
func (j *PruneJob) Schedule() string { return "15 * * * *" }

func (j *PruneJob) Run(ctx context.Context) error {
	colleges, err := j.scopes.List(ctx)
	if err != nil {
		return err
	}

	cutoff := float64(time.Now().UTC().Add(-j.window).Unix())
	for _, college := range colleges {
		key := counterstore.KeyActiveUsers(college.ID.String())
		if err := j.counters.PruneByScore(ctx, key, cutoff); err != nil {
			return err
		}
	}
	return nil
}
