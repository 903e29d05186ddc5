package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is the unit the scheduler manages. Jobs with an empty schedule are
// registered on-demand only and run via RunJobByName.
type Job interface {
	// Name returns the unique job name, used for logging and manual triggers.
	Name() string

	// Schedule returns the cron expression (e.g. "5 0 * * *"), or an empty
	// string for on-demand jobs.
	Schedule() string

	// Run executes the job. Context is used for cancellation and timeout.
	Run(ctx context.Context) error
}

// Scheduler schedules and manages the background jobs: draining the event
// log into rollups, finalizing daily scores, and pruning aged-out state.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make([]Job, 0),
	}
}

// RegisterJob adds a job. Jobs with a schedule are wired into cron
// immediately.
func (s *Scheduler) RegisterJob(job Job) {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		log.Printf("📝 [%s] Registered as on-demand job (no schedule)", job.Name())
		return
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(context.Background()); err != nil {
			log.Printf("❌ [%s] Job failed: %v", job.Name(), err)
		}
	})
	if err != nil {
		log.Printf("⚠️ Failed to schedule job %s: %v", job.Name(), err)
	} else {
		log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), schedule)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d registered jobs", len(s.jobs))
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("🛑 Scheduler stopped")
}

// RunJobByName triggers a job manually. Used by the admin endpoints.
func (s *Scheduler) RunJobByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			log.Printf("🎯 [%s] Running on-demand execution...", name)
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("job %q not found", name)
}

func (s *Scheduler) RegisteredJobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
