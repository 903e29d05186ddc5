package rollup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"anoa.com/campuspulse/internal/entity"
	notifService "anoa.com/campuspulse/internal/modules/notification/service"
	"anoa.com/campuspulse/internal/modules/rollup/repository"
	scoringRepo "anoa.com/campuspulse/internal/modules/scoring/repository"
	"anoa.com/campuspulse/pkg/counterstore"
	"anoa.com/campuspulse/pkg/eventlog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnomalyThreshold is the relative period-over-period swing that flags a
// metric as anomalous.
const AnomalyThreshold = 0.5

const trendingLimit = 5

type Service interface {
	// RunBatch drains up to maxEntries unacknowledged log entries, folds
	// them into every period granularity, recomputes insights for touched
	// buckets and acknowledges only after the rollup writes committed.
	RunBatch(ctx context.Context, maxEntries int) (int, error)

	// Rebuild is the disaster-recovery path: it truncates all derived state
	// and replays the retained log from the start through both the scope
	// fold and the per-user fold, without acknowledging anything.
	Rebuild(ctx context.Context) error
}

type service struct {
	repo     repository.RollupRepository
	userRepo scoringRepo.UserPeriodRepository
	log      eventlog.EventLog
	counters counterstore.CounterStore
	notifier notifService.NotificationService
	stream   string
}

func NewService(
	repo repository.RollupRepository,
	userRepo scoringRepo.UserPeriodRepository,
	eventLog eventlog.EventLog,
	counters counterstore.CounterStore,
	notifier notifService.NotificationService,
	stream string,
) Service {
	return &service{
		repo:     repo,
		userRepo: userRepo,
		log:      eventLog,
		counters: counters,
		notifier: notifier,
		stream:   stream,
	}
}

type bucketKey struct {
	ScopeID     uuid.UUID
	Period      entity.Period
	BucketStart int64
}

func (s *service) RunBatch(ctx context.Context, maxEntries int) (int, error) {
	entries, err := s.log.ReadFrom(ctx, s.stream, "", int64(maxEntries))
	if err != nil {
		return 0, fmt.Errorf("read event log: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	updates := map[bucketKey]*repository.BucketUpdate{}
	ackIDs := make([]string, 0, len(entries))
	processed := 0

	for _, entry := range entries {
		ackIDs = append(ackIDs, entry.ID)

		event, err := entity.ParseEvent(entry.Values)
		if err != nil {
			// Poison entries are acked with the batch, never reprocessed.
			log.Printf("skipping malformed log entry %s: %v", entry.ID, err)
			continue
		}

		delta := deltaForEvent(event)
		for _, period := range entity.RollupPeriods {
			key := bucketKey{
				ScopeID:     event.ScopeID,
				Period:      period,
				BucketStart: entity.BucketStart(period, event.OccurredAt).Unix(),
			}
			update, ok := updates[key]
			if !ok {
				update = &repository.BucketUpdate{
					ScopeID:     event.ScopeID,
					Period:      period,
					BucketStart: entity.BucketStart(period, event.OccurredAt),
				}
				updates[key] = update
			}
			update.Entries = append(update.Entries, repository.EntryDelta{
				EventStreamID: entry.ID,
				Delta:         delta,
			})
		}
		processed++
	}

	flat := make([]repository.BucketUpdate, 0, len(updates))
	for _, update := range updates {
		flat = append(flat, *update)
	}

	// A write failure aborts the whole batch without acknowledging anything:
	// the next run re-reads the same entries and the per-bucket offset guard
	// turns the replay into a no-op where it already landed.
	if err := s.repo.ApplyBatch(ctx, flat); err != nil {
		return 0, fmt.Errorf("apply rollup batch: %w", err)
	}

	s.recomputeInsights(ctx, flat)

	if err := s.log.Ack(ctx, s.stream, ackIDs...); err != nil {
		// Rollups committed but the ack failed; the guard absorbs the
		// resulting redelivery.
		log.Printf("ack failed for %d entries: %v", len(ackIDs), err)
	}

	return processed, nil
}

// deltaForEvent maps one event onto the counter increments it contributes to
// its buckets.
func deltaForEvent(event *entity.DomainEvent) repository.Delta {
	var d repository.Delta

	d.Performance.EventsProcessed = 1
	d.ByType = entity.CountMap{string(event.Type): 1}
	if role, ok := event.Metadata["role"]; ok && role != "" {
		d.ByRole = entity.CountMap{role: 1}
	}

	switch event.Type {
	case entity.EventLogin:
		d.Users.Sessions = 1
		d.Users.Logins = 1
	case entity.EventLogout:
		d.Users.Logouts = 1
	case entity.EventFollow:
		d.Users.Follows = 1
	case entity.EventPostCreated:
		d.Content.PostsCreated = 1
	case entity.EventCommentCreated:
		d.Content.CommentsCreated = 1
		d.Engagement.Total = 1
	case entity.EventShare:
		d.Content.Shares = 1
		d.Engagement.Total = 1
	case entity.EventSave:
		d.Content.Saves = 1
		d.Engagement.Total = 1
	case entity.EventView:
		d.Content.Views = 1
	case entity.EventLikeGiven:
		d.Engagement.LikesGiven = 1
		d.Engagement.Total = 1
	case entity.EventLikeRemoved:
		d.Engagement.LikesRemoved = 1
	case entity.EventAIInteraction:
		d.AI.Interactions = 1
	case entity.EventAnswerProvided:
		d.Academic.AnswersProvided = 1
	}

	return d
}

// recomputeInsights rebuilds the derived insights block for every touched
// bucket. Best-effort: insights are recomputed again on the next fold, so a
// failure here never holds back the batch.
func (s *service) recomputeInsights(ctx context.Context, updates []repository.BucketUpdate) {
	for _, update := range updates {
		rollup, err := s.repo.Find(ctx, update.ScopeID, update.Period, update.BucketStart)
		if err != nil {
			log.Printf("insights: load rollup %s/%s: %v", update.ScopeID, update.Period, err)
			continue
		}

		insights := entity.Insights{}

		if s.counters != nil {
			members, err := s.counters.RangeByScoreDesc(ctx, counterstore.KeyPopularContent(update.ScopeID.String()), 0, trendingLimit)
			if err == nil {
				for _, m := range members {
					insights.Trending = append(insights.Trending, entity.TrendingItem{
						ContentID: m.Member,
						Score:     m.Score,
					})
				}
			}
		}

		prev, err := s.repo.Find(ctx, update.ScopeID, update.Period, entity.PrevBucketStart(update.Period, update.BucketStart))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("insights: load previous bucket: %v", err)
		}
		if prev != nil {
			insights.Anomalies = detectAnomalies(prev, rollup)
			insights.ProjectedSessions = projectSessions(prev, rollup)

			for _, anomaly := range insights.Anomalies {
				s.emitAnomaly(ctx, update.ScopeID, update.Period, anomaly)
			}
		}

		if err := s.repo.UpdateInsights(ctx, rollup.ID, insights); err != nil {
			log.Printf("insights: save: %v", err)
		}
	}
}

// detectAnomalies compares the bucket against its predecessor and flags any
// tracked metric whose relative swing exceeds the threshold.
func detectAnomalies(prev, current *entity.ScopePeriodRollup) []entity.Anomaly {
	checks := []struct {
		metric   string
		previous float64
		current  float64
	}{
		{"users.sessions", float64(prev.Users.Sessions), float64(current.Users.Sessions)},
		{"engagement.total", float64(prev.Engagement.Total), float64(current.Engagement.Total)},
	}

	var anomalies []entity.Anomaly
	now := time.Now().UTC()
	for _, check := range checks {
		if check.previous == 0 {
			continue
		}
		change := (check.current - check.previous) / check.previous
		if change > AnomalyThreshold || change < -AnomalyThreshold {
			anomalies = append(anomalies, entity.Anomaly{
				Metric:     check.metric,
				Previous:   check.previous,
				Current:    check.current,
				ChangePct:  change * 100,
				DetectedAt: now,
			})
		}
	}
	return anomalies
}

// projectSessions is a naive one-step linear projection from the last two
// buckets. A crude heuristic, kept deliberately simple.
func projectSessions(prev, current *entity.ScopePeriodRollup) float64 {
	projected := float64(current.Users.Sessions) + (float64(current.Users.Sessions) - float64(prev.Users.Sessions))
	if projected < 0 {
		return 0
	}
	return projected
}

func (s *service) emitAnomaly(ctx context.Context, scopeID uuid.UUID, period entity.Period, anomaly entity.Anomaly) {
	if s.notifier == nil {
		return
	}
	// Hourly swings are noisy; only daily and coarser buckets alert.
	if period == entity.PeriodHourly {
		return
	}

	direction := "surged"
	priority := entity.PriorityLow
	if anomaly.Current < anomaly.Previous {
		direction = "dropped"
		priority = entity.PriorityHigh
	}

	rec := &entity.Recommendation{
		ScopeID:  scopeID,
		Type:     entity.RecommendationAnomaly,
		Priority: priority,
		Message: fmt.Sprintf("%s %s %.0f%% (%s: %.0f -> %.0f)",
			anomaly.Metric, direction, anomaly.ChangePct, period, anomaly.Previous, anomaly.Current),
		Action: "review_engagement",
	}
	if err := s.notifier.Emit(ctx, rec); err != nil {
		log.Printf("anomaly recommendation emit failed: %v", err)
	}
}

func (s *service) Rebuild(ctx context.Context) error {
	log.Println("🧹 Rebuilding derived state from the event log...")

	if err := s.repo.TruncateAll(ctx); err != nil {
		return fmt.Errorf("truncate rollups: %w", err)
	}
	if err := s.userRepo.TruncateAll(ctx); err != nil {
		return fmt.Errorf("truncate user period records: %w", err)
	}

	const chunk = 500
	cursor := ""
	total := 0

	for {
		entries, err := s.log.ReadFrom(ctx, s.stream, cursor, chunk)
		if err != nil {
			return fmt.Errorf("replay read: %w", err)
		}
		if len(entries) == 0 {
			break
		}

		updates := map[bucketKey]*repository.BucketUpdate{}
		for _, entry := range entries {
			cursor = entry.ID

			event, err := entity.ParseEvent(entry.Values)
			if err != nil {
				log.Printf("replay: skipping malformed entry %s: %v", entry.ID, err)
				continue
			}

			// The live path bumps user records at ingest; replay is the one
			// place the aggregator rebuilds them too.
			if err := s.userRepo.ApplyEvent(ctx, event); err != nil {
				return fmt.Errorf("replay user fold: %w", err)
			}

			delta := deltaForEvent(event)
			for _, period := range entity.RollupPeriods {
				key := bucketKey{
					ScopeID:     event.ScopeID,
					Period:      period,
					BucketStart: entity.BucketStart(period, event.OccurredAt).Unix(),
				}
				update, ok := updates[key]
				if !ok {
					update = &repository.BucketUpdate{
						ScopeID:     event.ScopeID,
						Period:      period,
						BucketStart: entity.BucketStart(period, event.OccurredAt),
					}
					updates[key] = update
				}
				update.Entries = append(update.Entries, repository.EntryDelta{
					EventStreamID: entry.ID,
					Delta:         delta,
				})
			}
			total++
		}

		flat := make([]repository.BucketUpdate, 0, len(updates))
		for _, update := range updates {
			flat = append(flat, *update)
		}
		if err := s.repo.ApplyBatch(ctx, flat); err != nil {
			return fmt.Errorf("replay fold: %w", err)
		}
	}

	log.Printf("✅ Rebuild complete, %d events replayed", total)
	return nil
}
