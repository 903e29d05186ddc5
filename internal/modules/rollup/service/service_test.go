package rollup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"anoa.com/campuspulse/internal/entity"
	"anoa.com/campuspulse/internal/modules/rollup/repository"
	"anoa.com/campuspulse/pkg/eventlog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeLog struct {
	mu      sync.Mutex
	entries []eventlog.Entry
	ackErr  error
}

func (f *fakeLog) Append(ctx context.Context, streamKey string, fields map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("%d-%d", len(f.entries)+1, 0)
	f.entries = append(f.entries, eventlog.Entry{ID: id, Values: fields})
	return id, nil
}

func (f *fakeLog) ReadFrom(ctx context.Context, streamKey, afterID string, maxCount int64) ([]eventlog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []eventlog.Entry
	for _, e := range f.entries {
		if afterID != "" && eventlog.CompareIDs(e.ID, afterID) <= 0 {
			continue
		}
		out = append(out, e)
		if int64(len(out)) >= maxCount {
			break
		}
	}
	return out, nil
}

func (f *fakeLog) Ack(ctx context.Context, streamKey string, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErr != nil {
		return f.ackErr
	}
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.entries[:0]
	for _, e := range f.entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return nil
}

func (f *fakeLog) Len(ctx context.Context, streamKey string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

type rollupKey struct {
	ScopeID     uuid.UUID
	Period      entity.Period
	BucketStart int64
}

// memRollupRepo folds updates in memory with the same monotonic entry-ID
// guard the store enforces.
type memRollupRepo struct {
	mu       sync.Mutex
	buckets  map[rollupKey]*entity.ScopePeriodRollup
	applyErr error
}

func newMemRollupRepo() *memRollupRepo {
	return &memRollupRepo{buckets: map[rollupKey]*entity.ScopePeriodRollup{}}
}

func (m *memRollupRepo) ApplyBatch(ctx context.Context, updates []repository.BucketUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}

	for _, update := range updates {
		key := rollupKey{update.ScopeID, update.Period, update.BucketStart.Unix()}
		rollup, ok := m.buckets[key]
		if !ok {
			rollup = &entity.ScopePeriodRollup{
				ID:          uuid.New(),
				ScopeID:     update.ScopeID,
				Period:      update.Period,
				BucketStart: update.BucketStart,
			}
			m.buckets[key] = rollup
		}

		for _, entry := range update.Entries {
			if eventlog.CompareIDs(entry.EventStreamID, rollup.LastEventID) <= 0 {
				continue
			}
			rollup.Users.Sessions += entry.Delta.Users.Sessions
			rollup.Users.Logins += entry.Delta.Users.Logins
			rollup.Content.PostsCreated += entry.Delta.Content.PostsCreated
			rollup.Engagement.LikesGiven += entry.Delta.Engagement.LikesGiven
			rollup.Engagement.Total += entry.Delta.Engagement.Total
			rollup.Performance.EventsProcessed += entry.Delta.Performance.EventsProcessed
			rollup.LastEventID = entry.EventStreamID
		}
	}
	return nil
}

func (m *memRollupRepo) Find(ctx context.Context, scopeID uuid.UUID, period entity.Period, bucketStart time.Time) (*entity.ScopePeriodRollup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rollup, ok := m.buckets[rollupKey{scopeID, period, bucketStart.Unix()}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rollup, nil
}

func (m *memRollupRepo) Range(ctx context.Context, scopeID uuid.UUID, period entity.Period, start, end time.Time) ([]entity.ScopePeriodRollup, error) {
	return nil, nil
}

func (m *memRollupRepo) UpdateInsights(ctx context.Context, id uuid.UUID, insights entity.Insights) error {
	return nil
}

func (m *memRollupRepo) DeleteOlderThan(ctx context.Context, period entity.Period, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *memRollupRepo) TruncateAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets = map[rollupKey]*entity.ScopePeriodRollup{}
	return nil
}

type memUserRepo struct {
	mu        sync.Mutex
	applied   []*entity.DomainEvent
	truncated bool
}

func (m *memUserRepo) ApplyEvent(ctx context.Context, event *entity.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, event)
	return nil
}

func (m *memUserRepo) Find(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserRepo) Save(ctx context.Context, record *entity.UserPeriodRecord) error { return nil }

func (m *memUserRepo) ForDate(ctx context.Context, period entity.Period, date time.Time) ([]entity.UserPeriodRecord, error) {
	return nil, nil
}

func (m *memUserRepo) TopByOverall(ctx context.Context, scopeID uuid.UUID, period entity.Period, since time.Time, limit int) ([]entity.UserPeriodRecord, error) {
	return nil, nil
}

func (m *memUserRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *memUserRepo) TruncateAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truncated = true
	m.applied = nil
	return nil
}

func appendEvent(log *fakeLog, eventType entity.EventType, scopeID uuid.UUID, at time.Time) {
	event := &entity.DomainEvent{
		EventID:    uuid.New(),
		Type:       eventType,
		ScopeID:    scopeID,
		OccurredAt: at,
	}
	_, _ = log.Append(context.Background(), "events:test", event.Fields())
}

func TestRunBatchFoldsAllPeriods(t *testing.T) {
	log := &fakeLog{}
	repo := newMemRollupRepo()
	users := &memUserRepo{}
	scopeID := uuid.New()
	at := time.Date(2026, 3, 18, 14, 30, 0, 0, time.UTC)

	appendEvent(log, entity.EventLogin, scopeID, at)
	appendEvent(log, entity.EventLogin, scopeID, at.Add(time.Minute))

	svc := NewService(repo, users, log, nil, nil, "events:test")

	processed, err := svc.RunBatch(context.Background(), 100)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if processed != 2 {
		t.Errorf("processed = %d, want 2", processed)
	}

	for _, period := range entity.RollupPeriods {
		rollup, err := repo.Find(context.Background(), scopeID, period, entity.BucketStart(period, at))
		if err != nil {
			t.Fatalf("%s bucket missing: %v", period, err)
		}
		if rollup.Users.Sessions != 2 {
			t.Errorf("%s sessions = %d, want 2", period, rollup.Users.Sessions)
		}
		if rollup.Performance.EventsProcessed != 2 {
			t.Errorf("%s events processed = %d, want 2", period, rollup.Performance.EventsProcessed)
		}
	}

	// All entries acked after commit.
	if n, _ := log.Len(context.Background(), "events:test"); n != 0 {
		t.Errorf("log still holds %d entries", n)
	}
}

func TestRunBatchAcksPoisonEntries(t *testing.T) {
	log := &fakeLog{}
	log.entries = append(log.entries, eventlog.Entry{
		ID:     "1-0",
		Values: map[string]interface{}{"type": "login"}, // no event_id, no scope
	})
	scopeID := uuid.New()
	appendEvent(log, entity.EventView, scopeID, time.Now().UTC())

	repo := newMemRollupRepo()
	svc := NewService(repo, &memUserRepo{}, log, nil, nil, "events:test")

	processed, err := svc.RunBatch(context.Background(), 100)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1 (poison skipped)", processed)
	}

	// The malformed entry is acked with the batch, never redelivered.
	if n, _ := log.Len(context.Background(), "events:test"); n != 0 {
		t.Errorf("log still holds %d entries", n)
	}
}

func TestRunBatchAbortsWithoutAckOnWriteFailure(t *testing.T) {
	log := &fakeLog{}
	appendEvent(log, entity.EventLogin, uuid.New(), time.Now().UTC())

	repo := newMemRollupRepo()
	repo.applyErr = errors.New("deadlock")
	svc := NewService(repo, &memUserRepo{}, log, nil, nil, "events:test")

	if _, err := svc.RunBatch(context.Background(), 100); err == nil {
		t.Fatal("expected error")
	}

	// Nothing acked: the next run re-reads the same entries.
	if n, _ := log.Len(context.Background(), "events:test"); n != 1 {
		t.Errorf("log holds %d entries, want 1", n)
	}
}

func TestRunBatchRedeliveryIsIdempotent(t *testing.T) {
	log := &fakeLog{ackErr: errors.New("redis gone")}
	repo := newMemRollupRepo()
	scopeID := uuid.New()
	at := time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)
	appendEvent(log, entity.EventLogin, scopeID, at)

	svc := NewService(repo, &memUserRepo{}, log, nil, nil, "events:test")

	// First run commits the fold but the ack fails, so the entry stays.
	if _, err := svc.RunBatch(context.Background(), 100); err != nil {
		t.Fatalf("first run: %v", err)
	}
	log.ackErr = nil

	// Redelivery: the entry-ID guard turns the replay into a no-op.
	if _, err := svc.RunBatch(context.Background(), 100); err != nil {
		t.Fatalf("second run: %v", err)
	}

	rollup, err := repo.Find(context.Background(), scopeID, entity.PeriodDaily, entity.BucketStart(entity.PeriodDaily, at))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if rollup.Users.Sessions != 1 {
		t.Errorf("sessions = %d, want 1 (no double count)", rollup.Users.Sessions)
	}
}

func TestRunBatchEmptyLog(t *testing.T) {
	svc := NewService(newMemRollupRepo(), &memUserRepo{}, &fakeLog{}, nil, nil, "events:test")

	processed, err := svc.RunBatch(context.Background(), 100)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if processed != 0 {
		t.Errorf("processed = %d, want 0", processed)
	}
}

func TestRebuildReplaysBothFolds(t *testing.T) {
	log := &fakeLog{}
	repo := newMemRollupRepo()
	users := &memUserRepo{}
	scopeID := uuid.New()
	at := time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)

	appendEvent(log, entity.EventLogin, scopeID, at)
	appendEvent(log, entity.EventPostCreated, scopeID, at.Add(time.Hour))

	svc := NewService(repo, users, log, nil, nil, "events:test")

	if err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if !users.truncated {
		t.Error("user records were not truncated before replay")
	}
	if len(users.applied) != 2 {
		t.Errorf("user fold saw %d events, want 2", len(users.applied))
	}

	daily, err := repo.Find(context.Background(), scopeID, entity.PeriodDaily, entity.BucketStart(entity.PeriodDaily, at))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if daily.Users.Sessions != 1 || daily.Content.PostsCreated != 1 {
		t.Errorf("daily = %+v, want 1 session and 1 post", daily)
	}

	// Rebuild replays without acking; the log is untouched.
	if n, _ := log.Len(context.Background(), "events:test"); n != 2 {
		t.Errorf("log holds %d entries, want 2", n)
	}
}

func TestDeltaForEvent(t *testing.T) {
	cases := []struct {
		eventType entity.EventType
		check     func(repository.Delta) bool
		desc      string
	}{
		{entity.EventLogin, func(d repository.Delta) bool { return d.Users.Sessions == 1 && d.Users.Logins == 1 }, "login counts a session"},
		{entity.EventLogout, func(d repository.Delta) bool { return d.Users.Logouts == 1 }, "logout"},
		{entity.EventPostCreated, func(d repository.Delta) bool { return d.Content.PostsCreated == 1 }, "post"},
		{entity.EventCommentCreated, func(d repository.Delta) bool { return d.Content.CommentsCreated == 1 && d.Engagement.Total == 1 }, "comment feeds engagement"},
		{entity.EventLikeGiven, func(d repository.Delta) bool { return d.Engagement.LikesGiven == 1 && d.Engagement.Total == 1 }, "like"},
		{entity.EventLikeRemoved, func(d repository.Delta) bool { return d.Engagement.LikesRemoved == 1 && d.Engagement.Total == 0 }, "unlike does not add engagement"},
		{entity.EventAIInteraction, func(d repository.Delta) bool { return d.AI.Interactions == 1 }, "ai"},
		{entity.EventAnswerProvided, func(d repository.Delta) bool { return d.Academic.AnswersProvided == 1 }, "answer"},
	}

	for _, tc := range cases {
		t.Run(string(tc.eventType), func(t *testing.T) {
			d := deltaForEvent(&entity.DomainEvent{Type: tc.eventType})
			if !tc.check(d) {
				t.Errorf("%s: delta = %+v", tc.desc, d)
			}
			if d.Performance.EventsProcessed != 1 {
				t.Error("every event counts as processed")
			}
			if d.ByType[string(tc.eventType)] != 1 {
				t.Error("every event counts in its type bucket")
			}
		})
	}
}

func TestDetectAnomalies(t *testing.T) {
	prev := &entity.ScopePeriodRollup{}
	prev.Users.Sessions = 100
	prev.Engagement.Total = 40

	t.Run("large drop flagged", func(t *testing.T) {
		current := &entity.ScopePeriodRollup{}
		current.Users.Sessions = 30 // -70%
		current.Engagement.Total = 40

		anomalies := detectAnomalies(prev, current)
		if len(anomalies) != 1 {
			t.Fatalf("got %d anomalies, want 1", len(anomalies))
		}
		if anomalies[0].Metric != "users.sessions" {
			t.Errorf("metric = %s", anomalies[0].Metric)
		}
		if anomalies[0].ChangePct != -70 {
			t.Errorf("change = %v, want -70", anomalies[0].ChangePct)
		}
	})

	t.Run("surge flagged", func(t *testing.T) {
		current := &entity.ScopePeriodRollup{}
		current.Users.Sessions = 160 // +60%
		current.Engagement.Total = 40

		if got := len(detectAnomalies(prev, current)); got != 1 {
			t.Errorf("got %d anomalies, want 1", got)
		}
	})

	t.Run("within threshold ignored", func(t *testing.T) {
		current := &entity.ScopePeriodRollup{}
		current.Users.Sessions = 140 // +40%
		current.Engagement.Total = 50

		if got := len(detectAnomalies(prev, current)); got != 0 {
			t.Errorf("got %d anomalies, want 0", got)
		}
	})

	t.Run("zero baseline ignored", func(t *testing.T) {
		empty := &entity.ScopePeriodRollup{}
		current := &entity.ScopePeriodRollup{}
		current.Users.Sessions = 50

		if got := len(detectAnomalies(empty, current)); got != 0 {
			t.Errorf("got %d anomalies, want 0", got)
		}
	})
}

func TestProjectSessions(t *testing.T) {
	prev := &entity.ScopePeriodRollup{}
	prev.Users.Sessions = 100
	current := &entity.ScopePeriodRollup{}
	current.Users.Sessions = 120

	if got := projectSessions(prev, current); got != 140 {
		t.Errorf("projection = %v, want 140", got)
	}

	// A collapse never projects below zero.
	falling := &entity.ScopePeriodRollup{}
	falling.Users.Sessions = 10
	if got := projectSessions(prev, falling); got != 0 {
		t.Errorf("projection = %v, want 0", got)
	}
}

func TestRunBatchOrderInvariant(t *testing.T) {
	// Counter folding is pure addition, so the same events must yield the
	// same bucket no matter which order the batch reads them in.
	scopeID := uuid.New()
	at := time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)

	events := make([]*entity.DomainEvent, 0, 6)
	for i, typ := range []entity.EventType{
		entity.EventLogin, entity.EventPostCreated, entity.EventLikeGiven,
		entity.EventLogin, entity.EventCommentCreated, entity.EventShare,
	} {
		events = append(events, &entity.DomainEvent{
			EventID:    uuid.New(),
			Type:       typ,
			ScopeID:    scopeID,
			OccurredAt: at.Add(time.Duration(i) * time.Minute),
		})
	}

	fold := func(order []int) *entity.ScopePeriodRollup {
		t.Helper()
		log := &fakeLog{}
		for _, i := range order {
			_, _ = log.Append(context.Background(), "events:test", events[i].Fields())
		}
		repo := newMemRollupRepo()
		svc := NewService(repo, &memUserRepo{}, log, nil, nil, "events:test")
		if _, err := svc.RunBatch(context.Background(), 100); err != nil {
			t.Fatalf("RunBatch: %v", err)
		}
		rollup, err := repo.Find(context.Background(), scopeID, entity.PeriodDaily, entity.BucketStart(entity.PeriodDaily, at))
		if err != nil {
			t.Fatalf("daily bucket missing: %v", err)
		}
		return rollup
	}

	straight := fold([]int{0, 1, 2, 3, 4, 5})
	permuted := fold([]int{5, 2, 0, 4, 3, 1})

	if straight.Users != permuted.Users ||
		straight.Content != permuted.Content ||
		straight.Engagement != permuted.Engagement ||
		straight.Performance != permuted.Performance {
		t.Errorf("folding is order dependent:\n straight = %+v %+v\n permuted = %+v %+v",
			straight.Users, straight.Engagement, permuted.Users, permuted.Engagement)
	}
}

func TestApplyBatchOverlappingUpdatesApplyOnce(t *testing.T) {
	// Two consumers can race the same new bucket; the entry-ID guard makes
	// the overlap a no-op on entries the bucket already absorbed.
	repo := newMemRollupRepo()
	scopeID := uuid.New()
	bucket := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)

	sessionEntry := func(id string) repository.EntryDelta {
		var delta repository.Delta
		delta.Users.Sessions = 1
		delta.Performance.EventsProcessed = 1
		return repository.EntryDelta{EventStreamID: id, Delta: delta}
	}

	first := repository.BucketUpdate{
		ScopeID:     scopeID,
		Period:      entity.PeriodDaily,
		BucketStart: bucket,
		Entries:     []repository.EntryDelta{sessionEntry("1-0"), sessionEntry("2-0")},
	}
	if err := repo.ApplyBatch(context.Background(), []repository.BucketUpdate{first}); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	// Second consumer re-reads entry 2-0 alongside a new one.
	second := repository.BucketUpdate{
		ScopeID:     scopeID,
		Period:      entity.PeriodDaily,
		BucketStart: bucket,
		Entries:     []repository.EntryDelta{sessionEntry("2-0"), sessionEntry("3-0")},
	}
	if err := repo.ApplyBatch(context.Background(), []repository.BucketUpdate{second}); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	rollup, err := repo.Find(context.Background(), scopeID, entity.PeriodDaily, bucket)
	if err != nil {
		t.Fatalf("bucket missing: %v", err)
	}
	if rollup.Users.Sessions != 3 {
		t.Errorf("sessions = %d, want 3 (overlapping entry folded once)", rollup.Users.Sessions)
	}
	if rollup.LastEventID != "3-0" {
		t.Errorf("last event id = %q, want 3-0", rollup.LastEventID)
	}
}
