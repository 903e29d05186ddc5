package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"anoa.com/campuspulse/internal/entity"
	"anoa.com/campuspulse/pkg/apperror"
	"anoa.com/campuspulse/pkg/eventlog"
	"github.com/google/uuid"
)

type fakeEventLog struct {
	mu       sync.Mutex
	appended []map[string]interface{}
	failures int
	nextID   int
}

func (f *fakeEventLog) Append(ctx context.Context, streamKey string, fields map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return "", errors.New("stream full")
	}
	f.appended = append(f.appended, fields)
	f.nextID++
	return fmt.Sprintf("1-%d", f.nextID), nil
}

func (f *fakeEventLog) ReadFrom(ctx context.Context, streamKey, afterID string, maxCount int64) ([]eventlog.Entry, error) {
	return nil, nil
}

func (f *fakeEventLog) Ack(ctx context.Context, streamKey string, ids ...string) error { return nil }

func (f *fakeEventLog) Len(ctx context.Context, streamKey string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.appended)), nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	events []*entity.DomainEvent
	err    error
}

func (f *fakeUserRepo) ApplyEvent(ctx context.Context, event *entity.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeUserRepo) Find(ctx context.Context, userID uuid.UUID, period entity.Period, date time.Time) (*entity.UserPeriodRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) Save(ctx context.Context, record *entity.UserPeriodRecord) error { return nil }

func (f *fakeUserRepo) ForDate(ctx context.Context, period entity.Period, date time.Time) ([]entity.UserPeriodRecord, error) {
	return nil, nil
}

func (f *fakeUserRepo) TopByOverall(ctx context.Context, scopeID uuid.UUID, period entity.Period, since time.Time, limit int) ([]entity.UserPeriodRecord, error) {
	return nil, nil
}

func (f *fakeUserRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeUserRepo) TruncateAll(ctx context.Context) error { return nil }

func newTestGateway(log *fakeEventLog, users *fakeUserRepo) Gateway {
	return NewGateway(log, nil, users, "events:test", 3, time.Millisecond)
}

func TestIngestRejectsUnknownType(t *testing.T) {
	gw := newTestGateway(&fakeEventLog{}, &fakeUserRepo{})

	_, err := gw.Ingest(context.Background(), Input{
		Type:    entity.EventType("poke"),
		ScopeID: uuid.New(),
	})
	if !errors.Is(err, apperror.ErrInvalidEvent) {
		t.Errorf("err = %v, want ErrInvalidEvent", err)
	}
}

func TestIngestRejectsMissingScope(t *testing.T) {
	gw := newTestGateway(&fakeEventLog{}, &fakeUserRepo{})

	_, err := gw.Ingest(context.Background(), Input{Type: entity.EventLogin})
	if !errors.Is(err, apperror.ErrInvalidEvent) {
		t.Errorf("err = %v, want ErrInvalidEvent", err)
	}
}

func TestIngestAppendsDurably(t *testing.T) {
	log := &fakeEventLog{}
	users := &fakeUserRepo{}
	gw := newTestGateway(log, users)

	actor := uuid.New()
	id, err := gw.Ingest(context.Background(), Input{
		Type:        entity.EventLogin,
		ScopeID:     uuid.New(),
		ActorUserID: &actor,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if id == uuid.Nil {
		t.Error("expected non-nil event id")
	}

	if len(log.appended) != 1 {
		t.Fatalf("appended %d entries, want 1", len(log.appended))
	}
	if log.appended[0]["type"] != "login" {
		t.Errorf("appended type = %v", log.appended[0]["type"])
	}

	// The actor's current-period record is bumped synchronously.
	if len(users.events) != 1 {
		t.Fatalf("user fold saw %d events, want 1", len(users.events))
	}
	if users.events[0].EventID != id {
		t.Error("user fold saw a different event")
	}
}

func TestIngestRetriesTransientAppendFailure(t *testing.T) {
	log := &fakeEventLog{failures: 2}
	gw := newTestGateway(log, &fakeUserRepo{})

	_, err := gw.Ingest(context.Background(), Input{
		Type:    entity.EventView,
		ScopeID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("expected third attempt to succeed, got %v", err)
	}
	if len(log.appended) != 1 {
		t.Errorf("appended %d entries, want 1", len(log.appended))
	}
}

func TestIngestUnavailableWhenAppendExhausted(t *testing.T) {
	log := &fakeEventLog{failures: 10}
	users := &fakeUserRepo{}
	gw := newTestGateway(log, users)

	_, err := gw.Ingest(context.Background(), Input{
		Type:    entity.EventView,
		ScopeID: uuid.New(),
	})
	if !errors.Is(err, apperror.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}

	// Nothing downstream of the commit point may have run.
	if len(users.events) != 0 {
		t.Error("user fold must not run when the append failed")
	}
}

func TestIngestCancelledCallerIsNotUnavailable(t *testing.T) {
	// The caller aborting mid-retry is the caller's doing. Reporting it as
	// log unavailability would invite a pointless retry.
	log := &fakeEventLog{failures: 10}
	gw := newTestGateway(log, &fakeUserRepo{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Ingest(ctx, Input{
		Type:    entity.EventView,
		ScopeID: uuid.New(),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, apperror.ErrUnavailable) {
		t.Errorf("err = %v, must not carry ErrUnavailable", err)
	}
}

func TestIngestSurvivesUserFoldFailure(t *testing.T) {
	log := &fakeEventLog{}
	users := &fakeUserRepo{err: errors.New("db down")}
	gw := newTestGateway(log, users)

	// The event is durable; the record can be rebuilt from the log later.
	if _, err := gw.Ingest(context.Background(), Input{
		Type:    entity.EventLogin,
		ScopeID: uuid.New(),
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(log.appended) != 1 {
		t.Error("event should still be appended")
	}
}

func TestIngestStampsMissingOccurredAt(t *testing.T) {
	log := &fakeEventLog{}
	gw := newTestGateway(log, &fakeUserRepo{})

	before := time.Now().UTC()
	if _, err := gw.Ingest(context.Background(), Input{
		Type:    entity.EventLogin,
		ScopeID: uuid.New(),
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	stamp, err := time.Parse(time.RFC3339Nano, log.appended[0]["occurred_at"].(string))
	if err != nil {
		t.Fatalf("parse occurred_at: %v", err)
	}
	if stamp.Before(before.Add(-time.Second)) || stamp.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("occurred_at = %v, not close to now", stamp)
	}
}

func TestPopularWeight(t *testing.T) {
	cases := []struct {
		eventType entity.EventType
		want      float64
	}{
		{entity.EventView, 0.5},
		{entity.EventLikeGiven, 1},
		{entity.EventLikeRemoved, -1},
		{entity.EventCommentCreated, 2},
		{entity.EventSave, 2},
		{entity.EventShare, 3},
		{entity.EventLogin, 0},
	}
	for _, tc := range cases {
		if got := popularWeight(tc.eventType); got != tc.want {
			t.Errorf("popularWeight(%s) = %v, want %v", tc.eventType, got, tc.want)
		}
	}
}
