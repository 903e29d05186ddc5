package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"anoa.com/campuspulse/internal/entity"
	scoringRepo "anoa.com/campuspulse/internal/modules/scoring/repository"
	"anoa.com/campuspulse/pkg/apperror"
	"anoa.com/campuspulse/pkg/counterstore"
	"anoa.com/campuspulse/pkg/eventlog"
	"github.com/google/uuid"
)

// Input is a domain event as handed over by request-handling code. Identity
// is already resolved by the auth layer upstream.
type Input struct {
	Type        entity.EventType
	ScopeID     uuid.UUID
	ActorUserID *uuid.UUID
	ContentID   *uuid.UUID
	ContentType string
	Metadata    map[string]string
	OccurredAt  time.Time
}

// Weights applied when mirroring engagement into the popular-content set.
const (
	popularWeightView    = 0.5
	popularWeightLike    = 1.0
	popularWeightComment = 2.0
	popularWeightSave    = 2.0
	popularWeightShare   = 3.0
)

type Gateway interface {
	// Ingest validates the event, appends it durably and fans out the fast
	// counters. The durable append must succeed before Ingest returns; the
	// counter writes are best-effort and only feed live dashboards.
	Ingest(ctx context.Context, input Input) (uuid.UUID, error)
}

type gateway struct {
	log      eventlog.EventLog
	counters counterstore.CounterStore
	userRepo scoringRepo.UserPeriodRepository
	stream   string

	appendRetries int
	appendBackoff time.Duration
}

func NewGateway(
	eventLog eventlog.EventLog,
	counters counterstore.CounterStore,
	userRepo scoringRepo.UserPeriodRepository,
	stream string,
	appendRetries int,
	appendBackoff time.Duration,
) Gateway {
	if appendRetries < 1 {
		appendRetries = 1
	}
	return &gateway{
		log:           eventLog,
		counters:      counters,
		userRepo:      userRepo,
		stream:        stream,
		appendRetries: appendRetries,
		appendBackoff: appendBackoff,
	}
}

func (g *gateway) Ingest(ctx context.Context, input Input) (uuid.UUID, error) {
	if !input.Type.Valid() {
		return uuid.Nil, fmt.Errorf("%w: unknown event type %q", apperror.ErrInvalidEvent, input.Type)
	}
	if input.ScopeID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: missing scope", apperror.ErrInvalidEvent)
	}

	eventID, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	event := &entity.DomainEvent{
		EventID:     eventID,
		Type:        input.Type,
		ActorUserID: input.ActorUserID,
		ScopeID:     input.ScopeID,
		ContentID:   input.ContentID,
		ContentType: input.ContentType,
		Metadata:    input.Metadata,
		OccurredAt:  occurredAt,
	}

	// The durable append is the commit point. If it exhausts its retries the
	// caller retries the whole ingest; nothing below this line has run yet,
	// so a retry can at most double-count the ephemeral counters.
	if err := g.appendDurable(ctx, event); err != nil {
		// A cancelled caller is not log trouble; keep the context error so
		// clients do not get a retry hint for their own abort.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("%w: event log append: %v", apperror.ErrUnavailable, err)
	}

	g.bumpFastCounters(ctx, event)

	// Same-transaction bump of the actor's current-period record so a
	// synchronous "my stats" read reflects this action immediately.
	if err := g.userRepo.ApplyEvent(ctx, event); err != nil {
		// The event is durable; the aggregator's rebuild path can
		// reconstruct the record.
		log.Printf("user period bump failed for event %s: %v", eventID, err)
	}

	return eventID, nil
}

func (g *gateway) appendDurable(ctx context.Context, event *entity.DomainEvent) error {
	var lastErr error
	for attempt := 0; attempt < g.appendRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.appendBackoff * time.Duration(attempt)):
			}
		}
		if _, lastErr = g.log.Append(ctx, g.stream, event.Fields()); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// bumpFastCounters feeds the live dashboard plane. Failures are logged and
// dropped: these counters can always be reconstructed from the log.
func (g *gateway) bumpFastCounters(ctx context.Context, event *entity.DomainEvent) {
	if g.counters == nil {
		return
	}

	scope := event.ScopeID.String()

	bump := func(err error) {
		if err != nil {
			log.Printf("fast counter update failed: %v", err)
		}
	}

	bump(g.counters.Increment(ctx, counterstore.KeyTotalEvents()))
	bump(g.counters.Increment(ctx, counterstore.KeyEventsByType(string(event.Type))))
	bump(g.counters.Increment(ctx, counterstore.KeyHourlyEvents(scope, event.OccurredAt)))

	if event.ActorUserID != nil {
		bump(g.counters.SetMemberScore(ctx, counterstore.KeyActiveUsers(scope),
			event.ActorUserID.String(), float64(event.OccurredAt.Unix())))
	}

	if event.ContentID != nil {
		if weight := popularWeight(event.Type); weight != 0 {
			bump(g.counters.IncrementMember(ctx, counterstore.KeyPopularContent(scope),
				event.ContentID.String(), weight))
		}
	}
}

func popularWeight(t entity.EventType) float64 {
	switch t {
	case entity.EventView:
		return popularWeightView
	case entity.EventLikeGiven:
		return popularWeightLike
	case entity.EventLikeRemoved:
		return -popularWeightLike
	case entity.EventCommentCreated:
		return popularWeightComment
	case entity.EventSave:
		return popularWeightSave
	case entity.EventShare:
		return popularWeightShare
	}
	return 0
}
