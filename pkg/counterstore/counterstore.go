package counterstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Member is a sorted-set member with its score, as returned by ranked reads.
type Member struct {
	Member string
	Score  float64
}

// CounterStore is the fast counter plane backing live dashboards. Everything
// written through it can be reconstructed from the event log, so writes are
// best-effort and updates must be atomic increments, never read-modify-write.
type CounterStore interface {
	Increment(ctx context.Context, key string) error
	IncrementMember(ctx context.Context, setKey, member string, delta float64) error
	// SetMemberScore writes an absolute score (recency timestamps), unlike
	// the additive IncrementMember.
	SetMemberScore(ctx context.Context, setKey, member string, score float64) error
	Cardinality(ctx context.Context, setKey string) (int64, error)
	CardinalityByScore(ctx context.Context, setKey string, min, max float64) (int64, error)
	RangeByScoreDesc(ctx context.Context, setKey string, offset, count int64) ([]Member, error)
	Get(ctx context.Context, key string) (int64, error)
	PruneByScore(ctx context.Context, setKey string, max float64) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an injected Redis client. The client's lifecycle is
// owned by the caller.
func NewRedisStore(client *redis.Client) CounterStore {
	return &redisStore{client: client}
}

func (s *redisStore) Increment(ctx context.Context, key string) error {
	return s.client.Incr(ctx, key).Err()
}

func (s *redisStore) IncrementMember(ctx context.Context, setKey, member string, delta float64) error {
	return s.client.ZIncrBy(ctx, setKey, delta, member).Err()
}

func (s *redisStore) SetMemberScore(ctx context.Context, setKey, member string, score float64) error {
	return s.client.ZAdd(ctx, setKey, redis.Z{Score: score, Member: member}).Err()
}

func (s *redisStore) Cardinality(ctx context.Context, setKey string) (int64, error) {
	return s.client.ZCard(ctx, setKey).Result()
}

func (s *redisStore) CardinalityByScore(ctx context.Context, setKey string, min, max float64) (int64, error) {
	return s.client.ZCount(ctx, setKey,
		fmt.Sprintf("%f", min), fmt.Sprintf("%f", max)).Result()
}

func (s *redisStore) RangeByScoreDesc(ctx context.Context, setKey string, offset, count int64) ([]Member, error) {
	zs, err := s.client.ZRevRangeByScoreWithScores(ctx, setKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    "+inf",
		Offset: offset,
		Count:  count,
	}).Result()
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		members = append(members, Member{Member: member, Score: z.Score})
	}
	return members, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (s *redisStore) PruneByScore(ctx context.Context, setKey string, max float64) error {
	return s.client.ZRemRangeByScore(ctx, setKey, "-inf", fmt.Sprintf("%f", max)).Err()
}

// Key helpers. Hour buckets use a compact UTC stamp so per-hour dashboard
// counters stay individually addressable.

func KeyTotalEvents() string {
	return "events:total"
}

func KeyEventsByType(eventType string) string {
	return "events:type:" + eventType
}

func KeyHourlyEvents(scopeID string, t time.Time) string {
	return fmt.Sprintf("events:hour:%s:%s", scopeID, t.UTC().Format("2006010215"))
}

func KeyActiveUsers(scopeID string) string {
	return "active:users:" + scopeID
}

func KeyPopularContent(scopeID string) string {
	return "popular:content:" + scopeID
}
