package eventlog

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Entry is one durable log record. ID is the Redis stream entry ID, which is
// monotonically increasing within a stream.
type Entry struct {
	ID     string
	Values map[string]interface{}
}

// EventLog is the append-only durable stream of raw facts. Producers append;
// a single logical consumer reads from the oldest unacknowledged entry and
// acks (deletes) only after its rollup writes are committed.
type EventLog interface {
	Append(ctx context.Context, streamKey string, fields map[string]interface{}) (string, error)
	ReadFrom(ctx context.Context, streamKey, afterID string, maxCount int64) ([]Entry, error)
	Ack(ctx context.Context, streamKey string, ids ...string) error
	Len(ctx context.Context, streamKey string) (int64, error)
}

type redisLog struct {
	client *redis.Client
}

func NewRedisLog(client *redis.Client) EventLog {
	return &redisLog{client: client}
}

func (l *redisLog) Append(ctx context.Context, streamKey string, fields map[string]interface{}) (string, error) {
	return l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: fields,
	}).Result()
}

func (l *redisLog) ReadFrom(ctx context.Context, streamKey, afterID string, maxCount int64) ([]Entry, error) {
	start := "-"
	if afterID != "" {
		// Exclusive range start: everything strictly after afterID.
		start = "(" + afterID
	}

	messages, err := l.client.XRangeN(ctx, streamKey, start, "+", maxCount).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, Entry{ID: msg.ID, Values: msg.Values})
	}
	return entries, nil
}

func (l *redisLog) Ack(ctx context.Context, streamKey string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return l.client.XDel(ctx, streamKey, ids...).Err()
}

func (l *redisLog) Len(ctx context.Context, streamKey string) (int64, error) {
	return l.client.XLen(ctx, streamKey).Result()
}

// CompareIDs orders two stream entry IDs ("<ms>-<seq>"). Returns -1, 0 or 1.
// An empty ID sorts before everything, so a fresh rollup accepts any entry.
func CompareIDs(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}

	amt, aseq := splitID(a)
	bmt, bseq := splitID(b)

	if amt != bmt {
		if amt < bmt {
			return -1
		}
		return 1
	}
	if aseq < bseq {
		return -1
	}
	if aseq > bseq {
		return 1
	}
	return 0
}

func splitID(id string) (int64, int64) {
	parts := strings.SplitN(id, "-", 2)
	ms, _ := strconv.ParseInt(parts[0], 10, 64)
	var seq int64
	if len(parts) == 2 {
		seq, _ = strconv.ParseInt(parts[1], 10, 64)
	}
	return ms, seq
}
