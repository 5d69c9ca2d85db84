package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// CompileJob is the payload handed from the orchestrator to a compile worker.
type CompileJob struct {
	JobID   string `json:"job_id"`
	StoryID string `json:"story_id"`
}

// RedisQueue carries compile jobs over a Redis Stream with a consumer group,
// plus the per-story compile lock. One compilation per story at a time is
// enforced here, at the caller side, not inside the compiler.
type RedisQueue struct {
	client    *redis.Client
	Stream    string
	Group     string
	DLQStream string
	lockNS    string
}

// NewRedisQueue connects to Redis and ensures the stream and consumer group
// exist.
func NewRedisQueue(redisURL, stream, group string) (*RedisQueue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	q := &RedisQueue{
		client:    c,
		Stream:    stream,
		Group:     group,
		DLQStream: stream + ":dlq",
		lockNS:    "compile:lock:",
	}
	if err := c.XGroupCreateMkStream(ctx, stream, group, "$").Err(); err != nil && !isBusyGroupErr(err) {
		return nil, fmt.Errorf("xgroup create: %w", err)
	}
	return q, nil
}

func isBusyGroupErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.ErrBusyGroup) {
		return true
	}
	return strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP")
}

func (q *RedisQueue) Close() error { return q.client.Close() }

// Ping checks redis connectivity.
func (q *RedisQueue) Ping(ctx context.Context) error { return q.client.Ping(ctx).Err() }

// Enqueue adds a compile job to the stream as a single-field entry.
func (q *RedisQueue) Enqueue(ctx context.Context, payload []byte) error {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]any{"data": string(payload)},
	}).Err()
}

// Dequeue reads one message from the consumer group. Returns ("", nil, nil)
// on timeout with nothing pending.
func (q *RedisQueue) Dequeue(ctx context.Context, consumer string, block time.Duration) (string, []byte, error) {
	res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.Group,
		Consumer: consumer,
		Streams:  []string{q.Stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil, nil
		}
		return "", nil, err
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return "", nil, nil
	}
	msg := res[0].Messages[0]
	if v, ok := msg.Values["data"]; ok {
		switch t := v.(type) {
		case string:
			return msg.ID, []byte(t), nil
		case []byte:
			return msg.ID, t, nil
		}
	}
	return msg.ID, nil, nil
}

// Ack marks a message as processed.
func (q *RedisQueue) Ack(ctx context.Context, msgID string) error {
	if msgID == "" {
		return nil
	}
	return q.client.XAck(ctx, q.Stream, q.Group, msgID).Err()
}

// AddDLQ pushes a failed compile job to the DLQ stream with a reason. There
// is no automatic retry; a failed compile is re-triggered by the caller.
func (q *RedisQueue) AddDLQ(ctx context.Context, payload []byte, reason string) error {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.DLQStream,
		Values: map[string]any{"data": string(payload), "reason": reason},
	}).Err()
}

// AcquireLock takes the per-story compile lock. Returns false when another
// compilation already holds it. The TTL backstops a worker that dies mid-run.
func (q *RedisQueue) AcquireLock(ctx context.Context, storyID string, ttl time.Duration) (bool, error) {
	return q.client.SetNX(ctx, q.lockNS+storyID, 1, ttl).Result()
}

// ReleaseLock frees the per-story compile lock.
func (q *RedisQueue) ReleaseLock(ctx context.Context, storyID string) error {
	return q.client.Del(ctx, q.lockNS+storyID).Err()
}

// Depths returns approximate stream/dlq lengths for metrics.
func (q *RedisQueue) Depths(ctx context.Context) (int64, int64, error) {
	pipe := q.client.Pipeline()
	xlen := pipe.XLen(ctx, q.Stream)
	dxlen := pipe.XLen(ctx, q.DLQStream)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return xlen.Val(), dxlen.Val(), nil
}
