package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/notify"
)

const (
	jobsKey      = "notify:jobs"
	pollInterval = 100 * time.Millisecond
)

// RedisQueue is the durable notify.Queue: jobs live in a sorted set scored
// by the time they become visible, so delayed retries survive restarts and
// multiple workers can pull concurrently.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queue: ping redis: %w", err)
	}
	return &RedisQueue{client: client}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, job notify.Job) error {
	return q.add(ctx, job, time.Now())
}

func (q *RedisQueue) EnqueueDelayed(ctx context.Context, job notify.Job, delay time.Duration) error {
	return q.add(ctx, job, time.Now().Add(delay))
}

func (q *RedisQueue) add(ctx context.Context, job notify.Job, readyAt time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	return q.client.ZAdd(ctx, jobsKey, redis.Z{
		Score:  float64(readyAt.UnixNano()),
		Member: string(data),
	}).Err()
}

// Dequeue polls for the next visible job. ZRem arbitrates between racing
// workers: whoever removes the member owns the job.
func (q *RedisQueue) Dequeue(ctx context.Context) (*notify.Job, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		job, err := q.tryDequeue(ctx)
		if err != nil {
			return nil, err
		}
		if job != nil {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *RedisQueue) tryDequeue(ctx context.Context) (*notify.Job, error) {
	now := float64(time.Now().UnixNano())

	results, err := q.client.ZRangeByScore(ctx, jobsKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: range: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	member := results[0]
	removed, err := q.client.ZRem(ctx, jobsKey, member).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: claim: %w", err)
	}
	if removed == 0 {
		// Another worker claimed it first.
		return nil, nil
	}

	var job notify.Job
	if err := json.Unmarshal([]byte(member), &job); err != nil {
		return nil, fmt.Errorf("queue: unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, jobsKey).Result()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
