package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"server/internal/infra"
)

// dispatchList is the Redis list jobs are announced on. The database stays the
// source of truth; the list only wakes workers up faster than the poll loop.
const dispatchList = "jobs:dispatch"

// Dispatcher signals workers that a new job is pending. All operations are
// best-effort: a Redis outage is logged and workers fall back to polling.
type Dispatcher struct {
	client *redis.Client
	logger infra.Logger
}

// NewDispatcher connects to Redis. An empty addr disables dispatching and
// returns a nil-safe no-op dispatcher.
func NewDispatcher(addr string, logger infra.Logger) *Dispatcher {
	if addr == "" {
		return &Dispatcher{logger: logger}
	}
	return &Dispatcher{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger,
	}
}

// Enabled reports whether a Redis connection is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.client != nil
}

// Announce pushes a job ID onto the dispatch list.
func (d *Dispatcher) Announce(ctx context.Context, jobID string) {
	if !d.Enabled() {
		return
	}
	if err := d.client.LPush(ctx, dispatchList, jobID).Err(); err != nil {
		d.logger.Warn().Err(err).Str("job_id", jobID).Msg("queue: dispatch announce failed, workers will poll")
	}
}

// Wait blocks until a job is announced or the timeout elapses. It returns an
// empty ID on timeout so the caller can run its poll cycle regardless.
func (d *Dispatcher) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	if !d.Enabled() {
		return "", nil
	}
	vals, err := d.client.BRPop(ctx, timeout, dispatchList).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(vals) < 2 {
		return "", fmt.Errorf("unexpected BRPop response: %v", vals)
	}
	return vals[1], nil
}

// Close releases the Redis connection.
func (d *Dispatcher) Close() error {
	if !d.Enabled() {
		return nil
	}
	return d.client.Close()
}
