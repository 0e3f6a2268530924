package retry

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Defaults for remote model calls.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 250 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
)

// Executor runs remote calls with bounded retries and capped exponential
// backoff. Only transient failures are retried; anything else aborts on the
// first attempt so malformed requests never burn the retry budget.
type Executor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      zerolog.Logger

	// Sleep is overridable in tests. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration)
}

// Outcome reports how an execution went. Err holds the last failure when OK
// is false; callers decide whether that means degradation or job failure.
type Outcome struct {
	OK       bool
	Attempts int
	Err      error
}

// NewExecutor returns an executor with the default policy.
func NewExecutor(logger zerolog.Logger) *Executor {
	return &Executor{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Logger:      logger,
	}
}

// Do runs fn until it succeeds, a non-transient error occurs, the context is
// done, or the attempt budget is exhausted. The typed result of the last
// successful call is returned alongside the outcome.
func Do[T any](ctx context.Context, e *Executor, label string, fn func(context.Context) (T, error)) (T, Outcome) {
	var zero T
	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, Outcome{Attempts: attempt - 1, Err: err}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, Outcome{OK: true, Attempts: attempt}
		}
		lastErr = err

		if !Transient(err) {
			e.Logger.Warn().Err(err).Str("op", label).Int("attempt", attempt).Msg("retry: non-transient failure, aborting")
			return zero, Outcome{Attempts: attempt, Err: err}
		}

		e.Logger.Warn().Err(err).Str("op", label).Int("attempt", attempt).Msg("retry: transient failure")
		if attempt < maxAttempts {
			e.sleep(ctx, e.backoff(attempt))
		}
	}
	return zero, Outcome{Attempts: maxAttempts, Err: lastErr}
}

// backoff computes min(MaxDelay, BaseDelay * 2^(attempt-1)).
func (e *Executor) backoff(attempt int) time.Duration {
	base := e.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	max := e.MaxDelay
	if max <= 0 {
		max = DefaultMaxDelay
	}
	delay := base << (attempt - 1)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) {
	if e.Sleep != nil {
		e.Sleep(ctx, d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

type transienter interface {
	Transient() bool
}

// Transient reports whether an error is worth retrying: provider status
// errors that declare themselves transient (408, 429, 5xx), network timeouts
// and transport-level failures.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var t transienter
	if errors.As(err, &t) {
		return t.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
