package retry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type statusErr struct {
	code int
}

func (e *statusErr) Error() string   { return "status error" }
func (e *statusErr) Transient() bool { return e.code == 408 || e.code == 429 || e.code >= 500 }

func newTestExecutor() *Executor {
	return &Executor{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Logger:      zerolog.New(io.Discard),
		Sleep:       func(context.Context, time.Duration) {},
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	e := newTestExecutor()
	calls := 0
	got, outcome := Do(context.Background(), e, "test", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if !outcome.OK || got != "ok" {
		t.Fatalf("Do() = %q ok=%v, want %q ok=true", got, outcome.OK, "ok")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoExhaustsExactlyMaxAttemptsOnTransientFailure(t *testing.T) {
	e := newTestExecutor()
	calls := 0
	wantErr := &statusErr{code: 503}
	_, outcome := Do(context.Background(), e, "test", func(context.Context) (string, error) {
		calls++
		return "", wantErr
	})
	if outcome.OK {
		t.Fatalf("outcome.OK = true, want false")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", outcome.Attempts)
	}
	if !errors.Is(outcome.Err, wantErr) {
		t.Fatalf("Err = %v, want %v", outcome.Err, wantErr)
	}
}

func TestDoAbortsOnNonTransientError(t *testing.T) {
	e := newTestExecutor()
	calls := 0
	_, outcome := Do(context.Background(), e, "test", func(context.Context) (string, error) {
		calls++
		return "", &statusErr{code: 400}
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if outcome.OK {
		t.Fatalf("outcome.OK = true, want false")
	}
}

func TestDoRecoversMidway(t *testing.T) {
	e := newTestExecutor()
	calls := 0
	got, outcome := Do(context.Background(), e, "test", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &statusErr{code: 429}
		}
		return 42, nil
	})
	if !outcome.OK || got != 42 {
		t.Fatalf("Do() = %d ok=%v, want 42 ok=true", got, outcome.OK)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", outcome.Attempts)
	}
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	e := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, outcome := Do(ctx, e, "test", func(context.Context) (string, error) {
		calls++
		cancel()
		return "", &statusErr{code: 500}
	})
	if outcome.OK {
		t.Fatalf("outcome.OK = true, want false")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBackoffCapped(t *testing.T) {
	e := newTestExecutor()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 250 * time.Millisecond},
		{attempt: 2, want: 500 * time.Millisecond},
		{attempt: 3, want: 1 * time.Second},
		{attempt: 4, want: 2 * time.Second},
		{attempt: 10, want: 2 * time.Second},
	}
	for _, tc := range tests {
		if got := e.backoff(tc.attempt); got != tc.want {
			t.Fatalf("backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestTransientClassification(t *testing.T) {
	if Transient(nil) {
		t.Fatalf("nil should not be transient")
	}
	if !Transient(&statusErr{code: 429}) {
		t.Fatalf("429 should be transient")
	}
	if Transient(&statusErr{code: 422}) {
		t.Fatalf("422 should not be transient")
	}
	if !Transient(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should be transient")
	}
	if Transient(errors.New("parse failure")) {
		t.Fatalf("plain errors should not be transient")
	}
}
