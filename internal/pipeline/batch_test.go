package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"server/internal/domain"
)

func TestBatcherProcessesEveryUnitOnce(t *testing.T) {
	units := make([]domain.ContentUnit, 7)
	for i := range units {
		units[i].Headline = fmt.Sprintf("u%d", i)
	}

	var (
		mu    sync.Mutex
		seen  = map[int]int{}
		calls int
	)
	b := &Batcher{Size: 3, Pause: time.Millisecond, Sleep: func(time.Duration) {}}
	out, degs := b.Run(context.Background(), units, func(_ context.Context, idx int, unit domain.ContentUnit) (domain.ContentUnit, []domain.Degradation) {
		mu.Lock()
		seen[idx]++
		calls++
		mu.Unlock()
		unit.ImageRef = fmt.Sprintf("ref-%d", idx)
		return unit, nil
	})

	if calls != len(units) {
		t.Fatalf("calls = %d, want %d", calls, len(units))
	}
	for i := range units {
		if seen[i] != 1 {
			t.Fatalf("unit %d processed %d times, want 1", i, seen[i])
		}
		if out[i].ImageRef != fmt.Sprintf("ref-%d", i) {
			t.Fatalf("unit %d ref = %q, out of order", i, out[i].ImageRef)
		}
	}
	if len(degs) != 0 {
		t.Fatalf("degradations = %v, want none", degs)
	}
}

func TestBatcherRoundCount(t *testing.T) {
	tests := []struct {
		units      int
		wantPauses int
	}{
		{units: 1, wantPauses: 0},
		{units: 3, wantPauses: 0},
		{units: 4, wantPauses: 1},
		{units: 7, wantPauses: 2},
		{units: 9, wantPauses: 2},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d units", tc.units), func(t *testing.T) {
			pauses := 0
			b := &Batcher{Size: 3, Pause: defaultBatchPause, Sleep: func(d time.Duration) {
				if d != defaultBatchPause {
					t.Fatalf("pause = %v, want %v", d, defaultBatchPause)
				}
				pauses++
			}}
			units := make([]domain.ContentUnit, tc.units)
			b.Run(context.Background(), units, func(_ context.Context, _ int, u domain.ContentUnit) (domain.ContentUnit, []domain.Degradation) {
				return u, nil
			})
			if pauses != tc.wantPauses {
				t.Fatalf("pauses = %d, want %d", pauses, tc.wantPauses)
			}
		})
	}
}

func TestBatcherCollectsDegradationsWithoutAborting(t *testing.T) {
	units := make([]domain.ContentUnit, 4)
	b := &Batcher{Size: 3, Sleep: func(time.Duration) {}}
	out, degs := b.Run(context.Background(), units, func(_ context.Context, idx int, unit domain.ContentUnit) (domain.ContentUnit, []domain.Degradation) {
		if idx == 1 {
			return unit, []domain.Degradation{{Stage: "asset_generate", Reason: "unit 1: status 503"}}
		}
		unit.ImageRef = "ok"
		return unit, nil
	})

	if len(degs) != 1 {
		t.Fatalf("degradations = %v, want exactly one", degs)
	}
	if out[1].ImageRef != "" {
		t.Fatalf("failed unit should have empty ref, got %q", out[1].ImageRef)
	}
	for _, i := range []int{0, 2, 3} {
		if out[i].ImageRef != "ok" {
			t.Fatalf("unit %d ref = %q, want %q", i, out[i].ImageRef, "ok")
		}
	}
}
