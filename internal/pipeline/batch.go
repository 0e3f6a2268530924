package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"server/internal/domain"
)

// Image work runs in fixed rounds to stay under provider rate limits.
const (
	defaultBatchSize  = 3
	defaultBatchPause = 500 * time.Millisecond
)

// UnitProcessor handles one unit and reports degradations instead of errors:
// a failed unit never aborts its round.
type UnitProcessor func(ctx context.Context, idx int, unit domain.ContentUnit) (domain.ContentUnit, []domain.Degradation)

// Batcher fans unit work out in rounds of Size with a pause between rounds.
type Batcher struct {
	Size  int
	Pause time.Duration

	// Sleep is overridable in tests. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Run processes every unit exactly once and returns them in input order.
func (b *Batcher) Run(ctx context.Context, units []domain.ContentUnit, proc UnitProcessor) ([]domain.ContentUnit, []domain.Degradation) {
	size := b.Size
	if size <= 0 {
		size = defaultBatchSize
	}
	pause := b.Pause
	if pause <= 0 {
		pause = defaultBatchPause
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	out := make([]domain.ContentUnit, len(units))
	degsByUnit := make([][]domain.Degradation, len(units))

	for start := 0; start < len(units); start += size {
		end := start + size
		if end > len(units) {
			end = len(units)
		}

		g, groupCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				out[i], degsByUnit[i] = proc(groupCtx, i, units[i])
				return nil
			})
		}
		// Processors degrade rather than error, so Wait only observes
		// context cancellation.
		_ = g.Wait()

		if end < len(units) {
			sleep(pause)
		}
	}

	var degs []domain.Degradation
	for _, d := range degsByUnit {
		degs = append(degs, d...)
	}
	return out, degs
}
