package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/bootstrap"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/pipeline"
	"server/internal/queue"
)

const jobPollInterval = 2 * time.Second

type jobWorker struct {
	jobs       domain.JobRepository
	orc        *pipeline.Orchestrator
	dispatcher *queue.Dispatcher
	logger     infra.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	pipe, err := bootstrap.NewPipeline(ctx, cfg, logger, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to build pipeline")
	}

	dispatcher := queue.NewDispatcher(cfg.RedisAddr, logger)
	defer dispatcher.Close()

	worker := &jobWorker{
		jobs:       pipe.Jobs,
		orc:        pipe.Orchestrator,
		dispatcher: dispatcher,
		logger:     logger,
	}
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run drains pending jobs; when the queue is empty it blocks on the dispatch
// signal, or just sleeps the poll interval when Redis is not configured. The
// database stays the source of truth either way.
func (w *jobWorker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.jobs.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNoPendingJobs) {
				w.idle(ctx)
				continue
			}
			w.logger.Error().Err(err).Msg("worker: claim failed")
			w.idle(ctx)
			continue
		}

		w.logger.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("worker: picked job")
		if err := w.orc.Process(ctx, job); err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
		}
	}
}

func (w *jobWorker) idle(ctx context.Context) {
	if w.dispatcher.Enabled() {
		if _, err := w.dispatcher.Wait(ctx, jobPollInterval); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn().Err(err).Msg("worker: dispatch wait failed")
		}
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(jobPollInterval):
	}
}
