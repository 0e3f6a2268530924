package bootstrap

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/pipeline"
	"server/internal/providers/imagegen"
	"server/internal/providers/llm"
	"server/internal/rag"
	"server/internal/retry"
	"server/internal/storage"
)

// Pipeline bundles the generation stack shared by the API and the worker.
type Pipeline struct {
	Orchestrator *pipeline.Orchestrator
	Jobs         domain.JobRepository
	Store        *storage.FileStore
}

// NewCompletionClient selects the completion provider from configuration.
// Keyless environments fall back to the deterministic mock client so the
// service stays runnable in development.
func NewCompletionClient(cfg *infra.Config, logger infra.Logger) llm.Client {
	switch strings.ToLower(cfg.CompletionProvider) {
	case "openai":
		client, err := llm.NewOpenAI(llm.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("bootstrap: openai unavailable, using mock completions")
			return &llm.Mock{}
		}
		return client
	case "mock":
		return &llm.Mock{}
	default:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn().Msg("bootstrap: gemini api key missing, using mock completions")
			return &llm.Mock{}
		}
		return llm.NewGemini(llm.GeminiOptions{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			EmbedModel: cfg.GeminiEmbedModel,
			BaseURL:    cfg.GeminiBaseURL,
			HTTPClient: &http.Client{Timeout: 60 * time.Second},
			Logger:     &logger,
		})
	}
}

// NewSynthesizer selects the image backend. Without an API key the synthetic
// renderer keeps the pipeline usable end to end.
func NewSynthesizer(cfg *infra.Config, logger infra.Logger) imagegen.Synthesizer {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logger.Warn().Msg("bootstrap: gemini api key missing, using synthetic images")
		return &imagegen.Synthetic{}
	}
	return imagegen.NewGemini(imagegen.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.ImageModel,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  &logger,
	})
}

// NewFileStore resolves the storage path to an absolute directory.
func NewFileStore(cfg *infra.Config) (*storage.FileStore, error) {
	path := cfg.StoragePath
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return storage.NewFileStore(path)
}

// NewPipeline wires repositories, providers and stages into an orchestrator.
func NewPipeline(ctx context.Context, cfg *infra.Config, logger infra.Logger, pool *pgxpool.Pool) (*Pipeline, error) {
	store, err := NewFileStore(cfg)
	if err != nil {
		return nil, err
	}

	jobs := repo.NewJobRepository(pool)
	artifacts := repo.NewArtifactRepository(pool)
	knowledge := repo.NewKnowledgeRepository(pool)

	client := NewCompletionClient(cfg, logger)
	synth := NewSynthesizer(cfg, logger)
	logo, badge := loadBrandAssets(ctx, knowledge, logger)

	orc := &pipeline.Orchestrator{
		Jobs:      jobs,
		Artifacts: artifacts,
		Retriever: rag.NewRetriever(client, knowledge, logger, rag.Options{
			DeepResearch: cfg.DeepResearch,
			VectorSearch: cfg.VectorRetrieval,
			CharBudget:   cfg.ContextCharBudget,
		}),
		Strategist: &pipeline.Strategist{LLM: client, Logger: logger},
		Drafter:    &pipeline.Drafter{LLM: client, Logger: logger},
		Critic:     &pipeline.Critic{LLM: client, Logger: logger},
		Assets:     &pipeline.AssetGenerator{Synth: synth, Retry: retry.NewExecutor(logger), Logger: logger},
		Brander: &pipeline.Brander{
			Compositor: &pipeline.ModelCompositor{Synth: synth, Logger: logger},
			Logo:       logo,
			Badge:      badge,
			Logger:     logger,
		},
		Finisher: &pipeline.Finisher{Store: store, BaseURL: cfg.StorageBaseURL, Logger: logger},
		Batcher:  &pipeline.Batcher{},
		Logger:   logger,
	}

	return &Pipeline{Orchestrator: orc, Jobs: jobs, Store: store}, nil
}

// loadBrandAssets fetches the logo and certification badge once at startup.
// Missing assets disable the matching overlay rather than failing boot.
func loadBrandAssets(ctx context.Context, knowledge domain.KnowledgeRepository, logger infra.Logger) (*domain.BrandAsset, *domain.BrandAsset) {
	assets, err := knowledge.ListAssets(ctx, []string{"logo", "badge"}, 10)
	if err != nil {
		logger.Warn().Err(err).Msg("bootstrap: brand asset lookup failed, overlays disabled")
		return nil, nil
	}
	var logo, badge *domain.BrandAsset
	for i := range assets {
		switch assets[i].Kind {
		case "logo":
			if logo == nil {
				logo = &assets[i]
			}
		case "badge":
			if badge == nil {
				badge = &assets[i]
			}
		}
	}
	return logo, badge
}
