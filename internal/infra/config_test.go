package infra

import "testing"

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig succeeded without DATABASE_URL")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("COMPLETION_PROVIDER", "")
	t.Setenv("CONTEXT_CHAR_BUDGET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.CompletionProvider != "gemini" {
		t.Fatalf("CompletionProvider mismatch: got %q want %q", cfg.CompletionProvider, "gemini")
	}
	if cfg.ContextCharBudget != 1200 {
		t.Fatalf("ContextCharBudget mismatch: got %d want %d", cfg.ContextCharBudget, 1200)
	}
	if !cfg.VectorRetrieval {
		t.Fatalf("VectorRetrieval should default to true")
	}
}

func TestLoadConfigParsesBooleans(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("DEEP_RESEARCH_ENABLED", "true")
	t.Setenv("VECTOR_RETRIEVAL_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !cfg.DeepResearch {
		t.Fatalf("DeepResearch mismatch: got %v want %v", cfg.DeepResearch, true)
	}
	if cfg.VectorRetrieval {
		t.Fatalf("VectorRetrieval mismatch: got %v want %v", cfg.VectorRetrieval, false)
	}
}

func TestLoadConfigInvalidIntFallsBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Fatalf("RateLimitPerMin mismatch: got %d want %d", cfg.RateLimitPerMin, 30)
	}
}
