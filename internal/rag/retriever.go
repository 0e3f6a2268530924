package rag

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/llm"
)

const (
	defaultTopK       = 5
	defaultCharBudget = 1200
	deepResearchLimit = 10 * time.Second
)

// Section is one formatted context block attributed to its source tool.
type Section struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Result is the assembled context handed to the strategist and drafter.
type Result struct {
	Sections []Section           `json:"sections"`
	Assets   []domain.BrandAsset `json:"assets,omitempty"`
	Products []domain.Product    `json:"products,omitempty"`
}

// Text joins all sections into a single prompt-ready block.
func (r Result) Text() string {
	var b strings.Builder
	for _, s := range r.Sections {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[" + s.Source + "]\n")
		b.WriteString(s.Text)
	}
	return b.String()
}

// Options tunes which retrieval tools run and how much text they may emit.
type Options struct {
	DeepResearch bool
	VectorSearch bool
	TopK         int
	CharBudget   int
}

// Retriever assembles generation context from the knowledge base, the brand
// catalog and optional web research. Every tool is best-effort: failures are
// reported as degradations and never abort retrieval.
type Retriever struct {
	llm    llm.Client
	repo   domain.KnowledgeRepository
	logger infra.Logger
	opts   Options
	tools  map[ToolKind]toolFunc
}

type toolFunc func(ctx context.Context, query string, res *Result) []domain.Degradation

// NewRetriever wires the closed set of retrieval tools.
func NewRetriever(client llm.Client, repo domain.KnowledgeRepository, logger infra.Logger, opts Options) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.CharBudget <= 0 {
		opts.CharBudget = defaultCharBudget
	}
	r := &Retriever{llm: client, repo: repo, logger: logger, opts: opts}
	r.tools = map[ToolKind]toolFunc{
		ToolDeepResearch: r.runDeepResearch,
		ToolKnowledge:    r.runKnowledge,
		ToolIndustryData: r.runIndustryData,
		ToolAssets:       r.runAssets,
		ToolProducts:     r.runProducts,
	}
	return r
}

// Retrieve runs the enabled tools in a fixed order and merges their output.
// It never returns an error: a fully failed retrieval yields an empty result
// plus the degradations describing what went wrong.
func (r *Retriever) Retrieve(ctx context.Context, query string) (Result, []domain.Degradation) {
	var (
		result Result
		degs   []domain.Degradation
	)
	for _, kind := range toolOrder {
		if kind == ToolDeepResearch && !r.opts.DeepResearch {
			continue
		}
		tool, ok := r.tools[kind]
		if !ok {
			continue
		}
		degs = append(degs, tool(ctx, query, &result)...)
	}
	return result, degs
}

func (r *Retriever) runDeepResearch(ctx context.Context, query string, res *Result) []domain.Degradation {
	ctx, cancel := context.WithTimeout(ctx, deepResearchLimit)
	defer cancel()

	text, err := r.llm.Complete(ctx, llm.CompletionRequest{
		System:      "You are a research assistant. Summarize current, factual information relevant to the topic in a short paragraph. Cite concrete numbers when available.",
		Prompt:      query,
		Temperature: 0.2,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		r.logger.Warn().Err(err).Msg("rag: deep research unavailable")
		return []domain.Degradation{{Stage: "deep_research", Reason: degradeReason(err)}}
	}
	res.Sections = append(res.Sections, Section{
		Source: ToolDeepResearch.String(),
		Text:   truncate(text, r.opts.CharBudget),
	})
	return nil
}

func (r *Retriever) runKnowledge(ctx context.Context, query string, res *Result) []domain.Degradation {
	var (
		degs   []domain.Degradation
		byID   = map[string]bool{}
		merged []domain.KnowledgeDocument
	)

	if r.opts.VectorSearch {
		docs, err := r.vectorSearch(ctx, query)
		if err != nil {
			r.logger.Warn().Err(err).Msg("rag: vector retrieval degraded to text search")
			degs = append(degs, domain.Degradation{Stage: "vector_retrieval", Reason: degradeReason(err)})
		}
		for _, doc := range docs {
			if !byID[doc.ID] {
				byID[doc.ID] = true
				merged = append(merged, doc)
			}
		}
	}

	docs, err := r.repo.SearchText(ctx, query, r.opts.TopK)
	if err != nil {
		r.logger.Warn().Err(err).Msg("rag: text search failed")
		degs = append(degs, domain.Degradation{Stage: "text_retrieval", Reason: degradeReason(err)})
	}
	for _, doc := range docs {
		if !byID[doc.ID] {
			byID[doc.ID] = true
			merged = append(merged, doc)
		}
	}

	if len(merged) == 0 {
		return degs
	}
	res.Sections = append(res.Sections, Section{
		Source: ToolKnowledge.String(),
		Text:   formatDocuments(merged, r.opts.CharBudget),
	})
	return degs
}

func (r *Retriever) vectorSearch(ctx context.Context, query string) ([]domain.KnowledgeDocument, error) {
	embedding, err := r.llm.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.repo.SearchVector(ctx, embedding, r.opts.TopK)
}

func (r *Retriever) runIndustryData(ctx context.Context, query string, res *Result) []domain.Degradation {
	docs, err := r.repo.SearchText(ctx, query+" industry statistics benchmarks", r.opts.TopK)
	if err != nil {
		r.logger.Warn().Err(err).Msg("rag: industry data lookup failed")
		return []domain.Degradation{{Stage: "industry_data", Reason: degradeReason(err)}}
	}
	if len(docs) == 0 {
		return nil
	}
	res.Sections = append(res.Sections, Section{
		Source: ToolIndustryData.String(),
		Text:   formatDocuments(docs, r.opts.CharBudget),
	})
	return nil
}

func (r *Retriever) runAssets(ctx context.Context, _ string, res *Result) []domain.Degradation {
	assets, err := r.repo.ListAssets(ctx, nil, r.opts.TopK)
	if err != nil {
		r.logger.Warn().Err(err).Msg("rag: asset listing failed")
		return []domain.Degradation{{Stage: "asset_search", Reason: degradeReason(err)}}
	}
	res.Assets = append(res.Assets, assets...)
	return nil
}

func (r *Retriever) runProducts(ctx context.Context, _ string, res *Result) []domain.Degradation {
	products, err := r.repo.ListProducts(ctx, r.opts.TopK)
	if err != nil {
		r.logger.Warn().Err(err).Msg("rag: product listing failed")
		return []domain.Degradation{{Stage: "product_search", Reason: degradeReason(err)}}
	}
	res.Products = append(res.Products, products...)
	return nil
}

// formatDocuments renders documents most-relevant first within the budget.
func formatDocuments(docs []domain.KnowledgeDocument, budget int) string {
	var b strings.Builder
	for _, doc := range docs {
		if b.Len() >= budget {
			break
		}
		entry := doc.Content
		if doc.Title != "" {
			entry = doc.Title + ": " + entry
		}
		remaining := budget - b.Len()
		if b.Len() > 0 {
			b.WriteString("\n")
			remaining--
		}
		b.WriteString(truncate(entry, remaining))
	}
	return b.String()
}

// truncate cuts s to at most limit bytes, backing off so a multi-byte rune is
// never split.
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func degradeReason(err error) string {
	if err == nil {
		return "empty response"
	}
	return err.Error()
}
