package rag

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/llm"
)

type fakeKnowledgeRepo struct {
	textDocs   []domain.KnowledgeDocument
	vectorDocs []domain.KnowledgeDocument
	assets     []domain.BrandAsset
	products   []domain.Product
	textErr    error
	vectorErr  error
	assetErr   error
	productErr error
}

func (f *fakeKnowledgeRepo) SearchText(context.Context, string, int) ([]domain.KnowledgeDocument, error) {
	return f.textDocs, f.textErr
}

func (f *fakeKnowledgeRepo) SearchVector(context.Context, []float32, int) ([]domain.KnowledgeDocument, error) {
	return f.vectorDocs, f.vectorErr
}

func (f *fakeKnowledgeRepo) ListAssets(context.Context, []string, int) ([]domain.BrandAsset, error) {
	return f.assets, f.assetErr
}

func (f *fakeKnowledgeRepo) ListProducts(context.Context, int) ([]domain.Product, error) {
	return f.products, f.productErr
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestRetrieveMergesVectorAndTextWithoutDuplicates(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		vectorDocs: []domain.KnowledgeDocument{
			{ID: "a", Title: "Doc A", Content: "vector hit"},
		},
		textDocs: []domain.KnowledgeDocument{
			{ID: "a", Title: "Doc A", Content: "text hit"},
			{ID: "b", Title: "Doc B", Content: "text only"},
		},
	}
	r := NewRetriever(&llm.Mock{}, repo, testLogger(), Options{VectorSearch: true})

	result, degs := r.Retrieve(context.Background(), "physiotherapy")
	if len(degs) != 0 {
		t.Fatalf("degradations = %v, want none", degs)
	}
	var knowledge string
	for _, s := range result.Sections {
		if s.Source == "knowledge" {
			knowledge = s.Text
		}
	}
	if knowledge == "" {
		t.Fatalf("knowledge section missing: %+v", result.Sections)
	}
	if strings.Count(knowledge, "Doc A") != 1 {
		t.Fatalf("Doc A should appear once, got %q", knowledge)
	}
	if !strings.Contains(knowledge, "Doc B") {
		t.Fatalf("Doc B missing from %q", knowledge)
	}
}

func TestRetrieveDegradesWhenEmbeddingFails(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		textDocs: []domain.KnowledgeDocument{{ID: "b", Title: "Doc B", Content: "text"}},
	}
	client := &llm.Mock{Err: errors.New("embed down")}
	r := NewRetriever(client, repo, testLogger(), Options{VectorSearch: true})

	result, degs := r.Retrieve(context.Background(), "query")
	found := false
	for _, d := range degs {
		if d.Stage == "vector_retrieval" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected vector_retrieval degradation, got %v", degs)
	}
	if len(result.Sections) == 0 {
		t.Fatalf("text search results should still be present")
	}
}

func TestRetrieveNeverErrorsOnTotalFailure(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		textErr:    errors.New("db down"),
		vectorErr:  errors.New("db down"),
		assetErr:   errors.New("db down"),
		productErr: errors.New("db down"),
	}
	r := NewRetriever(&llm.Mock{Err: errors.New("llm down")}, repo, testLogger(), Options{VectorSearch: true, DeepResearch: true})

	result, degs := r.Retrieve(context.Background(), "query")
	if len(result.Sections) != 0 {
		t.Fatalf("sections = %v, want empty", result.Sections)
	}
	if len(degs) == 0 {
		t.Fatalf("expected degradations on total failure")
	}
}

func TestRetrieveCollectsAssetsAndProducts(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		assets:   []domain.BrandAsset{{ID: "logo-1", Kind: "logo", URL: "https://cdn/logo.png"}},
		products: []domain.Product{{ID: "p1", Name: "Posture Program"}},
	}
	r := NewRetriever(&llm.Mock{}, repo, testLogger(), Options{})

	result, _ := r.Retrieve(context.Background(), "query")
	if len(result.Assets) != 1 || result.Assets[0].ID != "logo-1" {
		t.Fatalf("Assets = %+v, want logo-1", result.Assets)
	}
	if len(result.Products) != 1 || result.Products[0].Name != "Posture Program" {
		t.Fatalf("Products = %+v", result.Products)
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	s := strings.Repeat("atenção ", 10)
	for limit := 1; limit < len(s); limit++ {
		got := truncate(s, limit)
		if len(got) > limit {
			t.Fatalf("limit %d: len = %d", limit, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("limit %d: %q is not valid UTF-8", limit, got)
		}
	}
	if got := truncate("curto", 100); got != "curto" {
		t.Fatalf("got %q, want input untouched under the limit", got)
	}
}

func TestFormatDocumentsHonorsBudget(t *testing.T) {
	docs := []domain.KnowledgeDocument{
		{ID: "a", Title: "A", Content: strings.Repeat("x", 100)},
		{ID: "b", Title: "B", Content: strings.Repeat("y", 100)},
	}
	out := formatDocuments(docs, 50)
	if len(out) > 50 {
		t.Fatalf("len = %d, want <= 50", len(out))
	}
	if !strings.HasPrefix(out, "A: ") {
		t.Fatalf("most relevant document should come first: %q", out)
	}
}
