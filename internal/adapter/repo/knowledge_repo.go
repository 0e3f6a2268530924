package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// KnowledgeRepositoryPG implements domain.KnowledgeRepository over the
// knowledge base tables. Vector search requires the pgvector extension on the
// embedding column.
type KnowledgeRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewKnowledgeRepository creates a new knowledge repository backed by PostgreSQL.
func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepositoryPG {
	return &KnowledgeRepositoryPG{pool: pool}
}

// SearchText ranks knowledge documents against the query with full-text search.
func (r *KnowledgeRepositoryPG) SearchText(ctx context.Context, query string, limit int) ([]domain.KnowledgeDocument, error) {
	sql := `
SELECT id, title, content,
       ts_rank(to_tsvector('simple', title || ' ' || content), plainto_tsquery('simple', $1)) AS rank
FROM knowledge_documents
WHERE to_tsvector('simple', title || ' ' || content) @@ plainto_tsquery('simple', $1)
ORDER BY rank DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.KnowledgeDocument
	for rows.Next() {
		var doc domain.KnowledgeDocument
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Relevance); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SearchVector returns the top documents by cosine distance to the embedding.
func (r *KnowledgeRepositoryPG) SearchVector(ctx context.Context, embedding []float32, limit int) ([]domain.KnowledgeDocument, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	sql := `
SELECT id, title, content, 1 - (embedding <=> $1::vector) AS similarity
FROM knowledge_documents
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1::vector
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, sql, vectorLiteral(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.KnowledgeDocument
	for rows.Next() {
		var doc domain.KnowledgeDocument
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Relevance); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListAssets returns brand assets, optionally filtered by kind.
func (r *KnowledgeRepositoryPG) ListAssets(ctx context.Context, kinds []string, limit int) ([]domain.BrandAsset, error) {
	sql := `
SELECT id, kind, url, description
FROM brand_assets
WHERE cardinality($1::text[]) = 0 OR kind = ANY($1::text[])
ORDER BY created_at DESC
LIMIT $2;
`
	if kinds == nil {
		kinds = []string{}
	}
	rows, err := r.pool.Query(ctx, sql, kinds, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.BrandAsset
	for rows.Next() {
		var asset domain.BrandAsset
		if err := rows.Scan(&asset.ID, &asset.Kind, &asset.URL, &asset.Description); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// ListProducts returns catalog entries for the strategist's grounding.
func (r *KnowledgeRepositoryPG) ListProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	sql := `
SELECT id, name, summary
FROM products
ORDER BY name ASC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Summary); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// vectorLiteral renders an embedding in pgvector input syntax.
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
