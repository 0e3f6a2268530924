package domain

import "context"

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	// ClaimNext atomically claims the oldest pending job and moves it to
	// processing. Returns ErrNoPendingJobs when the queue is drained.
	ClaimNext(ctx context.Context) (*Job, error)
	// ClaimByID claims one specific job for the caller, moving it from
	// pending to processing. Returns ErrNotFound when the job is missing or
	// another process already owns it.
	ClaimByID(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID string, resultJSON []byte) error
	Fail(ctx context.Context, jobID string, errMsg string, checkpointJSON []byte) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
}

// ArtifactRepository handles persistence for generated artifacts.
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *Artifact) error
	UpdateUnits(ctx context.Context, artifactID string, units []ContentUnit, status ArtifactStatus) error
	GetByID(ctx context.Context, artifactID string) (*Artifact, error)
}

// KnowledgeDocument is a retrieved slice of the knowledge base.
type KnowledgeDocument struct {
	ID        string
	Title     string
	Content   string
	Relevance float64
}

// BrandAsset is a reusable visual owned by the brand (logo, badge, photo).
type BrandAsset struct {
	ID          string
	Kind        string
	URL         string
	Description string
}

// Product is a catalog entry surfaced to the strategist.
type Product struct {
	ID      string
	Name    string
	Summary string
}

// KnowledgeRepository provides the retrieval surfaces for context building.
type KnowledgeRepository interface {
	SearchText(ctx context.Context, query string, limit int) ([]KnowledgeDocument, error)
	SearchVector(ctx context.Context, embedding []float32, limit int) ([]KnowledgeDocument, error)
	ListAssets(ctx context.Context, kinds []string, limit int) ([]BrandAsset, error)
	ListProducts(ctx context.Context, limit int) ([]Product, error)
}
