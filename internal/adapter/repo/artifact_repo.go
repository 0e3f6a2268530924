package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// ArtifactRepositoryPG implements domain.ArtifactRepository.
type ArtifactRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewArtifactRepository creates a new artifact repository backed by PostgreSQL.
func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{pool: pool}
}

// Create inserts a new artifact with its units serialized as JSON.
func (r *ArtifactRepositoryPG) Create(ctx context.Context, artifact *domain.Artifact) error {
	units, err := json.Marshal(artifact.Units)
	if err != nil {
		return fmt.Errorf("marshal units: %w", err)
	}
	query := `
INSERT INTO artifacts (id, job_id, user_id, topic, caption, units_json, status)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err = r.pool.Exec(ctx, query,
		artifact.ID,
		artifact.JobID,
		artifact.UserID,
		artifact.Topic,
		artifact.Caption,
		units,
		artifact.Status,
	)
	return err
}

// UpdateUnits replaces an artifact's units and status.
func (r *ArtifactRepositoryPG) UpdateUnits(ctx context.Context, artifactID string, units []domain.ContentUnit, status domain.ArtifactStatus) error {
	payload, err := json.Marshal(units)
	if err != nil {
		return fmt.Errorf("marshal units: %w", err)
	}
	query := `
UPDATE artifacts
SET units_json = $2,
    status = $3,
    updated_at = NOW()
WHERE id = $1;
`
	_, err = r.pool.Exec(ctx, query, artifactID, payload, status)
	return err
}

// GetByID fetches an artifact by its identifier.
func (r *ArtifactRepositoryPG) GetByID(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	query := `
SELECT id, job_id, user_id, topic, caption, units_json, status, created_at, updated_at
FROM artifacts
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, artifactID)
	var (
		artifact domain.Artifact
		units    []byte
	)
	if err := row.Scan(
		&artifact.ID,
		&artifact.JobID,
		&artifact.UserID,
		&artifact.Topic,
		&artifact.Caption,
		&units,
		&artifact.Status,
		&artifact.CreatedAt,
		&artifact.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(units) > 0 {
		if err := json.Unmarshal(units, &artifact.Units); err != nil {
			return nil, fmt.Errorf("unmarshal units: %w", err)
		}
	}
	return &artifact, nil
}
