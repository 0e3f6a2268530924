package domain

import "time"

// ArtifactStatus enumerates artifact lifecycle states.
type ArtifactStatus string

const (
	ArtifactStatusDraft ArtifactStatus = "draft"
	ArtifactStatusFinal ArtifactStatus = "final"
)

// Artifact is the persisted output of a generation job. The draft is stored
// as soon as the text stages finish so a later image failure never loses copy.
type Artifact struct {
	ID        string         `json:"id"`
	JobID     string         `json:"job_id"`
	UserID    string         `json:"user_id,omitempty"`
	Topic     string         `json:"topic"`
	Caption   string         `json:"caption"`
	Units     []ContentUnit  `json:"units"`
	Status    ArtifactStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
