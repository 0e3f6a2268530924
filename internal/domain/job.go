package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindCarousel  JobKind = "carousel"
	JobKindArticle   JobKind = "article"
	JobKindPlan      JobKind = "plan"
	JobKindImageOnly JobKind = "image_only"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job encapsulates the lifecycle of one content generation request. BriefJSON
// carries the submitted brief verbatim; ResultJSON is only set on completion.
// CheckpointJSON records the payload that was in flight when a job failed so
// operators can inspect what the model returned.
type Job struct {
	ID             string
	UserID         string
	Kind           JobKind
	Status         JobStatus
	BriefJSON      []byte
	ResultJSON     []byte
	CheckpointJSON []byte
	ErrorMessage   string
	CountryCode    string
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// Brief is the user-supplied input for a generation job.
type Brief struct {
	Topic          string   `json:"topic"`
	TargetAudience string   `json:"target_audience"`
	PainPoint      string   `json:"pain_point"`
	DesiredOutcome string   `json:"desired_outcome"`
	ProofPoints    []string `json:"proof_points,omitempty"`
	CTAAction      string   `json:"cta_action,omitempty"`
	PostType       string   `json:"post_type,omitempty"`
	Format         string   `json:"format,omitempty"`
	Variants       int      `json:"variants,omitempty"`
	WantImages     bool     `json:"want_images"`
	Locale         string   `json:"locale,omitempty"`
	Headline       string   `json:"headline,omitempty"`
	Body           string   `json:"body,omitempty"`
	ImagePrompt    string   `json:"image_prompt,omitempty"`
}

// Degradation records a best-effort step that fell back without failing the job.
type Degradation struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}
