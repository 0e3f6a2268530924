package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/middleware"
)

type submitJobRequest struct {
	Kind  domain.JobKind `json:"kind"`
	Sync  bool           `json:"sync,omitempty"`
	Brief domain.Brief   `json:"brief"`
}

type jobAcceptedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type jobStatusResponse struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// SubmitJob validates a brief and enqueues it as a pending job. Generation
// happens asynchronously in the worker; the response only carries the job id.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := validateBrief(req.Kind, req.Brief); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "invalid_brief", err.Error())
		return
	}

	if req.Brief.Locale == "" {
		req.Brief.Locale = middleware.LocaleFromContext(r.Context())
	}
	briefJSON, err := json.Marshal(req.Brief)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to encode brief")
		return
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		UserID:      a.currentUserID(r),
		Kind:        req.Kind,
		Status:      domain.JobStatusPending,
		BriefJSON:   briefJSON,
		CountryCode: middleware.CountryFromContext(r.Context()),
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: job create failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	if req.Sync || r.URL.Query().Get("sync") == "true" {
		// Claim the row first so a polling worker cannot pick the same job
		// up while it is processed inline.
		if err := a.Jobs.ClaimByID(r.Context(), job.ID); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("handlers: sync claim lost, job stays queued")
			a.json(w, http.StatusAccepted, jobAcceptedResponse{JobID: job.ID, Status: string(domain.JobStatusPending)})
			return
		}
		job.Status = domain.JobStatusProcessing
		a.processSync(w, r, job)
		return
	}
	a.Dispatcher.Announce(r.Context(), job.ID)

	a.json(w, http.StatusAccepted, jobAcceptedResponse{JobID: job.ID, Status: string(domain.JobStatusPending)})
}

// processSync runs the pipeline inline and returns the finished job. Meant
// for small jobs (image_only, plan previews); large carousels belong on the
// worker.
func (a *App) processSync(w http.ResponseWriter, r *http.Request, job *domain.Job) {
	if err := a.Pipeline.Process(r.Context(), job); err != nil {
		a.error(w, http.StatusBadGateway, "generation_failed", err.Error())
		return
	}
	completed, err := a.Jobs.GetByID(r.Context(), job.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("handlers: completed job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, statusResponseFrom(completed))
}

// GetJob reports job status; the result payload is included once completed.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	a.json(w, http.StatusOK, statusResponseFrom(job))
}

func statusResponseFrom(job *domain.Job) jobStatusResponse {
	resp := jobStatusResponse{
		ID:          job.ID,
		Kind:        string(job.Kind),
		Status:      string(job.Status),
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Error:       job.ErrorMessage,
	}
	if len(job.ResultJSON) > 0 {
		resp.Result = json.RawMessage(job.ResultJSON)
	}
	return resp
}

// RetryJob clones a failed job's brief into a fresh pending job. The failed
// job itself is immutable history.
func (a *App) RetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	if job.Status != domain.JobStatusFailed {
		a.error(w, http.StatusConflict, "not_retryable", fmt.Sprintf("job is %s; only failed jobs can be retried", job.Status))
		return
	}

	clone := &domain.Job{
		ID:          uuid.NewString(),
		UserID:      job.UserID,
		Kind:        job.Kind,
		Status:      domain.JobStatusPending,
		BriefJSON:   job.BriefJSON,
		CountryCode: job.CountryCode,
	}
	if err := a.Jobs.Create(r.Context(), clone); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: retry clone failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.Dispatcher.Announce(r.Context(), clone.ID)

	a.json(w, http.StatusAccepted, jobAcceptedResponse{JobID: clone.ID, Status: string(domain.JobStatusPending)})
}

func validateBrief(kind domain.JobKind, brief domain.Brief) error {
	switch kind {
	case domain.JobKindCarousel, domain.JobKindArticle, domain.JobKindPlan:
		if strings.TrimSpace(brief.Topic) == "" {
			return errors.New("brief.topic is required")
		}
	case domain.JobKindImageOnly:
		if strings.TrimSpace(brief.Headline) == "" && strings.TrimSpace(brief.ImagePrompt) == "" {
			return errors.New("brief.headline or brief.image_prompt is required")
		}
	default:
		return fmt.Errorf("unsupported kind %q", kind)
	}
	if brief.Variants < 0 || brief.Variants > 10 {
		return errors.New("brief.variants must be between 0 and 10")
	}
	return nil
}
