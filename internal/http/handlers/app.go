package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/queue"
)

// Processor is the slice of the pipeline the HTTP layer calls synchronously.
type Processor interface {
	Process(ctx context.Context, job *domain.Job) error
	RegenerateImages(ctx context.Context, artifactID string) (*domain.Artifact, []domain.Degradation, error)
}

type App struct {
	Jobs       domain.JobRepository
	Pipeline   Processor
	Dispatcher *queue.Dispatcher
	Logger     infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// currentUserID reads the caller identity injected by the edge proxy. Requests
// without one are treated as anonymous rather than rejected.
func (a *App) currentUserID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return "anonymous"
}
