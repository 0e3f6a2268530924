package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type regenerateResponse struct {
	Artifact     *domain.Artifact     `json:"artifact"`
	Degradations []domain.Degradation `json:"degradations,omitempty"`
}

// RegenerateImages re-renders an artifact's images in place. This runs
// synchronously: regeneration touches at most a handful of units.
func (a *App) RegenerateImages(w http.ResponseWriter, r *http.Request) {
	artifactID := chi.URLParam(r, "id")
	artifact, degs, err := a.Pipeline.RegenerateImages(r.Context(), artifactID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "artifact not found")
			return
		}
		a.Logger.Error().Err(err).Str("artifact_id", artifactID).Msg("handlers: regeneration failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to regenerate images")
		return
	}
	a.json(w, http.StatusOK, regenerateResponse{Artifact: artifact, Degradations: degs})
}
