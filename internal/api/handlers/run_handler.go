package handlers

import (
	"net/http"

	"github.com/openpricemap/openpricemap/backend/internal/domain/repositories"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

// RunHandler exposes pipeline run records for operator visibility
type RunHandler struct {
	runs   repositories.RunRepository
	source string
	metric string
}

// NewRunHandler creates a new run handler. source and metric are the
// defaults used when the request does not name them.
func NewRunHandler(runs repositories.RunRepository, source, metric string) *RunHandler {
	return &RunHandler{runs: runs, source: source, metric: metric}
}

// GetLatestRun handles GET /api/runs/latest
func (h *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = h.source
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = h.metric
	}

	run, err := h.runs.GetLatest(r.Context(), source, metric)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, run)
}
