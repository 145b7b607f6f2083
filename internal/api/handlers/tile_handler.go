package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

// TileServer builds viewport-scoped feature collections
type TileServer interface {
	GetTile(ctx context.Context, z, x, y int) (*entities.FeatureCollection, error)
	TTLForZoom(zoom int) int
}

// TileHandler handles vector tile HTTP requests
type TileHandler struct {
	tiles TileServer
}

// NewTileHandler creates a new tile handler
func NewTileHandler(tiles TileServer) *TileHandler {
	return &TileHandler{tiles: tiles}
}

// GetTile handles GET /api/tiles/{z}/{x}/{y}
func (h *TileHandler) GetTile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if errZ != nil || errX != nil || errY != nil {
		respondWithError(w, http.StatusBadRequest, "tile coordinates must be integers")
		return
	}

	collection, err := h.tiles.GetTile(r.Context(), z, x, y)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.tiles.TTLForZoom(z)))
	respondWithJSON(w, http.StatusOK, collection)
}
