package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpricemap/openpricemap/backend/internal/api/handlers"
	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

type stubTileServer struct {
	collection *entities.FeatureCollection
	err        error
	ttl        int

	called        bool
	gotZ, gotX, gotY int
}

func (s *stubTileServer) GetTile(_ context.Context, z, x, y int) (*entities.FeatureCollection, error) {
	s.called = true
	s.gotZ, s.gotX, s.gotY = z, x, y
	if s.err != nil {
		return nil, s.err
	}
	return s.collection, nil
}

func (s *stubTileServer) TTLForZoom(int) int {
	return s.ttl
}

func tileRequest(z, x, y string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/tiles/"+z+"/"+x+"/"+y, nil)
	req.SetPathValue("z", z)
	req.SetPathValue("x", x)
	req.SetPathValue("y", y)
	return req
}

func TestGetTile_Success(t *testing.T) {
	server := &stubTileServer{collection: entities.NewFeatureCollection(), ttl: 86400}
	handler := handlers.NewTileHandler(server)

	rec := httptest.NewRecorder()
	handler.GetTile(rec, tileRequest("10", "512", "341"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))

	assert.Equal(t, 10, server.gotZ)
	assert.Equal(t, 512, server.gotX)
	assert.Equal(t, 341, server.gotY)

	var body entities.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FeatureCollection", body.Type)
	assert.NotNil(t, body.Features)
}

func TestGetTile_NonIntegerCoordinates(t *testing.T) {
	server := &stubTileServer{collection: entities.NewFeatureCollection()}
	handler := handlers.NewTileHandler(server)

	rec := httptest.NewRecorder()
	handler.GetTile(rec, tileRequest("ten", "512", "341"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, server.called, "malformed coordinates are rejected before the service")
}

func TestGetTile_ValidationError(t *testing.T) {
	server := &stubTileServer{err: apperrors.NewValidationError("invalid tile coordinates 5/99/0")}
	handler := handlers.NewTileHandler(server)

	rec := httptest.NewRecorder()
	handler.GetTile(rec, tileRequest("5", "99", "0"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "invalid tile coordinates")
}

func TestGetTile_InternalError(t *testing.T) {
	server := &stubTileServer{err: apperrors.NewInternalError("boom", nil)}
	handler := handlers.NewTileHandler(server)

	rec := httptest.NewRecorder()
	handler.GetTile(rec, tileRequest("10", "512", "341"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
