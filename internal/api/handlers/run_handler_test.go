package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpricemap/openpricemap/backend/internal/api/handlers"
	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

type stubRunRepo struct {
	run *entities.PipelineRun
	err error

	gotSource string
	gotMetric string
}

func (s *stubRunRepo) Create(context.Context, *entities.PipelineRun) error { return nil }

func (s *stubRunRepo) MarkCompleted(context.Context, string, entities.RunStats) error { return nil }

func (s *stubRunRepo) MarkFailed(context.Context, string, string) error { return nil }

func (s *stubRunRepo) GetLatest(_ context.Context, source, metric string) (*entities.PipelineRun, error) {
	s.gotSource = source
	s.gotMetric = metric
	if s.err != nil {
		return nil, s.err
	}
	return s.run, nil
}

func TestGetLatestRun_Success(t *testing.T) {
	repo := &stubRunRepo{run: &entities.PipelineRun{
		ID:        "run-1",
		Source:    "uk_land_registry",
		Metric:    "price",
		Status:    entities.RunStatusCompleted,
		StartedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	handler := handlers.NewRunHandler(repo, "uk_land_registry", "price")

	rec := httptest.NewRecorder()
	handler.GetLatestRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uk_land_registry", repo.gotSource)
	assert.Equal(t, "price", repo.gotMetric)

	var body entities.PipelineRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.ID)
	assert.Equal(t, entities.RunStatusCompleted, body.Status)
}

func TestGetLatestRun_QueryOverrides(t *testing.T) {
	repo := &stubRunRepo{run: &entities.PipelineRun{ID: "run-2"}}
	handler := handlers.NewRunHandler(repo, "uk_land_registry", "price")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs/latest?source=scotland_ros&metric=rent", nil)
	handler.GetLatestRun(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "scotland_ros", repo.gotSource)
	assert.Equal(t, "rent", repo.gotMetric)
}

func TestGetLatestRun_NotFound(t *testing.T) {
	repo := &stubRunRepo{err: apperrors.NewNotFoundError("no runs for uk_land_registry/price")}
	handler := handlers.NewRunHandler(repo, "uk_land_registry", "price")

	rec := httptest.NewRecorder()
	handler.GetLatestRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLatestRun_StorageFailure(t *testing.T) {
	repo := &stubRunRepo{err: apperrors.NewPersistenceError("query failed", nil)}
	handler := handlers.NewRunHandler(repo, "uk_land_registry", "price")

	rec := httptest.NewRecorder()
	handler.GetLatestRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
