package repositories

import (
	"context"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
)

// RunRepository persists operator-visible pipeline run records
type RunRepository interface {
	Create(ctx context.Context, run *entities.PipelineRun) error
	MarkCompleted(ctx context.Context, id string, stats entities.RunStats) error
	MarkFailed(ctx context.Context, id string, message string) error
	GetLatest(ctx context.Context, source, metric string) (*entities.PipelineRun, error)
}
