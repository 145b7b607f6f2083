package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	"github.com/openpricemap/openpricemap/backend/internal/domain/repositories"
	"github.com/openpricemap/openpricemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

// RunAdapter implements RunRepository
type RunAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewRunAdapter creates a new run adapter
func NewRunAdapter(client *postgres.Client) repositories.RunRepository {
	return &RunAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create records the start of a pipeline run
func (a *RunAdapter) Create(ctx context.Context, run *entities.PipelineRun) error {
	query, args, err := a.db.Insert("pipeline_runs").
		Rows(goqu.Record{
			"id":              run.ID,
			"source":          run.Source,
			"metric":          run.Metric,
			"resolution":      run.Resolution,
			"status":          string(run.Status),
			"processed":       run.Stats.Processed,
			"skipped_price":   run.Stats.SkippedPrice,
			"skipped_geocode": run.Stats.SkippedGeocode,
			"cells":           run.Stats.Cells,
			"error":           run.Error,
			"started_at":      run.StartedAt,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build run insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewPersistenceError("failed to create run record", err)
	}
	return nil
}

// MarkCompleted finalizes a successful run with its statistics
func (a *RunAdapter) MarkCompleted(ctx context.Context, id string, stats entities.RunStats) error {
	return a.finish(ctx, id, goqu.Record{
		"status":          string(entities.RunStatusCompleted),
		"processed":       stats.Processed,
		"skipped_price":   stats.SkippedPrice,
		"skipped_geocode": stats.SkippedGeocode,
		"cells":           stats.Cells,
		"finished_at":     time.Now().UTC(),
	})
}

// MarkFailed finalizes a failed run with the error message
func (a *RunAdapter) MarkFailed(ctx context.Context, id string, message string) error {
	return a.finish(ctx, id, goqu.Record{
		"status":      string(entities.RunStatusFailed),
		"error":       message,
		"finished_at": time.Now().UTC(),
	})
}

func (a *RunAdapter) finish(ctx context.Context, id string, record goqu.Record) error {
	query, args, err := a.db.Update("pipeline_runs").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build run update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewPersistenceError("failed to update run record", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewPersistenceError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("run %s not found", id))
	}
	return nil
}

// GetLatest returns the most recently started run for a (source, metric) key
func (a *RunAdapter) GetLatest(ctx context.Context, source, metric string) (*entities.PipelineRun, error) {
	query := `
		SELECT id, source, metric, resolution, status,
		       processed, skipped_price, skipped_geocode, cells,
		       error, started_at, finished_at
		FROM pipeline_runs
		WHERE source = $1 AND metric = $2
		ORDER BY started_at DESC
		LIMIT 1
	`

	run := &entities.PipelineRun{}
	var status string
	var finishedAt sql.NullTime

	err := a.client.DB().QueryRowContext(ctx, query, source, metric).Scan(
		&run.ID,
		&run.Source,
		&run.Metric,
		&run.Resolution,
		&status,
		&run.Stats.Processed,
		&run.Stats.SkippedPrice,
		&run.Stats.SkippedGeocode,
		&run.Stats.Cells,
		&run.Error,
		&run.StartedAt,
		&finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no runs recorded for %s/%s", source, metric))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get latest run", err)
	}

	run.Status = entities.RunStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}
