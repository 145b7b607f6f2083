package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	"github.com/openpricemap/openpricemap/backend/internal/domain/repositories"
	"github.com/openpricemap/openpricemap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

const upsertChunkSize = 500

// CellAdapter implements CellRepository on PostgreSQL. Aggregated views are
// derived on read with a grouped query; only normalized values are stored
// separately, since the normalizer owns them.
type CellAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	metric string
}

// NewCellAdapter creates a new cell adapter. metric is the default metric
// type aggregated views are computed for.
func NewCellAdapter(client *postgres.Client, metric string) repositories.CellRepository {
	return &CellAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		metric: metric,
	}
}

// UpsertCells replaces rows keyed by (cell_id, source, metric) in one
// transaction. A failure rolls back the whole batch.
func (a *CellAdapter) UpsertCells(ctx context.Context, cells []*entities.GeoCell) error {
	if len(cells) == 0 {
		return nil
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewPersistenceError("failed to begin upsert transaction", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(cells); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(cells) {
			end = len(cells)
		}

		records := make([]interface{}, 0, end-start)
		for _, cell := range cells[start:end] {
			records = append(records, goqu.Record{
				"cell_id":    cell.CellID,
				"resolution": cell.Resolution,
				"country":    cell.Country,
				"region":     cell.Region,
				"source":     cell.Source,
				"metric":     cell.Metric,
				"value":      cell.Value,
				"tx_count":   cell.TxCount,
				"confidence": cell.Confidence,
				"first_seen": cell.FirstSeen,
				"last_seen":  cell.LastSeen,
				"updated_at": cell.UpdatedAt,
			})
		}

		query, args, err := a.db.Insert("geo_cells").
			Rows(records...).
			OnConflict(goqu.DoUpdate(
				"cell_id, source, metric",
				goqu.Record{
					"resolution": goqu.L("EXCLUDED.resolution"),
					"country":    goqu.L("EXCLUDED.country"),
					"region":     goqu.L("EXCLUDED.region"),
					"value":      goqu.L("EXCLUDED.value"),
					"tx_count":   goqu.L("EXCLUDED.tx_count"),
					"confidence": goqu.L("EXCLUDED.confidence"),
					"first_seen": goqu.L("EXCLUDED.first_seen"),
					"last_seen":  goqu.L("EXCLUDED.last_seen"),
					"updated_at": goqu.L("EXCLUDED.updated_at"),
				},
			)).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build upsert query", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewPersistenceError("failed to upsert cells", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("failed to commit upsert transaction", err)
	}
	return nil
}

const aggregateSelect = `
	SELECT g.cell_id, g.resolution,
	       COALESCE(MIN(g.country), '') AS country,
	       SUM(g.value * g.confidence) / SUM(g.confidence) AS weighted_value,
	       SUM(g.tx_count) AS tx_count,
	       AVG(g.confidence) AS avg_confidence,
	       MAX(g.last_seen) AS last_seen,
	       MAX(n.value) AS normalized_value
	FROM geo_cells g
	LEFT JOIN cell_normalization n ON n.cell_id = g.cell_id
`

// Cells whose confidence sum is zero have an undefined weighted average and
// are excluded.
const aggregateTail = `
	GROUP BY g.cell_id, g.resolution
	HAVING SUM(g.confidence) > 0
	ORDER BY g.cell_id
`

// GetAggregates returns the aggregated view of the given cell ids
func (a *CellAdapter) GetAggregates(ctx context.Context, resolution int, cellIDs []string) ([]*entities.AggregatedCell, error) {
	if len(cellIDs) == 0 {
		return []*entities.AggregatedCell{}, nil
	}

	query := aggregateSelect +
		` WHERE g.resolution = $1 AND g.metric = $2 AND g.cell_id = ANY($3)` +
		aggregateTail

	rows, err := a.client.DB().QueryContext(ctx, query, resolution, a.metric, pq.Array(cellIDs))
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to query aggregates", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

// ListAggregates returns every aggregated cell at the resolution within the
// scope
func (a *CellAdapter) ListAggregates(ctx context.Context, resolution int, scope repositories.Scope) ([]*entities.AggregatedCell, error) {
	query := aggregateSelect + ` WHERE g.resolution = $1 AND g.metric = $2`
	args := []interface{}{resolution, a.metric}
	if !scope.IsGlobal() {
		query += ` AND g.country = $3`
		args = append(args, scope.Country)
	}
	query += aggregateTail

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list aggregates", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

// GetAllWeightedValues returns the weighted metric values of every cell in
// scope, for percentile cut point computation
func (a *CellAdapter) GetAllWeightedValues(ctx context.Context, resolution int, scope repositories.Scope) ([]float64, error) {
	aggregates, err := a.ListAggregates(ctx, resolution, scope)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(aggregates))
	for _, cell := range aggregates {
		values = append(values, cell.WeightedValue)
	}
	return values, nil
}

// SetNormalizedValue assigns the normalized percentile bucket of a cell
func (a *CellAdapter) SetNormalizedValue(ctx context.Context, cellID string, value float64) error {
	query, args, err := a.db.Insert("cell_normalization").
		Rows(goqu.Record{
			"cell_id":    cellID,
			"value":      value,
			"updated_at": goqu.L("NOW()"),
		}).
		OnConflict(goqu.DoUpdate(
			"cell_id",
			goqu.Record{
				"value":      goqu.L("EXCLUDED.value"),
				"updated_at": goqu.L("NOW()"),
			},
		)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build normalization query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewPersistenceError("failed to set normalized value", err)
	}
	return nil
}

func scanAggregates(rows *sql.Rows) ([]*entities.AggregatedCell, error) {
	var cells []*entities.AggregatedCell
	for rows.Next() {
		cell := &entities.AggregatedCell{}
		var normalized sql.NullFloat64

		err := rows.Scan(
			&cell.CellID,
			&cell.Resolution,
			&cell.Country,
			&cell.WeightedValue,
			&cell.TxCount,
			&cell.AvgConfidence,
			&cell.LastSeen,
			&normalized,
		)
		if err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan aggregate", err)
		}

		if normalized.Valid {
			value := normalized.Float64
			cell.NormalizedValue = &value
		}
		cells = append(cells, cell)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("failed to iterate aggregates", err)
	}
	return cells, nil
}
