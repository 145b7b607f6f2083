package repositories

import (
	"context"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
)

// Scope restricts a normalization pass to one country. The zero value means
// global scope.
type Scope struct {
	Country string
}

// IsGlobal reports whether the scope covers every cell
func (s Scope) IsGlobal() bool {
	return s.Country == ""
}

// CellRepository is the persistence contract for per-cell aggregates
type CellRepository interface {
	// UpsertCells replaces the rows for the given (cell id, source, metric)
	// keys in a single transaction: all rows commit or none do.
	UpsertCells(ctx context.Context, cells []*entities.GeoCell) error

	// GetAggregates returns the cross-source aggregated view of the given
	// cell ids at one resolution. Cells with a zero confidence sum are
	// excluded.
	GetAggregates(ctx context.Context, resolution int, cellIDs []string) ([]*entities.AggregatedCell, error)

	// ListAggregates returns every aggregated cell at the resolution within
	// the scope, ordered by cell id.
	ListAggregates(ctx context.Context, resolution int, scope Scope) ([]*entities.AggregatedCell, error)

	// GetAllWeightedValues returns the weighted metric values of every cell
	// in scope, for percentile cut point computation.
	GetAllWeightedValues(ctx context.Context, resolution int, scope Scope) ([]float64, error)

	// SetNormalizedValue assigns the normalized percentile bucket of a cell
	SetNormalizedValue(ctx context.Context, cellID string, value float64) error
}
