package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	"github.com/openpricemap/openpricemap/backend/internal/domain/repositories"
	"github.com/openpricemap/openpricemap/backend/internal/spatial"
	"github.com/openpricemap/openpricemap/backend/pkg/config"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

// Normalized value served for cells the normalizer pass has not covered yet
const defaultNormalizedValue = 0.5

// TileService resolves a map viewport to a serialized collection of grid
// cell features. It is a stateless read path; it never mutates persisted
// state.
type TileService struct {
	cells repositories.CellRepository
	cfg   config.TilesConfig
	now   func() time.Time
}

// NewTileService creates a new tile service
func NewTileService(cells repositories.CellRepository, cfg config.TilesConfig) *TileService {
	return &TileService{cells: cells, cfg: cfg, now: time.Now}
}

// GetTile builds the feature collection for one slippy map tile. Candidate
// cells beyond the per-tile cap are silently dropped, and a boundary failure
// drops only that feature. A storage failure degrades to an empty, well
// formed collection rather than failing the request.
func (s *TileService) GetTile(ctx context.Context, z, x, y int) (*entities.FeatureCollection, error) {
	if !spatial.ValidTile(z, x, y) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid tile coordinates %d/%d/%d", z, x, y))
	}

	box := spatial.TileBBox(z, x, y)
	resolution := spatial.ResolutionForZoom(z)

	cellIDs := spatial.FillBBox(box, resolution)
	if len(cellIDs) > s.cfg.MaxCellsPerTile {
		cellIDs = cellIDs[:s.cfg.MaxCellsPerTile]
	}

	aggregates, err := s.cells.GetAggregates(ctx, resolution, cellIDs)
	if err != nil {
		log.Error().Err(err).Int("z", z).Int("x", x).Int("y", y).
			Msg("aggregate fetch failed, serving empty tile")
		return entities.NewFeatureCollection(), nil
	}

	now := s.now().UTC()
	collection := entities.NewFeatureCollection()
	for _, cell := range aggregates {
		feature, err := s.buildFeature(cell, now)
		if err != nil {
			log.Warn().Err(err).Str("cell_id", cell.CellID).Msg("dropping cell with bad geometry")
			continue
		}
		collection.Features = append(collection.Features, feature)
	}
	return collection, nil
}

func (s *TileService) buildFeature(cell *entities.AggregatedCell, now time.Time) (*entities.Feature, error) {
	ring, err := spatial.BoundaryOf(cell.CellID)
	if err != nil {
		return nil, err
	}

	// GeoJSON positions are (longitude, latitude)
	coordinates := make([][2]float64, 0, len(ring))
	for _, vertex := range ring {
		coordinates = append(coordinates, [2]float64{vertex.Longitude, vertex.Latitude})
	}

	normalized := defaultNormalizedValue
	if cell.NormalizedValue != nil {
		normalized = *cell.NormalizedValue
	}

	return &entities.Feature{
		Type: "Feature",
		Geometry: entities.Geometry{
			Type:        "Polygon",
			Coordinates: [][][2]float64{coordinates},
		},
		Properties: map[string]interface{}{
			"h3_index":   cell.CellID,
			"resolution": cell.Resolution,
			"price":      cell.WeightedValue,
			"count":      cell.TxCount,
			"confidence": cell.AvgConfidence,
			"value":      normalized,
			"freshness":  cell.FreshnessAt(now),
		},
	}, nil
}

// TTLForZoom returns the cache TTL in seconds for a zoom level. Coarse tiles
// change far less often per byte served, so they cache longer.
func (s *TileService) TTLForZoom(zoom int) int {
	if zoom <= 10 {
		return s.cfg.CoarseTTL
	}
	return s.cfg.FineTTL
}
