// Package spatial adapts the H3 hierarchical hexagonal grid and the slippy
// map tiling scheme for the rest of the system. Higher H3 resolution means
// smaller, more numerous cells.
package spatial

import (
	"sort"

	"github.com/uber/h3-go/v4"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

// Average hexagon edge length in km per H3 resolution, used to pad viewport
// polyfills so cells whose center falls just outside the box are still
// captured.
var edgeKmByResolution = [16]float64{
	1107.712591, 418.6760055, 158.2446558, 59.81085794,
	22.6063794, 8.544408276, 3.229482772, 1.220629759,
	0.461354684, 0.174375668, 0.065907807, 0.024910561,
	0.009415526, 0.003559893, 0.001348575, 0.000509713,
}

const kmPerDegree = 111.32

// CellFor returns the id of the hex cell containing the coordinate at the
// given resolution. The mapping is deterministic; the id is the join key for
// aggregation and storage.
func CellFor(lat, lon float64, resolution int) string {
	return h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, resolution).String()
}

// ValidCell reports whether cellID parses to a valid hex cell
func ValidCell(cellID string) bool {
	return h3.Cell(h3.IndexFromString(cellID)).IsValid()
}

// ResolutionOf returns the resolution encoded in a cell id
func ResolutionOf(cellID string) (int, error) {
	cell := h3.Cell(h3.IndexFromString(cellID))
	if !cell.IsValid() {
		return 0, apperrors.NewGeometryError("invalid cell id: " + cellID)
	}
	return cell.Resolution(), nil
}

// BoundaryOf returns the cell's polygon ring as (lat, lon) vertices. The
// first vertex is repeated as the last one: downstream geometry
// serialization assumes explicitly closed rings.
func BoundaryOf(cellID string) ([]entities.Location, error) {
	cell := h3.Cell(h3.IndexFromString(cellID))
	if !cell.IsValid() {
		return nil, apperrors.NewGeometryError("invalid cell id: " + cellID)
	}

	boundary := h3.CellToBoundary(cell)
	if len(boundary) == 0 {
		return nil, apperrors.NewGeometryError("empty boundary for cell " + cellID)
	}

	ring := make([]entities.Location, 0, len(boundary)+1)
	for _, vertex := range boundary {
		ring = append(ring, entities.Location{Latitude: vertex.Lat, Longitude: vertex.Lng})
	}
	ring = append(ring, ring[0])
	return ring, nil
}

// FillBBox enumerates the cells at the given resolution that cover the
// bounding box. The box is padded by one average hexagon edge so cells
// overlapping the edges are included, and the result is sorted for
// deterministic tile content.
func FillBBox(box BBox, resolution int) []string {
	pad := 0.0
	if resolution >= 0 && resolution < len(edgeKmByResolution) {
		pad = edgeKmByResolution[resolution] / kmPerDegree
	}

	loop := h3.GeoLoop{
		{Lat: box.South - pad, Lng: box.West - pad},
		{Lat: box.South - pad, Lng: box.East + pad},
		{Lat: box.North + pad, Lng: box.East + pad},
		{Lat: box.North + pad, Lng: box.West - pad},
	}

	cells := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: loop}, resolution)

	ids := make([]string, 0, len(cells))
	for _, cell := range cells {
		ids = append(ids, cell.String())
	}
	sort.Strings(ids)
	return ids
}
