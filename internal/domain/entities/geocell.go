package entities

import "time"

// Freshness classifies how recently a cell last saw a transaction
type Freshness string

const (
	FreshnessFresh  Freshness = "fresh"
	FreshnessRecent Freshness = "recent"
	FreshnessStale  Freshness = "stale"
)

const (
	freshWindow  = 90 * 24 * time.Hour
	recentWindow = 365 * 24 * time.Hour
)

// GeoCell is the per-run aggregate for one (cell id, source, metric) key.
// Each pipeline run fully replaces the previous row for that key; aggregates
// are never blended across runs.
type GeoCell struct {
	CellID     string    `json:"cell_id" db:"cell_id"`
	Resolution int       `json:"resolution" db:"resolution"`
	Country    string    `json:"country,omitempty" db:"country"`
	Region     string    `json:"region,omitempty" db:"region"`
	Source     string    `json:"source" db:"source"`
	Metric     string    `json:"metric" db:"metric"`
	Value      float64   `json:"value" db:"value"`
	TxCount    int       `json:"tx_count" db:"tx_count"`
	Confidence float64   `json:"confidence" db:"confidence"`
	FirstSeen  time.Time `json:"first_seen" db:"first_seen"`
	LastSeen   time.Time `json:"last_seen" db:"last_seen"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// AggregatedCell is the cross-source view of one cell: a confidence-weighted
// average of the contributing GeoCell values plus the normalized percentile
// bucket assigned by the normalizer pass.
type AggregatedCell struct {
	CellID        string    `json:"cell_id" db:"cell_id"`
	Resolution    int       `json:"resolution" db:"resolution"`
	Country       string    `json:"country,omitempty" db:"country"`
	WeightedValue float64   `json:"weighted_value" db:"weighted_value"`
	TxCount       int       `json:"tx_count" db:"tx_count"`
	AvgConfidence float64   `json:"avg_confidence" db:"avg_confidence"`
	LastSeen      time.Time `json:"last_seen" db:"last_seen"`

	// NormalizedValue is nil until the normalizer pass has run for the
	// cell's scope; readers coerce nil to the mid-scale default.
	NormalizedValue *float64 `json:"normalized_value,omitempty" db:"normalized_value"`
}

// FreshnessAt classifies the cell's data age relative to now
func (c *AggregatedCell) FreshnessAt(now time.Time) Freshness {
	age := now.Sub(c.LastSeen)
	switch {
	case age <= freshWindow:
		return FreshnessFresh
	case age <= recentWindow:
		return FreshnessRecent
	default:
		return FreshnessStale
	}
}
