package entities

import "time"

// RunStatus is the lifecycle state of a pipeline run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunStats counts per-row outcomes of a pipeline run. Skipped rows are data
// quality rejections; they never abort the run.
type RunStats struct {
	Processed      int `json:"processed" db:"processed"`
	SkippedPrice   int `json:"skipped_price" db:"skipped_price"`
	SkippedGeocode int `json:"skipped_geocode" db:"skipped_geocode"`
	Cells          int `json:"cells" db:"cells"`
}

// PipelineRun is the operator-visible record of one aggregation run
type PipelineRun struct {
	ID         string     `json:"id" db:"id"`
	Source     string     `json:"source" db:"source"`
	Metric     string     `json:"metric" db:"metric"`
	Resolution int        `json:"resolution" db:"resolution"`
	Status     RunStatus  `json:"status" db:"status"`
	Stats      RunStats   `json:"stats"`
	Error      string     `json:"error,omitempty" db:"error"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
