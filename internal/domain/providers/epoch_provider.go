package providers

import "context"

// TileEpochProvider tracks the batch epoch of tile content. The pipeline
// bumps the epoch when a run completes; tile cache keys embed the current
// epoch so stale entries stop being served in one step.
type TileEpochProvider interface {
	Current(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
}
