package providers

import (
	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
)

// ResolvedLocation is the result of a successful location key lookup
type ResolvedLocation struct {
	Location entities.Location
	Country  string
}

// GeocodeProvider maps an external location key to coordinates. Lookups are
// backed by an immutable preloaded index; a miss is deterministic and
// non-fatal, callers skip the record.
type GeocodeProvider interface {
	Resolve(locationKey string) (ResolvedLocation, bool)
}
