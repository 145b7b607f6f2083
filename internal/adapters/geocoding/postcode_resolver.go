package geocoding

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	"github.com/openpricemap/openpricemap/backend/internal/domain/providers"
)

// PostcodeResolver maps postcodes to centroid coordinates using an immutable
// preloaded index. It implements providers.GeocodeProvider.
type PostcodeResolver struct {
	index map[string]providers.ResolvedLocation
}

// NewPostcodeResolver builds a resolver from an in-memory index. Keys are
// normalized on insertion so lookups tolerate formatting variance.
func NewPostcodeResolver(index map[string]providers.ResolvedLocation) *PostcodeResolver {
	normalized := make(map[string]providers.ResolvedLocation, len(index))
	for key, loc := range index {
		normalized[NormalizeKey(key)] = loc
	}
	return &PostcodeResolver{index: normalized}
}

// LoadPostcodeIndex reads a postcode centroid CSV (postcode, latitude,
// longitude, optional country) into a resolver. Rows that do not parse are
// skipped.
func LoadPostcodeIndex(path string) (*PostcodeResolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open postcode index: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	index := make(map[string]providers.ResolvedLocation)
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read postcode index: %w", err)
		}
		if len(record) < 3 {
			skipped++
			continue
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if latErr != nil || lonErr != nil {
			// Header row or malformed coordinates
			skipped++
			continue
		}

		resolved := providers.ResolvedLocation{
			Location: entities.Location{Latitude: lat, Longitude: lon},
		}
		if len(record) > 3 {
			resolved.Country = strings.TrimSpace(record[3])
		}
		index[NormalizeKey(record[0])] = resolved
	}

	log.Info().Int("postcodes", len(index)).Int("skipped", skipped).Str("path", path).
		Msg("loaded postcode index")

	return &PostcodeResolver{index: index}, nil
}

// Resolve looks up a postcode, normalizing it first. A miss means the
// postcode is absent from the loaded index; there is nothing to retry.
func (r *PostcodeResolver) Resolve(locationKey string) (providers.ResolvedLocation, bool) {
	resolved, ok := r.index[NormalizeKey(locationKey)]
	return resolved, ok
}

// Len returns the number of postcodes in the index
func (r *PostcodeResolver) Len() int {
	return len(r.index)
}

// NormalizeKey strips all whitespace and upper-cases a location key, so
// "sw1a 1aa" and "SW1A1AA" hit the same entry.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.Join(strings.Fields(key), ""))
}
