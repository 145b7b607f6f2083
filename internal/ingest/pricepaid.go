// Package ingest reads raw property transaction dumps into domain records.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
)

// Price-paid dumps use both date-only and datetime forms.
var dateLayouts = []string{"2006-01-02 15:04", "2006-01-02"}

// PricePaidReader streams UK price-paid style CSV rows as transactions.
// Expected columns: id, price, date, postcode, property type (D/S/T/F/O),
// new build (Y/N), tenure (F/L).
type PricePaidReader struct {
	path string
}

// NewPricePaidReader creates a reader for the given CSV file
func NewPricePaidReader(path string) *PricePaidReader {
	return &PricePaidReader{path: path}
}

// Stream reads the file row by row, invoking fn for every well-formed
// transaction. Malformed rows are counted and skipped, never fatal.
func (r *PricePaidReader) Stream(fn func(tx *entities.Transaction)) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open transactions file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, malformed := 0, 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read transactions file: %w", err)
		}

		rows++
		tx, ok := parseRow(record)
		if !ok {
			malformed++
			continue
		}
		fn(tx)
	}

	log.Info().Int("rows", rows).Int("malformed", malformed).
		Str("path", r.path).Msg("streamed transactions")

	return nil
}

func parseRow(record []string) (*entities.Transaction, bool) {
	if len(record) < 4 {
		return nil, false
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return nil, false
	}

	date, ok := parseDate(strings.TrimSpace(record[2]))
	if !ok {
		return nil, false
	}

	postcode := strings.TrimSpace(record[3])
	if postcode == "" {
		return nil, false
	}

	tx := &entities.Transaction{
		ID:           strings.Trim(strings.TrimSpace(record[0]), "{}"),
		Price:        price,
		Date:         date,
		Postcode:     postcode,
		PropertyType: entities.PropertyOther,
		Tenure:       entities.TenureUnknown,
	}

	if len(record) > 4 {
		tx.PropertyType = propertyTypeFor(strings.TrimSpace(record[4]))
	}
	if len(record) > 5 {
		tx.NewBuild = strings.EqualFold(strings.TrimSpace(record[5]), "Y")
	}
	if len(record) > 6 {
		tx.Tenure = tenureFor(strings.TrimSpace(record[6]))
	}
	return tx, true
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

func propertyTypeFor(code string) entities.PropertyType {
	switch strings.ToUpper(code) {
	case "D":
		return entities.PropertyDetached
	case "S":
		return entities.PropertySemiDetached
	case "T":
		return entities.PropertyTerraced
	case "F":
		return entities.PropertyFlat
	default:
		return entities.PropertyOther
	}
}

func tenureFor(code string) entities.Tenure {
	switch strings.ToUpper(code) {
	case "F":
		return entities.TenureFreehold
	case "L":
		return entities.TenureLeasehold
	default:
		return entities.TenureUnknown
	}
}
