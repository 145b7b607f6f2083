package ingest_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	"github.com/openpricemap/openpricemap/backend/internal/ingest"
)

func writeTransactions(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "price-paid.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func collect(t *testing.T, reader *ingest.PricePaidReader) []*entities.Transaction {
	t.Helper()
	var txs []*entities.Transaction
	require.NoError(t, reader.Stream(func(tx *entities.Transaction) {
		txs = append(txs, tx)
	}))
	return txs
}

func TestStream_ParsesRows(t *testing.T) {
	contents := `"{A1B2C3}",850000,2026-01-15 00:00,"SW1A 1AA",D,Y,F
"{D4E5F6}",450000,2026-02-10,"M1 1AE",F,N,L
`
	txs := collect(t, ingest.NewPricePaidReader(writeTransactions(t, contents)))
	require.Len(t, txs, 2)

	first := txs[0]
	assert.Equal(t, "A1B2C3", first.ID, "surrounding braces are stripped")
	assert.Equal(t, 850000.0, first.Price)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "SW1A 1AA", first.Postcode)
	assert.Equal(t, entities.PropertyDetached, first.PropertyType)
	assert.True(t, first.NewBuild)
	assert.Equal(t, entities.TenureFreehold, first.Tenure)

	second := txs[1]
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), second.Date, "date-only rows parse too")
	assert.Equal(t, entities.PropertyFlat, second.PropertyType)
	assert.False(t, second.NewBuild)
	assert.Equal(t, entities.TenureLeasehold, second.Tenure)
}

func TestStream_SkipsMalformedRows(t *testing.T) {
	contents := `id1,850000,2026-01-15,SW1A 1AA,D,N,F
id2,not-a-price,2026-01-15,SW1A 1AA,D,N,F
id3,850000,15/01/2026,SW1A 1AA,D,N,F
id4,850000,2026-01-15,,D,N,F
id5,850000
id6,450000,2026-02-10,M1 1AE,T,N,L
`
	txs := collect(t, ingest.NewPricePaidReader(writeTransactions(t, contents)))
	require.Len(t, txs, 2)
	assert.Equal(t, "id1", txs[0].ID)
	assert.Equal(t, "id6", txs[1].ID)
	assert.Equal(t, entities.PropertyTerraced, txs[1].PropertyType)
}

func TestStream_ShortRowDefaults(t *testing.T) {
	contents := "id1,850000,2026-01-15,SW1A 1AA\n"

	txs := collect(t, ingest.NewPricePaidReader(writeTransactions(t, contents)))
	require.Len(t, txs, 1)
	assert.Equal(t, entities.PropertyOther, txs[0].PropertyType)
	assert.Equal(t, entities.TenureUnknown, txs[0].Tenure)
	assert.False(t, txs[0].NewBuild)
}

func TestStream_MissingFile(t *testing.T) {
	reader := ingest.NewPricePaidReader(filepath.Join(t.TempDir(), "missing.csv"))
	err := reader.Stream(func(*entities.Transaction) {})
	assert.Error(t, err)
}
