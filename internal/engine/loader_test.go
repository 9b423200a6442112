package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armsdash/internal/testutil"
)

func loadSample(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Load(context.Background(),
		testutil.WriteTransfers(t, testutil.SampleTransfers()),
		testutil.WriteRanks(t, testutil.SampleRanks()),
	)
	require.NoError(t, err)
	return ds
}

func TestLoadTransfers(t *testing.T) {
	path := testutil.WriteTransfers(t, testutil.SampleTransfers())

	store, err := LoadTransfers(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 8, store.Len())
	assert.Equal(t, TransferColumns, store.Columns)

	// Sorted by supplier, then delivery year start.
	var got []string
	for i := 0; i < store.Len(); i++ {
		got = append(got, store.SupplierDict[store.SupplierIDs[i]]+"/"+store.Designations[i])
	}
	assert.Equal(t, []string{
		"Germany/IRIS-T SLM",
		"Germany/Leopard-2A6",
		"Lithuania/Carl Gustaf",
		"Poland/Mi-8MT",
		"Poland/T-72M1",
		"United States/AN/TPQ-36",
		"United States/HIMARS",
		"United States/M1A1 Abrams",
	}, got)

	// Dictionary Checks
	assert.Equal(t, []string{"Germany", "Lithuania", "Poland", "United States"}, store.SupplierDict)
	assert.Len(t, store.CategoryDict, 6)
	assert.Equal(t, []string{"Ukraine"}, store.RecipientDict)

	// Row 0 Check
	assert.Equal(t, int32(2022), store.YearStart[0])
	assert.Equal(t, int64(3), store.Delivered[0])
	assert.Equal(t, 140.0, store.TIV[0])
	assert.Equal(t, "Berlin", store.CapitalDict[store.CapitalIDs[0]])
	assert.InDelta(t, 52.52, store.CapitalLat[0], 1e-9)
}

func TestLoadRanks(t *testing.T) {
	ranks, err := LoadRanks(context.Background(), testutil.WriteRanks(t, testutil.SampleRanks()))
	require.NoError(t, err)

	assert.Equal(t, RankColumns, ranks.Columns)
	require.Len(t, ranks.Rows, 2)

	row, ok := ranks.ForPeriod("2022-2024")
	require.True(t, ok)
	assert.Equal(t, 1, row.Rank)
	assert.Equal(t, 8.8, row.Share)
	assert.Equal(t, "Ukraine", row.Recipient)

	_, ok = ranks.ForPeriod("1990-1999")
	assert.False(t, ok)
}

func TestLoadIntegralFloats(t *testing.T) {
	cols := testutil.TransferColumns(testutil.SampleTransfers()[:2])
	// pandas writes nullable integers as doubles.
	cols[4] = testutil.Float64s(ColDeliveryNumber, 38, 31)

	store, err := LoadTransfers(context.Background(), testutil.WriteTable(t, cols...))
	require.NoError(t, err)
	assert.Equal(t, []int64{38, 31}, store.Delivered)
}

func TestLoadErrors(t *testing.T) {
	sample := testutil.SampleTransfers()[:2]

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTransfers(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing column", func(t *testing.T) {
		cols := testutil.TransferColumns(sample)
		_, err := LoadTransfers(context.Background(), testutil.WriteTable(t, cols[:12]...))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("string in numeric column", func(t *testing.T) {
		cols := testutil.TransferColumns(sample)
		cols[7] = testutil.Strings(ColTIV, "400", "300")
		_, err := LoadTransfers(context.Background(), testutil.WriteTable(t, cols...))
		assert.ErrorIs(t, err, ErrColumnType)
	})

	t.Run("fractional count", func(t *testing.T) {
		cols := testutil.TransferColumns(sample)
		cols[4] = testutil.Float64s(ColDeliveryNumber, 1.5, 2)
		_, err := LoadTransfers(context.Background(), testutil.WriteTable(t, cols...))
		assert.ErrorIs(t, err, ErrColumnType)
	})

	t.Run("ranks missing tiv", func(t *testing.T) {
		path := testutil.WriteTable(t,
			testutil.Strings(ColRankRecipient, "Ukraine"),
			testutil.Strings(ColPeriod, "2014-2021"),
			testutil.Int64s(ColRank, 44),
			testutil.Float64s(ColShare, 0.1),
		)
		_, err := Load(context.Background(), testutil.WriteTransfers(t, sample), path)
		assert.ErrorIs(t, err, ErrMissingColumn)
	})
}

// The shipped data files are not part of the repository; run with them in ../../data.
func TestShippedDataShape(t *testing.T) {
	transfers := filepath.Join("..", "..", "data", "trade_register_processed.parquet")
	ranks := filepath.Join("..", "..", "data", "ukraine_importer_rank_by_period.parquet")
	if _, err := os.Stat(transfers); err != nil {
		t.Skip("shipped data not present")
	}

	ds, err := Load(context.Background(), transfers, ranks)
	require.NoError(t, err)

	assert.Equal(t, 415, ds.Transfers.Len())
	assert.Len(t, ds.Transfers.Columns, 13)
	assert.ElementsMatch(t, TransferColumns, ds.Transfers.Columns)
	assert.Len(t, ds.Ranks.Rows, 2)
	assert.ElementsMatch(t, RankColumns, ds.Ranks.Columns)
}
