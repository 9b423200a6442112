// Package testutil writes small Parquet fixtures shaped like the dashboard inputs.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/require"
)

type Transfer struct {
	Supplier    string
	Recipient   string
	YearStart   int64
	YearEnd     int64
	Delivered   int64
	Designation string
	Category    string
	TIV         float64
	Company     string
	Origin      string
	Capital     string
	Lat         float64
	Lon         float64
}

type Rank struct {
	Recipient string
	Period    string
	Rank      int64
	Share     float64
	TIV       float64
}

// SampleTransfers is deliberately not sorted by supplier.
//
// 2014-2021: 3 rows, 3 suppliers, 115 delivered, TIV 31.
// 2022-2024: 5 rows, 3 suppliers, 362 delivered, TIV 1090.
func SampleTransfers() []Transfer {
	const (
		dc     = "Washington, D.C."
		dcLat  = 38.9072
		dcLon  = -77.0369
		waw    = "Warsaw"
		wawLat = 52.2297
		wawLon = 21.0122
		ber    = "Berlin"
		berLat = 52.52
		berLon = 13.405
	)
	return []Transfer{
		{"United States", "Ukraine", 2022, 2023, 38, "HIMARS", "Artillery", 400, "Lockheed Martin", "United States", dc, dcLat, dcLon},
		{"United States", "Ukraine", 2023, 2024, 31, "M1A1 Abrams", "Armoured vehicles", 300, "General Dynamics", "United States", dc, dcLat, dcLon},
		{"United States", "Ukraine", 2015, 2016, 10, "AN/TPQ-36", "Sensors", 20, "ThalesRaytheon", "United States", dc, dcLat, dcLon},
		{"Poland", "Ukraine", 2022, 2022, 250, "T-72M1", "Armoured vehicles", 150, "Rostec", "Soviet Union", waw, wawLat, wawLon},
		{"Poland", "Ukraine", 2018, 2019, 5, "Mi-8MT", "Aircraft", 10, "Rostec", "Soviet Union", waw, wawLat, wawLon},
		{"Germany", "Ukraine", 2023, 2024, 40, "Leopard-2A6", "Armoured vehicles", 100, "KNDS", "Germany", ber, berLat, berLon},
		{"Lithuania", "Ukraine", 2014, 2014, 100, "Carl Gustaf", "Missiles", 1, "Saab", "Sweden", "Vilnius", 54.6872, 25.2797},
		{"Germany", "Ukraine", 2022, 2022, 3, "IRIS-T SLM", "Air defence systems", 140, "Diehl", "Germany", ber, berLat, berLon},
	}
}

func SampleRanks() []Rank {
	return []Rank{
		{"Ukraine", "2014-2021", 44, 0.1, 31},
		{"Ukraine", "2022-2024", 1, 8.8, 1090},
	}
}

func stringArray(vals []string) arrow.Array {
	b := array.NewStringBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(vals, nil)
	return b.NewArray()
}

func int64Array(vals []int64) arrow.Array {
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(vals, nil)
	return b.NewArray()
}

func float64Array(vals []float64) arrow.Array {
	b := array.NewFloat64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(vals, nil)
	return b.NewArray()
}

// Column is one named column of a fixture table.
type Column struct {
	Name  string
	Array arrow.Array
}

func Strings(name string, vals ...string) Column   { return Column{name, stringArray(vals)} }
func Int64s(name string, vals ...int64) Column     { return Column{name, int64Array(vals)} }
func Float64s(name string, vals ...float64) Column { return Column{name, float64Array(vals)} }

// WriteTable writes the columns as a Parquet file under t.TempDir and returns its path.
func WriteTable(t testing.TB, cols ...Column) string {
	t.Helper()

	fields := make([]arrow.Field, len(cols))
	arrs := make([]arrow.Array, len(cols))
	var rows int64
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Array.DataType(), Nullable: true}
		arrs[i] = c.Array
		rows = int64(c.Array.Len())
	}
	schema := arrow.NewSchema(fields, nil)

	rec := array.NewRecord(schema, arrs, rows)
	defer rec.Release()
	for _, a := range arrs {
		a.Release()
	}

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	err := pqarrow.WriteTable(tbl, &buf, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fixture.parquet")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// TransferColumns lays rows out in the trade register's column order.
func TransferColumns(rows []Transfer) []Column {
	var (
		sup, rec, des, cat, comp, orig, capt []string
		ys, ye, del                          []int64
		tiv, lat, lon                        []float64
	)
	for _, r := range rows {
		sup = append(sup, r.Supplier)
		rec = append(rec, r.Recipient)
		ys = append(ys, r.YearStart)
		ye = append(ye, r.YearEnd)
		del = append(del, r.Delivered)
		des = append(des, r.Designation)
		cat = append(cat, r.Category)
		tiv = append(tiv, r.TIV)
		comp = append(comp, r.Company)
		orig = append(orig, r.Origin)
		capt = append(capt, r.Capital)
		lat = append(lat, r.Lat)
		lon = append(lon, r.Lon)
	}
	return []Column{
		Strings("Supplier", sup...),
		Strings("Recipient", rec...),
		Int64s("Delivery year start", ys...),
		Int64s("Delivery year end", ye...),
		Int64s("Delivery number", del...),
		Strings("Weapon designation", des...),
		Strings("Weapon category", cat...),
		Float64s("SIPRI TIV of delivered weapons", tiv...),
		Strings("Company", comp...),
		Strings("Country of origin", orig...),
		Strings("Supplier capital", capt...),
		Float64s("capital_lat", lat...),
		Float64s("capital_lon", lon...),
	}
}

func WriteTransfers(t testing.TB, rows []Transfer) string {
	t.Helper()
	return WriteTable(t, TransferColumns(rows)...)
}

func WriteRanks(t testing.TB, rows []Rank) string {
	t.Helper()

	var (
		rec, per   []string
		rank       []int64
		share, tiv []float64
	)
	for _, r := range rows {
		rec = append(rec, r.Recipient)
		per = append(per, r.Period)
		rank = append(rank, r.Rank)
		share = append(share, r.Share)
		tiv = append(tiv, r.TIV)
	}
	return WriteTable(t,
		Strings("Recipient", rec...),
		Strings("Period", per...),
		Int64s("Rank", rank...),
		Float64s("Share of global arms imports", share...),
		Float64s("SIPRI TIV", tiv...),
	)
}
