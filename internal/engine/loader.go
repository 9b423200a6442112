package engine

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"armsdash/internal/models"
)

// --- 1. ARROW COLUMN READERS ---

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

type valuer[T number] interface {
	Len() int
	IsNull(i int) bool
	Value(i int) T
}

func appendNumbers[T number](out []float64, a valuer[T]) []float64 {
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) {
			out = append(out, 0)
			continue
		}
		out = append(out, float64(a.Value(i)))
	}
	return out
}

type stringValuer interface {
	Len() int
	IsNull(i int) bool
	Value(i int) string
}

func appendStrings(out []string, a stringValuer) []string {
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) {
			out = append(out, "")
			continue
		}
		// Value aliases the Arrow buffer.
		out = append(out, strings.Clone(a.Value(i)))
	}
	return out
}

func lookup(tbl arrow.Table, name string) (*arrow.Column, error) {
	idx := tbl.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return tbl.Column(idx[0]), nil
}

func stringColumn(tbl arrow.Table, name string) ([]string, error) {
	col, err := lookup(tbl, name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, tbl.NumRows())
	for _, chunk := range col.Data().Chunks() {
		switch a := chunk.(type) {
		case *array.String:
			out = appendStrings(out, a)
		case *array.LargeString:
			out = appendStrings(out, a)
		case *array.Dictionary:
			values, ok := a.Dictionary().(stringValuer)
			if !ok {
				return nil, fmt.Errorf("%w: %q is %s", ErrColumnType, name, chunk.DataType())
			}
			for i := 0; i < a.Len(); i++ {
				if a.IsNull(i) {
					out = append(out, "")
					continue
				}
				out = append(out, strings.Clone(values.Value(a.GetValueIndex(i))))
			}
		default:
			return nil, fmt.Errorf("%w: %q is %s", ErrColumnType, name, chunk.DataType())
		}
	}
	return out, nil
}

func floatColumn(tbl arrow.Table, name string) ([]float64, error) {
	col, err := lookup(tbl, name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, tbl.NumRows())
	for _, chunk := range col.Data().Chunks() {
		switch a := chunk.(type) {
		case *array.Int8:
			out = appendNumbers[int8](out, a)
		case *array.Int16:
			out = appendNumbers[int16](out, a)
		case *array.Int32:
			out = appendNumbers[int32](out, a)
		case *array.Int64:
			out = appendNumbers[int64](out, a)
		case *array.Uint8:
			out = appendNumbers[uint8](out, a)
		case *array.Uint16:
			out = appendNumbers[uint16](out, a)
		case *array.Uint32:
			out = appendNumbers[uint32](out, a)
		case *array.Uint64:
			out = appendNumbers[uint64](out, a)
		case *array.Float32:
			out = appendNumbers[float32](out, a)
		case *array.Float64:
			out = appendNumbers[float64](out, a)
		default:
			return nil, fmt.Errorf("%w: %q is %s", ErrColumnType, name, chunk.DataType())
		}
	}
	return out, nil
}

// intColumn accepts float columns too (pandas stores nullable ints as doubles),
// as long as every value is integral.
func intColumn(tbl arrow.Table, name string) ([]int64, error) {
	vals, err := floatColumn(tbl, name)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(vals))
	for i, v := range vals {
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %q row %d holds non-integer %v", ErrColumnType, name, i, v)
		}
		out[i] = int64(v)
	}
	return out, nil
}

func readTable(ctx context.Context, path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	mem := memory.DefaultAllocator
	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return tbl, nil
}

func columnNames(tbl arrow.Table) []string {
	fields := tbl.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// --- 2. MAIN LOADERS ---

type rawTransfers struct {
	suppliers, recipients, designations, categories []string
	companies, origins, capitals                    []string
	yearStart, yearEnd, delivered                   []int64
	tiv, lat, lon                                   []float64
}

func readTransfers(tbl arrow.Table) (*rawTransfers, error) {
	raw := &rawTransfers{}
	var err error

	strs := []struct {
		name string
		dst  *[]string
	}{
		{ColSupplier, &raw.suppliers},
		{ColRecipient, &raw.recipients},
		{ColWeaponDesignation, &raw.designations},
		{ColWeaponCategory, &raw.categories},
		{ColCompany, &raw.companies},
		{ColCountryOfOrigin, &raw.origins},
		{ColSupplierCapital, &raw.capitals},
	}
	for _, c := range strs {
		if *c.dst, err = stringColumn(tbl, c.name); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		name string
		dst  *[]int64
	}{
		{ColDeliveryYearStart, &raw.yearStart},
		{ColDeliveryYearEnd, &raw.yearEnd},
		{ColDeliveryNumber, &raw.delivered},
	}
	for _, c := range ints {
		if *c.dst, err = intColumn(tbl, c.name); err != nil {
			return nil, err
		}
	}

	floats := []struct {
		name string
		dst  *[]float64
	}{
		{ColTIV, &raw.tiv},
		{ColCapitalLat, &raw.lat},
		{ColCapitalLon, &raw.lon},
	}
	for _, c := range floats {
		if *c.dst, err = floatColumn(tbl, c.name); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// LoadTransfers reads the trade register into a column store sorted by
// supplier and delivery year start.
func LoadTransfers(ctx context.Context, path string) (*TransferStore, error) {
	start := time.Now()

	tbl, err := readTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	raw, err := readTransfers(tbl)
	if err != nil {
		return nil, fmt.Errorf("load transfers: %w", err)
	}

	totalRows := int(tbl.NumRows())

	order := make([]int, totalRows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := order[a], order[b]
		if raw.suppliers[ra] != raw.suppliers[rb] {
			return raw.suppliers[ra] < raw.suppliers[rb]
		}
		return raw.yearStart[ra] < raw.yearStart[rb]
	})

	// Allocate Store ONCE
	store := &TransferStore{
		YearStart:    make([]int32, totalRows),
		YearEnd:      make([]int32, totalRows),
		Delivered:    make([]int64, totalRows),
		TIV:          make([]float64, totalRows),
		CapitalLat:   make([]float64, totalRows),
		CapitalLon:   make([]float64, totalRows),
		Designations: make([]string, totalRows),
		SupplierIDs:  make([]int32, totalRows),
		RecipientIDs: make([]int32, totalRows),
		CategoryIDs:  make([]int32, totalRows),
		CompanyIDs:   make([]int32, totalRows),
		OriginIDs:    make([]int32, totalRows),
		CapitalIDs:   make([]int32, totalRows),
		Columns:      columnNames(tbl),
	}

	sup, rec, cat := newDictBuilder(), newDictBuilder(), newDictBuilder()
	comp, orig, capt := newDictBuilder(), newDictBuilder(), newDictBuilder()

	for row, src := range order {
		store.YearStart[row] = int32(raw.yearStart[src])
		store.YearEnd[row] = int32(raw.yearEnd[src])
		store.Delivered[row] = raw.delivered[src]
		store.TIV[row] = raw.tiv[src]
		store.CapitalLat[row] = raw.lat[src]
		store.CapitalLon[row] = raw.lon[src]
		store.Designations[row] = raw.designations[src]

		store.SupplierIDs[row] = sup.id(raw.suppliers[src])
		store.RecipientIDs[row] = rec.id(raw.recipients[src])
		store.CategoryIDs[row] = cat.id(raw.categories[src])
		store.CompanyIDs[row] = comp.id(raw.companies[src])
		store.OriginIDs[row] = orig.id(raw.origins[src])
		store.CapitalIDs[row] = capt.id(raw.capitals[src])
	}

	store.SupplierDict = sup.list
	store.RecipientDict = rec.list
	store.CategoryDict = cat.list
	store.CompanyDict = comp.list
	store.OriginDict = orig.list
	store.CapitalDict = capt.list

	log.WithFields(log.Fields{
		"path":      path,
		"rows":      totalRows,
		"suppliers": len(store.SupplierDict),
		"took":      time.Since(start),
	}).Info("trade register loaded")

	return store, nil
}

// LoadRanks reads the per-period importer rank summary.
func LoadRanks(ctx context.Context, path string) (*RankTable, error) {
	tbl, err := readTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	recipients, err := stringColumn(tbl, ColRankRecipient)
	if err != nil {
		return nil, fmt.Errorf("load ranks: %w", err)
	}
	periods, err := stringColumn(tbl, ColPeriod)
	if err != nil {
		return nil, fmt.Errorf("load ranks: %w", err)
	}
	ranks, err := intColumn(tbl, ColRank)
	if err != nil {
		return nil, fmt.Errorf("load ranks: %w", err)
	}
	shares, err := floatColumn(tbl, ColShare)
	if err != nil {
		return nil, fmt.Errorf("load ranks: %w", err)
	}
	tivs, err := floatColumn(tbl, ColRankTIV)
	if err != nil {
		return nil, fmt.Errorf("load ranks: %w", err)
	}

	rt := &RankTable{
		Rows:    make([]models.RankRow, len(periods)),
		Columns: columnNames(tbl),
	}
	for i := range periods {
		rt.Rows[i] = models.RankRow{
			Recipient: recipients[i],
			Period:    periods[i],
			Rank:      int(ranks[i]),
			Share:     shares[i],
			TIV:       tivs[i],
		}
	}

	log.WithFields(log.Fields{"path": path, "rows": len(rt.Rows)}).Info("importer ranks loaded")
	return rt, nil
}

// Load reads both tables concurrently.
func Load(ctx context.Context, transfersPath, ranksPath string) (*Dataset, error) {
	ds := &Dataset{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		store, err := LoadTransfers(ctx, transfersPath)
		if err != nil {
			return err
		}
		ds.Transfers = store
		return nil
	})
	g.Go(func() error {
		ranks, err := LoadRanks(ctx, ranksPath)
		if err != nil {
			return err
		}
		ds.Ranks = ranks
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}
