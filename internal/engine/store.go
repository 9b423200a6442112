package engine

import (
	"armsdash/internal/models"
)

// Parquet column names of the trade register.
const (
	ColSupplier          = "Supplier"
	ColRecipient         = "Recipient"
	ColDeliveryYearStart = "Delivery year start"
	ColDeliveryYearEnd   = "Delivery year end"
	ColDeliveryNumber    = "Delivery number"
	ColWeaponDesignation = "Weapon designation"
	ColWeaponCategory    = "Weapon category"
	ColTIV               = "SIPRI TIV of delivered weapons"
	ColCompany           = "Company"
	ColCountryOfOrigin   = "Country of origin"
	ColSupplierCapital   = "Supplier capital"
	ColCapitalLat        = "capital_lat"
	ColCapitalLon        = "capital_lon"
)

// Parquet column names of the importer rank summary.
const (
	ColRankRecipient = "Recipient"
	ColPeriod        = "Period"
	ColRank          = "Rank"
	ColShare         = "Share of global arms imports"
	ColRankTIV       = "SIPRI TIV"
)

// TransferColumns is the column set the trade register must carry.
var TransferColumns = []string{
	ColSupplier, ColRecipient, ColDeliveryYearStart, ColDeliveryYearEnd, ColDeliveryNumber,
	ColWeaponDesignation, ColWeaponCategory, ColTIV, ColCompany, ColCountryOfOrigin,
	ColSupplierCapital, ColCapitalLat, ColCapitalLon,
}

// RankColumns is the column set the rank summary must carry.
var RankColumns = []string{ColRankRecipient, ColPeriod, ColRank, ColShare, ColRankTIV}

// TransferStore holds the trade register in Struct-of-Arrays format.
// Rows are ordered by supplier, then delivery year start.
type TransferStore struct {
	// Data Columns (Flat Arrays)
	YearStart  []int32
	YearEnd    []int32
	Delivered  []int64
	TIV        []float64
	CapitalLat []float64
	CapitalLon []float64

	// Designations are nearly unique per row, so they are not dictionary encoded.
	Designations []string

	// Dictionary Encoded IDs (0..N)
	SupplierIDs  []int32
	RecipientIDs []int32
	CategoryIDs  []int32
	CompanyIDs   []int32
	OriginIDs    []int32
	CapitalIDs   []int32

	// Dictionaries (ID -> String)
	SupplierDict  []string
	RecipientDict []string
	CategoryDict  []string
	CompanyDict   []string
	OriginDict    []string
	CapitalDict   []string

	// Columns as found in the source file.
	Columns []string
}

func (s *TransferStore) Len() int {
	return len(s.TIV)
}

func (s *TransferStore) Schema() models.TableSchema {
	return models.TableSchema{Name: "trade_register", Columns: s.Columns, Rows: s.Len()}
}

// RankTable is the per-period importer rank summary.
type RankTable struct {
	Rows    []models.RankRow
	Columns []string
}

func (r *RankTable) Schema() models.TableSchema {
	return models.TableSchema{Name: "importer_rank", Columns: r.Columns, Rows: len(r.Rows)}
}

// ForPeriod returns the first rank row recorded for the period name.
func (r *RankTable) ForPeriod(name string) (models.RankRow, bool) {
	if r == nil {
		return models.RankRow{}, false
	}
	for _, row := range r.Rows {
		if row.Period == name {
			return row, true
		}
	}
	return models.RankRow{}, false
}

// Dataset is the pair of tables the dashboard serves. It is never mutated after load.
type Dataset struct {
	Transfers *TransferStore
	Ranks     *RankTable
}

// dictBuilder assigns dense IDs to strings in first-seen order.
type dictBuilder struct {
	ids  map[string]int32
	list []string
}

func newDictBuilder() *dictBuilder {
	return &dictBuilder{ids: make(map[string]int32)}
}

func (d *dictBuilder) id(s string) int32 {
	if id, ok := d.ids[s]; ok {
		return id
	}
	id := int32(len(d.list))
	d.list = append(d.list, s)
	d.ids[s] = id
	return id
}
