package engine

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"armsdash/internal/models"
)

const DefaultTopSuppliers = 10

type AggregateOptions struct {
	TopSuppliers int
	Flow         FlowOptions
}

func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{TopSuppliers: DefaultTopSuppliers, Flow: DefaultFlowOptions()}
}

// Aggregate computes metrics, bar charts and the flow map over the selected rows.
func (s *TransferStore) Aggregate(sel Selection, opts AggregateOptions) *models.DashboardData {
	if opts.TopSuppliers <= 0 {
		opts.TopSuppliers = DefaultTopSuppliers
	}

	numSuppliers := len(s.SupplierDict)
	numCategories := len(s.CategoryDict)

	// Dense accumulators indexed by dictionary ID.
	supDelivered := make([]int64, numSuppliers)
	supTIV := make([]float64, numSuppliers)
	supFirst := make([]int, numSuppliers)
	supSeen := make([]bool, numSuppliers)
	catDelivered := make([]int64, numCategories)
	catTIV := make([]float64, numCategories)
	catSeen := make([]bool, numCategories)

	var totalDelivered int64
	var totalTIV float64

	for _, row := range sel {
		sid := s.SupplierIDs[row]
		cid := s.CategoryIDs[row]
		qty := s.Delivered[row]
		tiv := s.TIV[row]

		if !supSeen[sid] {
			supSeen[sid] = true
			supFirst[sid] = row
		}
		supDelivered[sid] += qty
		supTIV[sid] += tiv

		catSeen[cid] = true
		catDelivered[cid] += qty
		catTIV[cid] += tiv

		totalDelivered += qty
		totalTIV += tiv
	}

	data := &models.DashboardData{
		Metrics: models.Metrics{
			Countries:           lo.Count(supSeen, true),
			WeaponsDelivered:    totalDelivered,
			WeaponsDeliveredFmt: FormatInt(totalDelivered),
			TotalTIV:            totalTIV,
		},
	}

	// Suppliers
	var suppliers []models.BarItem
	var flows []supplierFlow
	for sid, seen := range supSeen {
		if !seen {
			continue
		}
		suppliers = append(suppliers, models.BarItem{Label: s.SupplierDict[sid], Value: float64(supDelivered[sid])})

		first := supFirst[sid]
		flows = append(flows, supplierFlow{
			Supplier: s.SupplierDict[sid],
			Capital:  s.CapitalDict[s.CapitalIDs[first]],
			Lat:      s.CapitalLat[first],
			Lon:      s.CapitalLon[first],
			TIV:      supTIV[sid],
		})
	}
	sortAscending(suppliers)
	data.Suppliers = TopSuppliers(suppliers, opts.TopSuppliers)

	// Categories
	var categories, tivs []models.BarItem
	for cid, seen := range catSeen {
		if !seen {
			continue
		}
		categories = append(categories, models.BarItem{Label: s.CategoryDict[cid], Value: float64(catDelivered[cid])})
		tivs = append(tivs, models.BarItem{Label: s.CategoryDict[cid], Value: catTIV[cid]})
	}
	sortAscending(categories)
	sortAscending(tivs)
	data.Categories = models.BarChart{
		Title:  "Delivered Weapons by Category",
		XLabel: "Delivered Weapons",
		YLabel: "Weapon Category",
		Items:  nonNil(categories),
	}
	data.TIV = models.BarChart{
		Title:  "SIPRI TIV of Delivered Weapons (Thousands)",
		XLabel: "SIPRI TIV",
		YLabel: "Weapon Category",
		Items:  nonNil(tivs),
	}

	data.Map = buildFlowMap(flows, opts.Flow)
	return data
}

// TopSuppliers keeps the n largest bars of an ascending supplier list.
func TopSuppliers(items []models.BarItem, n int) models.BarChart {
	if n <= 0 {
		n = DefaultTopSuppliers
	}
	if len(items) > n {
		items = lo.Slice(items, len(items)-n, len(items))
	}
	return models.BarChart{
		Title:  fmt.Sprintf("Delivered Weapons by Country (Top %d)", n),
		XLabel: "Delivered Weapons",
		YLabel: "Country",
		Items:  nonNil(items),
	}
}

// Rows returns the table view of the selected rows.
func (s *TransferStore) Rows(sel Selection) []models.TransferRow {
	return lo.Map(sel, func(row int, _ int) models.TransferRow {
		return models.TransferRow{
			Supplier:          s.SupplierDict[s.SupplierIDs[row]],
			DeliveryYearStart: int(s.YearStart[row]),
			DeliveryYearEnd:   int(s.YearEnd[row]),
			WeaponDesignation: s.Designations[row],
			WeaponCategory:    s.CategoryDict[s.CategoryIDs[row]],
			Company:           s.CompanyDict[s.CompanyIDs[row]],
			CountryOfOrigin:   s.OriginDict[s.OriginIDs[row]],
			TIV:               s.TIV[row],
		}
	})
}

// Dashboard aggregates one period and attaches the importer rank for it.
func (d *Dataset) Dashboard(p Period, opts AggregateOptions) *models.DashboardData {
	data := d.Transfers.Aggregate(d.Transfers.Filter(p), opts)
	data.Period = p.Name

	if p.IsAll() {
		return data
	}
	if rank, ok := d.Ranks.ForPeriod(p.Name); ok {
		r, share := rank.Rank, rank.Share
		data.Metrics.Rank = &r
		data.Metrics.Share = &share
		data.Metrics.ShareFmt = FormatShare(share)
	}
	return data
}

// sortAscending orders bars smallest first so horizontal charts put the largest on top.
func sortAscending(items []models.BarItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value < items[j].Value
		}
		return items[i].Label < items[j].Label
	})
}

func nonNil(items []models.BarItem) []models.BarItem {
	if items == nil {
		return []models.BarItem{}
	}
	return items
}
