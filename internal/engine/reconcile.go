package engine

import (
	"math"

	"github.com/samber/lo"

	"armsdash/internal/models"
)

// DefaultTolerance absorbs the rounding of the published per-period totals.
const DefaultTolerance = 0.5

// Reconcile recomputes each ranked period's TIV total from the register and
// compares it with the published value. Rank rows naming an unknown period
// are reported as failing with a zero computed total.
func (d *Dataset) Reconcile(tolerance float64) []models.ReconcileResult {
	results := make([]models.ReconcileResult, 0, len(d.Ranks.Rows))
	for _, rank := range d.Ranks.Rows {
		res := models.ReconcileResult{Period: rank.Period, Expected: rank.TIV}

		p, err := ParsePeriod(rank.Period)
		if err == nil {
			sel := d.Transfers.Filter(p)
			res.Computed = lo.SumBy(sel, func(row int) float64 { return d.Transfers.TIV[row] })
		}
		res.Diff = math.Abs(res.Computed - res.Expected)
		res.OK = err == nil && res.Diff <= tolerance

		results = append(results, res)
	}
	return results
}
