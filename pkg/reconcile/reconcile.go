// Package reconcile holds the pure quantity arithmetic behind measurement
// and additive sessions: signed adjustments from blocked additive sessions
// and accumulated executed totals across reports. Nothing here touches the
// database; callers load the rows and pass them in.
package reconcile

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
)

// Precision for stored quantities and percentages. Summation happens on
// decimals so repeated additions do not accumulate binary float drift.
const places = 4

// Round4 rounds to 4 decimal places, half away from zero.
func Round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Adjustment sums the signed item quantities (positive = addition, negative
// = suppression) contributed to itemCode by blocked additive sessions. Open
// sessions represent proposed-but-unconfirmed changes and contribute zero.
//
// aliasMap optionally maps additive item codes onto the canonical budget
// item namespace; pass nil when both sides share one namespace. A session
// item matches when its code equals itemCode directly or through the map.
func Adjustment(itemCode string, sessions []models.Session, aliasMap map[string]string) float64 {
	sum := decimal.Zero
	for _, s := range sessions {
		if s.Status != models.SessionStatusBlocked {
			continue
		}
		for _, it := range s.Items {
			code := it.ItemCode
			if mapped, ok := aliasMap[code]; ok {
				code = mapped
			}
			if code != itemCode {
				continue
			}
			sum = sum.Add(decimal.NewFromFloat(it.Qtd))
		}
	}
	f, _ := sum.Round(places).Float64()
	return f
}

// Accumulated is the derived per-item total of executed quantity across
// reports, with the percentage of the planned quantity it represents.
type Accumulated struct {
	Qty float64 `json:"accumulated_qty"`
	Pct float64 `json:"accumulated_pct"`
}

// AccumulatedByItem groups execution records by item code, summing executed
// quantity across every report except excludingReportID (the report being
// viewed contributes nothing, so its own period is never double counted).
//
// Pct = Qty / planned * 100; a zero planned quantity yields 0, never NaN.
// Both values are rounded to 4 decimal places, half away from zero.
func AccumulatedByItem(records []models.ReportItem, excludingReportID uuid.UUID) map[string]Accumulated {
	sums := make(map[string]decimal.Decimal)
	planned := make(map[string]decimal.Decimal)

	for _, rec := range records {
		if rec.ReportID == excludingReportID {
			continue
		}
		sums[rec.ItemCode] = sums[rec.ItemCode].Add(decimal.NewFromFloat(rec.ExecutedQty))
		if _, ok := planned[rec.ItemCode]; !ok || planned[rec.ItemCode].IsZero() {
			planned[rec.ItemCode] = decimal.NewFromFloat(rec.PlannedQty)
		}
	}

	out := make(map[string]Accumulated, len(sums))
	for code, sum := range sums {
		qty, _ := sum.Round(places).Float64()
		var pct float64
		if p := planned[code]; !p.IsZero() {
			pct, _ = sum.Div(p).Mul(decimal.NewFromInt(100)).Round(places).Float64()
		}
		out[code] = Accumulated{Qty: qty, Pct: pct}
	}
	return out
}
