// Package metrics derives financial metrics and ranking projections from
// cleaned catalog records.
package metrics

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

// Ranking metric names, in report order.
const (
	MetricHighestRevenue = "highest_revenue"
	MetricHighestBudget  = "highest_budget"
	MetricHighestProfit  = "highest_profit"
	MetricLowestProfit   = "lowest_profit"
	MetricHighestROI     = "highest_roi"
	MetricLowestROI      = "lowest_roi"
	MetricMostVoted      = "most_voted"
	MetricHighestRated   = "highest_rated"
	MetricLowestRated    = "lowest_rated"
	MetricMostPopular    = "most_popular"
)

// Engine computes profit and ROI under the division policy: a metric is
// missing, never zero, infinite, or NaN, whenever its inputs are unreported or
// untrustworthy.
type Engine struct {
	// threshold is the minimum budget, in millions USD, for ROI to be
	// considered reliable.
	threshold decimal.Decimal
}

// New creates an Engine with the given ROI reliability threshold in millions
// USD.
func New(thresholdMUSD float64) *Engine {
	return &Engine{threshold: decimal.NewFromFloat(thresholdMUSD)}
}

// Compute derives a MetricRecord for every input record, preserving order.
// Profit requires both budget and revenue. ROI additionally requires the
// budget to be non-zero and at or above the reliability threshold.
func (e *Engine) Compute(records []model.CleanRecord) []model.MetricRecord {
	out := make([]model.MetricRecord, len(records))
	withROI := 0

	for i := range records {
		rec := model.MetricRecord{CleanRecord: records[i]}

		budget := records[i].BudgetMUSD
		revenue := records[i].RevenueMUSD

		if budget.Valid && revenue.Valid {
			rec.Profit = decimal.NullDecimal{
				Decimal: revenue.Decimal.Sub(budget.Decimal),
				Valid:   true,
			}
			if !budget.Decimal.IsZero() && budget.Decimal.GreaterThanOrEqual(e.threshold) {
				rec.ROI = decimal.NullDecimal{
					Decimal: revenue.Decimal.Div(budget.Decimal),
					Valid:   true,
				}
				withROI++
			}
		}

		out[i] = rec
	}

	zap.L().Info("metrics: computed",
		zap.Int("rows", len(out)),
		zap.Int("with_roi", withROI),
	)
	return out
}

// Rankings returns the best/worst headline projections over a metric table.
// Records missing the ranked value are skipped; a metric with no qualifying
// record is omitted. Read-only: the input is never reordered or mutated.
func (e *Engine) Rankings(records []model.MetricRecord) []model.Headline {
	type ranking struct {
		metric  string
		highest bool
		value   func(r *model.MetricRecord) (float64, bool)
	}

	revenue := func(r *model.MetricRecord) (float64, bool) {
		return r.RevenueMUSD.Decimal.InexactFloat64(), r.RevenueMUSD.Valid
	}
	budget := func(r *model.MetricRecord) (float64, bool) {
		return r.BudgetMUSD.Decimal.InexactFloat64(), r.BudgetMUSD.Valid
	}
	profit := func(r *model.MetricRecord) (float64, bool) {
		return r.Profit.Decimal.InexactFloat64(), r.Profit.Valid
	}
	roi := func(r *model.MetricRecord) (float64, bool) {
		return r.ROI.Decimal.InexactFloat64(), r.ROI.Valid
	}
	votes := func(r *model.MetricRecord) (float64, bool) {
		if r.VoteCount == nil {
			return 0, false
		}
		return float64(*r.VoteCount), true
	}
	rating := func(r *model.MetricRecord) (float64, bool) {
		if r.VoteAverage == nil {
			return 0, false
		}
		return *r.VoteAverage, true
	}
	popularity := func(r *model.MetricRecord) (float64, bool) {
		if r.Popularity == nil {
			return 0, false
		}
		return *r.Popularity, true
	}

	rankings := []ranking{
		{MetricHighestRevenue, true, revenue},
		{MetricHighestBudget, true, budget},
		{MetricHighestProfit, true, profit},
		{MetricLowestProfit, false, profit},
		{MetricHighestROI, true, roi},
		{MetricLowestROI, false, roi},
		{MetricMostVoted, true, votes},
		{MetricHighestRated, true, rating},
		{MetricLowestRated, false, rating},
		{MetricMostPopular, true, popularity},
	}

	var out []model.Headline
	for _, rk := range rankings {
		if h, ok := pick(records, rk.highest, rk.value); ok {
			h.Metric = rk.metric
			out = append(out, h)
		}
	}
	return out
}

// pick scans for the record with the extreme value, skipping missing cells.
// Ties keep the earliest record.
func pick(records []model.MetricRecord, highest bool, value func(r *model.MetricRecord) (float64, bool)) (model.Headline, bool) {
	var best model.Headline
	found := false
	for i := range records {
		v, ok := value(&records[i])
		if !ok {
			continue
		}
		if !found || (highest && v > best.Value) || (!highest && v < best.Value) {
			best = model.Headline{
				RecordID: records[i].ID,
				Title:    records[i].Title,
				Value:    v,
			}
			found = true
		}
	}
	return best, found
}
