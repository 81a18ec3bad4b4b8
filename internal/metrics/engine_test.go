package metrics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

func money(v float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func TestCompute_ProfitAndROI(t *testing.T) {
	out := New(10).Compute([]model.CleanRecord{
		{ID: 19995, Title: "Avatar", BudgetMUSD: money(237), RevenueMUSD: money(2923.7)},
	})

	require.Len(t, out, 1)
	require.True(t, out[0].Profit.Valid)
	assert.InDelta(t, 2686.7, out[0].Profit.Decimal.InexactFloat64(), 0.0001)
	require.True(t, out[0].ROI.Valid)
	assert.InDelta(t, 12.3363, out[0].ROI.Decimal.InexactFloat64(), 0.0001)
}

func TestCompute_MissingBudgetMeansBothMissing(t *testing.T) {
	// Budget 0 became missing during cleaning; revenue 500 alone derives
	// nothing.
	out := New(10).Compute([]model.CleanRecord{
		{ID: 1, Title: "Unreported", RevenueMUSD: money(500)},
	})

	assert.False(t, out[0].Profit.Valid)
	assert.False(t, out[0].ROI.Valid)
}

func TestCompute_BudgetBelowThresholdSkipsROIOnly(t *testing.T) {
	out := New(10).Compute([]model.CleanRecord{
		{ID: 1, Title: "Small", BudgetMUSD: money(5), RevenueMUSD: money(50)},
	})

	require.True(t, out[0].Profit.Valid)
	assert.InDelta(t, 45.0, out[0].Profit.Decimal.InexactFloat64(), 0.0001)
	assert.False(t, out[0].ROI.Valid)
}

func TestCompute_BudgetAtThresholdQualifies(t *testing.T) {
	out := New(10).Compute([]model.CleanRecord{
		{ID: 1, Title: "Exactly", BudgetMUSD: money(10), RevenueMUSD: money(30)},
	})

	require.True(t, out[0].ROI.Valid)
	assert.InDelta(t, 3.0, out[0].ROI.Decimal.InexactFloat64(), 0.0001)
}

func TestCompute_MissingRevenueMeansBothMissing(t *testing.T) {
	out := New(10).Compute([]model.CleanRecord{
		{ID: 1, Title: "No Revenue", BudgetMUSD: money(100)},
	})

	assert.False(t, out[0].Profit.Valid)
	assert.False(t, out[0].ROI.Valid)
}

func TestCompute_OrderPreserved(t *testing.T) {
	out := New(10).Compute([]model.CleanRecord{
		{ID: 3, Title: "C"}, {ID: 1, Title: "A"}, {ID: 2, Title: "B"},
	})

	require.Len(t, out, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{out[0].ID, out[1].ID, out[2].ID})
}

func rankingFixture() []model.MetricRecord {
	e := New(10)
	return e.Compute([]model.CleanRecord{
		{
			ID: 1, Title: "Blockbuster",
			BudgetMUSD: money(200), RevenueMUSD: money(2000),
			VoteCount: i64(25000), VoteAverage: f64(7.8), Popularity: f64(150),
		},
		{
			ID: 2, Title: "Flop",
			BudgetMUSD: money(150), RevenueMUSD: money(40),
			VoteCount: i64(3000), VoteAverage: f64(4.2), Popularity: f64(20),
		},
		{
			ID: 3, Title: "Sleeper Hit",
			BudgetMUSD: money(15), RevenueMUSD: money(400),
			VoteCount: i64(9000), VoteAverage: f64(8.4), Popularity: f64(60),
		},
	})
}

func TestRankings_Projections(t *testing.T) {
	headlines := New(10).Rankings(rankingFixture())

	byMetric := make(map[string]model.Headline)
	for _, h := range headlines {
		byMetric[h.Metric] = h
	}

	assert.Equal(t, "Blockbuster", byMetric[MetricHighestRevenue].Title)
	assert.Equal(t, "Blockbuster", byMetric[MetricHighestBudget].Title)
	assert.Equal(t, "Blockbuster", byMetric[MetricHighestProfit].Title)
	assert.Equal(t, "Flop", byMetric[MetricLowestProfit].Title)
	assert.InDelta(t, -110.0, byMetric[MetricLowestProfit].Value, 0.0001)

	// Sleeper Hit: 400/15 beats Blockbuster's 2000/200.
	assert.Equal(t, "Sleeper Hit", byMetric[MetricHighestROI].Title)
	assert.Equal(t, "Flop", byMetric[MetricLowestROI].Title)

	assert.Equal(t, "Blockbuster", byMetric[MetricMostVoted].Title)
	assert.Equal(t, "Sleeper Hit", byMetric[MetricHighestRated].Title)
	assert.Equal(t, "Flop", byMetric[MetricLowestRated].Title)
	assert.Equal(t, "Blockbuster", byMetric[MetricMostPopular].Title)
}

func TestRankings_MissingValuesSkipped(t *testing.T) {
	records := New(10).Compute([]model.CleanRecord{
		{ID: 1, Title: "No Votes", BudgetMUSD: money(20), RevenueMUSD: money(80)},
		{ID: 2, Title: "Voted", BudgetMUSD: money(30), RevenueMUSD: money(60), VoteCount: i64(100), VoteAverage: f64(6.5)},
	})

	byMetric := make(map[string]model.Headline)
	for _, h := range New(10).Rankings(records) {
		byMetric[h.Metric] = h
	}

	assert.Equal(t, "Voted", byMetric[MetricMostVoted].Title)
	assert.Equal(t, "No Votes", byMetric[MetricHighestROI].Title)
	_, hasPopularity := byMetric[MetricMostPopular]
	assert.False(t, hasPopularity)
}

func TestRankings_EmptyTable(t *testing.T) {
	assert.Empty(t, New(10).Rankings(nil))
}
