// Package analyze computes grouped statistics, leaderboards, and read-only
// search projections over the metrics artifact.
package analyze

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

// leaderboardSize caps each franchise/director leaderboard in the report.
const leaderboardSize = 10

// Analyzer produces the analysis report and search projections. All
// operations are read-only over the input table.
type Analyzer struct{}

// New creates an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Report aggregates the metric table into the analysis artifact: franchise vs
// standalone group statistics, franchise leaderboards, and director
// leaderboards.
func (a *Analyzer) Report(records []model.MetricRecord) *model.AnalysisReport {
	report := &model.AnalysisReport{
		Rows: len(records),
		Groups: []model.GroupStats{
			a.groupStats(records, true),
			a.groupStats(records, false),
		},
		Franchises: a.franchiseStats(records),
	}

	directors := a.directorStats(records)
	report.DirectorsByMovieCount = topDirectors(directors, func(a, b *model.DirectorStats) bool {
		return a.MovieCount > b.MovieCount
	})
	report.DirectorsByRevenue = topDirectors(directors, func(a, b *model.DirectorStats) bool {
		return a.TotalRevenue > b.TotalRevenue
	})
	report.DirectorsByRating = topDirectors(filterRated(directors), func(a, b *model.DirectorStats) bool {
		return *a.MeanRating > *b.MeanRating
	})

	zap.L().Info("analyze: report built",
		zap.Int("rows", report.Rows),
		zap.Int("franchises", len(report.Franchises)),
		zap.Int("directors", len(directors)),
	)
	return report
}

func (a *Analyzer) groupStats(records []model.MetricRecord, franchise bool) model.GroupStats {
	stats := model.GroupStats{Group: model.GroupStandalone}
	if franchise {
		stats.Group = model.GroupFranchise
	}

	var revenue, budget, popularity, votes, roi agg
	for i := range records {
		if records[i].IsFranchise() != franchise {
			continue
		}
		stats.Count++
		if records[i].RevenueMUSD.Valid {
			revenue.add(records[i].RevenueMUSD.Decimal.InexactFloat64())
		}
		if records[i].BudgetMUSD.Valid {
			budget.add(records[i].BudgetMUSD.Decimal.InexactFloat64())
		}
		if records[i].Popularity != nil {
			popularity.add(*records[i].Popularity)
		}
		if records[i].VoteCount != nil {
			votes.add(float64(*records[i].VoteCount))
		}
		if records[i].ROI.Valid {
			roi.add(records[i].ROI.Decimal.InexactFloat64())
		}
	}

	stats.MeanRevenue = revenue.mean()
	stats.BudgetSum = budget.total()
	stats.BudgetMean = budget.mean()
	stats.MedianROI = roi.median()
	stats.MeanPopularity = popularity.mean()
	stats.MeanVoteCount = votes.mean()
	return stats
}

func (a *Analyzer) franchiseStats(records []model.MetricRecord) []model.FranchiseStats {
	type acc struct {
		count                   int
		budget, revenue, rating agg
	}
	byName := make(map[string]*acc)
	var order []string

	for i := range records {
		if records[i].Collection == nil {
			continue
		}
		name := *records[i].Collection
		entry := byName[name]
		if entry == nil {
			entry = &acc{}
			byName[name] = entry
			order = append(order, name)
		}
		entry.count++
		if records[i].BudgetMUSD.Valid {
			entry.budget.add(records[i].BudgetMUSD.Decimal.InexactFloat64())
		}
		if records[i].RevenueMUSD.Valid {
			entry.revenue.add(records[i].RevenueMUSD.Decimal.InexactFloat64())
		}
		if records[i].VoteAverage != nil {
			entry.rating.add(*records[i].VoteAverage)
		}
	}

	out := make([]model.FranchiseStats, 0, len(order))
	for _, name := range order {
		entry := byName[name]
		out = append(out, model.FranchiseStats{
			Franchise:    name,
			MovieCount:   entry.count,
			TotalBudget:  entry.budget.total(),
			MeanBudget:   entry.budget.mean(),
			TotalRevenue: entry.revenue.total(),
			MeanRevenue:  entry.revenue.mean(),
			MeanRating:   entry.rating.mean(),
		})
	}

	// Leaderboard order: total revenue descending, ties by name for a stable
	// report.
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := deref(out[i].TotalRevenue), deref(out[j].TotalRevenue)
		if ri != rj {
			return ri > rj
		}
		return out[i].Franchise < out[j].Franchise
	})
	if len(out) > leaderboardSize {
		out = out[:leaderboardSize]
	}
	return out
}

func (a *Analyzer) directorStats(records []model.MetricRecord) []model.DirectorStats {
	type acc struct {
		count   int
		revenue float64
		rating  agg
	}
	byName := make(map[string]*acc)
	var order []string

	for i := range records {
		for _, director := range splitList(records[i].Directors) {
			entry := byName[director]
			if entry == nil {
				entry = &acc{}
				byName[director] = entry
				order = append(order, director)
			}
			entry.count++
			if records[i].RevenueMUSD.Valid {
				entry.revenue += records[i].RevenueMUSD.Decimal.InexactFloat64()
			}
			if records[i].VoteAverage != nil {
				entry.rating.add(*records[i].VoteAverage)
			}
		}
	}

	out := make([]model.DirectorStats, 0, len(order))
	for _, name := range order {
		entry := byName[name]
		out = append(out, model.DirectorStats{
			Director:     name,
			MovieCount:   entry.count,
			TotalRevenue: entry.revenue,
			MeanRating:   entry.rating.mean(),
		})
	}
	return out
}

func topDirectors(directors []model.DirectorStats, less func(a, b *model.DirectorStats) bool) []model.DirectorStats {
	out := append([]model.DirectorStats(nil), directors...)
	sort.SliceStable(out, func(i, j int) bool {
		if less(&out[i], &out[j]) {
			return true
		}
		if less(&out[j], &out[i]) {
			return false
		}
		return out[i].Director < out[j].Director
	})
	if len(out) > leaderboardSize {
		out = out[:leaderboardSize]
	}
	return out
}

func filterRated(directors []model.DirectorStats) []model.DirectorStats {
	var out []model.DirectorStats
	for _, d := range directors {
		if d.MeanRating != nil {
			out = append(out, d)
		}
	}
	return out
}

// BestByGenreAndActor returns the top-rated-by-votes records of a genre
// starring an actor, sorted by vote count descending. Matching is
// case-insensitive substring over the flattened genre and cast columns.
func (a *Analyzer) BestByGenreAndActor(records []model.MetricRecord, genre, actor string, topN int) []model.MetricRecord {
	var out []model.MetricRecord
	for i := range records {
		if !contains(records[i].Genres, genre) {
			continue
		}
		if !contains(records[i].Cast, actor) {
			continue
		}
		out = append(out, records[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return voteCount(&out[i]) > voteCount(&out[j])
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// ByActorAndDirector returns records starring an actor and directed by a
// director, sorted by runtime descending.
func (a *Analyzer) ByActorAndDirector(records []model.MetricRecord, actor, director string) []model.MetricRecord {
	var out []model.MetricRecord
	for i := range records {
		if !contains(records[i].Cast, actor) {
			continue
		}
		if !contains(records[i].Directors, director) {
			continue
		}
		out = append(out, records[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return runtime(&out[i]) > runtime(&out[j])
	})
	return out
}

// Filter returns records matching every given criterion; empty criteria match
// everything. Input order is preserved.
func (a *Analyzer) Filter(records []model.MetricRecord, genre, actor, director string) []model.MetricRecord {
	var out []model.MetricRecord
	for i := range records {
		if genre != "" && !contains(records[i].Genres, genre) {
			continue
		}
		if actor != "" && !contains(records[i].Cast, actor) {
			continue
		}
		if director != "" && !contains(records[i].Directors, director) {
			continue
		}
		out = append(out, records[i])
	}
	return out
}

// agg accumulates values for mean/sum/median over reported cells only.
type agg struct {
	values []float64
	sum    float64
}

func (a *agg) add(v float64) {
	a.values = append(a.values, v)
	a.sum += v
}

func (a *agg) total() *float64 {
	if len(a.values) == 0 {
		return nil
	}
	s := a.sum
	return &s
}

func (a *agg) mean() *float64 {
	if len(a.values) == 0 {
		return nil
	}
	m := a.sum / float64(len(a.values))
	return &m
}

func (a *agg) median() *float64 {
	if len(a.values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), a.values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	var m float64
	if len(sorted)%2 == 1 {
		m = sorted[mid]
	} else {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}

func splitList(s *string) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(*s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(column *string, needle string) bool {
	if column == nil || needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(*column), strings.ToLower(needle))
}

func voteCount(r *model.MetricRecord) int64 {
	if r.VoteCount == nil {
		return -1
	}
	return *r.VoteCount
}

func runtime(r *model.MetricRecord) float64 {
	if r.Runtime == nil {
		return -1
	}
	return *r.Runtime
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
