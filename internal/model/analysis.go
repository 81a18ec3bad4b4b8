package model

// Group names for franchise/standalone aggregation.
const (
	GroupFranchise  = "franchise"
	GroupStandalone = "standalone"
)

// GroupStats aggregates financial and popularity statistics over one record
// group. Aggregates over columns with no reported values are missing, not
// zero.
type GroupStats struct {
	Group          string   `json:"group"`
	Count          int      `json:"count"`
	MeanRevenue    *float64 `json:"mean_revenue_musd"`
	BudgetSum      *float64 `json:"budget_sum_musd"`
	BudgetMean     *float64 `json:"budget_mean_musd"`
	MedianROI      *float64 `json:"median_roi"`
	MeanPopularity *float64 `json:"mean_popularity"`
	MeanVoteCount  *float64 `json:"mean_vote_count"`
}

// FranchiseStats aggregates one collection's movies.
type FranchiseStats struct {
	Franchise    string   `json:"franchise"`
	MovieCount   int      `json:"movie_count"`
	TotalBudget  *float64 `json:"total_budget_musd"`
	MeanBudget   *float64 `json:"mean_budget_musd"`
	TotalRevenue *float64 `json:"total_revenue_musd"`
	MeanRevenue  *float64 `json:"mean_revenue_musd"`
	MeanRating   *float64 `json:"mean_rating"`
}

// DirectorStats aggregates one director's movies. A movie with several
// directors counts once for each.
type DirectorStats struct {
	Director     string   `json:"director"`
	MovieCount   int      `json:"movie_count"`
	TotalRevenue float64  `json:"total_revenue_musd"`
	MeanRating   *float64 `json:"mean_rating"`
}

// AnalysisReport is the analyze-stage artifact: machine-readable aggregates
// for a downstream rendering collaborator.
type AnalysisReport struct {
	Rows                  int              `json:"rows"`
	Groups                []GroupStats     `json:"groups"`
	Franchises            []FranchiseStats `json:"franchises"`
	DirectorsByMovieCount []DirectorStats  `json:"directors_by_movie_count"`
	DirectorsByRevenue    []DirectorStats  `json:"directors_by_revenue"`
	DirectorsByRating     []DirectorStats  `json:"directors_by_rating"`
}
