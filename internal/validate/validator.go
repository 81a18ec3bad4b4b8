// Package validate checks schema conformance and scores data quality for
// stage artifacts.
package validate

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/boxofficelab/catalog-cli/internal/model"
	"github.com/boxofficelab/catalog-cli/internal/resilience"
)

// Column is a named view over one column of a stage table: its missing
// predicate is evaluated per row index.
type Column struct {
	Name    string
	Missing func(row int) bool
}

// Validator computes quality reports and outlier flags.
type Validator struct {
	required []string
	iqrMult  float64
}

// New creates a Validator. required names the columns whose completeness
// defines the quality score; iqrMult is the interquartile multiple beyond
// which a ROI value is flagged as an outlier.
func New(required []string, iqrMult float64) *Validator {
	if iqrMult <= 0 {
		iqrMult = 1.5
	}
	return &Validator{required: required, iqrMult: iqrMult}
}

// Required returns the configured required-column list.
func (v *Validator) Required() []string { return v.required }

// Report validates a stage table and computes its quality report. It fails
// with a SchemaError when a required column is entirely absent from the
// table's column set. Per-cell missing values never fail; they only lower the
// score. Row order is irrelevant and never altered.
func (v *Validator) Report(stage string, rows int, cols []Column, required []string) (*model.QualityReport, error) {
	byName := make(map[string]Column, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}

	var missing []string
	for _, name := range required {
		if _, ok := byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &resilience.SchemaError{Stage: stage, Missing: missing}
	}

	report := &model.QualityReport{Stage: stage, Rows: rows}
	for _, c := range cols {
		stats := model.ColumnStats{Column: c.Name, Rows: rows}
		for i := 0; i < rows; i++ {
			if c.Missing(i) {
				stats.Missing++
			}
		}
		if rows > 0 {
			stats.MissingPercent = float64(stats.Missing) / float64(rows) * 100
		}
		report.Columns = append(report.Columns, stats)
	}

	// Quality score: mean percentage of non-missing cells across required
	// columns.
	if rows > 0 && len(required) > 0 {
		var sum float64
		for _, name := range required {
			c := byName[name]
			nonMissing := rows
			for i := 0; i < rows; i++ {
				if c.Missing(i) {
					nonMissing--
				}
			}
			sum += float64(nonMissing) / float64(rows) * 100
		}
		report.QualityScore = sum / float64(len(required))
	}

	zap.L().Info("validate: quality report",
		zap.String("stage", stage),
		zap.Int("rows", rows),
		zap.Float64("quality_score", report.QualityScore),
	)
	return report, nil
}

// FlagROIOutliers flags records whose ROI magnitude falls beyond iqrMult
// interquartile ranges of the ROI distribution. Flags are reported, never
// removed, and input order is preserved.
func (v *Validator) FlagROIOutliers(records []model.MetricRecord) []model.Outlier {
	var values []float64
	for i := range records {
		if records[i].ROI.Valid {
			values = append(values, records[i].ROI.Decimal.InexactFloat64())
		}
	}
	if len(values) < 4 {
		// Too few points for a meaningful interquartile spread.
		return nil
	}

	q1, q3 := quartiles(values)
	iqr := q3 - q1
	lower := q1 - v.iqrMult*iqr
	upper := q3 + v.iqrMult*iqr

	var out []model.Outlier
	for i := range records {
		if !records[i].ROI.Valid {
			continue
		}
		roi := records[i].ROI.Decimal.InexactFloat64()
		if roi < lower || roi > upper {
			bound := upper
			if roi < lower {
				bound = lower
			}
			out = append(out, model.Outlier{
				RecordID: records[i].ID,
				Title:    records[i].Title,
				Column:   "roi",
				Value:    roi,
				Bound:    bound,
			})
			zap.L().Warn("validate: roi outlier flagged",
				zap.Int64("id", records[i].ID),
				zap.Float64("roi", roi),
				zap.Float64("bound", bound),
			)
		}
	}
	return out
}

// quartiles returns the 25th and 75th percentiles using linear interpolation
// between closest ranks.
func quartiles(values []float64) (q1, q3 float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentile(sorted, 0.25), percentile(sorted, 0.75)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// RawColumns builds the column view for an extract-stage artifact.
func RawColumns(records []model.RawRecord) []Column {
	return []Column{
		{Name: "id", Missing: func(i int) bool { return records[i].ID == 0 }},
		{Name: "title", Missing: func(i int) bool { return records[i].Title == "" }},
		{Name: "budget", Missing: func(i int) bool { _, ok := records[i].Budget.Float(); return !ok }},
		{Name: "revenue", Missing: func(i int) bool { _, ok := records[i].Revenue.Float(); return !ok }},
		{Name: "release_date", Missing: func(i int) bool { return records[i].ReleaseDate == "" }},
		{Name: "genres", Missing: func(i int) bool { return len(records[i].Genres) == 0 }},
		{Name: "credits", Missing: func(i int) bool { return records[i].Credits == nil }},
	}
}

// CleanColumns builds the column view for a clean-stage artifact.
func CleanColumns(records []model.CleanRecord) []Column {
	return []Column{
		{Name: "id", Missing: func(i int) bool { return records[i].ID == 0 }},
		{Name: "title", Missing: func(i int) bool { return records[i].Title == "" }},
		{Name: "budget_musd", Missing: func(i int) bool { return !records[i].BudgetMUSD.Valid }},
		{Name: "revenue_musd", Missing: func(i int) bool { return !records[i].RevenueMUSD.Valid }},
		{Name: "release_date", Missing: func(i int) bool { return records[i].ReleaseDate == nil }},
		{Name: "genres", Missing: func(i int) bool { return records[i].Genres == nil }},
		{Name: "collection", Missing: func(i int) bool { return records[i].Collection == nil }},
		{Name: "vote_count", Missing: func(i int) bool { return records[i].VoteCount == nil }},
		{Name: "vote_average", Missing: func(i int) bool { return records[i].VoteAverage == nil }},
		{Name: "popularity", Missing: func(i int) bool { return records[i].Popularity == nil }},
		{Name: "runtime", Missing: func(i int) bool { return records[i].Runtime == nil }},
		{Name: "cast", Missing: func(i int) bool { return records[i].Cast == nil }},
		{Name: "directors", Missing: func(i int) bool { return records[i].Directors == nil }},
		{Name: "cast_size", Missing: func(i int) bool { return records[i].CastSize == nil }},
		{Name: "crew_size", Missing: func(i int) bool { return records[i].CrewSize == nil }},
	}
}

// MetricColumns builds the column view for a metrics-stage artifact.
func MetricColumns(records []model.MetricRecord) []Column {
	clean := make([]model.CleanRecord, len(records))
	for i := range records {
		clean[i] = records[i].CleanRecord
	}
	cols := CleanColumns(clean)
	cols = append(cols,
		Column{Name: "profit", Missing: func(i int) bool { return !records[i].Profit.Valid }},
		Column{Name: "roi", Missing: func(i int) bool { return !records[i].ROI.Valid }},
	)
	return cols
}
