// Package clean normalizes raw catalog records into the typed shape the
// metric and analysis stages consume.
package clean

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

// textPlaceholders are upstream tokens that mean "no value".
var textPlaceholders = map[string]bool{
	"":                       true,
	"No Data":                true,
	"No overview available.": true,
	"None":                   true,
	"nan":                    true,
	"NaN":                    true,
	"N/A":                    true,
	"null":                   true,
}

const dateLayout = "2006-01-02"

var million = decimal.NewFromInt(1_000_000)

// Result is the cleaning output: normalized records in input order plus
// per-column coercion error counts. Coercion failures never abort; the cell
// is set to missing and counted.
type Result struct {
	Records      []model.CleanRecord
	CoerceErrors map[string]int
	Duplicates   int
}

// Cleaner converts RawRecords to CleanRecords.
type Cleaner struct {
	errors map[string]int
}

// New creates a Cleaner.
func New() *Cleaner {
	return &Cleaner{errors: make(map[string]int)}
}

// Clean normalizes a batch of raw records. Duplicate identifiers are dropped
// (first occurrence wins) and input order is preserved.
func (c *Cleaner) Clean(raw []model.RawRecord) *Result {
	seen := make(map[int64]bool, len(raw))
	out := make([]model.CleanRecord, 0, len(raw))
	dupes := 0

	for i := range raw {
		r := &raw[i]
		if seen[r.ID] {
			dupes++
			continue
		}
		seen[r.ID] = true
		out = append(out, c.cleanOne(r))
	}

	if dupes > 0 {
		zap.L().Info("clean: dropped duplicate records", zap.Int("count", dupes))
	}
	for col, n := range c.errors {
		zap.L().Warn("clean: coercion failures",
			zap.String("column", col),
			zap.Int("count", n),
		)
	}

	return &Result{Records: out, CoerceErrors: c.errors, Duplicates: dupes}
}

func (c *Cleaner) cleanOne(r *model.RawRecord) model.CleanRecord {
	rec := model.CleanRecord{
		ID:               r.ID,
		Title:            strings.TrimSpace(r.Title),
		OriginalLanguage: r.OriginalLanguage,
	}

	rec.Tagline = cleanText(r.Tagline)
	rec.Overview = cleanText(r.Overview)
	rec.PosterPath = cleanText(r.PosterPath)

	rec.ReleaseDate = c.coerceDate("release_date", r.ReleaseDate)

	// Zero budget/revenue means "unreported", not "free"; both convert to
	// millions USD.
	rec.BudgetMUSD = c.coerceMoney("budget_musd", r.Budget)
	rec.RevenueMUSD = c.coerceMoney("revenue_musd", r.Revenue)

	rec.Runtime = c.coerceFloat("runtime", r.Runtime, true)
	rec.Popularity = c.coerceFloat("popularity", r.Popularity, false)
	rec.VoteAverage = c.coerceFloat("vote_average", r.VoteAverage, false)
	rec.VoteCount = c.coerceCount("vote_count", r.VoteCount)

	// A rating backed by zero votes is unreliable.
	if rec.VoteCount != nil && *rec.VoteCount == 0 {
		rec.VoteAverage = nil
	}

	rec.Genres = joinNames(r.Genres)
	rec.ProductionCompanies = joinNames(r.ProductionCompanies)
	rec.ProductionCountries = joinNames(r.ProductionCountries)
	rec.SpokenLanguages = joinNames(r.SpokenLanguages)

	if r.BelongsToCollection != nil && strings.TrimSpace(r.BelongsToCollection.Name) != "" {
		name := strings.TrimSpace(r.BelongsToCollection.Name)
		rec.Collection = &name
	}

	if r.Credits != nil {
		rec.Cast = joinCast(r.Credits.Cast)
		rec.Directors = joinDirectors(r.Credits.Crew)
		castSize := int64(len(r.Credits.Cast))
		crewSize := int64(len(r.Credits.Crew))
		rec.CastSize = &castSize
		rec.CrewSize = &crewSize
	}

	return rec
}

// cleanText trims and scrubs placeholder tokens; nil means missing.
func cleanText(s string) *string {
	s = strings.TrimSpace(s)
	if textPlaceholders[s] {
		return nil
	}
	return &s
}

func (c *Cleaner) coerceDate(col, s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		c.errors[col]++
		return nil
	}
	return &t
}

// coerceMoney parses a financial field and converts it to millions USD.
// Zero and negative values become missing: zero is the upstream sentinel for
// "unreported" and negative money is never valid.
func (c *Cleaner) coerceMoney(col string, n model.Numeric) decimal.NullDecimal {
	if n == "" {
		return decimal.NullDecimal{}
	}
	v, ok := n.Float()
	if !ok {
		c.errors[col]++
		return decimal.NullDecimal{}
	}
	if v < 0 {
		c.errors[col]++
		return decimal.NullDecimal{}
	}
	if v == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{
		Decimal: decimal.NewFromFloat(v).Div(million),
		Valid:   true,
	}
}

// coerceFloat parses an optional numeric field. When zeroIsMissing is set, a
// zero value is treated as unreported.
func (c *Cleaner) coerceFloat(col string, n model.Numeric, zeroIsMissing bool) *float64 {
	if n == "" {
		return nil
	}
	v, ok := n.Float()
	if !ok || v < 0 {
		c.errors[col]++
		return nil
	}
	if zeroIsMissing && v == 0 {
		return nil
	}
	return &v
}

func (c *Cleaner) coerceCount(col string, n model.Numeric) *int64 {
	if n == "" {
		return nil
	}
	v, ok := n.Float()
	if !ok || v < 0 {
		c.errors[col]++
		return nil
	}
	i := int64(v)
	return &i
}

// joinNames flattens a NamedRef list to a pipe-joined string; nil if empty.
func joinNames(refs []model.NamedRef) *string {
	var names []string
	for _, ref := range refs {
		if name := strings.TrimSpace(ref.Name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	joined := strings.Join(names, "|")
	return &joined
}

func joinCast(cast []model.CastMember) *string {
	var names []string
	for _, m := range cast {
		if name := strings.TrimSpace(m.Name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	joined := strings.Join(names, "|")
	return &joined
}

func joinDirectors(crew []model.CrewMember) *string {
	var names []string
	for _, m := range crew {
		if m.Job != "Director" {
			continue
		}
		if name := strings.TrimSpace(m.Name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	joined := strings.Join(names, "|")
	return &joined
}
