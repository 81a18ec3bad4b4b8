package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Numeric is a wire-tolerant numeric field. The upstream catalog usually sends
// JSON numbers but some rows carry string-typed values ("25000000", "N/A") or
// null; all three decode without error and are resolved during cleaning.
type Numeric string

// UnmarshalJSON accepts a JSON number, string, or null.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(unquoted))
		return nil
	}
	*n = Numeric(s)
	return nil
}

// MarshalJSON re-emits the raw token so a round-tripped RawRecord is stable.
func (n Numeric) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(n), 64); err == nil {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

// Float parses the value. ok is false for empty or unparseable tokens.
func (n Numeric) Float() (float64, bool) {
	if n == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NamedRef is a catalog sub-object carrying a display name (genre, company,
// country, language, collection).
type NamedRef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// CastMember is one entry of the credits cast list.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	Order     int    `json:"order,omitempty"`
}

// CrewMember is one entry of the credits crew list.
type CrewMember struct {
	Name       string `json:"name"`
	Job        string `json:"job,omitempty"`
	Department string `json:"department,omitempty"`
}

// Credits holds the cast and crew lists appended to a catalog response.
type Credits struct {
	Cast []CastMember `json:"cast,omitempty"`
	Crew []CrewMember `json:"crew,omitempty"`
}

// RawRecord is one fetched catalog entry, restricted to the fields the
// pipeline consumes. Unknown upstream fields are dropped at decode time.
// Immutable once fetched.
type RawRecord struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Tagline             string     `json:"tagline,omitempty"`
	Overview            string     `json:"overview,omitempty"`
	ReleaseDate         string     `json:"release_date,omitempty"`
	OriginalLanguage    string     `json:"original_language,omitempty"`
	PosterPath          string     `json:"poster_path,omitempty"`
	Budget              Numeric    `json:"budget,omitempty"`
	Revenue             Numeric    `json:"revenue,omitempty"`
	Runtime             Numeric    `json:"runtime,omitempty"`
	Popularity          Numeric    `json:"popularity,omitempty"`
	VoteAverage         Numeric    `json:"vote_average,omitempty"`
	VoteCount           Numeric    `json:"vote_count,omitempty"`
	Genres              []NamedRef `json:"genres,omitempty"`
	ProductionCompanies []NamedRef `json:"production_companies,omitempty"`
	ProductionCountries []NamedRef `json:"production_countries,omitempty"`
	SpokenLanguages     []NamedRef `json:"spoken_languages,omitempty"`
	BelongsToCollection *NamedRef  `json:"belongs_to_collection,omitempty"`
	Credits             *Credits   `json:"credits,omitempty"`
}

// CleanRecord is a RawRecord after type coercion, list flattening, and
// sentinel normalization. Every numeric field is either a valid non-negative
// value or nil/invalid — never a placeholder string. Money fields are in
// millions USD.
type CleanRecord struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	Tagline             *string             `json:"tagline"`
	ReleaseDate         *time.Time          `json:"release_date"`
	Genres              *string             `json:"genres"`
	Collection          *string             `json:"collection"`
	OriginalLanguage    string              `json:"original_language"`
	BudgetMUSD          decimal.NullDecimal `json:"budget_musd"`
	RevenueMUSD         decimal.NullDecimal `json:"revenue_musd"`
	ProductionCompanies *string             `json:"production_companies"`
	ProductionCountries *string             `json:"production_countries"`
	VoteCount           *int64              `json:"vote_count"`
	VoteAverage         *float64            `json:"vote_average"`
	Popularity          *float64            `json:"popularity"`
	Runtime             *float64            `json:"runtime"`
	Overview            *string             `json:"overview"`
	SpokenLanguages     *string             `json:"spoken_languages"`
	PosterPath          *string             `json:"poster_path"`
	Cast                *string             `json:"cast"`
	Directors           *string             `json:"directors"`
	CastSize            *int64              `json:"cast_size"`
	CrewSize            *int64              `json:"crew_size"`
}

// IsFranchise reports whether the record belongs to a collection.
func (r *CleanRecord) IsFranchise() bool {
	return r.Collection != nil
}

// MetricRecord is a CleanRecord augmented with derived financial metrics.
// Profit and ROI are missing (invalid) rather than zero, infinite, or NaN
// whenever their inputs are unreported or untrustworthy.
type MetricRecord struct {
	CleanRecord
	Profit decimal.NullDecimal `json:"profit"`
	ROI    decimal.NullDecimal `json:"roi"`
}
