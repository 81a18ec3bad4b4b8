package clean

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

func TestClean_MoneyConvertedToMillions(t *testing.T) {
	res := New().Clean([]model.RawRecord{
		{ID: 19995, Title: "Avatar", Budget: "237000000", Revenue: "2923706026"},
	})

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	require.True(t, rec.BudgetMUSD.Valid)
	assert.InDelta(t, 237.0, rec.BudgetMUSD.Decimal.InexactFloat64(), 0.0001)
	require.True(t, rec.RevenueMUSD.Valid)
	assert.InDelta(t, 2923.706026, rec.RevenueMUSD.Decimal.InexactFloat64(), 0.0001)
}

func TestClean_ZeroFinancialsBecomeMissing(t *testing.T) {
	// Zero is "unreported", not "free".
	res := New().Clean([]model.RawRecord{
		{ID: 1, Title: "Indie", Budget: "0", Revenue: "500000000"},
	})

	rec := res.Records[0]
	assert.False(t, rec.BudgetMUSD.Valid)
	assert.True(t, rec.RevenueMUSD.Valid)
	// A parseable zero is a sentinel, not a coercion error.
	assert.Zero(t, res.CoerceErrors["budget_musd"])
}

func TestClean_UnparseableNumericsCountedAsErrors(t *testing.T) {
	res := New().Clean([]model.RawRecord{
		{ID: 1, Title: "A", Budget: "not-a-number", Runtime: "??"},
		{ID: 2, Title: "B", Budget: "-12", Revenue: "100"},
	})

	assert.False(t, res.Records[0].BudgetMUSD.Valid)
	assert.Nil(t, res.Records[0].Runtime)
	assert.Equal(t, 2, res.CoerceErrors["budget_musd"]) // unparseable + negative
	assert.Equal(t, 1, res.CoerceErrors["runtime"])
}

func TestClean_DateCoercion(t *testing.T) {
	res := New().Clean([]model.RawRecord{
		{ID: 1, Title: "A", ReleaseDate: "2009-12-18"},
		{ID: 2, Title: "B", ReleaseDate: "tomorrow"},
		{ID: 3, Title: "C"},
	})

	require.NotNil(t, res.Records[0].ReleaseDate)
	assert.Equal(t, time.Date(2009, 12, 18, 0, 0, 0, 0, time.UTC), *res.Records[0].ReleaseDate)
	assert.Nil(t, res.Records[1].ReleaseDate)
	assert.Nil(t, res.Records[2].ReleaseDate)
	assert.Equal(t, 1, res.CoerceErrors["release_date"])
}

func TestClean_TextPlaceholdersScrubbed(t *testing.T) {
	res := New().Clean([]model.RawRecord{
		{ID: 1, Title: "A", Tagline: "N/A", Overview: "No overview available."},
		{ID: 2, Title: "B", Tagline: "  An adventure.  ", Overview: ""},
	})

	assert.Nil(t, res.Records[0].Tagline)
	assert.Nil(t, res.Records[0].Overview)
	require.NotNil(t, res.Records[1].Tagline)
	assert.Equal(t, "An adventure.", *res.Records[1].Tagline)
	assert.Nil(t, res.Records[1].Overview)
}

func TestClean_ZeroVoteCountInvalidatesRating(t *testing.T) {
	res := New().Clean([]model.RawRecord{
		{ID: 1, Title: "A", VoteCount: "0", VoteAverage: "9.5"},
		{ID: 2, Title: "B", VoteCount: "120", VoteAverage: "7.2"},
	})

	assert.Nil(t, res.Records[0].VoteAverage)
	require.NotNil(t, res.Records[1].VoteAverage)
	assert.InDelta(t, 7.2, *res.Records[1].VoteAverage, 0.001)
}

func TestClean_ListsFlattenedToPipeJoined(t *testing.T) {
	res := New().Clean([]model.RawRecord{
		{
			ID:    1,
			Title: "Avatar",
			Genres: []model.NamedRef{
				{Name: "Action"}, {Name: "Adventure"}, {Name: "Science Fiction"},
			},
			ProductionCompanies: []model.NamedRef{{Name: "Lightstorm Entertainment"}},
			BelongsToCollection: &model.NamedRef{Name: "Avatar Collection"},
		},
		{ID: 2, Title: "Bare"},
	})

	rec := res.Records[0]
	require.NotNil(t, rec.Genres)
	assert.Equal(t, "Action|Adventure|Science Fiction", *rec.Genres)
	require.NotNil(t, rec.ProductionCompanies)
	assert.Equal(t, "Lightstorm Entertainment", *rec.ProductionCompanies)
	require.NotNil(t, rec.Collection)
	assert.Equal(t, "Avatar Collection", *rec.Collection)
	assert.True(t, rec.IsFranchise())

	bare := res.Records[1]
	assert.Nil(t, bare.Genres)
	assert.Nil(t, bare.Collection)
	assert.False(t, bare.IsFranchise())
}

func TestClean_CreditsDerivedColumns(t *testing.T) {
	res := New().Clean([]model.RawRecord{
		{
			ID:    1,
			Title: "Avatar",
			Credits: &model.Credits{
				Cast: []model.CastMember{
					{Name: "Sam Worthington"}, {Name: "Zoe Saldana"},
				},
				Crew: []model.CrewMember{
					{Name: "James Cameron", Job: "Director"},
					{Name: "Mauro Fiore", Job: "Director of Photography"},
					{Name: "James Cameron", Job: "Writer"},
				},
			},
		},
		{ID: 2, Title: "No Credits"},
	})

	rec := res.Records[0]
	require.NotNil(t, rec.Cast)
	assert.Equal(t, "Sam Worthington|Zoe Saldana", *rec.Cast)
	require.NotNil(t, rec.Directors)
	assert.Equal(t, "James Cameron", *rec.Directors)
	require.NotNil(t, rec.CastSize)
	assert.Equal(t, int64(2), *rec.CastSize)
	require.NotNil(t, rec.CrewSize)
	assert.Equal(t, int64(3), *rec.CrewSize)

	bare := res.Records[1]
	assert.Nil(t, bare.Cast)
	assert.Nil(t, bare.CastSize)
	assert.Nil(t, bare.CrewSize)
}

func TestClean_DuplicatesDroppedOrderPreserved(t *testing.T) {
	res := New().Clean([]model.RawRecord{
		{ID: 3, Title: "Third"},
		{ID: 1, Title: "First"},
		{ID: 3, Title: "Third Again"},
		{ID: 2, Title: "Second"},
	})

	require.Len(t, res.Records, 3)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, []int64{3, 1, 2}, []int64{res.Records[0].ID, res.Records[1].ID, res.Records[2].ID})
	assert.Equal(t, "Third", res.Records[0].Title)
}
