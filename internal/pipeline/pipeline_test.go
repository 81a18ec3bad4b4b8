package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxofficelab/catalog-cli/internal/config"
	"github.com/boxofficelab/catalog-cli/internal/model"
	"github.com/boxofficelab/catalog-cli/internal/resilience"
	"github.com/boxofficelab/catalog-cli/internal/store"
	"github.com/boxofficelab/catalog-cli/pkg/catalog"
)

// fakeClient returns a canned batch result.
type fakeClient struct {
	batch *catalog.BatchResult
	err   error
	calls int
}

func (f *fakeClient) Fetch(ctx context.Context, id int64) (*model.RawRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.batch.Records {
		if f.batch.Records[i].ID == id {
			return &f.batch.Records[i], nil
		}
	}
	return nil, &resilience.NotFoundError{ID: id}
}

func (f *fakeClient) FetchBatch(ctx context.Context, ids []int64) (*catalog.BatchResult, error) {
	f.calls++
	return f.batch, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Validate: config.ValidateConfig{
			RequiredColumns:      []string{"id", "title", "budget_musd", "revenue_musd"},
			OutlierIQRMultiplier: 1.5,
		},
		Metrics: config.MetricsConfig{ReliabilityThresholdMUSD: 10},
		Pipeline: config.PipelineConfig{
			IDs:             []int64{19995, 140607},
			MinQualityScore: 60,
			SkipExisting:    true,
		},
	}
}

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func goodBatch() *catalog.BatchResult {
	return &catalog.BatchResult{
		Requested: 2,
		Records: []model.RawRecord{
			{
				ID: 19995, Title: "Avatar",
				Budget: "237000000", Revenue: "2923706026",
				ReleaseDate: "2009-12-18", VoteCount: "25000", VoteAverage: "7.8",
				Genres:              []model.NamedRef{{Name: "Action"}, {Name: "Science Fiction"}},
				BelongsToCollection: &model.NamedRef{Name: "Avatar Collection"},
				Credits: &model.Credits{
					Cast: []model.CastMember{{Name: "Sam Worthington"}},
					Crew: []model.CrewMember{{Name: "James Cameron", Job: "Director"}},
				},
			},
			{
				ID: 140607, Title: "Star Wars: The Force Awakens",
				Budget: "245000000", Revenue: "2068223624",
				ReleaseDate: "2015-12-15", VoteCount: "17000", VoteAverage: "7.3",
				Genres: []model.NamedRef{{Name: "Adventure"}},
			},
		},
	}
}

func TestRun_AllStagesSucceed(t *testing.T) {
	st := testStore(t)
	client := &fakeClient{batch: goodBatch()}
	orch := New(testConfig(), st, client)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.Len(t, run.Stages, 4)
	for _, s := range run.Stages {
		assert.Equal(t, model.StageStatusSucceeded, s.Status, s.Name)
	}
	assert.Equal(t, 2, run.Requested)
	assert.Equal(t, 2, run.Fetched)
	assert.InDelta(t, 100.0, run.SuccessRate, 0.0001)
	assert.NotEmpty(t, run.Headlines)

	ctx := context.Background()
	for _, stage := range model.Stages() {
		has, err := st.HasArtifact(ctx, stage)
		require.NoError(t, err)
		assert.True(t, has, stage)
	}

	// The run is retrievable with its summary.
	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
}

func TestRun_SecondRunSkipsAndArtifactsAreIdentical(t *testing.T) {
	st := testStore(t)
	client := &fakeClient{batch: goodBatch()}
	orch := New(testConfig(), st, client)
	ctx := context.Background()

	_, err := orch.Run(ctx)
	require.NoError(t, err)

	before := make(map[string][]byte)
	for _, stage := range model.Stages() {
		a, err := st.LoadArtifact(ctx, stage)
		require.NoError(t, err)
		before[stage] = a.Rows
	}

	second, err := orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls, "skip-existing must not refetch")
	require.Len(t, second.Stages, 4)
	for _, s := range second.Stages {
		assert.Equal(t, model.StageStatusSkipped, s.Status, s.Name)
	}
	for _, stage := range model.Stages() {
		a, err := st.LoadArtifact(ctx, stage)
		require.NoError(t, err)
		assert.Equal(t, before[stage], a.Rows, stage)
	}
}

func TestRun_AuthenticationErrorAbortsRun(t *testing.T) {
	st := testStore(t)
	client := &fakeClient{
		batch: &catalog.BatchResult{Requested: 2},
		err:   &resilience.AuthenticationError{StatusCode: 401, Reason: "credential rejected"},
	}
	orch := New(testConfig(), st, client)

	run, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))

	assert.Equal(t, model.RunStatusFailed, run.Status)
	require.Len(t, run.Stages, 1)
	assert.Equal(t, model.StageExtract, run.Stages[0].Name)
	assert.Equal(t, model.StageStatusFailed, run.Stages[0].Status)

	has, err := st.HasArtifact(context.Background(), model.StageExtract)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRun_PerRecordFailuresDegradeButContinue(t *testing.T) {
	st := testStore(t)
	batch := goodBatch()
	batch.Requested = 3
	batch.Failures = []model.RecordFailure{
		{ID: 99999999, Kind: "not_found", Attempts: 1},
	}
	client := &fakeClient{batch: batch}
	orch := New(testConfig(), st, client)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 3, run.Requested)
	assert.Equal(t, 2, run.Fetched)
	assert.InDelta(t, 66.666, run.SuccessRate, 0.01)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, "not_found", run.Failures[0].Kind)
}

func TestRun_EmptyExtractIsFatal(t *testing.T) {
	st := testStore(t)
	client := &fakeClient{batch: &catalog.BatchResult{Requested: 2}}
	orch := New(testConfig(), st, client)

	run, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty artifact")
	assert.Equal(t, model.RunStatusFailed, run.Status)
	require.Len(t, run.Stages, 1)
}

func TestRun_LowQualityScoreWarnsOnly(t *testing.T) {
	st := testStore(t)
	// No budget or revenue anywhere: quality score 50% with the default
	// required columns, below the 60% minimum.
	client := &fakeClient{batch: &catalog.BatchResult{
		Requested: 1,
		Records:   []model.RawRecord{{ID: 1, Title: "Sparse"}},
	}}
	orch := New(testConfig(), st, client)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)

	cleanStage := run.StageResultFor(model.StageClean)
	require.NotNil(t, cleanStage)
	assert.Equal(t, model.StageStatusSucceeded, cleanStage.Status)
	assert.InDelta(t, 50.0, cleanStage.QualityScore, 0.0001)
}

func TestRunStages_DownstreamWithoutUpstreamFails(t *testing.T) {
	st := testStore(t)
	orch := New(testConfig(), st, &fakeClient{batch: goodBatch()})

	run, err := orch.RunStages(context.Background(), []string{model.StageClean})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrArtifactNotFound)
	assert.Equal(t, model.RunStatusFailed, run.Status)
}

func TestRunStages_SingleStage(t *testing.T) {
	st := testStore(t)
	client := &fakeClient{batch: goodBatch()}
	orch := New(testConfig(), st, client)
	ctx := context.Background()

	run, err := orch.RunStages(ctx, []string{model.StageExtract})
	require.NoError(t, err)
	require.Len(t, run.Stages, 1)
	assert.Equal(t, model.StageExtract, run.Stages[0].Name)

	has, err := st.HasArtifact(ctx, model.StageExtract)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = st.HasArtifact(ctx, model.StageClean)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRunStages_UnknownStage(t *testing.T) {
	st := testStore(t)
	orch := New(testConfig(), st, &fakeClient{batch: goodBatch()})

	_, err := orch.RunStages(context.Background(), []string{"render"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestRun_HeadlinesIncludeRevenueAndROI(t *testing.T) {
	st := testStore(t)
	client := &fakeClient{batch: goodBatch()}
	orch := New(testConfig(), st, client)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	byMetric := make(map[string]model.Headline)
	for _, h := range run.Headlines {
		byMetric[h.Metric] = h
	}
	require.Contains(t, byMetric, "highest_revenue")
	assert.Equal(t, "Avatar", byMetric["highest_revenue"].Title)
	require.Contains(t, byMetric, "highest_roi")
	assert.Equal(t, "Avatar", byMetric["highest_roi"].Title)
}
