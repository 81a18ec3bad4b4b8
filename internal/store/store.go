// Package store persists stage artifacts and pipeline runs.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

// ErrArtifactNotFound reports that no complete artifact exists for a stage.
// Callers check it with errors.Is.
var ErrArtifactNotFound = eris.New("artifact not found")

// RunFilter specifies criteria for listing pipeline runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the catalog pipeline.
type Store interface {
	// Artifacts. HasArtifact reports only completely written artifacts, so
	// an interrupted save is invisible to the resumption policy.
	HasArtifact(ctx context.Context, stage string) (bool, error)
	LoadArtifact(ctx context.Context, stage string) (*model.StageArtifact, error)
	SaveArtifact(ctx context.Context, artifact *model.StageArtifact) error

	// Runs
	CreateRun(ctx context.Context) (*model.PipelineRun, error)
	CompleteRun(ctx context.Context, run *model.PipelineRun) error
	GetRun(ctx context.Context, runID string) (*model.PipelineRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.PipelineRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
