package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

func TestGate_EmptyArtifactIsFatal(t *testing.T) {
	g := NewGate(60)

	err := g.Check(&model.QualityReport{Stage: model.StageClean, Rows: 0, QualityScore: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty artifact")
}

func TestGate_LowScoreOnlyWarns(t *testing.T) {
	g := NewGate(60)

	err := g.Check(&model.QualityReport{Stage: model.StageClean, Rows: 10, QualityScore: 12.5})
	assert.NoError(t, err)
}

func TestGate_HealthyArtifactPasses(t *testing.T) {
	g := NewGate(60)

	err := g.Check(&model.QualityReport{Stage: model.StageMetrics, Rows: 10, QualityScore: 97.5})
	assert.NoError(t, err)
}
