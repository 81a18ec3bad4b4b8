package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

// Gate evaluates a stage's quality report before the artifact is persisted.
// An empty artifact aborts the stage; a low quality score only warns, so a
// sparse upstream never silently becomes a hard failure.
type Gate struct {
	minScore float64
}

// NewGate creates a Gate with the configured minimum quality score
// (percent).
func NewGate(minScore float64) *Gate {
	return &Gate{minScore: minScore}
}

// Check returns an error only for an empty artifact.
func (g *Gate) Check(report *model.QualityReport) error {
	if report.Rows == 0 {
		return eris.Errorf("gate: stage %s produced an empty artifact", report.Stage)
	}
	if report.QualityScore < g.minScore {
		zap.L().Warn("gate: quality score below minimum",
			zap.String("stage", report.Stage),
			zap.Float64("quality_score", report.QualityScore),
			zap.Float64("min_quality_score", g.minScore),
		)
	}
	return nil
}
