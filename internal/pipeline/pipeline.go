// Package pipeline orchestrates the staged catalog pipeline: extract, clean,
// metrics, analyze.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/boxofficelab/catalog-cli/internal/analyze"
	"github.com/boxofficelab/catalog-cli/internal/clean"
	"github.com/boxofficelab/catalog-cli/internal/config"
	"github.com/boxofficelab/catalog-cli/internal/metrics"
	"github.com/boxofficelab/catalog-cli/internal/model"
	"github.com/boxofficelab/catalog-cli/internal/store"
	"github.com/boxofficelab/catalog-cli/internal/validate"
	"github.com/boxofficelab/catalog-cli/pkg/catalog"
)

// rawRequired are the columns the extract artifact must carry; the configured
// required columns apply to the cleaned tables downstream.
var rawRequired = []string{"id", "title"}

// Orchestrator runs pipeline stages in strict order, checkpointing each
// stage's artifact and recording the run.
type Orchestrator struct {
	cfg       *config.Config
	store     store.Store
	client    catalog.Client
	validator *validate.Validator
	engine    *metrics.Engine
	analyzer  *analyze.Analyzer
	gate      *Gate
}

// New creates an Orchestrator with all dependencies.
func New(cfg *config.Config, st store.Store, client catalog.Client) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     st,
		client:    client,
		validator: validate.New(cfg.Validate.RequiredColumns, cfg.Validate.OutlierIQRMultiplier),
		engine:    metrics.New(cfg.Metrics.ReliabilityThresholdMUSD),
		analyzer:  analyze.New(),
		gate:      NewGate(cfg.Pipeline.MinQualityScore),
	}
}

// Run executes every stage in order.
func (o *Orchestrator) Run(ctx context.Context) (*model.PipelineRun, error) {
	return o.RunStages(ctx, model.Stages())
}

// RunStages executes the given stages in order within one recorded run. A
// stage whose complete artifact already exists is skipped when the resumption
// policy allows it. The first stage failure aborts the remaining stages; the
// run record is persisted either way.
func (o *Orchestrator) RunStages(ctx context.Context, stages []string) (*model.PipelineRun, error) {
	log := zap.L()

	run, err := o.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log.Info("pipeline: run started", zap.String("run_id", run.ID), zap.Strings("stages", stages))

	var stageErr error
	for _, stage := range stages {
		if o.cfg.Pipeline.SkipExisting {
			skipped, err := o.skipIfComplete(ctx, stage, run)
			if err != nil {
				stageErr = err
				break
			}
			if skipped {
				continue
			}
		}

		start := time.Now()
		report, err := o.runStage(ctx, stage, run)
		elapsed := time.Since(start).Milliseconds()

		result := model.StageResult{Name: stage, DurationMS: elapsed}
		if report != nil {
			result.Rows = report.Rows
			result.QualityScore = report.QualityScore
		}
		if err != nil {
			result.Status = model.StageStatusFailed
			result.Error = err.Error()
			run.Stages = append(run.Stages, result)
			log.Error("pipeline: stage failed",
				zap.String("run_id", run.ID),
				zap.String("stage", stage),
				zap.Int64("duration_ms", elapsed),
				zap.Error(err),
			)
			stageErr = err
			break
		}

		result.Status = model.StageStatusSucceeded
		run.Stages = append(run.Stages, result)
		log.Info("pipeline: stage complete",
			zap.String("run_id", run.ID),
			zap.String("stage", stage),
			zap.Int64("duration_ms", elapsed),
			zap.Int("rows", result.Rows),
			zap.Float64("quality_score", result.QualityScore),
		)
	}

	o.attachHeadlines(ctx, run)

	run.FinishedAt = time.Now().UTC()
	if stageErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = stageErr.Error()
	} else {
		run.Status = model.RunStatusComplete
	}
	if err := o.store.CompleteRun(ctx, run); err != nil {
		log.Warn("pipeline: failed to persist run", zap.String("run_id", run.ID), zap.Error(err))
	}

	log.Info("pipeline: run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Float64("success_rate", run.SuccessRate),
	)
	return run, stageErr
}

// skipIfComplete records a skipped StageResult when the stage's artifact is
// already complete.
func (o *Orchestrator) skipIfComplete(ctx context.Context, stage string, run *model.PipelineRun) (bool, error) {
	has, err := o.store.HasArtifact(ctx, stage)
	if err != nil {
		return false, eris.Wrapf(err, "pipeline: check artifact %s", stage)
	}
	if !has {
		return false, nil
	}

	artifact, err := o.store.LoadArtifact(ctx, stage)
	if err != nil {
		return false, eris.Wrapf(err, "pipeline: load artifact %s", stage)
	}
	run.Stages = append(run.Stages, model.StageResult{
		Name:         stage,
		Status:       model.StageStatusSkipped,
		Rows:         artifact.Report.Rows,
		QualityScore: artifact.Report.QualityScore,
	})
	zap.L().Info("pipeline: stage skipped, artifact exists",
		zap.String("run_id", run.ID),
		zap.String("stage", stage),
	)
	return true, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage string, run *model.PipelineRun) (*model.QualityReport, error) {
	switch stage {
	case model.StageExtract:
		return o.runExtract(ctx, run)
	case model.StageClean:
		return o.runClean(ctx)
	case model.StageMetrics:
		return o.runMetrics(ctx)
	case model.StageAnalyze:
		return o.runAnalyze(ctx)
	default:
		return nil, eris.Errorf("pipeline: unknown stage %q", stage)
	}
}

func (o *Orchestrator) runExtract(ctx context.Context, run *model.PipelineRun) (*model.QualityReport, error) {
	batch, err := o.client.FetchBatch(ctx, o.cfg.Pipeline.IDs)
	if batch != nil {
		run.Requested = batch.Requested
		run.Fetched = len(batch.Records)
		run.SuccessRate = batch.SuccessRate()
		run.Failures = batch.Failures
	}
	if err != nil {
		// Authentication failures surface here and abort the run.
		return nil, err
	}

	report, err := o.validator.Report(model.StageExtract, len(batch.Records), validate.RawColumns(batch.Records), rawRequired)
	if err != nil {
		return nil, err
	}
	if err := o.gate.Check(report); err != nil {
		return report, err
	}
	return report, o.saveArtifact(ctx, model.StageExtract, batch.Records, report)
}

func (o *Orchestrator) runClean(ctx context.Context) (*model.QualityReport, error) {
	var raw []model.RawRecord
	if err := o.loadRows(ctx, model.StageExtract, &raw); err != nil {
		return nil, err
	}

	res := clean.New().Clean(raw)
	report, err := o.validator.Report(model.StageClean, len(res.Records), validate.CleanColumns(res.Records), o.cfg.Validate.RequiredColumns)
	if err != nil {
		return nil, err
	}
	if err := o.gate.Check(report); err != nil {
		return report, err
	}
	return report, o.saveArtifact(ctx, model.StageClean, res.Records, report)
}

func (o *Orchestrator) runMetrics(ctx context.Context) (*model.QualityReport, error) {
	var cleaned []model.CleanRecord
	if err := o.loadRows(ctx, model.StageClean, &cleaned); err != nil {
		return nil, err
	}

	records := o.engine.Compute(cleaned)
	report, err := o.validator.Report(model.StageMetrics, len(records), validate.MetricColumns(records), o.cfg.Validate.RequiredColumns)
	if err != nil {
		return nil, err
	}
	report.Outliers = o.validator.FlagROIOutliers(records)
	if err := o.gate.Check(report); err != nil {
		return report, err
	}
	return report, o.saveArtifact(ctx, model.StageMetrics, records, report)
}

func (o *Orchestrator) runAnalyze(ctx context.Context) (*model.QualityReport, error) {
	artifact, err := o.store.LoadArtifact(ctx, model.StageMetrics)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load metrics artifact")
	}
	var records []model.MetricRecord
	if err := json.Unmarshal(artifact.Rows, &records); err != nil {
		return nil, eris.Wrap(err, "pipeline: decode metrics artifact")
	}

	analysis := o.analyzer.Report(records)

	// The analyze artifact is a single report document; its quality is the
	// quality of the metric table it summarizes.
	report := &model.QualityReport{
		Stage:        model.StageAnalyze,
		Rows:         analysis.Rows,
		QualityScore: artifact.Report.QualityScore,
	}
	if err := o.gate.Check(report); err != nil {
		return report, err
	}
	return report, o.saveArtifact(ctx, model.StageAnalyze, analysis, report)
}

// attachHeadlines computes the ranking headlines from the metrics artifact
// when one exists, whether this run produced it or a previous one did.
func (o *Orchestrator) attachHeadlines(ctx context.Context, run *model.PipelineRun) {
	has, err := o.store.HasArtifact(ctx, model.StageMetrics)
	if err != nil || !has {
		return
	}
	artifact, err := o.store.LoadArtifact(ctx, model.StageMetrics)
	if err != nil {
		zap.L().Warn("pipeline: load metrics for headlines", zap.Error(err))
		return
	}
	var records []model.MetricRecord
	if err := json.Unmarshal(artifact.Rows, &records); err != nil {
		zap.L().Warn("pipeline: decode metrics for headlines", zap.Error(err))
		return
	}
	run.Headlines = o.engine.Rankings(records)
}

func (o *Orchestrator) saveArtifact(ctx context.Context, stage string, rows any, report *model.QualityReport) error {
	encoded, err := json.Marshal(rows)
	if err != nil {
		return eris.Wrapf(err, "pipeline: encode %s artifact", stage)
	}
	return o.store.SaveArtifact(ctx, &model.StageArtifact{
		Stage:  stage,
		Rows:   encoded,
		Report: *report,
	})
}

func (o *Orchestrator) loadRows(ctx context.Context, stage string, out any) error {
	artifact, err := o.store.LoadArtifact(ctx, stage)
	if err != nil {
		return eris.Wrapf(err, "pipeline: load %s artifact", stage)
	}
	if err := json.Unmarshal(artifact.Rows, out); err != nil {
		return eris.Wrapf(err, "pipeline: decode %s artifact", stage)
	}
	return nil
}
