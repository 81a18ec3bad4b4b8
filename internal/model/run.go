package model

import "time"

// Stage names, in execution order.
const (
	StageExtract = "extract"
	StageClean   = "clean"
	StageMetrics = "metrics"
	StageAnalyze = "analyze"
)

// Stages lists the pipeline stages in their strict execution order.
func Stages() []string {
	return []string{StageExtract, StageClean, StageMetrics, StageAnalyze}
}

// StageStatus is the terminal state of one stage within a run.
type StageStatus string

const (
	StageStatusSkipped   StageStatus = "skipped"
	StageStatusSucceeded StageStatus = "succeeded"
	StageStatusFailed    StageStatus = "failed"
)

// RunStatus is the overall state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// StageResult records the outcome of one stage in a pipeline run.
type StageResult struct {
	Name         string      `json:"name"`
	Status       StageStatus `json:"status"`
	DurationMS   int64       `json:"duration_ms"`
	Rows         int         `json:"rows"`
	QualityScore float64     `json:"quality_score"`
	Error        string      `json:"error,omitempty"`
}

// RecordFailure is one per-record fetch failure collected during extraction.
type RecordFailure struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// Headline is a single best/worst record callout in the run summary.
type Headline struct {
	Metric   string  `json:"metric"`
	RecordID int64   `json:"record_id"`
	Title    string  `json:"title"`
	Value    float64 `json:"value"`
}

// PipelineRun aggregates one end-to-end execution: per-stage outcomes,
// extraction failures, and headline statistics. Owned exclusively by the
// orchestrator for the duration of the run.
type PipelineRun struct {
	ID          string          `json:"id"`
	Status      RunStatus       `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Stages      []StageResult   `json:"stages"`
	Requested   int             `json:"requested"`
	Fetched     int             `json:"fetched"`
	SuccessRate float64         `json:"success_rate"`
	Failures    []RecordFailure `json:"failures,omitempty"`
	Headlines   []Headline      `json:"headlines,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// StageResultFor returns the result for the named stage, or nil.
func (r *PipelineRun) StageResultFor(name string) *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}
