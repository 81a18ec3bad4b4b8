package model

// ColumnStats summarizes missing-value density for one column of a stage
// artifact.
type ColumnStats struct {
	Column         string  `json:"column"`
	Rows           int     `json:"rows"`
	Missing        int     `json:"missing"`
	MissingPercent float64 `json:"missing_percent"`
}

// Outlier flags a record whose metric magnitude falls beyond the configured
// interquartile bound. Outliers are reported, never removed.
type Outlier struct {
	RecordID int64   `json:"record_id"`
	Title    string  `json:"title"`
	Column   string  `json:"column"`
	Value    float64 `json:"value"`
	Bound    float64 `json:"bound"`
}

// QualityReport summarizes data quality for one stage artifact. The quality
// score is the mean percentage of non-missing cells across required columns.
type QualityReport struct {
	Stage        string        `json:"stage"`
	Rows         int           `json:"rows"`
	QualityScore float64       `json:"quality_score"`
	Columns      []ColumnStats `json:"columns"`
	Outliers     []Outlier     `json:"outliers,omitempty"`
}

// StageArtifact is a named stage output: JSON-encoded rows plus the quality
// report produced when the stage ran. Never mutated after being written; a new
// stage run overwrites it or is skipped per the resumption policy.
type StageArtifact struct {
	Stage  string        `json:"stage"`
	Rows   []byte        `json:"rows"`
	Report QualityReport `json:"report"`
}
