package models

import "time"

// RuleStatus is the outcome of processing one index rule
type RuleStatus string

const (
	RuleStatusDone    RuleStatus = "done"
	RuleStatusFailed  RuleStatus = "failed"
	RuleStatusSkipped RuleStatus = "skipped"
)

// RuleResult reports the outcome of one rule in a run
type RuleResult struct {
	Key        ArticleKey `json:"key"`
	SourcePath string     `json:"source_path"`
	Status     RuleStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	OutputPath string     `json:"output_path,omitempty"`
	Pages      int        `json:"pages"`
	Confidence float64    `json:"confidence"`
	OCR        bool       `json:"ocr"` // false for text sources, which carry no confidence
	LineFaults int        `json:"line_faults"`
}

// RunRecord is one preprocessing run as kept in the run ledger
type RunRecord struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"started_at" badgerhold:"index"`
	FinishedAt  time.Time    `json:"finished_at"`
	IndexPath   string       `json:"index_path"`
	Rasterized  int          `json:"rasterized"` // rasterizer invocations
	RowErrors   []string     `json:"row_errors,omitempty"`
	Results     []RuleResult `json:"results"`
	MeanOCRConf float64      `json:"mean_ocr_confidence"`
}

// Failed returns the number of failed rules
func (r *RunRecord) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == RuleStatusFailed {
			n++
		}
	}
	return n
}
