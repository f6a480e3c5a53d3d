// Package history records completed pipeline runs so operators can see what
// ran against a manuscript, when, and at what confidence.
package history

import "time"

// Record is one logged pipeline run.
type Record struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	ManuscriptID      string    `json:"manuscript_id"`
	Operation         string    `json:"operation"`
	RequestID         string    `json:"request_id"`
	Replayed          bool      `json:"replayed"`
	OverallConfidence float64   `json:"overall_confidence"`
	StagesRun         int       `json:"stages_run"`
	FailedStage       int       `json:"failed_stage,omitempty"`
	DurationMS        int64     `json:"duration_ms"`
}

// Failed reports whether the run stopped at a stage error.
func (r Record) Failed() bool { return r.FailedStage != 0 }
