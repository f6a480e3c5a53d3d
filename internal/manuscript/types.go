// Package manuscript defines the manuscript document model: content,
// metadata, per-stage analysis results, the continuity ledger, and the
// idempotency bookkeeping that guards mutating operations.
package manuscript

import (
	"strings"
	"time"
)

// MinRequestIDLength is the minimum length of a caller-supplied request id.
const MinRequestIDLength = 6

// IssueType categorizes an editorial finding.
type IssueType string

const (
	IssueGrammar     IssueType = "grammar"
	IssueSyntax      IssueType = "syntax"
	IssueStyle       IssueType = "style"
	IssueContinuity  IssueType = "continuity"
	IssueStructure   IssueType = "structure"
	IssueReadability IssueType = "readability"
	IssueTense       IssueType = "tense"
	IssueVoice       IssueType = "voice"
)

// Severity grades how serious an issue is.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityMajor      Severity = "major"
	SeverityMinor      Severity = "minor"
	SeveritySuggestion Severity = "suggestion"
)

// Location points at where in the manuscript an issue was found. Zero fields
// mean the dimension was not identified.
type Location struct {
	Chapter   int `json:"chapter,omitempty"`
	Paragraph int `json:"paragraph,omitempty"`
	Line      int `json:"line,omitempty"`
	Offset    int `json:"offset,omitempty"`
}

// Issue is a single editorial finding produced by a stage.
type Issue struct {
	ID            string    `json:"id"`
	Type          IssueType `json:"type"`
	Severity      Severity  `json:"severity"`
	Location      Location  `json:"location,omitempty"`
	Message       string    `json:"message"`
	Original      string    `json:"original,omitempty"`
	Suggestion    string    `json:"suggestion,omitempty"`
	RuleReference string    `json:"rule_reference,omitempty"`
}

// StageResult records one stage's pass over the manuscript.
type StageResult struct {
	AgentName      string        `json:"agent_name"`
	Stage          int           `json:"stage"`
	Confidence     float64       `json:"confidence"`
	Issues         []Issue       `json:"issues"`
	Summary        string        `json:"summary"`
	ProcessingTime time.Duration `json:"processing_time"`
	Timestamp      time.Time     `json:"timestamp"`
	Sources        []string      `json:"sources,omitempty"`
}

// WorkflowState tracks pipeline progress on a manuscript.
type WorkflowState struct {
	CurrentStage      int       `json:"current_stage"`
	StagesCompleted   []int     `json:"stages_completed"`
	OverallConfidence float64   `json:"overall_confidence"`
	LastProcessedAt   time.Time `json:"last_processed_at"`
}

// MarkCompleted records stage as completed, keeping the list sorted and
// duplicate-free.
func (w *WorkflowState) MarkCompleted(stage int) {
	for _, s := range w.StagesCompleted {
		if s == stage {
			return
		}
	}
	i := 0
	for i < len(w.StagesCompleted) && w.StagesCompleted[i] < stage {
		i++
	}
	w.StagesCompleted = append(w.StagesCompleted, 0)
	copy(w.StagesCompleted[i+1:], w.StagesCompleted[i:])
	w.StagesCompleted[i] = stage
}

// Metadata describes the manuscript.
type Metadata struct {
	Title        string    `json:"title"`
	Genre        string    `json:"genre,omitempty"`
	Audience     string    `json:"audience,omitempty"`
	Language     string    `json:"language,omitempty"`
	WordCount    int       `json:"word_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// RunReport is the stored outcome of one completed operation. A duplicate
// request id gets this report back verbatim, untouched by whatever ran on the
// document since.
type RunReport struct {
	RequestID         string        `json:"request_id"`
	Results           []StageResult `json:"results"`
	OverallConfidence float64       `json:"overall_confidence"`
}

// Document is a manuscript together with everything the pipeline has learned
// about it. It lives for the life of the process, backed by a Repository.
type Document struct {
	ID             string               `json:"id"`
	Content        string               `json:"content"`
	Metadata       Metadata             `json:"metadata"`
	Workflow       WorkflowState        `json:"workflow"`
	StageResults   []StageResult        `json:"stage_results"`
	Continuity     Ledger               `json:"continuity"`
	LastRequestIDs map[string]string    `json:"last_request_ids"`
	LastReports    map[string]RunReport `json:"last_reports,omitempty"`
}

// NewDocument creates an empty document shell for the given id.
func NewDocument(id string) *Document {
	return &Document{
		ID:             id,
		Continuity:     NewLedger(),
		LastRequestIDs: make(map[string]string),
		LastReports:    make(map[string]RunReport),
	}
}

// ApplyUpsert replaces content and descriptive metadata while preserving
// stage results, the continuity ledger, and idempotency bookkeeping. The
// word count is recomputed from the new content.
func (d *Document) ApplyUpsert(content string, meta Metadata, now time.Time) {
	d.Content = content

	if d.Metadata.CreatedAt.IsZero() {
		d.Metadata.CreatedAt = now
	}
	d.Metadata.Title = meta.Title
	d.Metadata.Genre = meta.Genre
	d.Metadata.Audience = meta.Audience
	d.Metadata.Language = meta.Language
	d.Metadata.WordCount = len(strings.Fields(content))
	d.Metadata.LastModified = now
}

// RecordOutcome stores the request id and report for one operation, making a
// later duplicate request replayable. Maps are created on demand so documents
// decoded from older snapshots stay usable.
func (d *Document) RecordOutcome(operation string, report RunReport) {
	if d.LastRequestIDs == nil {
		d.LastRequestIDs = make(map[string]string)
	}
	if d.LastReports == nil {
		d.LastReports = make(map[string]RunReport)
	}
	d.LastRequestIDs[operation] = report.RequestID
	d.LastReports[operation] = report
}

// LatestResult returns the most recent StageResult for the given stage
// number, or nil if the stage has never run.
func (d *Document) LatestResult(stage int) *StageResult {
	for i := len(d.StageResults) - 1; i >= 0; i-- {
		if d.StageResults[i].Stage == stage {
			return &d.StageResults[i]
		}
	}
	return nil
}

// ValidRequestID reports whether the caller-supplied request id meets the
// minimum length requirement.
func ValidRequestID(requestID string) bool {
	return len(requestID) >= MinRequestIDLength
}
