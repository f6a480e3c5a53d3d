// Package pipeline orchestrates stage agents over manuscripts: full
// compliance runs, the structural pair, and isolated single-stage runs, with
// at-most-once request semantics and weighted confidence aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/inkhouse/copydesk/internal/errs"
	"github.com/inkhouse/copydesk/internal/llm"
	"github.com/inkhouse/copydesk/internal/manuscript"
	"github.com/inkhouse/copydesk/internal/retrieval"
	"github.com/inkhouse/copydesk/internal/stages"
)

// ErrNotFound is returned when the manuscript id is unknown.
var ErrNotFound = errors.New("manuscript not found")

// LowConfidenceThreshold marks stages whose confidence warrants review.
const LowConfidenceThreshold = 0.85

// ComplianceStages is the full compliance sequence, in order.
var ComplianceStages = []int{
	stages.StageIntake,
	stages.StageGrammar,
	stages.StageSyntax,
	stages.StageTense,
	stages.StageStyle,
	stages.StageContinuity,
	stages.StageReadability,
	stages.StageQA,
}

// StructuralStages is the structural pair, always run together.
var StructuralStages = []int{stages.StageStructure, stages.StageArc}

// RunRequest identifies one pipeline invocation.
type RunRequest struct {
	ManuscriptID string
	RequestID    string
	StyleGuide   string
	ReadingLevel string
}

// Report is the outcome of a completed run.
type Report struct {
	ManuscriptID      string                   `json:"manuscript_id"`
	Operation         string                   `json:"operation"`
	Results           []manuscript.StageResult `json:"results"`
	OverallConfidence float64                  `json:"overall_confidence"`
	LowConfidence     []int                    `json:"low_confidence_stages,omitempty"`
	Replayed          bool                     `json:"replayed"`
}

// StageError reports which stage failed and carries the results of the
// stages that completed before it. Those results are already persisted.
type StageError struct {
	Stage     int
	AgentName string
	Partial   []manuscript.StageResult
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s) failed: %v", e.Stage, e.AgentName, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// RunRecord summarizes one pipeline invocation for the run history log.
type RunRecord struct {
	ManuscriptID      string
	Operation         string
	RequestID         string
	Replayed          bool
	OverallConfidence float64
	StagesRun         int
	FailedStage       int
	Duration          time.Duration
}

// Recorder persists run history. Recording is best-effort: a recorder
// failure is logged and never surfaced to the caller.
type Recorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// Orchestrator runs stage sequences against manuscripts. Runs on the same
// manuscript are serialized by a per-document lock; a failing provider call
// is retried with backoff, validation failures never are.
type Orchestrator struct {
	repo      manuscript.Repository
	locks     *manuscript.LockManager
	provider  llm.Provider
	model     string
	retriever *retrieval.Retriever
	recorder  Recorder

	maxRetries int
	backoff    time.Duration
	sleep      func(time.Duration)
}

// New creates an orchestrator. retriever may be nil to disable grounding.
func New(repo manuscript.Repository, provider llm.Provider, model string, retriever *retrieval.Retriever) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		locks:      manuscript.NewLockManager(),
		provider:   provider,
		model:      model,
		retriever:  retriever,
		maxRetries: 2,
		backoff:    2 * time.Second,
		sleep:      time.Sleep,
	}
}

// SetRecorder enables run history logging.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// SetRetryPolicy overrides how transient provider failures are retried.
func (o *Orchestrator) SetRetryPolicy(maxRetries int, backoff time.Duration) {
	o.maxRetries = maxRetries
	o.backoff = backoff
}

// RunCompliance performs the full compliance sequence (intake, grammar,
// syntax, tense, style, continuity, readability, qa).
func (o *Orchestrator) RunCompliance(ctx context.Context, req RunRequest) (*Report, error) {
	return o.run(ctx, req, "compliance", ComplianceStages)
}

// RunStructural performs the structural analysis pair (structure, arc).
func (o *Orchestrator) RunStructural(ctx context.Context, req RunRequest) (*Report, error) {
	return o.run(ctx, req, "structural", StructuralStages)
}

// UpsertRequest carries a manuscript create-or-replace.
type UpsertRequest struct {
	ManuscriptID string
	RequestID    string
	Content      string
	Metadata     manuscript.Metadata
}

// UpsertManuscript creates or replaces manuscript content and metadata under
// the same per-document lock the stage runs hold, so an upsert can never be
// overwritten by a run that loaded the document earlier. A duplicate request
// id returns the stored document without applying anything. The second return
// reports whether the document was created.
func (o *Orchestrator) UpsertManuscript(ctx context.Context, req UpsertRequest) (*manuscript.Document, bool, error) {
	if !manuscript.ValidRequestID(req.RequestID) {
		return nil, false, errs.Validationf("request id must be at least %d characters", manuscript.MinRequestIDLength)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, false, errs.Validationf("content is required")
	}

	unlock := o.locks.Lock(req.ManuscriptID)
	defer unlock()

	doc, err := o.repo.Get(ctx, req.ManuscriptID)
	if err != nil {
		return nil, false, fmt.Errorf("loading manuscript: %w", err)
	}
	created := doc == nil
	if created {
		doc = manuscript.NewDocument(req.ManuscriptID)
	} else if doc.LastRequestIDs["upsert"] == req.RequestID {
		log.Printf("pipeline: upsert on %s replayed for request %s", doc.ID, req.RequestID)
		return doc, false, nil
	}

	doc.ApplyUpsert(req.Content, req.Metadata, time.Now().UTC())
	doc.RecordOutcome("upsert", manuscript.RunReport{RequestID: req.RequestID})

	if err := o.repo.Put(ctx, doc); err != nil {
		return nil, false, fmt.Errorf("saving manuscript: %w", err)
	}
	return doc, created, nil
}

// RunStage performs a single stage in isolation.
func (o *Orchestrator) RunStage(ctx context.Context, req RunRequest, stage int) (*Report, error) {
	if _, ok := stages.ByNumber(stage); !ok {
		return nil, errs.Validationf("unknown stage %d", stage)
	}
	return o.run(ctx, req, fmt.Sprintf("stage:%d", stage), []int{stage})
}

func (o *Orchestrator) run(ctx context.Context, req RunRequest, operation string, stageNums []int) (*Report, error) {
	if !manuscript.ValidRequestID(req.RequestID) {
		return nil, errs.Validationf("request id must be at least %d characters", manuscript.MinRequestIDLength)
	}

	unlock := o.locks.Lock(req.ManuscriptID)
	defer unlock()
	started := time.Now()

	doc, err := o.repo.Get(ctx, req.ManuscriptID)
	if err != nil {
		return nil, fmt.Errorf("loading manuscript: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.ManuscriptID)
	}

	// A repeated request id for the same operation replays the stored
	// report instead of running the stages again.
	if stored, ok := doc.LastReports[operation]; ok && stored.RequestID == req.RequestID {
		log.Printf("pipeline: %s on %s replayed for request %s", operation, doc.ID, req.RequestID)
		report := o.replay(doc, operation, stored)
		o.record(ctx, RunRecord{
			ManuscriptID:      doc.ID,
			Operation:         operation,
			RequestID:         req.RequestID,
			Replayed:          true,
			OverallConfidence: report.OverallConfidence,
			StagesRun:         len(report.Results),
			Duration:          time.Since(started),
		})
		return report, nil
	}

	var results []manuscript.StageResult
	for _, stageNum := range stageNums {
		if err := ctx.Err(); err != nil {
			def, _ := stages.ByNumber(stageNum)
			o.persist(context.WithoutCancel(ctx), doc)
			return nil, &StageError{
				Stage:     stageNum,
				AgentName: def.Name,
				Partial:   results,
				Err:       err,
			}
		}

		def, _ := stages.ByNumber(stageNum)
		agent := stages.NewAgent(def, o.provider, o.model, o.retriever)

		out, err := o.runWithRetry(ctx, agent, stages.Request{
			Doc:          doc,
			StyleGuide:   req.StyleGuide,
			ReadingLevel: req.ReadingLevel,
			History:      results,
		})
		if err != nil {
			o.persist(context.WithoutCancel(ctx), doc)
			o.record(ctx, RunRecord{
				ManuscriptID: doc.ID,
				Operation:    operation,
				RequestID:    req.RequestID,
				StagesRun:    len(results),
				FailedStage:  stageNum,
				Duration:     time.Since(started),
			})
			return nil, &StageError{
				Stage:     stageNum,
				AgentName: def.Name,
				Partial:   results,
				Err:       err,
			}
		}

		doc.StageResults = append(doc.StageResults, out.Result)
		doc.Workflow.MarkCompleted(stageNum)
		doc.Workflow.CurrentStage = stageNum
		if out.Ledger != nil && !out.Ledger.Empty() {
			doc.Continuity.Merge(*out.Ledger)
		}
		results = append(results, out.Result)

		log.Printf("pipeline: %s stage %d (%s) on %s: %d issues, confidence %.2f, %d tokens",
			operation, stageNum, def.Name, doc.ID, len(out.Result.Issues), out.Result.Confidence, out.TokensUsed)
	}

	overall := Aggregate(results)
	doc.Workflow.OverallConfidence = overall
	doc.Workflow.LastProcessedAt = time.Now().UTC()

	// Recorded only after every stage succeeded, so a failed run stays
	// retryable with the same request id. The report is stored as-is: a
	// duplicate request gets it back untouched by later operations.
	doc.RecordOutcome(operation, manuscript.RunReport{
		RequestID:         req.RequestID,
		Results:           results,
		OverallConfidence: overall,
	})

	if err := o.repo.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving manuscript: %w", err)
	}

	o.record(ctx, RunRecord{
		ManuscriptID:      doc.ID,
		Operation:         operation,
		RequestID:         req.RequestID,
		OverallConfidence: overall,
		StagesRun:         len(results),
		Duration:          time.Since(started),
	})

	return &Report{
		ManuscriptID:      doc.ID,
		Operation:         operation,
		Results:           results,
		OverallConfidence: overall,
		LowConfidence:     LowConfidenceStages(results),
	}, nil
}

// runWithRetry retries transient provider failures with linear backoff.
// Validation errors and context cancellation are returned immediately.
func (o *Orchestrator) runWithRetry(ctx context.Context, agent *stages.Agent, req stages.Request) (*stages.Output, error) {
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			o.sleep(time.Duration(attempt) * o.backoff)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := agent.Run(ctx, req)
		if err == nil {
			return out, nil
		}
		if !errs.IsProvider(err) {
			return nil, err
		}
		lastErr = err
		log.Printf("pipeline: stage %s attempt %d failed: %v", agent.Definition().Name, attempt+1, err)
	}
	return nil, lastErr
}

// replay returns the report stored when the operation first completed.
// Operations that ran on the document since do not leak into it.
func (o *Orchestrator) replay(doc *manuscript.Document, operation string, stored manuscript.RunReport) *Report {
	return &Report{
		ManuscriptID:      doc.ID,
		Operation:         operation,
		Results:           stored.Results,
		OverallConfidence: stored.OverallConfidence,
		LowConfidence:     LowConfidenceStages(stored.Results),
		Replayed:          true,
	}
}

func (o *Orchestrator) record(ctx context.Context, rec RunRecord) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordRun(ctx, rec); err != nil {
		log.Printf("pipeline: recording %s run on %s: %v", rec.Operation, rec.ManuscriptID, err)
	}
}

// persist saves partial progress; the run's outcome is already decided, so a
// save failure is only logged.
func (o *Orchestrator) persist(ctx context.Context, doc *manuscript.Document) {
	if err := o.repo.Put(ctx, doc); err != nil {
		log.Printf("pipeline: saving partial results for %s: %v", doc.ID, err)
	}
}

// Aggregate computes the weighted overall confidence of a run. Weights are
// renormalized over the stages that actually executed, so a subset run is
// not dragged down by stages it never ran.
func Aggregate(results []manuscript.StageResult) float64 {
	var sum, weightSum float64
	for _, r := range results {
		w := stages.Weight(r.Stage)
		sum += w * r.Confidence
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// LowConfidenceStages lists the stage numbers whose confidence fell below
// LowConfidenceThreshold, in run order.
func LowConfidenceStages(results []manuscript.StageResult) []int {
	var low []int
	for _, r := range results {
		if r.Confidence < LowConfidenceThreshold {
			low = append(low, r.Stage)
		}
	}
	return low
}
