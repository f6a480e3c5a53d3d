// Package stages implements the analytical stage agents of the editing
// pipeline: one abstraction parameterized over ten stage definitions, each
// with its own prompt, grounding mode, and confidence model.
package stages

import "github.com/inkhouse/copydesk/internal/manuscript"

// Grounding selects which reference corpora a stage consults before
// prompting.
type Grounding int

const (
	// GroundNone runs the stage without retrieval.
	GroundNone Grounding = iota
	// GroundStyle consults the style-guide corpus set.
	GroundStyle
	// GroundGenre consults the manuscript's genre convention corpus.
	GroundGenre
)

// Stage numbers, in pipeline order.
const (
	StageIntake      = 1
	StageGrammar     = 2
	StageSyntax      = 3
	StageTense       = 4
	StageStructure   = 5
	StageArc         = 6
	StageStyle       = 7
	StageContinuity  = 8
	StageReadability = 9
	StageQA          = 10
)

// Definition describes one stage variant: identity, grounding, prompt
// instructions, and how its confidence is computed.
//
// Count-penalized stages start from 1.0 and lose PerIssuePenalty per issue
// down to Floor. Signal-driven stages take an explicit confidence or
// approval field from the decoded payload, or DefaultConfidence when the
// model supplied neither.
type Definition struct {
	Name              string
	Stage             int
	Weight            float64
	Grounding         Grounding
	SignalDriven      bool
	DefaultConfidence float64
	Floor             float64
	PerIssuePenalty   float64
	IssueType         manuscript.IssueType
	Instructions      string
}

// definitions lists all ten stages in pipeline order.
var definitions = []Definition{
	{
		Name: "intake", Stage: StageIntake, Weight: 0.05,
		SignalDriven: true, DefaultConfidence: 0.9,
		IssueType:    manuscript.IssueStructure,
		Instructions: intakeInstructions,
	},
	{
		Name: "grammar", Stage: StageGrammar, Weight: 0.15,
		Grounding: GroundStyle,
		Floor:     0.70, PerIssuePenalty: 0.01,
		IssueType:    manuscript.IssueGrammar,
		Instructions: grammarInstructions,
	},
	{
		Name: "syntax", Stage: StageSyntax, Weight: 0.10,
		Grounding: GroundStyle,
		Floor:     0.70, PerIssuePenalty: 0.01,
		IssueType:    manuscript.IssueSyntax,
		Instructions: syntaxInstructions,
	},
	{
		Name: "tense", Stage: StageTense, Weight: 0.10,
		Floor: 0.72, PerIssuePenalty: 0.012,
		IssueType:    manuscript.IssueTense,
		Instructions: tenseInstructions,
	},
	{
		Name: "structure", Stage: StageStructure, Weight: 0.12,
		Floor: 0.65, PerIssuePenalty: 0.02,
		IssueType:    manuscript.IssueStructure,
		Instructions: structureInstructions,
	},
	{
		Name: "arc", Stage: StageArc, Weight: 0.08,
		Grounding: GroundGenre,
		Floor:     0.70, PerIssuePenalty: 0.02,
		IssueType:    manuscript.IssueStructure,
		Instructions: arcInstructions,
	},
	{
		Name: "style", Stage: StageStyle, Weight: 0.15,
		Grounding: GroundStyle,
		Floor:     0.70, PerIssuePenalty: 0.01,
		IssueType:    manuscript.IssueStyle,
		Instructions: styleInstructions,
	},
	{
		Name: "continuity", Stage: StageContinuity, Weight: 0.10,
		Floor: 0.68, PerIssuePenalty: 0.015,
		IssueType:    manuscript.IssueContinuity,
		Instructions: continuityInstructions,
	},
	{
		Name: "readability", Stage: StageReadability, Weight: 0.08,
		SignalDriven: true, DefaultConfidence: 0.85,
		IssueType:    manuscript.IssueReadability,
		Instructions: readabilityInstructions,
	},
	{
		Name: "qa", Stage: StageQA, Weight: 0.07,
		SignalDriven: true, DefaultConfidence: 0.9,
		IssueType:    manuscript.IssueStyle,
		Instructions: qaInstructions,
	},
}

// Definitions returns all stage definitions in pipeline order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// ByNumber looks up a stage definition by its stage number.
func ByNumber(stage int) (Definition, bool) {
	for _, d := range definitions {
		if d.Stage == stage {
			return d, true
		}
	}
	return Definition{}, false
}

// Weight returns the aggregation weight of a stage, or 0 for an unknown
// stage number.
func Weight(stage int) float64 {
	d, ok := ByNumber(stage)
	if !ok {
		return 0
	}
	return d.Weight
}

// confidence computes the stage confidence from the decoded payload.
func (d Definition) confidence(p payload, issueCount int) float64 {
	if d.SignalDriven {
		if p.Confidence != nil {
			return clamp01(*p.Confidence)
		}
		if p.Approved != nil {
			if *p.Approved {
				return 1.0
			}
			return 0.6
		}
		return d.DefaultConfidence
	}

	c := 1 - float64(issueCount)*d.PerIssuePenalty
	if c < d.Floor {
		c = d.Floor
	}
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
