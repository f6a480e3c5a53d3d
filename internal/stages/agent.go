package stages

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/inkhouse/copydesk/internal/llm"
	"github.com/inkhouse/copydesk/internal/manuscript"
	"github.com/inkhouse/copydesk/internal/retrieval"
)

// Request carries one manuscript into a stage run.
type Request struct {
	Doc          *manuscript.Document
	StyleGuide   string
	ReadingLevel string
	// History carries the results of stages already run in this pipeline
	// pass; only the qa stage reads it.
	History []manuscript.StageResult
}

// Output is the outcome of one stage run.
type Output struct {
	Result manuscript.StageResult
	// Ledger is non-nil only for the continuity stage.
	Ledger *manuscript.LedgerDelta
	// Fallback reports that the model response could not be decoded and the
	// stage returned its empty default.
	Fallback bool
	// TokensUsed is the provider's usage accounting for the run's single
	// completion call.
	TokensUsed int
}

// Agent runs one stage definition against a manuscript: gather grounding,
// make exactly one completion call, decode tolerantly, and score confidence.
// Provider errors propagate unchanged; malformed responses never fail a run.
type Agent struct {
	def       Definition
	provider  llm.Provider
	model     string
	retriever *retrieval.Retriever
	topK      int
	minScore  float64
	maxTokens int
}

// NewAgent creates an agent for the given stage definition. retriever may be
// nil, which disables grounding for stages that would otherwise use it.
func NewAgent(def Definition, provider llm.Provider, model string, retriever *retrieval.Retriever) *Agent {
	return &Agent{
		def:       def,
		provider:  provider,
		model:     model,
		retriever: retriever,
		topK:      retrieval.DefaultTopK,
		minScore:  0.2,
		maxTokens: 4096,
	}
}

// Definition returns the stage definition this agent runs.
func (a *Agent) Definition() Definition { return a.def }

// Run executes the stage against req.Doc.
func (a *Agent) Run(ctx context.Context, req Request) (*Output, error) {
	start := time.Now()

	refs, err := a.gather(ctx, req)
	if err != nil {
		return nil, err
	}

	messages := buildMessages(a.def, req, refs)
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:     a.model,
		Messages:  messages,
		MaxTokens: a.maxTokens,
		JSONMode:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", a.def.Name, err)
	}

	p, fellBack := decodePayload(resp.Content)

	issues := make([]manuscript.Issue, 0, len(p.Issues))
	for _, ip := range p.Issues {
		issues = append(issues, manuscript.Issue{
			ID:       uuid.NewString(),
			Type:     issueType(ip.Type, a.def.IssueType),
			Severity: issueSeverity(ip.Severity),
			Location: manuscript.Location{
				Chapter:   ip.Chapter,
				Paragraph: ip.Paragraph,
				Line:      ip.Line,
				Offset:    ip.Offset,
			},
			Message:       ip.Message,
			Original:      ip.Original,
			Suggestion:    ip.Suggestion,
			RuleReference: ip.RuleReference,
		})
	}

	summary := p.Summary
	if summary == "" {
		if fellBack {
			summary = fmt.Sprintf("%s pass completed; response could not be parsed", a.def.Name)
		} else {
			summary = fmt.Sprintf("%s pass completed", a.def.Name)
		}
	}

	sources := make([]string, 0, len(refs))
	for _, ref := range refs {
		sources = append(sources, ref.Citation)
	}

	out := &Output{
		Result: manuscript.StageResult{
			AgentName:      a.def.Name,
			Stage:          a.def.Stage,
			Confidence:     a.def.confidence(p, len(issues)),
			Issues:         issues,
			Summary:        summary,
			ProcessingTime: time.Since(start),
			Timestamp:      time.Now().UTC(),
			Sources:        sources,
		},
		Fallback:   fellBack,
		TokensUsed: resp.TokensUsed(),
	}

	if a.def.Stage == StageContinuity {
		out.Ledger = ledgerDelta(p)
	}
	return out, nil
}

// gather retrieves grounding references according to the stage's grounding
// mode. A stage whose corpus cannot be resolved simply runs ungrounded.
func (a *Agent) gather(ctx context.Context, req Request) ([]retrieval.Result, error) {
	if a.retriever == nil || a.def.Grounding == GroundNone {
		return nil, nil
	}

	var corpora []string
	switch a.def.Grounding {
	case GroundStyle:
		corpora = retrieval.StyleGuideCorpora(req.StyleGuide)
	case GroundGenre:
		corpus, ok := retrieval.GenreCorpus(req.Doc.Metadata.Genre)
		if !ok {
			return nil, nil
		}
		corpora = []string{corpus}
	}
	if len(corpora) == 0 {
		return nil, nil
	}

	query := groundingQuery(a.def, req.Doc)
	refs, err := a.retriever.QueryReferences(ctx, query, corpora, retrieval.Options{
		TopK:     a.topK,
		MinScore: a.minScore,
	})
	if err != nil {
		return nil, fmt.Errorf("stage %s grounding: %w", a.def.Name, err)
	}
	return refs, nil
}

// groundingQuery builds the retrieval query from the stage concern and an
// excerpt of the manuscript.
func groundingQuery(def Definition, doc *manuscript.Document) string {
	excerpt := doc.Content
	if len(excerpt) > 600 {
		cut := 600
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	switch def.Grounding {
	case GroundGenre:
		return fmt.Sprintf("%s conventions narrative arc: %s", doc.Metadata.Genre, excerpt)
	default:
		return fmt.Sprintf("%s rules: %s", def.Name, excerpt)
	}
}

// ledgerDelta converts decoded continuity entities into a ledger delta.
// Entries without a name are dropped.
func ledgerDelta(p payload) *manuscript.LedgerDelta {
	delta := &manuscript.LedgerDelta{
		Characters:  make(map[string]manuscript.CharacterRecord),
		Locations:   make(map[string]manuscript.LocationRecord),
		Terminology: make(map[string]manuscript.TermRecord),
	}
	for _, c := range p.Characters {
		if c.Name == "" {
			continue
		}
		delta.Characters[c.Name] = manuscript.CharacterRecord{
			FirstMention: c.FirstMention,
			Appearances:  c.Appearances,
			Aliases:      c.Aliases,
		}
	}
	for _, l := range p.Locations {
		if l.Name == "" {
			continue
		}
		delta.Locations[l.Name] = manuscript.LocationRecord{
			FirstMention: l.FirstMention,
			Descriptions: l.Descriptions,
		}
	}
	for _, e := range p.Timeline {
		if e.Event == "" {
			continue
		}
		delta.Timeline = append(delta.Timeline, manuscript.TimelineEvent{
			Event:     e.Event,
			Chapter:   e.Chapter,
			Timestamp: e.Timestamp,
		})
	}
	for _, t := range p.Terminology {
		if t.Term == "" {
			continue
		}
		delta.Terminology[t.Term] = manuscript.TermRecord{
			Definition: t.Definition,
			Variants:   t.Variants,
		}
	}
	return delta
}
