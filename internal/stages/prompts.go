package stages

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inkhouse/copydesk/internal/llm"
	"github.com/inkhouse/copydesk/internal/manuscript"
	"github.com/inkhouse/copydesk/internal/retrieval"
)

const systemPrompt = `You are a professional manuscript editor working one pass of an editing pipeline. Analyze the manuscript exactly as instructed and return a structured JSON response. Be precise and factual. Do not invent problems that are not present in the text. Return JSON only, with no commentary before or after it.`

const issueSchema = `{
  "issues": [
    {
      "type": "grammar|syntax|style|continuity|structure|readability|tense|voice",
      "severity": "critical|major|minor|suggestion",
      "chapter": 0,
      "paragraph": 0,
      "line": 0,
      "message": "what is wrong",
      "original": "the offending text, verbatim",
      "suggestion": "the corrected text",
      "rule_reference": "citation of the reference rule applied, if any"
    }
  ],
  "summary": "1-2 sentence summary of this pass"
}`

const intakeInstructions = `Assess this manuscript for intake: verify the stated genre, audience, and language match the text, and flag anything that would block editing (empty chapters, corrupted passages, placeholder text). Return a JSON object with exactly these fields:

{
  "issues": [...],
  "summary": "1-2 sentence intake assessment",
  "confidence": 0.0
}

Set confidence to how well the manuscript matches its declared metadata, between 0 and 1. Use the issues schema shown below for any blocking findings.

` + issueSchema

const grammarInstructions = `Check this manuscript for grammar errors: agreement, punctuation, capitalization, article use, and misused words. Apply the reference rules provided. Return a JSON object with exactly these fields:

` + issueSchema + `

Report each distinct error once, at its first occurrence. Set rule_reference to the citation of the rule you applied when one of the provided references covers the error.`

const syntaxInstructions = `Check this manuscript for syntax problems: run-on sentences, fragments, dangling modifiers, faulty parallelism, and garbled constructions. Apply the reference rules provided. Return a JSON object with exactly these fields:

` + issueSchema

const tenseInstructions = `Check this manuscript for tense consistency. Identify the dominant narrative tense, then flag every unintentional shift out of it. Deliberate shifts (flashbacks, framed narration, dialogue) are not issues. Return a JSON object with exactly these fields:

` + issueSchema

const structureInstructions = `Evaluate the structural organization of this manuscript: chapter and scene ordering, pacing, transitions, and proportion. Flag chapters that open or close abruptly, scenes that belong elsewhere, and sections whose length is out of balance with their weight. Return a JSON object with exactly these fields:

` + issueSchema

const arcInstructions = `Evaluate the narrative arc of this manuscript against the conventions of its genre, using the genre references provided: setup, escalation, climax placement, and resolution. Flag arc elements that are missing, misplaced, or underdeveloped for the genre. Return a JSON object with exactly these fields:

` + issueSchema

const styleInstructions = `Check this manuscript for style problems against the reference style rules provided: wordiness, passive voice overuse, cliches, inconsistent register, and violations of specific style-guide rules. Return a JSON object with exactly these fields:

` + issueSchema + `

Set rule_reference to the citation of the style rule applied whenever one of the provided references covers the finding.`

const continuityInstructions = `Check this manuscript for continuity errors using the continuity ledger provided: characters whose names, traits, or whereabouts contradict earlier text or the ledger; locations described inconsistently; timeline contradictions; terminology used in conflicting variants. Also extract what this text establishes, so the ledger can be extended. Return a JSON object with exactly these fields:

{
  "issues": [...],
  "summary": "1-2 sentence continuity assessment",
  "characters": [{"name": "...", "first_mention": "chapter ref", "appearances": ["chapter refs"], "aliases": ["..."]}],
  "locations": [{"name": "...", "first_mention": "chapter ref", "descriptions": ["..."]}],
  "timeline": [{"event": "...", "chapter": "chapter ref", "timestamp": "in-story time, if stated"}],
  "terminology": [{"term": "...", "definition": "...", "variants": ["..."]}]
}

Use the issues schema shown below. Report only entities the text actually establishes; omit empty arrays.

` + issueSchema

const readabilityInstructions = `Assess the readability of this manuscript for its declared audience%s: sentence length distribution, vocabulary difficulty, and paragraph density. Flag passages that read well above or below the target. Return a JSON object with exactly these fields:

{
  "issues": [...],
  "summary": "1-2 sentence readability assessment",
  "confidence": 0.0
}

Set confidence to how well the manuscript fits the target audience, between 0 and 1. Use the issues schema shown below for flagged passages.

` + issueSchema

const qaInstructions = `You are the final quality gate of the editing pipeline. Review the per-stage findings summarized below against the manuscript and decide whether the analysis is coherent and complete: flag contradictory findings, obvious misses, and issues the earlier passes duplicated. Return a JSON object with exactly these fields:

{
  "issues": [...],
  "summary": "1-2 sentence verdict",
  "approved": true
}

Set approved to true only if the analysis needs no further pass. Use the issues schema shown below for any findings of your own.

` + issueSchema

// buildMessages assembles the conversation for one stage run: stage
// instructions, then the manuscript with its metadata, plus whatever
// grounding the stage uses (references, ledger, prior-stage summaries).
func buildMessages(def Definition, req Request, refs []retrieval.Result) []llm.Message {
	var b strings.Builder

	instructions := def.Instructions
	if def.Stage == StageReadability {
		level := ""
		if req.ReadingLevel != "" {
			level = fmt.Sprintf(" (target reading level: %s)", req.ReadingLevel)
		}
		instructions = fmt.Sprintf(instructions, level)
	}
	b.WriteString(instructions)
	b.WriteString("\n\n")

	if len(refs) > 0 {
		b.WriteString("Reference rules:\n")
		b.WriteString(retrieval.FormatReferenceContext(refs, true))
		b.WriteString("\n")
	}

	if def.Stage == StageContinuity {
		b.WriteString("Continuity ledger so far:\n")
		b.WriteString(formatLedger(req.Doc.Continuity))
		b.WriteString("\n")
	}

	if def.Stage == StageQA && len(req.History) > 0 {
		b.WriteString("Earlier stage findings:\n")
		for _, r := range req.History {
			fmt.Fprintf(&b, "- %s (stage %d, confidence %.2f, %d issues): %s\n",
				r.AgentName, r.Stage, r.Confidence, len(r.Issues), r.Summary)
		}
		b.WriteString("\n")
	}

	meta := req.Doc.Metadata
	fmt.Fprintf(&b, "Manuscript: %q", meta.Title)
	if meta.Genre != "" {
		fmt.Fprintf(&b, " (%s)", meta.Genre)
	}
	if meta.Audience != "" {
		fmt.Fprintf(&b, ", audience: %s", meta.Audience)
	}
	if meta.Language != "" {
		fmt.Fprintf(&b, ", language: %s", meta.Language)
	}
	fmt.Fprintf(&b, ", %d words.\n\n", meta.WordCount)

	b.WriteString("```\n")
	b.WriteString(req.Doc.Content)
	b.WriteString("\n```")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}
}

// formatLedger renders the current continuity ledger as indented JSON for
// the continuity prompt. An empty ledger renders as "(empty)".
func formatLedger(ledger manuscript.Ledger) string {
	if len(ledger.Characters) == 0 && len(ledger.Locations) == 0 &&
		len(ledger.Timeline) == 0 && len(ledger.Terminology) == 0 {
		return "(empty)\n"
	}
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return "(empty)\n"
	}
	return string(data) + "\n"
}
