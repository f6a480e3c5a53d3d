package stages

import (
	"encoding/json"
	"strings"

	"github.com/inkhouse/copydesk/internal/manuscript"
)

// payload is the superset of everything a stage model may return. Each stage
// reads only the fields its prompt asked for; the rest stay zero.
type payload struct {
	Issues     []issuePayload `json:"issues"`
	Summary    string         `json:"summary"`
	Approved   *bool          `json:"approved"`
	Confidence *float64       `json:"confidence"`

	Characters  []characterPayload `json:"characters"`
	Locations   []locationPayload  `json:"locations"`
	Timeline    []timelinePayload  `json:"timeline"`
	Terminology []termPayload      `json:"terminology"`
}

type issuePayload struct {
	Type          string `json:"type"`
	Severity      string `json:"severity"`
	Chapter       int    `json:"chapter"`
	Paragraph     int    `json:"paragraph"`
	Line          int    `json:"line"`
	Offset        int    `json:"offset"`
	Message       string `json:"message"`
	Original      string `json:"original"`
	Suggestion    string `json:"suggestion"`
	RuleReference string `json:"rule_reference"`
}

type characterPayload struct {
	Name         string   `json:"name"`
	FirstMention string   `json:"first_mention"`
	Appearances  []string `json:"appearances"`
	Aliases      []string `json:"aliases"`
}

type locationPayload struct {
	Name         string   `json:"name"`
	FirstMention string   `json:"first_mention"`
	Descriptions []string `json:"descriptions"`
}

type timelinePayload struct {
	Event     string `json:"event"`
	Chapter   string `json:"chapter"`
	Timestamp string `json:"timestamp"`
}

type termPayload struct {
	Term       string   `json:"term"`
	Definition string   `json:"definition"`
	Variants   []string `json:"variants"`
}

// decodePayload parses a model response. It first tries the whole text as
// JSON; on failure it extracts the first balanced {...} or [...] block and
// parses that; when both fail it returns an empty payload. A bare array is
// treated as a list of issues. The second return reports whether decoding
// fell back to the empty payload.
func decodePayload(raw string) (payload, bool) {
	if p, err := tryDecode(raw); err == nil {
		return p, false
	}
	if block, ok := extractJSON(raw); ok {
		if p, err := tryDecode(block); err == nil {
			return p, false
		}
	}
	return payload{}, true
}

func tryDecode(s string) (payload, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var issues []issuePayload
		if err := json.Unmarshal([]byte(s), &issues); err != nil {
			return payload{}, err
		}
		return payload{Issues: issues}, nil
	}
	var p payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return payload{}, err
	}
	return p, nil
}

// extractJSON finds the first balanced top-level {...} or [...] block in raw,
// skipping over brackets inside JSON strings.
func extractJSON(raw string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if raw[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// issueType maps a model-supplied type string onto a known category, falling
// back to the stage's own category.
func issueType(s string, fallback manuscript.IssueType) manuscript.IssueType {
	switch manuscript.IssueType(strings.ToLower(strings.TrimSpace(s))) {
	case manuscript.IssueGrammar:
		return manuscript.IssueGrammar
	case manuscript.IssueSyntax:
		return manuscript.IssueSyntax
	case manuscript.IssueStyle:
		return manuscript.IssueStyle
	case manuscript.IssueContinuity:
		return manuscript.IssueContinuity
	case manuscript.IssueStructure:
		return manuscript.IssueStructure
	case manuscript.IssueReadability:
		return manuscript.IssueReadability
	case manuscript.IssueTense:
		return manuscript.IssueTense
	case manuscript.IssueVoice:
		return manuscript.IssueVoice
	default:
		return fallback
	}
}

// issueSeverity maps a model-supplied severity onto a known grade, defaulting
// to minor.
func issueSeverity(s string) manuscript.Severity {
	switch manuscript.Severity(strings.ToLower(strings.TrimSpace(s))) {
	case manuscript.SeverityCritical:
		return manuscript.SeverityCritical
	case manuscript.SeverityMajor:
		return manuscript.SeverityMajor
	case manuscript.SeveritySuggestion:
		return manuscript.SeveritySuggestion
	default:
		return manuscript.SeverityMinor
	}
}
