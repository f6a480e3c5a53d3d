package retrieval

import (
	"fmt"
	"strings"
)

// FormatCitations joins the citation strings of all results with ", ".
func FormatCitations(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	citations := make([]string, len(results))
	for i, r := range results {
		citations[i] = r.Citation
	}
	return strings.Join(citations, ", ")
}

// FormatReferenceContext renders results as a numbered block suitable for
// injection into a stage prompt: citation, summary, optionally the full
// content, and the relevance percentage.
func FormatReferenceContext(results []Result, includeContent bool) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Reference material:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] %s (relevance %.0f%%)\n", i+1, r.Citation, r.Chunk.Summary, r.Score*100)
		if includeContent && r.Chunk.Content != "" {
			b.WriteString(indent(r.Chunk.Content))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "   " + line
	}
	return strings.Join(lines, "\n")
}
