// Package chunker splits raw reference or manuscript text into bounded,
// citable chunks suitable for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultTargetWords is the default chunk size target, in words.
const DefaultTargetWords = 180

const (
	maxHeadingChars = 80
	summaryWords    = 30
	maxQuoteChars   = 240
)

// Metadata holds optional classification attached to a chunk at ingestion time.
type Metadata struct {
	RuleNumber string `json:"rule_number,omitempty"`
	Category   string `json:"category,omitempty"`
	Genre      string `json:"genre,omitempty"`
}

// Chunk is an immutable, citable unit of source text with a derived heading,
// summary, and representative quote.
type Chunk struct {
	ID       string   `json:"id"`
	Heading  string   `json:"heading"`
	Summary  string   `json:"summary"`
	Quote    string   `json:"quote"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Split breaks text into chunks of roughly targetWords words each. Paragraphs
// (blank-line delimited) are accumulated greedily: a paragraph that would push
// the buffer past the target flushes the buffer first. A single paragraph
// longer than the target becomes its own oversized chunk.
//
// Boundaries, headings, summaries, and quotes are deterministic for identical
// input; only the generated ids differ between runs.
func Split(text string, targetWords int) []Chunk {
	if targetWords <= 0 {
		targetWords = DefaultTargetWords
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []Chunk
	var buf []string
	bufWords := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, newChunk(strings.Join(buf, "\n\n")))
		buf = nil
		bufWords = 0
	}

	for _, para := range paragraphs {
		words := countWords(para)
		if bufWords > 0 && bufWords+words > targetWords {
			flush()
		}
		buf = append(buf, para)
		bufWords += words
	}
	flush()

	return chunks
}

// splitParagraphs splits text on blank lines, trimming each paragraph and
// dropping empty ones.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, block := range strings.Split(normalized, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func newChunk(content string) Chunk {
	return Chunk{
		ID:      uuid.NewString(),
		Heading: deriveHeading(content),
		Summary: deriveSummary(content),
		Quote:   deriveQuote(content),
		Content: content,
	}
}

// deriveHeading builds a one-line heading from the chunk's first line,
// stripping markdown heading markers and truncating to 80 characters.
func deriveHeading(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(strings.TrimLeft(line, "# "))
	line = strings.Join(strings.Fields(line), " ")

	return truncate(line, maxHeadingChars)
}

// deriveSummary takes the first ~30 words of the chunk.
func deriveSummary(content string) string {
	fields := strings.Fields(content)
	if len(fields) > summaryWords {
		fields = fields[:summaryWords]
	}
	return strings.Join(fields, " ")
}

// deriveQuote takes the first paragraph, truncated to 240 characters.
func deriveQuote(content string) string {
	quote := content
	if i := strings.Index(quote, "\n\n"); i >= 0 {
		quote = quote[:i]
	}
	return truncate(strings.TrimSpace(quote), maxQuoteChars)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return strings.TrimSpace(s[:max])
}
