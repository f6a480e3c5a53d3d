package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/inkhouse/copydesk/internal/chunker"
	"github.com/inkhouse/copydesk/internal/vectorindex"
)

// bagEmbedder is a deterministic word-bag embedder over a tiny vocabulary,
// good enough for relevance ordering in tests.
type bagEmbedder struct {
	vocab []string
}

func newBagEmbedder() *bagEmbedder {
	return &bagEmbedder{vocab: []string{
		"comma", "serial", "lists", "dash", "em", "verb", "subject", "agreement", "usage",
	}}
}

func (e *bagEmbedder) Name() string    { return "bag" }
func (e *bagEmbedder) Dimensions() int { return len(e.vocab) }

func (e *bagEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(e.vocab))
		lower := strings.ToLower(text)
		for j, word := range e.vocab {
			vec[j] = float32(strings.Count(lower, word))
		}
		out[i] = vec
	}
	return out, nil
}

func ingestCorpus(t *testing.T, ix *vectorindex.Index, embedder *bagEmbedder, corpusID, title string, texts []string) {
	t.Helper()
	ctx := context.Background()

	chunks := make([]chunker.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = chunker.Chunk{ID: text, Heading: text, Summary: text, Content: text}
	}
	embs, err := embedder.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if err := ix.Upsert(ctx, corpusID, title, chunks, embs); err != nil {
		t.Fatalf("upsert %s: %v", corpusID, err)
	}
}

func TestQueryReferencesFindsSerialCommaRule(t *testing.T) {
	embedder := newBagEmbedder()
	ix := vectorindex.New(vectorindex.NewMemoryStore())
	ingestCorpus(t, ix, embedder, "house-style", "House Style", []string{
		"serial comma",
		"em-dash usage",
		"subject-verb agreement",
	})

	r := New(ix, embedder)
	results, err := r.QueryReferences(context.Background(), "comma usage in lists",
		[]string{"house-style"}, Options{TopK: 1, MinScore: 0.0})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Chunk.Heading != "serial comma" {
		t.Errorf("expected the serial comma chunk, got %q", results[0].Chunk.Heading)
	}
}

func TestQueryReferencesMergesAndTruncatesAcrossCorpora(t *testing.T) {
	embedder := newBagEmbedder()
	ix := vectorindex.New(vectorindex.NewMemoryStore())
	ingestCorpus(t, ix, embedder, "corpus-a", "Corpus A", []string{
		"serial comma", "em-dash usage",
	})
	ingestCorpus(t, ix, embedder, "corpus-b", "Corpus B", []string{
		"comma comma comma", "subject-verb agreement",
	})

	r := New(ix, embedder)
	results, err := r.QueryReferences(context.Background(), "comma",
		[]string{"corpus-a", "corpus-b"}, Options{TopK: 2, MinScore: 0.01})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	// TopK applies to the merged list, not per corpus.
	if len(results) != 2 {
		t.Fatalf("expected 2 merged results, got %d", len(results))
	}
	for _, res := range results {
		if !strings.Contains(res.Chunk.Content, "comma") {
			t.Errorf("irrelevant result survived the threshold: %q", res.Chunk.Content)
		}
	}
	if results[0].Score < results[1].Score {
		t.Errorf("merged results not sorted by score: %v then %v", results[0].Score, results[1].Score)
	}
}

func TestQueryReferencesUnknownCorpusContributesNothing(t *testing.T) {
	embedder := newBagEmbedder()
	ix := vectorindex.New(vectorindex.NewMemoryStore())
	ingestCorpus(t, ix, embedder, "known", "Known", []string{"serial comma"})

	r := New(ix, embedder)
	results, err := r.QueryReferences(context.Background(), "comma",
		[]string{"known", "missing-corpus"}, Options{TopK: 5})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected only the known corpus hit, got %d results", len(results))
	}
}

func TestCitationPrefersRuleNumber(t *testing.T) {
	withRule := Result{Chunk: chunker.Chunk{
		Heading:  "Serial comma",
		Metadata: chunker.Metadata{RuleNumber: "6.19"},
	}}
	withRule.Citation = citation("house-style", withRule.Chunk)
	if withRule.Citation != "Rule 6.19" {
		t.Errorf("expected 'Rule 6.19', got %q", withRule.Citation)
	}

	without := citation("house-style", chunker.Chunk{Heading: "Serial comma"})
	if without != "House Style: Serial comma" {
		t.Errorf("expected humanized fallback citation, got %q", without)
	}
}

func TestFormatCitations(t *testing.T) {
	results := []Result{
		{Citation: "Rule 6.19"},
		{Citation: "House Style: Em-dash usage"},
	}
	got := FormatCitations(results)
	want := "Rule 6.19, House Style: Em-dash usage"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if FormatCitations(nil) != "" {
		t.Error("expected empty string for no results")
	}
}

func TestFormatReferenceContext(t *testing.T) {
	results := []Result{
		{
			Citation: "Rule 6.19",
			Score:    0.92,
			Chunk:    chunker.Chunk{Summary: "Use the serial comma.", Content: "Full rule text."},
		},
	}

	block := FormatReferenceContext(results, true)
	for _, want := range []string{"1. [Rule 6.19]", "Use the serial comma.", "relevance 92%", "Full rule text."} {
		if !strings.Contains(block, want) {
			t.Errorf("expected context block to contain %q, got:\n%s", want, block)
		}
	}

	withoutContent := FormatReferenceContext(results, false)
	if strings.Contains(withoutContent, "Full rule text.") {
		t.Error("content should be omitted when includeContent is false")
	}

	if FormatReferenceContext(nil, true) != "" {
		t.Error("expected empty block for no results")
	}
}

func TestGenreCorpusResolution(t *testing.T) {
	id, ok := GenreCorpus("Historical Fiction")
	if !ok || id != "genre-historical-fiction" {
		t.Errorf("unexpected resolution: %q, %v", id, ok)
	}

	if _, ok := GenreCorpus("  "); ok {
		t.Error("blank genre should not resolve to a corpus")
	}
}

func TestStyleGuideCorpora(t *testing.T) {
	if got := StyleGuideCorpora(""); len(got) != len(DefaultStyleGuides) {
		t.Errorf("expected the default style guide set, got %v", got)
	}
	if got := StyleGuideCorpora("Chicago Manual"); len(got) != 1 || got[0] != "chicago-manual" {
		t.Errorf("expected slugged explicit guide, got %v", got)
	}
}
