package ingest

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkhouse/copydesk/internal/vectorindex"
)

// hashEmbedder produces deterministic pseudo-embeddings from word hashes.
type hashEmbedder struct {
	calls int
}

func (e *hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 16)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%16]++
		}
		out[i] = vec
	}
	return out, nil
}

func (e *hashEmbedder) Dimensions() int {
	return 16
}

func (e *hashEmbedder) Name() string {
	return "hash-embedder"
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const chicagoDoc = `# Chicago Manual

## Rule 6.19

Use the serial comma before the conjunction in a series of three or more.

## Rule 6.21

A comma follows an introductory adverbial phrase.
`

func TestIngestDirectoryIndexesEachFileAsCorpus(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "chicago-manual.md", chicagoDoc)
	writeDoc(t, dir, "house-style.txt", "Always spell out numbers below ten.\n\nAvoid exclamation points.")

	index := vectorindex.New(vectorindex.NewMemoryStore())
	ing := New(index, &hashEmbedder{}, nil)

	stats, err := ing.IngestDirectory(context.Background(), dir, Options{Category: "style"})
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if len(stats.Errors) != 0 {
		t.Fatalf("errors: %v", stats.Errors)
	}
	if stats.FilesProcessed != 2 {
		t.Errorf("files processed = %d, want 2", stats.FilesProcessed)
	}
	if stats.Chunks == 0 {
		t.Error("no chunks indexed")
	}
	if len(stats.Corpora) != 2 {
		t.Errorf("corpora = %v, want two ids", stats.Corpora)
	}

	ctx := context.Background()
	title, err := index.Title(ctx, "chicago-manual")
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title != "Chicago Manual" {
		t.Errorf("title = %q", title)
	}
	if _, err := index.Title(ctx, "house-style"); err != nil {
		t.Errorf("house-style corpus missing: %v", err)
	}
}

func TestIngestExtractsRuleNumbers(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "chicago-manual.md", chicagoDoc)

	index := vectorindex.New(vectorindex.NewMemoryStore())
	ing := New(index, &hashEmbedder{}, nil)

	if _, err := ing.IngestDirectory(context.Background(), dir, Options{Category: "style", TargetWords: 10}); err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}

	embedder := &hashEmbedder{}
	queryVecs, _ := embedder.Embed(context.Background(), []string{"serial comma before the conjunction"})
	matches, err := index.Query(context.Background(), "chicago-manual", queryVecs[0], 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	found := false
	for _, m := range matches {
		if m.Chunk.Metadata.RuleNumber == "6.19" {
			found = true
			if m.Chunk.Metadata.Category != "style" {
				t.Errorf("category = %q", m.Chunk.Metadata.Category)
			}
		}
	}
	if !found {
		t.Error("rule 6.19 not extracted into chunk metadata")
	}
}

func TestIngestTagsGenreCorpora(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "genre-mystery.md", "# Mystery Conventions\n\nThe crime appears in the first act.")

	index := vectorindex.New(vectorindex.NewMemoryStore())
	ing := New(index, &hashEmbedder{}, nil)

	if _, err := ing.IngestDirectory(context.Background(), dir, Options{Category: "genre"}); err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}

	embedder := &hashEmbedder{}
	queryVecs, _ := embedder.Embed(context.Background(), []string{"crime first act"})
	matches, err := index.Query(context.Background(), "genre-mystery", queryVecs[0], 1)
	if err != nil || len(matches) == 0 {
		t.Fatalf("Query: %v, matches = %d", err, len(matches))
	}
	if matches[0].Chunk.Metadata.Genre != "mystery" {
		t.Errorf("genre = %q, want mystery", matches[0].Chunk.Metadata.Genre)
	}
}

func TestIngestContinuesPastBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "empty.md", "   \n\n   ")
	writeDoc(t, dir, "fine.md", "Usable content for a corpus.")

	index := vectorindex.New(vectorindex.NewMemoryStore())
	ing := New(index, &hashEmbedder{}, nil)

	stats, err := ing.IngestDirectory(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if stats.FilesProcessed != 1 {
		t.Errorf("files processed = %d, want 1", stats.FilesProcessed)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("errors = %v, want one for the empty document", stats.Errors)
	}
}

func TestCorpusID(t *testing.T) {
	cases := map[string]string{
		"guides/Chicago Manual.md": "chicago-manual",
		"house_style.txt":          "house-style",
		"genre-mystery.md":         "genre-mystery",
	}
	for in, want := range cases {
		if got := CorpusID(in); got != want {
			t.Errorf("CorpusID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMarkdownToTextKeepsParagraphBoundaries(t *testing.T) {
	text := markdownToText([]byte("# Heading\n\nFirst paragraph.\n\n- item one\n- item two\n\nSecond paragraph."))
	blocks := strings.Split(text, "\n\n")
	if len(blocks) < 4 {
		t.Fatalf("blocks = %d: %q", len(blocks), text)
	}
	if blocks[0] != "Heading" {
		t.Errorf("first block = %q, want the heading text", blocks[0])
	}
	if !strings.Contains(text, "item one") {
		t.Error("list content lost")
	}
}
