// Package ingest loads reference documents into the vector index: walk a
// corpus directory, reduce each document to plain text, chunk it, embed the
// chunks, and upsert the result as one corpus per file.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/inkhouse/copydesk/internal/chunker"
	"github.com/inkhouse/copydesk/internal/embeddings"
	"github.com/inkhouse/copydesk/internal/progress"
	"github.com/inkhouse/copydesk/internal/retrieval"
	"github.com/inkhouse/copydesk/internal/vectorindex"
	"github.com/inkhouse/copydesk/internal/walker"
)

// ruleNumberRe matches rule designations like "Rule 12" or "Rule 6.21" at
// the start of a heading or paragraph.
var ruleNumberRe = regexp.MustCompile(`(?i)\brule\s+(\d+(?:\.\d+)*)`)

// Options controls one ingestion run.
type Options struct {
	Include     []string // glob patterns passed to the walker
	Exclude     []string
	TargetWords int    // chunk size target (0 = chunker default)
	Category    string // recorded on every chunk, e.g. "style" or "genre"
}

// Stats summarizes an ingestion run.
type Stats struct {
	FilesProcessed int
	Chunks         int
	Corpora        []string // ids of the corpora written, in walk order
	Duration       time.Duration
	Errors         []error
}

// Ingestor turns reference documents into indexed corpora.
type Ingestor struct {
	index    *vectorindex.Index
	embedder embeddings.Embedder
	reporter progress.Reporter
}

// New creates an Ingestor. reporter may be nil for silent operation.
func New(index *vectorindex.Index, embedder embeddings.Embedder, reporter progress.Reporter) *Ingestor {
	if reporter == nil {
		reporter = progress.Silent{}
	}
	return &Ingestor{index: index, embedder: embedder, reporter: reporter}
}

// IngestDirectory ingests every reference document under dir. Each file
// becomes its own corpus, identified by the slug of its base name. Files
// that fail are recorded in Stats.Errors; the run continues.
func (ing *Ingestor) IngestDirectory(ctx context.Context, dir string, opts Options) (*Stats, error) {
	start := time.Now()

	files, err := walker.Walk(walker.Config{
		RootDir: dir,
		Include: opts.Include,
		Exclude: opts.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	stats := &Stats{}
	ing.reporter.Start(len(files))
	for i, file := range files {
		ing.reporter.Update(i+1, file.RelPath)
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		chunks, err := ing.IngestFile(ctx, file, opts)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("%s: %w", file.RelPath, err))
			continue
		}
		stats.FilesProcessed++
		stats.Chunks += chunks
		stats.Corpora = append(stats.Corpora, CorpusID(file.RelPath))
	}
	ing.reporter.Finish()

	stats.Duration = time.Since(start)
	return stats, nil
}

// IngestFile ingests one document as one corpus and returns the number of
// chunks indexed. A document that yields no chunks is an error.
func (ing *Ingestor) IngestFile(ctx context.Context, file walker.FileInfo, opts Options) (int, error) {
	raw, err := os.ReadFile(file.Path)
	if err != nil {
		return 0, fmt.Errorf("reading: %w", err)
	}

	text := string(raw)
	if file.Format == walker.FormatMarkdown {
		text = markdownToText(raw)
	}

	chunks := chunker.Split(text, opts.TargetWords)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document produced no chunks")
	}

	corpusID := CorpusID(file.RelPath)
	for i := range chunks {
		chunks[i].Metadata.Category = opts.Category
		chunks[i].Metadata.RuleNumber = ruleNumber(chunks[i])
		if genre, ok := strings.CutPrefix(corpusID, "genre-"); ok {
			chunks[i].Metadata.Genre = genre
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := ing.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding: %w", err)
	}

	title := retrieval.Humanize(corpusID)
	if err := ing.index.Upsert(ctx, corpusID, title, chunks, vectors); err != nil {
		return 0, fmt.Errorf("indexing: %w", err)
	}
	return len(chunks), nil
}

// CorpusID derives the corpus id from a document's relative path: the base
// name without extension, slugged.
func CorpusID(relPath string) string {
	base := filepath.Base(relPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return retrieval.Slug(base)
}

// ruleNumber extracts an explicit rule designation from the chunk heading,
// falling back to the body.
func ruleNumber(c chunker.Chunk) string {
	if m := ruleNumberRe.FindStringSubmatch(c.Heading); m != nil {
		return m[1]
	}
	if m := ruleNumberRe.FindStringSubmatch(c.Content); m != nil {
		return m[1]
	}
	return ""
}
