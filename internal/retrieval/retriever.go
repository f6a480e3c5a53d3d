// Package retrieval answers grounding queries against one or more reference
// corpora and renders the results as citations for stage prompts.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/inkhouse/copydesk/internal/chunker"
	"github.com/inkhouse/copydesk/internal/embeddings"
	"github.com/inkhouse/copydesk/internal/vectorindex"
)

// DefaultTopK is the merged result cap applied when Options.TopK is unset.
const DefaultTopK = 5

// Options controls a reference query.
type Options struct {
	TopK     int     // cap over the merged result list, not per corpus
	MinScore float64 // results scoring below this are discarded
}

// Result is one retrieved reference chunk with its similarity score and a
// ready-to-print citation.
type Result struct {
	Chunk    chunker.Chunk
	Score    float64
	CorpusID string
	Citation string
}

// Retriever embeds queries and fans them out across reference corpora.
type Retriever struct {
	index    *vectorindex.Index
	embedder embeddings.Embedder
}

// New creates a Retriever over the given index and embedder.
func New(index *vectorindex.Index, embedder embeddings.Embedder) *Retriever {
	return &Retriever{index: index, embedder: embedder}
}

// QueryReferences embeds query once, queries every corpus in corpusIDs,
// discards hits below opts.MinScore, attaches citations, and returns the
// merged list sorted by descending score and truncated to opts.TopK.
//
// Unknown corpus ids simply contribute nothing.
func (r *Retriever) QueryReferences(ctx context.Context, query string, corpusIDs []string, opts Options) ([]Result, error) {
	if len(corpusIDs) == 0 {
		return nil, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}
	queryVec := vectors[0]

	var merged []Result
	for _, corpusID := range corpusIDs {
		// Fetch topK per corpus; the merged list is truncated afterwards.
		matches, err := r.index.Query(ctx, corpusID, queryVec, topK)
		if err != nil {
			return nil, fmt.Errorf("querying corpus %q: %w", corpusID, err)
		}
		for _, m := range matches {
			if m.Score < opts.MinScore {
				continue
			}
			merged = append(merged, Result{
				Chunk:    m.Chunk,
				Score:    m.Score,
				CorpusID: corpusID,
				Citation: citation(corpusID, m.Chunk),
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if topK < len(merged) {
		merged = merged[:topK]
	}
	return merged, nil
}

// citation prefers an explicit rule number; otherwise it falls back to the
// humanized corpus id plus the chunk heading.
func citation(corpusID string, chunk chunker.Chunk) string {
	if rn := chunk.Metadata.RuleNumber; rn != "" {
		return "Rule " + rn
	}
	if chunk.Heading == "" {
		return Humanize(corpusID)
	}
	return fmt.Sprintf("%s: %s", Humanize(corpusID), chunk.Heading)
}
