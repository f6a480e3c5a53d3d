// Package vectorindex provides a per-corpus vector store over reference
// chunks, with cosine-similarity queries against caller-supplied embeddings.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/inkhouse/copydesk/internal/chunker"
	"github.com/inkhouse/copydesk/internal/errs"
)

// Entry pairs a chunk with its embedding vector. All entries within one
// corpus share embedding dimensionality.
type Entry struct {
	Chunk     chunker.Chunk `json:"chunk"`
	Embedding []float32     `json:"embedding"`
}

// Match is a single query hit.
type Match struct {
	Chunk chunker.Chunk
	Score float64
}

// Index stores corpora of embedded chunks and answers similarity queries.
// Corpora are loaded lazily from the backing store and cached in memory;
// upserts replace a corpus wholesale and persist synchronously.
type Index struct {
	mu      sync.RWMutex
	store   CorpusStore
	corpora map[string]*Corpus
}

// New creates an Index backed by the given store.
func New(store CorpusStore) *Index {
	return &Index{
		store:   store,
		corpora: make(map[string]*Corpus),
	}
}

// Upsert replaces the entire corpus with the given chunks and embeddings.
// chunks and embeddings must be equal-length parallel slices.
func (ix *Index) Upsert(ctx context.Context, corpusID, title string, chunks []chunker.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return errs.Validationf("corpus %q: %d chunks but %d embeddings", corpusID, len(chunks), len(embeddings))
	}

	entries := make([]Entry, len(chunks))
	for i := range chunks {
		entries[i] = Entry{Chunk: chunks[i], Embedding: embeddings[i]}
	}
	corpus := &Corpus{Title: title, Entries: entries}

	// Holding the lock across the store write serializes upserts against the
	// same corpus; last writer wins.
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.store.Put(ctx, corpusID, corpus); err != nil {
		return fmt.Errorf("persisting corpus %q: %w", corpusID, err)
	}
	ix.corpora[corpusID] = corpus
	return nil
}

// Query returns the topK entries of the corpus ranked by descending cosine
// similarity to queryEmbedding. Ties keep insertion order. An unknown corpus
// yields an empty result, not an error.
func (ix *Index) Query(ctx context.Context, corpusID string, queryEmbedding []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	corpus, err := ix.corpus(ctx, corpusID)
	if err != nil {
		return nil, err
	}
	if corpus == nil || len(corpus.Entries) == 0 {
		return nil, nil
	}

	matches := make([]Match, len(corpus.Entries))
	for i, entry := range corpus.Entries {
		matches[i] = Match{
			Chunk: entry.Chunk,
			Score: Cosine(queryEmbedding, entry.Embedding),
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Titles returns the title of a corpus, or "" if it is unknown.
func (ix *Index) Title(ctx context.Context, corpusID string) (string, error) {
	corpus, err := ix.corpus(ctx, corpusID)
	if err != nil || corpus == nil {
		return "", err
	}
	return corpus.Title, nil
}

// corpus returns the cached corpus, loading it from the store on first use.
func (ix *Index) corpus(ctx context.Context, corpusID string) (*Corpus, error) {
	ix.mu.RLock()
	corpus, ok := ix.corpora[corpusID]
	ix.mu.RUnlock()
	if ok {
		return corpus, nil
	}

	loaded, err := ix.store.Get(ctx, corpusID)
	if err != nil {
		return nil, fmt.Errorf("loading corpus %q: %w", corpusID, err)
	}
	if loaded == nil {
		return nil, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	// Another goroutine may have loaded or replaced it meanwhile.
	if existing, ok := ix.corpora[corpusID]; ok {
		return existing, nil
	}
	ix.corpora[corpusID] = loaded
	return loaded, nil
}

// Cosine computes the cosine similarity between two vectors. A zero-norm
// vector (including mismatched or empty inputs) scores 0 rather than
// dividing by zero.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
