package vectorindex

import (
	"context"
	"sync"
)

// Corpus is a named collection of embedded chunks sharing one embedding space.
type Corpus struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// CorpusStore persists corpora durably. Get returns nil (not an error) for an
// unknown corpus id.
type CorpusStore interface {
	Get(ctx context.Context, corpusID string) (*Corpus, error)
	Put(ctx context.Context, corpusID string, corpus *Corpus) error
	// List returns the ids of all stored corpora.
	List(ctx context.Context) ([]string, error)
}

// MemoryStore is an in-memory CorpusStore for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	corpora map[string]*Corpus
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{corpora: make(map[string]*Corpus)}
}

func (s *MemoryStore) Get(ctx context.Context, corpusID string) (*Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpora[corpusID], nil
}

func (s *MemoryStore) Put(ctx context.Context, corpusID string, corpus *Corpus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpora[corpusID] = corpus
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.corpora))
	for id := range s.corpora {
		ids = append(ids, id)
	}
	return ids, nil
}
