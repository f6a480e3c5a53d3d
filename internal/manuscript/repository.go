package manuscript

import (
	"context"
	"encoding/json"
	"sync"
)

// Repository persists manuscripts. Get returns nil (not an error) for an
// unknown manuscript id.
type Repository interface {
	Get(ctx context.Context, id string) (*Document, error)
	Put(ctx context.Context, doc *Document) error
	// List returns the ids of all stored manuscripts.
	List(ctx context.Context) ([]string, error)
}

// MemoryRepository is an in-memory Repository for tests and ephemeral runs.
// Documents are deep-copied on the way in and out so callers cannot alias
// repository state.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]*Document)}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return cloneDocument(doc)
}

func (r *MemoryRepository) Put(ctx context.Context, doc *Document) error {
	copied, err := cloneDocument(doc)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = copied
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	return ids, nil
}

// cloneDocument deep-copies via JSON; documents are plain data.
func cloneDocument(doc *Document) (*Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var copied Document
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, err
	}
	if copied.LastRequestIDs == nil {
		copied.LastRequestIDs = make(map[string]string)
	}
	return &copied, nil
}
