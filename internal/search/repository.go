// internal/search/repository.go
package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// Repository is the catalog document store. Lookups that find nothing
// return (nil, nil) or an empty slice, never an error.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	GetByName(ctx context.Context, name string) (*Document, error)
	List(ctx context.Context, offset, limit int) ([]Document, error)
	Search(ctx context.Context, term string, offset, limit int) ([]Document, error)
	Upsert(ctx context.Context, doc Document) error
	BulkUpsert(ctx context.Context, docs []Document) error
}

// searchTerms splits a free-text query into lower-cased words.
func searchTerms(term string) []string {
	words := strings.FieldsFunc(term, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// MemoryRepository keeps documents in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[uuid.UUID]Document)}
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (r *MemoryRepository) GetByName(_ context.Context, name string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.sorted() {
		if doc.Name == name {
			return &doc, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) List(_ context.Context, offset, limit int) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return page(r.sorted(), offset, limit), nil
}

// Search matches documents where any query word prefixes a word of the name
// or description, or where the name contains the whole query.
func (r *MemoryRepository) Search(_ context.Context, term string, offset, limit int) ([]Document, error) {
	terms := searchTerms(term)
	if len(terms) == 0 {
		return []Document{}, nil
	}
	needle := strings.ToLower(strings.TrimSpace(term))

	r.mu.RLock()
	defer r.mu.RUnlock()
	var hits []Document
	for _, doc := range r.sorted() {
		if strings.Contains(strings.ToLower(doc.Name), needle) || matchesAny(doc, terms) {
			hits = append(hits, doc)
		}
	}
	return page(hits, offset, limit), nil
}

func matchesAny(doc Document, terms []string) bool {
	words := append(searchTerms(doc.Name), searchTerms(doc.Description)...)
	for _, t := range terms {
		for _, w := range words {
			if strings.HasPrefix(w, t) {
				return true
			}
		}
	}
	return false
}

func (r *MemoryRepository) Upsert(_ context.Context, doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepository) BulkUpsert(_ context.Context, docs []Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range docs {
		r.docs[doc.ID] = doc
	}
	return nil
}

// sorted returns documents ordered by name then id. Callers hold the lock.
func (r *MemoryRepository) sorted() []Document {
	out := make([]Document, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func page(docs []Document, offset, limit int) []Document {
	offset, limit = NormalizePage(offset, limit)
	if offset >= len(docs) {
		return []Document{}
	}
	end := offset + limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end]
}
