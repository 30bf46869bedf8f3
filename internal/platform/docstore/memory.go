package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cast"
)

// MemoryStore keeps documents in process memory. It is used by tests and
// by the server when STORE_DRIVER=memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	unique      []UniqueKey
}

type memCollection struct {
	docs  map[string]Document
	order []string
}

// NewMemoryStore creates an empty in-memory store enforcing the given keys.
func NewMemoryStore(unique ...UniqueKey) *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		unique:      unique,
	}
}

func (s *MemoryStore) collection(name string) *memCollection {
	col, ok := s.collections[name]
	if !ok {
		col = &memCollection{docs: make(map[string]Document)}
		s.collections[name] = col
	}
	return col
}

func (s *MemoryStore) Create(_ context.Context, collection string, doc Document) (Document, error) {
	out, err := prepareCreate(doc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(collection)
	if _, exists := col.docs[out.ID()]; exists {
		return nil, fmt.Errorf("create %s/%s: %w", collection, out.ID(), ErrConflict)
	}
	if err := s.checkUnique(collection, col, out); err != nil {
		return nil, err
	}
	col.docs[out.ID()] = out
	col.order = append(col.order, out.ID())
	return clone(out)
}

func (s *MemoryStore) FindByID(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, ErrNotFound)
	}
	doc, ok := col.docs[id]
	if !ok {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, ErrNotFound)
	}
	return clone(doc)
}

func (s *MemoryStore) FindMany(_ context.Context, collection string, filter Filter, sorts ...Sort) ([]Document, error) {
	for _, srt := range sorts {
		if err := validIdent(srt.Field); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	col, ok := s.collections[collection]
	var result []Document
	if ok {
		for _, id := range col.order {
			doc := col.docs[id]
			if !Matches(doc, filter) {
				continue
			}
			c, err := clone(doc)
			if err != nil {
				s.mu.RUnlock()
				return nil, err
			}
			result = append(result, c)
		}
	}
	s.mu.RUnlock()

	sortDocuments(result, sorts)
	return result, nil
}

func (s *MemoryStore) UpdateByID(_ context.Context, collection, id string, patch Document) (Document, error) {
	p, err := preparePatch(patch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	current, ok := col.docs[id]
	if !ok {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}

	merged, err := clone(current)
	if err != nil {
		return nil, err
	}
	for k, v := range p {
		merged[k] = v
	}
	if err := s.checkUnique(collection, col, merged); err != nil {
		return nil, err
	}
	col.docs[id] = merged
	return clone(merged)
}

func (s *MemoryStore) DeleteByID(_ context.Context, collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return false, nil
	}
	if _, ok := col.docs[id]; !ok {
		return false, nil
	}
	delete(col.docs, id)
	for i, oid := range col.order {
		if oid == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryStore) Close() error { return nil }

// checkUnique must be called with s.mu held.
func (s *MemoryStore) checkUnique(collection string, col *memCollection, doc Document) error {
	for _, key := range s.unique {
		if key.Collection != collection {
			continue
		}
		val, ok := doc[key.Field]
		if !ok || val == nil || val == "" {
			continue
		}
		for id, other := range col.docs {
			if id == doc.ID() {
				continue
			}
			if cast.ToString(other[key.Field]) == cast.ToString(val) {
				return fmt.Errorf("%s.%s %v: %w", collection, key.Field, val, ErrConflict)
			}
		}
	}
	return nil
}

func sortDocuments(docs []Document, sorts []Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, srt := range sorts {
			c := compareValues(docs[i][srt.Field], docs[j][srt.Field])
			if c == 0 {
				continue
			}
			if srt.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders missing values first, numbers numerically and
// everything else by string form.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	_, aStr := a.(string)
	_, bStr := b.(string)
	if errA == nil && errB == nil && !aStr && !bStr {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, sb := cast.ToString(a), cast.ToString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
