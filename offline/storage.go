package offline

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrStoreNotFound is returned when a named store does not exist.
var ErrStoreNotFound = errors.New("cache store not found")

// CacheStorage is the registry of named cache stores.
type CacheStorage interface {
	// Open returns the store called name, creating it if needed.
	Open(ctx context.Context, name string) (Store, error)
	// Keys lists store names in creation order.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes a store and all its entries. It reports whether the
	// store existed.
	Delete(ctx context.Context, name string) (bool, error)
	Close() error
}

// Store is a single named mapping from request keys to entries.
type Store interface {
	Name() string
	// Match returns nil, nil on a miss.
	Match(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) (bool, error)
	Len(ctx context.Context) (int, error)
	// Evict removes the oldest entries until at most keep remain.
	Evict(ctx context.Context, keep int) (int, error)
}

// MemoryStorage keeps every store in process memory.
type MemoryStorage struct {
	mu     sync.Mutex
	stores map[string]*memoryStore
	order  []string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{stores: make(map[string]*memoryStore)}
}

func (m *MemoryStorage) Open(ctx context.Context, name string) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[name]; ok {
		return s, nil
	}
	s := &memoryStore{name: name, entries: make(map[string]*memoryEntry)}
	m.stores[name] = s
	m.order = append(m.order, name)
	return s, nil
}

func (m *MemoryStorage) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...), nil
}

func (m *MemoryStorage) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[name]; !ok {
		return false, nil
	}
	delete(m.stores, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MemoryStorage) Close() error { return nil }

type memoryEntry struct {
	entry *Entry
	seq   uint64
}

type memoryStore struct {
	name    string
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	seq     uint64
}

func (s *memoryStore) Name() string { return s.name }

func (s *memoryStore) Match(ctx context.Context, key string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return e.entry.clone(), nil
}

func (s *memoryStore) Put(ctx context.Context, key string, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.entries[key] = &memoryEntry{entry: entry.clone(), seq: s.seq}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}

func (s *memoryStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *memoryStore) Evict(ctx context.Context, keep int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	over := len(s.entries) - keep
	if over <= 0 {
		return 0, nil
	}
	type aged struct {
		key string
		seq uint64
	}
	all := make([]aged, 0, len(s.entries))
	for k, e := range s.entries {
		all = append(all, aged{k, e.seq})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	for _, a := range all[:over] {
		delete(s.entries, a.key)
	}
	return over, nil
}
