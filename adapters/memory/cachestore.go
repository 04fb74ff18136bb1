package memory

import (
	"context"
	"sync"

	"github.com/artpar/cassette/domain/cache"
	"github.com/artpar/cassette/ports"
)

// CacheStore is an in-memory implementation of ports.CacheStore.
type CacheStore struct {
	mu       sync.RWMutex
	manifest *cache.Manifest
	loads    int
	saves    int
	closed   bool
}

// NewCacheStore creates an empty in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{}
}

// Load returns the stored manifest.
func (s *CacheStore) Load(ctx context.Context) (cache.Manifest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loads++
	if s.manifest == nil {
		return cache.Manifest{}, false, nil
	}
	return *s.manifest, true, nil
}

// Save replaces the stored manifest.
func (s *CacheStore) Save(ctx context.Context, m cache.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	s.manifest = &m
	return nil
}

// Clear removes the stored manifest.
func (s *CacheStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.manifest = nil
	return nil
}

// Close marks the store closed. The stored manifest survives, so one store
// can back several cache wrappers in tests.
func (s *CacheStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Saves returns how many times Save was called.
func (s *CacheStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Closed reports whether Close was called.
func (s *CacheStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// CacheStores hands out one in-memory store per cache scope path.
type CacheStores struct {
	mu     sync.Mutex
	stores map[string]*CacheStore
}

// NewCacheStores creates an empty set of stores.
func NewCacheStores() *CacheStores {
	return &CacheStores{stores: make(map[string]*CacheStore)}
}

// Open implements ports.CacheStoreOpener.
func (c *CacheStores) Open(scope ports.FileSystem) (ports.CacheStore, error) {
	return c.Get(scope.Path()), nil
}

// Get returns the store of a scope path, creating it on first use.
func (c *CacheStores) Get(scopePath string) *CacheStore {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stores[scopePath]
	if !ok {
		s = NewCacheStore()
		c.stores[scopePath] = s
	}
	return s
}

var _ ports.CacheStore = (*CacheStore)(nil)
