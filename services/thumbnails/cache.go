package thumbnails

import (
	"sync"
	"time"
)

// Store is the cache backend fronting the persisted thumbnail reference.
// Entries are advisory: the database is the source of truth on a miss, so a
// per-instance store is acceptable even behind multiple servers.
type Store interface {
	Get(key string) (string, bool)
	Set(key, url string)
	Delete(key string)
}

type memoryEntry struct {
	url      string
	storedAt time.Time
}

// MemoryStore is the default process-local cache. A zero TTL keeps entries
// until process restart, matching the platform's original behavior.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryStore creates an in-memory cache. ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

// Get returns the cached URL when present and unexpired.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if s.ttl > 0 && time.Since(entry.storedAt) >= s.ttl {
		s.Delete(key)
		return "", false
	}
	return entry.url, true
}

// Set inserts or overwrites an entry.
func (s *MemoryStore) Set(key, url string) {
	s.mu.Lock()
	s.entries[key] = memoryEntry{url: url, storedAt: time.Now()}
	s.mu.Unlock()
}

// Delete removes an entry.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}
