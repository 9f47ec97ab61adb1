package cache

import (
	"sync"
	"time"
)

type fallbackEntry struct {
	data      []byte
	expiresAt time.Time
}

// FallbackCache is the in-process TTL store used when redis is not
// configured or its circuit is open. When full, the entry closest to expiry
// is evicted.
type FallbackCache struct {
	mu      sync.RWMutex
	entries map[string]fallbackEntry
	maxSize int
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewFallbackCache(maxSize int, sweep time.Duration) *FallbackCache {
	fc := &FallbackCache{
		entries: make(map[string]fallbackEntry),
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if sweep > 0 {
		go fc.cleanup(sweep)
	}
	return fc
}

func (fc *FallbackCache) Get(key string) ([]byte, bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	entry, ok := fc.entries[key]
	if !ok || !fc.now().Before(entry.expiresAt) {
		return nil, false
	}

	return entry.data, true
}

func (fc *FallbackCache) Set(key string, data []byte, ttl time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if _, exists := fc.entries[key]; !exists && len(fc.entries) >= fc.maxSize {
		fc.evictOldest()
	}

	fc.entries[key] = fallbackEntry{
		data:      data,
		expiresAt: fc.now().Add(ttl),
	}
}

func (fc *FallbackCache) Delete(key string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	delete(fc.entries, key)
}

func (fc *FallbackCache) Len() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.entries)
}

func (fc *FallbackCache) Close() {
	fc.once.Do(func() { close(fc.done) })
}

func (fc *FallbackCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range fc.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.expiresAt
		}
	}

	if oldestKey != "" {
		delete(fc.entries, oldestKey)
	}
}

func (fc *FallbackCache) expire() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	now := fc.now()
	for key, entry := range fc.entries {
		if !now.Before(entry.expiresAt) {
			delete(fc.entries, key)
		}
	}
}

func (fc *FallbackCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-fc.done:
			return
		case <-ticker.C:
			fc.expire()
		}
	}
}
