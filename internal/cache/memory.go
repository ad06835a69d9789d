package cache

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is an in-process cache backed by ttlcache.
type Memory struct {
	items *ttlcache.Cache[string, []byte]
	once  sync.Once
}

// NewMemory returns a started in-process cache. capacity 0 means unlimited.
func NewMemory(capacity uint64) *Memory {
	opts := []ttlcache.Option[string, []byte]{
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	}

	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []byte](capacity))
	}

	m := &Memory{items: ttlcache.New(opts...)}
	go m.items.Start()

	return m
}

// Get implements Cache.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	item := m.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}

	return item.Value(), true, nil
}

// Set implements Cache.
func (m *Memory) Set(key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}

	m.items.Set(key, val, ttl)

	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(key string) (bool, error) {
	item, present := m.items.GetAndDelete(key)

	return present && item != nil && !item.IsExpired(), nil
}

// Reset implements Cache.
func (m *Memory) Reset() error {
	m.items.DeleteAll()

	return nil
}

// Close stops the expiry loop.
func (m *Memory) Close() error {
	m.once.Do(m.items.Stop)

	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	return m.items.Len()
}
