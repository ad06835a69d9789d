package cache

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Storage adapts a fiber.Storage, such as the gofiber mysql or postgres
// storages, to Cache. Stored values are never empty, so an empty result
// from the storage is reported as a miss.
type Storage struct {
	storage fiber.Storage
}

// NewStorage wraps s.
func NewStorage(s fiber.Storage) *Storage {
	return &Storage{storage: s}
}

// Get implements Cache.
func (s *Storage) Get(key string) ([]byte, bool, error) {
	val, err := s.storage.Get(key)
	if err != nil {
		return nil, false, err
	}

	if len(val) == 0 {
		return nil, false, nil
	}

	return val, true, nil
}

// Set implements Cache.
func (s *Storage) Set(key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	return s.storage.Set(key, val, ttl)
}

// Delete implements Cache. Presence is looked up before deleting.
func (s *Storage) Delete(key string) (bool, error) {
	_, present, err := s.Get(key)
	if err != nil {
		return false, err
	}

	if err := s.storage.Delete(key); err != nil {
		return false, err
	}

	return present, nil
}

// Reset implements Cache.
func (s *Storage) Reset() error {
	return s.storage.Reset()
}

// Close implements Cache.
func (s *Storage) Close() error {
	return s.storage.Close()
}
