// Package cache provides the key/value caches resolved settings are kept in.
package cache

import (
	"errors"
	"strconv"
	"time"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// Cache is a byte oriented key/value cache. Get reports presence separately
// from the stored bytes so a cached JSON null is distinguishable from a miss.
type Cache interface {
	// Get returns the value stored under key and whether it was present.
	Get(key string) ([]byte, bool, error)
	// Set stores val under key. A ttl <= 0 keeps the entry until it is deleted.
	Set(key string, val []byte, ttl time.Duration) error
	// Delete removes key and reports whether it was present.
	Delete(key string) (bool, error)
	// Reset removes every entry.
	Reset() error
	// Close releases the resources of the cache.
	Close() error
}

const (
	globalDiscriminator    = "global"
	anonymousDiscriminator = "none"
	flagPrefix             = "is_enabled"
	flagSuffix             = "enabled"
	frontendSuffix         = "frontend"
)

// Keys builds cache keys below a prefix.
type Keys struct {
	Prefix string
}

// Value returns the key of a resolved value, "{prefix}:{key}:{user|global}".
func (k Keys) Value(definitionKey string, userID *uint64) string {
	return k.Prefix + ":" + definitionKey + ":" + discriminator(userID, globalDiscriminator)
}

// Flag returns the key of a resolved flag, "is_enabled:{key}:{user|none}:enabled".
func (k Keys) Flag(definitionKey string, userID *uint64) string {
	return flagPrefix + ":" + definitionKey + ":" + discriminator(userID, anonymousDiscriminator) + ":" + flagSuffix
}

// Frontend returns the key of the cached frontend list.
func (k Keys) Frontend() string {
	return k.Prefix + ":" + frontendSuffix
}

func discriminator(userID *uint64, fallback string) string {
	if userID == nil {
		return fallback
	}

	return strconv.FormatUint(*userID, 10)
}
