// Package invalidation removes cached resolutions when the settings they
// were derived from change.
package invalidation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/confetti-go/confetti/internal/cache"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/logger"
)

// Target names every cache entry derived from one definition.
type Target struct {
	Key      string
	UserIDs  []uint64
	Frontend bool
}

// TargetOf returns the target of def with the given user overrides.
func TargetOf(def *models.SettingDefinition, userIDs []uint64) Target {
	return Target{Key: def.Key, UserIDs: userIDs, Frontend: def.Frontend}
}

var _ setting.Observer = (*Invalidator)(nil)

// Invalidator implements setting.Observer on top of a cache.
type Invalidator struct {
	cache cache.Cache
	keys  func() cache.Keys
	log   zerolog.Logger
}

// New returns an Invalidator. keys is asked for the current key layout on
// every call so a reloaded prefix takes effect immediately.
func New(c cache.Cache, keys func() cache.Keys) *Invalidator {
	return &Invalidator{
		cache: c,
		keys:  keys,
		log:   logger.Component("invalidation"),
	}
}

// ValueChanged drops the value and flag entries of the changed scope.
func (i *Invalidator) ValueChanged(ev setting.ValueEvent) {
	if ev.Definition == nil || ev.Value == nil {
		return
	}

	keys := i.keys()
	userID := ev.Value.UserID

	if ev.Value.Scope == models.ScopeGlobal {
		userID = nil
	}

	drop := []string{
		keys.Value(ev.Definition.Key, userID),
		keys.Flag(ev.Definition.Key, userID),
	}

	if userID == nil && ev.Definition.Frontend {
		drop = append(drop, keys.Frontend())
	}

	i.delete(drop)
}

// DefinitionChanged drops every entry derived from the definition, and
// from its previous key when it was renamed.
func (i *Invalidator) DefinitionChanged(ev setting.DefinitionEvent) {
	if ev.Definition == nil {
		return
	}

	targets := []Target{TargetOf(ev.Definition, ev.UserIDs)}

	if prev := ev.Previous; prev != nil && (prev.Key != ev.Definition.Key || prev.Frontend) {
		targets = append(targets, TargetOf(prev, ev.UserIDs))
	}

	for _, target := range targets {
		i.delete(i.keysOf(target))
	}
}

// Purge drops every entry of the targets and returns how many were present.
func (i *Invalidator) Purge(targets ...Target) (int, error) {
	purged := 0

	for _, target := range targets {
		for _, key := range i.keysOf(target) {
			present, err := i.cache.Delete(key)
			if err != nil {
				return purged, err
			}

			if present {
				purged++
			}
		}
	}

	return purged, nil
}

// Reset drops the whole cache.
func (i *Invalidator) Reset() error {
	return i.cache.Reset()
}

func (i *Invalidator) keysOf(target Target) []string {
	keys := i.keys()

	out := make([]string, 0, 2*len(target.UserIDs)+3) //nolint:mnd
	out = append(out, keys.Value(target.Key, nil), keys.Flag(target.Key, nil))

	for _, id := range target.UserIDs {
		out = append(out, keys.Value(target.Key, &id), keys.Flag(target.Key, &id))
	}

	if target.Frontend {
		out = append(out, keys.Frontend())
	}

	return out
}

func (i *Invalidator) delete(keys []string) {
	for _, key := range keys {
		if _, err := i.cache.Delete(key); err != nil {
			i.log.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
		}
	}
}

// PurgeDefinitions purges every entry of the named definitions, looking up
// their user overrides in store. It returns how many entries were present.
func (i *Invalidator) PurgeDefinitions(store *setting.Store, keys ...string) (int, error) {
	targets := make([]Target, 0, len(keys))

	for _, key := range keys {
		def, err := store.GetDefinition(key)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}

		userIDs, err := store.ListUserIDs(def.ID)
		if err != nil {
			return 0, err
		}

		targets = append(targets, TargetOf(def, userIDs))
	}

	return i.Purge(targets...)
}
