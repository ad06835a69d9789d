// Package resolver resolves setting values through the priority chain
// user value, global value, definition default and caller fallback,
// keeping resolved values in a cache.
package resolver

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/confetti-go/confetti/internal/cache"
	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/logger"
	"github.com/confetti-go/confetti/internal/validator"
)

var (
	// ErrNotEditable is returned when writing a non-editable setting under the reject policy.
	ErrNotEditable = errors.New("setting is not editable")
	// ErrUserRequired is returned when a user scoped value is written without a user.
	ErrUserRequired = errors.New("user scoped value needs a user")
)

// Resolver reads and writes settings. Reads never fail: store and cache
// problems are logged and degrade to the next step of the chain.
type Resolver struct {
	store   *setting.Store
	cache   cache.Cache
	runtime *config.Runtime
	log     zerolog.Logger
}

// New returns a Resolver. rt supplies the reloadable cache prefix, TTLs
// and the non-editable policy.
func New(store *setting.Store, c cache.Cache, rt *config.Runtime) *Resolver {
	return &Resolver{
		store:   store,
		cache:   c,
		runtime: rt,
		log:     logger.Component("resolver"),
	}
}

// Keys returns the current cache key layout.
func (r *Resolver) Keys() cache.Keys {
	return cache.Keys{Prefix: r.runtime.Get().CachePrefix}
}

// Store returns the underlying store.
func (r *Resolver) Store() *setting.Store {
	return r.store
}

// Get returns the value of key for user, or fallback when neither a user
// value, a global value nor a default exists or the definition is missing
// or disabled. Fallbacks are never cached.
func (r *Resolver) Get(key string, user *uint64, fallback any) any {
	keys := r.Keys()
	ttl := r.runtime.Get().ValueTTL
	userKey := keys.Value(key, user)
	globalKey := keys.Value(key, nil)

	// the global key is only authoritative for anonymous reads
	if v, ok := r.cached(userKey); ok {
		return v
	}

	def, ok := r.enabledDefinition(key)
	if !ok {
		return fallback
	}

	if user != nil {
		if v, ok := r.storedValue(def, models.ScopeUser, user); ok {
			r.remember(userKey, v, ttl)

			return v
		}

		if v, ok := r.cached(globalKey); ok {
			return v
		}
	}

	if v, ok := r.storedValue(def, models.ScopeGlobal, nil); ok {
		r.remember(globalKey, v, ttl)

		return v
	}

	if v, ok := decode(def.Default); ok {
		return v
	}

	return fallback
}

// IsEnabled resolves key like Get and reports the truthiness of the result.
// A disabled definition is always false. Results derived from a user value
// are cached per user, all others under the anonymous flag key.
func (r *Resolver) IsEnabled(key string, user *uint64, fallback bool) bool {
	keys := r.Keys()
	ttl := r.runtime.Get().FlagTTL
	anonKey := keys.Flag(key, nil)

	if user != nil {
		if b, ok := r.cachedFlag(keys.Flag(key, user)); ok {
			return b
		}
	} else if b, ok := r.cachedFlag(anonKey); ok {
		return b
	}

	def, err := r.store.GetDefinition(key)
	if err != nil {
		r.logStoreError(err, key)

		return fallback
	}

	if !def.Enabled {
		r.rememberFlag(anonKey, false, ttl)

		return false
	}

	if user != nil {
		if v, ok := r.storedValue(def, models.ScopeUser, user); ok {
			b := Truthy(v)
			r.rememberFlag(keys.Flag(key, user), b, ttl)

			return b
		}

		if b, ok := r.cachedFlag(anonKey); ok {
			return b
		}
	}

	if v, ok := r.storedValue(def, models.ScopeGlobal, nil); ok {
		b := Truthy(v)
		r.rememberFlag(anonKey, b, ttl)

		return b
	}

	if v, ok := decode(def.Default); ok {
		b := Truthy(v)
		r.rememberFlag(anonKey, b, ttl)

		return b
	}

	return fallback
}

// SetValue validates value and stores it for key. The scope defaults to
// user when a user is given and to global otherwise; global values never
// carry a user. A non-editable definition stores its default instead, or
// fails with ErrNotEditable under the reject policy. The stored value is
// written through to the cache.
func (r *Resolver) SetValue(key string, value any, user *uint64, scope *models.Scope) (*models.SettingValue, error) {
	def, err := r.store.GetDefinition(key)
	if err != nil {
		return nil, err
	}

	coerced, err := validator.Validate(def, value)
	if err != nil {
		return nil, err
	}

	sc := models.ScopeGlobal
	if user != nil {
		sc = models.ScopeUser
	}

	if scope != nil {
		sc = *scope
	}

	switch sc {
	case models.ScopeUser:
		if user == nil {
			return nil, ErrUserRequired
		}
	case models.ScopeGlobal:
		user = nil
	default:
		return nil, setting.ErrInvalidScope
	}

	settings := r.runtime.Get()

	var stored models.JSON

	if def.Editable {
		if stored, err = models.NewJSON(coerced); err != nil {
			return nil, &validator.ValidationError{Key: def.Key, Type: def.Type, Reason: err.Error()}
		}
	} else {
		if settings.NonEditablePolicy == config.PolicyReject {
			return nil, ErrNotEditable
		}

		stored = def.Default
	}

	row, err := r.store.UpsertValue(def, sc, user, stored)
	if err != nil {
		return nil, err
	}

	// a disabled definition resolves to the fallback, so nothing is cached for it
	if def.Enabled {
		r.writeThrough(cache.Keys{Prefix: settings.CachePrefix}.Value(def.Key, user), stored, settings.ValueTTL)
	}

	return row, nil
}

func (r *Resolver) writeThrough(key string, stored models.JSON, ttl time.Duration) {
	if stored.IsNull() {
		if _, err := r.cache.Delete(key); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
		}

		return
	}

	if err := r.cache.Set(key, stored.Bytes(), ttl); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (r *Resolver) enabledDefinition(key string) (*models.SettingDefinition, bool) {
	def, err := r.store.GetEnabledDefinition(key)
	if err != nil {
		r.logStoreError(err, key)

		return nil, false
	}

	return def, true
}

// storedValue returns the decoded non-null value of the scope.
func (r *Resolver) storedValue(def *models.SettingDefinition, scope models.Scope, user *uint64) (any, bool) {
	row, err := r.store.GetValue(def.ID, scope, user)
	if err != nil {
		r.logStoreError(err, def.Key)

		return nil, false
	}

	v, ok := decode(row.Value)
	if !ok {
		return nil, false
	}

	return v, true
}

func (r *Resolver) cached(key string) (any, bool) {
	raw, ok, err := r.cache.Get(key)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache read failed")

		return nil, false
	}

	if !ok {
		return nil, false
	}

	v, ok := decode(raw)
	if !ok {
		return nil, false
	}

	return v, true
}

func (r *Resolver) remember(key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("can't encode value for cache")

		return
	}

	if err := r.cache.Set(key, raw, ttl); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (r *Resolver) cachedFlag(key string) (bool, bool) {
	v, ok := r.cached(key)
	if !ok {
		return false, false
	}

	b, isBool := v.(bool)

	return b, isBool
}

func (r *Resolver) rememberFlag(key string, b bool, ttl time.Duration) {
	r.remember(key, b, ttl)
}

func (r *Resolver) logStoreError(err error, key string) {
	if errors.Is(err, setting.ErrNotFound) {
		return
	}

	r.log.Error().Err(err).Str("setting", key).Msg("settings store read failed")
}

// decode returns the value of a JSON document, false for an absent,
// null or malformed one.
func decode(raw []byte) (any, bool) {
	j := models.JSON(raw)
	if j.IsNull() {
		return nil, false
	}

	v, err := j.Decode()
	if err != nil {
		return nil, false
	}

	return v, true
}
