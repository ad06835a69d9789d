package resolver

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/confetti-go/confetti/internal/validator"
)

// Truthy reports whether v counts as enabled: true, a non-zero number,
// a non-empty collection or a string other than a false literal.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if b, err := cast.ToBoolE(strings.TrimSpace(t)); err == nil {
			return b
		}

		return t != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}

	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0
	}

	return true
}

// GetBool resolves key as a boolean.
func (r *Resolver) GetBool(key string, user *uint64, fallback bool) bool {
	b, err := cast.ToBoolE(r.Get(key, user, fallback))
	if err != nil {
		return fallback
	}

	return b
}

// GetInt resolves key as an integer.
func (r *Resolver) GetInt(key string, user *uint64, fallback int64) int64 {
	i, err := cast.ToInt64E(r.Get(key, user, fallback))
	if err != nil {
		return fallback
	}

	return i
}

// GetFloat resolves key as a floating-point number.
func (r *Resolver) GetFloat(key string, user *uint64, fallback float64) float64 {
	f, err := cast.ToFloat64E(r.Get(key, user, fallback))
	if err != nil {
		return fallback
	}

	return f
}

// GetString resolves key as a string.
func (r *Resolver) GetString(key string, user *uint64, fallback string) string {
	s, err := cast.ToStringE(r.Get(key, user, fallback))
	if err != nil {
		return fallback
	}

	return s
}

// GetDuration resolves key as a duration. Numbers are seconds.
func (r *Resolver) GetDuration(key string, user *uint64, fallback time.Duration) time.Duration {
	switch v := r.Get(key, user, nil).(type) {
	case nil:
		return fallback
	case int64:
		return time.Duration(v) * time.Second
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}

		return fallback
	default:
		secs, err := cast.ToFloat64E(v)
		if err != nil {
			return fallback
		}

		return time.Duration(secs * float64(time.Second))
	}
}

// GetTime resolves key as a timestamp.
func (r *Resolver) GetTime(key string, user *uint64, fallback time.Time) time.Time {
	s, ok := r.Get(key, user, nil).(string)
	if !ok {
		return fallback
	}

	t, err := validator.ParseDatetime(s)
	if err != nil {
		return fallback
	}

	return t
}
