// Package validator checks and coerces setting values against their definition.
package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/confetti-go/confetti/internal/db/models"
)

// datetimeLayouts are the ISO-8601 forms accepted for datetime settings:
// a date, optionally followed by T or a space, minutes or seconds with an
// optional fraction and an optional Z, +hh:mm or +hhmm offset.
var datetimeLayouts = newDatetimeLayouts() //nolint:gochecknoglobals

func newDatetimeLayouts() []string {
	const date = "2006-01-02"

	layouts := []string{date}

	for _, sep := range []string{"T", " "} {
		for _, clock := range []string{"15:04:05.999999999", "15:04:05", "15:04"} {
			for _, zone := range []string{"", "Z07:00", "Z0700"} {
				layouts = append(layouts, date+sep+clock+zone)
			}
		}
	}

	return layouts
}

// Validate checks raw against the declared type of def and returns the
// coerced value to store. A nil raw value is returned unchanged.
func Validate(def *models.SettingDefinition, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch def.Type {
	case models.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, invalid(def, "expected a boolean, got %T", raw)
		}

		return b, nil

	case models.TypeInt:
		return toInt(def, raw)

	case models.TypeFloat:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, invalid(def, "expected a number, got %v", raw)
		}

		return f, nil

	case models.TypeStr:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return fmt.Sprint(raw), nil
		}

		return s, nil

	case models.TypeJSON:
		if _, err := json.Marshal(raw); err != nil {
			return nil, invalid(def, "value is not serializable as JSON: %v", err)
		}

		return raw, nil

	case models.TypeChoice:
		return validateChoice(def, raw)

	case models.TypeDatetime:
		return validateDatetime(def, raw)

	case models.TypeDuration:
		return toSeconds(def, raw)

	default:
		return raw, nil
	}
}

func toInt(def *models.SettingDefinition, raw any) (any, error) {
	i, err := int64Of(raw)
	if err != nil {
		return nil, invalid(def, "expected an integer, got %v", raw)
	}

	return i, nil
}

// int64Of converts raw to an integer. Strings are read as base 10 only.
func int64Of(raw any) (int64, error) {
	switch v := raw.(type) {
	case string:
		return parseDecimal(v)
	case json.Number:
		return parseDecimal(string(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, strconv.ErrRange
		}
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return 0, strconv.ErrRange
		}
	}

	return cast.ToInt64E(raw)
}

// parseDecimal parses a base 10 integer. A zero fraction such as "10.0" is
// accepted, prefixes like 0x and leading zero octal are not.
func parseDecimal(s string) (int64, error) {
	s = strings.TrimSpace(s)

	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}

	return strconv.ParseInt(s, 10, 64)
}

func validateChoice(def *models.SettingDefinition, raw any) (any, error) {
	allowed := def.Choices.Values()

	elems, isList := asList(raw)
	if !isList {
		elems = []any{raw}
	}

	for _, elem := range elems {
		if !containsValue(allowed, elem) {
			return nil, invalid(def, "%v is not one of the declared choices %v", elem, allowed)
		}
	}

	if isList {
		return elems, nil
	}

	return raw, nil
}

func validateDatetime(def *models.SettingDefinition, raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case string:
		if _, err := ParseDatetime(v); err != nil {
			return nil, invalid(def, "%q is not an ISO-8601 timestamp", v)
		}

		return v, nil
	default:
		return nil, invalid(def, "expected an ISO-8601 timestamp, got %T", raw)
	}
}

// ParseDatetime parses s using the accepted ISO-8601 layouts.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	var lastErr error

	for _, layout := range datetimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}

		lastErr = err
	}

	return time.Time{}, lastErr
}

func toSeconds(def *models.SettingDefinition, raw any) (any, error) {
	var seconds int64

	switch v := raw.(type) {
	case time.Duration:
		seconds = int64(v / time.Second)
	case string:
		s := strings.TrimSpace(v)

		d, err := time.ParseDuration(s)
		if err == nil {
			seconds = int64(d / time.Second)

			break
		}

		i, err := parseDecimal(s)
		if err != nil {
			return nil, invalid(def, "%q is neither a number of seconds nor a duration", v)
		}

		seconds = i
	default:
		i, err := int64Of(raw)
		if err != nil {
			return nil, invalid(def, "expected a number of seconds, got %v", raw)
		}

		seconds = i
	}

	if seconds < 0 {
		return nil, invalid(def, "duration must not be negative, got %d", seconds)
	}

	return seconds, nil
}

func asList(raw any) ([]any, bool) {
	if list, ok := raw.([]any); ok {
		return list, true
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	// []byte is a scalar here.
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}

	return list, true
}

func containsValue(allowed []any, v any) bool {
	for _, candidate := range allowed {
		if Equal(candidate, v) {
			return true
		}
	}

	return false
}

// Equal compares two setting values. Numbers compare by value regardless of
// their Go type, everything else through reflect.DeepEqual.
func Equal(a, b any) bool {
	fa, aNum := number(a)
	fb, bNum := number(b)

	if aNum && bNum {
		return fa == fb
	}

	if aNum != bNum {
		return false
	}

	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(n)

		return f, err == nil
	default:
		return 0, false
	}
}
