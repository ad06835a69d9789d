// Package models contains database model definitions.
package models

// SettingType is the declared value type of a setting definition.
type SettingType string

const (
	// TypeBool accepts only boolean values.
	TypeBool SettingType = "bool"
	// TypeInt accepts values coercible to an integer.
	TypeInt SettingType = "int"
	// TypeFloat accepts values coercible to a floating-point number.
	TypeFloat SettingType = "float"
	// TypeStr accepts any value and stores its string form.
	TypeStr SettingType = "str"
	// TypeJSON accepts any value serializable as JSON.
	TypeJSON SettingType = "json"
	// TypeChoice accepts a list whose elements are all declared choices.
	TypeChoice SettingType = "choice"
	// TypeDatetime accepts ISO-8601 timestamps.
	TypeDatetime SettingType = "datetime"
	// TypeDuration accepts a non-negative number of seconds.
	TypeDuration SettingType = "duration"
)

// SettingTypes lists every supported setting type.
var SettingTypes = []SettingType{ //nolint:gochecknoglobals
	TypeBool, TypeInt, TypeFloat, TypeStr, TypeJSON, TypeChoice, TypeDatetime, TypeDuration,
}

// Valid reports whether t is one of the supported setting types.
func (t SettingType) Valid() bool {
	for _, known := range SettingTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Scope tells whether a stored value applies to everybody or to one user.
type Scope string

const (
	// ScopeGlobal values apply to every user without an own override.
	ScopeGlobal Scope = "global"
	// ScopeUser values apply to exactly one user.
	ScopeUser Scope = "user"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeGlobal || s == ScopeUser
}
