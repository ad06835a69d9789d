package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ErrUnsupportedScan is returned when a JSON column is scanned from an unexpected type.
var ErrUnsupportedScan = errors.New("unsupported scan type for JSON column")

// ErrTrailingData is returned when a document holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON document")

var jsonNull = []byte("null") //nolint:gochecknoglobals

// JSON is a raw JSON document stored in a text column.
// A nil or "null" document is stored as SQL NULL.
type JSON json.RawMessage

// NewJSON encodes v as a JSON document. A nil v yields the null document.
func NewJSON(v any) (JSON, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return JSON(b), nil
}

// MustJSON is like NewJSON but panics on error. Intended for literals.
func MustJSON(v any) JSON {
	j, err := NewJSON(v)
	if err != nil {
		panic(err)
	}

	return j
}

// IsNull reports whether the document is absent or the JSON literal null.
func (j JSON) IsNull() bool {
	trimmed := bytes.TrimSpace(j)

	return len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull)
}

// Decode unmarshals the document into a generic Go value.
// Integral numbers decode to int64, other numbers to float64 and the null
// document to nil.
func (j JSON) Decode() (any, error) {
	if j.IsNull() {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(j))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}

		f, _ := t.Float64()

		return f
	case []any:
		for i := range t {
			t[i] = normalizeNumbers(t[i])
		}
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	}

	return v
}

// Bytes returns the document, using "null" for an absent one.
func (j JSON) Bytes() []byte {
	if j.IsNull() {
		return jsonNull
	}

	return []byte(j)
}

// Value implements driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}

	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSON(nil), v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedScan, src)
	}

	return nil
}

// MarshalJSON implements json.Marshaler.
func (j JSON) MarshalJSON() ([]byte, error) {
	return j.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *JSON) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*j = nil

		return nil
	}

	*j = append(JSON(nil), data...)

	return nil
}

// GormDataType implements schema.GormDataTypeInterface.
func (JSON) GormDataType() string {
	return "json"
}

// GormDBDataType picks the column type per dialect.
func (JSON) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	default:
		return "TEXT"
	}
}

// Choices is the list of allowed values of a choice setting.
type Choices []Choice

// Value implements driver.Valuer.
func (c Choices) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}

	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *Choices) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*c = nil

		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedScan, src)
	}

	if JSON(raw).IsNull() {
		*c = nil

		return nil
	}

	return json.Unmarshal(raw, c)
}

// GormDataType implements schema.GormDataTypeInterface.
func (Choices) GormDataType() string {
	return "json"
}

// GormDBDataType picks the column type per dialect.
func (Choices) GormDBDataType(db *gorm.DB, f *schema.Field) string {
	return JSON(nil).GormDBDataType(db, f)
}

// Values returns the declared choice values.
func (c Choices) Values() []any {
	values := make([]any, 0, len(c))
	for _, choice := range c {
		values = append(values, choice.Value)
	}

	return values
}
