package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	testCases := []struct {
		name   string
		in     any
		isNull bool
		want   any
	}{
		{name: "nil", in: nil, isNull: true, want: nil},
		{name: "bool", in: true, want: true},
		{name: "integer decodes as int64", in: 42, want: int64(42)},
		{name: "large integer keeps precision", in: int64(9007199254740993), want: int64(9007199254740993)},
		{name: "fraction decodes as float64", in: 1.5, want: 1.5},
		{name: "nested numbers", in: map[string]any{"columns": 2, "ratio": 0.25}, want: map[string]any{"columns": int64(2), "ratio": 0.25}},
		{name: "string", in: "dark", want: "dark"},
		{name: "list", in: []string{"a", "b"}, want: []any{"a", "b"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			j, err := NewJSON(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.isNull, j.IsNull())

			got, err := j.Decode()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJSONDecodeTrailingData(t *testing.T) {
	_, err := JSON(`1 2`).Decode()
	require.ErrorIs(t, err, ErrTrailingData)

	_, err = JSON(`{"a":`).Decode()
	require.Error(t, err)
}

func TestJSONScanAndValue(t *testing.T) {
	var j JSON

	require.NoError(t, j.Scan([]byte(`{"a":1}`)))
	v, err := j.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	require.NoError(t, j.Scan(nil))
	assert.True(t, j.IsNull())
	v, err = j.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.ErrorIs(t, j.Scan(42), ErrUnsupportedScan)
}

func TestJSONMarshalNull(t *testing.T) {
	payload := struct {
		Default JSON `json:"default"`
	}{}

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"default":null}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"default":null}`), &payload))
	assert.Nil(t, payload.Default)
}

func TestChoicesScan(t *testing.T) {
	var c Choices

	require.NoError(t, c.Scan(`[{"value":"light","label":"Light"},{"value":2}]`))
	require.Len(t, c, 2)
	assert.Equal(t, "Light", c[0].Label)
	assert.Equal(t, []any{"light", float64(2)}, c.Values())

	require.NoError(t, c.Scan(nil))
	assert.Nil(t, c)
}

func TestSettingTypeValid(t *testing.T) {
	assert.True(t, TypeChoice.Valid())
	assert.False(t, SettingType("enum").Valid())
	assert.True(t, ScopeUser.Valid())
	assert.False(t, Scope("tenant").Valid())
}
