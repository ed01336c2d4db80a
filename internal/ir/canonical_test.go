package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-1), "-1"},
		{"bool true", IRBool(true), "true"},
		{"bool false", false, "false"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"string slice", []string{"b", "a"}, `["b","a"]`},
		{"simple object", IRObject{"x": IRInt(1)}, `{"x":1}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  []any{IRObject{"z": IRInt(1), "a": IRInt(2)}},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":[{"a":2,"z":1}],"zebra":1}`, string(result))
}

func TestMarshalCanonicalRejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = MarshalCanonical(IRNull{})
	assert.ErrorContains(t, err, "null is forbidden")

	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.ErrorContains(t, err, `value for key "x"`)
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	result, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}
