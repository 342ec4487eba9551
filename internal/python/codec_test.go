package python

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerhub/makerhub/internal/domain"
)

func TestVariableDefinitionString(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "hello", `greeting = "hello"`},
		{"empty", "", `greeting = ""`},
		{"single quote", "it's", `greeting = "it\'s"`},
		{"double quote", `say "hi"`, `greeting = "say \"hi\""`},
		{"backslash", `a\b`, `greeting = "a\\b"`},
		{"newline", "a\nb", `greeting = "a\nb"`},
		{"crlf collapses", "a\r\nb", `greeting = "a\nb"`},
		{"lone cr", "a\rb", `greeting = "a\rb"`},
		{"tab", "a\tb", `greeting = "a\tb"`},
		{"backslash before escape", "\\\n", `greeting = "\\\n"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VariableDefinition(domain.Variable{
				Name:  "greeting",
				Type:  domain.VariableTypeString,
				Value: tc.value,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVariableDefinitionScalars(t *testing.T) {
	tests := []struct {
		name     string
		variable domain.Variable
		want     string
	}{
		{"integer", domain.Variable{Name: "n", Type: domain.VariableTypeInteger, Value: 42}, "n = 42"},
		{"negative integer", domain.Variable{Name: "n", Type: domain.VariableTypeInteger, Value: int64(-7)}, "n = -7"},
		{"float", domain.Variable{Name: "x", Type: domain.VariableTypeFloat, Value: 32.9}, "x = 32.9"},
		{"float from int", domain.Variable{Name: "x", Type: domain.VariableTypeFloat, Value: 3}, "x = 3"},
		{"bool true", domain.Variable{Name: "ok", Type: domain.VariableTypeBoolean, Value: true}, "ok = True"},
		{"bool false", domain.Variable{Name: "ok", Type: domain.VariableTypeBoolean, Value: false}, "ok = False"},
		{"list", domain.Variable{Name: "xs", Type: domain.VariableTypeList, Value: []any{1, "two", true}}, `xs = [1, "two", True]`},
		{"empty list", domain.Variable{Name: "xs", Type: domain.VariableTypeList, Value: []any{}}, "xs = []"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VariableDefinition(tc.variable)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVariableDefinitionTypeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		variable domain.Variable
	}{
		{"string holding int", domain.Variable{Name: "v", Type: domain.VariableTypeString, Value: 5}},
		{"integer holding float", domain.Variable{Name: "v", Type: domain.VariableTypeInteger, Value: 1.5}},
		{"integer holding numeric string", domain.Variable{Name: "v", Type: domain.VariableTypeInteger, Value: "5"}},
		{"bool holding string", domain.Variable{Name: "v", Type: domain.VariableTypeBoolean, Value: "true"}},
		{"list holding scalar", domain.Variable{Name: "v", Type: domain.VariableTypeList, Value: 5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VariableDefinition(tc.variable)
			assert.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

func TestDecodeValue(t *testing.T) {
	got, err := DecodeValue("hello", domain.VariableTypeString)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = DecodeValue("42", domain.VariableTypeInteger)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	got, err = DecodeValue("32.9", domain.VariableTypeFloat)
	require.NoError(t, err)
	assert.Equal(t, 32.9, got)

	// Python prints whole floats with a trailing .0.
	got, err = DecodeValue("3.0", domain.VariableTypeFloat)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = DecodeValue("True", domain.VariableTypeBoolean)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = DecodeValue("false", domain.VariableTypeBoolean)
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestDecodeValueUnescapesStrings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "hello", "hello"},
		{"quote", `it\qs`, "it's"},
		{"newline", `line one\nline two`, "line one\nline two"},
		{"carriage return", `a\rb`, "a\rb"},
		{"tab", `a\tb`, "a\tb"},
		{"backslash", `back\\slash`, `back\slash`},
		{"backslash then n", `\\n`, `\n`},
		{"backslash then quote", `\\\qx`, `\'x`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeValue(tc.raw, domain.VariableTypeString)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeValueRejectsMalformedText(t *testing.T) {
	_, err := DecodeValue("not a number", domain.VariableTypeInteger)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = DecodeValue("1.5", domain.VariableTypeInteger)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = DecodeValue("yes", domain.VariableTypeBoolean)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = DecodeValue("[1, 2]", domain.VariableTypeList)
	assert.Error(t, err, "lists cannot round-trip through the state dump")
}
