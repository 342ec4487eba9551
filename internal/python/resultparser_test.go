package python

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultLine(t *testing.T) {
	rows, err := ParseResultLine("{'data': 'click', 'count': '3'}")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ResultRow{Key: "data", Value: "click"}, rows[0])
	assert.Equal(t, ResultRow{Key: "count", Value: "3"}, rows[1])
}

func TestParseResultLineSingleRow(t *testing.T) {
	rows, err := ParseResultLine("{'data': 'click'}")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ResultRow{Key: "data", Value: "click"}, rows[0])
}

func TestParseResultLineEmptyMapping(t *testing.T) {
	rows, err := ParseResultLine("{}")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestParseResultLineEmptyValues(t *testing.T) {
	rows, err := ParseResultLine("{'a': '', 'b': 'x'}")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0].Value)
}

func TestParseResultLinePreservesRowOrder(t *testing.T) {
	rows, err := ParseResultLine("{'z': '1', 'a': '2', 'm': '3'}")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "z", rows[0].Key)
	assert.Equal(t, "a", rows[1].Key)
	assert.Equal(t, "m", rows[2].Key)
}

func TestParseResultLineMissingOpeningQuote(t *testing.T) {
	_, err := ParseResultLine("{__name__': '__main__'}")

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 1, syntaxErr.Position)
	assert.Equal(t, '_', syntaxErr.Char)
}

func TestParseResultLineBadRowSeparator(t *testing.T) {
	_, err := ParseResultLine("{'a': 'b'/'c': 'd'}")

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 9, syntaxErr.Position)
	assert.Equal(t, '/', syntaxErr.Char)
}

func TestParseResultLineOffsetsCountLeadingWhitespace(t *testing.T) {
	// Positions refer to the original text, including whatever whitespace
	// surrounds the mapping.
	_, err := ParseResultLine("  {'a': 'b'/'c': 'd'}\n")

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 11, syntaxErr.Position)
}

func TestParseResultLineTruncatedRow(t *testing.T) {
	_, err := ParseResultLine("{'a': 'b', }")

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestParseResultLineMissingBraces(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no braces", "'a': 'b'"},
		{"no closing brace", "{'a': 'b'"},
		{"no opening brace", "'a': 'b'}"},
		{"empty", ""},
		{"whitespace only", "   "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseResultLine(tc.input)

			var malformedErr *MalformedOutputError
			require.ErrorAs(t, err, &malformedErr)
			assert.Equal(t, tc.input, malformedErr.Output)
		})
	}
}
