package python

import "strings"

// ResultRow is one key/value pair recovered from a script's final-state dump.
// Values are raw strings here; typing happens later in the codec.
type ResultRow struct {
	Key   string
	Value string
}

// Parser states for the result line grammar:
//
//	{'key': 'value', 'key': 'value'}
//
// Keys and values are single-quoted with no escaping inside; rows are
// separated by a comma and a single space. The last row needs no trailing
// separator.
type parseState int

const (
	stateRowOrEnd   parseState = iota // just after '{': first key quote or nothing
	stateKey                          // inside a key, scanning to the closing quote
	stateColon                        // expecting ':' after a key
	stateValueSpace                   // expecting ' ' before a value
	stateValueQuote                   // expecting the opening quote of a value
	stateValue                        // inside a value, scanning to the closing quote
	stateCommaOrEnd                   // after a value: ',' continues, end of input stops
	stateRowSpace                     // expecting ' ' after the row separator comma
	stateRowQuote                     // expecting the opening quote of the next key
)

// ParseResultLine parses the interpreter's final-state dump into an ordered
// list of key/value rows. Syntax errors report the 0-based offset of the
// offending character within the full original text, echoed verbatim.
func ParseResultLine(output string) ([]ResultRow, error) {
	trimmed := strings.TrimSpace(output)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		var first, last byte
		if len(trimmed) > 0 {
			first = trimmed[0]
			last = trimmed[len(trimmed)-1]
		}
		return nil, &MalformedOutputError{First: first, Last: last, Output: output}
	}

	// Offsets are reported against the original text, so account for any
	// leading whitespace the trim removed.
	base := strings.Index(output, trimmed)

	interior := trimmed[1 : len(trimmed)-1]
	rows := []ResultRow{}
	state := stateRowOrEnd
	var key, value strings.Builder

	fail := func(i int, c rune) ([]ResultRow, error) {
		return nil, &SyntaxError{Position: base + 1 + i, Char: c, Output: output}
	}

	for i, c := range interior {
		switch state {
		case stateRowOrEnd, stateRowQuote:
			if c != '\'' {
				return fail(i, c)
			}
			key.Reset()
			state = stateKey

		case stateKey:
			if c == '\'' {
				state = stateColon
			} else {
				key.WriteRune(c)
			}

		case stateColon:
			if c != ':' {
				return fail(i, c)
			}
			state = stateValueSpace

		case stateValueSpace:
			if c != ' ' {
				return fail(i, c)
			}
			state = stateValueQuote

		case stateValueQuote:
			if c != '\'' {
				return fail(i, c)
			}
			value.Reset()
			state = stateValue

		case stateValue:
			if c == '\'' {
				rows = append(rows, ResultRow{Key: key.String(), Value: value.String()})
				state = stateCommaOrEnd
			} else {
				value.WriteRune(c)
			}

		case stateCommaOrEnd:
			if c != ',' {
				return fail(i, c)
			}
			state = stateRowSpace

		case stateRowSpace:
			if c != ' ' {
				return fail(i, c)
			}
			state = stateRowQuote
		}
	}

	// The closing brace may legally follow an empty mapping or a completed
	// row; anywhere else it cut a row short.
	if state != stateRowOrEnd && state != stateCommaOrEnd {
		return nil, &SyntaxError{Position: base + len(trimmed) - 1, Char: '}', Output: output}
	}

	return rows, nil
}
