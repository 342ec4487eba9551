package python

import (
	"errors"
	"fmt"
)

// Sentinel errors for the script pipeline. Callers match with errors.Is; the
// wrapped messages carry the offending raw text for debuggability.
var (
	ErrTypeMismatch  = errors.New("variable value does not match its declared type")
	ErrProcessFailed = errors.New("python process exited with an error")
	ErrTimeout       = errors.New("python process timed out")
)

// MalformedOutputError reports a result line that is not a brace-delimited
// mapping. It cites the two boundary characters actually found.
type MalformedOutputError struct {
	First  byte
	Last   byte
	Output string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("python output must start with '{' and end with '}', but found %q and %q: %s",
		e.First, e.Last, e.Output)
}

// SyntaxError reports an unexpected character in the result line. Position is
// the 0-based offset of the character within the full original output text.
type SyntaxError struct {
	Position int
	Char     rune
	Output   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("unexpected character %q at position %d in python output %s",
		e.Char, e.Position, e.Output)
}

// MissingVariableError reports an input variable that the script's final
// state did not contain. It echoes the full raw output verbatim.
type MissingVariableError struct {
	Name   string
	Output string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("could not find variable %s in python output %s", e.Name, e.Output)
}
