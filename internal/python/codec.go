package python

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/makerhub/makerhub/internal/domain"
)

// stringEscaper rewrites a Go string into the body of a double-quoted Python
// string literal. Backslash is listed first so characters introduced by later
// substitutions are never escaped twice; CRLF collapses to a single \n.
var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\r\n", `\n`,
	"\r", `\r`,
	"\n", `\n`,
	"\t", `\t`,
	`"`, `\"`,
	`'`, `\'`,
)

// VariableDefinition renders a variable as a Python assignment statement,
// e.g. `total = 32.9`. The value's runtime type must be compatible with the
// declared tag; a mismatch is an error, never a parse attempt.
func VariableDefinition(v domain.Variable) (string, error) {
	literal, err := encodeValue(v.Name, v.Type, v.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", v.Name, literal), nil
}

func encodeValue(name string, t domain.VariableType, value any) (string, error) {
	switch t {
	case domain.VariableTypeString:
		s, ok := value.(string)
		if !ok {
			return "", mismatch(name, t, value)
		}
		return `"` + stringEscaper.Replace(s) + `"`, nil

	case domain.VariableTypeInteger:
		switch n := value.(type) {
		case int:
			return strconv.Itoa(n), nil
		case int32:
			return strconv.FormatInt(int64(n), 10), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		}
		return "", mismatch(name, t, value)

	case domain.VariableTypeFloat:
		switch n := value.(type) {
		case float32:
			return strconv.FormatFloat(float64(n), 'f', -1, 32), nil
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		// Integer values widen to float; the reverse is never allowed.
		case int:
			return strconv.Itoa(n), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		}
		return "", mismatch(name, t, value)

	case domain.VariableTypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return "", mismatch(name, t, value)
		}
		if b {
			return "True", nil
		}
		return "False", nil

	case domain.VariableTypeList:
		elements, ok := value.([]any)
		if !ok {
			return "", mismatch(name, t, value)
		}
		parts := make([]string, 0, len(elements))
		for _, element := range elements {
			literal, err := encodeScalar(name, element)
			if err != nil {
				return "", err
			}
			parts = append(parts, literal)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}

	return "", fmt.Errorf("unknown variable type %q for variable %s", t, name)
}

// encodeScalar infers the scalar tag of a list element from its runtime type.
func encodeScalar(name string, value any) (string, error) {
	switch value.(type) {
	case string:
		return encodeValue(name, domain.VariableTypeString, value)
	case int, int32, int64:
		return encodeValue(name, domain.VariableTypeInteger, value)
	case float32, float64:
		return encodeValue(name, domain.VariableTypeFloat, value)
	case bool:
		return encodeValue(name, domain.VariableTypeBoolean, value)
	}
	return "", fmt.Errorf("%w: list variable %s has element of unsupported type %T",
		ErrTypeMismatch, name, value)
}

// resultUnescaper inverts the escaping the script template applies when it
// renders the result line: quotes become \q so no literal quote can end a
// value early, and backslash/CR/LF/tab become their two-character sequences.
// Every pattern is a backslash pair, and \\ is listed first, so a single
// left-to-right pass is an exact inverse.
var resultUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\q`, `'`,
	`\r`, "\r",
	`\n`, "\n",
	`\t`, "\t",
)

// DecodeValue converts the textual form a script run dumped back into a typed
// value according to the declared tag. String values are unescaped from the
// template's result encoding; malformed text for the other tags is rejected
// with a descriptive error rather than guessed at.
func DecodeValue(raw string, t domain.VariableType) (any, error) {
	switch t {
	case domain.VariableTypeString:
		return resultUnescaper.Replace(raw), nil

	case domain.VariableTypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrTypeMismatch, raw)
		}
		return n, nil

	case domain.VariableTypeFloat:
		// Accepts integer-looking, fixed-point and exponential text.
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float", ErrTypeMismatch, raw)
		}
		return f, nil

	case domain.VariableTypeBoolean:
		switch raw {
		case "True", "true":
			return true, nil
		case "False", "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, raw)

	case domain.VariableTypeList:
		return nil, fmt.Errorf("list variables cannot be read back from script output (value %q)", raw)
	}

	return nil, fmt.Errorf("unknown variable type %q", t)
}

func mismatch(name string, t domain.VariableType, value any) error {
	return fmt.Errorf("%w: variable %s is declared %s but holds a %T value",
		ErrTypeMismatch, name, t, value)
}
