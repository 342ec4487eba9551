package python

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/makerhub/makerhub/internal/domain"
)

// Reserved keys the template uses to smuggle emitted output actions through
// the flat final-state dump.
const outputCountKey = "__output_count"

// RunResult is everything a script run produced: the input variables with
// their ending values, and the output actions the script emitted in order.
type RunResult struct {
	Variables     []domain.Variable
	OutputActions []domain.OutputAction
}

// Runner assembles a runnable script from the template, the caller's
// variables and user code, executes it through the gateway, and recovers the
// typed results.
type Runner struct {
	gateway   Gateway
	templates *TemplateProvider
}

// NewRunner creates a script runner over the given gateway and template
// provider.
func NewRunner(gateway Gateway, templates *TemplateProvider) *Runner {
	return &Runner{gateway: gateway, templates: templates}
}

// Run executes userCode with the given variables in scope. The returned
// variables carry the values the script left them with; missing variables in
// the script's final state are a fatal error.
//
// Both the definitions block and the user code are indented one level: they
// live inside the template's wrapper function, so user code that reads and
// then reassigns an input variable sees an ordinary local.
func (r *Runner) Run(ctx context.Context, userCode string, variables []domain.Variable) (*RunResult, error) {
	definitions := new(strings.Builder)
	for _, v := range variables {
		definition, err := VariableDefinition(v)
		if err != nil {
			return nil, err
		}
		definitions.WriteString("    ")
		definitions.WriteString(definition)
		definitions.WriteString("\n")
	}

	script := r.templates.Template()
	script = strings.ReplaceAll(script, PlaceholderVariableDefinitions, definitions.String())
	script = strings.ReplaceAll(script, PlaceholderUserCode, indent(userCode))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := r.gateway.Run(ctx, script)
	if err != nil {
		return nil, err
	}

	rows, err := ParseResultLine(lastLine(raw))
	if err != nil {
		return nil, err
	}

	state := make(map[string]string, len(rows))
	for _, row := range rows {
		state[row.Key] = row.Value
	}

	updated := make([]domain.Variable, 0, len(variables))
	for _, v := range variables {
		rawValue, ok := state[v.Name]
		if !ok {
			return nil, &MissingVariableError{Name: v.Name, Output: raw}
		}
		value, err := DecodeValue(rawValue, v.Type)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		updated = append(updated, domain.Variable{Name: v.Name, Type: v.Type, Value: value})
	}

	actions, err := extractOutputActions(state, raw)
	if err != nil {
		return nil, err
	}

	slog.Debug("Script run complete", "variables", len(updated), "output_actions", len(actions))
	return &RunResult{Variables: updated, OutputActions: actions}, nil
}

// indent shifts every line of user code one level right, so it fits inside
// the template's wrapper function body.
func indent(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "    " + line
		}
	}
	return strings.Join(lines, "\n")
}

// lastLine returns the last non-empty line of the interpreter's output; the
// template's serialization step prints the result line last, after anything
// the user code printed itself.
func lastLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func extractOutputActions(state map[string]string, raw string) ([]domain.OutputAction, error) {
	countText, ok := state[outputCountKey]
	if !ok {
		// A template override may not track outputs at all.
		return nil, nil
	}
	count, err := strconv.Atoi(countText)
	if err != nil {
		return nil, fmt.Errorf("malformed output action count %q in python output %s", countText, raw)
	}

	actions := make([]domain.OutputAction, 0, count)
	for i := 0; i < count; i++ {
		name, ok := state[fmt.Sprintf("__output_%d_name", i)]
		if !ok {
			return nil, fmt.Errorf("output action %d missing its name in python output %s", i, raw)
		}
		value := state[fmt.Sprintf("__output_%d_value", i)]
		// Names and arguments travel through the result line, so they carry
		// the same escaping string variables do.
		actions = append(actions, domain.OutputAction{
			ActionName: resultUnescaper.Replace(name),
			Argument:   resultUnescaper.Replace(value),
		})
	}
	return actions, nil
}
