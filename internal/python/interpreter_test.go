package python

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerhub/makerhub/internal/domain"
)

// These tests run the embedded template through a real interpreter, so the
// whole pipeline — codec, template, subprocess, parser, decode — is exercised
// end to end. They skip on machines without python3.

func interpreterRunner(t *testing.T) *Runner {
	t.Helper()
	bin, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not on PATH")
	}
	templates, err := NewTemplateProvider(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	return NewRunner(NewProcessGateway(bin, nil, 30*time.Second), templates)
}

func TestInterpreterReadsThenAssignsVariable(t *testing.T) {
	runner := interpreterRunner(t)

	result, err := runner.Run(context.Background(), "count = count + 1", []domain.Variable{
		{Name: "count", Type: domain.VariableTypeInteger, Value: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Variables[0].Value)
}

func TestInterpreterRoundTripsAwkwardStrings(t *testing.T) {
	runner := interpreterRunner(t)

	tests := []struct {
		name  string
		value string
	}{
		{"single quote", "it's"},
		{"double quote", `say "hi"`},
		{"both quotes", `it's "quoted"`},
		{"backslash", `a\b`},
		{"newline", "line one\nline two"},
		{"tab", "a\tb"},
		{"all mixed", "it's \"x\" \\ y\nsecond\tline"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := runner.Run(context.Background(), "", []domain.Variable{
				{Name: "data", Type: domain.VariableTypeString, Value: tc.value},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.value, result.Variables[0].Value)
		})
	}
}

func TestInterpreterMutatesStrings(t *testing.T) {
	runner := interpreterRunner(t)

	result, err := runner.Run(context.Background(), `data = data + "!"`, []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "it's done"},
	})
	require.NoError(t, err)
	assert.Equal(t, "it's done!", result.Variables[0].Value)
}

func TestInterpreterRoundTripsScalars(t *testing.T) {
	runner := interpreterRunner(t)

	result, err := runner.Run(context.Background(), "ok = not ok", []domain.Variable{
		{Name: "total", Type: domain.VariableTypeFloat, Value: 32.9},
		{Name: "ok", Type: domain.VariableTypeBoolean, Value: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 32.9, result.Variables[0].Value)
	assert.Equal(t, false, result.Variables[1].Value)
}

func TestInterpreterEmitsOutputActions(t *testing.T) {
	runner := interpreterRunner(t)

	code := "output('led', data)\noutput('buzzer', 'two beeps')"
	result, err := runner.Run(context.Background(), code, []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "it's on"},
	})
	require.NoError(t, err)

	require.Len(t, result.OutputActions, 2)
	assert.Equal(t, domain.OutputAction{ActionName: "led", Argument: "it's on"}, result.OutputActions[0])
	assert.Equal(t, domain.OutputAction{ActionName: "buzzer", Argument: "two beeps"}, result.OutputActions[1])
}

func TestInterpreterIgnoresUserPrints(t *testing.T) {
	runner := interpreterRunner(t)

	result, err := runner.Run(context.Background(), "print('debug noise')\ndata = 'done'", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "start"},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Variables[0].Value)
}

func TestInterpreterReportsScriptErrors(t *testing.T) {
	runner := interpreterRunner(t)

	_, err := runner.Run(context.Background(), "raise ValueError('boom')", nil)
	require.ErrorIs(t, err, ErrProcessFailed)
	assert.Contains(t, err.Error(), "boom", "the failure carries the traceback text")
}
