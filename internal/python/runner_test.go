package python

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerhub/makerhub/internal/domain"
)

// fakeGateway records the assembled script and returns canned output.
type fakeGateway struct {
	output string
	err    error
	script string
}

func (g *fakeGateway) Run(_ context.Context, script string) (string, error) {
	g.script = script
	if g.err != nil {
		return "", g.err
	}
	return g.output, nil
}

func newTestRunner(t *testing.T, gateway Gateway) *Runner {
	t.Helper()
	templates, err := NewTemplateProvider(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	return NewRunner(gateway, templates)
}

func TestRunAssemblesScript(t *testing.T) {
	gateway := &fakeGateway{output: "{'data': 'click'}"}
	runner := newTestRunner(t, gateway)

	_, err := runner.Run(context.Background(), "print(data)", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "click"},
	})
	require.NoError(t, err)

	assert.Contains(t, gateway.script, "    data = \"click\"\n", "definitions are indented into the wrapper function")
	assert.Contains(t, gateway.script, "    print(data)", "user code is indented into the wrapper function")
	assert.NotContains(t, gateway.script, PlaceholderVariableDefinitions)
	assert.NotContains(t, gateway.script, PlaceholderUserCode)
}

func TestRunReturnsUpdatedVariables(t *testing.T) {
	gateway := &fakeGateway{output: "{'count': '5', 'data': 'done'}"}
	runner := newTestRunner(t, gateway)

	result, err := runner.Run(context.Background(), "count = count + 1", []domain.Variable{
		{Name: "count", Type: domain.VariableTypeInteger, Value: 4},
		{Name: "data", Type: domain.VariableTypeString, Value: "start"},
	})
	require.NoError(t, err)

	require.Len(t, result.Variables, 2)
	assert.Equal(t, int64(5), result.Variables[0].Value)
	assert.Equal(t, "done", result.Variables[1].Value)
	assert.Empty(t, result.OutputActions)
}

func TestRunIgnoresUserPrintedLines(t *testing.T) {
	gateway := &fakeGateway{output: "debug line one\nanother line\n{'data': 'ok'}\n"}
	runner := newTestRunner(t, gateway)

	result, err := runner.Run(context.Background(), "", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Variables[0].Value)
}

func TestRunMissingVariable(t *testing.T) {
	raw := "{'other': 'value'}"
	gateway := &fakeGateway{output: raw}
	runner := newTestRunner(t, gateway)

	_, err := runner.Run(context.Background(), "del data", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "x"},
	})

	var missingErr *MissingVariableError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "data", missingErr.Name)
	assert.Equal(t, raw, missingErr.Output, "the error carries the full raw output")
}

func TestRunVariableLookupIsCaseSensitive(t *testing.T) {
	gateway := &fakeGateway{output: "{'DATA': 'x'}"}
	runner := newTestRunner(t, gateway)

	_, err := runner.Run(context.Background(), "", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "x"},
	})

	var missingErr *MissingVariableError
	require.ErrorAs(t, err, &missingErr)
}

func TestRunExtractsOutputActions(t *testing.T) {
	gateway := &fakeGateway{output: "{'data': 'x', '__output_count': '2', " +
		"'__output_0_name': 'led', '__output_0_value': 'on', " +
		"'__output_1_name': 'buzzer', '__output_1_value': 'beep'}"}
	runner := newTestRunner(t, gateway)

	result, err := runner.Run(context.Background(), "output('led', 'on')", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "x"},
	})
	require.NoError(t, err)

	require.Len(t, result.OutputActions, 2)
	assert.Equal(t, domain.OutputAction{ActionName: "led", Argument: "on"}, result.OutputActions[0])
	assert.Equal(t, domain.OutputAction{ActionName: "buzzer", Argument: "beep"}, result.OutputActions[1])
}

func TestRunUnescapesStateValues(t *testing.T) {
	gateway := &fakeGateway{output: `{'data': 'it\qs \qquoted\q\nline two', ` +
		`'__output_count': '1', '__output_0_name': 'led', '__output_0_value': 'on\qoff\tnow'}`}
	runner := newTestRunner(t, gateway)

	result, err := runner.Run(context.Background(), "", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, "it's 'quoted'\nline two", result.Variables[0].Value)
	require.Len(t, result.OutputActions, 1)
	assert.Equal(t, "led", result.OutputActions[0].ActionName)
	assert.Equal(t, "on'off\tnow", result.OutputActions[0].Argument)
}

func TestRunPropagatesGatewayErrors(t *testing.T) {
	gateway := &fakeGateway{err: ErrProcessFailed}
	runner := newTestRunner(t, gateway)

	_, err := runner.Run(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrProcessFailed)
}

func TestRunPropagatesParserErrors(t *testing.T) {
	gateway := &fakeGateway{output: "Traceback (most recent call last):"}
	runner := newTestRunner(t, gateway)

	_, err := runner.Run(context.Background(), "", nil)

	var malformedErr *MalformedOutputError
	assert.ErrorAs(t, err, &malformedErr)
}

func TestRunCancelledContext(t *testing.T) {
	gateway := &fakeGateway{output: "{}"}
	runner := newTestRunner(t, gateway)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gateway.script, "no process may start after cancellation")
}

func TestDefaultTemplateShape(t *testing.T) {
	templates, err := NewTemplateProvider(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	template := templates.Template()
	assert.Contains(t, template, PlaceholderVariableDefinitions)
	assert.Contains(t, template, PlaceholderUserCode)
	assert.Contains(t, template, "__output_count")
	assert.True(t, strings.Contains(template, "def output("), "template defines the output helper")
}

func TestTemplateProviderOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/makerhub/template.py", []byte("custom"), 0644))

	templates, err := NewTemplateProvider(fs, "/etc/makerhub/template.py")
	require.NoError(t, err)
	assert.Equal(t, "custom", templates.Template())
}

func TestTemplateProviderMissingOverride(t *testing.T) {
	_, err := NewTemplateProvider(afero.NewMemMapFs(), "/nope/template.py")
	assert.Error(t, err)
}

func TestRunToleratesOverrideWithoutOutputTracking(t *testing.T) {
	gateway := &fakeGateway{output: "{'data': 'x'}"}
	runner := newTestRunner(t, gateway)

	result, err := runner.Run(context.Background(), "", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: "x"},
	})
	require.NoError(t, err)
	assert.Nil(t, result.OutputActions)
}

func TestRunRejectsUnencodableVariable(t *testing.T) {
	gateway := &fakeGateway{output: "{}"}
	runner := newTestRunner(t, gateway)

	_, err := runner.Run(context.Background(), "", []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: 42},
	})
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.Empty(t, gateway.script, "encoding failures stop the run before any process spawns")
}
