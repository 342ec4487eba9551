package python

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// DefaultProcessTimeout bounds a single interpreter run. The process is
// killed and reaped when the deadline passes.
const DefaultProcessTimeout = 60 * time.Second

// Gateway runs a complete, self-contained script text in an external
// interpreter process and returns its combined stdout and stderr.
type Gateway interface {
	Run(ctx context.Context, script string) (string, error)
}

// ProcessGateway executes scripts by writing them to a temporary file and
// invoking the configured interpreter binary on it.
type ProcessGateway struct {
	bin     string
	args    []string
	timeout time.Duration
}

// NewProcessGateway creates a gateway for the given interpreter command.
// Extra args are placed before the script path on the command line.
func NewProcessGateway(bin string, args []string, timeout time.Duration) *ProcessGateway {
	if timeout <= 0 {
		timeout = DefaultProcessTimeout
	}
	return &ProcessGateway{bin: bin, args: args, timeout: timeout}
}

// Run executes the script, capturing stdout and stderr interleaved. A
// non-zero exit surfaces as ErrProcessFailed carrying the captured text;
// exceeding the timeout kills the process and surfaces ErrTimeout.
func (g *ProcessGateway) Run(ctx context.Context, script string) (string, error) {
	tmp, err := os.CreateTemp("", "makerhub-script-*.py")
	if err != nil {
		return "", fmt.Errorf("failed to create script temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(script); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write script temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close script temp file: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	args := append(append([]string{}, g.args...), tmp.Name())
	cmd := exec.CommandContext(runCtx, g.bin, args...)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	start := time.Now()
	err = cmd.Run()
	slog.Debug("Python process finished",
		"bin", g.bin,
		"duration", time.Since(start),
		"output_bytes", combined.Len(),
	)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w after %s", ErrTimeout, g.timeout)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w:\r\n%s", ErrProcessFailed, combined.String())
		}
		return "", fmt.Errorf("failed to run python process: %w", err)
	}

	return combined.String(), nil
}
