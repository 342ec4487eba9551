package python

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Placeholders substituted verbatim into the script template. No templating
// engine is involved.
const (
	PlaceholderVariableDefinitions = "{{{VARIABLE_DEFINITIONS}}}"
	PlaceholderUserCode            = "{{{USER_CODE}}}"
)

//go:embed scripts/default_script.py
var embeddedTemplate string

// TemplateProvider serves the script template that wraps user code. The
// embedded default is used unless an on-disk override is configured; the
// override can be hot-reloaded while the server runs.
type TemplateProvider struct {
	fs           afero.Fs
	overridePath string

	mu      sync.RWMutex
	current string

	watcher *fsnotify.Watcher
}

// NewTemplateProvider loads the template. With an empty overridePath the
// embedded default is served. A configured override that cannot be read is an
// error rather than a silent fallback.
func NewTemplateProvider(fs afero.Fs, overridePath string) (*TemplateProvider, error) {
	p := &TemplateProvider{
		fs:           fs,
		overridePath: overridePath,
		current:      embeddedTemplate,
	}
	if overridePath != "" {
		if err := p.reload(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Template returns the current template text.
func (p *TemplateProvider) Template() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *TemplateProvider) reload() error {
	content, err := afero.ReadFile(p.fs, p.overridePath)
	if err != nil {
		return fmt.Errorf("failed to read script template %s: %w", p.overridePath, err)
	}
	p.mu.Lock()
	p.current = string(content)
	p.mu.Unlock()
	slog.Info("Loaded script template override", "path", p.overridePath, "bytes", len(content))
	return nil
}

// StartWatcher begins monitoring the override file for changes. It is a no-op
// when no override is configured.
func (p *TemplateProvider) StartWatcher(ctx context.Context) error {
	if p.overridePath == "" {
		slog.Debug("No script template override configured, skipping watcher setup")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}

	// Watch the containing directory: editors often replace the file rather
	// than writing it in place.
	if err := watcher.Add(filepath.Dir(p.overridePath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch template directory: %w", err)
	}

	p.watcher = watcher
	go p.watchFiles(ctx)
	slog.Info("Watching script template for changes", "path", p.overridePath)
	return nil
}

func (p *TemplateProvider) watchFiles(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.overridePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := p.reload(); err != nil {
				slog.Error("Failed to reload script template", "error", err)
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Script template watcher error", "error", err)
		}
	}
}

// StopWatcher stops the file system watcher if one is running.
func (p *TemplateProvider) StopWatcher() {
	if p.watcher != nil {
		p.watcher.Close()
		p.watcher = nil
	}
}
