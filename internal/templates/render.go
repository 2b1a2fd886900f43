// Package templates renders the viewer page and its Datastar fragments.
package templates

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

//go:embed *.html
var embedded embed.FS

// Renderer manages the page and fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer from the embedded templates.
func New() (*Renderer, error) {
	return newRenderer(embedded)
}

// NewFromDir creates a renderer from the *.html files in dir, for editing
// templates without rebuilding.
func NewFromDir(dir string) (*Renderer, error) {
	return newRenderer(os.DirFS(dir))
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	tmpl, err := parse(fsys)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").ParseFS(fsys, "*.html")
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Execute(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Execute renders a named template to w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, name, data)
}

// Reload re-parses templates from dir. On error the current templates stay
// in use.
func (r *Renderer) Reload(dir string) error {
	tmpl, err := parse(os.DirFS(dir))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}

// Watch reloads the templates whenever an *.html file in dir changes.
// It blocks until ctx is done.
func (r *Renderer) Watch(ctx context.Context, dir string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching templates", "dir", dir)

	const changed = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".html" || ev.Op&changed == 0 {
				continue
			}
			if err := r.Reload(dir); err != nil {
				logger.Warn("template reload failed", "file", ev.Name, "error", err)
				continue
			}
			logger.Info("templates reloaded", "file", filepath.Base(ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
