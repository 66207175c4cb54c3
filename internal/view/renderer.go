// Package view turns page state into HTML.
//
// Render functions are pure: they map state to view models. Renderer owns the
// html/template sets and exposes each page as a templ.Component.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

//go:embed templates/*.html
var embedded embed.FS

const layoutFile = "layout.html"

// Renderer holds one parsed template set per page.
type Renderer struct {
	mu    sync.RWMutex
	fsys  fs.FS
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, fmt.Errorf("templates sub fs: %w", err)
	}
	return NewRendererFS(sub)
}

// NewRendererDir parses templates from a directory on disk.
func NewRendererDir(dir string) (*Renderer, error) {
	return NewRendererFS(os.DirFS(dir))
}

// NewRendererFS parses templates from fsys. fsys holds layout.html plus one
// file per page, each defining a "content" block.
func NewRendererFS(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{fsys: fsys}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"add":   func(a, b int) int { return a + b },
}

// Reload reparses every template. On error the previous set stays active.
func (r *Renderer) Reload() error {
	layout, err := template.New(layoutFile).Funcs(funcs).ParseFS(r.fsys, layoutFile)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(r.fsys, "*.html")
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(r.fsys, f); err != nil {
			return fmt.Errorf("parse %s: %w", f, err)
		}
		pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}

	r.mu.Lock()
	r.pages = pages
	r.mu.Unlock()
	return nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pages[name]
	return ok
}

// Component returns the page as a templ component.
func (r *Renderer) Component(name string, data Page) (templ.Component, error) {
	r.mu.RLock()
	t, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	return templ.FromGoHTML(t, data), nil
}

// Write renders the page into a buffer and then writes it with status.
// A render failure produces a plain 500 instead of a half-written page.
func (r *Renderer) Write(w http.ResponseWriter, req *http.Request, status int, name string, data Page) error {
	c, err := r.Component(name, data)
	if err != nil {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return err
	}

	var buf bytes.Buffer
	if err := c.Render(req.Context(), &buf); err != nil {
		slog.Error("Failed to render page", "page", name, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return fmt.Errorf("render %s: %w", name, err)
	}

	if status <= 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
