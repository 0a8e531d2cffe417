// Package web renders the application's HTML pages from templates embedded
// in the binary. Presentation is deliberately thin: handlers pass a plain
// data map and this package knows nothing about the domain.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Pages holds the parsed template set.
type Pages struct {
	tpl *template.Template
}

// NewPages parses the embedded templates once at startup.
func NewPages() (*Pages, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Pages{tpl: tpl}, nil
}

// Render writes the named template with the given data. A render failure
// after headers are written cannot be recovered, so it degrades to a plain
// 500 when possible.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := p.tpl.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}
