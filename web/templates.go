package web

import (
	"embed"
	"html/template"
	"io/fs"
	"sync"
)

//go:embed *.html
var pages embed.FS

//go:embed app.css
var static embed.FS

var (
	tmpl *template.Template
	once sync.Once
)

// Templates returns the parsed HTML templates for the UI, embedded at build time.
// layout.html renders the page template named by LayoutData.PageTemplate
// (form.html, dashboard.html or analytics.html).
func Templates() *template.Template {
	once.Do(func() {
		tmpl = template.Must(template.ParseFS(pages, "*.html"))
	})
	return tmpl
}

// StaticFS exposes embedded static assets such as CSS. Page templates are
// not part of it.
func StaticFS() fs.FS {
	return static
}
