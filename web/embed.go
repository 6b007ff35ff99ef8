// Package web holds the page templates and static assets, embedded into the
// binary.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
)

const (
	baseTemplate     = "base.html"
	partialsTemplate = "partials.html"
	// fragments render without the page layout
	fragmentSuffix = "_fragment.html"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates returns the embedded template directory.
func Templates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Static returns the embedded static directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadTemplates parses every page of fsys together with the layout and the
// shared partials, keyed by file name.
func LoadTemplates(fsys fs.FS, funcs template.FuncMap) (map[string]*template.Template, error) {
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, err
	}

	templates := make(map[string]*template.Template)
	for _, name := range files {
		if name == baseTemplate || name == partialsTemplate {
			continue
		}

		var tmpl *template.Template
		if strings.HasSuffix(name, fragmentSuffix) {
			tmpl, err = template.New(path.Base(name)).Funcs(funcs).ParseFS(fsys, name, partialsTemplate)
		} else {
			tmpl, err = template.New(baseTemplate).Funcs(funcs).ParseFS(fsys, baseTemplate, name, partialsTemplate)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}
