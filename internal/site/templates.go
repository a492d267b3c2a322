package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

type templateRenderer struct {
	tmpl *template.Template
}

func newTemplateRenderer() (*templateRenderer, error) {
	funcs := template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("dict requires an even number of args")
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				m[key] = values[i+1]
			}
			return m, nil
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"isoDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"join": func(values []string, sep string) string {
			return strings.Join(values, sep)
		},
		"categoryURL": func(name string) string {
			return categoryDir + "/" + categorySlug(name) + ".html"
		},
	}

	base, err := template.New("site").Funcs(funcs).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &templateRenderer{tmpl: base}, nil
}

func (r *templateRenderer) render(w io.Writer, name string, data any) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

//nolint:govet // field order optimized for readability, not memory
type layoutViewData struct {
	Site siteViewData
	Page pageViewData
}

type siteViewData struct {
	Title   string
	BaseURL string
}

//nolint:govet // field order optimized for readability, not memory
type pageViewData struct {
	Slug        string
	URL         string
	Title       string
	Date        time.Time
	Authors     []string
	Categories  []string
	Tags        []string
	Description string
	Canonical   string
	Draft       bool
	HTML        template.HTML
}

type indexViewData struct {
	Site       siteViewData
	Posts      []pageViewData
	Categories []categoryRef
}

type archiveViewData struct {
	Site     siteViewData
	Category string
	Posts    []pageViewData
}

type categoryRef struct {
	Name  string
	URL   string
	Count int
}
