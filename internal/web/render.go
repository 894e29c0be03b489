package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"
)

//go:embed templates
var templateFS embed.FS

// Renderer отрисовывает страницу name с контекстом data.
type Renderer interface {
	Render(w io.Writer, name string, data map[string]any) error
}

// Templates - Renderer на html/template. Каждая страница собирается
// вместе с base.html и общими includes/*.html.
type Templates struct {
	pages map[string]*template.Template
}

var pageNames = []string{
	"posts/index.html",
	"posts/group_list.html",
	"posts/profile.html",
	"posts/post_detail.html",
	"posts/create_post.html",
	"posts/follow.html",
	"core/404.html",
}

// NewTemplates разбирает встроенные шаблоны.
func NewTemplates(mediaURL func(string) string) (*Templates, error) {
	return ParseTemplates(templateFS, mediaURL)
}

// ParseTemplates разбирает шаблоны из fsys (каталог templates/).
func ParseTemplates(fsys fs.FS, mediaURL func(string) string) (*Templates, error) {
	funcs := template.FuncMap{
		"media": mediaURL,
		"date": func(t time.Time) string {
			return t.Format("02.01.2006 15:04")
		},
	}

	t := &Templates{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		page, err := template.New(name).Funcs(funcs).ParseFS(fsys,
			"templates/base.html",
			"templates/includes/*.html",
			"templates/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		t.pages[name] = page
	}
	return t, nil
}

func (t *Templates) Render(w io.Writer, name string, data map[string]any) error {
	page, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	return page.ExecuteTemplate(w, "base.html", data)
}
