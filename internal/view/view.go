package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	baseDir  string
	baseOnce sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
)

// Base locates the templates directory whether the process runs from
// the repo root or a subdirectory (tests run from their package dir).
func Base() string {
	baseOnce.Do(func() {
		for _, c := range []string{"templates", "../templates", "../../templates", "../../../templates"} {
			if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
				baseDir = filepath.Clean(c)
				return
			}
		}
		baseDir = "templates"
	})
	return baseDir
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"qty":   func(d decimal.Decimal) string { return d.StringFixed(2) },
}

func load(name string) (*template.Template, error) {
	tplCache.RLock()
	if t, ok := tplCache.m[name]; ok {
		tplCache.RUnlock()
		return t, nil
	}
	tplCache.RUnlock()
	layout := filepath.Join(Base(), "layout.html")
	page := filepath.Join(Base(), name)
	t, err := template.New("layout.html").Funcs(funcs).ParseFiles(layout, page)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	return t, nil
}

// Render executes the named page template inside the shared layout.
// Data is rendered into a buffer first so a template error never
// produces a half-written response.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	t, err := load(name)
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}
