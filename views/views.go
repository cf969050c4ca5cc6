package views

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

//go:embed templates
var files embed.FS

const layout = "templates/layout.html"

// Renderer implements echo.Renderer. Each page is parsed together with the
// shared layout and addressed by its path without extension, e.g.
// "store/index".
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"money": formatMoney,
	"price": formatPrice,
	"json": func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// formatPrice shows a stored unit price rounded up to the cent, the same
// way line prices are computed.
func formatPrice(f float64) string {
	return formatMoney(decimal.NewFromFloat(f).RoundCeil(2))
}

func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	err := fs.WalkDir(files, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path == layout || !strings.HasSuffix(path, ".html") {
			return err
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files, layout, path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), ".html")
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
