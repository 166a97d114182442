// Package view renders the HTML pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/csrf"
	"github.com/lecturedesk/lecturedesk/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

const (
	TabCalendar  = "calendar"
	TabMaterials = "materials"
)

// Pages that can be rendered. Each one is parsed together with the layout.
const (
	PageCalendar  = "calendar"
	PageMaterials = "materials"
	PageError     = "error"
)

var pages = []string{PageCalendar, PageMaterials, PageError}

// Page is the data every template receives. Body holds the page specific data.
type Page struct {
	Tab    string
	Title  string
	Notice string
	Error  string
	CSRF   template.HTML
	Body   any
}

// ErrorBody is the body of the error view.
type ErrorBody struct {
	Heading string
	Message string
	// RetryURL receives a POST from the retry button.
	RetryURL string
	// ReturnTo is posted along so the retry can redirect back.
	ReturnTo string
}

// NewPage builds the page frame for r, picking up the notice and error query
// parameters set by redirects.
func NewPage(r *http.Request, tab, title string, body any) Page {
	q := r.URL.Query()
	return Page{
		Tab:    tab,
		Title:  title,
		Notice: q.Get("notice"),
		Error:  q.Get("error"),
		CSRF:   csrf.TemplateField(r),
		Body:   body,
	}
}

type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	funcs := template.FuncMap{
		"longDate": func(d calendar.Date) string {
			return d.In(loc).Format("Monday, January 2, 2006")
		},
		"shortWeekday": func(d calendar.Date) string {
			return d.Weekday().String()[:3]
		},
		"isoDate": func(d calendar.Date) string {
			return d.String()
		},
		"lectureDate": func(text string) string {
			d, err := calendar.ParseDate(text, loc)
			if err != nil {
				return text
			}
			return d.In(loc).Format("January 2, 2006")
		},
		"granularities": func() []calendar.Granularity {
			return calendar.Granularities
		},
		"icsPath": func(d calendar.Date) string {
			return fmt.Sprintf("/calendar/%04d/%02d.ics", d.Year, int(d.Month))
		},
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict needs key and value pairs")
			}
			m := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
				}
				m[key] = pairs[i+1]
			}
			return m, nil
		},
		"href": func(path string, q url.Values) template.URL {
			if len(q) == 0 {
				return template.URL(path)
			}
			return template.URL(path + "?" + q.Encode())
		},
		"param": func(q url.Values, key, value string) url.Values {
			out := make(url.Values, len(q)+1)
			for k, v := range q {
				out[k] = append([]string(nil), v...)
			}
			out.Set(key, value)
			return out
		},
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFiles,
			"templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

// Render writes page with the given status. The page is rendered into a buffer first,
// so a template failure still produces a clean 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Page) {
	t, ok := r.templates[page]
	if !ok {
		log.Errorf("unknown page template %q", page)
		http.Error(w, "Unknown page", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		log.Errorf("failed to render %s: %v", page, err)
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debugf("failed to write %s: %v", page, err)
	}
}

// RenderError shows the error view with a retry button.
func (r *Renderer) RenderError(w http.ResponseWriter, req *http.Request, status int, tab string, body ErrorBody) {
	if body.Heading == "" {
		body.Heading = "Something went wrong while loading data"
	}
	r.Render(w, status, PageError, NewPage(req, tab, body.Heading, body))
}

// Static serves the embedded stylesheet under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
