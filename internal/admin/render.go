package admin

import (
	"bytes"
	"database/sql"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/settings"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{
	"dashboard",
	"campaigns",
	"campaign_form",
	"gifts",
	"gift_form",
	"participants",
	"participant",
	"settings",
	"system",
	"migration",
	"error",
}

const dateTimeInput = "2006-01-02T15:04"

var funcs = template.FuncMap{
	"comma": func(n int64) string { return humanize.Comma(n) },
	"ago":   humanize.Time,
	"date": func(t sql.NullTime) string {
		if !t.Valid {
			return "—"
		}
		return t.Time.Format("2006-01-02 15:04")
	},
	"dateInput": func(t sql.NullTime) string {
		if !t.Valid {
			return ""
		}
		return t.Time.In(time.Local).Format(dateTimeInput)
	},
	"ns": func(s sql.NullString) string { return s.String },
	"ni": func(n sql.NullInt64) string {
		if !n.Valid {
			return ""
		}
		return fmt.Sprint(n.Int64)
	},
	"remaining": func(g model.Gift) string {
		n, unlimited := g.Remaining()
		if unlimited {
			return "unlimited"
		}
		return humanize.Comma(n)
	},
	"percent": func(part, total int64) string {
		if total == 0 {
			return "0%"
		}
		return humanize.FtoaWithDigits(float64(part)*100/float64(total), 1) + "%"
	},
	"province": settings.ProvinceName,
	// query builds a query string from key/value pairs, dropping empty values
	"query": func(pairs ...string) template.URL {
		v := url.Values{}
		for i := 0; i+1 < len(pairs); i += 2 {
			if pairs[i+1] != "" {
				v.Set(pairs[i], pairs[i+1])
			}
		}
		return template.URL(v.Encode())
	},
}

// view is the data every page template receives
type view struct {
	Title string
	Nav   string
	Flash string
	Error string
	Data  any
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// render buffers the page, so a failing template still yields a clean 500
func (rd *renderer) render(w http.ResponseWriter, r *http.Request, status int, name string, v view) {
	t, ok := rd.pages[name]
	if !ok {
		slog.Error("unknown template", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if v.Flash == "" {
		v.Flash = r.URL.Query().Get("msg")
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		slog.Error("failed to render template", "template", name, "error", err, "request_id", RequestID(r.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirect sends the browser to path with a flash message (post/redirect/get)
func redirect(w http.ResponseWriter, r *http.Request, path, msg string) {
	if msg != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + "msg=" + url.QueryEscape(msg)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
