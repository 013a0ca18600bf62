package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/perf"
	"github.com/hpungsan/vicdash/internal/vic"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "ideas", "companies", "users", "about"
}

// Chip is one active filter with a link that removes it.
type Chip struct {
	Key      string
	Value    string
	ClearURL string
}

// Option is one <option> of a filter select.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// MoreData drives the load-more control under an accumulated list.
type MoreData struct {
	URL       string // empty once the list is exhausted
	Exhausted bool
	Error     string
	Noun      string
}

// IdeasPageData is the template data for the ideas list.
type IdeasPageData struct {
	PageData
	Ideas   []vic.Idea
	Filters filters.Params
	Chips   []Chip
	More    MoreData

	Direction string // "", "long", "short"
	Winner    string // "", "yes", "no"
	Periods   []Option
	SortBy    []Option
	SortOrder []Option
}

// IdeasMoreData is the fragment returned by load more.
type IdeasMoreData struct {
	Ideas []vic.Idea
	More  MoreData
}

// DetailPageData is the template data for the idea detail page.
type DetailPageData struct {
	PageData
	Idea        *vic.IdeaDetail
	DisplayName string
	Author      string
	AuthorURL   string
	Description template.HTML
	Catalysts   template.HTML
	Rows        []perf.Row
	Chart       []perf.Point
}

// DirectoryPageData is shared by the companies and users tables.
type DirectoryPageData struct {
	PageData
	Search    string
	Companies []vic.Company
	Users     []vic.User
	More      MoreData
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// UnavailablePageData is the full-screen connectivity error.
type UnavailablePageData struct {
	PageData
	APIBaseURL string
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	log       *logrus.Entry
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, log *logrus.Entry) *Renderer {
	funcMap := template.FuncMap{
		"add":      func(a, b int) int { return a + b },
		"deref":    deref,
		"hasValue": hasValue,
		"percent":  func(w float64) int { return int(math.Round(w * 100)) },
		"userURL":  userIdeasURL,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html", "cards.html"))

	pages := map[string]string{
		"ideas":       "ideas.html",
		"detail":      "detail.html",
		"companies":   "companies.html",
		"users":       "users.html",
		"about":       "about.html",
		"error":       "error.html",
		"unavailable": "unavailable.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		log:       log.WithField("component", "web"),
	}
}

// page returns PageData stamped with the build version.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For fragment requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if isFragment(req) {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
// Used for partial swaps that target a sub-section of the page.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.log.WithField("template", page).Error("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"template": page, "block": block}).Error("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	vErr := errors.As(err)
	status := vErr.HTTPStatus()
	message := vErr.Message

	entry := r.log.WithFields(logrus.Fields{"kind": vErr.Kind, "path": req.URL.Path, "status": status})
	if status >= http.StatusInternalServerError {
		entry.WithError(vErr.Cause).Warn(message)
	} else {
		entry.Debug(message)
	}

	// fragment request: inline alert
	if isFragment(req) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="alert alert-error" role="alert">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	// JSON request
	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"kind":    string(vErr.Kind),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func isFragment(req *http.Request) bool {
	return req != nil && req.Header.Get("HX-Request") == "true"
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

var (
	markdown = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))
	sanitize = bluemonday.UGCPolicy()
)

// renderText converts write-up text to sanitized HTML. Single newlines in
// the source become line breaks.
func renderText(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(sanitize.SanitizeBytes(buf.Bytes()))
}

// userIdeasURL links a user to the ideas they authored. Ideas reference
// users by profile link when the backend has one.
func userIdeasURL(u vic.User) string {
	ref := u.UserLink
	if ref == "" {
		ref = u.Username
	}
	return filters.BuildURL("/ideas", filters.Params{}.Set(filters.KeyUserID, ref))
}

// deref dereferences a pointer, returning the zero value if nil.
func deref(v any) any {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Zero(rv.Type().Elem()).Interface()
		}
		return rv.Elem().Interface()
	}
	return v
}

// hasValue checks if a pointer value is non-nil.
func hasValue(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return !rv.IsNil()
	}
	return true
}
