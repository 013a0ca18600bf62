package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/hpungsan/vicdash/internal/accum"
	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/vic"
)

// directoryParams reads the search box and pagination of a directory page.
// Only search is forwarded; other filter keys do not apply to directories.
func directoryParams(r *http.Request, pageSize int) filters.Params {
	all := filters.Initial(r.URL.RawQuery, pageSize)
	p := filters.Initial("", pageSize).Set(filters.KeySearch, strings.TrimSpace(r.URL.Query().Get(filters.KeySearch)))
	p.Skip = all.Skip
	p.Limit = all.Limit
	return p
}

// HandleCompanies handles GET /companies: searchable company table.
func (h *Handlers) HandleCompanies(w http.ResponseWriter, r *http.Request) {
	handleDirectory(h, w, r, directorySpec[vic.Company]{
		path:    "/companies",
		page:    "companies",
		title:   "Companies",
		tracker: func(s *session, p filters.Params) *accum.Tracker[vic.Company] { return s.companies.tracker(p) },
		fetch:   h.queries.CompaniesFetcher(),
		fill:    func(d *DirectoryPageData, items []vic.Company) { d.Companies = items },
	})
}

// HandleUsers handles GET /users: searchable member table.
func (h *Handlers) HandleUsers(w http.ResponseWriter, r *http.Request) {
	handleDirectory(h, w, r, directorySpec[vic.User]{
		path:    "/users",
		page:    "users",
		title:   "VIC Members",
		tracker: func(s *session, p filters.Params) *accum.Tracker[vic.User] { return s.users.tracker(p) },
		fetch:   h.queries.UsersFetcher(),
		fill:    func(d *DirectoryPageData, items []vic.User) { d.Users = items },
	})
}

// HandleCompaniesMore handles GET /companies/more.
func (h *Handlers) HandleCompaniesMore(w http.ResponseWriter, r *http.Request) {
	handleDirectoryMore(h, w, r, directorySpec[vic.Company]{
		path:    "/companies",
		page:    "companies",
		tracker: func(s *session, p filters.Params) *accum.Tracker[vic.Company] { return s.companies.tracker(p) },
		fetch:   h.queries.CompaniesFetcher(),
		fill:    func(d *DirectoryPageData, items []vic.Company) { d.Companies = items },
	})
}

// HandleUsersMore handles GET /users/more.
func (h *Handlers) HandleUsersMore(w http.ResponseWriter, r *http.Request) {
	handleDirectoryMore(h, w, r, directorySpec[vic.User]{
		path:    "/users",
		page:    "users",
		tracker: func(s *session, p filters.Params) *accum.Tracker[vic.User] { return s.users.tracker(p) },
		fetch:   h.queries.UsersFetcher(),
		fill:    func(d *DirectoryPageData, items []vic.User) { d.Users = items },
	})
}

type directorySpec[T any] struct {
	path    string
	page    string
	title   string
	tracker func(*session, filters.Params) *accum.Tracker[T]
	fetch   func(context.Context, filters.Params) ([]T, error)
	fill    func(*DirectoryPageData, []T)
}

func handleDirectory[T any](h *Handlers, w http.ResponseWriter, r *http.Request, spec directorySpec[T]) {
	p := directoryParams(r, h.cfg.DirectoryPageSize).FirstPage()
	w.Header().Set(ReplaceURLHeader, filters.BuildURL(spec.path, p))

	tr := spec.tracker(h.sessions.get(w, r), p)
	if _, err := tr.Load(r.Context(), p, spec.fetch); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		items := tr.State().Items
		if items == nil {
			items = []T{}
		}
		renderJSON(w, http.StatusOK, map[string]any{"items": items, "exhausted": tr.State().Exhausted()})
		return
	}

	data := DirectoryPageData{
		PageData: h.renderer.page(spec.title, spec.page),
		More:     moreData(tr, spec.path+"/more", spec.page, ""),
	}
	if s := p.Search; s != nil {
		data.Search = *s
	}
	spec.fill(&data, tr.State().Items)
	h.renderer.renderPage(w, r, spec.page, data)
}

func handleDirectoryMore[T any](h *Handlers, w http.ResponseWriter, r *http.Request, spec directorySpec[T]) {
	p := directoryParams(r, h.cfg.DirectoryPageSize)
	tr := spec.tracker(h.sessions.get(w, r), p)

	res, err := loadMore(r.Context(), tr, p, spec.fetch)
	if err != nil {
		h.renderer.renderBlock(w, errors.As(err).HTTPStatus(), spec.page, "rows-more", DirectoryPageData{
			More: moreFailed(p, spec.path+"/more", spec.page, err),
		})
		return
	}

	data := DirectoryPageData{More: moreData(tr, spec.path+"/more", spec.page, "")}
	spec.fill(&data, res.Added)
	h.renderer.renderBlock(w, http.StatusOK, spec.page, "rows-more", data)
}
