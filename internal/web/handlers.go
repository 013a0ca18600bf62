package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/vicdash/internal/accum"
	"github.com/hpungsan/vicdash/internal/config"
	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/perf"
	"github.com/hpungsan/vicdash/internal/query"
	"github.com/hpungsan/vicdash/internal/vic"
)

// ReplaceURLHeader tells the client to replace (never push) the address bar.
const ReplaceURLHeader = "HX-Replace-Url"

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	queries  *query.Queries
	cfg      *config.Config
	renderer *Renderer
	sessions *Sessions
	log      *logrus.Entry
}

// HandleRoot handles GET /: health-gated entry point.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if _, err := h.queries.Health(r.Context()); err != nil {
		h.renderUnavailable(w, r, err)
		return
	}
	http.Redirect(w, r, "/ideas", http.StatusFound)
}

// HandleHealthz handles GET /healthz: backend reachability as JSON.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	status, err := h.queries.Health(r.Context())
	if err != nil {
		vErr := errors.As(err)
		renderJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "unavailable",
			"backend": h.cfg.APIBaseURL,
			"error":   vErr.Message,
		})
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"status":  status.Status,
		"backend": h.cfg.APIBaseURL,
	})
}

func (h *Handlers) renderUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithError(err).Warn("backend health check failed")
	h.renderer.renderPageStatus(w, r, http.StatusServiceUnavailable, "unavailable", UnavailablePageData{
		PageData:   h.renderer.page("API Connection Error", ""),
		APIBaseURL: h.cfg.APIBaseURL,
		Message:    errors.As(err).Message,
	})
}

// HandleIdeas handles GET /ideas: the filtered, accumulated ideas list.
// Every request starts the list over from the first page of its filters.
func (h *Handlers) HandleIdeas(w http.ResponseWriter, r *http.Request) {
	ctl := filters.NewController("/ideas", "", h.cfg.PageSize, func(u string) {
		w.Header().Set(ReplaceURLHeader, u)
	})
	p := ctl.Replace(r.URL.RawQuery)

	tr := h.sessions.get(w, r).ideas.tracker(p)
	if _, err := tr.Load(r.Context(), p, h.queries.IdeasFetcher()); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"items":     nonNilIdeas(tr.State().Items),
			"filters":   p,
			"exhausted": tr.State().Exhausted(),
		})
		return
	}

	h.renderer.renderPage(w, r, "ideas", IdeasPageData{
		PageData:  h.renderer.page("Investment Ideas", "ideas"),
		Ideas:     tr.State().Items,
		Filters:   p,
		Chips:     chips("/ideas", p),
		More:      moreData(tr, "/ideas/more", "ideas", ""),
		Direction: triState(p.IsShort, "short", "long"),
		Winner:    triState(p.IsContestWinner, "yes", "no"),
		Periods:   periodOptions(p),
		SortBy:    options(p.SortBy, [][2]string{{"date", "Date"}, {"performance", "Performance"}}),
		SortOrder: options(p.SortOrder, [][2]string{{"desc", "Newest / highest first"}, {"asc", "Oldest / lowest first"}}),
	})
}

// HandleIdeasMore handles GET /ideas/more: the next page as a fragment of
// new cards plus the updated load-more control. A failed fetch answers with
// an inline alert; cards already on the page are left alone.
func (h *Handlers) HandleIdeasMore(w http.ResponseWriter, r *http.Request) {
	p := filters.Initial(r.URL.RawQuery, h.cfg.PageSize)
	tr := h.sessions.get(w, r).ideas.tracker(p)

	res, err := loadMore(r.Context(), tr, p, h.queries.IdeasFetcher())
	if err != nil {
		h.renderer.renderBlock(w, errors.As(err).HTTPStatus(), "ideas", "ideas-more", IdeasMoreData{
			More: moreFailed(p, "/ideas/more", "ideas", err),
		})
		return
	}

	h.renderer.renderBlock(w, http.StatusOK, "ideas", "ideas-more", IdeasMoreData{
		Ideas: res.Added,
		More:  moreData(tr, "/ideas/more", "ideas", ""),
	})
}

// HandleDetail handles GET /ideas/{id}: view a single idea. Sections the
// backend did not embed are fetched separately; a section that still
// cannot be loaded renders as not available.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	detail, err := h.queries.Detail(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"idea":        detail,
			"performance": perf.Rows(detail.Performance, detail.IsShort),
		})
		return
	}

	data := DetailPageData{
		PageData:    h.renderer.page(detail.DisplayName(), "ideas"),
		Idea:        detail,
		DisplayName: detail.DisplayName(),
		Author:      detail.AuthorName(),
		AuthorURL:   filters.BuildURL("/ideas", filters.Params{}.Set(filters.KeyUserID, detail.UserID)),
	}
	if detail.Description != nil && strings.TrimSpace(detail.Description.Description) != "" {
		data.Description = renderText(detail.Description.Description)
	}
	if detail.Catalysts != nil && strings.TrimSpace(detail.Catalysts.Catalysts) != "" {
		data.Catalysts = renderText(detail.Catalysts.Catalysts)
	}
	if detail.Performance.HasAny() {
		data.Rows = perf.Rows(detail.Performance, detail.IsShort)
		data.Chart = perf.Series(detail.Performance, detail.IsShort)
	}

	h.renderer.renderPage(w, r, "detail", data)
}

// HandleAbout handles GET /about.
func (h *Handlers) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "about", struct{ PageData }{h.renderer.page("About", "about")})
}

// loadMore appends the page p names to tr. When p is tr's next page it merges
// in; otherwise (a new or evicted list) p is loaded as requested.
func loadMore[T any](ctx context.Context, tr *accum.Tracker[T], p filters.Params, fetch func(context.Context, filters.Params) ([]T, error)) (accum.Result[T], error) {
	if next, ok := tr.Next(); ok && next.CacheKey() == p.CacheKey() {
		return tr.LoadMore(ctx, fetch)
	}
	return tr.Load(ctx, p, fetch)
}

// moreData describes the load-more control for the current tracker state.
func moreData[T any](tr *accum.Tracker[T], path, noun, errMsg string) MoreData {
	next, ok := tr.Next()
	if !ok {
		return MoreData{Exhausted: true, Noun: noun, Error: errMsg}
	}
	return MoreData{URL: pageURL(path, next), Noun: noun, Error: errMsg}
}

// moreFailed keeps the button pointed at the page that failed so it can be retried.
func moreFailed(p filters.Params, path, noun string, err error) MoreData {
	return MoreData{URL: pageURL(path, p), Noun: noun, Error: errors.As(err).Message}
}

// pageURL is path plus every param including pagination.
func pageURL(path string, p filters.Params) string {
	return path + "?" + p.CacheKey()
}

func chips(path string, p filters.Params) []Chip {
	keys := p.Active()
	out := make([]Chip, 0, len(keys))
	for _, k := range keys {
		v, _ := p.Get(k)
		out = append(out, Chip{Key: k, Value: v, ClearURL: filters.BuildURL(path, p.Clear(k))})
	}
	return out
}

func triState(b *bool, yes, no string) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return yes
	default:
		return no
	}
}

func options(cur *string, pairs [][2]string) []Option {
	out := make([]Option, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, Option{Value: pair[0], Label: pair[1], Selected: cur != nil && *cur == pair[0]})
	}
	return out
}

func periodOptions(p filters.Params) []Option {
	periods := vic.PerformancePeriods()
	pairs := make([][2]string, 0, len(periods))
	for _, h := range periods {
		pairs = append(pairs, [2]string{h.Period, h.Label})
	}
	return options(p.PerformancePeriod, pairs)
}

func nonNilIdeas(items []vic.Idea) []vic.Idea {
	if items == nil {
		return []vic.Idea{}
	}
	return items
}
