package web

import (
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hpungsan/vicdash/internal/accum"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/ids"
	"github.com/hpungsan/vicdash/internal/vic"
)

// SessionCookie carries the browser session id.
const SessionCookie = "vicdash_session"

// listsPerSession bounds the filter sets one browser keeps lists for.
const listsPerSession = 16

// session is the accumulated list state of one browser: one tracker per
// resource and filter set, so tabs showing different filters never share
// a seen set.
type session struct {
	ideas     *lists[vic.Idea]
	companies *lists[vic.Company]
	users     *lists[vic.User]
}

func newSession() *session {
	return &session{
		ideas:     newLists(vic.IdeaID),
		companies: newLists(vic.CompanyID),
		users:     newLists(vic.UserID),
	}
}

// lists maps a filter key to its accumulated list. The least recently used
// filter set is dropped when full.
type lists[T any] struct {
	id    func(T) string
	cache *lru.Cache[string, *accum.Tracker[T]]
}

func newLists[T any](id func(T) string) *lists[T] {
	cache, err := lru.New[string, *accum.Tracker[T]](listsPerSession)
	if err != nil {
		panic(err)
	}
	return &lists[T]{id: id, cache: cache}
}

// tracker returns the list for p's filters, pagination ignored.
func (l *lists[T]) tracker(p filters.Params) *accum.Tracker[T] {
	key := p.FilterKey()
	if tr, ok := l.cache.Get(key); ok {
		return tr
	}
	tr := accum.NewTracker(l.id)
	if prev, ok, _ := l.cache.PeekOrAdd(key, tr); ok {
		return prev
	}
	return tr
}

// Len returns the number of filter sets held.
func (l *lists[T]) Len() int {
	return l.cache.Len()
}

// Sessions is a bounded store of browser sessions. The least recently used
// session is dropped when the store is full; its browser simply starts over.
type Sessions struct {
	cache *lru.Cache[string, *session]
}

// NewSessions creates a store holding at most limit sessions.
func NewSessions(limit int) *Sessions {
	if limit < 1 {
		limit = 1
	}
	cache, err := lru.New[string, *session](limit)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	return &Sessions{cache: cache}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

// get returns the session of r, creating one (and its cookie) when the
// request has none or it was evicted.
func (s *Sessions) get(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, ok := ids.Parse(c.Value); ok {
			if sess, ok := s.cache.Get(c.Value); ok {
				return sess
			}
			// evicted or from a previous run: keep the id, start empty
			sess := newSession()
			if prev, ok, _ := s.cache.PeekOrAdd(c.Value, sess); ok {
				return prev
			}
			return sess
		}
	}

	id := ids.NewString()
	sess := newSession()
	s.cache.Add(id, sess)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}
