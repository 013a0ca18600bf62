package filters

import (
	"sync"
)

// ReplaceURL is called with the new address-bar URL after every change.
// Implementations must replace the current history entry, never push.
type ReplaceURL func(url string)

// Controller holds the live filter state for one browsing session and
// mirrors every change to the URL.
type Controller struct {
	mu       sync.Mutex
	path     string
	pageSize int
	params   Params
	replace  ReplaceURL
}

// NewController initializes state from query. replace may be nil.
func NewController(path, query string, pageSize int, replace ReplaceURL) *Controller {
	return &Controller{
		path:     path,
		pageSize: pageSize,
		params:   Initial(query, pageSize),
		replace:  replace,
	}
}

// Params returns a copy of the current state.
func (c *Controller) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.Clone()
}

// Set applies a single-key update and returns the new state.
func (c *Controller) Set(key, value string) Params {
	return c.update(func(p Params) Params { return p.Set(key, value) })
}

// Clear removes key.
func (c *Controller) Clear(key string) Params {
	return c.Set(key, "")
}

// Reset drops every filter, keeping the page size.
func (c *Controller) Reset() Params {
	return c.update(func(Params) Params { return Initial("", c.pageSize) })
}

// Replace swaps in the state parsed from query, e.g. after a form submit.
// Pagination starts over; the page size is kept unless query sets one.
func (c *Controller) Replace(query string) Params {
	return c.update(func(Params) Params { return Initial(query, c.pageSize).FirstPage() })
}

// LoadMore advances pagination. The URL does not change since pagination is
// never serialized.
func (c *Controller) LoadMore() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = c.params.NextPage()
	return c.params.Clone()
}

// URL returns path plus the serialized filters.
func (c *Controller) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BuildURL(c.path, c.params)
}

func (c *Controller) update(fn func(Params) Params) Params {
	c.mu.Lock()
	c.params = fn(c.params)
	next := c.params.Clone()
	u := BuildURL(c.path, next)
	replace := c.replace
	c.mu.Unlock()

	if replace != nil {
		replace(u)
	}
	return next
}

// BuildURL joins path and the serialized filters of p.
func BuildURL(path string, p Params) string {
	q := p.Serialize()
	if q == "" {
		return path
	}
	return path + "?" + q
}
