// Package query caches backend reads by content-addressed key with
// stale-while-revalidate semantics and a single automatic retry.
package query

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/vicdash/internal/errors"
)

// Status is the three-state fetch status.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is a cache slot. Data is the last successful value and stays
// visible while a refetch is loading and after a refetch fails.
type Entry[T any] struct {
	Status    Status
	Data      T
	HasData   bool
	Err       error // verbatim, StatusError only
	FetchedAt time.Time
}

// Result returns Data on success and the error otherwise.
func (e Entry[T]) Result() (T, error) {
	if e.Status == StatusError {
		var zero T
		return zero, e.Err
	}
	return e.Data, nil
}

// Options configures a Cache.
type Options struct {
	// Size bounds the number of keys; 0 means 256
	Size int

	// TTL is how long a success is served without refetch; 0 always refetches
	TTL time.Duration

	// RetryDelay is the pause before the single retry
	RetryDelay time.Duration

	Logger *logrus.Entry

	// Now is the clock (tests)
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 256
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Cache is a bounded LRU of Entries. Concurrent fetches of one key share a
// single backend request.
type Cache[T any] struct {
	name string
	opts Options
	log  *logrus.Entry

	mu      sync.Mutex
	entries *lru.Cache[string, Entry[T]]
	group   singleflight.Group
}

// NewCache creates a cache named for logging.
func NewCache[T any](name string, opts Options) *Cache[T] {
	opts = opts.withDefaults()
	entries, err := lru.New[string, Entry[T]](opts.Size)
	if err != nil {
		// only fails for a non-positive size, excluded above
		panic(err)
	}
	return &Cache[T]{
		name:    name,
		opts:    opts,
		log:     opts.Logger.WithFields(logrus.Fields{"component": "query", "cache": name}),
		entries: entries,
	}
}

// Peek returns the current entry for key without fetching.
func (c *Cache[T]) Peek(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Peek(key)
}

// Invalidate drops key so the next Fetch goes to the backend.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

// Len returns the number of cached keys.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Fetch returns a fresh entry for key, calling fn when the cached success is
// older than TTL or absent. A caller whose ctx ends while waiting gets an
// error entry; the shared request keeps running for the other callers.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fn func(context.Context) (T, error)) Entry[T] {
	c.mu.Lock()
	prev, ok := c.entries.Get(key)
	if ok && prev.Status == StatusSuccess && c.opts.TTL > 0 && c.opts.Now().Sub(prev.FetchedAt) < c.opts.TTL {
		c.mu.Unlock()
		return prev
	}
	if !ok || prev.Status != StatusLoading {
		loading := prev
		loading.Status = StatusLoading
		loading.Err = nil
		c.entries.Add(key, loading)
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		// detached so one canceled caller does not fail the others
		return c.load(context.WithoutCancel(ctx), key, fn), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Entry[T])
	case <-ctx.Done():
		cur, _ := c.Peek(key)
		cur.Status = StatusError
		cur.Err = errors.NewUnknown(ctx.Err())
		return cur
	}
}

// load runs fn under the retry policy and records the outcome.
func (c *Cache[T]) load(ctx context.Context, key string, fn func(context.Context) (T, error)) Entry[T] {
	data, err := withRetry(ctx, c.opts.RetryDelay, c.log.WithField("key", key), fn)

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, _ := c.entries.Peek(key)
	var next Entry[T]
	if err != nil {
		next = Entry[T]{
			Status:    StatusError,
			Data:      prev.Data,
			HasData:   prev.HasData,
			Err:       err,
			FetchedAt: prev.FetchedAt,
		}
	} else {
		next = Entry[T]{
			Status:    StatusSuccess,
			Data:      data,
			HasData:   true,
			FetchedAt: c.opts.Now(),
		}
	}
	c.entries.Add(key, next)
	return next
}

// withRetry calls fn and, on a transient failure, calls it once more.
// Client errors (4xx) and unknown errors are returned immediately.
func withRetry[T any](ctx context.Context, delay time.Duration, log *logrus.Entry, fn func(context.Context) (T, error)) (T, error) {
	data, err := fn(ctx)
	if err == nil {
		return data, nil
	}

	vErr := errors.As(err)
	if !vErr.IsTransient() || ctx.Err() != nil {
		return data, err
	}

	log.WithError(err).WithField("kind", vErr.Kind).Debug("transient failure, retrying once")
	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return data, err
		}
	}
	return fn(ctx)
}
