package query

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/vicdash/internal/errors"
)

func testOptions() Options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Options{Size: 16, TTL: time.Minute, Logger: logrus.NewEntry(l)}
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestFetch_ServesFreshFromCache(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	opts := testOptions()
	opts.Now = clock.Now
	c := NewCache[string]("t", opts)

	var calls atomic.Int32
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	e := c.Fetch(context.Background(), "k", fn)
	require.Equal(t, StatusSuccess, e.Status)
	require.Equal(t, "v", e.Data)
	require.True(t, e.HasData)

	c.Fetch(context.Background(), "k", fn)
	require.EqualValues(t, 1, calls.Load())

	clock.Advance(2 * time.Minute)
	c.Fetch(context.Background(), "k", fn)
	require.EqualValues(t, 2, calls.Load(), "stale entry refetched")
}

func TestFetch_ZeroTTLAlwaysRefetches(t *testing.T) {
	opts := testOptions()
	opts.TTL = 0
	c := NewCache[int]("t", opts)

	var calls atomic.Int32
	fn := func(context.Context) (int, error) { return int(calls.Add(1)), nil }

	c.Fetch(context.Background(), "k", fn)
	e := c.Fetch(context.Background(), "k", fn)
	require.Equal(t, 2, e.Data)
}

func TestFetch_ConcurrentCallersShareOneRequest(t *testing.T) {
	c := NewCache[string]("t", testOptions())

	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]Entry[string], n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Fetch(context.Background(), "k", fn)
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		require.Equal(t, "v", r.Data)
	}
}

func TestFetch_StaleWhileRevalidate(t *testing.T) {
	opts := testOptions()
	opts.TTL = 0
	c := NewCache[string]("t", opts)

	c.Fetch(context.Background(), "k", func(context.Context) (string, error) { return "old", nil })

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan Entry[string])
	go func() {
		done <- c.Fetch(context.Background(), "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "new", nil
		})
	}()

	<-started
	e, ok := c.Peek("k")
	require.True(t, ok)
	require.Equal(t, StatusLoading, e.Status)
	require.Equal(t, "old", e.Data, "previous data stays visible while loading")
	require.True(t, e.HasData)

	close(release)
	e = <-done
	require.Equal(t, StatusSuccess, e.Status)
	require.Equal(t, "new", e.Data)
}

func TestFetch_FailureKeepsPreviousDataAndErrorVerbatim(t *testing.T) {
	opts := testOptions()
	opts.TTL = 0
	c := NewCache[string]("t", opts)

	first := c.Fetch(context.Background(), "k", func(context.Context) (string, error) { return "good", nil })

	want := errors.NewServer(404, "Not Found")
	e := c.Fetch(context.Background(), "k", func(context.Context) (string, error) { return "", want })

	require.Equal(t, StatusError, e.Status)
	require.Same(t, want, e.Err)
	require.Equal(t, "good", e.Data)
	require.Equal(t, first.FetchedAt, e.FetchedAt)

	_, err := e.Result()
	require.Same(t, want, err)
}

func TestFetch_FirstFailureHasNoData(t *testing.T) {
	c := NewCache[[]string]("t", testOptions())
	e := c.Fetch(context.Background(), "k", func(context.Context) ([]string, error) {
		return nil, errors.NewInvalidRequest("bad")
	})
	require.Equal(t, StatusError, e.Status)
	require.False(t, e.HasData)
	require.Nil(t, e.Data)
}

func TestRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int32
		wantOK    bool
	}{
		{"5xx then success retries once", []error{errors.NewServer(503, ""), nil}, 2, true},
		{"network twice gives up", []error{errors.NewNetwork(nil), errors.NewNetwork(nil), nil}, 2, false},
		{"4xx never retried", []error{errors.NewServer(404, ""), nil}, 1, false},
		{"422 never retried", []error{errors.NewServer(422, ""), nil}, 1, false},
		{"unknown never retried", []error{errors.NewUnknown(stderrors.New("decode")), nil}, 1, false},
		{"plain error never retried", []error{stderrors.New("boom"), nil}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache[string]("t", testOptions())
			var calls atomic.Int32
			fn := func(context.Context) (string, error) {
				i := calls.Add(1) - 1
				if err := tt.errs[i]; err != nil {
					return "", err
				}
				return "ok", nil
			}

			e := c.Fetch(context.Background(), "k", fn)
			require.Equal(t, tt.wantCalls, calls.Load())
			require.Equal(t, tt.wantOK, e.Status == StatusSuccess)
		})
	}
}

func TestRetry_WaitsDelay(t *testing.T) {
	opts := testOptions()
	opts.RetryDelay = 30 * time.Millisecond
	c := NewCache[string]("t", opts)

	var calls atomic.Int32
	start := time.Now()
	c.Fetch(context.Background(), "k", func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.NewNetwork(nil)
		}
		return "ok", nil
	})
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFetch_CanceledCallerDoesNotFailOthers(t *testing.T) {
	c := NewCache[string]("t", testOptions())

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fn := func(context.Context) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return "v", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	canceled := make(chan Entry[string])
	go func() { canceled <- c.Fetch(ctx, "k", fn) }()
	<-started

	patient := make(chan Entry[string])
	go func() { patient <- c.Fetch(context.Background(), "k", fn) }()

	cancel()
	e := <-canceled
	require.Equal(t, StatusError, e.Status)
	require.True(t, errors.Is(e.Err, errors.KindUnknown))

	close(release)
	e = <-patient
	require.Equal(t, StatusSuccess, e.Status)
	require.Equal(t, "v", e.Data)
}

func TestCache_BoundedAndInvalidate(t *testing.T) {
	opts := testOptions()
	opts.Size = 2
	c := NewCache[string]("t", opts)
	fn := func(context.Context) (string, error) { return "v", nil }

	for _, k := range []string{"a", "b", "c"} {
		c.Fetch(context.Background(), k, fn)
	}
	require.Equal(t, 2, c.Len())
	_, ok := c.Peek("a")
	require.False(t, ok, "least recently used key evicted")

	c.Invalidate("c")
	_, ok = c.Peek("c")
	require.False(t, ok)
}
