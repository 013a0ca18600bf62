// Package api is the HTTP client for the VIC backend REST API.
//
// Every failure leaving this package is a *errors.VicError of kind server,
// network or unknown. The client never retries; see package query.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/ids"
	"github.com/hpungsan/vicdash/internal/vic"
)

// BasePath is prefixed to every backend route.
const BasePath = "/api"

// RequestIDHeader carries a per-request ULID for log correlation.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes caps decoded response bodies.
const maxBodyBytes = 16 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is the backend origin, e.g. http://localhost:8000
	BaseURL string

	// Timeout bounds each request; 0 means 10s
	Timeout time.Duration

	// RateLimit is the sustained requests per second; 0 disables pacing
	RateLimit float64
	Burst     int

	// HTTPClient overrides the pooled default (tests)
	HTTPClient *http.Client

	Logger *logrus.Entry
}

// Client talks to one backend.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	log     *logrus.Entry
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	base, err := parseBase(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = newHTTPClient(timeout)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		base:    base,
		http:    hc,
		limiter: limiter,
		log:     log.WithField("component", "api"),
	}, nil
}

// BaseURL returns the backend origin the client was built with, /api included.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func parseBase(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: missing host", raw)
	}

	// accept both http://host and http://host/api
	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(u.Path, BasePath) {
		u.Path += BasePath
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawPath = ""
	return u, nil
}

// newHTTPClient returns a client with a pooled transport.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// ListIdeas calls GET /ideas/ with every present filter.
func (c *Client) ListIdeas(ctx context.Context, p filters.Params) ([]vic.Idea, error) {
	var out []vic.Idea
	if err := c.get(ctx, "/ideas/", p.Values(), &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// GetIdea calls GET /ideas/{id}.
func (c *Client) GetIdea(ctx context.Context, id string) (*vic.IdeaDetail, error) {
	var out vic.IdeaDetail
	if err := c.get(ctx, ideaPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetIdeaPerformance calls GET /ideas/{id}/performance.
func (c *Client) GetIdeaPerformance(ctx context.Context, id string) (*vic.Performance, error) {
	var out vic.Performance
	if err := c.get(ctx, ideaPath(id, "performance"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetIdeaDescription calls GET /ideas/{id}/description.
func (c *Client) GetIdeaDescription(ctx context.Context, id string) (*vic.Description, error) {
	var out vic.Description
	if err := c.get(ctx, ideaPath(id, "description"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetIdeaCatalysts calls GET /ideas/{id}/catalysts.
func (c *Client) GetIdeaCatalysts(ctx context.Context, id string) (*vic.Catalysts, error) {
	var out vic.Catalysts
	if err := c.get(ctx, ideaPath(id, "catalysts"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCompanies calls GET /companies/.
func (c *Client) ListCompanies(ctx context.Context, p filters.Params) ([]vic.Company, error) {
	var out []vic.Company
	if err := c.get(ctx, "/companies/", p.Values(), &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// ListUsers calls GET /users/.
func (c *Client) ListUsers(ctx context.Context, p filters.Params) ([]vic.User, error) {
	var out []vic.User
	if err := c.get(ctx, "/users/", p.Values(), &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*vic.HealthStatus, error) {
	var out vic.HealthStatus
	if err := c.get(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func ideaPath(id, sub string) string {
	p := "/ideas/" + url.PathEscape(id)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

// get performs one GET and decodes a 2xx JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	// path arrives escaped (ids go through url.PathEscape)
	rawPath := c.base.EscapedPath() + path
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return errors.NewUnknown(err)
	}
	u := *c.base
	u.Path = decoded
	u.RawPath = rawPath
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	requestID := ids.NewString()
	log := c.log.WithFields(logrus.Fields{
		"method":     http.MethodGet,
		"path":       path,
		"request_id": requestID,
	})

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.NewUnknown(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.NewUnknown(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		vErr := classifyTransport(ctx, err)
		log.WithError(err).WithFields(logrus.Fields{
			"duration": time.Since(start),
			"kind":     vErr.Kind,
		}).Warn("backend request failed")
		return vErr
	}
	defer resp.Body.Close()

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection is reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		log.Warn("backend returned error status")
		return errors.NewServer(resp.StatusCode, statusText(resp))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		log.WithError(err).Warn("backend response decode failed")
		return errors.NewUnknown(fmt.Errorf("decode %s: %w", path, err))
	}

	log.Debug("backend request")
	return nil
}

// classifyTransport maps a Do error. Caller cancellation is not a
// connectivity failure and is reported as unknown so it is never retried.
func classifyTransport(ctx context.Context, err error) *errors.VicError {
	if ctxErr := ctx.Err(); ctxErr != nil && stderrors.Is(err, ctxErr) {
		return errors.NewUnknown(ctxErr)
	}
	return errors.NewNetwork(err)
}

// statusText returns the reason phrase the server sent, falling back to the
// canonical text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
