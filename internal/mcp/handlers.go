package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/vicdash/internal/accum"
	"github.com/hpungsan/vicdash/internal/config"
	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/perf"
	"github.com/hpungsan/vicdash/internal/query"
	"github.com/hpungsan/vicdash/internal/vic"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	queries *query.Queries
	cfg     *config.Config
	log     *logrus.Entry
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(q *query.Queries, cfg *config.Config, log *logrus.Entry) *Handlers {
	return &Handlers{queries: q, cfg: cfg, log: log.WithField("component", "mcp")}
}

// IDRequest represents the arguments of the per-idea tools.
type IDRequest struct {
	ID string `json:"id"`
}

// IdeasListResult is the output of ideas_list.
type IdeasListResult struct {
	Items     []vic.Idea `json:"items"`
	Count     int        `json:"count"`
	Filters   string     `json:"filters"`
	Exhausted bool       `json:"exhausted"`
	NextSkip  *int       `json:"next_skip,omitempty"`
}

// IdeaFetchResult is the output of idea_fetch.
type IdeaFetchResult struct {
	Idea        *vic.IdeaDetail `json:"idea"`
	DisplayName string          `json:"display_name"`
	Author      string          `json:"author"`
	Direction   string          `json:"direction"`
	Performance []perf.Row      `json:"performance,omitempty"`
}

// PerformanceResult is the output of idea_performance.
type PerformanceResult struct {
	ID        string     `json:"id"`
	Direction string     `json:"direction"`
	Available bool       `json:"available"`
	Headline  *perf.Row  `json:"headline,omitempty"`
	Rows      []perf.Row `json:"rows"`
}

// DirectoryResult is the output of companies_list and users_list.
type DirectoryResult[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

var directoryKeys = []string{filters.KeySearch, filters.KeySkip, filters.KeyLimit}

// Handler implementations

// HandleIdeasList handles the ideas_list tool call.
func (h *Handlers) HandleIdeasList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	p, err := paramsFromArgs(args, h.cfg.PageSize, filters.Keys())
	if err != nil {
		return errorResult(err), nil
	}

	pages := 1
	if v, ok := args["pages"]; ok && v != nil {
		n, ok := toInt(v)
		if !ok || n < 1 || n > maxPages {
			return errorResult(errors.NewInvalidRequest(fmt.Sprintf("pages must be between 1 and %d", maxPages))), nil
		}
		pages = n
	}

	tr := accum.NewTracker(vic.IdeaID)
	fetch := h.queries.IdeasFetcher()
	if _, err := tr.Load(ctx, p, fetch); err != nil {
		return errorResult(err), nil
	}
	for i := 1; i < pages; i++ {
		if _, ok := tr.Next(); !ok {
			break
		}
		if _, err := tr.LoadMore(ctx, fetch); err != nil {
			return errorResult(err), nil
		}
	}

	state := tr.State()
	out := IdeasListResult{
		Items:     state.Items,
		Count:     state.Len(),
		Filters:   p.Serialize(),
		Exhausted: state.Exhausted(),
	}
	if out.Items == nil {
		out.Items = []vic.Idea{}
	}
	if next, ok := tr.Next(); ok {
		skip := next.Offset()
		out.NextSkip = &skip
	}

	h.log.WithFields(logrus.Fields{"tool": "ideas_list", "filters": out.Filters, "count": out.Count}).Debug("tool call")
	return successResult(out)
}

// HandleIdeaFetch handles the idea_fetch tool call.
func (h *Handlers) HandleIdeaFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	detail, err := h.queries.Detail(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	h.log.WithFields(logrus.Fields{"tool": "idea_fetch", "idea": input.ID}).Debug("tool call")
	return successResult(IdeaFetchResult{
		Idea:        detail,
		DisplayName: detail.DisplayName(),
		Author:      detail.AuthorName(),
		Direction:   detail.Direction(),
		Performance: perf.Rows(detail.Performance, detail.IsShort),
	})
}

// HandleIdeaPerformance handles the idea_performance tool call. The idea is
// read first since the sign of every figure depends on its direction.
func (h *Handlers) HandleIdeaPerformance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	idea, err := h.queries.Idea(ctx, input.ID).Result()
	if err != nil {
		return errorResult(err), nil
	}

	p := idea.Performance
	if p == nil {
		fetched, err := h.queries.IdeaPerformance(ctx, input.ID).Result()
		if err != nil && !errors.As(err).IsClientError() {
			return errorResult(err), nil
		}
		p = fetched
	}

	out := PerformanceResult{
		ID:        idea.ID,
		Direction: idea.Direction(),
		Available: p.HasAny(),
		Rows:      perf.Rows(p, idea.IsShort),
	}
	if out.Rows == nil {
		out.Rows = []perf.Row{}
	}
	if row, ok := perf.Headline(p, idea.IsShort); ok {
		out.Headline = &row
	}
	return successResult(out)
}

// HandleCompaniesList handles the companies_list tool call.
func (h *Handlers) HandleCompaniesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := paramsFromArgs(req.GetArguments(), h.cfg.DirectoryPageSize, directoryKeys)
	if err != nil {
		return errorResult(err), nil
	}
	items, err := h.queries.Companies(ctx, p).Result()
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(directory(items, p))
}

// HandleUsersList handles the users_list tool call.
func (h *Handlers) HandleUsersList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := paramsFromArgs(req.GetArguments(), h.cfg.DirectoryPageSize, directoryKeys)
	if err != nil {
		return errorResult(err), nil
	}
	items, err := h.queries.Users(ctx, p).Result()
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(directory(items, p))
}

// HandleHealth handles the health tool call.
func (h *Handlers) HandleHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.queries.Health(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"status":  status.Status,
		"backend": h.cfg.APIBaseURL,
	})
}

func directory[T any](items []T, p filters.Params) DirectoryResult[T] {
	if items == nil {
		items = []T{}
	}
	return DirectoryResult[T]{Items: items, Count: len(items), Skip: p.Offset(), Limit: p.PageSize()}
}

// paramsFromArgs applies the allowed keys of args onto the defaults.
// A value that does not parse is rejected instead of silently dropped.
func paramsFromArgs(args map[string]any, pageSize int, allowed []string) (filters.Params, error) {
	values := make(map[string]string, len(allowed))
	for _, k := range allowed {
		if v, ok := args[k]; ok && v != nil {
			values[k] = argString(v)
		}
	}
	return filters.Build(values, pageSize)
}

func argString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	default:
		return 0, false
	}
}

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Messages are passed through verbatim; non-VicErrors are reported as unknown.
func errorResult(err error) *mcp.CallToolResult {
	vErr := errors.As(err)
	errorObj := map[string]any{
		"kind":    string(vErr.Kind),
		"message": vErr.Message,
	}
	if vErr.Kind == errors.KindServer {
		errorObj["status"] = vErr.Status
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
