package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/vicdash/internal/config"
	"github.com/hpungsan/vicdash/internal/query"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"ideas_list": {
		def:     ideasListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIdeasList },
	},
	"idea_fetch": {
		def:     ideaFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIdeaFetch },
	},
	"idea_performance": {
		def:     ideaPerformanceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIdeaPerformance },
	},
	"companies_list": {
		def:     companiesListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompaniesList },
	},
	"users_list": {
		def:     usersListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUsersList },
	},
	"health": {
		def:     healthToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHealth },
	},
}

// AllToolNames returns every valid tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the dashboard tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(q *query.Queries, cfg *config.Config, version string, log *logrus.Entry) *server.MCPServer {
	s := server.NewMCPServer(
		"vicdash",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(q, cfg, log)

	for _, name := range ValidateDisabledTools(cfg.DisabledTools) {
		h.log.WithField("tool", name).Warn("unknown tool in disabled_tools")
	}

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(q *query.Queries, cfg *config.Config, version string, log *logrus.Entry) error {
	s := NewServer(q, cfg, version, log)
	return server.ServeStdio(s)
}
