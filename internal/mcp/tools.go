package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/vicdash/internal/vic"
)

// maxPages bounds how many pages ideas_list walks in one call.
const maxPages = 10

func periodNames() []string {
	periods := vic.PerformancePeriods()
	out := make([]string, 0, len(periods))
	for _, h := range periods {
		out = append(out, h.Period)
	}
	return out
}

var ideasListToolDef = mcp.NewTool("ideas_list",
	mcp.WithDescription("List investment ideas from ValueInvestorsClub, newest first unless sorted otherwise. "+
		"Filters combine with AND. Pass pages > 1 to accumulate several pages; duplicates across pages are dropped."),
	mcp.WithNumber("skip", mcp.Description("Offset of the first page"), mcp.Min(0)),
	mcp.WithNumber("limit", mcp.Description("Page size (default from config)"), mcp.Min(1), mcp.Max(1000)),
	mcp.WithNumber("pages", mcp.Description("Number of pages to accumulate (default 1)"), mcp.Min(1), mcp.Max(maxPages)),
	mcp.WithString("company_id", mcp.Description("Company ticker")),
	mcp.WithString("user_id", mcp.Description("Author reference")),
	mcp.WithBoolean("is_short", mcp.Description("true for shorts, false for longs")),
	mcp.WithBoolean("is_contest_winner", mcp.Description("Only contest winners (true) or non-winners (false)")),
	mcp.WithString("start_date", mcp.Description("Earliest publication date, YYYY-MM-DD")),
	mcp.WithString("end_date", mcp.Description("Latest publication date, YYYY-MM-DD")),
	mcp.WithString("search", mcp.Description("Free-text search")),
	mcp.WithBoolean("has_performance", mcp.Description("Only ideas with performance data")),
	mcp.WithNumber("min_performance", mcp.Description("Minimum stored return in percent")),
	mcp.WithNumber("max_performance", mcp.Description("Maximum stored return in percent")),
	mcp.WithString("performance_period", mcp.Description("Horizon the performance filters and sort apply to"), mcp.Enum(periodNames()...)),
	mcp.WithString("sort_by", mcp.Description("Sort key"), mcp.Enum("date", "performance")),
	mcp.WithString("sort_order", mcp.Description("Sort direction"), mcp.Enum("asc", "desc")),
)

var ideaFetchToolDef = mcp.NewTool("idea_fetch",
	mcp.WithDescription("Fetch one idea with its company, author, description, catalysts and performance. "+
		"Performance is reported from the investor's side: short returns are sign-inverted."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Idea id")),
)

var ideaPerformanceToolDef = mcp.NewTool("idea_performance",
	mcp.WithDescription("Performance of one idea per horizon, sign-adjusted for shorts, with the headline figure."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Idea id")),
)

var companiesListToolDef = mcp.NewTool("companies_list",
	mcp.WithDescription("List companies, optionally filtered by a name or ticker search."),
	mcp.WithString("search", mcp.Description("Name or ticker substring")),
	mcp.WithNumber("skip", mcp.Description("Offset"), mcp.Min(0)),
	mcp.WithNumber("limit", mcp.Description("Page size"), mcp.Min(1), mcp.Max(1000)),
)

var usersListToolDef = mcp.NewTool("users_list",
	mcp.WithDescription("List VIC members, optionally filtered by a username search."),
	mcp.WithString("search", mcp.Description("Username substring")),
	mcp.WithNumber("skip", mcp.Description("Offset"), mcp.Min(0)),
	mcp.WithNumber("limit", mcp.Description("Page size"), mcp.Min(1), mcp.Max(1000)),
)

var healthToolDef = mcp.NewTool("health",
	mcp.WithDescription("Check that the VIC backend is reachable."),
)
