package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/vicdash/internal/accum"
	"github.com/hpungsan/vicdash/internal/api"
	"github.com/hpungsan/vicdash/internal/config"
	"github.com/hpungsan/vicdash/internal/errors"
	"github.com/hpungsan/vicdash/internal/filters"
	"github.com/hpungsan/vicdash/internal/logging"
	"github.com/hpungsan/vicdash/internal/mcp"
	"github.com/hpungsan/vicdash/internal/output"
	"github.com/hpungsan/vicdash/internal/query"
	"github.com/hpungsan/vicdash/internal/tui"
	"github.com/hpungsan/vicdash/internal/vic"
	"github.com/hpungsan/vicdash/internal/web"
)

// maxAllPages caps ideas --all.
const maxAllPages = 100

// backendFactory builds the data source once configuration is known.
type backendFactory func(cfg *config.Config, log *logrus.Entry) (query.Backend, error)

// apiBackend is the production backend: the HTTP client.
func apiBackend(cfg *config.Config, log *logrus.Entry) (query.Backend, error) {
	return api.New(api.Options{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimitRPS,
		Burst:     cfg.RateLimitBurst,
		Logger:    log,
	})
}

// env is filled by the app's Before hook and shared by every command.
type env struct {
	cfg     *config.Config
	log     *logrus.Entry
	queries *query.Queries
	printer *output.Printer
}

// newCLIApp creates the CLI application with all commands. Results go to
// out, logs to errOut.
func newCLIApp(newBackend backendFactory, out, errOut io.Writer) *cli.App {
	e := &env{}
	app := &cli.App{
		Name:    "vicdash",
		Usage:   "Browse ValueInvestorsClub investment ideas",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Usage: "Directory holding config.yaml (default ~/.vicdash)"},
			&cli.StringFlag{Name: "api-url", Usage: "Backend origin, e.g. http://localhost:8000"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "table", Usage: "Output format: table|json"},
			&cli.StringFlag{Name: "color", Value: "auto", Usage: "Colors: auto|always|never"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level (overrides config)"},
		},
		Before: func(c *cli.Context) error {
			return e.setup(c, newBackend, out, errOut)
		},
		Commands: []*cli.Command{
			serveCmd(e),
			ideasCmd(e),
			ideaCmd(e),
			companiesCmd(e),
			usersCmd(e),
			healthCmd(e),
			browseCmd(e),
			mcpCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func (e *env) setup(c *cli.Context, newBackend backendFactory, out, errOut io.Writer) error {
	dir := c.String("config-dir")
	if dir == "" {
		// a missing home directory only means no global config
		dir, _ = config.DefaultDir()
	}
	cwd, _ := os.Getwd()

	cfg, err := config.Load(dir, cwd)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}
	if c.IsSet("api-url") {
		cfg.APIBaseURL = c.String("api-url")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log, err := logging.Setup(cfg.LogLevel, cfg.LogFormat, errOut)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	format, err := output.ParseFormat(c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	mode, err := output.ParseColorMode(c.String("color"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	backend, err := newBackend(cfg, log)
	if err != nil {
		return outputError(err)
	}

	e.cfg = cfg
	e.log = log
	e.printer = output.NewPrinter(out, format, output.ResolveColors(mode))
	e.queries = query.New(backend, query.Options{
		Size:       cfg.CacheSize,
		TTL:        cfg.CacheTTL,
		RetryDelay: cfg.RetryDelay,
		Logger:     log,
	})
	return nil
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("bind") {
				e.cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				e.cfg.Port = c.Int("port")
			}
			if err := e.cfg.Validate(); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			if _, err := e.queries.Health(c.Context); err != nil {
				e.log.WithField("api", e.cfg.APIBaseURL).Warnf("backend not reachable: %s", errors.As(err).Message)
			}

			srv := web.NewServer(e.queries, e.cfg, Version, e.log)
			return web.Run(srv, e.log)
		},
	}
}

// ideasCmd creates the ideas command. Every list filter is a flag named
// after its query key with dashes, e.g. --is-short.
func ideasCmd(e *env) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filters as a query string, e.g. is_short=true&search=bank"},
		&cli.IntFlag{Name: "pages", Value: 1, Usage: "Number of pages to load"},
		&cli.BoolFlag{Name: "all", Usage: fmt.Sprintf("Load pages until no more ideas (at most %d)", maxAllPages)},
	}
	for _, k := range filters.Keys() {
		flags = append(flags, &cli.StringFlag{Name: flagName(k), Usage: "Filter " + k})
	}

	return &cli.Command{
		Name:  "ideas",
		Usage: "List investment ideas",
		Flags: flags,
		Action: func(c *cli.Context) error {
			values, err := filterValues(c, c.String("query"), filters.Keys())
			if err != nil {
				return outputError(err)
			}
			p, err := filters.Build(values, e.cfg.PageSize)
			if err != nil {
				return outputError(err)
			}

			pages := c.Int("pages")
			if c.Bool("all") {
				pages = maxAllPages
			}
			if pages < 1 {
				return outputError(errors.NewInvalidRequest("pages must be at least 1"))
			}

			tr := accum.NewTracker(vic.IdeaID)
			fetch := e.queries.IdeasFetcher()
			if _, err := tr.Load(c.Context, p, fetch); err != nil {
				return outputError(err)
			}
			for i := 1; i < pages; i++ {
				if _, ok := tr.Next(); !ok {
					break
				}
				if _, err := tr.LoadMore(c.Context, fetch); err != nil {
					return outputError(err)
				}
			}

			state := tr.State()
			return e.printer.Ideas(output.IdeaList{
				Items:     state.Items,
				Filters:   p.Serialize(),
				Exhausted: state.Exhausted(),
			})
		},
	}
}

// ideaCmd creates the idea command.
func ideaCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "idea",
		Usage:     "Show one idea with its thesis, catalysts and returns",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := strings.TrimSpace(c.Args().First())
			if id == "" {
				return outputError(errors.NewInvalidRequest("idea id is required"))
			}
			d, err := e.queries.Detail(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return e.printer.Idea(d)
		},
	}
}

var directoryKeys = []string{filters.KeySearch, filters.KeySkip, filters.KeyLimit}

func directoryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Name search"},
		&cli.StringFlag{Name: "skip", Usage: "Offset"},
		&cli.StringFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Page size (default from config)"},
	}
}

// companiesCmd creates the companies command.
func companiesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "companies",
		Usage: "List companies",
		Flags: directoryFlags(),
		Action: func(c *cli.Context) error {
			p, err := directoryParams(c, e.cfg.DirectoryPageSize)
			if err != nil {
				return outputError(err)
			}
			items, err := e.queries.Companies(c.Context, p).Result()
			if err != nil {
				return outputError(err)
			}
			return e.printer.Companies(items)
		},
	}
}

// usersCmd creates the users command.
func usersCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "List members",
		Flags: directoryFlags(),
		Action: func(c *cli.Context) error {
			p, err := directoryParams(c, e.cfg.DirectoryPageSize)
			if err != nil {
				return outputError(err)
			}
			items, err := e.queries.Users(c.Context, p).Result()
			if err != nil {
				return outputError(err)
			}
			return e.printer.Users(items)
		},
	}
}

// healthCmd creates the health command.
func healthCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the backend",
		Action: func(c *cli.Context) error {
			status, err := e.queries.Health(c.Context)
			if err != nil {
				return outputError(err)
			}
			return e.printer.Health(status.Status, e.cfg.APIBaseURL)
		},
	}
}

// browseCmd creates the browse command.
func browseCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "browse",
		Usage:     "Browse ideas interactively in the terminal",
		ArgsUsage: "[query]",
		Action: func(c *cli.Context) error {
			// log lines would tear the full-screen view
			e.log.Logger.SetOutput(io.Discard)
			logrus.SetOutput(io.Discard)
			return tui.Run(e.queries, e.cfg.PageSize, c.Args().First())
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the ideas tools over MCP on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(e.queries, e.cfg, Version, e.log)
		},
	}
}

// filterValues collects the allowed keys from raw (a query string) and then
// from flags, flags winning.
func filterValues(c *cli.Context, raw string, allowed []string) (map[string]string, error) {
	values := make(map[string]string)
	if raw = strings.TrimPrefix(strings.TrimSpace(raw), "?"); raw != "" {
		q, err := url.ParseQuery(raw)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid query: %v", err))
		}
		for _, k := range allowed {
			if v := q.Get(k); v != "" {
				values[k] = v
			}
		}
	}
	for _, k := range allowed {
		if name := flagName(k); c.IsSet(name) {
			values[k] = c.String(name)
		}
	}
	return values, nil
}

func directoryParams(c *cli.Context, pageSize int) (filters.Params, error) {
	values, err := filterValues(c, "", directoryKeys)
	if err != nil {
		return filters.Params{}, err
	}
	return filters.Build(values, pageSize)
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(output.ErrorLine(err), 1)
}
