package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/vicdash/internal/config"
	"github.com/hpungsan/vicdash/internal/query"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewHandlers wires route handlers over q.
func NewHandlers(q *query.Queries, cfg *config.Config, version string, log *logrus.Entry) *Handlers {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.WithError(err).Fatal("failed to create template sub-FS")
	}

	return &Handlers{
		queries:  q,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version, log),
		sessions: NewSessions(cfg.SessionLimit),
		log:      log.WithField("component", "web"),
	}
}

// Routes registers every route on a new mux, wrapped with security headers.
func (h *Handlers) Routes() http.Handler {
	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		h.log.WithError(err).Fatal("failed to create static sub-FS")
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("GET /healthz", h.HandleHealthz)
	mux.HandleFunc("GET /ideas", h.HandleIdeas)
	mux.HandleFunc("GET /ideas/more", h.HandleIdeasMore)
	mux.HandleFunc("GET /ideas/{id}", h.HandleDetail)
	mux.HandleFunc("GET /companies", h.HandleCompanies)
	mux.HandleFunc("GET /companies/more", h.HandleCompaniesMore)
	mux.HandleFunc("GET /users", h.HandleUsers)
	mux.HandleFunc("GET /users/more", h.HandleUsersMore)
	mux.HandleFunc("GET /about", h.HandleAbout)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return securityHeaders(mux)
}

// NewServer creates and configures the HTTP server for the dashboard.
func NewServer(q *query.Queries, cfg *config.Config, version string, log *logrus.Entry) *http.Server {
	h := NewHandlers(q, cfg, version, log)
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *logrus.Entry) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Infof("VIC dashboard running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
