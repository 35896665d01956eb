package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"combos/internal/amqp"
	applog "combos/internal/log"
	"combos/internal/middleware/ratelimit"
	"combos/internal/middleware/security"
	"combos/internal/services"
	"combos/internal/sources"
	appweb "combos/web"
)

// JobPublisher queues searches for the worker.
type JobPublisher interface {
	PublishSearchRequest(ctx context.Context, msg *amqp.SearchRequestMessage) error
}

// healthChecker is implemented by dependencies that can report readiness.
type healthChecker interface {
	Healthy() bool
}

// Deps are the collaborators of the HTTP surface. Jobs, Sheet and Limiter
// are optional; the routes that need a missing one answer 503.
type Deps struct {
	Search  *services.SearchService
	Jobs    JobPublisher
	Sheet   sources.LinesReader
	Limiter *ratelimit.Limiter
	Logger  *applog.Logger
}

type Server struct {
	http.Server
	router    *chi.Mux
	templates *template.Template
	search    *services.SearchService
	jobs      JobPublisher
	sheet     sources.LinesReader
	limiter   *ratelimit.Limiter
	logger    *applog.Logger
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	search := deps.Search
	if search == nil {
		search = services.NewSearchService(services.DefaultOptions(), logger)
	}

	s := &Server{
		router:  chi.NewRouter(),
		search:  search,
		jobs:    deps.Jobs,
		sheet:   deps.Sheet,
		limiter: deps.Limiter,
		logger:  logger.WithComponent(applog.ComponentHTTP),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(applog.Middleware(s.logger))
	s.router.Use(applog.RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(security.Headers(security.DefaultHeadersConfig()))
}

func (s *Server) setupRoutes() {
	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		s.router.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", handleHealth)
	s.router.Get("/readyz", s.handleReady)

	s.router.Group(func(r chi.Router) {
		r.Use(limitBody)
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(ratelimit.ClientKey, s.rateLimited))
		}

		// UI partials
		r.Post("/ui/entries", s.handleUIEntries)
		r.Post("/ui/combinations", s.handleUICombinations)

		r.Route("/api", func(r chi.Router) {
			r.Post("/entries", s.handleAPIEntries)
			r.Post("/combinations", s.handleAPICombinations)
			r.Post("/combinations/export", s.handleAPIExport)
			r.Post("/sheets/combinations", s.handleSheetCombinations)
			r.Post("/jobs", s.handleCreateJob)
		})
	})
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
	return s.Server.Shutdown(ctx)
}
