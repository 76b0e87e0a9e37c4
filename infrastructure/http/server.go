package http

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dockout/frontend/gross"
	"dockout/frontend/loading"
	"dockout/frontend/picking"
	"dockout/frontend/transfer"
	runcontext "dockout/frontend/shared/context"
	"dockout/infrastructure/audit"
	"dockout/infrastructure/cache"
	"dockout/infrastructure/config"
	"dockout/infrastructure/session"
	"dockout/infrastructure/sqlite"
)

//go:embed assets/*
var assets embed.FS

var ShutdownTimeout = 2 * time.Second

// Services are the stage orchestrators the routes dispatch to.
type Services struct {
	Tokens   loading.TokenFetcher
	Transfer *transfer.Orchestrator
	Picking  *picking.Orchestrator
	Gross    *gross.Service
	Defaults config.Defaults
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	DB       *sqlite.DB
	Runs     *cache.WorkflowRunCache
	Audit    *audit.Service
	Services Services
}

// NewServer creates a new http server.
func NewServer(addr string, db *sqlite.DB, runs *cache.WorkflowRunCache, auditSvc *audit.Service, services Services) *Server {
	s := &Server{
		Addr:     addr,
		router:   chi.NewRouter(),
		DB:       db,
		Runs:     runs,
		Audit:    auditSvc,
		Services: services,
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Compress(5))
	s.router.Use(CSRFMiddleware)

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Serve assets from embedded FS.
	var assetsFS fs.FS = assets
	if sub, err := fs.Sub(assets, "assets"); err == nil {
		assetsFS = sub
	} else {
		slog.Error("assets subfs init failed; serving fallback fs", slog.Any("err", err))
	}
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	s.router.Group(func(r chi.Router) {
		r.Use(s.RunMiddleware)

		// The root always lands on the stage the run is in.
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			run, _ := runcontext.GetRunFromContext(r.Context())
			http.Redirect(w, r, "/"+string(run.Stage()), http.StatusSeeOther)
		})

		s.RegisterStageRoutes(r)
		s.RegisterExportRoutes(r)
	})

	s.server.Handler = s.router
	return s
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RunMiddleware attaches the caller's workflow run to the request context,
// starting a new run when the cookie is missing or names an evicted run.
func (s *Server) RunMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runID := ""
		if c, err := r.Cookie(session.CookieName); err == nil {
			runID = c.Value
		}

		run, created := s.Runs.FindOrCreate(runID)
		if created {
			if runID != "" {
				slog.Warn("workflow run not found; starting new run", slog.String("run_id", runID), slog.String("path", r.URL.Path))
			}
			http.SetCookie(w, session.RunCookie(run.ID(), int(session.RunTTL.Seconds())))
		}

		ctx := runcontext.NewContextWithRun(r.Context(), run)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go s.server.Serve(s.ln)
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}
