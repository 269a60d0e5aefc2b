// Package web provides the HTTP server and JSON API for the certificate
// registry.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pista1997/CertReg/internal/auth"
	"github.com/pista1997/CertReg/internal/certificate"
	"github.com/pista1997/CertReg/internal/config"
	"github.com/pista1997/CertReg/internal/importer"
	"github.com/pista1997/CertReg/internal/notify"
	"github.com/pista1997/CertReg/internal/store"
)

// Store is the persistence surface the handlers need.
type Store interface {
	ListCertificates(ctx context.Context) ([]certificate.Certificate, error)
	CreateCertificate(ctx context.Context, p store.CertificateParams) (certificate.Certificate, error)
	UpdateCertificate(ctx context.Context, id int64, p store.CertificateParams) (certificate.Certificate, error)
	DeleteCertificate(ctx context.Context, id int64) error
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (store.User, error)
}

// ImportRunner runs one file import.
type ImportRunner interface {
	Import(ctx context.Context, data []byte, mimeType, fileName string, profile importer.Profile) (*importer.Summary, error)
}

// SweepRunner runs one expiry notification sweep.
type SweepRunner interface {
	Run(ctx context.Context, now time.Time) (*notify.Report, error)
}

// Server is the HTTP server for the registry API.
type Server struct {
	store    Store
	importer ImportRunner
	sweeper  SweepRunner
	sessions *auth.Sessions
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the handlers and middleware.
func NewServer(st Store, imp ImportRunner, sw SweepRunner, sessions *auth.Sessions, cfg *config.Config) *Server {
	s := &Server{
		store:    st,
		importer: imp,
		sweeper:  sw,
		sessions: sessions,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/register", s.handleRegister)

		// Reads are public; mutations require a session.
		r.Get("/certificates", s.handleListCertificates)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/certificates", s.handleCreateCertificate)
			r.Put("/certificates/{id}", s.handleUpdateCertificate)
			r.Delete("/certificates/{id}", s.handleDeleteCertificate)
			r.Post("/certificates/import", s.handleImport)
			r.Get("/certificates/check-expiry", s.handleCheckExpiry)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders hardens every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
