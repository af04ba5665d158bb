// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/runstats"
	"github.com/okian/solodex/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	EntityService
	AuthService
	StatsProvider
}

// EntityService is the generic CRUD contract behind /entities.
type EntityService interface {
	List(ctx context.Context, kind string, values url.Values) ([]entity.Record, error)
	Get(ctx context.Context, kind, id string) (entity.Record, error)
	Create(ctx context.Context, kind string, body entity.Record) (entity.Record, error)
	Update(ctx context.Context, kind, id string, body entity.Record) (entity.Record, error)
	Patch(ctx context.Context, kind, id string, body entity.Record) (entity.Record, error)
	Delete(ctx context.Context, kind, id string) error
}

// AuthService covers the current user, admin login and public settings.
type AuthService interface {
	Me(ctx context.Context) (entity.Record, error)
	Login(ctx context.Context, password string) (string, error)
	PublicSettings(appID string) map[string]any
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	Backend() string
	GetStats(ctx context.Context) (map[string]any, error)
	Overview(ctx context.Context) (runstats.Overview, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	entityHandler *EntityHandler
	authHandler   *AuthHandler

	origins  []string
	fallback http.Handler
	docs     func(chi.Router)
	log      logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithFallback sets the handler serving unmatched non-API GET requests.
func WithFallback(h http.Handler) Option {
	return func(s *Server) { s.fallback = h }
}

// WithDocs registers documentation routes on the root router.
func WithDocs(register func(chi.Router)) Option {
	return func(s *Server) { s.docs = register }
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		entityHandler: NewEntityHandler(deps),
		authHandler:   NewAuthHandler(deps),
		origins:       []string{"*"},
		log:           logger.NamedOrNop("http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the root handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.notFound)
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodPatch, http.MethodOptions,
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization", "X-App-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	if s.docs != nil {
		s.docs(r)
	}

	r.Route("/api", func(r chi.Router) {
		r.NotFound(apiNotFound)
		r.MethodNotAllowed(apiNotFound)
		s.registerAPI(r)
		r.Route("/apps/{appID}", s.registerAPI)
		r.Get("/apps/public/prod/public-settings/by-id/{appID}",
			MetricsMiddleware(s.authHandler.HandlePublicSettings, "public_settings"))
		r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
		r.Get("/stats/overview", MetricsMiddleware(s.statsHandler.HandleOverview, "overview"))
	})
	return r
}

func (s *Server) registerAPI(r chi.Router) {
	e := s.entityHandler
	r.Post("/auth/login", MetricsMiddleware(s.authHandler.HandleLogin, "login"))
	r.Get("/entities/User/me", MetricsMiddleware(s.authHandler.HandleMe, "me"))
	r.Route("/entities/{kind}", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(e.HandleList, "entities"))
		r.Post("/", MetricsMiddleware(e.HandleCreate, "entities"))
		r.Get("/{id}", MetricsMiddleware(e.HandleGet, "entity"))
		r.Put("/{id}", MetricsMiddleware(e.HandleUpdate, "entity"))
		r.Patch("/{id}", MetricsMiddleware(e.HandlePatch, "entity"))
		r.Delete("/{id}", MetricsMiddleware(e.HandleDelete, "entity"))
	})
}

// notFound serves the dashboard for non-API GETs.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		apiNotFound(w, r)
		return
	}
	if r.Method == http.MethodGet && s.fallback != nil {
		s.fallback.ServeHTTP(w, r)
		return
	}
	writeError(w, http.StatusNotFound, msgNotFound)
}

func apiNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, msgAPINotFound)
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Role    string `json:"role,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody reads a JSON object body. Numbers stay json.Number and an
// empty body is an empty object.
func decodeBody(r *http.Request) (entity.Record, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body entity.Record
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrBadRequest, err)
	}
	if body == nil {
		body = entity.Record{}
	}
	return body, nil
}
