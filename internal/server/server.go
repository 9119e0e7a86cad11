package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"tracker-backend/internal/config"
	"tracker-backend/internal/db"
	"tracker-backend/internal/intent"
	"tracker-backend/internal/quickupdate"
	"tracker-backend/internal/store"
	"tracker-backend/internal/types"
)

// sessionBackend is a quick-update session store that owns a sweeper.
type sessionBackend interface {
	quickupdate.SessionStore
	Close() error
}

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	logger   *zap.Logger
	database *db.DB
	projects *store.ProjectStore
	sessions sessionBackend
	engine   *quickupdate.Coordinator
}

func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	database, err := db.New(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("database connection established", zap.String("driver", database.Driver))

	if err := database.Migrate(context.Background()); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	projects := store.NewProjectStore(database)

	var sessions sessionBackend
	switch cfg.SessionBackend {
	case "db", "database":
		sessions = store.NewDatabaseSessionStore(database, cfg.SessionTTL, cfg.SessionSweepInterval, logger)
	case "memory", "":
		sessions = store.NewMemorySessionStore(cfg.SessionTTL, cfg.SessionSweepInterval)
	default:
		database.Close()
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	extractor, err := newExtractor(cfg, projects, logger)
	if err != nil {
		sessions.Close()
		database.Close()
		return nil, err
	}
	logger.Info("quick-update engine ready",
		zap.String("extractor", cfg.Extractor),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Duration("session_ttl", cfg.SessionTTL))

	dispatcher := quickupdate.NewDispatcher(projects, logger)
	engine := quickupdate.NewCoordinator(extractor, intent.NewClassifier(intent.DefaultRules), dispatcher, sessions, logger)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", SessionHeader},
		ExposedHeaders:   []string{SessionHeader, "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		cfg:      cfg,
		logger:   logger,
		database: database,
		projects: projects,
		sessions: sessions,
		engine:   engine,
	}
	s.routes()
	return s, nil
}

// newExtractor builds the configured extraction strategy. Every strategy is
// wrapped so captured project names snap onto the project catalog.
func newExtractor(cfg config.Config, catalog intent.ProjectCatalog, logger *zap.Logger) (intent.Extractor, error) {
	regex := intent.NewRegexExtractor(logger)
	if !cfg.UsesLLM() {
		if cfg.Extractor != "" && cfg.Extractor != "regex" {
			return nil, fmt.Errorf("unknown extractor %q", cfg.Extractor)
		}
		return intent.CatalogExtractor{Next: regex, Catalog: catalog, Logger: logger}, nil
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the %s extractor", cfg.Extractor)
	}
	spec, err := intent.LoadPromptSpec(cfg.ExtractorPromptFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load extractor prompt: %w", err)
	}
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	llm := intent.NewLLMExtractor(spec, openai.NewClientWithConfig(clientCfg), cfg.Model, cfg.LLMTimeout, logger)

	var next intent.Extractor = llm
	if cfg.Extractor == "cascade" {
		next = intent.Cascade{regex, llm}
	}
	return intent.CatalogExtractor{Next: next, Catalog: catalog, Logger: logger}, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Post("/api/quick-update", s.handleQuickUpdate)
	s.router.Get("/api/quick-update/sessions/{id}", s.handleGetSession)
	s.router.Delete("/api/quick-update/sessions/{id}", s.handleResetSession)

	s.router.Route("/api/projects", func(r chi.Router) {
		r.Get("/", s.handleListProjects)
		r.Post("/", s.handleCreateProject)
		r.Get("/{id}/milestones", s.handleListMilestones)
		r.Post("/{id}/milestones", s.handleCreateMilestone)
		r.Get("/{id}/issues", s.handleListIssues)
	})
}

func (s *Server) Router() http.Handler { return s.router }

// Engine exposes the quick-update coordinator for non-HTTP callers.
func (s *Server) Engine() *quickupdate.Coordinator { return s.engine }

// Projects exposes the project store for non-HTTP callers.
func (s *Server) Projects() *store.ProjectStore { return s.projects }

// Close stops the session sweeper and closes the database.
func (s *Server) Close() error {
	if err := s.sessions.Close(); err != nil {
		s.logger.Warn("failed to close session store", zap.Error(err))
	}
	return s.database.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.database.HealthCheck(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}
