// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects storage, services,
// handlers and middleware, and decides which URL patterns map to which
// handler functions. All dependencies are assembled in one place (the
// composition root) rather than scattered across the codebase.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB ──► repository.UserRepository ──► AuthService
//	sqlite.DB / memory.Store ──► mirror ──► workspace ──► Group/Planner/Stats/Study services
//	ai.Client ──► StudyService
//	services ──► handlers ──► chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/study-buddy/internal/ai"
	"github.com/sakif/study-buddy/internal/auth"
	"github.com/sakif/study-buddy/internal/chathub"
	"github.com/sakif/study-buddy/internal/config"
	"github.com/sakif/study-buddy/internal/handler"
	"github.com/sakif/study-buddy/internal/markdown"
	"github.com/sakif/study-buddy/internal/middleware"
	"github.com/sakif/study-buddy/internal/mirror"
	"github.com/sakif/study-buddy/internal/repository"
	"github.com/sakif/study-buddy/internal/repository/memory"
	sqliteRepo "github.com/sakif/study-buddy/internal/repository/sqlite"
	"github.com/sakif/study-buddy/internal/service"
	"github.com/sakif/study-buddy/internal/workspace"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection. When the server shuts down we
// close it to flush pending writes and release the file lock.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	ws     *workspace.Workspace
}

// OpenStorage opens the user database and the key-value store behind the
// persistence mirror. With cfg.Memory set, users live in an in-memory SQLite
// database and the mirror in a memory.Store.
func OpenStorage(cfg config.Config) (*sqliteRepo.DB, repository.KVStore, error) {
	if cfg.Memory {
		db, err := sqliteRepo.New(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		return db, memory.New(), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return db, db, nil
}

// New creates a Server backed by the configured storage and AI endpoint.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, kv, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AI.APIKey == "" {
		logger.Warn("ai.api_key not set; guide, quiz and chat requests will fail")
	}
	collab := ai.New(ai.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
	}, logger)

	s, err := build(cfg, db, kv, collab, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// build wires a Server from already-open dependencies.
func build(cfg config.Config, db *sqliteRepo.DB, kv repository.KVStore, collab ai.Collaborator, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	hub := chathub.New()
	ws := workspace.Open(context.Background(), mirror.New(kv, logger), hub, logger)

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		ws:     ws,
	}
	s.setupRoutes(tokens, hub, collab)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (our logger prints it)
// 2. RealIP: extracts the real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: catches panics and returns 500 instead of crashing
//
// Everything under /api requires a session cookie. The routes that call the
// AI model are additionally rate limited per user.
func (s *Server) setupRoutes(tokens *auth.TokenService, hub *chathub.Hub, collab ai.Collaborator) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	now := time.Now

	statsService := service.NewStatsService(s.ws)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.ws, s.logger)
	groupService := service.NewGroupService(s.ws, hub, now, s.logger)
	plannerService := service.NewPlannerService(s.ws)
	studyService := service.NewStudyService(collab, s.ws, markdown.New(), now, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	}

	authHandler := handler.NewAuthHandler(authService, statsService, github, tokens, s.logger)
	statsHandler := handler.NewStatsHandler(statsService, s.logger)
	groupHandler := handler.NewGroupHandler(groupService, originChecker(s.config.AllowedOrigins), s.logger)
	plannerHandler := handler.NewPlannerHandler(plannerService)
	studyHandler := handler.NewStudyHandler(studyService, s.logger)

	limiter := middleware.NewRateLimiter(s.config.AI.RatePerMinute, s.config.AI.Burst)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", authHandler.HandleMe)
		r.Get("/achievements", statsHandler.HandleAchievements)
		r.Get("/leaderboard", statsHandler.HandleLeaderboard)
		r.Get("/pomodoro", statsHandler.HandlePomodoro)
		r.Post("/pomodoro/complete", statsHandler.HandleCompletePomodoro)

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", groupHandler.HandleList)
			r.Post("/", groupHandler.HandleCreate)
			r.Get("/{id}", groupHandler.HandleGet)
			r.Post("/{id}/members", groupHandler.HandleAddMember)
			r.Delete("/{id}/members/{email}", groupHandler.HandleRemoveMember)
			r.Get("/{id}/messages", groupHandler.HandleMessages)
			r.Post("/{id}/messages", groupHandler.HandleSendMessage)
			r.Get("/{id}/ws", groupHandler.HandleLive)
			r.Get("/{id}/notes", groupHandler.HandleNotes)
			r.Post("/{id}/notes", groupHandler.HandleShareNote)
			r.Delete("/{id}/notes/{noteId}", groupHandler.HandleDeleteNote)
		})

		r.Get("/goals", plannerHandler.HandleView)
		r.Post("/goals", plannerHandler.HandleCreateGoal)
		r.Delete("/goals/{id}", plannerHandler.HandleDeleteGoal)
		r.Post("/goals/{id}/tasks", plannerHandler.HandleCreateTask)
		r.Post("/tasks/{id}/toggle", plannerHandler.HandleToggleTask)
		r.Delete("/tasks/{id}", plannerHandler.HandleDeleteTask)

		r.Post("/study/sessions", studyHandler.HandleStart)
		r.Get("/study/sessions/{id}", studyHandler.HandleGet)
		r.Delete("/study/sessions/{id}", studyHandler.HandleEnd)
		r.Get("/assistant/chat", studyHandler.HandleAssistantHistory)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit(userKey))

			r.Post("/study/sessions/{id}/guide", studyHandler.HandleGuide)
			r.Post("/study/sessions/{id}/quiz", studyHandler.HandleQuiz)
			r.Post("/study/sessions/{id}/answers", studyHandler.HandleAnswers)
			r.Post("/study/sessions/{id}/chat", studyHandler.HandleChat)
			r.Post("/assistant/chat", studyHandler.HandleAssistantChat)
		})
	})
}

// userKey buckets rate limits by signed-in user.
func userKey(r *http.Request) string {
	userID, _ := auth.UserIDFromContext(r.Context())
	return userID
}

// originChecker returns nil (same-origin only) when no origins are listed.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

// Start starts the HTTP server and the chat poller, then blocks until
// SIGINT/SIGTERM or a server error.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Stop the chat poller
// 4. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	pollCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go s.ws.RunChatPoller(pollCtx, s.config.ChatPollInterval)

	// AI calls routinely take longer than a typical write timeout. Streaming
	// responses clear their own deadline.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("memory", s.config.Memory),
			slog.String("database", s.config.DBPath),
			slog.Bool("github_login", s.config.GitHub.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
