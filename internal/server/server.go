// Package server is the composition root: it opens the store, builds the
// services and handlers, and mounts them on a chi router.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → repository.Store (sqlite | postgres)
//	  → AuthService, OnboardingService, routing.Router
//	  → AuthHandler, OnboardingHandler, PageHandler
//	  → chi routes
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/partnerz/internal/auth"
	"github.com/sakif/partnerz/internal/config"
	"github.com/sakif/partnerz/internal/handler"
	"github.com/sakif/partnerz/internal/middleware"
	"github.com/sakif/partnerz/internal/repository"
	"github.com/sakif/partnerz/internal/repository/postgres"
	"github.com/sakif/partnerz/internal/repository/sqlite"
	"github.com/sakif/partnerz/internal/routing"
	"github.com/sakif/partnerz/internal/scratchpad"
	"github.com/sakif/partnerz/internal/service"
)

// OpenStore opens the configured backend. SQLite migrates itself on open;
// PostgreSQL expects `partnerz migrate` to have run.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("server: opening postgres: %w", err)
		}
		return db, nil
	default:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory: %w", err)
			}
		}
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite: %w", err)
		}
		return db, nil
	}
}

// Services bundles what both the HTTP server and the CLI need.
type Services struct {
	Store      repository.Store
	Auth       *service.AuthService
	Onboarding *service.OnboardingService
	Router     *routing.Router
	Tokens     *auth.TokenService
}

// NewServices builds the service layer over store. hints is the router's
// default scratchpad (the CLI passes one; the HTTP server swaps in a
// per-request store).
func NewServices(ctx context.Context, cfg *config.Config, store repository.Store, hints scratchpad.Store, logger *slog.Logger) (*Services, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using an ephemeral secret; sessions will not survive a restart")
		secret = uuid.NewString() + uuid.NewString()
	}
	tokens, err := auth.NewTokenService(secret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	var google service.OAuthProvider
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	} else {
		logger.Info("Google sign-in disabled (GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET not set)")
	}

	return &Services{
		Store:      store,
		Auth:       service.NewAuthService(store.Accounts(), tokens, auth.NewPasswordService(), google, logger),
		Onboarding: service.NewOnboardingService(store, store, store, logger),
		Router:     routing.New(store, hints, logger),
		Tokens:     tokens,
	}, nil
}

// Server is the HTTP server. It owns the store and the Redis client and
// closes both on shutdown.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	services *Services
	redis    *redis.Client
}

// New builds the server over an open store.
func New(ctx context.Context, cfg *config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	services, err := NewServices(ctx, cfg, store, nil, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		services: services,
	}

	hints, err := s.hintFactory(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.setupRoutes(hints); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// hintFactory picks where intended-role hints live: Redis when REDIS_ADDR
// is set, otherwise the browser's cookies.
func (s *Server) hintFactory(ctx context.Context) (scratchpad.Factory, error) {
	opts := scratchpad.CookieOptions{Secure: s.config.CookieSecure, MaxAge: s.config.HintTTL}
	if s.config.RedisAddr == "" {
		return scratchpad.CookieFactory(opts), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.config.RedisAddr,
		Password: s.config.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("server: connecting to redis at %s: %w", s.config.RedisAddr, err)
	}
	s.redis = client
	s.logger.Info("intended-role hints stored in redis", slog.String("addr", s.config.RedisAddr))
	return scratchpad.RedisFactory(client, scratchpad.DefaultRedisPrefix, s.config.HintTTL, opts), nil
}

// setupRoutes mounts every route.
//
// ROUTES:
//
//	GET  /                         app shell (HTML)
//	GET  /healthz                  liveness
//	POST /auth/signup              create account, route
//	POST /auth/login               sign in, route
//	GET  /auth/google/login        store role hint, redirect to Google
//	GET  /auth/google/callback     finish OAuth, route, redirect to /
//	POST /auth/refresh             renew token, route
//	POST /auth/logout              clear token
//	GET  /api/route                routing state for the cookie session
//	GET  /api/me                   [auth] profile
//	GET  /api/programs             [auth] SaaS programs
//	POST /api/onboarding/saas      [auth] finish SaaS onboarding
//	POST /api/onboarding/affiliate [auth] finish affiliate onboarding
//	PUT  /api/profile/metadata     [auth] replace metadata
//
// MIDDLEWARE ORDER: RequestID → RealIP → Logger → Recoverer.
func (s *Server) setupRoutes(hints scratchpad.Factory) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	authHandler := handler.NewAuthHandler(
		s.services.Auth,
		s.services.Router,
		hints,
		handler.CookieConfig{Secure: s.config.CookieSecure},
		s.logger,
	)
	onboardingHandler := handler.NewOnboardingHandler(s.services.Onboarding, s.logger)
	pageHandler, err := handler.NewPageHandler(authHandler, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	s.router.Get("/", pageHandler.HandleApp)
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/google/login", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/route", authHandler.HandleRoute)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.services.Tokens))
			r.Get("/me", onboardingHandler.HandleMe)
			r.Get("/programs", onboardingHandler.HandlePrograms)
			r.Post("/onboarding/saas", onboardingHandler.HandleSaaS)
			r.Post("/onboarding/affiliate", onboardingHandler.HandleAffiliate)
			r.Put("/profile/metadata", onboardingHandler.HandleMetadata)
		})
	})

	return nil
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the store and Redis client.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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

func (s *Server) close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis", slog.String("error", err.Error()))
		}
	}
	if err := s.services.Store.Close(); err != nil {
		s.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}
