package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gcquality/internal/config"
	apierrors "gcquality/internal/errors"
	"gcquality/internal/infrastructure"
	custommw "gcquality/internal/middleware"
	"gcquality/internal/services"
	"gcquality/internal/store"
	handlers "gcquality/internal/transport/http"
	"gcquality/pkg/contracts"
)

// defaultShutdownTimeout applies when the config leaves it unset
const defaultShutdownTimeout = 5 * time.Second

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Paths           *config.Paths
	Router          *chi.Mux
	Server          *http.Server
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
	Store           *store.Store
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
}

// Option customises NewApplication
type Option func(*Application)

// WithPaths overrides the resolved paths, used when the executable
// directory is not the installation root
func WithPaths(p *config.Paths) Option {
	return func(a *Application) { a.Paths = p }
}

// WithProviders injects OpenTelemetry providers instead of building them
// from the telemetry config
func WithProviders(p *infrastructure.OTelProviders) Option {
	return func(a *Application) { a.OTelProviders = p }
}

// NewApplication wires the store, services, router and HTTP server
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	if cfg == nil {
		return nil, apierrors.NewConfigError("configuration is required", nil)
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	a := &Application{Config: cfg, Logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	if a.Paths == nil {
		paths, err := config.GetPaths(cfg.Paths)
		if err != nil {
			return nil, fmt.Errorf("failed to get paths: %w", err)
		}
		a.Paths = paths
	}
	if err := a.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	a.Paths.LogPathResolution(logger)

	if a.OTelProviders == nil {
		providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		a.OTelProviders = providers
	}

	if err := a.initializeServices(ctx); err != nil {
		a.closeStore(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := a.setupRouter(); err != nil {
		a.closeStore(ctx)
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()

	return a, nil
}

// initializeServices opens the optional store and builds the services. A
// disabled store is passed as a nil interface.
func (a *Application) initializeServices(ctx context.Context) error {
	var (
		runStore services.RunStore
		pinger   services.Pinger
	)
	if a.Config.Store.Enabled {
		dsn := ResolveDSN(a.Config.Store.DSN, a.Paths.BaseDir)
		s, err := store.Open(ctx, dsn)
		if err != nil {
			return apierrors.NewStorageError("failed to open results store", err).WithContext("dsn", dsn)
		}
		a.Store = s
		runStore, pinger = s, s
		a.Logger.InfoContext(ctx, "Results store opened", slog.String("dsn", dsn))
	}

	engine, err := a.Config.Chemistry.EngineConfig()
	if err != nil {
		return apierrors.NewConfigError("invalid chemistry configuration", err)
	}

	analysis, err := services.NewAnalysisService(services.AnalysisOptions{
		Engine:         engine,
		Store:          runStore,
		Providers:      a.OTelProviders,
		Logger:         a.Logger,
		Concurrency:    a.Config.Chemistry.Concurrency,
		StandardPrefix: a.Config.Chemistry.StandardPrefix,
	})
	if err != nil {
		return err
	}
	a.AnalysisService = analysis
	a.HealthService = services.NewHealthService(contracts.Version, pinger, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes.
// Ordering: RequestID → RealIP → OTel → Recoverer → headers → CORS → rate limit.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	otelMiddleware, err := custommw.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return err
	}

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(otelMiddleware.Handler)
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(custommw.CORS(a.getCORSConfig()))
	}
	if a.Config.Security.RateLimit.Enabled {
		r.Use(custommw.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	a.setupAPIRoutes(r, errorHandler)

	a.Router = r
	return nil
}

// setupAPIRoutes configures the /api endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(custommw.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(custommw.Compress(5))

		r.Group(func(r chi.Router) {
			r.Use(custommw.StructuredLogger(a.Logger))
			r.Use(apierrors.RecoveryMiddleware(errorHandler))

			handlers.NewHealthHandler(a.HealthService, a.Logger).Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)

			analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.Logger, errorHandler, a.Config.Server.MaxUploadBytes)
			r.Mount("/v1", analysisHandler.Routes())
		})
	})
}

// getCORSConfig builds the CORS settings from the security config
func (a *Application) getCORSConfig() custommw.CORSConfig {
	return custommw.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", custommw.RequestIDHeader},
		ExposedHeaders: []string{custommw.RequestIDHeader},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
func (a *Application) Serve(ctx context.Context, l net.Listener) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("address", l.Addr().String()),
		slog.Bool("store_enabled", a.Store != nil),
		slog.String("level", a.Config.Logging.Level))

	serveErr := make(chan error, 1)
	go func() {
		if err := a.Server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			_ = a.Stop(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Shutdown requested")
		return a.Stop(context.Background())
	}
}

// Run listens on the configured port until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		a.closeStore(ctx)
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, l)
}

// Stop shuts the server down gracefully, then closes the store and flushes
// telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.closeStore(shutdownCtx)

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) closeStore(ctx context.Context) {
	if a.Store == nil {
		return
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing store", slog.String("error", err.Error()))
	}
	a.Store = nil
}

// ResolveDSN makes a relative SQLite file path relative to baseDir. Memory
// databases and file: URIs are returned unchanged.
func ResolveDSN(dsn, baseDir string) string {
	switch {
	case dsn == "", dsn == ":memory:", strings.HasPrefix(dsn, "file:"), filepath.IsAbs(dsn):
		return dsn
	default:
		return filepath.Join(baseDir, dsn)
	}
}
