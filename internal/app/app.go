// Package app wires the report service together: configuration,
// logging, tracing, the report archive, the analysis services, the
// WebSocket hub and the HTTP router.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"iqccli/internal/config"
	"iqccli/internal/errors"
	"iqccli/internal/history"
	"iqccli/internal/infrastructure"
	custommw "iqccli/internal/middleware"
	"iqccli/internal/services"
	handlers "iqccli/internal/transport/http"
	ws "iqccli/internal/websocket"
)

// Application is the main dependency container.
type Application struct {
	Config          *config.Config
	Logger          *slog.Logger
	Router          *chi.Mux
	Server          *http.Server
	OTelProviders   *infrastructure.OTelProviders
	Store           *history.Store
	AnalysisService *services.AnalysisService
	ReportService   *services.ReportService
	Hub             *ws.Hub

	registry  *prometheus.Registry
	hubCancel context.CancelFunc
}

// NewApplication loads configuration and builds the full service graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", infrastructure.ServiceName),
		slog.String("version", infrastructure.ServiceVersion),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the archive, the domain services and the
// WebSocket hub, and connects the report notifier.
func (a *Application) initializeServices() error {
	for _, dir := range []string{a.Config.Paths.DataDir, a.Config.Paths.ExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	store, err := history.NewStore(a.Config.Paths.ReportsDir, a.Logger)
	if err != nil {
		return fmt.Errorf("open report archive: %w", err)
	}
	a.Store = store

	a.AnalysisService = services.NewAnalysisService(a.Config.SPC, a.Logger)
	a.ReportService = services.NewReportService(store, a.Config.Paths.ExportDir, a.Logger)

	a.Hub = ws.NewHub(a.Logger, a.checkWebSocketOrigin)
	a.ReportService.SetNotifier(a.Hub)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return nil
}

// setupRouter builds the chi router with the full middleware chain.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))

	// WebSocket endpoint skips the HTTP-oriented middleware below.
	r.HandleFunc("/ws", a.Hub.ServeHTTP)

	httpMetrics := custommw.NewHTTPMetrics(a.registry)

	r.Group(func(r chi.Router) {
		r.Use(custommw.NewRateLimiter(
			a.Config.Server.RateLimitRPS,
			a.Config.Server.RateLimitBurst,
			a.Logger,
		).Handler)
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins:   a.Config.Server.AllowedOrigins,
			AllowCredentials: true,
			Logger:           a.Logger,
		}))
		r.Use(custommw.SecurityHeaders)
		r.Use(custommw.Tracing(a.OTelProviders.Tracer))
		r.Use(httpMetrics.Handler)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			handlers.NewAnalysisHandler(a.AnalysisService, a.ReportService, a.Logger).RegisterRoutes(r)
			handlers.NewReportsHandler(a.ReportService, a.Logger).RegisterRoutes(r)
			handlers.NewHealthHandler().RegisterRoutes(r)
		})
	})

	// Scrape endpoint stays outside the rate limiter.
	r.Handle("/metrics", handlers.NewMetricsHandler(a.registry))

	errorHandler := errors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
}

func (a *Application) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.Config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	a.Logger.Warn("websocket origin rejected", slog.String("origin", origin))
	return false
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the hub and the HTTP server. Server failures cancel
// the passed cancel func so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	hubCtx, hubCancel := context.WithCancel(context.Background())
	a.hubCancel = hubCancel
	go a.Hub.Run(hubCtx)

	go func() {
		a.Logger.InfoContext(ctx, "http server listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully shuts down the server, the hub and the telemetry
// providers.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if a.hubCancel != nil {
		a.hubCancel()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "tracing shutdown error",
				slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}

	a.Logger.Info("shutdown complete")
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.Info("received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
