package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	"stockdesk/internal/config"
	apierrors "stockdesk/internal/errors"
	"stockdesk/internal/infrastructure"
	customMiddleware "stockdesk/internal/middleware"
	"stockdesk/internal/services"
	handlers "stockdesk/internal/transport/http"
	ws "stockdesk/internal/websocket"
	"stockdesk/pkg/contracts"
)

// AppName is the display name used in startup logs
const AppName = "stockdesk"

// Application is the web service container
type Application struct {
	Config          *config.Config
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
	Pipeline        *Pipeline
	WebSocketHub    *ws.Hub
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
	Router          *chi.Mux
	Server          *http.Server

	errorHandler *apierrors.ErrorHandler
}

// NewApplication wires every component from cfg. providers may be nil, in
// which case no-op telemetry is used and /metrics answers 404.
func NewApplication(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	pipeline, err := BuildPipeline(cfg, logger, providers)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Pipeline:      pipeline,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices starts the hub and creates the services on top of it
func (a *Application) initializeServices() {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	a.AnalysisService = services.NewAnalysisService(a.Pipeline.Orchestrator, hub, a.Logger)

	a.HealthService = services.NewHealthService(services.HealthOptions{
		Version:     contracts.GetVersionString(),
		OutputDir:   a.Pipeline.OutputDir,
		LLMProvider: a.Config.LLM.Provider,
		LLMReady:    a.Pipeline.Narrator != nil,
		Hub:         hub,
		Analyses:    a.AnalysisService,
	}, a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Safe for WebSocket: these don't wrap the ResponseWriter
	r.Use(middleware.RequestID)
	r.Use(customMiddleware.TraceID)
	r.Use(middleware.RealIP)
	r.Use(apierrors.RecoveryMiddleware(a.errorHandler))

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.Server.WebSocketAnyOrigin, a.Logger))

	var (
		tracer  trace.Tracer
		metrics *infrastructure.PipelineMetrics
	)
	if a.OTelProviders != nil {
		tracer = a.OTelProviders.Tracer
		metrics = a.OTelProviders.Metrics
	}
	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.MetricsHandler(), a.WebSocketHub, a.AnalysisService)
	r.Get("/metrics", metricsHandler.Prometheus)

	r.Group(func(r chi.Router) {
		// Order: OTel → Logger → SecureHeaders → RateLimiter
		r.Use(customMiddleware.NewOTelMiddleware(tracer, metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.SecureHeaders)
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Server.RateLimitRPS,
			a.Config.Server.RateLimitBurst,
			a.errorHandler,
			a.Logger,
		).Handler)

		a.setupAPIRoutes(r, metricsHandler)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, metricsHandler *handlers.MetricsHandler) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.errorHandler, a.Logger)
	clientLogHandler := handlers.NewClientLogHandler(a.errorHandler, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)
		r.Get("/stats", metricsHandler.GetStats)

		r.Mount("/analyses", analysisHandler.Routes())
		r.Post("/logs", clientLogHandler.Handle)
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Start starts the HTTP server in the background. A listen failure calls
// cancel so that Run returns.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.GetVersionString()),
		slog.Int("port", a.Config.Server.Port),
		slog.String("output_dir", a.Pipeline.OutputDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
}

// Stop shuts the server down, cancels a running analysis and waits for it,
// then stops the hub and flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.AnalysisService.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("analysis service shutdown: %w", err))
	}
	a.WebSocketHub.Stop()
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		a.Logger.ErrorContext(ctx, "Shutdown finished with errors", slog.String("error", err.Error()))
		return err
	}
	a.Logger.InfoContext(ctx, "Application stopped")
	return nil
}

// Run starts the application and blocks until ctx is done or SIGINT/SIGTERM
// arrives, then shuts down within the configured timeout.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.Start(ctx, cancel)
	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer stop()
	return a.Stop(shutdownCtx)
}
