package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridsight/thermalwatch/internal/api/middleware"
	v2 "github.com/gridsight/thermalwatch/internal/api/v2"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/gridsight/thermalwatch/internal/observability"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Server is the HTTP server for thermalwatch. It owns the echo instance,
// the middleware chain and the v2 API controller.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	services v2.Services
	metrics  *observability.Metrics

	apiController *v2.Controller
	startTime     time.Time
	errCh         chan error
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithServices sets the domain services behind the API.
func WithServices(services v2.Services) ServerOption {
	return func(s *Server) { s.services = services }
}

// WithMetrics enables request metrics and the Prometheus endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// New creates the server with its middleware and routes.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("operation", "server_config").
			Build()
	}

	s := &Server{
		config:    config,
		settings:  settings,
		startTime: time.Now(),
		errCh:     make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("api")
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("metrics", config.MetricsPath != "" && s.metrics != nil),
		logger.Bool("debug", config.Debug))
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(middleware.NewRequestLoggerWithSkipper(s.log, s.skipMetricsPath))

	if s.metrics != nil {
		s.echo.Use(middleware.NewMetrics(s.metrics.HTTP))
	}

	s.echo.Use(middleware.NewCORS(s.config.AllowedOrigins))
	s.echo.Use(echomw.BodyLimit(s.config.BodyLimit))
	s.echo.Use(middleware.NewSecureHeaders())
}

// skipMetricsPath keeps scrapes out of the request log.
func (s *Server) skipMetricsPath(c echo.Context) bool {
	return s.config.MetricsPath != "" && c.Request().URL.Path == s.config.MetricsPath
}

func (s *Server) setupRoutes() error {
	s.echo.GET("/health", s.healthCheck)

	if s.config.MetricsPath != "" && s.metrics != nil {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	apiController, err := v2.New(s.echo, s.settings, s.services, v2.WithLogger(s.log))
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_api_v2").
			Build()
	}
	s.apiController = apiController

	s.log.Info("routes initialized",
		logger.String("api_prefix", v2.Prefix),
		logger.Int("routes", len(s.echo.Routes())))
	return nil
}

func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.settings.Version,
		"build_date":     s.settings.BuildDate,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Start starts the HTTP server in a goroutine. Errors other than a
// normal close are reported on Errors.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.log.Error("server error", logger.Error(err))
			s.errCh <- err
		}
	}()
	s.log.Info("HTTP server starting", logger.String("address", s.config.Address()))
}

func (s *Server) startBlocking() error {
	err := s.echo.Start(s.config.Address())
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "listen").
			Context("address", s.config.Address()).
			Build()
	}
	return nil
}

// Errors delivers a fatal listener error, at most once.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// StartWithGracefulShutdown starts the server and blocks until ctx is done,
// SIGINT or SIGTERM arrives, or the listener fails.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.Start()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received, initiating graceful shutdown")
	case err := <-s.errCh:
		return err
	}
	return s.Shutdown()
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	s.log.Info("server shutdown complete")
	return nil
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
