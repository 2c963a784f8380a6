// Package api implements the /api/v2 JSON endpoints.
package api

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/gridsight/thermalwatch/internal/annotation"
	"github.com/gridsight/thermalwatch/internal/anomaly"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/feedback"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/labstack/echo/v4"
)

// Prefix is the route prefix of every endpoint in this package.
const Prefix = "/api/v2"

// Services are the domain services the controller exposes.
type Services struct {
	Reconciler *annotation.Reconciler
	Queries    *annotation.QueryService
	Editor     *annotation.Editor
	Anomalies  *anomaly.Service
	Feedback   *feedback.Service
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	reconciler *annotation.Reconciler
	queries    *annotation.QueryService
	editor     *annotation.Editor
	anomalies  *anomaly.Service
	feedback   *feedback.Service

	log       logger.Logger
	startTime time.Time
	now       func() time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock overrides the time source used for defaults and file names.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New registers the v2 routes on e.
func New(e *echo.Echo, settings *conf.Settings, services Services, opts ...Option) (*Controller, error) {
	if e == nil {
		return nil, errors.Newf("echo instance is required").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if services.Reconciler == nil || services.Queries == nil || services.Editor == nil || services.Anomalies == nil || services.Feedback == nil {
		return nil, errors.Newf("all api services are required").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings == nil {
		settings = &conf.Settings{}
	}

	c := &Controller{
		Echo:       e,
		Group:      e.Group(Prefix),
		Settings:   settings,
		reconciler: services.Reconciler,
		queries:    services.Queries,
		editor:     services.Editor,
		anomalies:  services.Anomalies,
		feedback:   services.Feedback,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Global().Module("api")
	}
	c.startTime = c.now()

	if e.Validator == nil {
		e.Validator = NewValidator()
	}

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initAnnotationRoutes()
	c.initAnomalyRoutes()
	c.initFeedbackRoutes()
	c.initSystemRoutes()
}

// HealthCheck reports that the API is serving.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := c.now().Sub(c.startTime)
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        c.Settings.Version,
		"build_date":     c.Settings.BuildDate,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      c.now().UTC().Format(time.RFC3339),
	})
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes the error envelope with code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.Error(err),
	}
	log := c.log.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("api error", fields...)
	} else {
		log.Debug("api request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

// handleServiceError maps a service error to its HTTP status.
func (c *Controller) handleServiceError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, StatusFor(err))
}

// StatusFor maps error categories to HTTP status codes.
func StatusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &he):
		return he.Code
	default:
		return http.StatusInternalServerError
	}
}

// bindAndValidate decodes the request body into req and runs its
// validate tags.
func (c *Controller) bindAndValidate(ctx echo.Context, req any) error {
	if err := ctx.Bind(req); err != nil {
		return errors.New(err).
			Category(errors.CategoryValidation).
			Context("operation", "bind_request").
			Build()
	}
	return ctx.Validate(req)
}
