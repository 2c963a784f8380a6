package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/feedback"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/labstack/echo/v4"
)

func (c *Controller) initFeedbackRoutes() {
	g := c.Group.Group("/feedback")
	g.POST("/log", c.LogFeedback)
	g.GET("/logs", c.ListFeedback)
	g.GET("/export", c.ExportFeedback)
}

// LogFeedback handles POST /feedback/log.
func (c *Controller) LogFeedback(ctx echo.Context) error {
	var entry feedback.Entry
	if err := ctx.Bind(&entry); err != nil {
		return c.HandleError(ctx, err, "Invalid feedback payload", http.StatusBadRequest)
	}

	rec, summary, err := c.feedback.Log(ctx.Request().Context(), &entry)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to log feedback")
	}
	return ctx.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Feedback logged successfully",
		"data":    rec,
		"summary": summary,
	})
}

// ListFeedback handles GET /feedback/logs?limit=&offset=.
func (c *Controller) ListFeedback(ctx echo.Context) error {
	limit, err := intQuery(ctx, "limit", feedback.DefaultListLimit)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid limit", http.StatusBadRequest)
	}
	offset, err := intQuery(ctx, "offset", 0)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid offset", http.StatusBadRequest)
	}

	recs, total, err := c.feedback.List(ctx.Request().Context(), limit, offset)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to list feedback logs")
	}
	if limit <= 0 {
		limit = feedback.DefaultListLimit
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"data":   recs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ExportFeedback handles GET /feedback/export?format=json|csv and serves
// the export as a download.
func (c *Controller) ExportFeedback(ctx echo.Context) error {
	format, err := feedback.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid export format", http.StatusBadRequest)
	}

	var buf bytes.Buffer
	if err := c.feedback.Export(ctx.Request().Context(), &buf, format); err != nil {
		return c.handleServiceError(ctx, err, "Failed to export feedback logs")
	}

	filename := format.Filename(c.now())
	encodedFilename := url.QueryEscape(filename)
	h := ctx.Response().Header()
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, encodedFilename))
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")

	c.log.Info("feedback logs exported",
		logger.String("format", string(format)),
		logger.Int("bytes", buf.Len()))
	return ctx.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

func intQuery(ctx echo.Context, name string, fallback int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationError(name + " must be an integer")
	}
	return n, nil
}
