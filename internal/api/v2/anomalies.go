package api

import (
	"net/http"
	"time"

	"github.com/gridsight/thermalwatch/internal/anomaly"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/labstack/echo/v4"
)

// DefaultHistoryWindow is the range used when /anomalies/history is called
// without a start time.
const DefaultHistoryWindow = 30 * 24 * time.Hour

func (c *Controller) initAnomalyRoutes() {
	g := c.Group.Group("/anomalies")
	g.POST("/detect", c.DetectAnomalies)
	g.GET("/health", c.EngineHealth)
	g.GET("/engines", c.ListEngines)
	g.GET("/history", c.HistoryByRange)
	g.GET("/history/transformer/:transformerId", c.HistoryByTransformer)
	g.GET("/history/inspection/:inspectionId", c.HistoryByInspection)
	g.POST("/feedback/:id", c.DetectionFeedback)
	g.PUT("/update-counts/:inspectionId", c.UpdateDetectionCounts)
	g.GET("/:id", c.GetDetection)
}

// FeedbackRequest marks a detection run as correct or incorrect.
type FeedbackRequest struct {
	Correct *bool  `json:"correct" validate:"required"`
	Notes   string `json:"notes"`
}

// UpdateCountsRequest overrides the finding counts of an inspection's
// latest detection run.
type UpdateCountsRequest struct {
	TotalDetections int `json:"totalDetections" validate:"gte=0"`
	CriticalCount   int `json:"criticalCount" validate:"gte=0"`
	WarningCount    int `json:"warningCount" validate:"gte=0"`
}

// DetectAnomalies handles POST /anomalies/detect.
func (c *Controller) DetectAnomalies(ctx echo.Context) error {
	var req anomaly.Request
	if err := c.bindAndValidate(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid detection request", http.StatusBadRequest)
	}

	resp, err := c.anomalies.Detect(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Anomaly detection failed")
	}
	if !resp.Stored {
		c.log.Warn("detection result returned without being stored",
			logger.String("image_url", req.ImageURL))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// EngineHealth handles GET /anomalies/health.
func (c *Controller) EngineHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.anomalies.Health(ctx.Request().Context()))
}

// ListEngines handles GET /anomalies/engines.
func (c *Controller) ListEngines(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.anomalies.Engines())
}

// GetDetection handles GET /anomalies/:id.
func (c *Controller) GetDetection(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid detection id", http.StatusBadRequest)
	}
	rec, err := c.anomalies.Get(ctx.Request().Context(), id)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to get detection")
	}
	return ctx.JSON(http.StatusOK, rec)
}

// HistoryByRange handles GET /anomalies/history?start=&end=. Both bounds
// are RFC 3339; end defaults to now and start to DefaultHistoryWindow
// before end.
func (c *Controller) HistoryByRange(ctx echo.Context) error {
	end := c.now().UTC()
	if raw := ctx.QueryParam("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.HandleError(ctx, errors.ValidationError("end must be an RFC 3339 timestamp"),
				"Invalid end time", http.StatusBadRequest)
		}
		end = t
	}
	start := end.Add(-DefaultHistoryWindow)
	if raw := ctx.QueryParam("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.HandleError(ctx, errors.ValidationError("start must be an RFC 3339 timestamp"),
				"Invalid start time", http.StatusBadRequest)
		}
		start = t
	}

	recs, err := c.anomalies.HistoryByRange(ctx.Request().Context(), start, end)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to load detection history")
	}
	return ctx.JSON(http.StatusOK, recs)
}

// HistoryByTransformer handles GET /anomalies/history/transformer/:transformerId.
func (c *Controller) HistoryByTransformer(ctx echo.Context) error {
	recs, err := c.anomalies.HistoryByTransformer(ctx.Request().Context(), ctx.Param("transformerId"))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to load transformer history")
	}
	return ctx.JSON(http.StatusOK, recs)
}

// HistoryByInspection handles GET /anomalies/history/inspection/:inspectionId.
func (c *Controller) HistoryByInspection(ctx echo.Context) error {
	recs, err := c.anomalies.HistoryByInspection(ctx.Request().Context(), ctx.Param("inspectionId"))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to load inspection history")
	}
	return ctx.JSON(http.StatusOK, recs)
}

// DetectionFeedback handles POST /anomalies/feedback/:id.
func (c *Controller) DetectionFeedback(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid detection id", http.StatusBadRequest)
	}
	var req FeedbackRequest
	if err := c.bindAndValidate(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid feedback request", http.StatusBadRequest)
	}

	rec, err := c.anomalies.ProvideFeedback(ctx.Request().Context(), id, *req.Correct, req.Notes)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to record feedback")
	}
	return ctx.JSON(http.StatusOK, rec)
}

// UpdateDetectionCounts handles PUT /anomalies/update-counts/:inspectionId.
func (c *Controller) UpdateDetectionCounts(ctx echo.Context) error {
	var req UpdateCountsRequest
	if err := c.bindAndValidate(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid count update", http.StatusBadRequest)
	}

	rec, err := c.anomalies.UpdateCounts(ctx.Request().Context(), ctx.Param("inspectionId"),
		req.TotalDetections, req.CriticalCount, req.WarningCount)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to update detection counts")
	}
	return ctx.JSON(http.StatusOK, rec)
}
