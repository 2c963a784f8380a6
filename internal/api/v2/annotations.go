package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gridsight/thermalwatch/internal/annotation"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/labstack/echo/v4"
)

// Annotation status filters for the list endpoint.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

func (c *Controller) initAnnotationRoutes() {
	g := c.Group.Group("/inspection-annotations")
	g.POST("/save", c.SaveAnnotations)
	g.GET("/:inspectionId", c.ListAnnotations)
	g.DELETE("/:inspectionId", c.DeleteAnnotations)
	g.GET("/:inspectionId/exists", c.AnnotationsExist)

	c.Group.POST("/annotations/save", c.SaveDetectionAnnotations)
	c.Group.DELETE("/annotations/:annotationId", c.DeleteDetectionAnnotation)
	c.Group.GET("/annotations/detection/:detectionId", c.DetectionAnnotations)
	c.Group.GET("/annotations/image/:imageRef", c.ImageAnnotations)
}

// SaveAnnotationsRequest replaces the annotation set of an inspection.
// TransformerID applies to boxes that do not carry their own. Older
// clients send the inspection as imageId.
type SaveAnnotationsRequest struct {
	InspectionID  string             `json:"inspectionId" validate:"required_without=ImageID"`
	ImageID       string             `json:"imageId"`
	UserID        string             `json:"userId"`
	TransformerID string             `json:"transformerId"`
	Annotations   []annotation.Input `json:"annotations"`
}

// SaveDetectionAnnotationsRequest edits the detection annotations of one
// image box by box.
type SaveDetectionAnnotationsRequest struct {
	ImageID     string                      `json:"imageId" validate:"required"`
	UserID      string                      `json:"userId"`
	Annotations []annotation.DetectionInput `json:"annotations" validate:"required"`
}

// DetectionAnnotationResponse is a detection annotation with its
// modification types expanded.
type DetectionAnnotationResponse struct {
	entities.DetectionAnnotation
	ModificationTypes []string `json:"modificationTypes"`
}

func toDetectionResponses(rows []entities.DetectionAnnotation) []DetectionAnnotationResponse {
	out := make([]DetectionAnnotationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, DetectionAnnotationResponse{
			DetectionAnnotation: rows[i],
			ModificationTypes:   rows[i].ModificationTypeList(),
		})
	}
	return out
}

// AnnotationResponse is an annotation with its modification types expanded.
type AnnotationResponse struct {
	entities.Annotation
	ModificationTypes []string `json:"modificationTypes"`
}

func toAnnotationResponses(rows []entities.Annotation) []AnnotationResponse {
	out := make([]AnnotationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, AnnotationResponse{
			Annotation:        rows[i],
			ModificationTypes: rows[i].ModificationTypeList(),
		})
	}
	return out
}

// SaveAnnotations handles POST /inspection-annotations/save.
func (c *Controller) SaveAnnotations(ctx echo.Context) error {
	var req SaveAnnotationsRequest
	if err := c.bindAndValidate(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid annotation save request", http.StatusBadRequest)
	}
	if strings.TrimSpace(req.InspectionID) == "" {
		req.InspectionID = req.ImageID
	}

	if tx := strings.TrimSpace(req.TransformerID); tx != "" {
		for i := range req.Annotations {
			if req.Annotations[i].TransformerID == nil {
				req.Annotations[i].TransformerID = &tx
			}
		}
	}

	rows, err := c.reconciler.Replace(ctx.Request().Context(), req.InspectionID, req.UserID, req.Annotations)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to save annotations")
	}

	c.log.Info("annotations saved",
		logger.String("inspection_id", req.InspectionID),
		logger.Int("count", len(rows)))
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":     "Annotations saved successfully",
		"count":       len(rows),
		"annotations": toAnnotationResponses(rows),
	})
}

// ListAnnotations handles GET /inspection-annotations/:inspectionId.
func (c *Controller) ListAnnotations(ctx echo.Context) error {
	inspectionID := ctx.Param("inspectionId")
	status := strings.ToLower(ctx.QueryParam("status"))
	if status != "" && status != StatusActive && status != StatusDeleted {
		return c.HandleError(ctx, errors.ValidationError("status must be active or deleted"),
			"Invalid status filter", http.StatusBadRequest)
	}

	rows, err := c.queries.ByInspection(ctx.Request().Context(), inspectionID)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to list annotations")
	}

	active, deleted := annotation.Partition(rows)
	switch status {
	case StatusActive:
		rows = active
	case StatusDeleted:
		rows = deleted
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"inspectionId": inspectionID,
		"count":        len(rows),
		"activeCount":  len(active),
		"deletedCount": len(deleted),
		"annotations":  toAnnotationResponses(rows),
	})
}

// DeleteAnnotations handles DELETE /inspection-annotations/:inspectionId.
func (c *Controller) DeleteAnnotations(ctx echo.Context) error {
	inspectionID := ctx.Param("inspectionId")
	deleted, err := c.reconciler.DeleteAll(ctx.Request().Context(), inspectionID)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to delete annotations")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Annotations deleted successfully",
		"deleted": deleted,
	})
}

// AnnotationsExist handles GET /inspection-annotations/:inspectionId/exists.
func (c *Controller) AnnotationsExist(ctx echo.Context) error {
	exists, count, err := c.reconciler.ExistsAndCount(ctx.Request().Context(), ctx.Param("inspectionId"))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to check annotations")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"exists": exists,
		"count":  count,
	})
}

// DetectionAnnotations handles GET /annotations/detection/:detectionId.
func (c *Controller) DetectionAnnotations(ctx echo.Context) error {
	id, err := parseID(ctx.Param("detectionId"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid detection id", http.StatusBadRequest)
	}
	rows, err := c.queries.ByDetectionRecord(ctx.Request().Context(), id)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to list detection annotations")
	}
	return ctx.JSON(http.StatusOK, toDetectionResponses(rows))
}

// ImageAnnotations handles GET /annotations/image/:imageRef. The image
// reference is usually a URL and arrives path-escaped.
func (c *Controller) ImageAnnotations(ctx echo.Context) error {
	imageRef, err := url.PathUnescape(ctx.Param("imageRef"))
	if err != nil {
		return c.HandleError(ctx, errors.ValidationError("image reference is not properly escaped"),
			"Invalid image reference", http.StatusBadRequest)
	}
	rows, err := c.queries.ByImage(ctx.Request().Context(), imageRef)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to list image annotations")
	}
	return ctx.JSON(http.StatusOK, toDetectionResponses(rows))
}

// SaveDetectionAnnotations handles POST /annotations/save.
func (c *Controller) SaveDetectionAnnotations(ctx echo.Context) error {
	var req SaveDetectionAnnotationsRequest
	if err := c.bindAndValidate(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "Invalid annotation save request", http.StatusBadRequest)
	}

	rows, err := c.editor.Save(ctx.Request().Context(), req.ImageID, req.UserID, req.Annotations)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to save annotations")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":     "Annotations saved successfully",
		"count":       len(rows),
		"annotations": toDetectionResponses(rows),
	})
}

// DeleteDetectionAnnotation handles DELETE /annotations/:annotationId.
func (c *Controller) DeleteDetectionAnnotation(ctx echo.Context) error {
	if err := c.editor.Delete(ctx.Request().Context(), ctx.Param("annotationId")); err != nil {
		return c.handleServiceError(ctx, err, "Failed to delete annotation")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Annotation deleted successfully",
	})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, errors.ValidationError("id must be a positive integer")
	}
	return uint(id), nil
}
