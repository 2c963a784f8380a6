package annotation

import (
	"context"
	"strings"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/errors"
)

// QueryService reads stored annotations.
type QueryService struct {
	annotations repository.AnnotationRepository
	detections  repository.DetectionAnnotationRepository
}

// NewQueryService creates a QueryService.
func NewQueryService(annotations repository.AnnotationRepository, detections repository.DetectionAnnotationRepository) *QueryService {
	return &QueryService{annotations: annotations, detections: detections}
}

// ByInspection returns active and soft-deleted rows of the inspection,
// newest first. Rows saved together keep their submission order.
func (q *QueryService) ByInspection(ctx context.Context, inspectionID string) ([]entities.Annotation, error) {
	if err := validateInspectionID(inspectionID); err != nil {
		return nil, err
	}
	rows, err := q.annotations.FindByInspection(ctx, inspectionID)
	if err != nil {
		return nil, queryError(err, "list_annotations", "inspection_id", inspectionID)
	}
	return nonNil(rows), nil
}

// ByTransformer returns every annotation recorded for a transformer.
func (q *QueryService) ByTransformer(ctx context.Context, transformerID string) ([]entities.Annotation, error) {
	if strings.TrimSpace(transformerID) == "" {
		return nil, errors.ValidationError("transformer id is required")
	}
	rows, err := q.annotations.FindByTransformer(ctx, transformerID)
	if err != nil {
		return nil, queryError(err, "list_transformer_annotations", "transformer_id", transformerID)
	}
	return nonNil(rows), nil
}

// ByDetectionRecord returns the detection annotations of one detection run.
func (q *QueryService) ByDetectionRecord(ctx context.Context, detectionRecordID uint) ([]entities.DetectionAnnotation, error) {
	if detectionRecordID == 0 {
		return nil, errors.ValidationError("detection record id is required")
	}
	rows, err := q.detections.FindByDetectionRecord(ctx, detectionRecordID)
	if err != nil {
		return nil, queryError(err, "list_detection_annotations", "detection_record_id", detectionRecordID)
	}
	return nonNil(rows), nil
}

// ByImage returns the detection annotations recorded against an image.
func (q *QueryService) ByImage(ctx context.Context, imageRef string) ([]entities.DetectionAnnotation, error) {
	if strings.TrimSpace(imageRef) == "" {
		return nil, errors.ValidationError("image reference is required")
	}
	rows, err := q.detections.FindByImage(ctx, imageRef)
	if err != nil {
		return nil, queryError(err, "list_image_annotations", "image_ref", imageRef)
	}
	return nonNil(rows), nil
}

func queryError(err error, operation, key string, value any) error {
	return errors.New(err).
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context(key, value).
		Build()
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
