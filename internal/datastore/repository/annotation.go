package repository

import (
	"context"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
)

// AnnotationRepository stores inspection annotations.
type AnnotationRepository interface {
	// Replace deletes every annotation of the inspection and inserts rows in
	// one transaction. Every row must carry inspectionID. An empty rows
	// slice clears the inspection.
	Replace(ctx context.Context, inspectionID string, rows []entities.Annotation) error
	// DeleteByInspection removes all annotations of the inspection.
	DeleteByInspection(ctx context.Context, inspectionID string) (int64, error)
	CountByInspection(ctx context.Context, inspectionID string) (int64, error)
	// FindByInspection returns active and soft-deleted rows, newest first.
	FindByInspection(ctx context.Context, inspectionID string) ([]entities.Annotation, error)
	FindActiveByInspection(ctx context.Context, inspectionID string) ([]entities.Annotation, error)
	FindByTransformer(ctx context.Context, transformerID string) ([]entities.Annotation, error)
	FindByUser(ctx context.Context, userID string) ([]entities.Annotation, error)
}
