package repository

import (
	"context"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
)

// DetectionAnnotationRepository stores annotations attached to detection runs.
type DetectionAnnotationRepository interface {
	CreateBatch(ctx context.Context, rows []entities.DetectionAnnotation) error
	FindByDetectionRecord(ctx context.Context, detectionRecordID uint) ([]entities.DetectionAnnotation, error)
	FindByImage(ctx context.Context, imageRef string) ([]entities.DetectionAnnotation, error)

	// FindByIDs returns the stored rows among ids; missing ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]entities.DetectionAnnotation, error)
	// Upsert writes every row in one transaction, inserting rows whose id
	// is new and overwriting the others.
	Upsert(ctx context.Context, rows []entities.DetectionAnnotation) error
	// SoftDelete flags one row as deleted. It returns
	// ErrDetectionAnnotationNotFound when id does not exist.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}
