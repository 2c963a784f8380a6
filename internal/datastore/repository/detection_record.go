package repository

import (
	"context"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
)

// DetectionRecordRepository stores detection run results.
type DetectionRecordRepository interface {
	Create(ctx context.Context, record *entities.DetectionRecord) error
	// Get returns ErrDetectionRecordNotFound when id does not exist.
	Get(ctx context.Context, id uint) (*entities.DetectionRecord, error)
	FindByTransformer(ctx context.Context, transformerID string) ([]entities.DetectionRecord, error)
	FindByInspection(ctx context.Context, inspectionID string) ([]entities.DetectionRecord, error)
	// FindByRange returns records detected within [start, end], newest first.
	FindByRange(ctx context.Context, start, end time.Time) ([]entities.DetectionRecord, error)
	// LatestByInspection returns the most recently detected record of the inspection.
	LatestByInspection(ctx context.Context, inspectionID string) (*entities.DetectionRecord, error)
	UpdateFeedback(ctx context.Context, id uint, correct bool, notes string, at time.Time) error
	UpdateCounts(ctx context.Context, id uint, total, critical, warning int) error
}
