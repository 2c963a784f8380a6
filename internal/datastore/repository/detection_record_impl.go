package repository

import (
	"context"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/errors"
	"gorm.io/gorm"
)

// detectionRecordRepository implements DetectionRecordRepository.
type detectionRecordRepository struct {
	db *gorm.DB
}

// NewDetectionRecordRepository creates a new DetectionRecordRepository.
func NewDetectionRecordRepository(db *gorm.DB) DetectionRecordRepository {
	return &detectionRecordRepository{db: db}
}

func (r *detectionRecordRepository) Create(ctx context.Context, record *entities.DetectionRecord) error {
	if record == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *detectionRecordRepository) Get(ctx context.Context, id uint) (*entities.DetectionRecord, error) {
	var record entities.DetectionRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDetectionRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *detectionRecordRepository) FindByTransformer(ctx context.Context, transformerID string) ([]entities.DetectionRecord, error) {
	var records []entities.DetectionRecord
	err := r.db.WithContext(ctx).
		Where("transformer_id = ?", transformerID).
		Order("detected_at DESC").Order("id DESC").
		Find(&records).Error
	return records, err
}

func (r *detectionRecordRepository) FindByInspection(ctx context.Context, inspectionID string) ([]entities.DetectionRecord, error) {
	var records []entities.DetectionRecord
	err := r.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("detected_at DESC").Order("id DESC").
		Find(&records).Error
	return records, err
}

func (r *detectionRecordRepository) FindByRange(ctx context.Context, start, end time.Time) ([]entities.DetectionRecord, error) {
	var records []entities.DetectionRecord
	err := r.db.WithContext(ctx).
		Where("detected_at BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Order("detected_at DESC").Order("id DESC").
		Find(&records).Error
	return records, err
}

func (r *detectionRecordRepository) LatestByInspection(ctx context.Context, inspectionID string) (*entities.DetectionRecord, error) {
	var record entities.DetectionRecord
	err := r.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("detected_at DESC").Order("id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDetectionRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *detectionRecordRepository) UpdateFeedback(ctx context.Context, id uint, correct bool, notes string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entities.DetectionRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"feedback_provided":    true,
			"feedback_correct":     correct,
			"feedback_notes":       notes,
			"feedback_provided_at": at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDetectionRecordNotFound
	}
	return nil
}

func (r *detectionRecordRepository) UpdateCounts(ctx context.Context, id uint, total, critical, warning int) error {
	result := r.db.WithContext(ctx).Model(&entities.DetectionRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_detections": total,
			"critical_count":   critical,
			"warning_count":    warning,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDetectionRecordNotFound
	}
	return nil
}
