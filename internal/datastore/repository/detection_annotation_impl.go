package repository

import (
	"context"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// detectionAnnotationRepository implements DetectionAnnotationRepository.
type detectionAnnotationRepository struct {
	db *gorm.DB
}

// NewDetectionAnnotationRepository creates a new DetectionAnnotationRepository.
func NewDetectionAnnotationRepository(db *gorm.DB) DetectionAnnotationRepository {
	return &detectionAnnotationRepository{db: db}
}

func (r *detectionAnnotationRepository) CreateBatch(ctx context.Context, rows []entities.DetectionAnnotation) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, insertBatchSize).Error
}

func (r *detectionAnnotationRepository) FindByDetectionRecord(ctx context.Context, detectionRecordID uint) ([]entities.DetectionAnnotation, error) {
	var rows []entities.DetectionAnnotation
	err := r.db.WithContext(ctx).
		Where("detection_record_id = ?", detectionRecordID).
		Order("created_at DESC").Order("original_detection_index ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *detectionAnnotationRepository) FindByImage(ctx context.Context, imageRef string) ([]entities.DetectionAnnotation, error) {
	var rows []entities.DetectionAnnotation
	err := r.db.WithContext(ctx).
		Where("image_ref = ?", imageRef).
		Order("created_at DESC").Order("original_detection_index ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *detectionAnnotationRepository) FindByIDs(ctx context.Context, ids []string) ([]entities.DetectionAnnotation, error) {
	if len(ids) == 0 {
		return []entities.DetectionAnnotation{}, nil
	}
	var rows []entities.DetectionAnnotation
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *detectionAnnotationRepository) Upsert(ctx context.Context, rows []entities.DetectionAnnotation) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&rows[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *detectionAnnotationRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	result := r.db.WithContext(ctx).Model(&entities.DetectionAnnotation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDetectionAnnotationNotFound
	}
	return nil
}
