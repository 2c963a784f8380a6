package repository

import (
	"context"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/errors"
	"gorm.io/gorm"
)

// annotationRepository implements AnnotationRepository.
type annotationRepository struct {
	db *gorm.DB
}

// NewAnnotationRepository creates a new AnnotationRepository.
func NewAnnotationRepository(db *gorm.DB) AnnotationRepository {
	return &annotationRepository{db: db}
}

// newestFirst orders rows by creation time. Rows saved together share a
// timestamp and fall back to their batch position.
func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("ordinal ASC").Order("id ASC")
}

func (r *annotationRepository) Replace(ctx context.Context, inspectionID string, rows []entities.Annotation) error {
	if inspectionID == "" {
		return errors.Join(ErrInvalidInput, errors.NewStd("inspection id is empty"))
	}
	for i := range rows {
		if rows[i].InspectionID != inspectionID {
			return errors.Join(ErrInvalidInput, errors.NewStd("annotation belongs to another inspection"))
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inspection_id = ?", inspectionID).Delete(&entities.Annotation{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
}

func (r *annotationRepository) DeleteByInspection(ctx context.Context, inspectionID string) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("inspection_id = ?", inspectionID).Delete(&entities.Annotation{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *annotationRepository) CountByInspection(ctx context.Context, inspectionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Annotation{}).
		Where("inspection_id = ?", inspectionID).
		Count(&count).Error
	return count, err
}

func (r *annotationRepository) FindByInspection(ctx context.Context, inspectionID string) ([]entities.Annotation, error) {
	var rows []entities.Annotation
	err := newestFirst(r.db.WithContext(ctx)).
		Where("inspection_id = ?", inspectionID).
		Find(&rows).Error
	return rows, err
}

func (r *annotationRepository) FindActiveByInspection(ctx context.Context, inspectionID string) ([]entities.Annotation, error) {
	var rows []entities.Annotation
	err := newestFirst(r.db.WithContext(ctx)).
		Where("inspection_id = ? AND is_deleted = ?", inspectionID, false).
		Find(&rows).Error
	return rows, err
}

func (r *annotationRepository) FindByTransformer(ctx context.Context, transformerID string) ([]entities.Annotation, error) {
	var rows []entities.Annotation
	err := newestFirst(r.db.WithContext(ctx)).
		Where("transformer_id = ?", transformerID).
		Find(&rows).Error
	return rows, err
}

func (r *annotationRepository) FindByUser(ctx context.Context, userID string) ([]entities.Annotation, error) {
	var rows []entities.Annotation
	err := newestFirst(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Find(&rows).Error
	return rows, err
}
