package repository

import (
	"context"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/errors"
	"gorm.io/gorm"
)

// feedbackLogRepository implements FeedbackLogRepository.
type feedbackLogRepository struct {
	db *gorm.DB
}

// NewFeedbackLogRepository creates a new FeedbackLogRepository.
func NewFeedbackLogRepository(db *gorm.DB) FeedbackLogRepository {
	return &feedbackLogRepository{db: db}
}

func (r *feedbackLogRepository) Create(ctx context.Context, log *entities.FeedbackLog) error {
	if log == nil || log.ID == "" || log.ImageID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *feedbackLogRepository) Get(ctx context.Context, id string) (*entities.FeedbackLog, error) {
	var log entities.FeedbackLog
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeedbackLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *feedbackLogRepository) List(ctx context.Context, limit, offset int) ([]entities.FeedbackLog, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var logs []entities.FeedbackLog
	err := q.Find(&logs).Error
	return logs, err
}

func (r *feedbackLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.FeedbackLog{}).Count(&count).Error
	return count, err
}
