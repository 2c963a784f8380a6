package repository

import (
	"context"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
)

// FeedbackLogRepository stores annotator feedback logs.
type FeedbackLogRepository interface {
	Create(ctx context.Context, log *entities.FeedbackLog) error
	Get(ctx context.Context, id string) (*entities.FeedbackLog, error)
	// List returns logs newest first. A limit of zero or less returns all.
	List(ctx context.Context, limit, offset int) ([]entities.FeedbackLog, error)
	Count(ctx context.Context) (int64, error)
}
