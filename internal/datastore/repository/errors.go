package repository

import "github.com/gridsight/thermalwatch/internal/errors"

// Sentinel errors for repository operations.
var (
	// ErrDetectionRecordNotFound indicates the requested detection record does not exist.
	ErrDetectionRecordNotFound = errors.NewStd("detection record not found")

	// ErrDetectionAnnotationNotFound indicates the requested detection annotation does not exist.
	ErrDetectionAnnotationNotFound = errors.NewStd("detection annotation not found")

	// ErrFeedbackLogNotFound indicates the requested feedback log does not exist.
	ErrFeedbackLogNotFound = errors.NewStd("feedback log not found")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 100
