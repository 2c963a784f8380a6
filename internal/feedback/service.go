package feedback

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
)

// DefaultListLimit applies when List is called without a limit.
const DefaultListLimit = 1000

// Service stores and exports feedback logs.
type Service struct {
	repo repository.FeedbackLogRepository
	now  func() time.Time
	log  logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger overrides the module logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service backed by repo.
func NewService(repo repository.FeedbackLogRepository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("feedback")
	}
	return s
}

func validate(e *Entry) error {
	switch {
	case e == nil:
		return errors.ValidationError("feedback entry is required")
	case strings.TrimSpace(e.ImageID) == "":
		return errors.ValidationError("image_id is required")
	case e.ModelPredictedAnomalies == nil:
		return errors.ValidationError("model_predicted_anomalies is required")
	case e.FinalAcceptedAnnotations == nil:
		return errors.ValidationError("final_accepted_annotations is required")
	case e.ModelPredictedAnomalies.Detections == nil:
		return errors.ValidationError("model_predicted_anomalies.detections must be an array")
	case e.FinalAcceptedAnnotations.Detections == nil:
		return errors.ValidationError("final_accepted_annotations.detections must be an array")
	}
	return nil
}

// CountModifications counts detections by their "action" field.
func CountModifications(dets []map[string]any) Modifications {
	var m Modifications
	for _, d := range dets {
		action, _ := d["action"].(string)
		switch strings.ToLower(action) {
		case entities.ActionAdded:
			m.Added++
		case entities.ActionEdited:
			m.Edited++
		case entities.ActionDeleted:
			m.Deleted++
		case entities.ActionConfirmed:
			m.Confirmed++
		}
	}
	return m
}

// Log completes and stores a feedback entry. Missing annotator timestamps,
// detection counts and modification counts are filled in.
func (s *Service) Log(ctx context.Context, e *Entry) (*Record, *Summary, error) {
	if err := validate(e); err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()

	meta := e.AnnotatorMetadata
	if meta == nil {
		meta = map[string]any{}
	}
	if ts, _ := meta["timestamp"].(string); ts == "" {
		meta["timestamp"] = now.Format(time.RFC3339Nano)
	}

	pred := *e.ModelPredictedAnomalies
	if pred.DetectionCount == nil {
		n := len(pred.Detections)
		pred.DetectionCount = &n
	}
	final := *e.FinalAcceptedAnnotations
	if final.DetectionCount == nil {
		n := len(final.Detections)
		final.DetectionCount = &n
	}
	if final.UserModifications == nil {
		m := CountModifications(final.Detections)
		final.UserModifications = &m
	}

	row := &entities.FeedbackLog{
		ID:        uuid.NewString(),
		ImageID:   strings.TrimSpace(e.ImageID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	var err error
	if row.ModelPredictedAnomalies, err = marshalText(pred); err != nil {
		return nil, nil, err
	}
	if row.FinalAcceptedAnnotations, err = marshalText(final); err != nil {
		return nil, nil, err
	}
	if row.AnnotatorMetadata, err = marshalText(meta); err != nil {
		return nil, nil, err
	}

	if err := s.repo.Create(ctx, row); err != nil {
		return nil, nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "save_feedback_log").
			Context("image_id", row.ImageID).
			Build()
	}

	summary := &Summary{
		ImageID:         row.ImageID,
		ModelDetections: *pred.DetectionCount,
		FinalDetections: *final.DetectionCount,
		UserChanges:     *final.UserModifications,
	}
	s.log.Info("feedback log saved",
		logger.String("id", row.ID),
		logger.String("image_id", row.ImageID),
		logger.Int("model_detections", summary.ModelDetections),
		logger.Int("final_detections", summary.FinalDetections))

	rec := toRecord(row)
	return &rec, summary, nil
}

// List returns stored logs newest first together with the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Record, int64, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		return nil, 0, errors.ValidationError("offset must not be negative")
	}
	rows, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, listError(err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, listError(err)
	}
	out := make([]Record, 0, len(rows))
	for i := range rows {
		out = append(out, toRecord(&rows[i]))
	}
	return out, total, nil
}

func listError(err error) error {
	return errors.New(err).
		Category(errors.CategoryDatabase).
		Context("operation", "list_feedback_logs").
		Build()
}

func marshalText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryValidation).
			Context("operation", "encode_feedback").
			Build()
	}
	return string(data), nil
}
