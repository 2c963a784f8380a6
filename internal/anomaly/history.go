package anomaly

import (
	"context"
	"strings"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/detection"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
)

// Health is the availability of the registered engines.
type Health struct {
	Timestamp        time.Time          `json:"timestamp" yaml:"timestamp"`
	DefaultEngine    string             `json:"defaultEngine" yaml:"default_engine"`
	Engines          []detection.Status `json:"engines" yaml:"engines"`
	TotalEngines     int                `json:"totalEngines" yaml:"total_engines"`
	AvailableEngines int                `json:"availableEngines" yaml:"available_engines"`
}

// Health probes every engine.
func (s *Service) Health(ctx context.Context) Health {
	statuses := s.registry.Statuses(ctx)
	h := Health{
		Timestamp:     s.now().UTC(),
		DefaultEngine: s.registry.DefaultName(),
		Engines:       statuses,
		TotalEngines:  len(statuses),
	}
	for _, st := range statuses {
		s.metrics.SetEngineAvailable(st.Name, st.Available)
		if st.Available {
			h.AvailableEngines++
		}
	}
	return h
}

// Engines returns metadata keyed by engine name.
func (s *Service) Engines() map[string]map[string]any {
	return s.registry.Metadata()
}

// Get returns one detection record.
func (s *Service) Get(ctx context.Context, id uint) (*entities.DetectionRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, recordError(err, "get_detection", id)
	}
	return rec, nil
}

// HistoryByTransformer returns the runs of a transformer, newest first.
func (s *Service) HistoryByTransformer(ctx context.Context, transformerID string) ([]entities.DetectionRecord, error) {
	if strings.TrimSpace(transformerID) == "" {
		return nil, errors.ValidationError("transformer id is required")
	}
	recs, err := s.records.FindByTransformer(ctx, transformerID)
	if err != nil {
		return nil, historyError(err, "transformer_id", transformerID)
	}
	return nonNil(recs), nil
}

// HistoryByInspection returns the runs of an inspection, newest first.
func (s *Service) HistoryByInspection(ctx context.Context, inspectionID string) ([]entities.DetectionRecord, error) {
	if strings.TrimSpace(inspectionID) == "" {
		return nil, errors.ValidationError("inspection id is required")
	}
	recs, err := s.records.FindByInspection(ctx, inspectionID)
	if err != nil {
		return nil, historyError(err, "inspection_id", inspectionID)
	}
	return nonNil(recs), nil
}

// HistoryByRange returns runs detected within [start, end].
func (s *Service) HistoryByRange(ctx context.Context, start, end time.Time) ([]entities.DetectionRecord, error) {
	if start.After(end) {
		return nil, errors.ValidationError("start must not be after end")
	}
	recs, err := s.records.FindByRange(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, historyError(err, "range", start.Format(time.RFC3339)+"/"+end.Format(time.RFC3339))
	}
	return nonNil(recs), nil
}

// ProvideFeedback records whether an operator agreed with a detection run.
func (s *Service) ProvideFeedback(ctx context.Context, id uint, correct bool, notes string) (*entities.DetectionRecord, error) {
	if err := s.records.UpdateFeedback(ctx, id, correct, notes, s.now().UTC()); err != nil {
		return nil, recordError(err, "provide_feedback", id)
	}
	s.log.Info("detection feedback recorded",
		logger.Uint("record_id", id),
		logger.Bool("correct", correct))
	return s.Get(ctx, id)
}

// UpdateCounts overwrites the counts of the latest run of an inspection
// after the annotations were corrected by hand.
func (s *Service) UpdateCounts(ctx context.Context, inspectionID string, total, critical, warning int) (*entities.DetectionRecord, error) {
	if strings.TrimSpace(inspectionID) == "" {
		return nil, errors.ValidationError("inspection id is required")
	}
	if total < 0 || critical < 0 || warning < 0 {
		return nil, errors.ValidationError("counts must not be negative")
	}
	if critical+warning > total {
		return nil, errors.ValidationError("critical and warning counts exceed total")
	}

	rec, err := s.records.LatestByInspection(ctx, inspectionID)
	if err != nil {
		return nil, errors.New(err).
			Category(categoryFor(err)).
			Context("operation", "update_counts").
			Context("inspection_id", inspectionID).
			Build()
	}
	if err := s.records.UpdateCounts(ctx, rec.ID, total, critical, warning); err != nil {
		return nil, recordError(err, "update_counts", rec.ID)
	}
	s.log.Info("detection counts corrected",
		logger.String("inspection_id", inspectionID),
		logger.Uint("record_id", rec.ID),
		logger.Int("total", total),
		logger.Int("critical", critical),
		logger.Int("warning", warning))
	return s.Get(ctx, rec.ID)
}

func categoryFor(err error) errors.ErrorCategory {
	if errors.Is(err, repository.ErrDetectionRecordNotFound) {
		return errors.CategoryNotFound
	}
	return errors.CategoryDatabase
}

func recordError(err error, operation string, id uint) error {
	return errors.New(err).
		Category(categoryFor(err)).
		Context("operation", operation).
		Context("record_id", id).
		Build()
}

func historyError(err error, key string, value any) error {
	return errors.New(err).
		Category(errors.CategoryDatabase).
		Context("operation", "detection_history").
		Context(key, value).
		Build()
}

func nonNil(recs []entities.DetectionRecord) []entities.DetectionRecord {
	if recs == nil {
		return []entities.DetectionRecord{}
	}
	return recs
}
