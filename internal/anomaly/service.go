// Package anomaly runs detection engines against inspection images and keeps
// the history of detection runs.
package anomaly

import (
	"context"
	"strings"
	"time"

	"github.com/gridsight/thermalwatch/internal/annotation"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/detection"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/gridsight/thermalwatch/internal/observability/metrics"
)

// EventPublisher forwards stored detection records to subscribers.
type EventPublisher interface {
	PublishDetection(ctx context.Context, rec *entities.DetectionRecord) error
}

// Alerter notifies operators about records with critical findings.
type Alerter interface {
	AlertCritical(ctx context.Context, rec *entities.DetectionRecord) error
}

// Request describes one detection run.
type Request struct {
	ImageURL         string `json:"imageUrl" validate:"required,url"`
	BaselineImageURL string `json:"baselineImageUrl,omitempty" validate:"omitempty,url"`
	InspectionID     string `json:"inspectionId,omitempty"`
	TransformerID    string `json:"transformerId,omitempty"`
}

// Response is the outcome of Detect. Record.ID is zero when the record
// could not be stored.
type Response struct {
	Record  *entities.DetectionRecord `json:"record"`
	Result  *detection.Result         `json:"result"`
	Summary detection.Summary         `json:"summary"`
	Stored  bool                      `json:"stored"`
}

// Service runs detections and serves the detection history.
type Service struct {
	registry    *detection.Registry
	records     repository.DetectionRecordRepository
	annotations repository.DetectionAnnotationRepository

	publisher EventPublisher
	alerter   Alerter
	metrics   *metrics.DetectionMetrics
	seed      bool
	now       func() time.Time
	log       logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes every stored record.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithAlerter alerts on records with critical findings.
func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

// WithMetrics records engine runs and findings.
func WithMetrics(m *metrics.DetectionMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSeedAnnotations stores an AI-generated detection annotation per finding.
func WithSeedAnnotations(enabled bool) Option {
	return func(s *Service) { s.seed = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger overrides the module logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service.
func NewService(registry *detection.Registry, records repository.DetectionRecordRepository, annotations repository.DetectionAnnotationRepository, opts ...Option) *Service {
	s := &Service{
		registry:    registry,
		records:     records,
		annotations: annotations,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("anomaly")
	}
	return s
}

// Detect analyses req.ImageURL with the best available engine and stores
// the run. A storage failure is logged and the detection is still returned;
// publishing and alerting never fail the request.
func (s *Service) Detect(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, errors.ValidationError("image url is required")
	}

	engine, err := s.registry.BestAvailable(ctx)
	if err != nil {
		return nil, err
	}
	log := s.log.WithContext(ctx).With(logger.String("engine", engine.Name()))

	start := time.Now()
	result, err := engine.Detect(ctx, req.ImageURL)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveRun(engine.Name(), metrics.StatusError, elapsed.Seconds())
		return nil, errors.New(err).
			Category(errors.CategoryDetection).
			Context("engine", engine.Name()).
			Timing("detect", elapsed).
			Build()
	}
	if result == nil {
		result = &detection.Result{}
	}
	s.metrics.ObserveRun(engine.Name(), metrics.StatusSuccess, elapsed.Seconds())

	summary := detection.Aggregate(result.Detections)
	s.metrics.AddFindings(summary.CriticalCount, summary.WarningCount, summary.UncertainCount)
	log.Info("detection completed",
		logger.Int("detections", summary.Total),
		logger.Int("critical", summary.CriticalCount),
		logger.Duration("elapsed", elapsed))

	rec, err := newRecord(engine, req, result, summary, elapsed, s.now())
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDetection).
			Context("operation", "encode_detections").
			Build()
	}

	resp := &Response{Record: rec, Result: result, Summary: summary}
	if err := s.records.Create(ctx, rec); err != nil {
		s.metrics.RecordStored(metrics.StatusError)
		log.Error("failed to store detection record", logger.Error(err))
		return resp, nil
	}
	s.metrics.RecordStored(metrics.StatusSuccess)
	resp.Stored = true

	s.seedAnnotations(ctx, rec, result.Detections)
	s.notify(ctx, rec)
	return resp, nil
}

func newRecord(engine detection.Engine, req Request, result *detection.Result, summary detection.Summary, elapsed time.Duration, now time.Time) (*entities.DetectionRecord, error) {
	rec := &entities.DetectionRecord{
		InspectionID:        optional(req.InspectionID),
		TransformerID:       optional(req.TransformerID),
		BaselineImageURL:    req.BaselineImageURL,
		MaintenanceImageURL: req.ImageURL,
		EngineName:          engine.Name(),
		EngineVersion:       engine.Version(),
		ModelName:           engine.ModelName(),
		OverallLabel:        result.Label,
		OverlayImageURL:     result.OverlayImageURL,
		FilteredImageURL:    result.FilteredImageURL,
		MaskImageURL:        result.MaskImageURL,
		ProcessingTimeMs:    elapsed.Milliseconds(),
		DetectedAt:          now.UTC(),
	}
	if err := rec.SetDetections(result.Detections); err != nil {
		return nil, err
	}
	rec.ApplySummary(summary)
	return rec, nil
}

func (s *Service) seedAnnotations(ctx context.Context, rec *entities.DetectionRecord, dets []detection.Detection) {
	if !s.seed || len(dets) == 0 {
		return
	}
	rows := annotation.SeedDetectionAnnotations(rec.ID, rec.MaintenanceImageURL, dets, s.now())
	if err := s.annotations.CreateBatch(ctx, rows); err != nil {
		s.log.Warn("failed to seed detection annotations",
			logger.Uint("record_id", rec.ID),
			logger.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, rec *entities.DetectionRecord) {
	if s.publisher != nil {
		if err := s.publisher.PublishDetection(ctx, rec); err != nil {
			s.log.Warn("failed to publish detection event",
				logger.Uint("record_id", rec.ID),
				logger.Error(err))
		}
	}
	if s.alerter != nil && rec.CriticalCount > 0 {
		if err := s.alerter.AlertCritical(ctx, rec); err != nil {
			s.log.Warn("failed to send critical alert",
				logger.Uint("record_id", rec.ID),
				logger.Error(err))
		}
	}
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
