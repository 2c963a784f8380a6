package annotation

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/gridsight/thermalwatch/internal/observability/metrics"
)

// Reconciler replaces and removes the annotation set of an inspection.
type Reconciler struct {
	repo     repository.AnnotationRepository
	resolver *Resolver
	metrics  *metrics.AnnotationMetrics
	now      func() time.Time
	log      logger.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithResolver overrides the identity resolver.
func WithResolver(r *Resolver) Option {
	return func(rc *Reconciler) { rc.resolver = r }
}

// WithMetrics records replace and delete outcomes.
func WithMetrics(m *metrics.AnnotationMetrics) Option {
	return func(rc *Reconciler) { rc.metrics = m }
}

// WithClock overrides the time source used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(rc *Reconciler) { rc.now = now }
}

// WithLogger overrides the module logger.
func WithLogger(l logger.Logger) Option {
	return func(rc *Reconciler) { rc.log = l }
}

// NewReconciler creates a Reconciler backed by repo.
func NewReconciler(repo repository.AnnotationRepository, opts ...Option) *Reconciler {
	rc := &Reconciler{
		repo:     repo,
		resolver: defaultResolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.log == nil {
		rc.log = logger.Global().Module("annotation")
	}
	return rc
}

func validateInspectionID(inspectionID string) error {
	if strings.TrimSpace(inspectionID) == "" {
		return errors.ValidationError("inspection id is required")
	}
	if utf8.RuneCountInString(inspectionID) > entities.MaxIDLength {
		return errors.Newf("inspection id exceeds %d characters", entities.MaxIDLength).
			Category(errors.CategoryValidation).
			Context("length", utf8.RuneCountInString(inspectionID)).
			Build()
	}
	return nil
}

// Replace stores inputs as the complete annotation set of inspectionID.
// A nil inputs slice is rejected; an empty one clears the inspection. On
// any storage failure the previous set is left untouched. The stored rows
// are returned in submission order.
func (rc *Reconciler) Replace(ctx context.Context, inspectionID, userID string, inputs []Input) ([]entities.Annotation, error) {
	if err := validateInspectionID(inspectionID); err != nil {
		rc.metrics.RecordError(metrics.OpReplace, "validation")
		return nil, err
	}
	if inputs == nil {
		rc.metrics.RecordError(metrics.OpReplace, "validation")
		return nil, errors.ValidationError("annotations list is required")
	}

	start := time.Now()
	rows := BuildRows(rc.resolver, inspectionID, userID, inputs, rc.now())

	if err := rc.repo.Replace(ctx, inspectionID, rows); err != nil {
		rc.metrics.RecordError(metrics.OpReplace, "database")
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "replace_annotations").
			Context("inspection_id", inspectionID).
			Context("rows", len(rows)).
			Build()
	}

	softDeleted := 0
	for i := range rows {
		if rows[i].IsDeleted {
			softDeleted++
		}
	}
	elapsed := time.Since(start)
	rc.metrics.ObserveReplace(elapsed.Seconds(), len(rows), softDeleted)

	rc.log.WithContext(ctx).Info("annotations replaced",
		logger.String("inspection_id", inspectionID),
		logger.Int("count", len(rows)),
		logger.Int("soft_deleted", softDeleted),
		logger.Duration("elapsed", elapsed))
	return rows, nil
}

// DeleteAll removes every annotation of inspectionID and returns how many
// rows were removed.
func (rc *Reconciler) DeleteAll(ctx context.Context, inspectionID string) (int64, error) {
	if err := validateInspectionID(inspectionID); err != nil {
		rc.metrics.RecordError(metrics.OpDeleteAll, "validation")
		return 0, err
	}

	start := time.Now()
	removed, err := rc.repo.DeleteByInspection(ctx, inspectionID)
	if err != nil {
		rc.metrics.RecordError(metrics.OpDeleteAll, "database")
		return 0, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "delete_annotations").
			Context("inspection_id", inspectionID).
			Build()
	}
	rc.metrics.ObserveDeleteAll(time.Since(start).Seconds(), removed)

	rc.log.WithContext(ctx).Info("annotations deleted",
		logger.String("inspection_id", inspectionID),
		logger.Int64("count", removed))
	return removed, nil
}

// ExistsAndCount reports whether the inspection has any stored rows,
// soft-deleted ones included.
func (rc *Reconciler) ExistsAndCount(ctx context.Context, inspectionID string) (bool, int64, error) {
	if err := validateInspectionID(inspectionID); err != nil {
		return false, 0, err
	}

	count, err := rc.repo.CountByInspection(ctx, inspectionID)
	if err != nil {
		rc.metrics.RecordError(metrics.OpCount, "database")
		return false, 0, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "count_annotations").
			Context("inspection_id", inspectionID).
			Build()
	}
	rc.metrics.RecordOperation(metrics.OpCount, metrics.StatusSuccess)
	return count > 0, count, nil
}
