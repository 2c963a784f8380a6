package anomaly

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/detection"
	twerrors "github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

type stubEngine struct {
	name      string
	available bool
	result    *detection.Result
	err       error
}

func (e *stubEngine) Name() string                     { return e.name }
func (e *stubEngine) Version() string                  { return "2.1.0" }
func (e *stubEngine) ModelName() string                { return e.name + "-model" }
func (e *stubEngine) IsAvailable(context.Context) bool { return e.available }

func (e *stubEngine) Detect(context.Context, string) (*detection.Result, error) {
	return e.result, e.err
}

func (e *stubEngine) Metadata() map[string]any {
	return map[string]any{"name": e.name, "version": "2.1.0"}
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []uint
	err     error
}

func (p *recordingPublisher) PublishDetection(_ context.Context, rec *entities.DetectionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec.ID)
	return p.err
}

type recordingAlerter struct {
	calls int
	err   error
}

func (a *recordingAlerter) AlertCritical(context.Context, *entities.DetectionRecord) error {
	a.calls++
	return a.err
}

type fixture struct {
	svc         *Service
	records     repository.DetectionRecordRepository
	annotations repository.DetectionAnnotationRepository
	registry    *detection.Registry
}

func newFixture(t *testing.T, engines []detection.Engine, opts ...Option) *fixture {
	t.Helper()

	m, err := datastore.NewSQLiteManager(datastore.SQLiteConfig{Path: filepath.Join(t.TempDir(), "anomaly.db")})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	registry := detection.NewRegistry("HuggingFace")
	for _, e := range engines {
		require.NoError(t, registry.Register(e))
	}

	records := repository.NewDetectionRecordRepository(m.DB())
	annotations := repository.NewDetectionAnnotationRepository(m.DB())
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return &fixture{
		svc:         NewService(registry, records, annotations, opts...),
		records:     records,
		annotations: annotations,
		registry:    registry,
	}
}

func threeFindings() *detection.Result {
	return &detection.Result{
		Label:           "Faulty",
		OverlayImageURL: "https://cdn.example/overlay.png",
		Detections: []detection.Detection{
			{Box: detection.BoundingBox{X: 10, Y: 20, Width: 30, Height: 40}, Label: "Faulty", Confidence: 0.92},
			{Box: detection.BoundingBox{X: 50, Y: 60, Width: 10, Height: 10}, Label: "Potentially Faulty", Confidence: 0.71},
			{Box: detection.BoundingBox{X: 5, Y: 5, Width: 8, Height: 8}, Label: "Normal", Confidence: 0.41},
		},
	}
}

func TestDetect_StoresRecordAndSeedsAnnotations(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	dm, err := metrics.NewDetectionMetrics(reg)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	alert := &recordingAlerter{}
	hf := &stubEngine{name: "HuggingFace", available: true, result: threeFindings()}
	f := newFixture(t, []detection.Engine{hf},
		WithSeedAnnotations(true), WithPublisher(pub), WithAlerter(alert), WithMetrics(dm))

	resp, err := f.svc.Detect(t.Context(), Request{
		ImageURL:      "https://cdn.example/maint.png",
		InspectionID:  "INSP-001",
		TransformerID: "TX-9",
	})
	require.NoError(t, err)
	require.True(t, resp.Stored)

	rec := resp.Record
	assert.NotZero(t, rec.ID)
	assert.Equal(t, "HuggingFace", rec.EngineName)
	assert.Equal(t, "2.1.0", rec.EngineVersion)
	assert.Equal(t, 3, rec.TotalDetections)
	assert.Equal(t, 1, rec.CriticalCount)
	assert.Equal(t, 1, rec.WarningCount)
	assert.Equal(t, 1, rec.UncertainCount)
	assert.Equal(t, fixedNow, rec.DetectedAt)
	require.NotNil(t, rec.InspectionID)
	assert.Equal(t, "INSP-001", *rec.InspectionID)

	stored, err := f.svc.Get(t.Context(), rec.ID)
	require.NoError(t, err)
	dets, err := stored.Detections()
	require.NoError(t, err)
	assert.Len(t, dets, 3)

	seeded, err := f.annotations.FindByDetectionRecord(t.Context(), rec.ID)
	require.NoError(t, err)
	require.Len(t, seeded, 3)
	for _, a := range seeded {
		assert.Equal(t, entities.AnnotationTypeAI, a.AnnotationType)
		assert.Equal(t, "https://cdn.example/maint.png", a.ImageRef)
	}

	assert.Equal(t, []uint{rec.ID}, pub.records)
	assert.Equal(t, 1, alert.calls)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "detection_runs_total")
	assert.Contains(t, names, "detection_records_stored_total")
}

func TestDetect_NoCriticalSkipsAlert(t *testing.T) {
	t.Parallel()

	alert := &recordingAlerter{}
	hf := &stubEngine{name: "HuggingFace", available: true, result: &detection.Result{Label: "Normal"}}
	f := newFixture(t, []detection.Engine{hf}, WithAlerter(alert), WithSeedAnnotations(true))

	resp, err := f.svc.Detect(t.Context(), Request{ImageURL: "https://cdn.example/a.png"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Summary.Total)
	assert.Nil(t, resp.Record.MaxConfidence)
	assert.Nil(t, resp.Record.InspectionID)
	assert.Zero(t, alert.calls)
}

func TestDetect_FallsBackToAvailableEngine(t *testing.T) {
	t.Parallel()

	hf := &stubEngine{name: "HuggingFace", available: false, err: errors.New("should not be called")}
	fx := &stubEngine{name: "Fixture", available: true, result: threeFindings()}
	f := newFixture(t, []detection.Engine{hf, fx})

	resp, err := f.svc.Detect(t.Context(), Request{ImageURL: "https://cdn.example/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "Fixture", resp.Record.EngineName)
}

func TestDetect_EngineFailure(t *testing.T) {
	t.Parallel()

	hf := &stubEngine{name: "HuggingFace", available: true, err: errors.New("space sleeping")}
	f := newFixture(t, []detection.Engine{hf})

	_, err := f.svc.Detect(t.Context(), Request{ImageURL: "https://cdn.example/a.png"})
	require.Error(t, err)
	assert.True(t, twerrors.IsCategory(err, twerrors.CategoryDetection))

	recs, err := f.records.FindByRange(t.Context(), fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDetect_RequiresImageURL(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []detection.Engine{&stubEngine{name: "HuggingFace", available: true}})

	_, err := f.svc.Detect(t.Context(), Request{ImageURL: "  "})
	assert.True(t, twerrors.IsValidation(err))
}

type failingRecords struct {
	repository.DetectionRecordRepository
	mock.Mock
}

func (r *failingRecords) Create(ctx context.Context, rec *entities.DetectionRecord) error {
	return r.Called(ctx, rec).Error(0)
}

func TestDetect_StorageFailureStillReturnsResult(t *testing.T) {
	t.Parallel()

	records := &failingRecords{}
	records.On("Create", mock.Anything, mock.Anything).Return(errors.New("database is locked"))
	pub := &recordingPublisher{}

	registry := detection.NewRegistry("HuggingFace")
	require.NoError(t, registry.Register(&stubEngine{name: "HuggingFace", available: true, result: threeFindings()}))
	svc := NewService(registry, records, nil, WithPublisher(pub), WithSeedAnnotations(true))

	resp, err := svc.Detect(t.Context(), Request{ImageURL: "https://cdn.example/a.png"})
	require.NoError(t, err)
	assert.False(t, resp.Stored)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Empty(t, pub.records, "unstored records are not published")
	records.AssertExpectations(t)
}

func TestDetect_PublishFailureIgnored(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{err: errors.New("broker down")}
	f := newFixture(t, []detection.Engine{&stubEngine{name: "HuggingFace", available: true, result: threeFindings()}},
		WithPublisher(pub))

	resp, err := f.svc.Detect(t.Context(), Request{ImageURL: "https://cdn.example/a.png"})
	require.NoError(t, err)
	assert.True(t, resp.Stored)
	assert.Len(t, pub.records, 1)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []detection.Engine{
		&stubEngine{name: "HuggingFace", available: false},
		&stubEngine{name: "Fixture", available: true},
	})

	h := f.svc.Health(t.Context())
	assert.Equal(t, "HuggingFace", h.DefaultEngine)
	assert.Equal(t, 2, h.TotalEngines)
	assert.Equal(t, 1, h.AvailableEngines)
	assert.Equal(t, fixedNow, h.Timestamp)

	meta := f.svc.Engines()
	assert.Contains(t, meta, "Fixture")
	assert.Equal(t, "2.1.0", meta["HuggingFace"]["version"])
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.svc.Get(t.Context(), 4242)
	require.Error(t, err)
	assert.True(t, twerrors.IsNotFound(err))
	assert.ErrorIs(t, err, repository.ErrDetectionRecordNotFound)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	hf := &stubEngine{name: "HuggingFace", available: true, result: threeFindings()}
	f := newFixture(t, []detection.Engine{hf})

	for _, req := range []Request{
		{ImageURL: "https://cdn.example/1.png", InspectionID: "INSP-1", TransformerID: "TX-1"},
		{ImageURL: "https://cdn.example/2.png", InspectionID: "INSP-2", TransformerID: "TX-1"},
		{ImageURL: "https://cdn.example/3.png", InspectionID: "INSP-2", TransformerID: "TX-2"},
	} {
		_, err := f.svc.Detect(t.Context(), req)
		require.NoError(t, err)
	}

	byTx, err := f.svc.HistoryByTransformer(t.Context(), "TX-1")
	require.NoError(t, err)
	require.Len(t, byTx, 2)
	assert.Equal(t, "https://cdn.example/2.png", byTx[0].MaintenanceImageURL, "newest first")

	byInsp, err := f.svc.HistoryByInspection(t.Context(), "INSP-2")
	require.NoError(t, err)
	assert.Len(t, byInsp, 2)

	none, err := f.svc.HistoryByInspection(t.Context(), "INSP-404")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	inRange, err := f.svc.HistoryByRange(t.Context(), fixedNow.Add(-time.Minute), fixedNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, inRange, 3)

	_, err = f.svc.HistoryByRange(t.Context(), fixedNow, fixedNow.Add(-time.Second))
	assert.True(t, twerrors.IsValidation(err))

	_, err = f.svc.HistoryByTransformer(t.Context(), "")
	assert.True(t, twerrors.IsValidation(err))
}

func TestProvideFeedback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []detection.Engine{&stubEngine{name: "HuggingFace", available: true, result: threeFindings()}})
	resp, err := f.svc.Detect(t.Context(), Request{ImageURL: "https://cdn.example/a.png"})
	require.NoError(t, err)

	rec, err := f.svc.ProvideFeedback(t.Context(), resp.Record.ID, false, "hotspot is a reflection")
	require.NoError(t, err)
	assert.True(t, rec.FeedbackProvided)
	require.NotNil(t, rec.FeedbackCorrect)
	assert.False(t, *rec.FeedbackCorrect)
	assert.Equal(t, "hotspot is a reflection", rec.FeedbackNotes)

	_, err = f.svc.ProvideFeedback(t.Context(), 999, true, "")
	assert.True(t, twerrors.IsNotFound(err))
}

func TestUpdateCounts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []detection.Engine{&stubEngine{name: "HuggingFace", available: true, result: threeFindings()}})
	_, err := f.svc.Detect(t.Context(), Request{ImageURL: "https://cdn.example/a.png", InspectionID: "INSP-7"})
	require.NoError(t, err)

	rec, err := f.svc.UpdateCounts(t.Context(), "INSP-7", 5, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.TotalDetections)
	assert.Equal(t, 2, rec.CriticalCount)
	assert.Equal(t, 2, rec.WarningCount)

	tests := []struct {
		name         string
		inspectionID string
		total        int
		critical     int
		warning      int
		check        func(error) bool
	}{
		{"unknown inspection", "INSP-404", 1, 0, 0, twerrors.IsNotFound},
		{"blank inspection", " ", 1, 0, 0, twerrors.IsValidation},
		{"negative", "INSP-7", -1, 0, 0, twerrors.IsValidation},
		{"exceeds total", "INSP-7", 1, 1, 1, twerrors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateCounts(t.Context(), tt.inspectionID, tt.total, tt.critical, tt.warning)
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}
