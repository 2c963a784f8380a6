package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	twerrors "github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/observability/metrics"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu     sync.Mutex
	errs   []error
	bodies []string
	titles []string
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, message)
	title, _ := params.Title()
	f.titles = append(f.titles, title)
	return f.errs
}

func criticalRecord(critical int) *entities.DetectionRecord {
	tx, insp := "TX-3", "INSP-001"
	maxConf := 0.934
	return &entities.DetectionRecord{
		ID:                  11,
		TransformerID:       &tx,
		InspectionID:        &insp,
		MaintenanceImageURL: "https://img/thermal.jpg",
		OverlayImageURL:     "https://img/overlay.jpg",
		EngineName:          "HuggingFace",
		OverallLabel:        "Faulty",
		CriticalCount:       critical,
		WarningCount:        1,
		MaxConfidence:       &maxConf,
	}
}

func newTestNotifier(t *testing.T, sender Sender, cfg Config) *Notifier {
	t.Helper()
	m, err := metrics.NewNotificationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	if cfg.URLs == nil {
		cfg.URLs = []string{"slack://token@channel", "teams://group@tenant/altId/groupOwner"}
	}
	return NewWithSender(sender, cfg, m)
}

func TestNotifier_AlertCritical(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := newTestNotifier(t, sender, Config{NodeName: "substation-4"})

	require.NoError(t, n.AlertCritical(t.Context(), criticalRecord(2)))

	require.Len(t, sender.bodies, 1)
	body := sender.bodies[0]
	assert.Contains(t, body, "2 critical, 1 warning finding(s) on transformer TX-3 (inspection INSP-001).")
	assert.Contains(t, body, "max confidence 0.93")
	assert.Contains(t, body, "Overlay: https://img/overlay.jpg")
	assert.Equal(t, "[substation-4] Critical thermal anomaly", sender.titles[0])
}

func TestNotifier_SkipsBelowThreshold(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := newTestNotifier(t, sender, Config{MinCritical: 2})

	require.NoError(t, n.AlertCritical(t.Context(), criticalRecord(1)))
	require.NoError(t, n.AlertCritical(t.Context(), nil))
	assert.Empty(t, sender.bodies)
	assert.True(t, n.ShouldAlert(criticalRecord(2)))
}

func TestNotifier_DeliveryFailureScrubsURL(t *testing.T) {
	t.Parallel()

	urls := []string{"slack://xoxb-secret@C123", "teams://group@tenant/altId/groupOwner"}
	sender := &fakeSender{errs: []error{errors.New("post slack://xoxb-secret@C123 failed: 500"), nil}}
	n := newTestNotifier(t, sender, Config{URLs: urls})

	err := n.AlertCritical(t.Context(), criticalRecord(1))
	require.Error(t, err)
	assert.True(t, twerrors.IsCategory(err, twerrors.CategoryNotification))
	assert.NotContains(t, err.Error(), "xoxb-secret")
	assert.Contains(t, err.Error(), "slack://***")
}

func TestNotifier_BreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{errs: []error{errors.New("boom")}}
	n := newTestNotifier(t, sender, Config{
		URLs:    []string{"generic://example.com/hook"},
		Breaker: CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour},
	})

	for range 2 {
		require.Error(t, n.AlertCritical(t.Context(), criticalRecord(1)))
	}
	err := n.AlertCritical(t.Context(), criticalRecord(1))
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Len(t, sender.bodies, 2, "open breaker does not call the sender")
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.Error(t, err)

	_, err = New(Config{URLs: []string{"nosuchservice://abc"}}, nil)
	require.Error(t, err)
	assert.True(t, twerrors.IsCategory(err, twerrors.CategoryConfiguration))
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute})
	now := time.Now()
	cb.now = func() time.Time { return now }

	fail := func(context.Context) error { return errors.New("down") }
	ok := func(context.Context) error { return nil }

	require.Error(t, cb.Call(t.Context(), fail))
	assert.Equal(t, StateOpen, cb.State())
	require.ErrorIs(t, cb.Call(t.Context(), ok), ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Call(t.Context(), ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_IgnoresCancellation(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute})
	err := cb.Call(t.Context(), func(context.Context) error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}
