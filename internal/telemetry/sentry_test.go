package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDSN = "https://public@o0.ingest.sentry.io/1"

// mockTransport captures events instead of sending them.
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *mockTransport) Configure(sentry.ClientOptions) {}
func (t *mockTransport) Close()                         {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool              { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func enabledSettings() *conf.Settings {
	s := &conf.Settings{Version: "1.4.0"}
	s.Sentry.Enabled = true
	s.Sentry.DSN = testDSN
	s.Sentry.Environment = "test"
	s.Database.Type = conf.DatabaseSQLite
	return s
}

func TestInitSentry_Disabled(t *testing.T) {
	require.NoError(t, InitSentry(&conf.Settings{}))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestInitSentry_ReportsEnhancedErrors(t *testing.T) {
	transport := &mockTransport{}
	require.NoError(t, initSentry(enabledSettings(), transport))
	t.Cleanup(func() { errors.SetTelemetryReporter(nil) })

	reporter := errors.GetTelemetryReporter()
	require.NotNil(t, reporter)
	assert.True(t, reporter.IsEnabled())

	_ = errors.Newf("engine returned 503 for https://space.example/infer?token=abc").
		Category(errors.CategoryDetection).
		Context("operation", "detect_image").
		Build()

	assert.Eventually(t, func() bool { return len(transport.Events()) == 1 }, time.Second, 10*time.Millisecond)

	ev := transport.Events()[0]
	assert.Equal(t, string(errors.CategoryDetection), ev.Tags["category"])
	assert.Equal(t, "sqlite", ev.Tags["database"])
	assert.Equal(t, "thermalwatch@1.4.0", ev.Release)
	assert.Equal(t, sentry.LevelWarning, ev.Level)
	assert.NotContains(t, ev.Message, "token=abc")
	assert.Empty(t, ev.ServerName)
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	ev := sentry.NewEvent()
	ev.User = sentry.User{ID: "u1", IPAddress: "10.0.0.1"}
	ev.ServerName = "substation-7"
	ev.Contexts["os"] = sentry.Context{"name": "linux"}
	ev.Contexts["application"] = sentry.Context{"name": "thermalwatch"}
	ev.Extra = map[string]any{"component": "anomaly", "inspection": "INSP-1"}
	ev.Tags = map[string]string{"hostname": "substation-7", "category": "database"}

	out := applyPrivacyFilters(ev)

	assert.True(t, out.User.IsEmpty())
	assert.Empty(t, out.ServerName)
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "application")
	assert.Equal(t, map[string]any{"component": "anomaly"}, out.Extra)
	assert.Equal(t, map[string]string{"category": "database"}, out.Tags)
}

func TestRecoverAndReport_Repanics(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		defer RecoverAndReport("test")
		panic("boom")
	})
}
