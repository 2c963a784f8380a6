package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_HandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Annotation.ObserveReplace(0.01, 3, 1)
	m.Detection.ObserveRun("HuggingFace", "success", 1.2)
	m.HTTP.ObserveRequest(http.MethodGet, "/api/v2/anomalies/health", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, "annotation_rows_written_total 3")
	assert.Contains(t, out, `detection_runs_total{engine="HuggingFace",status="success"} 1`)
	assert.Contains(t, out, "go_goroutines")
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	t.Parallel()

	_, err := NewMetrics()
	require.NoError(t, err)
	_, err = NewMetrics()
	require.NoError(t, err)
}
