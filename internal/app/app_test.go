package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gridsight/thermalwatch/internal/anomaly"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/detection/fixture"
	"github.com/gridsight/thermalwatch/internal/detection/huggingface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
images:
  https://img.example/t1.jpg:
    label: Faulty
    detections:
      - box: {x: 10, y: 20, width: 30, height: 40}
        label: Faulty
        confidence: 0.91
      - box: {x: 1, y: 1, width: 5, height: 5}
        label: Normal
        confidence: 0.3
default:
  label: Normal
`

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixtures.yaml"), []byte(fixtureYAML), 0o600))

	s := &conf.Settings{}
	s.Main.DataDir = dir
	s.Database.Type = conf.DatabaseSQLite
	s.Database.SQLite.Path = "app.db"
	s.Detection.DefaultEngine = fixture.EngineName
	s.Detection.SeedAnnotations = true
	s.Detection.Fixture.Enabled = true
	s.Detection.Fixture.Path = "fixtures.yaml"
	return s
}

func TestNew_WiresServices(t *testing.T) {
	t.Parallel()

	a, err := New(t.Context(), testSettings(t), WithIntegrations(true))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	assert.Equal(t, []string{fixture.EngineName}, a.Registry.Names())

	svc := a.Services()
	require.NotNil(t, svc.Reconciler)
	require.NotNil(t, svc.Queries)
	require.NotNil(t, svc.Feedback)

	resp, err := a.Anomalies.Detect(t.Context(), anomaly.Request{
		ImageURL:     "https://img.example/t1.jpg",
		InspectionID: "INSP-1",
	})
	require.NoError(t, err)
	require.True(t, resp.Stored)
	assert.Equal(t, 1, resp.Summary.CriticalCount)

	seeded, err := a.Queries.ByDetectionRecord(t.Context(), resp.Record.ID)
	require.NoError(t, err)
	assert.Len(t, seeded, 2)
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.Detection.DefaultEngine = ""
	s.Detection.HuggingFace.Enabled = true
	s.Detection.HuggingFace.BaseURL = "https://space.example"

	r, err := NewRegistry(s)
	require.NoError(t, err)
	assert.Equal(t, []string{huggingface.EngineName, fixture.EngineName}, r.Names())
	assert.Equal(t, huggingface.EngineName, r.DefaultName())
}

func TestNewRegistry_MissingFixtureFile(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.Detection.Fixture.Path = "missing.yaml"

	_, err := NewRegistry(s)
	require.Error(t, err)
}
