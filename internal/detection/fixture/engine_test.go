package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
images:
  https://img.test/t1.jpg:
    label: Faulty
    overlay_url: https://img.test/t1-boxed.jpg
    detections:
      - box: {x: 10, y: 20, width: 30, height: 40}
        label: Faulty
        confidence: 0.91
      - box: {x: 50, y: 60, width: 5, height: 5}
        label: Potentially Faulty
        confidence: 0.42
default:
  label: Normal
`

func TestParse_DetectKnownImage(t *testing.T) {
	t.Parallel()

	e, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	res, err := e.Detect(t.Context(), "https://img.test/t1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Faulty", res.Label)
	assert.Equal(t, "https://img.test/t1-boxed.jpg", res.OverlayImageURL)
	require.Len(t, res.Detections, 2)
	assert.Equal(t, 30, res.Detections[0].Box.Width)
	assert.Equal(t, "Potentially Faulty", res.Detections[1].Label)
	assert.InDelta(t, 0.42, res.Detections[1].Confidence, 1e-9)

	// results are copies
	res.Detections[0].Label = "mutated"
	again, err := e.Detect(t.Context(), "https://img.test/t1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Faulty", again.Detections[0].Label)
}

func TestParse_DefaultEntry(t *testing.T) {
	t.Parallel()

	e, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	res, err := e.Detect(t.Context(), "https://img.test/unknown.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Normal", res.Label)
	assert.Empty(t, res.Detections)
}

func TestDetect_NoFixture(t *testing.T) {
	t.Parallel()

	e, err := Parse([]byte("images: {}\n"))
	require.NoError(t, err)

	_, err = e.Detect(t.Context(), "https://img.test/x.jpg")
	require.ErrorIs(t, err, ErrNoFixture)
	assert.True(t, errors.IsNotFound(err))
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("images: [not, a, map"))
	require.Error(t, err)

	_, err = Parse([]byte(`
images:
  a:
    detections:
      - box: {x: 0, y: 0, width: 0, height: 3}
        confidence: 0.5
`))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestLoadAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default:\n  label: Normal\n"), 0o600))

	e, err := Load(path)
	require.NoError(t, err)
	assert.True(t, e.IsAvailable(t.Context()))
	assert.Equal(t, path, e.Metadata()["path"])

	require.NoError(t, os.WriteFile(path, []byte("default:\n  label: Faulty\n"), 0o600))
	require.NoError(t, e.Reload())

	res, err := e.Detect(t.Context(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "Faulty", res.Label)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDetect_CancelledContext(t *testing.T) {
	t.Parallel()

	e, err := Parse([]byte(fixtureYAML))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.False(t, e.IsAvailable(ctx))
	_, err = e.Detect(ctx, "https://img.test/t1.jpg")
	require.ErrorIs(t, err, context.Canceled)
}
