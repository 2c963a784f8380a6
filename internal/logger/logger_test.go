package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlogLogger_FiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Info("visible", String("inspection_id", "INSP-001"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "inspection_id=INSP-001")
}

func TestModuleLogger_ModuleNesting(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("annotation").Module("identity")

	log.Warn("fallback")

	assert.Contains(t, buf.String(), "module=annotation.identity")
}

func TestModuleLogger_WithIsImmutable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewSlogLogger(&buf, LogLevelInfo, time.UTC)
	child := base.With(String("engine", "HuggingFace"))

	base.Info("from base")
	child.Info("from child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "engine=")
	assert.Contains(t, lines[1], "engine=HuggingFace")
}

func TestModuleLogger_WithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(t.Context(), "abc-123")
	log.WithContext(ctx).Info("request")
	log.WithContext(t.Context()).Info("no trace")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "trace_id=abc-123"))
}

func TestModuleLogger_TraceLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, time.UTC)
	log.Trace("sql query")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestFieldToAttr(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.123, fieldToAttr(Float64("c", 0.123456)).Value.Float64(), 1e-9)
	assert.Equal(t, "1.5s", fieldToAttr(Duration("d", 1500*time.Millisecond)).Value.String())
	assert.Equal(t, uint64(7), fieldToAttr(Uint("id", 7)).Value.Uint64())
	assert.Nil(t, Error(nil).Value)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, traceLevelValue, parseLogLevel("trace"))
	assert.Equal(t, parseLogLevel("info"), parseLogLevel("bogus"))
	assert.Less(t, parseLogLevel("debug"), parseLogLevel("warn"))
}

func TestNewCentralLogger_NilConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)
}

func TestNewCentralLogger_InvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timezone")
}

func TestNewCentralLogger_FileOutputJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "warn"},
	})
	require.NoError(t, err)

	cl.Module("annotation").Debug("rows built", Int("count", 3))
	cl.Module("datastore").Info("suppressed by module level")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "rows built", entry["msg"])
	assert.Equal(t, "annotation", entry["module"])
	assert.InDelta(t, 3, entry["count"], 0)
}

func TestCentralLogger_NilSafe(t *testing.T) {
	t.Parallel()

	var cl *CentralLogger
	assert.Nil(t, cl.Module("x"))
	assert.NoError(t, cl.Flush())
	assert.NoError(t, cl.Close())
}
