package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMaxSizeBytes(n int64) BufferedWriterOption {
	return func(w *BufferedFileWriter) { w.maxSize = n }
}

func TestBufferedFileWriter_WriteAndClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewBufferedFileWriter(path)
	require.NoError(t, err)

	_, err = w.Write([]byte("first line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first line\n", string(data))

	// Close is idempotent and writes after close fail.
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("late"))
	require.Error(t, err)
}

func TestBufferedFileWriter_FlushInterval(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewBufferedFileWriter(path, WithFlushInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte("buffered\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "buffered\n"
	}, time.Second, 10*time.Millisecond)
}

func TestBufferedFileWriter_Rotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	w, err := NewBufferedFileWriter(path, WithRotation(0, 2), withMaxSizeBytes(16))
	require.NoError(t, err)

	for range 5 {
		_, err = w.Write([]byte("0123456789abc\n"))
		require.NoError(t, err)
		// distinct rotation timestamps
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, w.Close())

	rotated, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Len(t, rotated, 2, "only maxRotated files are kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}
