package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gridsight/thermalwatch/internal/errors"
)

const (
	// DefaultBufferSize is the write buffer size for log files.
	DefaultBufferSize = 32 * 1024
	// DefaultFlushInterval is how often buffered log data is pushed to the OS.
	DefaultFlushInterval = 5 * time.Second
	// LogFilePermissions restricts log files to the owner.
	LogFilePermissions = 0o600

	bytesPerMB = 1024 * 1024
)

// BufferedFileWriter is a buffered, size-rotated log file writer.
// It is safe for concurrent use.
type BufferedFileWriter struct {
	mu          sync.Mutex
	file        *os.File
	writer      *bufio.Writer
	filePath    string
	size        int64
	maxSize     int64
	maxRotated  int
	stopFlush   chan struct{}
	flushDone   chan struct{}
	flushTicker *time.Ticker
}

// BufferedWriterOption configures a BufferedFileWriter.
type BufferedWriterOption func(*BufferedFileWriter)

// WithRotation rotates the file once it exceeds maxSizeMB, keeping maxRotated old files.
func WithRotation(maxSizeMB, maxRotated int) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		if maxSizeMB > 0 {
			w.maxSize = int64(maxSizeMB) * bytesPerMB
		}
		w.maxRotated = maxRotated
	}
}

// WithFlushInterval overrides DefaultFlushInterval.
func WithFlushInterval(interval time.Duration) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		if interval > 0 {
			w.flushTicker = time.NewTicker(interval)
		}
	}
}

// NewBufferedFileWriter opens filePath for appending and starts the flush loop.
func NewBufferedFileWriter(filePath string, opts ...BufferedWriterOption) (*BufferedFileWriter, error) {
	w := &BufferedFileWriter{
		filePath:  filePath,
		stopFlush: make(chan struct{}),
		flushDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.openLocked(); err != nil {
		return nil, err
	}

	if w.flushTicker == nil {
		w.flushTicker = time.NewTicker(DefaultFlushInterval)
	}
	go w.autoFlushLoop()

	return w, nil
}

func (w *BufferedFileWriter) openLocked() error {
	file, err := os.OpenFile(w.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", w.filePath, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat log file %s: %w", w.filePath, err)
	}
	w.file = file
	w.size = info.Size()
	w.writer = bufio.NewWriterSize(file, DefaultBufferSize)
	return nil
}

func (w *BufferedFileWriter) autoFlushLoop() {
	defer close(w.flushDone)
	for {
		select {
		case <-w.stopFlush:
			return
		case <-w.flushTicker.C:
			_ = w.Flush()
		}
	}
}

// Write implements io.Writer.
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	if w.maxSize > 0 && w.size+int64(len(p)) > w.maxSize && w.size > 0 {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.writer.Write(p)
	w.size += int64(n)
	return n, err
}

// rotateLocked renames the current file to path.<timestamp> and reopens.
func (w *BufferedFileWriter) rotateLocked() error {
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush before rotation: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file for rotation: %w", err)
	}

	rotated := fmt.Sprintf("%s.%s", w.filePath, time.Now().Format("20060102T150405.000000000"))
	if err := os.Rename(w.filePath, rotated); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	w.pruneLocked()
	return w.openLocked()
}

// pruneLocked removes the oldest rotated files beyond maxRotated.
func (w *BufferedFileWriter) pruneLocked() {
	if w.maxRotated <= 0 {
		return
	}
	matches, err := filepath.Glob(w.filePath + ".*")
	if err != nil || len(matches) <= w.maxRotated {
		return
	}
	// Timestamp suffixes sort chronologically.
	slices.SortFunc(matches, strings.Compare)
	for _, old := range matches[:len(matches)-w.maxRotated] {
		_ = os.Remove(old)
	}
}

// Flush pushes buffered data to the OS.
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}

// Close stops the flush loop, flushes, syncs and closes the file.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.writer == nil {
		w.mu.Unlock()
		return nil
	}
	close(w.stopFlush)
	w.flushTicker.Stop()

	var errs []error
	if err := w.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush buffer: %w", err))
	}
	if err := w.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("failed to sync log file: %w", err))
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
	}
	w.writer = nil
	w.file = nil
	w.mu.Unlock()

	<-w.flushDone
	return errors.Join(errs...)
}
