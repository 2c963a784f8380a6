// Package logger provides module-scoped structured logging on top of log/slog.
//
// Loggers are obtained from the central logger by module name:
//
//	log := logger.Global().Module("annotation")
//	log.Info("annotations replaced",
//	    logger.String("inspection_id", id),
//	    logger.Int("count", len(rows)))
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel is a textual log level as used in configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field is a typed key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// internKey deduplicates the handful of field keys used on hot paths.
func internKey(key string) string {
	return unique.Make(key).Value()
}

var errorKey = internKey("error")

const (
	moduleKey  = "module"
	traceIDKey = "trace_id"
)

// Logger is the logging interface used throughout the application.
type Logger interface {
	// Module returns a child logger scoped to "parent.name".
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger
	// WithContext attaches request scoped values such as the trace id.
	WithContext(ctx context.Context) Logger

	Log(level LogLevel, msg string, fields ...Field)

	Flush() error
}

func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

func Uint(key string, value uint) Field {
	return Field{Key: internKey(key), Value: uint64(value)}
}

func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an "error" field. A nil error yields a nil value.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
