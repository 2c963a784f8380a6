// Package telemetry reports categorized errors to Sentry. Reporting is
// opt-in and events are stripped of host and user details before sending.
package telemetry

import (
	"runtime"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
)

const defaultFlushTimeout = 2 * time.Second

var (
	initMu      sync.Mutex
	initialized bool
)

// InitSentry initializes the Sentry SDK and installs the error reporter.
// It does nothing when Sentry is disabled.
func InitSentry(settings *conf.Settings) error {
	return initSentry(settings, nil)
}

func initSentry(settings *conf.Settings, transport sentry.Transport) error {
	log := logger.Global().Module("telemetry")
	if settings == nil || !settings.Sentry.Enabled {
		log.Info("sentry telemetry is disabled")
		errors.SetTelemetryReporter(nil)
		return nil
	}

	initMu.Lock()
	defer initMu.Unlock()

	sampleRate := settings.Sentry.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}
	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       sampleRate,
		Debug:            settings.Sentry.Debug,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          "thermalwatch@" + releaseVersion(settings),
		BeforeSend:       beforeSend,
		Transport:        transport,
	})
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	configureScope(settings)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized = true

	log.Info("sentry telemetry initialized",
		logger.String("environment", environment),
		logger.Float64("sample_rate", sampleRate))
	return nil
}

func releaseVersion(settings *conf.Settings) string {
	if settings.Version == "" {
		return "dev"
	}
	return settings.Version
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	return applyPrivacyFilters(event)
}

// applyPrivacyFilters removes user, host and runtime details from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	for _, key := range []string{"device", "os", "runtime"} {
		delete(event.Contexts, key)
	}
	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}
	delete(event.Tags, "server_name")
	delete(event.Tags, "hostname")
	return event
}

func configureScope(settings *conf.Settings) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("database", settings.Database.Type)
		scope.SetContext("application", map[string]any{
			"name":           "thermalwatch",
			"version":        releaseVersion(settings),
			"default_engine": settings.Detection.DefaultEngine,
			"go_version":     runtime.Version(),
		})
	})
}

// Flush waits for queued events. It returns false on timeout or when
// Sentry was never initialized.
func Flush(timeout time.Duration) bool {
	initMu.Lock()
	ok := initialized
	initMu.Unlock()
	if !ok {
		return false
	}
	if timeout <= 0 {
		timeout = defaultFlushTimeout
	}
	return sentry.Flush(timeout)
}

// RecoverAndReport reports a panic to Sentry and re-panics. Use it as
// `defer telemetry.RecoverAndReport("component")` at goroutine roots.
func RecoverAndReport(component string) {
	r := recover()
	if r == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag("component", component)
	hub.Recover(r)
	Flush(defaultFlushTimeout)
	panic(r)
}
