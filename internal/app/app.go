// Package app builds the thermalwatch object graph from settings and tears
// it down again. Commands share it so that serve, detect and export see the
// same stores and engines.
package app

import (
	"context"
	"time"

	"github.com/gridsight/thermalwatch/internal/annotation"
	"github.com/gridsight/thermalwatch/internal/anomaly"
	v2 "github.com/gridsight/thermalwatch/internal/api/v2"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/datastore"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/detection"
	"github.com/gridsight/thermalwatch/internal/detection/fixture"
	"github.com/gridsight/thermalwatch/internal/detection/huggingface"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/feedback"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/gridsight/thermalwatch/internal/mqtt"
	"github.com/gridsight/thermalwatch/internal/notification"
	"github.com/gridsight/thermalwatch/internal/observability"
)

// App holds the long-lived components of a running process.
type App struct {
	Settings *conf.Settings
	Store    datastore.Manager
	Metrics  *observability.Metrics
	Registry *detection.Registry

	Reconciler *annotation.Reconciler
	Queries    *annotation.QueryService
	Editor     *annotation.Editor
	Anomalies  *anomaly.Service
	Feedback   *feedback.Service

	mqttClient mqtt.Client
	log        logger.Logger
}

// Option configures New.
type Option func(*options)

type options struct {
	integrations bool
	engines      []detection.Engine
}

// WithIntegrations connects MQTT and notifications. One-off commands leave
// them off.
func WithIntegrations(enabled bool) Option {
	return func(o *options) { o.integrations = enabled }
}

// WithEngines registers engines in addition to those from settings.
func WithEngines(engines ...detection.Engine) Option {
	return func(o *options) { o.engines = append(o.engines, engines...) }
}

// New opens the store and wires every service. The caller must Close the
// returned App.
func New(ctx context.Context, settings *conf.Settings, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Settings: settings,
		log:      logger.Global().Module("app"),
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "init_metrics").
			Build()
	}
	a.Metrics = m

	registry, err := NewRegistry(settings, o.engines...)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	store, err := datastore.Open(settings)
	if err != nil {
		return nil, err
	}
	a.Store = store

	db := store.DB()
	annotations := repository.NewAnnotationRepository(db)
	detAnnotations := repository.NewDetectionAnnotationRepository(db)
	records := repository.NewDetectionRecordRepository(db)

	a.Reconciler = annotation.NewReconciler(annotations, annotation.WithMetrics(m.Annotation))
	a.Queries = annotation.NewQueryService(annotations, detAnnotations)
	a.Editor = annotation.NewEditor(detAnnotations)
	a.Feedback = feedback.NewService(repository.NewFeedbackLogRepository(db))

	anomalyOpts := []anomaly.Option{
		anomaly.WithMetrics(m.Detection),
		anomaly.WithSeedAnnotations(settings.Detection.SeedAnnotations),
	}
	if o.integrations {
		anomalyOpts = append(anomalyOpts, a.integrations(ctx)...)
	}
	a.Anomalies = anomaly.NewService(registry, records, detAnnotations, anomalyOpts...)

	return a, nil
}

// NewRegistry builds the engine registry from settings. extra engines are
// registered after the configured ones.
func NewRegistry(settings *conf.Settings, extra ...detection.Engine) (*detection.Registry, error) {
	ds := settings.Detection
	defaultName := ds.DefaultEngine
	if defaultName == "" {
		defaultName = huggingface.EngineName
	}
	registry := detection.NewRegistry(defaultName, detection.WithStatusCacheTTL(ds.StatusCacheTTL))

	engines := make([]detection.Engine, 0, 2+len(extra))
	if ds.HuggingFace.Enabled {
		hf, err := huggingface.New(huggingface.ConfigFromSettings(&ds.HuggingFace))
		if err != nil {
			return nil, err
		}
		engines = append(engines, hf)
	}
	if ds.Fixture.Enabled {
		fx, err := fixture.Load(settings.FixturePath())
		if err != nil {
			return nil, err
		}
		engines = append(engines, fx)
	}
	engines = append(engines, extra...)

	for _, e := range engines {
		if err := registry.Register(e); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// integrations connects the optional event and alert sinks. Failures are
// logged; detection keeps working without them.
func (a *App) integrations(ctx context.Context) []anomaly.Option {
	var opts []anomaly.Option
	s := a.Settings

	if s.MQTT.Enabled {
		cfg := mqtt.ConfigFromSettings(s)
		client, err := mqtt.NewClient(cfg, a.Metrics.MQTT)
		if err != nil {
			a.log.Warn("MQTT disabled", logger.Error(err))
		} else {
			connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
			if err := client.Connect(connectCtx); err != nil {
				a.log.Warn("MQTT broker not reachable at startup, retrying on publish",
					logger.String("broker", cfg.Broker),
					logger.Error(err))
			}
			cancel()
			a.mqttClient = client
			opts = append(opts, anomaly.WithPublisher(mqtt.NewPublisher(client, cfg.Topic)))
		}
	}

	if s.Notification.Enabled {
		n, err := notification.New(notification.ConfigFromSettings(s), a.Metrics.Notification)
		if err != nil {
			a.log.Warn("notifications disabled", logger.Error(err))
		} else {
			opts = append(opts, anomaly.WithAlerter(n))
		}
	}
	return opts
}

// Services returns the API services backed by this App.
func (a *App) Services() v2.Services {
	return v2.Services{
		Reconciler: a.Reconciler,
		Queries:    a.Queries,
		Editor:     a.Editor,
		Anomalies:  a.Anomalies,
		Feedback:   a.Feedback,
	}
}

// Close disconnects MQTT and closes the store.
func (a *App) Close() error {
	if a.mqttClient != nil {
		a.mqttClient.Disconnect()
	}
	if a.Store == nil {
		return nil
	}
	start := time.Now()
	if err := a.Store.Close(); err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Timing("close_store", time.Since(start)).
			Build()
	}
	return nil
}
