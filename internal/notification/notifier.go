// Package notification sends alerts for critical thermal findings through
// shoutrrr service URLs (Slack, Teams, Telegram, SMTP, generic webhooks).
package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/gridsight/thermalwatch/internal/observability/metrics"
	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// Sender delivers one message to every configured service and returns one
// error slot per service. *router.ServiceRouter satisfies it.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Config configures a Notifier.
type Config struct {
	URLs        []string
	Timeout     time.Duration
	MinCritical int // alert only when at least this many critical findings
	NodeName    string
	Breaker     CircuitBreakerConfig
}

// ConfigFromSettings maps notification settings.
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		URLs:        settings.Notification.URLs,
		Timeout:     settings.Notification.Timeout,
		MinCritical: settings.Notification.MinCritical,
		NodeName:    settings.Main.Name,
		Breaker:     DefaultCircuitBreakerConfig(),
	}
}

// Notifier sends critical finding alerts.
type Notifier struct {
	sender   Sender
	services []string // scheme per URL, aligned with Send's error slice
	config   Config
	breaker  *CircuitBreaker
	metrics  *metrics.NotificationMetrics
	log      logger.Logger
}

// New builds a Notifier with a shoutrrr router over cfg.URLs.
func New(cfg Config, m *metrics.NotificationMetrics) (*Notifier, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender, err := shoutrrr.CreateSender(cfg.URLs...)
	if err != nil {
		// shoutrrr errors may echo the URL, which carries tokens
		return nil, errors.Newf("invalid notification URL: %s", scrubURLs(err.Error(), cfg.URLs)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Timeout > 0 {
		sender.Timeout = cfg.Timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return NewWithSender(sender, cfg, m), nil
}

// NewWithSender builds a Notifier over an existing Sender.
func NewWithSender(sender Sender, cfg Config, m *metrics.NotificationMetrics) *Notifier {
	if cfg.MinCritical < 1 {
		cfg.MinCritical = 1
	}
	if cfg.Breaker.MaxFailures == 0 {
		cfg.Breaker = DefaultCircuitBreakerConfig()
	}
	services := make([]string, len(cfg.URLs))
	for i, raw := range cfg.URLs {
		services[i] = serviceName(raw)
	}
	return &Notifier{
		sender:   sender,
		services: services,
		config:   cfg,
		breaker:  NewCircuitBreaker(cfg.Breaker),
		metrics:  m,
		log:      logger.Global().Module("notification"),
	}
}

// ShouldAlert reports whether rec has enough critical findings to alert.
func (n *Notifier) ShouldAlert(rec *entities.DetectionRecord) bool {
	return rec != nil && rec.CriticalCount >= n.config.MinCritical
}

// AlertCritical sends an alert for rec when ShouldAlert is true.
func (n *Notifier) AlertCritical(ctx context.Context, rec *entities.DetectionRecord) error {
	if !n.ShouldAlert(rec) {
		return nil
	}

	title, body, err := renderAlert(rec, n.config.NodeName)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryNotification).
			Context("operation", "render_alert").
			Build()
	}

	start := time.Now()
	err = n.breaker.Call(ctx, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		params := stypes.Params{}
		params.SetTitle(title)
		return n.collect(n.sender.Send(body, &params))
	})
	n.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		return errors.New(err).
			Category(errors.CategoryNotification).
			Context("record_id", rec.ID).
			Context("circuit_state", n.breaker.State().String()).
			Build()
	}
	n.log.Info("critical alert sent",
		logger.Int("critical", rec.CriticalCount),
		logger.Int("services", len(n.services)))
	return nil
}

// collect records per-service outcomes and returns the first failure.
func (n *Notifier) collect(errs []error) error {
	var first error
	for i, service := range n.services {
		var err error
		if i < len(errs) {
			err = errs[i]
		}
		if err != nil {
			n.metrics.ObserveDelivery(service, metrics.StatusError)
			n.log.Warn("alert delivery failed",
				logger.String("service", service),
				logger.String("error", scrubURLs(err.Error(), n.config.URLs)))
			if first == nil {
				first = errors.NewStd(scrubURLs(err.Error(), n.config.URLs))
			}
			continue
		}
		n.metrics.ObserveDelivery(service, metrics.StatusSuccess)
	}
	return first
}

var alertTemplate = template.Must(template.New("alert").Parse(
	`{{.Critical}} critical, {{.Warning}} warning finding(s){{if .Transformer}} on transformer {{.Transformer}}{{end}}{{if .Inspection}} (inspection {{.Inspection}}){{end}}.
Overall label: {{.Label}}{{if .MaxConfidence}}, max confidence {{printf "%.2f" .MaxConfidence}}{{end}}.
Engine: {{.Engine}}
Image: {{.Image}}{{if .Overlay}}
Overlay: {{.Overlay}}{{end}}`))

type alertData struct {
	Critical, Warning       int
	Transformer, Inspection string
	Label, Engine           string
	Image, Overlay          string
	MaxConfidence           float64
}

func renderAlert(rec *entities.DetectionRecord, node string) (title, body string, err error) {
	data := alertData{
		Critical: rec.CriticalCount,
		Warning:  rec.WarningCount,
		Label:    rec.OverallLabel,
		Engine:   rec.EngineName,
		Image:    rec.MaintenanceImageURL,
		Overlay:  rec.OverlayImageURL,
	}
	if rec.TransformerID != nil {
		data.Transformer = *rec.TransformerID
	}
	if rec.InspectionID != nil {
		data.Inspection = *rec.InspectionID
	}
	if rec.MaxConfidence != nil {
		data.MaxConfidence = *rec.MaxConfidence
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return "", "", err
	}

	title = "Critical thermal anomaly"
	if node != "" {
		title = fmt.Sprintf("[%s] %s", node, title)
	}
	return title, buf.String(), nil
}

func serviceName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "unknown"
	}
	return u.Scheme
}

// scrubURLs replaces configured URLs in msg with their scheme.
func scrubURLs(msg string, urls []string) string {
	for _, raw := range urls {
		if raw != "" {
			msg = strings.ReplaceAll(msg, raw, serviceName(raw)+"://***")
		}
	}
	return msg
}
