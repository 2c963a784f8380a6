// Package huggingface implements the detection engine backed by the
// thermal anomaly model hosted as a HuggingFace Space.
package huggingface

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/detection"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/httpclient"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/k3a/html2text"
	"golang.org/x/time/rate"
)

const (
	EngineName     = "HuggingFace"
	EngineVersion  = "1.0.0"
	ModelName      = "Senum-Anomaly-Detection"
	DefaultBaseURL = "https://Senum-anomaly-detection-api.hf.space"

	inferPath  = "/infer"
	healthPath = "/health"

	maxResponseBytes  = 10 << 20
	maxErrorBodyBytes = 4 << 10
	maxErrorTextLen   = 300
)

// Config configures the engine.
type Config struct {
	BaseURL   string
	APIToken  string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int

	// Transport overrides the HTTP transport, used by tests.
	Transport http.RoundTripper
}

// ConfigFromSettings maps application settings onto Config.
func ConfigFromSettings(s *conf.HuggingFaceSettings) Config {
	return Config{
		BaseURL:   s.BaseURL,
		APIToken:  s.APIToken,
		Timeout:   s.Timeout,
		RateLimit: s.RateLimit,
		Burst:     s.Burst,
	}
}

// Engine calls the HuggingFace Space inference API.
type Engine struct {
	baseURL string
	timeout time.Duration
	client  *httpclient.Client
	limiter *rate.Limiter // nil when unlimited
	log     logger.Logger
}

// New creates the engine. An empty base URL uses DefaultBaseURL.
func New(cfg Config) (*Engine, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid HuggingFace base URL %q", cfg.BaseURL).
			Category(errors.CategoryConfiguration).
			Build()
	}

	e := &Engine{
		baseURL: base,
		timeout: cfg.Timeout,
		client: httpclient.New(&httpclient.Config{
			DefaultTimeout: cfg.Timeout,
			BearerToken:    cfg.APIToken,
			Transport:      cfg.Transport,
		}),
		log: logger.Global().Module("detection.huggingface"),
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return e, nil
}

func (e *Engine) Name() string      { return EngineName }
func (e *Engine) Version() string   { return EngineVersion }
func (e *Engine) ModelName() string { return ModelName }

// IsAvailable reports whether the health endpoint answers with 2xx.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	resp, err := e.client.Get(ctx, e.baseURL+healthPath)
	if err != nil {
		e.log.Warn("health check failed", logger.Error(err))
		return false
	}
	defer drainAndClose(resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

type inferRequest struct {
	ImageURL string `json:"imageUrl"`
}

// Detect posts the image URL to the inference endpoint and normalizes the
// response.
func (e *Engine) Detect(ctx context.Context, imageURL string) (*detection.Result, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, errors.ValidationError("image URL is required")
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryLimit).
				Context("operation", "rate_limiter_wait").
				Build()
		}
	}

	endpoint := e.baseURL + inferPath
	start := time.Now()

	resp, err := e.client.Post(ctx, endpoint, "", inferRequest{ImageURL: imageURL})
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			NetworkContext(endpoint, e.timeout).
			Context("operation", "infer").
			Build()
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, errors.Newf("HuggingFace inference returned status %d: %s", resp.StatusCode, errorText(body)).
			Category(errors.CategoryNetwork).
			NetworkContext(endpoint, e.timeout).
			Context("status_code", resp.StatusCode).
			Build()
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			Context("operation", "read_infer_response").
			Build()
	}

	result, err := parseResponse(data, e.log)
	if err != nil {
		return nil, err
	}

	e.log.Info("inference completed",
		logger.Int("detections", len(result.Detections)),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

// Metadata describes the engine.
func (e *Engine) Metadata() map[string]any {
	md := map[string]any{
		"name":             EngineName,
		"version":          EngineVersion,
		"model":            ModelName,
		"apiUrl":           e.baseURL,
		"supportedFormats": []string{"JPEG", "PNG"},
		"maxImageSize":     "10MB",
		"avgResponseTime":  "2-5 seconds",
	}
	if e.limiter != nil {
		md["rateLimit"] = float64(e.limiter.Limit())
	}
	return md
}

// Close releases idle connections.
func (e *Engine) Close() {
	e.client.Close()
}

// errorText turns an error body into a short single-line message. Spaces
// answer with HTML pages when the container is sleeping or crashed.
func errorText(body []byte) string {
	text := string(body)
	if strings.Contains(text, "<") {
		text = html2text.HTML2Text(text)
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxErrorTextLen {
		text = text[:maxErrorTextLen] + "..."
	}
	if text == "" {
		return "empty response body"
	}
	return text
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBodyBytes))
	_ = body.Close()
}

var _ detection.Engine = (*Engine)(nil)

