package detection

import (
	"context"
)

// Engine is a detection capability. Implementations must be safe for
// concurrent use.
type Engine interface {
	Name() string
	Version() string
	ModelName() string

	// IsAvailable probes the engine. It must not block past ctx.
	IsAvailable(ctx context.Context) bool

	// Detect analyses the image at imageURL.
	Detect(ctx context.Context, imageURL string) (*Result, error)

	// Metadata describes the engine for status endpoints.
	Metadata() map[string]any
}

// Status is the availability of one registered engine.
type Status struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	Model     string `json:"model" yaml:"model"`
	Available bool   `json:"available" yaml:"available"`
}

// SelectBestAvailable picks the engine to use from statuses, which must be in
// registration order. The default engine wins when available, otherwise the
// first available engine. When nothing is available it returns defaultName
// and false.
func SelectBestAvailable(defaultName string, statuses []Status) (string, bool) {
	for _, s := range statuses {
		if s.Name == defaultName && s.Available {
			return s.Name, true
		}
	}
	for _, s := range statuses {
		if s.Available {
			return s.Name, true
		}
	}
	return defaultName, false
}
