// Package detection defines the anomaly detection domain: the normalized
// Detection produced by an engine, the Engine capability, an explicit engine
// Registry with best-available selection, and run aggregation.
//
// Detections are ephemeral. They exist only inside one engine Result; the
// persisted form is built by the anomaly service from a Summary.
package detection

import (
	"fmt"
)

// BoundingBox is a pixel rectangle on the analysed image.
type BoundingBox struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Validate rejects empty boxes.
func (b BoundingBox) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("bounding box must have positive size, got %dx%d", b.Width, b.Height)
	}
	return nil
}

// Detection is one anomaly finding from a single detection run.
type Detection struct {
	Box        BoundingBox `json:"box" yaml:"box"`
	Label      string      `json:"type" yaml:"label"` // free text, e.g. "Faulty", "Potentially Faulty"
	Confidence float64     `json:"confidence" yaml:"confidence"`
}

// Validate checks the box and that confidence lies in [0, 1].
func (d Detection) Validate() error {
	if err := d.Box.Validate(); err != nil {
		return err
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %g", d.Confidence)
	}
	return nil
}

// Result is the normalized output of one Engine.Detect call.
type Result struct {
	Detections       []Detection    `json:"detections"`
	Label            string         `json:"label"`
	OverlayImageURL  string         `json:"overlayImage,omitempty"`
	FilteredImageURL string         `json:"filteredImage,omitempty"`
	MaskImageURL     string         `json:"maskImage,omitempty"`
	Raw              map[string]any `json:"raw,omitempty"`
}
