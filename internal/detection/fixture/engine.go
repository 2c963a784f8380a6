// Package fixture provides an offline detection engine that serves canned
// results from a YAML file. It is used for field demos and for exercising
// the pipeline without the hosted model.
//
// File format:
//
//	images:
//	  https://img.example/t1.jpg:
//	    label: Faulty
//	    detections:
//	      - box: {x: 10, y: 20, width: 30, height: 40}
//	        label: Faulty
//	        confidence: 0.91
//	default:
//	  label: Normal
package fixture

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gridsight/thermalwatch/internal/detection"
	"github.com/gridsight/thermalwatch/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	EngineName    = "Fixture"
	EngineVersion = "1.0.0"
	ModelName     = "yaml-fixtures"
)

// ErrNoFixture is returned when neither the image nor a default entry exists.
var ErrNoFixture = errors.NewStd("no fixture for image")

type entry struct {
	Label      string                `yaml:"label"`
	OverlayURL string                `yaml:"overlay_url"`
	Detections []detection.Detection `yaml:"detections"`
}

type document struct {
	Images  map[string]entry `yaml:"images"`
	Default *entry           `yaml:"default"`
}

// Engine serves detections from a fixture document.
type Engine struct {
	path string

	mu  sync.RWMutex
	doc document
}

// Load reads and validates the fixture file at path.
func Load(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	e, err := Parse(data)
	if err != nil {
		return nil, err
	}
	e.path = path
	return e, nil
}

// Parse builds an engine from YAML bytes.
func Parse(data []byte) (*Engine, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_fixtures").
			Build()
	}

	for img, en := range doc.Images {
		if err := validateEntry(en); err != nil {
			return nil, errors.New(fmt.Errorf("fixture %q: %w", img, err)).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	if doc.Default != nil {
		if err := validateEntry(*doc.Default); err != nil {
			return nil, errors.New(fmt.Errorf("default fixture: %w", err)).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	return &Engine{doc: doc}, nil
}

func validateEntry(en entry) error {
	for i, d := range en.Detections {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("detection %d: %w", i, err)
		}
	}
	return nil
}

// Reload re-reads the fixture file.
func (e *Engine) Reload() error {
	if e.path == "" {
		return nil
	}
	fresh, err := Load(e.path)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.doc = fresh.doc
	e.mu.Unlock()
	return nil
}

func (e *Engine) Name() string      { return EngineName }
func (e *Engine) Version() string   { return EngineVersion }
func (e *Engine) ModelName() string { return ModelName }

// IsAvailable is true once fixtures are loaded.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	return ctx.Err() == nil
}

// Detect returns the fixture for imageURL or the default entry.
func (e *Engine) Detect(ctx context.Context, imageURL string) (*detection.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	en, ok := e.doc.Images[imageURL]
	if !ok && e.doc.Default != nil {
		en, ok = *e.doc.Default, true
	}
	e.mu.RUnlock()

	if !ok {
		return nil, errors.New(ErrNoFixture).
			Category(errors.CategoryNotFound).
			Context("image_url", imageURL).
			Build()
	}

	dets := make([]detection.Detection, len(en.Detections))
	copy(dets, en.Detections)
	return &detection.Result{
		Detections:      dets,
		Label:           en.Label,
		OverlayImageURL: en.OverlayURL,
	}, nil
}

// Metadata describes the engine.
func (e *Engine) Metadata() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return map[string]any{
		"name":       EngineName,
		"version":    EngineVersion,
		"model":      ModelName,
		"path":       e.path,
		"images":     len(e.doc.Images),
		"hasDefault": e.doc.Default != nil,
	}
}

var _ detection.Engine = (*Engine)(nil)
