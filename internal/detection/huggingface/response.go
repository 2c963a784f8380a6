package huggingface

import (
	"encoding/json"
	"math"

	"github.com/antonholmquist/jason"
	"github.com/gridsight/thermalwatch/internal/detection"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
)

// parseResponse maps the Space response:
//
//	{"boxed_url": "...", "filtered_url": "...", "mask_url": "...", "label": "...",
//	 "boxes": [{"box": [x, y, w, h], "type": "Faulty", "confidence": 0.93}]}
//
// Coordinates and confidences may be integers or floats. Malformed boxes are skipped.
func parseResponse(data []byte, log logger.Logger) (*detection.Result, error) {
	obj, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDetection).
			Context("operation", "parse_infer_response").
			Context("response_bytes", len(data)).
			Build()
	}

	result := &detection.Result{Detections: []detection.Detection{}}
	result.OverlayImageURL, _ = obj.GetString("boxed_url")
	result.FilteredImageURL, _ = obj.GetString("filtered_url")
	result.MaskImageURL, _ = obj.GetString("mask_url")
	result.Label, _ = obj.GetString("label")

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err == nil {
		result.Raw = raw
	}

	boxes, err := obj.GetObjectArray("boxes")
	if err != nil {
		log.Debug("response has no usable boxes array", logger.Error(err))
		return result, nil
	}

	for i, b := range boxes {
		d, err := parseBox(b)
		if err != nil {
			log.Debug("skipping malformed box", logger.Int("index", i), logger.Error(err))
			continue
		}
		result.Detections = append(result.Detections, d)
	}
	return result, nil
}

func parseBox(b *jason.Object) (detection.Detection, error) {
	coords, err := b.GetValueArray("box")
	if err != nil {
		return detection.Detection{}, err
	}
	if len(coords) < 4 {
		return detection.Detection{}, errors.Newf("box has %d coordinates, want 4", len(coords)).
			Category(errors.CategoryDetection).
			Build()
	}

	var xywh [4]int
	for i := range xywh {
		f, err := coords[i].Float64()
		if err != nil {
			return detection.Detection{}, err
		}
		xywh[i] = int(math.Round(f))
	}

	label, _ := b.GetString("type")
	confidence, err := b.GetFloat64("confidence")
	if err != nil {
		confidence = 0
	}

	d := detection.Detection{
		Box:        detection.BoundingBox{X: xywh[0], Y: xywh[1], Width: xywh[2], Height: xywh[3]},
		Label:      label,
		Confidence: confidence,
	}
	if err := d.Validate(); err != nil {
		return detection.Detection{}, err
	}
	return d, nil
}
