package detection

import (
	"strings"

	"golang.org/x/text/cases"
)

// UncertainThreshold is the confidence below which a finding counts as uncertain.
const UncertainThreshold = 0.6

var (
	criticalMarkers = []string{"critical", "faulty"}
	warningMarkers  = []string{"warning", "potential"}
)

// Summary holds the statistics of one detection run. Confidence fields are
// nil when the run produced no detections.
type Summary struct {
	Total          int      `json:"total" yaml:"total"`
	CriticalCount  int      `json:"criticalCount" yaml:"critical"`
	WarningCount   int      `json:"warningCount" yaml:"warning"`
	UncertainCount int      `json:"uncertainCount" yaml:"uncertain"`
	MaxConfidence  *float64 `json:"maxConfidence,omitempty" yaml:"max_confidence,omitempty"`
	MinConfidence  *float64 `json:"minConfidence,omitempty" yaml:"min_confidence,omitempty"`
	AvgConfidence  *float64 `json:"avgConfidence,omitempty" yaml:"avg_confidence,omitempty"`
}

// Aggregate computes run statistics. Critical and warning buckets are
// independent label tests; uncertain depends only on confidence.
func Aggregate(detections []Detection) Summary {
	s := Summary{Total: len(detections)}
	if len(detections) == 0 {
		return s
	}

	folder := cases.Fold()
	minC, maxC, sum := detections[0].Confidence, detections[0].Confidence, 0.0

	for _, d := range detections {
		label := folder.String(d.Label)
		if containsAny(label, criticalMarkers) {
			s.CriticalCount++
		}
		if containsAny(label, warningMarkers) {
			s.WarningCount++
		}
		if d.Confidence < UncertainThreshold {
			s.UncertainCount++
		}

		minC = min(minC, d.Confidence)
		maxC = max(maxC, d.Confidence)
		sum += d.Confidence
	}

	avg := sum / float64(len(detections))
	s.MinConfidence, s.MaxConfidence, s.AvgConfidence = &minC, &maxC, &avg
	return s
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Severity buckets used on annotations.
type Severity string

const (
	SeverityCritical  Severity = "Critical"
	SeverityWarning   Severity = "Warning"
	SeverityUncertain Severity = "Uncertain"
)

// SeverityFor buckets an AI finding by confidence the same way the
// annotation editor does.
func SeverityFor(confidence float64) Severity {
	switch {
	case confidence >= 0.8:
		return SeverityCritical
	case confidence >= 0.5:
		return SeverityWarning
	default:
		return SeverityUncertain
	}
}

// Color is the overlay color the editor draws for the severity.
func (s Severity) Color() string {
	switch s {
	case SeverityCritical:
		return "#ef4444"
	case SeverityWarning:
		return "#f59e0b"
	default:
		return "#eab308"
	}
}

// ParseSeverity normalizes user input to a known severity. Unknown values
// map to the empty severity.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "warning":
		return SeverityWarning
	case "uncertain":
		return SeverityUncertain
	}
	return ""
}
