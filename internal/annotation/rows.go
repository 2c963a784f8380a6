package annotation

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/detection"
)

// UnknownUser is stored when neither the box nor the request names a user.
const UnknownUser = "unknown"

// Input is one box as submitted by the inspection UI.
type Input struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	Label               string          `json:"label"`
	Confidence          *float64        `json:"confidence,omitempty"`
	Severity            string          `json:"severity,omitempty"`
	Color               string          `json:"color,omitempty"`
	Action              string          `json:"action,omitempty"`
	IsAI                *bool           `json:"isAI,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	LastModified        string          `json:"lastModified,omitempty"`
	ModificationTypes   []string        `json:"modificationTypes,omitempty"`
	ModificationDetails string          `json:"modificationDetails,omitempty"`
	TransformerID       *string         `json:"transformerId,omitempty"`
	UserID              string          `json:"userId,omitempty"`
	OriginalAIData      json.RawMessage `json:"originalAIData,omitempty"`
}

// timestampLayouts are tried in order; zone-less values are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp with or without zone and
// fractional seconds. Unparseable or empty values yield fallback.
func ParseTimestamp(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

var knownModificationTypes = map[string]struct{}{
	entities.ModCreated:      {},
	entities.ModResized:      {},
	entities.ModRelocated:    {},
	entities.ModLabelChanged: {},
	entities.ModDeleted:      {},
}

// JoinModificationTypes lowercases types, keeps the known ones and
// deduplicates them in first-seen order.
func JoinModificationTypes(types []string) string {
	seen := make(map[string]struct{}, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if _, ok := knownModificationTypes[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

// CanonicalSeverity returns the stored spelling of a severity. Unknown
// values become empty.
func CanonicalSeverity(s string) string {
	return string(detection.ParseSeverity(s))
}

// BuildRows converts submitted boxes into rows for inspectionID. Ordinals
// start at 1 and follow input order. All rows share now as their creation
// time.
func BuildRows(resolver *Resolver, inspectionID, userID string, inputs []Input, now time.Time) []entities.Annotation {
	if resolver == nil {
		resolver = defaultResolver
	}
	now = now.UTC()

	rows := make([]entities.Annotation, 0, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		ordinal := i + 1

		confidence := 1.0
		if in.Confidence != nil {
			confidence = *in.Confidence
		}

		action := strings.ToLower(strings.TrimSpace(in.Action))
		if action == "" {
			action = entities.ActionAdded
		}

		row := entities.Annotation{
			ID:                  resolver.Resolve(inspectionID, ordinal).String(),
			InspectionID:        inspectionID,
			TransformerID:       in.TransformerID,
			UserID:              firstNonEmpty(in.UserID, userID, UnknownUser),
			Ordinal:             ordinal,
			X:                   in.X,
			Y:                   in.Y,
			Width:               in.Width,
			Height:              in.Height,
			Label:               in.Label,
			Confidence:          &confidence,
			Severity:            CanonicalSeverity(in.Severity),
			Color:               in.Color,
			Action:              action,
			IsAI:                in.IsAI != nil && *in.IsAI,
			Notes:               in.Notes,
			LastModified:        ParseTimestamp(in.LastModified, now),
			ModificationTypes:   JoinModificationTypes(in.ModificationTypes),
			ModificationDetails: in.ModificationDetails,
			OriginalAIData:      rawText(in.OriginalAIData),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if row.Color == "" && row.Severity != "" {
			row.Color = detection.Severity(row.Severity).Color()
		}
		if action == entities.ActionDeleted {
			deletedAt := now
			row.IsDeleted = true
			row.DeletedAt = &deletedAt
		}
		rows = append(rows, row)
	}
	return rows
}

// Partition splits rows into active and soft-deleted, keeping order.
func Partition(rows []entities.Annotation) (active, deleted []entities.Annotation) {
	active = make([]entities.Annotation, 0, len(rows))
	deleted = make([]entities.Annotation, 0)
	for i := range rows {
		if rows[i].IsDeleted {
			deleted = append(deleted, rows[i])
		} else {
			active = append(active, rows[i])
		}
	}
	return active, deleted
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func rawText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return s
}
