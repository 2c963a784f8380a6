package annotation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
)

// DefaultDetectionLabel is stored for new boxes submitted without a label.
const DefaultDetectionLabel = "Unknown"

// DetectionInput is one box submitted against an image. A box with an ID
// edits that annotation; a box without one creates a new annotation.
type DetectionInput struct {
	ID     string `json:"id,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	Label               string   `json:"label"`
	Confidence          *float64 `json:"confidence,omitempty"`
	Severity            string   `json:"severity,omitempty"`
	Action              string   `json:"action,omitempty"`
	IsAI                *bool    `json:"isAI,omitempty"`
	Notes               string   `json:"notes,omitempty"`
	LastModified        string   `json:"lastModified,omitempty"`
	ModificationTypes   []string `json:"modificationTypes,omitempty"`
	ModificationDetails string   `json:"modificationDetails,omitempty"`
	TransformerID       *string  `json:"transformerId,omitempty"`
}

// Editor writes detection annotations one box at a time, unlike the
// Reconciler which replaces a whole inspection.
type Editor struct {
	repo repository.DetectionAnnotationRepository
	now  func() time.Time
	log  logger.Logger
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithEditorClock overrides the time source used for row timestamps.
func WithEditorClock(now func() time.Time) EditorOption {
	return func(e *Editor) { e.now = now }
}

// NewEditor creates an Editor backed by repo.
func NewEditor(repo repository.DetectionAnnotationRepository, opts ...EditorOption) *Editor {
	e := &Editor{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.Global().Module("annotation")
	return e
}

// Save applies inputs to the annotations of imageRef and returns the
// written rows in input order. Boxes whose action is "deleted" are
// soft-deleted. An ID that is not stored yet creates a row under that ID.
func (e *Editor) Save(ctx context.Context, imageRef, userID string, inputs []DetectionInput) ([]entities.DetectionAnnotation, error) {
	if strings.TrimSpace(imageRef) == "" {
		return nil, errors.ValidationError("image id is required")
	}
	if inputs == nil {
		return nil, errors.ValidationError("annotations list is required")
	}

	ids := make([]string, 0, len(inputs))
	for i := range inputs {
		id := strings.TrimSpace(inputs[i].ID)
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return nil, errors.Newf("annotation id %q is not a UUID", id).
				Category(errors.CategoryValidation).
				Context("index", i).
				Build()
		}
		ids = append(ids, id)
	}

	stored, err := e.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, editError(err, "load_detection_annotations", "image_ref", imageRef)
	}
	byID := make(map[string]entities.DetectionAnnotation, len(stored))
	for i := range stored {
		byID[stored[i].ID] = stored[i]
	}

	now := e.now().UTC()
	rows := make([]entities.DetectionAnnotation, 0, len(inputs))
	created, deleted := 0, 0
	for i := range inputs {
		in := &inputs[i]
		id := strings.TrimSpace(in.ID)

		var row entities.DetectionAnnotation
		if existing, ok := byID[id]; ok {
			row = existing
			if isDeleteAction(in.Action) {
				markDeleted(&row, now)
			} else {
				applyEdit(&row, in, now)
			}
		} else {
			if id == "" {
				id = uuid.NewString()
			}
			row = newDetectionRow(id, userID, in, now)
			created++
			if isDeleteAction(in.Action) {
				markDeleted(&row, now)
			}
		}
		row.ImageRef = imageRef
		row.UpdatedAt = now
		if row.IsDeleted {
			deleted++
		}
		rows = append(rows, row)
	}

	if err := e.repo.Upsert(ctx, rows); err != nil {
		return nil, editError(err, "save_detection_annotations", "image_ref", imageRef)
	}

	e.log.WithContext(ctx).Info("detection annotations saved",
		logger.String("image_ref", imageRef),
		logger.Int("count", len(rows)),
		logger.Int("created", created),
		logger.Int("soft_deleted", deleted))
	return rows, nil
}

// Delete soft-deletes one detection annotation.
func (e *Editor) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return errors.ValidationError("annotation id must be a UUID")
	}
	if err := e.repo.SoftDelete(ctx, id, e.now()); err != nil {
		return editError(err, "delete_detection_annotation", "annotation_id", id)
	}
	e.log.WithContext(ctx).Info("detection annotation deleted",
		logger.String("annotation_id", id))
	return nil
}

func newDetectionRow(id, userID string, in *DetectionInput, now time.Time) entities.DetectionAnnotation {
	label := in.Label
	if strings.TrimSpace(label) == "" {
		label = DefaultDetectionLabel
	}
	action := strings.ToLower(strings.TrimSpace(in.Action))
	if action == "" {
		action = entities.ActionAdded
	}
	modTypes := JoinModificationTypes(in.ModificationTypes)
	if modTypes == "" {
		modTypes = entities.ModCreated
	}
	return entities.DetectionAnnotation{
		ID:                  id,
		TransformerID:       in.TransformerID,
		UserID:              firstNonEmpty(userID, UnknownUser),
		X:                   in.X,
		Y:                   in.Y,
		Width:               in.Width,
		Height:              in.Height,
		Label:               label,
		Confidence:          in.Confidence,
		Severity:            CanonicalSeverity(in.Severity),
		AnnotationType:      entities.AnnotationTypeUserCreated,
		Action:              action,
		IsAI:                in.IsAI != nil && *in.IsAI,
		Notes:               in.Notes,
		LastModified:        ParseTimestamp(in.LastModified, now),
		ModificationTypes:   modTypes,
		ModificationDetails: in.ModificationDetails,
		CreatedAt:           now,
	}
}

func applyEdit(row *entities.DetectionAnnotation, in *DetectionInput, now time.Time) {
	row.X, row.Y = in.X, in.Y
	row.Width, row.Height = in.Width, in.Height
	row.Label = in.Label
	row.Confidence = in.Confidence
	row.Severity = CanonicalSeverity(in.Severity)
	if action := strings.ToLower(strings.TrimSpace(in.Action)); action != "" {
		row.Action = action
	}
	row.Notes = in.Notes
	row.LastModified = ParseTimestamp(in.LastModified, now)
	row.ModificationTypes = JoinModificationTypes(in.ModificationTypes)
	row.ModificationDetails = in.ModificationDetails
	if in.IsAI != nil {
		row.IsAI = *in.IsAI
	}
	if in.TransformerID != nil {
		row.TransformerID = in.TransformerID
	}
	row.AnnotationType = entities.AnnotationTypeUserEdited
}

func markDeleted(row *entities.DetectionAnnotation, now time.Time) {
	deletedAt := now
	row.Action = entities.ActionDeleted
	row.IsDeleted = true
	row.DeletedAt = &deletedAt
}

func isDeleteAction(action string) bool {
	return strings.EqualFold(strings.TrimSpace(action), entities.ActionDeleted)
}

func editError(err error, operation, key string, value any) error {
	category := errors.CategoryDatabase
	if errors.Is(err, repository.ErrDetectionAnnotationNotFound) {
		category = errors.CategoryNotFound
	}
	return errors.New(err).
		Category(category).
		Context("operation", operation).
		Context(key, value).
		Build()
}
