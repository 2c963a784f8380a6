package annotation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/datastore/repository"
	"github.com/gridsight/thermalwatch/internal/detection"
	twerrors "github.com/gridsight/thermalwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEditor(t *testing.T) (*Editor, repository.DetectionAnnotationRepository) {
	t.Helper()
	repo := repository.NewDetectionAnnotationRepository(newTestDB(t))
	return NewEditor(repo, WithEditorClock(func() time.Time { return fixedNow })), repo
}

func TestEditor_CreateDefaults(t *testing.T) {
	t.Parallel()

	ed, repo := newEditor(t)
	ctx := t.Context()

	rows, err := ed.Save(ctx, "img-7", "", []DetectionInput{
		{X: 1, Y: 2, Width: 3, Height: 4},
		{X: 5, Y: 5, Width: 5, Height: 5, Label: "Faulty", Severity: "critical", ModificationTypes: []string{"Resized", "bogus"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.NoError(t, uuid.Validate(first.ID))
	assert.Equal(t, DefaultDetectionLabel, first.Label)
	assert.Equal(t, entities.ActionAdded, first.Action)
	assert.Equal(t, entities.AnnotationTypeUserCreated, first.AnnotationType)
	assert.Equal(t, UnknownUser, first.UserID)
	assert.Equal(t, []string{entities.ModCreated}, first.ModificationTypeList())
	assert.False(t, first.IsAI)
	assert.Equal(t, "img-7", first.ImageRef)

	assert.Equal(t, string(detection.SeverityCritical), rows[1].Severity)
	assert.Equal(t, []string{entities.ModResized}, rows[1].ModificationTypeList())

	stored, err := repo.FindByImage(ctx, "img-7")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestEditor_EditsSeededAnnotation(t *testing.T) {
	t.Parallel()

	ed, repo := newEditor(t)
	ctx := t.Context()

	seeded := SeedDetectionAnnotations(1, "img-1", []detection.Detection{
		{Box: detection.BoundingBox{X: 1, Y: 1, Width: 5, Height: 5}, Label: "Loose Joint (Faulty)", Confidence: 0.91},
		{Box: detection.BoundingBox{X: 9, Y: 9, Width: 5, Height: 5}, Label: "Point Overload (Potential)", Confidence: 0.55},
	}, fixedNow.Add(-time.Hour))
	require.NoError(t, repo.CreateBatch(ctx, seeded))

	rows, err := ed.Save(ctx, "img-1", "alice", []DetectionInput{
		{ID: seeded[0].ID, X: 2, Y: 2, Width: 6, Height: 6, Label: "Loose Joint", ModificationTypes: []string{"resized"}},
		{ID: seeded[1].ID, Action: "DELETED"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	got, err := repo.FindByIDs(ctx, []string{seeded[0].ID, seeded[1].ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	byID := map[string]entities.DetectionAnnotation{got[0].ID: got[0], got[1].ID: got[1]}

	edited := byID[seeded[0].ID]
	assert.Equal(t, entities.AnnotationTypeUserEdited, edited.AnnotationType)
	assert.Equal(t, 6, edited.Width)
	assert.Equal(t, "Loose Joint", edited.Label)
	assert.Equal(t, SystemUser, edited.UserID)
	assert.True(t, edited.IsAI)
	assert.False(t, edited.IsDeleted)
	assert.True(t, fixedNow.Add(-time.Hour).Equal(edited.CreatedAt))

	removed := byID[seeded[1].ID]
	assert.True(t, removed.IsDeleted)
	require.NotNil(t, removed.DeletedAt)
	assert.True(t, fixedNow.Equal(*removed.DeletedAt))
	assert.Equal(t, entities.AnnotationTypeAI, removed.AnnotationType)
	assert.Equal(t, "Point Overload (Potential)", removed.Label)
}

func TestEditor_UnknownIDCreatesUnderThatID(t *testing.T) {
	t.Parallel()

	ed, repo := newEditor(t)
	ctx := t.Context()

	id := uuid.NewString()
	rows, err := ed.Save(ctx, "img-2", "bob", []DetectionInput{{ID: id, Width: 4, Height: 4}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, entities.AnnotationTypeUserCreated, rows[0].AnnotationType)

	got, err := repo.FindByIDs(ctx, []string{id})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].UserID)
}

func TestEditor_SaveValidation(t *testing.T) {
	t.Parallel()

	ed, _ := newEditor(t)
	ctx := t.Context()

	tests := []struct {
		name   string
		image  string
		inputs []DetectionInput
	}{
		{name: "missing image", image: " ", inputs: []DetectionInput{}},
		{name: "nil annotations", image: "img", inputs: nil},
		{name: "non uuid id", image: "img", inputs: []DetectionInput{{ID: "box-1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ed.Save(ctx, tt.image, "u", tt.inputs)
			assert.True(t, twerrors.IsValidation(err))
		})
	}

	rows, err := ed.Save(ctx, "img", "u", []DetectionInput{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEditor_Delete(t *testing.T) {
	t.Parallel()

	ed, repo := newEditor(t)
	ctx := t.Context()

	rows, err := ed.Save(ctx, "img-3", "u", []DetectionInput{{Width: 2, Height: 2}})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, ed.Delete(ctx, rows[0].ID))
	got, err := repo.FindByIDs(ctx, []string{rows[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsDeleted)

	err = ed.Delete(ctx, uuid.NewString())
	assert.True(t, twerrors.IsNotFound(err))

	err = ed.Delete(ctx, "not-a-uuid")
	assert.True(t, twerrors.IsValidation(err))
}
