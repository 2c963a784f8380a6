package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackLogRepository(t *testing.T) {
	t.Parallel()

	repo := NewFeedbackLogRepository(newTestDB(t))
	ctx := t.Context()
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, repo.Create(ctx, &entities.FeedbackLog{
			ID:                       fmt.Sprintf("log-%d", i),
			ImageID:                  fmt.Sprintf("img-%d", i),
			ModelPredictedAnomalies:  "[]",
			FinalAcceptedAnnotations: "[]",
			AnnotatorMetadata:        "{}",
			CreatedAt:                base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.ErrorIs(t, repo.Create(ctx, &entities.FeedbackLog{ID: "x"}), ErrInvalidInput)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "log-2", all[0].ID)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "log-1", page[0].ID)

	got, err := repo.Get(ctx, "log-0")
	require.NoError(t, err)
	assert.Equal(t, "img-0", got.ImageID)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrFeedbackLogNotFound)
}
