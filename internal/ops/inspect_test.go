package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/flowdeck/internal/cache"
	apperrors "github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/record"
)

func TestInspect(t *testing.T) {
	db, err := cache.Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, cache.UpsertAll(db, []record.Record{{
		ID: "a", Content: "check `logs` today",
		Stage: "inspiration", Category: "todo", AIAssistClass: "unclassified",
		Timestamp: 100, CreatedAt: 100, UpdatedAt: 100,
	}}))

	out, err := Inspect(db, InspectInput{ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", out.Record.ID)
	assert.Equal(t, "check logs today", out.NormalizedContent)
}

func TestInspect_Missing(t *testing.T) {
	db, err := cache.Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = Inspect(db, InspectInput{ID: "ghost"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestInspect_RequiresID(t *testing.T) {
	_, err := Inspect(nil, InspectInput{})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.StatusOf(err))
}
