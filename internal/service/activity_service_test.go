package service

import (
	"context"
	"errors"
	"testing"

	"wisefido-sos/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestActivityService_Append(t *testing.T) {
	env := newTestEnv(t)
	svc := NewActivityService(env.activities, zap.NewNop())

	id, err := svc.Append(context.Background(), "p1", "walk", "Morning walk", map[string]any{"minutes": 20})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	list := env.activitiesOf(t, "p1")
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ActivityID)
	assert.Equal(t, "walk", list[0].Type)
	assert.False(t, list[0].IsDeleted)
	assert.False(t, list[0].Timestamp.IsZero())
	assert.Equal(t, float64(20), list[0].Metadata["minutes"])
}

func TestActivityService_AppendValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewActivityService(env.activities, zap.NewNop())

	_, err := svc.Append(context.Background(), "", "walk", "x", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Append(context.Background(), "p1", " ", "x", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, env.store.createCount(repository.CollectionActivities))
}

func TestActivityService_AppendPropagatesStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	boom := errors.New("write failed")
	env.store.failCreate[repository.CollectionActivities] = boom
	svc := NewActivityService(env.activities, zap.NewNop())

	_, err := svc.Append(context.Background(), "p1", "walk", "x", nil)
	assert.ErrorIs(t, err, boom)
}

func TestActivityService_ListNewestFirstWithLimit(t *testing.T) {
	env := newTestEnv(t)
	svc := NewActivityService(env.activities, zap.NewNop())
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.Append(ctx, "p1", "note", title, nil)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Title)

	limited, err := svc.List(ctx, "p1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "b", limited[1].Title)
}
