package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func finishedStory(at time.Time) *story.Story {
	st := story.New(character.City)
	st.BeginIteration()
	st.Current().Impasses = 2
	st.Current().IllogicalActions = 1
	st.End()
	st.UpdatedAt = at
	return st
}

func TestSQLiteArchive_ArchiveAndGet(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	st := finishedStory(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, a.ArchiveStory(ctx, st))

	got, err := a.GetArchived(ctx, st.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, 1, got.Iterations)
	assert.Equal(t, 2, got.Impasses)
	assert.Equal(t, 1, got.IllogicalActions)
	assert.True(t, strings.HasSuffix(got.Transcript, "The end.\n"))
	assert.True(t, got.FinishedAt.Equal(st.UpdatedAt))
}

func TestSQLiteArchive_ArchiveIsUpsert(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	st := finishedStory(time.Now())
	require.NoError(t, a.ArchiveStory(ctx, st))

	st.Current().Impasses = 5
	require.NoError(t, a.ArchiveStory(ctx, st))

	rows, err := a.ListArchived(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Impasses)
}

func TestSQLiteArchive_ListNewestFirst(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := range 3 {
		st := finishedStory(base.Add(time.Duration(i) * time.Hour))
		ids = append(ids, st.ID)
		require.NoError(t, a.ArchiveStory(ctx, st))
	}

	rows, err := a.ListArchived(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ids[2], rows[0].ID)
	assert.Equal(t, ids[1], rows[1].ID)
}

func TestSQLiteArchive_GetMissing(t *testing.T) {
	a := openTestArchive(t)
	got, err := a.GetArchived(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenArchive_RequiresPath(t *testing.T) {
	_, err := OpenArchive("  ")
	assert.Error(t, err)
}
