package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(context.Background(), filepath.Join(t.TempDir(), "data", "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepository_SaveListDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created := time.UnixMilli(1700000000000)
	a := RefreshTarget{ChannelID: "c1", GuildID: "g1", RegisteredBy: "u1", CreatedAt: created}
	b := RefreshTarget{ChannelID: "c2", GuildID: "g1", RegisteredBy: "u2", CreatedAt: created.Add(time.Minute)}
	require.NoError(t, repo.SaveTarget(ctx, b))
	require.NoError(t, repo.SaveTarget(ctx, a))

	got, err := repo.ListTargets(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]RefreshTarget{a, b}, got); diff != "" {
		t.Errorf("ListTargets mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, repo.DeleteTarget(ctx, "c1"))
	require.NoError(t, repo.DeleteTarget(ctx, "unknown"))

	got, err = repo.ListTargets(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ChannelID)
}

func TestRepository_SaveUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created := time.UnixMilli(1700000000000)
	target := RefreshTarget{ChannelID: "c1", GuildID: "g1", RegisteredBy: "u1", CreatedAt: created}
	require.NoError(t, repo.SaveTarget(ctx, target))

	target.MessageID = "m1"
	target.LastRenderedAt = created.Add(30 * time.Second)
	target.RegisteredBy = "someone-else"
	require.NoError(t, repo.SaveTarget(ctx, target))

	got, err := repo.GetTarget(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.MessageID)
	assert.Equal(t, created.Add(30*time.Second), got.LastRenderedAt)
	assert.Equal(t, "u1", got.RegisteredBy, "registration owner is kept")

	all, err := repo.ListTargets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_GetUnknown(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetTarget(context.Background(), "nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRepository_ReopenKeepsTargets(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")

	repo, err := NewRepository(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveTarget(ctx, RefreshTarget{ChannelID: "c1", MessageID: "m1"}))
	require.NoError(t, repo.Close())

	repo, err = NewRepository(ctx, path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetTarget(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.MessageID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRepository_InMemory(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRepository(ctx, ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.SaveTarget(ctx, RefreshTarget{ChannelID: "c1"}))
	got, err := repo.ListTargets(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
