package inbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/events-aggregator/pkg/db/dbtest"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
)

func TestRepositoryGetCreate(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	missing, err := repo.Get(ctx, "unknown")
	require.NoError(t, err)
	require.Nil(t, missing)

	item := &models.InboxItem{
		Key:         "key-1",
		RequestHash: "abc",
		Response:    []byte(`{"ticket_id":"t-1"}`),
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, item))

	got, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "abc", got.RequestHash)
	require.JSONEq(t, `{"ticket_id":"t-1"}`, string(got.Response))

	require.Error(t, repo.Create(ctx, item))
}

func TestRepositoryDeleteExpired(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &models.InboxItem{Key: "expired", RequestHash: "h1", Response: []byte(`{}`), ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, &models.InboxItem{Key: "fresh", RequestHash: "h2", Response: []byte(`{}`), ExpiresAt: now.Add(time.Hour)}))

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	fresh, err := repo.Get(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh)

	again, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Zero(t, again)
}
