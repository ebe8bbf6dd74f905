package syncmeta

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/events-aggregator/pkg/db/dbtest"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

func TestGetOrAddCreatesSingleton(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	meta, created, err := repo.GetOrAdd(ctx, false)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, models.SyncMetaID, meta.ID)
	require.Equal(t, enums.SyncStatusNever, meta.SyncStatus)
	require.Nil(t, meta.LastSyncTime)
	require.Nil(t, meta.LastChangedAt)

	again, created, err := repo.GetOrAdd(ctx, true)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, meta.ID, again.ID)
}

func TestGetOrAddConcurrentCallersShareOneRow(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				_, created, err := NewRepository(tx).GetOrAdd(ctx, true)
				if err != nil {
					return err
				}
				results <- created
				return nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	createdCount := 0
	for created := range results {
		if created {
			createdCount++
		}
	}
	require.Equal(t, 1, createdCount)

	var rows int64
	require.NoError(t, db.Model(&models.SyncMeta{}).Count(&rows).Error)
	require.Equal(t, int64(1), rows)
}

func TestUpdatePersistsState(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	meta, _, err := repo.GetOrAdd(ctx, false)
	require.NoError(t, err)

	syncedAt := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	watermark := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	meta.SyncStatus = enums.SyncStatusSynced
	meta.LastSyncTime = &syncedAt
	meta.LastChangedAt = &watermark
	require.NoError(t, repo.Update(ctx, meta))

	stored, created, err := repo.GetOrAdd(ctx, false)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, enums.SyncStatusSynced, stored.SyncStatus)
	require.NotNil(t, stored.LastSyncTime)
	require.True(t, stored.LastSyncTime.Equal(syncedAt))
	require.NotNil(t, stored.LastChangedAt)
	require.Equal(t, "2024-05-01", stored.LastChangedAt.UTC().Format("2006-01-02"))
}
