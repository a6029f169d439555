package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

func TestUnitRepository_ListSyncableExcludesIneligible(t *testing.T) {
	db := newTestDB(t)
	repo := NewUnitRepository(db)
	ctx := context.Background()

	withFeed := createTestUnit(t, db, "Casa Azul", "https://feeds.example/a.ics")
	createTestUnit(t, db, "No Feed", "")

	disabled := &models.Unit{Name: "Disabled", Enabled: false}
	url := "https://feeds.example/d.ics"
	disabled.FeedURL = &url
	require.NoError(t, repo.Create(ctx, disabled))

	units, err := repo.ListSyncable(ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, withFeed.ID, units[0].ID)
}

func TestUnitRepository_UpdateSyncStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewUnitRepository(db)
	ctx := context.Background()

	unit := createTestUnit(t, db, "Casa Azul", "https://feeds.example/a.ics")

	errMsg := "HTTP 503"
	require.NoError(t, repo.UpdateSyncStatus(ctx, unit.ID, models.SyncStatusError, &errMsg))

	failed, err := repo.GetByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, failed.SyncStatus)
	require.NotNil(t, failed.SyncError)
	assert.Equal(t, "HTTP 503", *failed.SyncError)
	assert.Nil(t, failed.LastSyncAt, "a failed run does not count as a sync")

	require.NoError(t, repo.UpdateSyncStatus(ctx, unit.ID, models.SyncStatusSuccess, nil))

	succeeded, err := repo.GetByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, succeeded.SyncStatus)
	assert.Nil(t, succeeded.SyncError, "success clears the stored error")
	assert.NotNil(t, succeeded.LastSyncAt)
}

func TestUnitRepository_DeleteCascadesToEvents(t *testing.T) {
	db := newTestDB(t)
	repo := NewUnitRepository(db)
	ctx := context.Background()

	unit := createTestUnit(t, db, "Casa Azul", "")
	event := createTestEvent(t, db, unit.ID, "ev1@feed", day(2026, time.April, 1), day(2026, time.April, 5))

	require.NoError(t, repo.Delete(ctx, unit.ID))

	row, err := NewEventRepository(db).GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, row)
}
