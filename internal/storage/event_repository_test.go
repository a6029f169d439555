package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

func TestEventRepository_DuplicateUIDIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	unit := createTestUnit(t, db, "Casa Azul", "")
	repo := NewEventRepository(db)
	ctx := context.Background()

	createTestEvent(t, db, unit.ID, "ev1@feed", day(2026, time.April, 1), day(2026, time.April, 5))

	dup := &models.IcalEvent{
		UnitID:      unit.ID,
		UID:         "ev1@feed",
		Start:       day(2026, time.April, 2),
		End:         day(2026, time.April, 6),
		EventType:   models.EventTypeReservation,
		Fingerprint: "fp-other",
	}
	err := repo.Insert(ctx, dup)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestEventRepository_UpsertFallsBackToUpdate(t *testing.T) {
	db := newTestDB(t)
	unit := createTestUnit(t, db, "Casa Azul", "")
	repo := NewEventRepository(db)
	ctx := context.Background()

	original := createTestEvent(t, db, unit.ID, "ev1@feed", day(2026, time.April, 1), day(2026, time.April, 5))

	// A second writer upserting the same (unit, uid) lands as an update.
	inserted, err := repo.Upsert(ctx, &models.IcalEvent{
		UnitID:      unit.ID,
		UID:         "ev1@feed",
		Start:       day(2026, time.April, 1),
		End:         day(2026, time.April, 6),
		EventType:   models.EventTypeReservation,
		Fingerprint: "fp-changed",
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	row, err := repo.GetByUnitAndUID(ctx, unit.ID, "ev1@feed")
	require.NoError(t, err)
	assert.Equal(t, original.ID, row.ID, "row identity survives the upsert")
	assert.Equal(t, "fp-changed", row.Fingerprint)
	assert.True(t, row.End.Equal(day(2026, time.April, 6)))
}

func TestEventRepository_SameUIDAcrossUnitsIsFine(t *testing.T) {
	db := newTestDB(t)
	unitA := createTestUnit(t, db, "Casa Azul", "")
	unitB := createTestUnit(t, db, "Casa Roja", "")

	createTestEvent(t, db, unitA.ID, "shared@feed", day(2026, time.April, 1), day(2026, time.April, 5))
	createTestEvent(t, db, unitB.ID, "shared@feed", day(2026, time.April, 1), day(2026, time.April, 5))

	repo := NewEventRepository(db)
	a, err := repo.GetByUnitAndUID(context.Background(), unitA.ID, "shared@feed")
	require.NoError(t, err)
	b, err := repo.GetByUnitAndUID(context.Background(), unitB.ID, "shared@feed")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEventRepository_ListOverlappingIsHalfOpen(t *testing.T) {
	db := newTestDB(t)
	unit := createTestUnit(t, db, "Casa Azul", "")
	repo := NewEventRepository(db)
	ctx := context.Background()

	createTestEvent(t, db, unit.ID, "before@feed", day(2026, time.April, 1), day(2026, time.April, 5))
	overlapping := createTestEvent(t, db, unit.ID, "inside@feed", day(2026, time.April, 6), day(2026, time.April, 9))
	createTestEvent(t, db, unit.ID, "after@feed", day(2026, time.April, 10), day(2026, time.April, 14))

	events, err := repo.ListOverlapping(ctx, unit.ID, day(2026, time.April, 5), day(2026, time.April, 10))
	require.NoError(t, err)
	require.Len(t, events, 1, "turnover-day neighbors do not overlap")
	assert.Equal(t, overlapping.ID, events[0].ID)
}

func TestEventRepository_TouchLastSeenLeavesUpdatedAt(t *testing.T) {
	db := newTestDB(t)
	unit := createTestUnit(t, db, "Casa Azul", "")
	repo := NewEventRepository(db)
	ctx := context.Background()

	event := createTestEvent(t, db, unit.ID, "ev1@feed", day(2026, time.April, 1), day(2026, time.April, 5))

	seenAt := time.Now().UTC().Add(time.Minute)
	require.NoError(t, repo.TouchLastSeen(ctx, unit.ID, "ev1@feed", seenAt))

	row, err := repo.GetByUnitAndUID(ctx, unit.ID, "ev1@feed")
	require.NoError(t, err)
	assert.True(t, row.UpdatedAt.Equal(event.UpdatedAt))
	assert.True(t, row.LastSeenAt.After(event.LastSeenAt))
}

func TestEventRepository_PurgeSparesPastBlocks(t *testing.T) {
	db := newTestDB(t)
	unit := createTestUnit(t, db, "Casa Azul", "")
	repo := NewEventRepository(db)
	ctx := context.Background()

	// Past block: history stays intact regardless of feed contents.
	past := &models.IcalEvent{
		UnitID:      unit.ID,
		UID:         "past-block@feed",
		Start:       day(2020, time.January, 1),
		End:         day(2020, time.January, 5),
		EventType:   models.EventTypeBlock,
		IsBlock:     true,
		Fingerprint: "fp-past",
	}
	require.NoError(t, repo.Insert(ctx, past))

	purged, err := repo.PurgeStaleFutureBlocks(ctx, unit.ID, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, purged)

	row, err := repo.GetByUnitAndUID(ctx, unit.ID, "past-block@feed")
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestEventRepository_PurgeSparesReservations(t *testing.T) {
	db := newTestDB(t)
	unit := createTestUnit(t, db, "Casa Azul", "")
	repo := NewEventRepository(db)
	ctx := context.Background()

	future := time.Now().UTC().AddDate(0, 1, 0)
	createTestEvent(t, db, unit.ID, "res@feed", future, future.AddDate(0, 0, 4))

	purged, err := repo.PurgeStaleFutureBlocks(ctx, unit.ID, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, purged, "only blocks are eligible for purging")
}
