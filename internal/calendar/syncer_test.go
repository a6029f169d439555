package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rental-calendar-sync/backend/internal/feed"
	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// stubFeed serves canned results keyed by feed URL.
type stubFeed struct {
	results map[string]*feed.Result
	errs    map[string]error
}

func (s *stubFeed) FetchEvents(_ context.Context, feedURL string) (*feed.Result, error) {
	if err, ok := s.errs[feedURL]; ok {
		return nil, err
	}
	if res, ok := s.results[feedURL]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("no stub for %s", feedURL)
}

func newSyncerForTest(db *storage.DB, client FeedClient) *Syncer {
	return NewSyncer(
		storage.NewUnitRepository(db),
		storage.NewEventRepository(db),
		client,
		2,
		nil,
	)
}

func TestSyncUnit_InsertsNewEvents(t *testing.T) {
	db := newTestDB(t)
	unit := createUnit(t, db, "Casa Azul", "https://feeds.example/u1.ics")

	client := &stubFeed{results: map[string]*feed.Result{
		*unit.FeedURL: {Events: []feed.Event{
			{UID: "ev1@feed", Start: date(2026, time.April, 1), End: date(2026, time.April, 5), Status: "CONFIRMED", Summary: "Reserved"},
			{UID: "ev2@feed", Start: date(2026, time.April, 10), End: date(2026, time.April, 12), Summary: "Blocked"},
		}},
	}}
	syncer := newSyncerForTest(db, client)

	result := syncer.SyncUnit(context.Background(), *unit)

	require.True(t, result.OK, "reason: %s", result.Reason)
	assert.Equal(t, 2, result.EventsFound)
	assert.Equal(t, 2, result.EventsUpdated)

	eventRepo := storage.NewEventRepository(db)
	reserved, err := eventRepo.GetByUnitAndUID(context.Background(), unit.ID, "ev1@feed")
	require.NoError(t, err)
	require.NotNil(t, reserved)
	assert.Equal(t, models.EventTypeUnknown, reserved.EventType)
	assert.NotEmpty(t, reserved.Fingerprint)

	blocked, err := eventRepo.GetByUnitAndUID(context.Background(), unit.ID, "ev2@feed")
	require.NoError(t, err)
	require.NotNil(t, blocked)
	assert.True(t, blocked.IsBlock)
	assert.Equal(t, models.EventTypeBlock, blocked.EventType)

	// Sync bookkeeping on the unit
	refreshed, err := storage.NewUnitRepository(db).GetByID(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, refreshed.SyncStatus)
	assert.NotNil(t, refreshed.LastSyncAt)
	assert.Nil(t, refreshed.SyncError)
}

func TestSyncUnit_IdenticalRedeliveryTouchesOnlyLastSeen(t *testing.T) {
	db := newTestDB(t)
	unit := createUnit(t, db, "Casa Azul", "https://feeds.example/u1.ics")

	client := &stubFeed{results: map[string]*feed.Result{
		*unit.FeedURL: {Events: []feed.Event{
			{UID: "ev1@feed", Start: date(2026, time.April, 1), End: date(2026, time.April, 5), Status: "CONFIRMED", Summary: "Reserved"},
		}},
	}}
	syncer := newSyncerForTest(db, client)
	eventRepo := storage.NewEventRepository(db)

	first := syncer.SyncUnit(context.Background(), *unit)
	require.True(t, first.OK)
	before, err := eventRepo.GetByUnitAndUID(context.Background(), unit.ID, "ev1@feed")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	second := syncer.SyncUnit(context.Background(), *unit)
	require.True(t, second.OK)
	assert.Equal(t, 0, second.EventsUpdated, "identical re-delivery is not an update")

	after, err := eventRepo.GetByUnitAndUID(context.Background(), unit.ID, "ev1@feed")
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt), "updated_at must not churn")
	assert.True(t, after.LastSeenAt.After(before.LastSeenAt), "last_seen_at must advance")
	assert.Equal(t, before.Fingerprint, after.Fingerprint)
}

func TestSyncUnit_ChangedContentUpdatesInPlace(t *testing.T) {
	db := newTestDB(t)
	unit := createUnit(t, db, "Casa Azul", "https://feeds.example/u1.ics")

	client := &stubFeed{results: map[string]*feed.Result{
		*unit.FeedURL: {Events: []feed.Event{
			{UID: "ev1@feed", Start: date(2026, time.April, 1), End: date(2026, time.April, 5), Summary: "Reserved"},
		}},
	}}
	syncer := newSyncerForTest(db, client)
	eventRepo := storage.NewEventRepository(db)

	require.True(t, syncer.SyncUnit(context.Background(), *unit).OK)
	before, err := eventRepo.GetByUnitAndUID(context.Background(), unit.ID, "ev1@feed")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	// Same UID, dates extended by one night.
	client.results[*unit.FeedURL] = &feed.Result{Events: []feed.Event{
		{UID: "ev1@feed", Start: date(2026, time.April, 1), End: date(2026, time.April, 6), Summary: "Reserved"},
	}}

	result := syncer.SyncUnit(context.Background(), *unit)
	require.True(t, result.OK)
	assert.Equal(t, 1, result.EventsUpdated)

	after, err := eventRepo.GetByUnitAndUID(context.Background(), unit.ID, "ev1@feed")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "row is updated in place, not replaced")
	assert.NotEqual(t, before.Fingerprint, after.Fingerprint)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.End.Equal(date(2026, time.April, 6)))
}

func TestSyncUnit_FetchFailureLeavesCacheUntouched(t *testing.T) {
	db := newTestDB(t)
	unit := createUnit(t, db, "Casa Azul", "https://feeds.example/u1.ics")
	existing := insertEvent(t, db, unit.ID, "ev1@feed", date(2026, time.April, 1), date(2026, time.April, 5), nil)

	client := &stubFeed{errs: map[string]error{
		*unit.FeedURL: errors.New("connection refused"),
	}}
	syncer := newSyncerForTest(db, client)

	result := syncer.SyncUnit(context.Background(), *unit)

	assert.False(t, result.OK)
	assert.Contains(t, result.Reason, "connection refused")

	// Cached rows survive a failed run.
	after, err := storage.NewEventRepository(db).GetByUnitAndUID(context.Background(), unit.ID, "ev1@feed")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, existing.Fingerprint, after.Fingerprint)

	refreshed, err := storage.NewUnitRepository(db).GetByID(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, refreshed.SyncStatus)
	require.NotNil(t, refreshed.SyncError)
	assert.Contains(t, *refreshed.SyncError, "connection refused")
}

func TestSyncUnit_MissingUIDGetsSyntheticKey(t *testing.T) {
	db := newTestDB(t)
	unit := createUnit(t, db, "Casa Azul", "https://feeds.example/u1.ics")

	client := &stubFeed{results: map[string]*feed.Result{
		*unit.FeedURL: {Events: []feed.Event{
			{Start: date(2026, time.April, 1), End: date(2026, time.April, 5), Summary: "Blocked"},
		}},
	}}
	syncer := newSyncerForTest(db, client)

	result := syncer.SyncUnit(context.Background(), *unit)
	require.True(t, result.OK)

	wantUID := fmt.Sprintf("synthetic:%s:20260401:20260405", unit.ID)
	row, err := storage.NewEventRepository(db).GetByUnitAndUID(context.Background(), unit.ID, wantUID)
	require.NoError(t, err)
	require.NotNil(t, row)

	// A second run re-derives the same synthetic key instead of duplicating.
	second := syncer.SyncUnit(context.Background(), *unit)
	require.True(t, second.OK)
	assert.Equal(t, 0, second.EventsUpdated)
}

func TestSyncUnit_PurgesStaleFutureBlocks(t *testing.T) {
	db := newTestDB(t)
	unit := createUnit(t, db, "Casa Azul", "https://feeds.example/u1.ics")

	future := time.Now().UTC().AddDate(0, 1, 0)
	stale := insertEvent(t, db, unit.ID, "stale-block@feed", future, future.AddDate(0, 0, 3), func(e *models.IcalEvent) {
		e.EventType = models.EventTypeBlock
		e.IsBlock = true
	})
	linked := insertEvent(t, db, unit.ID, "linked-block@feed", future.AddDate(0, 0, 10), future.AddDate(0, 0, 13), func(e *models.IcalEvent) {
		e.EventType = models.EventTypeBlock
		e.IsBlock = true
	})
	createBooking(t, db, unit.ID, linked.Start, linked.End, func(b *models.Booking) {
		b.IcalEventID = &linked.ID
	})

	time.Sleep(20 * time.Millisecond)

	// The feed no longer carries either block.
	client := &stubFeed{results: map[string]*feed.Result{
		*unit.FeedURL: {Events: []feed.Event{
			{UID: "ev1@feed", Start: date(2026, time.April, 1), End: date(2026, time.April, 5), Summary: "Reserved"},
		}},
	}}
	syncer := newSyncerForTest(db, client)

	require.True(t, syncer.SyncUnit(context.Background(), *unit).OK)

	eventRepo := storage.NewEventRepository(db)
	gone, err := eventRepo.GetByUnitAndUID(context.Background(), unit.ID, stale.UID)
	require.NoError(t, err)
	assert.Nil(t, gone, "unseen future block is purged")

	kept, err := eventRepo.GetByUnitAndUID(context.Background(), unit.ID, linked.UID)
	require.NoError(t, err)
	assert.NotNil(t, kept, "booking-linked block survives the purge")
}

func TestSyncAll_IsolatesPerUnitFailures(t *testing.T) {
	db := newTestDB(t)
	good := createUnit(t, db, "Casa Azul", "https://feeds.example/good.ics")
	bad := createUnit(t, db, "Casa Roja", "https://feeds.example/bad.ics")
	createUnit(t, db, "No Feed", "")

	client := &stubFeed{
		results: map[string]*feed.Result{
			*good.FeedURL: {Events: []feed.Event{
				{UID: "ev1@feed", Start: date(2026, time.April, 1), End: date(2026, time.April, 5), Summary: "Reserved"},
			}},
		},
		errs: map[string]error{
			*bad.FeedURL: errors.New("HTTP 503"),
		},
	}
	syncer := newSyncerForTest(db, client)

	results, err := syncer.SyncAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2, "units without a feed are excluded, not failed")

	byUnit := map[string]models.UnitSyncResult{}
	for _, r := range results {
		byUnit[r.UnitID] = r
	}
	assert.True(t, byUnit[good.ID].OK)
	assert.Equal(t, 1, byUnit[good.ID].EventsUpdated)
	assert.False(t, byUnit[bad.ID].OK)
	assert.Contains(t, byUnit[bad.ID].Reason, "HTTP 503")

	// The good unit's rows landed despite the sibling failure.
	row, err := storage.NewEventRepository(db).GetByUnitAndUID(context.Background(), good.ID, "ev1@feed")
	require.NoError(t, err)
	assert.NotNil(t, row)
}
