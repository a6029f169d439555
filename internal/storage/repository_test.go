package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db))
	return db
}

func createTestUnit(t *testing.T, db *DB, name, feedURL string) *models.Unit {
	t.Helper()

	u := &models.Unit{Name: name, Enabled: true}
	if feedURL != "" {
		u.FeedURL = &feedURL
	}
	require.NoError(t, NewUnitRepository(db).Create(context.Background(), u))
	return u
}

func createTestEvent(t *testing.T, db *DB, unitID, uid string, start, end time.Time) *models.IcalEvent {
	t.Helper()

	e := &models.IcalEvent{
		UnitID:      unitID,
		UID:         uid,
		Start:       start,
		End:         end,
		EventType:   models.EventTypeReservation,
		Fingerprint: "fp-" + uid,
	}
	require.NoError(t, NewEventRepository(db).Insert(context.Background(), e))
	return e
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
