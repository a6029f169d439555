package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// newTestDB opens a fresh in-memory database with migrations applied.
func newTestDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.NewDB("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.RunMigrations(db))
	return db
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// createUnit inserts a unit fixture and returns it.
func createUnit(t *testing.T, db *storage.DB, name string, feedURL string) *models.Unit {
	t.Helper()

	u := &models.Unit{Name: name, Enabled: true}
	if feedURL != "" {
		u.FeedURL = &feedURL
	}
	require.NoError(t, storage.NewUnitRepository(db).Create(context.Background(), u))
	return u
}

// createBooking inserts a booking fixture with the given stay window.
func createBooking(t *testing.T, db *storage.DB, unitID string, checkIn, checkOut time.Time, mutate func(*models.Booking)) *models.Booking {
	t.Helper()

	b := &models.Booking{
		UnitID:   unitID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
	}
	if mutate != nil {
		mutate(b)
	}
	require.NoError(t, storage.NewBookingRepository(db).Create(context.Background(), b))
	return b
}

// insertEvent inserts a cached event fixture with a computed fingerprint.
func insertEvent(t *testing.T, db *storage.DB, unitID, uid string, start, end time.Time, mutate func(*models.IcalEvent)) *models.IcalEvent {
	t.Helper()

	e := &models.IcalEvent{
		UnitID:    unitID,
		UID:       uid,
		Start:     start,
		End:       end,
		EventType: models.EventTypeReservation,
	}
	if mutate != nil {
		mutate(e)
	}
	if e.Fingerprint == "" {
		var status, summary, description string
		if e.Status != nil {
			status = *e.Status
		}
		if e.Summary != nil {
			summary = *e.Summary
		}
		if e.Description != nil {
			description = *e.Description
		}
		e.Fingerprint = Fingerprint(status, e.Start, e.End, summary, description)
	}
	require.NoError(t, storage.NewEventRepository(db).Insert(context.Background(), e))
	return e
}

// date builds a UTC midnight instant, the granularity bookings use.
func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
