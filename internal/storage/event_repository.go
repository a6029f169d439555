package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// EventRepository provides data access for cached feed events.
type EventRepository struct {
	BaseRepository
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const eventColumns = `id, unit_id, uid, dtstart, dtend, status, summary, description,
	       event_type, is_block, reservation_code, fingerprint, etag,
	       last_seen_at, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.IcalEvent, error) {
	e := &models.IcalEvent{}
	err := row.Scan(
		&e.ID, &e.UnitID, &e.UID, &e.Start, &e.End, &e.Status, &e.Summary,
		&e.Description, &e.EventType, &e.IsBlock, &e.ReservationCode,
		&e.Fingerprint, &e.ETag, &e.LastSeenAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves one cached event by its ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.IcalEvent, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM ical_events WHERE id = ?
	`, id)

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}

	return e, nil
}

// GetByUnitAndUID retrieves one cached event by its feed identity.
func (r *EventRepository) GetByUnitAndUID(ctx context.Context, unitID, uid string) (*models.IcalEvent, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM ical_events WHERE unit_id = ? AND uid = ?
	`, unitID, uid)

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying event by uid: %w", err)
	}

	return e, nil
}

// ListByUnit retrieves all cached events for a unit, newest update first.
func (r *EventRepository) ListByUnit(ctx context.Context, unitID string) ([]models.IcalEvent, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM ical_events
		WHERE unit_id = ?
		ORDER BY updated_at DESC, dtstart
	`, unitID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []models.IcalEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *e)
	}

	return events, rows.Err()
}

// ListOverlapping retrieves a unit's events intersecting a half-open stay
// window: dtstart < checkOut AND dtend > checkIn.
func (r *EventRepository) ListOverlapping(ctx context.Context, unitID string, checkIn, checkOut time.Time) ([]models.IcalEvent, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM ical_events
		WHERE unit_id = ? AND dtstart < ? AND dtend > ?
		ORDER BY updated_at DESC
	`, unitID, checkOut, checkIn)
	if err != nil {
		return nil, fmt.Errorf("querying overlapping events: %w", err)
	}
	defer rows.Close()

	var events []models.IcalEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *e)
	}

	return events, rows.Err()
}

// Insert inserts a new cached event. Callers must be prepared for a unique
// (unit_id, uid) violation when a concurrent sync won the race; see Upsert.
func (r *EventRepository) Insert(ctx context.Context, e *models.IcalEvent) error {
	e.ID = GenerateID()
	now := r.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.LastSeenAt = now

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO ical_events (
			id, unit_id, uid, dtstart, dtend, status, summary, description,
			event_type, is_block, reservation_code, fingerprint, etag,
			last_seen_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.UnitID, e.UID, e.Start, e.End, e.Status, e.Summary, e.Description,
		e.EventType, e.IsBlock, e.ReservationCode, e.Fingerprint, e.ETag,
		e.LastSeenAt, e.CreatedAt, e.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

// UpdateContent replaces the content fields of a cached event and bumps
// updated_at. Used when the fingerprint changed.
func (r *EventRepository) UpdateContent(ctx context.Context, e *models.IcalEvent) error {
	now := r.Now()
	e.UpdatedAt = now
	e.LastSeenAt = now

	result, err := r.DB().ExecContext(ctx, `
		UPDATE ical_events SET
			dtstart = ?, dtend = ?, status = ?, summary = ?, description = ?,
			event_type = ?, is_block = ?, reservation_code = ?, fingerprint = ?,
			etag = ?, last_seen_at = ?, updated_at = ?
		WHERE unit_id = ? AND uid = ?
	`,
		e.Start, e.End, e.Status, e.Summary, e.Description,
		e.EventType, e.IsBlock, e.ReservationCode, e.Fingerprint,
		e.ETag, e.LastSeenAt, e.UpdatedAt,
		e.UnitID, e.UID,
	)

	if err != nil {
		return fmt.Errorf("updating event content: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("event not found: unit %s uid %s", e.UnitID, e.UID)
	}

	return nil
}

// TouchLastSeen refreshes only last_seen_at, leaving updated_at alone.
// Re-delivered identical content must not churn update timestamps.
func (r *EventRepository) TouchLastSeen(ctx context.Context, unitID, uid string, seenAt time.Time) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE ical_events SET last_seen_at = ? WHERE unit_id = ? AND uid = ?
	`, seenAt, unitID, uid)

	if err != nil {
		return fmt.Errorf("touching event: %w", err)
	}

	return nil
}

// Upsert inserts the event, falling back to a content update when another
// sync run inserted the same (unit_id, uid) first. Returns true when a row
// was inserted, false when updated.
func (r *EventRepository) Upsert(ctx context.Context, e *models.IcalEvent) (bool, error) {
	err := r.Insert(ctx, e)
	if err == nil {
		return true, nil
	}
	if !IsUniqueViolation(err) {
		return false, err
	}

	if err := r.UpdateContent(ctx, e); err != nil {
		return false, fmt.Errorf("retrying as update: %w", err)
	}
	return false, nil
}

// PurgeStaleFutureBlocks removes future block-type events for a unit that
// were not seen by the current sync run. Feeds drop removed manual blocks,
// so a stale future block would keep the unit looking unavailable. Events
// referenced by a booking are never removed. Returns the number deleted.
func (r *EventRepository) PurgeStaleFutureBlocks(ctx context.Context, unitID string, runStartedAt time.Time) (int, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	result, err := r.DB().ExecContext(ctx, `
		DELETE FROM ical_events
		WHERE unit_id = ?
		  AND (event_type = 'block' OR is_block = 1)
		  AND dtend >= ?
		  AND last_seen_at < ?
		  AND NOT EXISTS (
			SELECT 1 FROM bookings b WHERE b.ical_event_id = ical_events.id
		  )
	`, unitID, today, runStartedAt)

	if err != nil {
		return 0, fmt.Errorf("purging stale blocks: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}
