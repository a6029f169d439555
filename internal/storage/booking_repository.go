package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// BookingRepository provides data access for bookings. The booking rows are
// owned by the back office; this repository reads candidates and writes only
// the reconciliation, acknowledgement, and hold-expiry fields.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const bookingColumns = `id, unit_id, guest_name, source, status, reservation_code,
	       confirmation_code, check_in, check_out, payout, fees, commission,
	       ical_event_id, sync_status, last_ical_sync_at, last_updated_via,
	       overlap_warning, ack_fingerprint, ack_at, ack_by,
	       hold_expires_at, hold_policy, confirmed_at, original_code,
	       created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.UnitID, &b.GuestName, &b.Source, &b.Status, &b.ReservationCode,
		&b.ConfirmationCode, &b.CheckIn, &b.CheckOut, &b.Payout, &b.Fees, &b.Commission,
		&b.IcalEventID, &b.SyncStatus, &b.LastIcalSyncAt, &b.LastUpdatedVia,
		&b.OverlapWarning, &b.AckFingerprint, &b.AckAt, &b.AckBy,
		&b.HoldExpiresAt, &b.HoldPolicy, &b.ConfirmedAt, &b.OriginalCode,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByID retrieves a booking by its ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE id = ?
	`, id)

	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}

	return b, nil
}

// ListCandidates retrieves bookings for reconciliation: checkout on/after
// from (if given), check-in on/before to (if given), optionally one unit.
func (r *BookingRepository) ListCandidates(ctx context.Context, unitID *string, from, to *time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	var args []any

	if unitID != nil {
		query += " AND unit_id = ?"
		args = append(args, *unitID)
	}
	if from != nil {
		query += " AND check_out >= ?"
		args = append(args, *from)
	}
	if to != nil {
		query += " AND check_in <= ?"
		args = append(args, *to)
	}
	query += " ORDER BY check_in"

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidate bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	return bookings, rows.Err()
}

// ListConflicts retrieves bookings currently flagged as conflicting.
func (r *BookingRepository) ListConflicts(ctx context.Context) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE sync_status = ? OR overlap_warning = 1
		ORDER BY check_in
	`, models.BookingSyncConflict)
	if err != nil {
		return nil, fmt.Errorf("querying conflicts: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	return bookings, rows.Err()
}

// ListExpiredHolds retrieves hold bookings whose expiry has passed.
func (r *BookingRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 200
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE LOWER(status) = ?
		  AND hold_expires_at IS NOT NULL
		  AND hold_expires_at <= ?
		ORDER BY hold_expires_at
		LIMIT ?
	`, models.BookingStatusHold, now, limit)
	if err != nil {
		return nil, fmt.Errorf("querying expired holds: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	return bookings, rows.Err()
}

// ReconcileUpdate holds the only booking fields the reconciler may write.
// Stay dates and financial fields are deliberately absent.
type ReconcileUpdate struct {
	IcalEventID    *string
	SyncStatus     string
	OverlapWarning bool
	LastIcalSyncAt time.Time
	LastUpdatedVia *string
}

// ApplyReconcile writes a reconciliation outcome to one booking inside its
// own transaction, so a failure never leaves sibling bookings half-applied.
func (r *BookingRepository) ApplyReconcile(ctx context.Context, bookingID string, upd ReconcileUpdate) error {
	now := r.Now()

	return r.Transaction(func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE bookings SET
				ical_event_id = ?, sync_status = ?, overlap_warning = ?,
				last_ical_sync_at = ?, last_updated_via = ?, updated_at = ?
			WHERE id = ?
		`,
			upd.IcalEventID, upd.SyncStatus, upd.OverlapWarning,
			upd.LastIcalSyncAt, upd.LastUpdatedVia, now, bookingID,
		)
		if err != nil {
			return fmt.Errorf("applying reconcile update: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return fmt.Errorf("booking not found: %s", bookingID)
		}
		return nil
	})
}

// SetAcknowledged stamps the acknowledgement fields on a booking.
func (r *BookingRepository) SetAcknowledged(ctx context.Context, bookingID, fingerprint, actor string) error {
	now := r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE bookings SET
			ack_fingerprint = ?, ack_at = ?, ack_by = ?, updated_at = ?
		WHERE id = ?
	`, fingerprint, now, actor, now, bookingID)
	if err != nil {
		return fmt.Errorf("acknowledging booking: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("booking not found: %s", bookingID)
	}

	return nil
}

// ExpireHold marks a hold booking as expired, keeping the hold policy and
// expiry fields for audit.
func (r *BookingRepository) ExpireHold(ctx context.Context, bookingID string, now time.Time) error {
	via := models.UpdatedViaSweeper

	result, err := r.DB().ExecContext(ctx, `
		UPDATE bookings SET
			status = ?, last_updated_via = ?, updated_at = ?
		WHERE id = ? AND LOWER(status) = ?
	`, models.BookingStatusExpired, via, now, bookingID, models.BookingStatusHold)
	if err != nil {
		return fmt.Errorf("expiring hold: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("hold booking not found: %s", bookingID)
	}

	return nil
}

// Create inserts a booking row. The back office owns booking creation; this
// exists for fixtures and operator tooling.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = GenerateID()
	}
	now := r.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.SyncStatus == "" {
		b.SyncStatus = models.BookingSyncNone
	}
	if b.Status == "" {
		b.Status = "confirmed"
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO bookings (
			id, unit_id, guest_name, source, status, reservation_code,
			confirmation_code, check_in, check_out, payout, fees, commission,
			ical_event_id, sync_status, last_ical_sync_at, last_updated_via,
			overlap_warning, ack_fingerprint, ack_at, ack_by,
			hold_expires_at, hold_policy, confirmed_at, original_code,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.UnitID, b.GuestName, b.Source, b.Status, b.ReservationCode,
		b.ConfirmationCode, b.CheckIn, b.CheckOut, b.Payout, b.Fees, b.Commission,
		b.IcalEventID, b.SyncStatus, b.LastIcalSyncAt, b.LastUpdatedVia,
		b.OverlapWarning, b.AckFingerprint, b.AckAt, b.AckBy,
		b.HoldExpiresAt, b.HoldPolicy, b.ConfirmedAt, b.OriginalCode,
		b.CreatedAt, b.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}
