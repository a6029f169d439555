package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// UnitRepository provides data access for rental units.
type UnitRepository struct {
	BaseRepository
}

// NewUnitRepository creates a new unit repository.
func NewUnitRepository(db *DB) *UnitRepository {
	return &UnitRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const unitColumns = `id, name, feed_url, sync_interval_min, last_sync_at, sync_status,
	       sync_error, enabled, created_at, updated_at`

func scanUnit(row interface{ Scan(...any) error }) (*models.Unit, error) {
	u := &models.Unit{}
	err := row.Scan(
		&u.ID, &u.Name, &u.FeedURL, &u.SyncIntervalMin,
		&u.LastSyncAt, &u.SyncStatus, &u.SyncError,
		&u.Enabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new unit.
func (r *UnitRepository) Create(ctx context.Context, u *models.Unit) error {
	u.ID = GenerateID()
	u.CreatedAt = r.Now()
	u.UpdatedAt = r.Now()
	if u.SyncStatus == "" {
		u.SyncStatus = models.SyncStatusPending
	}
	if u.SyncIntervalMin <= 0 {
		u.SyncIntervalMin = 15
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO units (
			id, name, feed_url, sync_interval_min, sync_status, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID, u.Name, u.FeedURL, u.SyncIntervalMin,
		u.SyncStatus, u.Enabled, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting unit: %w", err)
	}

	return nil
}

// GetByID retrieves a unit by its ID.
func (r *UnitRepository) GetByID(ctx context.Context, id string) (*models.Unit, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+unitColumns+` FROM units WHERE id = ?
	`, id)

	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying unit: %w", err)
	}

	return u, nil
}

// List retrieves all units.
func (r *UnitRepository) List(ctx context.Context) ([]models.Unit, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+unitColumns+` FROM units ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		units = append(units, *u)
	}

	return units, rows.Err()
}

// ListSyncable retrieves all enabled units that have a feed URL configured.
// Units without a feed are excluded from sync, not errored.
func (r *UnitRepository) ListSyncable(ctx context.Context) ([]models.Unit, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+unitColumns+`
		FROM units
		WHERE enabled = 1 AND feed_url IS NOT NULL AND feed_url <> ''
		ORDER BY last_sync_at ASC NULLS FIRST
	`)
	if err != nil {
		return nil, fmt.Errorf("querying syncable units: %w", err)
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		units = append(units, *u)
	}

	return units, rows.Err()
}

// Update updates a unit's editable fields.
func (r *UnitRepository) Update(ctx context.Context, u *models.Unit) error {
	u.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE units SET
			name = ?, feed_url = ?, sync_interval_min = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`,
		u.Name, u.FeedURL, u.SyncIntervalMin, u.Enabled, u.UpdatedAt, u.ID,
	)

	if err != nil {
		return fmt.Errorf("updating unit: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("unit not found: %s", u.ID)
	}

	return nil
}

// UpdateSyncStatus updates the sync bookkeeping of a unit.
func (r *UnitRepository) UpdateSyncStatus(ctx context.Context, id string, status string, syncError *string) error {
	now := time.Now().UTC()
	var lastSyncAt *time.Time
	if status == models.SyncStatusSuccess {
		lastSyncAt = &now
	}

	_, err := r.DB().ExecContext(ctx, `
		UPDATE units SET
			sync_status = ?, sync_error = ?, last_sync_at = COALESCE(?, last_sync_at), updated_at = ?
		WHERE id = ?
	`, status, syncError, lastSyncAt, now, id)

	if err != nil {
		return fmt.Errorf("updating sync status: %w", err)
	}

	return nil
}

// Delete removes a unit by ID.
func (r *UnitRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM units WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting unit: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("unit not found: %s", id)
	}

	return nil
}
