package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// DismissalRepository provides data access for alert dismissals.
type DismissalRepository struct {
	BaseRepository
}

// NewDismissalRepository creates a new dismissal repository.
func NewDismissalRepository(db *DB) *DismissalRepository {
	return &DismissalRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a dismissal. Re-dismissing the same (actor, category,
// token) is idempotent: the existing record is returned unchanged.
func (r *DismissalRepository) Create(ctx context.Context, d *models.AlertDismissal) error {
	d.ID = GenerateID()
	d.DismissedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO alert_dismissals (id, category, token, dismissed_by, dismissed_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.Category, d.Token, d.DismissedBy, d.DismissedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			existing, getErr := r.GetByActorAndToken(ctx, d.DismissedBy, d.Category, d.Token)
			if getErr != nil {
				return getErr
			}
			if existing != nil {
				*d = *existing
				return nil
			}
		}
		return fmt.Errorf("inserting dismissal: %w", err)
	}

	return nil
}

// GetByActorAndToken retrieves one dismissal by its unique key.
func (r *DismissalRepository) GetByActorAndToken(ctx context.Context, actor, category, token string) (*models.AlertDismissal, error) {
	d := &models.AlertDismissal{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, category, token, dismissed_by, dismissed_at
		FROM alert_dismissals
		WHERE dismissed_by = ? AND category = ? AND token = ?
	`, actor, category, token).Scan(
		&d.ID, &d.Category, &d.Token, &d.DismissedBy, &d.DismissedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying dismissal: %w", err)
	}

	return d, nil
}

// ExistsForToken reports whether any actor dismissed the given token.
func (r *DismissalRepository) ExistsForToken(ctx context.Context, category, token string) (bool, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alert_dismissals WHERE category = ? AND token = ?
	`, category, token).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("counting dismissals: %w", err)
	}

	return count > 0, nil
}

// ListByCategory retrieves dismissals for one category, newest first.
func (r *DismissalRepository) ListByCategory(ctx context.Context, category string) ([]models.AlertDismissal, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, category, token, dismissed_by, dismissed_at
		FROM alert_dismissals
		WHERE category = ?
		ORDER BY dismissed_at DESC
	`, category)
	if err != nil {
		return nil, fmt.Errorf("querying dismissals: %w", err)
	}
	defer rows.Close()

	var dismissals []models.AlertDismissal
	for rows.Next() {
		var d models.AlertDismissal
		if err := rows.Scan(&d.ID, &d.Category, &d.Token, &d.DismissedBy, &d.DismissedAt); err != nil {
			return nil, fmt.Errorf("scanning dismissal: %w", err)
		}
		dismissals = append(dismissals, d)
	}

	return dismissals, rows.Err()
}
