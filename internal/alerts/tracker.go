// Package alerts tracks human acknowledgements of reconciliation
// discrepancies.
package alerts

import (
	"context"
	"fmt"

	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// Tracker records that a reviewer saw a specific discrepancy at a specific
// content fingerprint. The token is derived from the fingerprint, so a
// later genuine change re-opens the alert even though an older
// acknowledgement exists for the same booking.
type Tracker struct {
	dismissalRepo *storage.DismissalRepository
	bookingRepo   *storage.BookingRepository
}

// NewTracker creates an acknowledgement tracker. bookingRepo may be nil
// when booking ack stamps are not wanted.
func NewTracker(dismissalRepo *storage.DismissalRepository, bookingRepo *storage.BookingRepository) *Tracker {
	return &Tracker{
		dismissalRepo: dismissalRepo,
		bookingRepo:   bookingRepo,
	}
}

// Dismiss records an acknowledgement for (category, token) by actor.
// Re-dismissing is idempotent, not an error. When the token belongs to a
// booking outcome, the booking's ack fields are stamped as well.
func (t *Tracker) Dismiss(ctx context.Context, category, token, actor string) (*models.AlertDismissal, error) {
	if token == "" {
		return nil, fmt.Errorf("dismissal token is required")
	}
	if actor == "" {
		return nil, fmt.Errorf("dismissal actor is required")
	}
	if category == "" {
		category = models.DismissalCategoryAlert
	}

	d := &models.AlertDismissal{
		Category:    category,
		Token:       token,
		DismissedBy: actor,
	}
	if err := t.dismissalRepo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("recording dismissal: %w", err)
	}

	return d, nil
}

// DismissBooking acknowledges a booking's reconcile outcome at the given
// event fingerprint and stamps the booking's ack fields.
func (t *Tracker) DismissBooking(ctx context.Context, bookingID, fingerprint, actor string, token string) (*models.AlertDismissal, error) {
	d, err := t.Dismiss(ctx, models.DismissalCategoryReconcile, token, actor)
	if err != nil {
		return nil, err
	}

	if t.bookingRepo != nil {
		if err := t.bookingRepo.SetAcknowledged(ctx, bookingID, fingerprint, actor); err != nil {
			return nil, fmt.Errorf("stamping booking acknowledgement: %w", err)
		}
	}

	return d, nil
}

// IsDismissed reports whether any actor acknowledged (category, token).
// Callers derive the token from the current fingerprint, so a changed
// event yields a fresh token and this returns false again.
func (t *Tracker) IsDismissed(ctx context.Context, category, token string) (bool, error) {
	return t.dismissalRepo.ExistsForToken(ctx, category, token)
}

// List returns the dismissals recorded for one category.
func (t *Tracker) List(ctx context.Context, category string) ([]models.AlertDismissal, error) {
	return t.dismissalRepo.ListByCategory(ctx, category)
}
