package calendar

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// HoldSweepResult reports one sweep over expired hold bookings.
type HoldSweepResult struct {
	Found   int              `json:"found"`
	Expired int              `json:"expired"`
	DryRun  bool             `json:"dry_run"`
	Items   []models.Booking `json:"items"`
}

// HoldSweeper expires provisional hold bookings whose expiry has passed,
// freeing their calendar dates. Hold policy and expiry fields are kept for
// audit; the confirmed-at and original-code fields are untouched.
type HoldSweeper struct {
	bookingRepo *storage.BookingRepository
	limit       int
}

// NewHoldSweeper creates a hold sweeper processing at most limit rows per
// sweep.
func NewHoldSweeper(bookingRepo *storage.BookingRepository, limit int) *HoldSweeper {
	if limit <= 0 {
		limit = 200
	}
	return &HoldSweeper{bookingRepo: bookingRepo, limit: limit}
}

// Sweep finds and expires holds past their expiry. Per-booking write
// failures are logged and skipped; dryRun classifies without writing.
func (s *HoldSweeper) Sweep(ctx context.Context, dryRun bool) (*HoldSweepResult, error) {
	now := time.Now().UTC()

	expired, err := s.bookingRepo.ListExpiredHolds(ctx, now, s.limit)
	if err != nil {
		return nil, fmt.Errorf("listing expired holds: %w", err)
	}

	result := &HoldSweepResult{
		Found:  len(expired),
		DryRun: dryRun,
		Items:  expired,
	}

	if dryRun {
		return result, nil
	}

	for _, b := range expired {
		if err := s.bookingRepo.ExpireHold(ctx, b.ID, now); err != nil {
			log.Printf("Could not expire hold %s: %v", b.ID, err)
			continue
		}
		result.Expired++
	}

	if result.Expired > 0 {
		log.Printf("Hold sweep expired %d of %d hold(s)", result.Expired, result.Found)
	}

	return result, nil
}
