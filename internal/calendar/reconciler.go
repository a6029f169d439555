package calendar

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// Outcome classifies one booking after a reconcile pass.
type Outcome string

const (
	// OutcomeMatched: best candidate is an exact or code match.
	OutcomeMatched Outcome = "matched"
	// OutcomeConflict: best candidate overlaps but dates disagree.
	OutcomeConflict Outcome = "conflict"
	// OutcomeLinked: the previously linked event re-validated as the best
	// candidate; idempotent re-confirmation, no-op write.
	OutcomeLinked Outcome = "linked"
	// OutcomeUnmatched: no candidate at all (private booking, or feed not
	// yet synced).
	OutcomeUnmatched Outcome = "unmatched"
)

// ReconcileOptions filter the booking set and select dry-run vs commit.
type ReconcileOptions struct {
	// UnitID limits the pass to one unit when set.
	UnitID *string
	// From keeps bookings whose checkout is on/after this date.
	From *time.Time
	// To keeps bookings whose check-in is on/before this date.
	To *time.Time
	// Commit applies field updates; false is a pure classification pass.
	Commit bool
}

// ReconcileItem is one booking's outcome, carrying enough for a
// human-facing conflict report.
type ReconcileItem struct {
	BookingID       string  `json:"booking_id"`
	UnitID          string  `json:"unit_id"`
	ReservationCode string  `json:"reservation_code,omitempty"`
	CheckIn         string  `json:"check_in"`
	CheckOut        string  `json:"check_out"`
	Outcome         Outcome `json:"outcome"`
	MatchKind       string  `json:"match_kind,omitempty"`
	EventID         string  `json:"event_id,omitempty"`
	EventStart      string  `json:"event_start,omitempty"`
	EventEnd        string  `json:"event_end,omitempty"`
	Fingerprint     string  `json:"fingerprint,omitempty"`
	AckToken        string  `json:"ack_token,omitempty"`
	Acknowledged    bool    `json:"acknowledged"`
	CommitFailed    bool    `json:"commit_failed,omitempty"`
}

// ReconcileResult aggregates a full pass. A booking whose commit write
// fails is counted under CommitErrors, not its classification bucket, so
// Matched/Conflicts/Unmatched report only rows actually written.
type ReconcileResult struct {
	Processed    int             `json:"processed"`
	Matched      int             `json:"matched"`
	Conflicts    int             `json:"conflicts"`
	Linked       int             `json:"linked"`
	Unmatched    int             `json:"unmatched"`
	Skipped      int             `json:"skipped"`
	CommitErrors int             `json:"commit_errors"`
	DryRun       bool            `json:"dry_run"`
	Items        []ReconcileItem `json:"items"`
}

// Dismissed reports whether a reconcile outcome has been acknowledged at
// its current fingerprint. Satisfied by *alerts.Tracker; nil disables the
// check.
type Dismissed interface {
	IsDismissed(ctx context.Context, category, token string) (bool, error)
}

// Reconciler classifies bookings against the event cache. It never mutates
// stay dates or financial fields; commit writes touch only the
// reconciliation fields, one booking per transaction.
type Reconciler struct {
	unitRepo    *storage.UnitRepository
	eventRepo   *storage.EventRepository
	bookingRepo *storage.BookingRepository
	dismissed   Dismissed
}

// NewReconciler creates a reconciler. dismissed may be nil.
func NewReconciler(
	unitRepo *storage.UnitRepository,
	eventRepo *storage.EventRepository,
	bookingRepo *storage.BookingRepository,
	dismissed Dismissed,
) *Reconciler {
	return &Reconciler{
		unitRepo:    unitRepo,
		eventRepo:   eventRepo,
		bookingRepo: bookingRepo,
		dismissed:   dismissed,
	}
}

// Reconcile runs one pass over the filtered booking set. Per-booking
// problems are skipped and counted; only a failure to load the candidate
// set is returned as an error.
func (r *Reconciler) Reconcile(ctx context.Context, opts ReconcileOptions) (*ReconcileResult, error) {
	bookings, err := r.bookingRepo.ListCandidates(ctx, opts.UnitID, opts.From, opts.To)
	if err != nil {
		return nil, fmt.Errorf("loading candidate bookings: %w", err)
	}

	result := &ReconcileResult{DryRun: !opts.Commit}

	// Events are loaded per unit once and reused across that unit's
	// bookings within the pass.
	eventsByUnit := make(map[string][]models.IcalEvent)

	now := time.Now().UTC()

	for _, booking := range bookings {
		if booking.UnitID == "" || booking.CheckIn.IsZero() || booking.CheckOut.IsZero() {
			result.Skipped++
			continue
		}

		events, ok := eventsByUnit[booking.UnitID]
		if !ok {
			unit, err := r.unitRepo.GetByID(ctx, booking.UnitID)
			if err != nil || unit == nil {
				log.Printf("Skipping booking %s: unit %s not loadable: %v", booking.ID, booking.UnitID, err)
				result.Skipped++
				continue
			}
			events, err = r.eventRepo.ListByUnit(ctx, booking.UnitID)
			if err != nil {
				log.Printf("Skipping booking %s: events for unit %s not loadable: %v", booking.ID, booking.UnitID, err)
				result.Skipped++
				continue
			}
			eventsByUnit[booking.UnitID] = events
		}

		item := r.classify(booking, events)
		result.Processed++

		if item.Outcome == OutcomeConflict && r.dismissed != nil && item.AckToken != "" {
			dismissed, err := r.dismissed.IsDismissed(ctx, models.DismissalCategoryReconcile, item.AckToken)
			if err != nil {
				log.Printf("Could not check acknowledgement for booking %s: %v", booking.ID, err)
			} else {
				item.Acknowledged = dismissed
			}
		}

		if opts.Commit {
			if err := r.apply(ctx, booking, item, now); err != nil {
				log.Printf("Commit failed for booking %s: %v", booking.ID, err)
				item.CommitFailed = true
			}
		}

		// A row that failed to commit is not reported under its
		// classification bucket.
		if item.CommitFailed {
			result.CommitErrors++
		} else {
			switch item.Outcome {
			case OutcomeMatched:
				result.Matched++
			case OutcomeConflict:
				result.Conflicts++
			case OutcomeLinked:
				result.Linked++
			case OutcomeUnmatched:
				result.Unmatched++
			}
		}

		result.Items = append(result.Items, item)
	}

	return result, nil
}

// classify runs the matcher for one booking and derives its outcome.
func (r *Reconciler) classify(booking models.Booking, events []models.IcalEvent) ReconcileItem {
	item := ReconcileItem{
		BookingID:       booking.ID,
		UnitID:          booking.UnitID,
		ReservationCode: booking.Code(),
		CheckIn:         booking.CheckIn.Format("2006-01-02"),
		CheckOut:        booking.CheckOut.Format("2006-01-02"),
	}

	candidates := FindCandidates(booking, events)
	if len(candidates) == 0 {
		item.Outcome = OutcomeUnmatched
		return item
	}

	best := candidates[0]
	item.MatchKind = best.Kind.String()
	item.EventID = best.Event.ID
	item.EventStart = best.Event.Start.Format("2006-01-02")
	item.EventEnd = best.Event.End.Format("2006-01-02")
	item.Fingerprint = best.Event.Fingerprint
	item.AckToken = OutcomeToken(booking.ID, best.Event.Fingerprint)

	switch best.Kind {
	case MatchCode, MatchExact:
		// A re-validated previous link is a no-op re-confirmation.
		if booking.IcalEventID != nil && *booking.IcalEventID == best.Event.ID &&
			booking.SyncStatus == models.BookingSyncMatched {
			item.Outcome = OutcomeLinked
		} else {
			item.Outcome = OutcomeMatched
		}
	default:
		item.Outcome = OutcomeConflict
	}

	return item
}

// apply writes the minimal safe field set for one outcome. Conflicts link
// the event for reference but never change checkIn/checkOut; resolution is
// always a human action.
func (r *Reconciler) apply(ctx context.Context, booking models.Booking, item ReconcileItem, now time.Time) error {
	via := models.UpdatedViaIcal

	switch item.Outcome {
	case OutcomeLinked:
		// Idempotent re-confirmation: nothing to write.
		return nil

	case OutcomeMatched:
		eventID := item.EventID
		return r.bookingRepo.ApplyReconcile(ctx, booking.ID, storage.ReconcileUpdate{
			IcalEventID:    &eventID,
			SyncStatus:     models.BookingSyncMatched,
			OverlapWarning: false,
			LastIcalSyncAt: now,
			LastUpdatedVia: &via,
		})

	case OutcomeConflict:
		eventID := item.EventID
		return r.bookingRepo.ApplyReconcile(ctx, booking.ID, storage.ReconcileUpdate{
			IcalEventID:    &eventID,
			SyncStatus:     models.BookingSyncConflict,
			OverlapWarning: true,
			LastIcalSyncAt: now,
			LastUpdatedVia: &via,
		})

	case OutcomeUnmatched:
		return r.bookingRepo.ApplyReconcile(ctx, booking.ID, storage.ReconcileUpdate{
			IcalEventID:    booking.IcalEventID,
			SyncStatus:     models.BookingSyncUnmatched,
			OverlapWarning: booking.OverlapWarning,
			LastIcalSyncAt: now,
			LastUpdatedVia: booking.LastUpdatedVia,
		})
	}

	return nil
}
