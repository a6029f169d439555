package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/rental-calendar-sync/backend/internal/api/middleware"
	"github.com/rental-calendar-sync/backend/internal/calendar"
	"github.com/rental-calendar-sync/backend/internal/storage"
	ws "github.com/rental-calendar-sync/backend/internal/websocket"
)

// ReconcileRequest represents the request body for a reconcile run.
type ReconcileRequest struct {
	UnitID *string `json:"unit_id"`
	From   *string `json:"from"`
	To     *string `json:"to"`
	DryRun bool    `json:"dry_run"`
}

// Reconcile returns a handler that runs a reconciliation pass over bookings.
// The default is a committing run; dry_run classifies without writing.
func Reconcile(reconciler *calendar.Reconciler, broadcaster *ws.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReconcileRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
				return
			}
		}

		opts := calendar.ReconcileOptions{
			UnitID: req.UnitID,
			Commit: !req.DryRun,
		}

		if req.From != nil {
			t, err := parseDate(*req.From)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid from date, expected YYYY-MM-DD")
				return
			}
			opts.From = &t
		}
		if req.To != nil {
			t, err := parseDate(*req.To)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid to date, expected YYYY-MM-DD")
				return
			}
			opts.To = &t
		}
		if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "to date is before from date")
			return
		}

		result, err := reconciler.Reconcile(r.Context(), opts)
		if err != nil {
			log.Printf("Error running reconcile: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Reconcile run failed")
			return
		}

		if broadcaster != nil && !result.DryRun {
			broadcaster.BroadcastReconcileCompleted(result.Processed, result.Matched, result.Conflicts, result.Linked, result.Unmatched)
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// ListConflicts returns a handler that lists bookings currently flagged as
// conflicting with their unit's calendar.
func ListConflicts(bookingRepo *storage.BookingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookings, err := bookingRepo.ListConflicts(r.Context())
		if err != nil {
			log.Printf("Error listing conflicts: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list conflicts")
			return
		}

		writeJSON(w, http.StatusOK, bookings)
	}
}

// ExpireHolds returns a handler that sweeps expired hold bookings.
func ExpireHolds(sweeper *calendar.HoldSweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dryRun := r.URL.Query().Get("dry_run") == "true"

		result, err := sweeper.Sweep(r.Context(), dryRun)
		if err != nil {
			log.Printf("Error sweeping holds: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Hold sweep failed")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
