package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/rental-calendar-sync/backend/internal/alerts"
	"github.com/rental-calendar-sync/backend/internal/api/middleware"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// DismissRequest represents the request body for dismissing an alert.
type DismissRequest struct {
	Category    string `json:"category"`
	Token       string `json:"token"`
	Actor       string `json:"actor"`
	BookingID   string `json:"booking_id"`
	Fingerprint string `json:"fingerprint"`
}

// DismissAlert returns a handler that records an alert dismissal. When a
// booking ID and fingerprint are supplied the booking's acknowledgement
// fields are stamped as well.
func DismissAlert(tracker *alerts.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DismissRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		req.Token = strings.TrimSpace(req.Token)
		req.Actor = strings.TrimSpace(req.Actor)
		if req.Token == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Token is required")
			return
		}
		if req.Actor == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Actor is required")
			return
		}

		var (
			dismissal *models.AlertDismissal
			err       error
		)
		if req.BookingID != "" && req.Fingerprint != "" {
			dismissal, err = tracker.DismissBooking(r.Context(), req.BookingID, req.Fingerprint, req.Actor, req.Token)
		} else {
			dismissal, err = tracker.Dismiss(r.Context(), req.Category, req.Token, req.Actor)
		}
		if err != nil {
			log.Printf("Error dismissing alert: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to dismiss alert")
			return
		}

		writeJSON(w, http.StatusOK, dismissal)
	}
}

// ListDismissals returns a handler that lists dismissals in a category.
func ListDismissals(tracker *alerts.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category == "" {
			category = models.DismissalCategoryAlert
		}

		dismissals, err := tracker.List(r.Context(), category)
		if err != nil {
			log.Printf("Error listing dismissals: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list dismissals")
			return
		}

		writeJSON(w, http.StatusOK, dismissals)
	}
}
