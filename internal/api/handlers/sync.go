package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rental-calendar-sync/backend/internal/api/middleware"
	"github.com/rental-calendar-sync/backend/internal/calendar"
	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// SyncAllResponse summarizes a full sync run across all syncable units.
type SyncAllResponse struct {
	UnitsConsidered int                     `json:"units_considered"`
	EventsUpdated   int                     `json:"events_updated"`
	Errors          int                     `json:"errors"`
	Results         []models.UnitSyncResult `json:"results"`
}

// SyncAll returns a handler that synchronizes every enabled unit with a feed.
func SyncAll(syncer *calendar.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := syncer.SyncAll(r.Context())
		if err != nil {
			log.Printf("Error running full sync: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Sync run failed")
			return
		}

		resp := SyncAllResponse{Results: results}
		for _, res := range results {
			resp.UnitsConsidered++
			resp.EventsUpdated += res.EventsUpdated
			if !res.OK {
				resp.Errors++
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// SyncUnit returns a handler that synchronizes a single unit's feed.
func SyncUnit(unitRepo *storage.UnitRepository, syncer *calendar.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		unit, err := unitRepo.GetByID(r.Context(), id)
		if err != nil {
			log.Printf("Error fetching unit %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to fetch unit")
			return
		}
		if unit == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unit not found")
			return
		}
		if !unit.HasFeed() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unit has no feed URL configured")
			return
		}

		result := syncer.SyncUnit(r.Context(), *unit)
		status := http.StatusOK
		if !result.OK {
			status = http.StatusBadGateway
		}

		writeJSON(w, status, result)
	}
}

// SyncMetrics returns a handler that reports the last sync run marker.
func SyncMetrics(metrics *calendar.MetricsWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := metrics.ReadSyncRun()
		if err != nil {
			log.Printf("Error reading sync metrics: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to read sync metrics")
			return
		}
		if m == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "No sync run recorded yet")
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}
