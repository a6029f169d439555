package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rental-calendar-sync/backend/internal/api/middleware"
	"github.com/rental-calendar-sync/backend/internal/calendar"
	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// CreateUnitRequest represents the request body for creating a unit.
type CreateUnitRequest struct {
	Name            string  `json:"name"`
	FeedURL         *string `json:"feed_url"`
	SyncIntervalMin int     `json:"sync_interval_min"`
	Enabled         *bool   `json:"enabled"`
}

// UpdateUnitRequest represents the request body for updating a unit.
type UpdateUnitRequest struct {
	Name            *string `json:"name"`
	FeedURL         *string `json:"feed_url"`
	SyncIntervalMin *int    `json:"sync_interval_min"`
	Enabled         *bool   `json:"enabled"`
}

// UnitResponse wraps a unit with its next scheduled sync time.
type UnitResponse struct {
	models.Unit
	NextSyncAt *string `json:"next_sync_at,omitempty"`
}

// ListUnits returns a handler that lists all units.
func ListUnits(repo *storage.UnitRepository, scheduler *calendar.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		units, err := repo.List(r.Context())
		if err != nil {
			log.Printf("Error listing units: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list units")
			return
		}

		resp := make([]UnitResponse, 0, len(units))
		for _, u := range units {
			ur := UnitResponse{Unit: u}
			if scheduler != nil {
				if next := scheduler.GetNextRun(u.ID); next != nil {
					s := next.Format("2006-01-02T15:04:05Z07:00")
					ur.NextSyncAt = &s
				}
			}
			resp = append(resp, ur)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// GetUnit returns a handler that fetches a single unit by ID.
func GetUnit(repo *storage.UnitRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		unit, err := repo.GetByID(r.Context(), id)
		if err != nil {
			log.Printf("Error fetching unit %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to fetch unit")
			return
		}
		if unit == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unit not found")
			return
		}

		writeJSON(w, http.StatusOK, unit)
	}
}

// CreateUnit returns a handler that registers a new unit.
func CreateUnit(repo *storage.UnitRepository, scheduler *calendar.Scheduler, defaultIntervalMin int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUnitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Name is required")
			return
		}
		if req.FeedURL != nil {
			trimmed := strings.TrimSpace(*req.FeedURL)
			if trimmed == "" {
				req.FeedURL = nil
			} else if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Feed URL must be an http(s) URL")
				return
			} else {
				req.FeedURL = &trimmed
			}
		}

		unit := &models.Unit{
			Name:            req.Name,
			FeedURL:         req.FeedURL,
			SyncIntervalMin: req.SyncIntervalMin,
			Enabled:         true,
		}
		if unit.SyncIntervalMin <= 0 {
			unit.SyncIntervalMin = defaultIntervalMin
		}
		if req.Enabled != nil {
			unit.Enabled = *req.Enabled
		}

		if err := repo.Create(r.Context(), unit); err != nil {
			log.Printf("Error creating unit: %v", err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create unit")
			return
		}

		if scheduler != nil && unit.Enabled && unit.HasFeed() {
			scheduler.ScheduleUnit(*unit)
		}

		writeJSON(w, http.StatusCreated, unit)
	}
}

// UpdateUnit returns a handler that updates an existing unit.
func UpdateUnit(repo *storage.UnitRepository, scheduler *calendar.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		unit, err := repo.GetByID(r.Context(), id)
		if err != nil {
			log.Printf("Error fetching unit %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to fetch unit")
			return
		}
		if unit == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unit not found")
			return
		}

		var req UpdateUnitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Name cannot be empty")
				return
			}
			unit.Name = name
		}
		if req.FeedURL != nil {
			trimmed := strings.TrimSpace(*req.FeedURL)
			if trimmed == "" {
				unit.FeedURL = nil
			} else {
				unit.FeedURL = &trimmed
			}
		}
		if req.SyncIntervalMin != nil && *req.SyncIntervalMin > 0 {
			unit.SyncIntervalMin = *req.SyncIntervalMin
		}
		if req.Enabled != nil {
			unit.Enabled = *req.Enabled
		}

		if err := repo.Update(r.Context(), unit); err != nil {
			log.Printf("Error updating unit %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update unit")
			return
		}

		if scheduler != nil {
			if unit.Enabled && unit.HasFeed() {
				scheduler.ScheduleUnit(*unit)
			} else {
				scheduler.UnscheduleUnit(unit.ID)
			}
		}

		writeJSON(w, http.StatusOK, unit)
	}
}

// DeleteUnit returns a handler that removes a unit and its cached events.
func DeleteUnit(repo *storage.UnitRepository, scheduler *calendar.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		unit, err := repo.GetByID(r.Context(), id)
		if err != nil {
			log.Printf("Error fetching unit %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to fetch unit")
			return
		}
		if unit == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unit not found")
			return
		}

		if scheduler != nil {
			scheduler.UnscheduleUnit(id)
		}

		if err := repo.Delete(r.Context(), id); err != nil {
			log.Printf("Error deleting unit %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete unit")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ListUnitEvents returns a handler that lists cached calendar events for a unit.
func ListUnitEvents(unitRepo *storage.UnitRepository, eventRepo *storage.EventRepository) http.HandlerFunc {
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

		events, err := eventRepo.ListByUnit(r.Context(), id)
		if err != nil {
			log.Printf("Error listing events for unit %s: %v", id, err)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list events")
			return
		}

		writeJSON(w, http.StatusOK, events)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
