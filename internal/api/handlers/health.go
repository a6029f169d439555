package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rental-calendar-sync/backend/internal/calendar"
	"github.com/rental-calendar-sync/backend/internal/storage"
	ws "github.com/rental-calendar-sync/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string                   `json:"status"`
	Timestamp  time.Time                `json:"timestamp"`
	Database   string                   `json:"database"`
	WebSockets int                      `json:"websockets"`
	LastSync   *calendar.SyncRunMetrics `json:"last_sync,omitempty"`
}

// Health returns a handler that reports service health.
func Health(db *storage.DB, hub *ws.Hub, metrics *calendar.MetricsWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:     "ok",
			Timestamp:  time.Now().UTC(),
			Database:   "ok",
			WebSockets: hub.ClientCount(),
		}

		if err := db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
		}

		if metrics != nil {
			if m, err := metrics.ReadSyncRun(); err == nil {
				resp.LastSync = m
			}
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}
