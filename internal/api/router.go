// Package api wires HTTP routes to their handlers.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rental-calendar-sync/backend/internal/alerts"
	"github.com/rental-calendar-sync/backend/internal/api/handlers"
	"github.com/rental-calendar-sync/backend/internal/api/middleware"
	"github.com/rental-calendar-sync/backend/internal/calendar"
	"github.com/rental-calendar-sync/backend/internal/storage"
	ws "github.com/rental-calendar-sync/backend/internal/websocket"
)

// Dependencies holds everything the router needs to build handlers.
type Dependencies struct {
	DB             *storage.DB
	UnitRepo       *storage.UnitRepository
	EventRepo      *storage.EventRepository
	BookingRepo    *storage.BookingRepository
	Syncer         *calendar.Syncer
	Reconciler     *calendar.Reconciler
	HoldSweeper    *calendar.HoldSweeper
	Scheduler      *calendar.Scheduler
	Metrics        *calendar.MetricsWriter
	AlertTracker   *alerts.Tracker
	Hub            *ws.Hub
	Broadcaster    *ws.EventBroadcaster
	DefaultSyncMin int
}

// NewRouter creates the HTTP router with all application routes.
func NewRouter(deps Dependencies) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	r.HandleFunc("/health", handlers.Health(deps.DB, deps.Hub, deps.Metrics)).Methods(http.MethodGet)
	r.HandleFunc("/ws", handlers.WebSocketUpgrade(deps.Hub))

	api := r.PathPrefix("/api").Subrouter()

	// Units
	api.HandleFunc("/units", handlers.ListUnits(deps.UnitRepo, deps.Scheduler)).Methods(http.MethodGet)
	api.HandleFunc("/units", handlers.CreateUnit(deps.UnitRepo, deps.Scheduler, deps.DefaultSyncMin)).Methods(http.MethodPost)
	api.HandleFunc("/units/{id}", handlers.GetUnit(deps.UnitRepo)).Methods(http.MethodGet)
	api.HandleFunc("/units/{id}", handlers.UpdateUnit(deps.UnitRepo, deps.Scheduler)).Methods(http.MethodPut)
	api.HandleFunc("/units/{id}", handlers.DeleteUnit(deps.UnitRepo, deps.Scheduler)).Methods(http.MethodDelete)
	api.HandleFunc("/units/{id}/events", handlers.ListUnitEvents(deps.UnitRepo, deps.EventRepo)).Methods(http.MethodGet)
	api.HandleFunc("/units/{id}/sync", handlers.SyncUnit(deps.UnitRepo, deps.Syncer)).Methods(http.MethodPost)

	// Feed sync
	api.HandleFunc("/sync", handlers.SyncAll(deps.Syncer)).Methods(http.MethodPost)
	api.HandleFunc("/metrics/last-run", handlers.SyncMetrics(deps.Metrics)).Methods(http.MethodGet)

	// Reconciliation
	api.HandleFunc("/reconcile", handlers.Reconcile(deps.Reconciler, deps.Broadcaster)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/conflicts", handlers.ListConflicts(deps.BookingRepo)).Methods(http.MethodGet)
	api.HandleFunc("/holds/expire", handlers.ExpireHolds(deps.HoldSweeper)).Methods(http.MethodPost)

	// Alert dismissals
	api.HandleFunc("/alerts/dismiss", handlers.DismissAlert(deps.AlertTracker)).Methods(http.MethodPost)
	api.HandleFunc("/alerts/dismissed", handlers.ListDismissals(deps.AlertTracker)).Methods(http.MethodGet)

	return r
}
