// Package main is the entry point for the calendar sync server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rental-calendar-sync/backend/internal/alerts"
	"github.com/rental-calendar-sync/backend/internal/api"
	"github.com/rental-calendar-sync/backend/internal/calendar"
	"github.com/rental-calendar-sync/backend/internal/config"
	"github.com/rental-calendar-sync/backend/internal/feed"
	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	addr := flag.String("addr", cfg.Addr, "HTTP server address")
	dataDir := flag.String("data", cfg.DataDir, "Data directory for SQLite database and run metrics")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log.Printf("Starting calendar sync server (version: %s)...", version)

	db, err := storage.NewDB(filepath.Join(*dataDir, "rental-calendar-sync.db"))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()
	broadcaster := websocket.NewEventBroadcaster(hub)

	// Repositories
	unitRepo := storage.NewUnitRepository(db)
	eventRepo := storage.NewEventRepository(db)
	bookingRepo := storage.NewBookingRepository(db)
	dismissalRepo := storage.NewDismissalRepository(db)

	// Services
	feedClient := feed.NewClient(cfg.FeedTimeout)
	metrics := calendar.NewMetricsWriter(*dataDir, cfg.BusinessTimezone)
	syncer := calendar.NewSyncer(unitRepo, eventRepo, feedClient, cfg.SyncWorkers, metrics)
	tracker := alerts.NewTracker(dismissalRepo, bookingRepo)
	reconciler := calendar.NewReconciler(unitRepo, eventRepo, bookingRepo, tracker)
	holdSweeper := calendar.NewHoldSweeper(bookingRepo, 0)

	// Batch scheduler
	scheduler := calendar.NewScheduler(
		syncer,
		reconciler,
		holdSweeper,
		unitRepo,
		hub,
		cfg.DefaultSyncIntervalMin,
		cfg.ReconcileCron,
		cfg.HoldSweepCron,
	)
	if err := scheduler.Start(context.Background()); err != nil {
		log.Printf("Warning: Failed to start scheduler: %v", err)
	}

	router := api.NewRouter(api.Dependencies{
		DB:             db,
		UnitRepo:       unitRepo,
		EventRepo:      eventRepo,
		BookingRepo:    bookingRepo,
		Syncer:         syncer,
		Reconciler:     reconciler,
		HoldSweeper:    holdSweeper,
		Scheduler:      scheduler,
		Metrics:        metrics,
		AlertTracker:   tracker,
		Hub:            hub,
		Broadcaster:    broadcaster,
		DefaultSyncMin: cfg.DefaultSyncIntervalMin,
	})

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
