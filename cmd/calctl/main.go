// Package main implements calctl, the operator CLI for feed sync,
// reconciliation, and hold expiry runs against the local database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rental-calendar-sync/backend/internal/alerts"
	"github.com/rental-calendar-sync/backend/internal/calendar"
	"github.com/rental-calendar-sync/backend/internal/config"
	"github.com/rental-calendar-sync/backend/internal/feed"
	"github.com/rental-calendar-sync/backend/internal/storage"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	var runErr error
	switch os.Args[1] {
	case "sync":
		runErr = runSync(cfg, os.Args[2:])
	case "reconcile":
		runErr = runReconcile(cfg, os.Args[2:])
	case "expire-holds":
		runErr = runExpireHolds(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		log.Fatalf("Error: %v", runErr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: calctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  sync          Fetch all unit feeds into the event cache")
	fmt.Fprintln(os.Stderr, "  reconcile     Reconcile bookings against cached events")
	fmt.Fprintln(os.Stderr, "  expire-holds  Expire hold bookings past their expiry")
}

func openStorage(dataDir string) (*storage.DB, error) {
	db, err := storage.NewDB(filepath.Join(dataDir, "rental-calendar-sync.db"))
	if err != nil {
		return nil, err
	}
	if err := storage.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runSync(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	dataDir := fs.String("data", cfg.DataDir, "Data directory")
	unitID := fs.String("unit", "", "Sync a single unit by ID")
	fs.Parse(args)

	db, err := openStorage(*dataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	unitRepo := storage.NewUnitRepository(db)
	eventRepo := storage.NewEventRepository(db)
	client := feed.NewClient(cfg.FeedTimeout)
	metrics := calendar.NewMetricsWriter(*dataDir, cfg.BusinessTimezone)
	syncer := calendar.NewSyncer(unitRepo, eventRepo, client, cfg.SyncWorkers, metrics)

	ctx := context.Background()

	if *unitID != "" {
		unit, err := unitRepo.GetByID(ctx, *unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return fmt.Errorf("unit %s not found", *unitID)
		}
		result := syncer.SyncUnit(ctx, *unit)
		printJSON(result)
		if !result.OK {
			os.Exit(1)
		}
		return nil
	}

	results, err := syncer.SyncAll(ctx)
	if err != nil {
		return err
	}
	printJSON(results)
	return nil
}

func runReconcile(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	dataDir := fs.String("data", cfg.DataDir, "Data directory")
	unitID := fs.String("unit", "", "Limit to a single unit by ID")
	from := fs.String("from", "", "Keep bookings checking out on/after this date (YYYY-MM-DD)")
	to := fs.String("to", "", "Keep bookings checking in on/before this date (YYYY-MM-DD)")
	dryRun := fs.Bool("dry-run", false, "Classify without writing")
	fs.Parse(args)

	db, err := openStorage(*dataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	unitRepo := storage.NewUnitRepository(db)
	eventRepo := storage.NewEventRepository(db)
	bookingRepo := storage.NewBookingRepository(db)
	dismissalRepo := storage.NewDismissalRepository(db)
	tracker := alerts.NewTracker(dismissalRepo, bookingRepo)
	reconciler := calendar.NewReconciler(unitRepo, eventRepo, bookingRepo, tracker)

	opts := calendar.ReconcileOptions{Commit: !*dryRun}
	if *unitID != "" {
		opts.UnitID = unitID
	}
	if *from != "" {
		t, err := time.Parse("2006-01-02", *from)
		if err != nil {
			return fmt.Errorf("invalid -from date: %w", err)
		}
		opts.From = &t
	}
	if *to != "" {
		t, err := time.Parse("2006-01-02", *to)
		if err != nil {
			return fmt.Errorf("invalid -to date: %w", err)
		}
		opts.To = &t
	}

	result, err := reconciler.Reconcile(context.Background(), opts)
	if err != nil {
		return err
	}
	printJSON(result)

	if result.Conflicts > 0 {
		os.Exit(1)
	}
	return nil
}

func runExpireHolds(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("expire-holds", flag.ExitOnError)
	dataDir := fs.String("data", cfg.DataDir, "Data directory")
	dryRun := fs.Bool("dry-run", false, "List without expiring")
	limit := fs.Int("limit", 200, "Maximum holds to expire per run")
	fs.Parse(args)

	db, err := openStorage(*dataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	bookingRepo := storage.NewBookingRepository(db)
	sweeper := calendar.NewHoldSweeper(bookingRepo, *limit)

	result, err := sweeper.Sweep(context.Background(), *dryRun)
	if err != nil {
		return err
	}
	printJSON(result)
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
