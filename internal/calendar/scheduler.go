package calendar

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
	"github.com/rental-calendar-sync/backend/internal/websocket"
)

// Scheduler manages the periodic batch jobs: per-unit feed sync, the
// reconcile pass, and the hold sweep. Sync and reconcile run on independent
// cadences.
type Scheduler struct {
	cron        *cron.Cron
	syncer      *Syncer
	reconciler  *Reconciler
	holdSweeper *HoldSweeper
	unitRepo    *storage.UnitRepository
	broadcaster *websocket.EventBroadcaster

	// Track sync jobs per unit
	jobs   map[string]cron.EntryID
	jobsMu sync.RWMutex

	// Default sync interval if the unit doesn't specify one
	defaultInterval time.Duration

	reconcileCron string
	holdSweepCron string
}

// NewScheduler creates the batch scheduler.
func NewScheduler(
	syncer *Syncer,
	reconciler *Reconciler,
	holdSweeper *HoldSweeper,
	unitRepo *storage.UnitRepository,
	hub *websocket.Hub,
	defaultIntervalMin int,
	reconcileCron, holdSweepCron string,
) *Scheduler {
	if defaultIntervalMin <= 0 {
		defaultIntervalMin = 15
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:            cron.New(cron.WithSeconds()),
		syncer:          syncer,
		reconciler:      reconciler,
		holdSweeper:     holdSweeper,
		unitRepo:        unitRepo,
		broadcaster:     broadcaster,
		jobs:            make(map[string]cron.EntryID),
		defaultInterval: time.Duration(defaultIntervalMin) * time.Minute,
		reconcileCron:   reconcileCron,
		holdSweepCron:   holdSweepCron,
	}
}

// Start begins the scheduler and loads all syncable units.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Println("Starting calendar batch scheduler...")

	units, err := s.unitRepo.ListSyncable(ctx)
	if err != nil {
		return err
	}

	for _, unit := range units {
		s.ScheduleUnit(unit)
	}

	// Refresh unit schedules every 5 minutes to pick up newly added or
	// modified feed URLs.
	if _, err := s.cron.AddFunc("@every 5m", func() {
		s.refreshSchedules(context.Background())
	}); err != nil {
		return fmt.Errorf("scheduling refresh job: %w", err)
	}

	if s.reconciler != nil && s.reconcileCron != "" {
		if _, err := s.cron.AddFunc(s.reconcileCron, func() {
			s.runReconcile()
		}); err != nil {
			return fmt.Errorf("scheduling reconcile job %q: %w", s.reconcileCron, err)
		}
	}

	if s.holdSweeper != nil && s.holdSweepCron != "" {
		if _, err := s.cron.AddFunc(s.holdSweepCron, func() {
			s.runHoldSweep()
		}); err != nil {
			return fmt.Errorf("scheduling hold sweep job %q: %w", s.holdSweepCron, err)
		}
	}

	s.cron.Start()
	log.Printf("Calendar scheduler started with %d units", len(units))

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	log.Println("Stopping calendar batch scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Calendar scheduler stopped")
}

// ScheduleUnit adds or updates a unit's sync schedule.
func (s *Scheduler) ScheduleUnit(unit models.Unit) {
	if !unit.Enabled || !unit.HasFeed() {
		s.UnscheduleUnit(unit.ID)
		return
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if existingID, exists := s.jobs[unit.ID]; exists {
		s.cron.Remove(existingID)
		delete(s.jobs, unit.ID)
	}

	spec := minutesToCronSpec(unit.SyncIntervalMin, s.defaultInterval)

	unitID := unit.ID
	unitName := unit.Name
	entryID, err := s.cron.AddFunc(spec, func() {
		s.syncUnit(unitID, unitName)
	})

	if err != nil {
		log.Printf("Failed to schedule unit %s: %v", unit.ID, err)
		return
	}

	s.jobs[unit.ID] = entryID
	log.Printf("Scheduled unit %s (%s) every %d minutes", unit.ID, unit.Name, unit.SyncIntervalMin)
}

// UnscheduleUnit removes a unit from the sync schedule.
func (s *Scheduler) UnscheduleUnit(unitID string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if entryID, exists := s.jobs[unitID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, unitID)
		log.Printf("Unscheduled unit %s", unitID)
	}
}

// TriggerSync manually triggers an immediate sync for a unit.
func (s *Scheduler) TriggerSync(unitID string) {
	go func() {
		ctx := context.Background()
		unit, err := s.unitRepo.GetByID(ctx, unitID)
		if err != nil || unit == nil {
			log.Printf("Unit not found for sync: %s", unitID)
			return
		}
		s.syncUnit(unit.ID, unit.Name)
	}()
}

// syncUnit performs the actual sync operation for one unit.
func (s *Scheduler) syncUnit(unitID, unitName string) {
	ctx := context.Background()

	unit, err := s.unitRepo.GetByID(ctx, unitID)
	if err != nil || unit == nil {
		log.Printf("Unit disappeared before sync: %s", unitID)
		return
	}

	result := s.syncer.SyncUnit(ctx, *unit)
	if !result.OK {
		log.Printf("Feed sync failed for unit %s (%s): %s", unitID, unitName, result.Reason)
		if s.broadcaster != nil {
			s.broadcaster.BroadcastSyncError(result)
		}
		return
	}

	log.Printf("Feed sync completed for unit %s: %d events, %d updated",
		unitID, result.EventsFound, result.EventsUpdated)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastSyncCompleted(result)
	}
}

// runReconcile runs the scheduled full reconcile pass with commit enabled.
func (s *Scheduler) runReconcile() {
	ctx := context.Background()

	result, err := s.reconciler.Reconcile(ctx, ReconcileOptions{Commit: true})
	if err != nil {
		log.Printf("Scheduled reconcile failed: %v", err)
		return
	}

	log.Printf("Reconcile completed: %d processed, %d matched, %d conflicts, %d linked, %d unmatched",
		result.Processed, result.Matched, result.Conflicts, result.Linked, result.Unmatched)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastReconcileCompleted(
			result.Processed, result.Matched, result.Conflicts, result.Linked, result.Unmatched)
	}
}

// runHoldSweep runs the scheduled hold-expiry sweep.
func (s *Scheduler) runHoldSweep() {
	ctx := context.Background()

	if _, err := s.holdSweeper.Sweep(ctx, false); err != nil {
		log.Printf("Scheduled hold sweep failed: %v", err)
	}
}

// refreshSchedules reloads unit schedules from the database.
func (s *Scheduler) refreshSchedules(ctx context.Context) {
	units, err := s.unitRepo.ListSyncable(ctx)
	if err != nil {
		log.Printf("Failed to refresh unit schedules: %v", err)
		return
	}

	currentIDs := make(map[string]bool)
	for _, unit := range units {
		currentIDs[unit.ID] = true
		s.ScheduleUnit(unit)
	}

	// Remove jobs for units that no longer exist or lost their feed
	s.jobsMu.Lock()
	for unitID := range s.jobs {
		if !currentIDs[unitID] {
			s.cron.Remove(s.jobs[unitID])
			delete(s.jobs, unitID)
			log.Printf("Removed schedule for unit %s (no longer syncable)", unitID)
		}
	}
	s.jobsMu.Unlock()
}

// minutesToCronSpec converts minutes to a cron spec.
func minutesToCronSpec(minutes int, fallback time.Duration) string {
	d := time.Duration(minutes) * time.Minute
	if d < time.Minute {
		d = fallback
	}
	return "@every " + d.String()
}

// GetScheduledUnits returns the currently scheduled unit IDs.
func (s *Scheduler) GetScheduledUnits() []string {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}

// GetNextRun returns the next scheduled sync time for a unit.
func (s *Scheduler) GetNextRun(unitID string) *time.Time {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	if entryID, exists := s.jobs[unitID]; exists {
		entry := s.cron.Entry(entryID)
		if !entry.Next.IsZero() {
			return &entry.Next
		}
	}
	return nil
}
