package calendar

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rental-calendar-sync/backend/internal/feed"
	"github.com/rental-calendar-sync/backend/internal/storage"
	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// FeedClient fetches parsed events for a feed URL. Satisfied by
// *feed.Client; tests substitute a stub.
type FeedClient interface {
	FetchEvents(ctx context.Context, feedURL string) (*feed.Result, error)
}

// Syncer ingests external calendar feeds into the local event cache with
// fingerprint-based change detection. One run touches only rows for its
// own unit; cross-unit runs are independent.
type Syncer struct {
	unitRepo  *storage.UnitRepository
	eventRepo *storage.EventRepository
	client    FeedClient
	workers   int
	metrics   *MetricsWriter
}

// NewSyncer creates a feed synchronizer. workers bounds concurrent per-unit
// fetches during SyncAll; metrics may be nil.
func NewSyncer(
	unitRepo *storage.UnitRepository,
	eventRepo *storage.EventRepository,
	client FeedClient,
	workers int,
	metrics *MetricsWriter,
) *Syncer {
	if workers < 1 {
		workers = 1
	}
	return &Syncer{
		unitRepo:  unitRepo,
		eventRepo: eventRepo,
		client:    client,
		workers:   workers,
		metrics:   metrics,
	}
}

// SyncUnit synchronizes one unit's feed into the event cache. Transport and
// parse failures are reported in the result, never propagated; the cache is
// left untouched on failure.
func (s *Syncer) SyncUnit(ctx context.Context, unit models.Unit) models.UnitSyncResult {
	result := models.UnitSyncResult{
		UnitID:   unit.ID,
		UnitName: unit.Name,
		SyncedAt: time.Now().UTC(),
	}

	if !unit.HasFeed() {
		result.Reason = "no_feed_url"
		return result
	}

	if err := s.unitRepo.UpdateSyncStatus(ctx, unit.ID, models.SyncStatusSyncing, nil); err != nil {
		log.Printf("Failed to update sync status for unit %s: %v", unit.ID, err)
	}

	runStartedAt := time.Now().UTC()

	fetched, err := s.client.FetchEvents(ctx, *unit.FeedURL)
	if err != nil {
		errMsg := err.Error()
		if statusErr := s.unitRepo.UpdateSyncStatus(ctx, unit.ID, models.SyncStatusError, &errMsg); statusErr != nil {
			log.Printf("Failed to update sync status for unit %s: %v", unit.ID, statusErr)
		}
		result.Reason = errMsg
		result.Error = err
		return result
	}

	result.EventsFound = len(fetched.Events)

	for _, ev := range fetched.Events {
		changed, err := s.processEvent(ctx, unit.ID, ev, fetched.ETag)
		if err != nil {
			log.Printf("Error processing event %s for unit %s: %v", ev.UID, unit.ID, err)
			continue
		}
		if changed {
			result.EventsUpdated++
		}
	}

	// Feeds drop removed manual blocks; clear future blocks this run did
	// not see so availability stays honest. Linked events survive.
	if purged, err := s.eventRepo.PurgeStaleFutureBlocks(ctx, unit.ID, runStartedAt); err != nil {
		log.Printf("Error purging stale blocks for unit %s: %v", unit.ID, err)
	} else if purged > 0 {
		log.Printf("Purged %d stale future blocks for unit %s", purged, unit.ID)
	}

	if err := s.unitRepo.UpdateSyncStatus(ctx, unit.ID, models.SyncStatusSuccess, nil); err != nil {
		log.Printf("Failed to update sync status for unit %s: %v", unit.ID, err)
	}

	result.OK = true
	return result
}

// processEvent upserts one parsed event. Returns true when a row was
// inserted or its content changed; a re-seen identical event only refreshes
// last_seen_at.
func (s *Syncer) processEvent(ctx context.Context, unitID string, ev feed.Event, etag string) (bool, error) {
	uid := ev.UID
	if uid == "" {
		// Best-effort identity: providers may omit UIDs or reissue them
		// across re-exports, so fall back to the stay window itself.
		uid = syntheticUID(unitID, ev.Start, ev.End)
		log.Printf("Feed event without UID for unit %s, using synthetic key %s", unitID, uid)
	}

	code := ExtractReservationCode(uid, ev.Summary, ev.Description)
	class := Classify(ev.Summary, ev.Description, code != "")
	fingerprint := Fingerprint(ev.Status, ev.Start, ev.End, ev.Summary, ev.Description)

	existing, err := s.eventRepo.GetByUnitAndUID(ctx, unitID, uid)
	if err != nil {
		return false, fmt.Errorf("looking up cached event: %w", err)
	}

	if existing != nil && existing.Fingerprint == fingerprint {
		if err := s.eventRepo.TouchLastSeen(ctx, unitID, uid, time.Now().UTC()); err != nil {
			return false, err
		}
		return false, nil
	}

	row := &models.IcalEvent{
		UnitID:      unitID,
		UID:         uid,
		Start:       ev.Start,
		End:         ev.End,
		EventType:   class.String(),
		IsBlock:     class == ClassBlock,
		Fingerprint: fingerprint,
	}
	if ev.Status != "" {
		row.Status = &ev.Status
	}
	if ev.Summary != "" {
		row.Summary = &ev.Summary
	}
	if ev.Description != "" {
		row.Description = &ev.Description
	}
	if code != "" {
		row.ReservationCode = &code
	}
	if etag != "" {
		row.ETag = &etag
	}

	if existing == nil {
		// Upsert handles the race where a concurrent run inserted the
		// same (unit, uid) between our lookup and insert.
		if _, err := s.eventRepo.Upsert(ctx, row); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := s.eventRepo.UpdateContent(ctx, row); err != nil {
		return false, err
	}
	return true, nil
}

// SyncAll synchronizes every enabled unit with a feed configured, fetching
// in parallel up to the worker bound. Per-unit failures are isolated and
// reported in the results; the only error returned is a failure to list
// units. Writes the run-metrics artifact best-effort.
func (s *Syncer) SyncAll(ctx context.Context) ([]models.UnitSyncResult, error) {
	units, err := s.unitRepo.ListSyncable(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing syncable units: %w", err)
	}

	results := make([]models.UnitSyncResult, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			res := s.SyncUnit(gctx, unit)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only observes ctx cancellation.
	_ = g.Wait()

	updated := 0
	errors := 0
	for _, r := range results {
		updated += r.EventsUpdated
		if !r.OK {
			errors++
		}
	}
	log.Printf("Feed sync completed: %d units, %d events updated, %d errors",
		len(units), updated, errors)

	if s.metrics != nil {
		if err := s.metrics.WriteSyncRun(len(units), updated, errors); err != nil {
			log.Printf("Could not write sync metrics: %v", err)
		}
	}

	return results, nil
}

func syntheticUID(unitID string, start, end time.Time) string {
	return fmt.Sprintf("synthetic:%s:%s:%s",
		unitID,
		start.UTC().Format("20060102"),
		end.UTC().Format("20060102"),
	)
}
