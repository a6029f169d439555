package calendar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SyncRunMetrics is the last-run marker consumed by the external monitoring
// surface. Times are reported both in UTC and the fixed business timezone.
type SyncRunMetrics struct {
	LastRunAt        time.Time `json:"lastRunAt"`
	LastRunAtLocal   string    `json:"lastRunAtLocal"`
	LastRunAtLocalTz string    `json:"lastRunAtLocalTz"`
	UnitsConsidered  int       `json:"unitsConsidered"`
	EventsUpdated    int       `json:"eventsUpdated"`
	Errors           int       `json:"errors"`
	OK               bool      `json:"ok"`
}

const syncMetricsFile = "ical_sync_last_run.json"

// MetricsWriter writes batch-run marker files. Failure to write is never
// fatal to the batch; callers log and continue.
type MetricsWriter struct {
	dir      string
	location *time.Location
	tzName   string
}

// NewMetricsWriter creates a metrics writer targeting dir. An unknown
// timezone falls back to UTC rather than failing.
func NewMetricsWriter(dir, timezone string) *MetricsWriter {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
		timezone = "UTC"
	}
	return &MetricsWriter{dir: dir, location: loc, tzName: timezone}
}

// WriteSyncRun writes the sync last-run marker.
func (w *MetricsWriter) WriteSyncRun(unitsConsidered, eventsUpdated, errors int) error {
	now := time.Now().UTC()
	payload := SyncRunMetrics{
		LastRunAt:        now,
		LastRunAtLocal:   now.In(w.location).Format("2006-01-02T15:04:05-07:00"),
		LastRunAtLocalTz: w.tzName,
		UnitsConsidered:  unitsConsidered,
		EventsUpdated:    eventsUpdated,
		Errors:           errors,
		OK:               true,
	}

	if err := os.MkdirAll(w.dir, 0775); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}

	path := filepath.Join(w.dir, syncMetricsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}

	return nil
}

// ReadSyncRun loads the last sync-run marker, or nil when none exists yet.
func (w *MetricsWriter) ReadSyncRun() (*SyncRunMetrics, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, syncMetricsFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metrics file: %w", err)
	}

	var m SyncRunMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding metrics: %w", err)
	}
	return &m, nil
}
