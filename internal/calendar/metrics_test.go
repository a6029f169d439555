package calendar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewMetricsWriter(dir, "America/Cancun")

	require.NoError(t, w.WriteSyncRun(5, 12, 1))

	m, err := w.ReadSyncRun()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 5, m.UnitsConsidered)
	assert.Equal(t, 12, m.EventsUpdated)
	assert.Equal(t, 1, m.Errors)
	assert.True(t, m.OK)
	assert.Equal(t, "America/Cancun", m.LastRunAtLocalTz)
	assert.False(t, m.LastRunAt.IsZero())
	assert.NotEmpty(t, m.LastRunAtLocal)
}

func TestMetricsWriter_MarkerFieldNames(t *testing.T) {
	// The marker file is consumed by external monitoring; its JSON keys
	// are a stable contract.
	dir := t.TempDir()
	w := NewMetricsWriter(dir, "UTC")
	require.NoError(t, w.WriteSyncRun(1, 0, 0))

	data, err := os.ReadFile(filepath.Join(dir, "ical_sync_last_run.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"lastRunAt", "lastRunAtLocal", "lastRunAtLocalTz", "unitsConsidered", "eventsUpdated", "errors", "ok"} {
		assert.Contains(t, raw, key)
	}
}

func TestMetricsWriter_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	dir := t.TempDir()
	w := NewMetricsWriter(dir, "Not/AZone")

	require.NoError(t, w.WriteSyncRun(0, 0, 0))

	m, err := w.ReadSyncRun()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "UTC", m.LastRunAtLocalTz)
}

func TestMetricsWriter_ReadWithoutRun(t *testing.T) {
	w := NewMetricsWriter(t.TempDir(), "UTC")

	m, err := w.ReadSyncRun()
	require.NoError(t, err)
	assert.Nil(t, m)
}
