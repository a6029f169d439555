package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

func mkEvent(id, unitID string, start, end time.Time) models.IcalEvent {
	return models.IcalEvent{
		ID:     id,
		UnitID: unitID,
		UID:    id + "@feed",
		Start:  start,
		End:    end,
	}
}

func TestFindCandidates_ExactDateMatch(t *testing.T) {
	booking := models.Booking{
		ID:       "b1",
		UnitID:   "u1",
		CheckIn:  date(2026, time.April, 1),
		CheckOut: date(2026, time.April, 5),
	}
	events := []models.IcalEvent{
		mkEvent("e1", "u1", date(2026, time.April, 1), date(2026, time.April, 5)),
	}

	candidates := FindCandidates(booking, events)

	require.Len(t, candidates, 1)
	assert.Equal(t, MatchExact, candidates[0].Kind)
	assert.Equal(t, "e1", candidates[0].Event.ID)
}

func TestFindCandidates_CodeBeatsExactDates(t *testing.T) {
	// A rescheduled reservation keeps its code but moves its dates; the
	// code match must win over an exact date match on a different event.
	code := "HMABCD1234"
	booking := models.Booking{
		ID:              "b1",
		UnitID:          "u1",
		ReservationCode: &code,
		CheckIn:         date(2026, time.April, 1),
		CheckOut:        date(2026, time.April, 5),
	}

	moved := mkEvent("e-moved", "u1", date(2026, time.April, 3), date(2026, time.April, 8))
	moved.ReservationCode = &code
	exact := mkEvent("e-exact", "u1", date(2026, time.April, 1), date(2026, time.April, 5))

	candidates := FindCandidates(booking, []models.IcalEvent{exact, moved})

	require.Len(t, candidates, 2)
	assert.Equal(t, MatchCode, candidates[0].Kind)
	assert.Equal(t, "e-moved", candidates[0].Event.ID)
	assert.Equal(t, MatchExact, candidates[1].Kind)
}

func TestFindCandidates_LargestOverlapFirst(t *testing.T) {
	booking := models.Booking{
		ID:       "b1",
		UnitID:   "u1",
		CheckIn:  date(2026, time.April, 1),
		CheckOut: date(2026, time.April, 10),
	}

	oneDay := mkEvent("e-short", "u1", date(2026, time.April, 9), date(2026, time.April, 12))
	fourDays := mkEvent("e-long", "u1", date(2026, time.April, 2), date(2026, time.April, 6))

	candidates := FindCandidates(booking, []models.IcalEvent{oneDay, fourDays})

	require.Len(t, candidates, 2)
	assert.Equal(t, "e-long", candidates[0].Event.ID)
	assert.Equal(t, MatchOverlap, candidates[0].Kind)
	assert.Equal(t, "e-short", candidates[1].Event.ID)
}

func TestFindCandidates_OverlapTieBreaksOnRecency(t *testing.T) {
	booking := models.Booking{
		ID:       "b1",
		UnitID:   "u1",
		CheckIn:  date(2026, time.April, 1),
		CheckOut: date(2026, time.April, 10),
	}

	older := mkEvent("e-older", "u1", date(2026, time.April, 2), date(2026, time.April, 4))
	older.UpdatedAt = date(2026, time.March, 1)
	newer := mkEvent("e-newer", "u1", date(2026, time.April, 6), date(2026, time.April, 8))
	newer.UpdatedAt = date(2026, time.March, 20)

	candidates := FindCandidates(booking, []models.IcalEvent{older, newer})

	require.Len(t, candidates, 2)
	assert.Equal(t, "e-newer", candidates[0].Event.ID)
}

func TestFindCandidates_BackToBackDoesNotOverlap(t *testing.T) {
	// End dates are exclusive checkout dates: an event ending on the
	// booking's check-in day shares a turnover day, not a night.
	booking := models.Booking{
		ID:       "b1",
		UnitID:   "u1",
		CheckIn:  date(2026, time.April, 5),
		CheckOut: date(2026, time.April, 10),
	}

	before := mkEvent("e-before", "u1", date(2026, time.April, 1), date(2026, time.April, 5))
	after := mkEvent("e-after", "u1", date(2026, time.April, 10), date(2026, time.April, 14))

	candidates := FindCandidates(booking, []models.IcalEvent{before, after})

	assert.Empty(t, candidates)
}

func TestFindCandidates_IgnoresOtherUnits(t *testing.T) {
	booking := models.Booking{
		ID:       "b1",
		UnitID:   "u1",
		CheckIn:  date(2026, time.April, 1),
		CheckOut: date(2026, time.April, 5),
	}
	events := []models.IcalEvent{
		mkEvent("e-other", "u2", date(2026, time.April, 1), date(2026, time.April, 5)),
	}

	candidates := FindCandidates(booking, events)

	assert.Empty(t, candidates)
}

func TestFindCandidates_PureAndRepeatable(t *testing.T) {
	booking := models.Booking{
		ID:       "b1",
		UnitID:   "u1",
		CheckIn:  date(2026, time.April, 1),
		CheckOut: date(2026, time.April, 5),
	}
	events := []models.IcalEvent{
		mkEvent("e1", "u1", date(2026, time.April, 1), date(2026, time.April, 5)),
		mkEvent("e2", "u1", date(2026, time.April, 3), date(2026, time.April, 7)),
	}

	first := FindCandidates(booking, events)
	second := FindCandidates(booking, events)

	assert.Equal(t, first, second)
}
