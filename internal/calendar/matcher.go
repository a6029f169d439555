package calendar

import (
	"sort"
	"time"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// MatchKind describes how a cached event matched a booking's stay.
type MatchKind int

const (
	// MatchCode: the event's reservation code equals the booking's code.
	// Wins over date alignment, since a rescheduled reservation keeps its
	// code but moves its dates.
	MatchCode MatchKind = iota
	// MatchExact: identical check-in and checkout dates, day granularity.
	MatchExact
	// MatchOverlap: intervals intersect but dates differ.
	MatchOverlap
)

// String returns a human-readable label for reports.
func (k MatchKind) String() string {
	switch k {
	case MatchCode:
		return "code"
	case MatchExact:
		return "exact"
	default:
		return "overlap"
	}
}

// Candidate pairs a cached event with how it matched.
type Candidate struct {
	Event models.IcalEvent
	Kind  MatchKind
}

// sameDate compares two instants at day granularity.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dayFloor truncates an instant to its date.
func dayFloor(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// intersectionDays is the length in days of the overlap between the event
// and the stay window, used as a tie-break between overlap candidates.
func intersectionDays(e models.IcalEvent, checkIn, checkOut time.Time) float64 {
	start := dayFloor(e.Start)
	if checkIn.After(start) {
		start = dayFloor(checkIn)
	}
	end := dayFloor(e.End)
	if checkOut.Before(end) {
		end = dayFloor(checkOut)
	}
	return end.Sub(start).Hours() / 24
}

// FindCandidates maps a booking's stay interval to matching cached events
// for the same unit. Pure: no side effects, safe to call repeatedly.
//
// Ordering: code matches first, then exact date matches, then overlaps by
// largest intersection, then most recently updated.
func FindCandidates(booking models.Booking, events []models.IcalEvent) []Candidate {
	code := booking.Code()

	var candidates []Candidate
	for _, e := range events {
		if e.UnitID != booking.UnitID {
			continue
		}

		codeMatch := code != "" && e.ReservationCode != nil && *e.ReservationCode == code
		exact := sameDate(e.Start, booking.CheckIn) && sameDate(e.End, booking.CheckOut)
		overlap := e.Overlaps(booking.CheckIn, booking.CheckOut)

		switch {
		case codeMatch:
			candidates = append(candidates, Candidate{Event: e, Kind: MatchCode})
		case exact:
			candidates = append(candidates, Candidate{Event: e, Kind: MatchExact})
		case overlap:
			candidates = append(candidates, Candidate{Event: e, Kind: MatchOverlap})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Kind == MatchOverlap {
			ai := intersectionDays(a.Event, booking.CheckIn, booking.CheckOut)
			bi := intersectionDays(b.Event, booking.CheckIn, booking.CheckOut)
			if ai != bi {
				return ai > bi
			}
		}
		return a.Event.UpdatedAt.After(b.Event.UpdatedAt)
	})

	return candidates
}
