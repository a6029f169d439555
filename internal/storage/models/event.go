package models

import (
	"time"
)

// EventType classifies a cached feed event.
const (
	EventTypeReservation = "reservation"
	EventTypeBlock       = "block"
	EventTypeUnknown     = "unknown"
)

// IcalEvent is one cached occurrence from a unit's external calendar feed.
// (UnitID, UID) is unique; rows are created on first sight and updated in
// place when the content fingerprint changes. Sync never deletes rows, so
// booking links and audit history stay intact.
type IcalEvent struct {
	ID              string     `json:"id"`
	UnitID          string     `json:"unit_id"`
	UID             string     `json:"uid"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"` // exclusive: checkout date
	Status          *string    `json:"status,omitempty"`
	Summary         *string    `json:"summary,omitempty"`
	Description     *string    `json:"description,omitempty"`
	EventType       string     `json:"event_type"`
	IsBlock         bool       `json:"is_block"`
	ReservationCode *string    `json:"reservation_code,omitempty"`
	Fingerprint     string     `json:"fingerprint"`
	ETag            *string    `json:"etag,omitempty"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Overlaps reports half-open interval intersection with a stay window.
// An event ending exactly on checkIn does not overlap.
func (e *IcalEvent) Overlaps(checkIn, checkOut time.Time) bool {
	return e.Start.Before(checkOut) && e.End.After(checkIn)
}
