package models

import (
	"time"
)

// Booking sync-status constants. "linked" is a reconcile outcome, not a
// stored status: a re-confirmed link stores "matched".
const (
	BookingSyncNone      = "none"
	BookingSyncMatched   = "matched"
	BookingSyncConflict  = "conflict"
	BookingSyncUnmatched = "unmatched"
)

// UpdatedVia constants for the last_updated_via audit field.
const (
	UpdatedViaManual  = "manual"
	UpdatedViaIcal    = "ical"
	UpdatedViaSweeper = "sweeper"
)

// Booking status constants used by this service. The back office owns the
// full lifecycle; only Hold/Expired transitions happen here.
const (
	BookingStatusHold    = "hold"
	BookingStatusExpired = "expired"
)

// Booking is a stay record owned by the back-office CRUD layer. This
// service reads the stay interval and codes, and writes only the
// reconciliation, acknowledgement, and hold-expiry fields. Financial
// fields are never mutated here.
type Booking struct {
	ID               string    `json:"id"`
	UnitID           string    `json:"unit_id"`
	GuestName        *string   `json:"guest_name,omitempty"`
	Source           *string   `json:"source,omitempty"`
	Status           string    `json:"status"`
	ReservationCode  *string   `json:"reservation_code,omitempty"`
	ConfirmationCode *string   `json:"confirmation_code,omitempty"`
	CheckIn          time.Time `json:"check_in"`
	CheckOut         time.Time `json:"check_out"` // exclusive, same convention as IcalEvent.End

	// Financial fields: read-only to the reconciliation engine.
	Payout     float64 `json:"payout"`
	Fees       float64 `json:"fees"`
	Commission float64 `json:"commission"`

	// Reconciliation fields.
	IcalEventID    *string    `json:"ical_event_id,omitempty"`
	SyncStatus     string     `json:"sync_status"`
	LastIcalSyncAt *time.Time `json:"last_ical_sync_at,omitempty"`
	LastUpdatedVia *string    `json:"last_updated_via,omitempty"`
	OverlapWarning bool       `json:"overlap_warning"`

	// Acknowledgement fields.
	AckFingerprint *string    `json:"ack_fingerprint,omitempty"`
	AckAt          *time.Time `json:"ack_at,omitempty"`
	AckBy          *string    `json:"ack_by,omitempty"`

	// Hold lifecycle fields for provisional bookings.
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	HoldPolicy    *string    `json:"hold_policy,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	OriginalCode  *string    `json:"original_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Code returns the canonical external reservation code for matching:
// the explicit reservation code when set, else the confirmation code.
func (b *Booking) Code() string {
	if b.ReservationCode != nil && *b.ReservationCode != "" {
		return *b.ReservationCode
	}
	if b.ConfirmationCode != nil {
		return *b.ConfirmationCode
	}
	return ""
}

// HoldExpired reports whether a hold booking has passed its expiry.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusHold &&
		b.HoldExpiresAt != nil && !b.HoldExpiresAt.After(now)
}
