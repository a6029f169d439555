// Package models contains the domain models for the application.
package models

import (
	"time"
)

// Unit represents a rental unit whose external calendar feed is synced.
// Units are owned by the booking back office; this service reads the feed
// URL and stamps sync bookkeeping, nothing else.
type Unit struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	FeedURL         *string    `json:"feed_url,omitempty"`
	SyncIntervalMin int        `json:"sync_interval_min"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	SyncStatus      string     `json:"sync_status"`
	SyncError       *string    `json:"sync_error,omitempty"`
	Enabled         bool       `json:"enabled"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SyncStatus constants
const (
	SyncStatusPending = "pending"
	SyncStatusSyncing = "syncing"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// HasFeed reports whether the unit is eligible for feed sync.
// A unit without a feed URL is simply excluded, never an error.
func (u *Unit) HasFeed() bool {
	return u.FeedURL != nil && *u.FeedURL != ""
}

// UnitSyncResult contains the results of syncing one unit's feed.
type UnitSyncResult struct {
	UnitID        string    `json:"unit_id"`
	UnitName      string    `json:"unit_name"`
	OK            bool      `json:"ok"`
	EventsFound   int       `json:"events_found"`
	EventsUpdated int       `json:"events_updated"`
	Reason        string    `json:"reason,omitempty"`
	Error         error     `json:"-"`
	SyncedAt      time.Time `json:"synced_at"`
}
