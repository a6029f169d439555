package models

import (
	"time"
)

// Dismissal categories.
const (
	DismissalCategoryReconcile = "reconcile"
	DismissalCategoryAlert     = "alert"
)

// AlertDismissal records that a reviewer acknowledged a specific
// discrepancy at a specific content fingerprint. The token embeds the
// fingerprint, so a genuine change to the underlying event produces a new
// token and the alert re-opens. (DismissedBy, Category, Token) is unique.
type AlertDismissal struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Token       string    `json:"token"`
	DismissedBy string    `json:"dismissed_by"`
	DismissedAt time.Time `json:"dismissed_at"`
}
