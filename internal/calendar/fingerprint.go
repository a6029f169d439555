package calendar

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Fingerprint hashes the semantically meaningful fields of a feed event.
// It changes if and only if one of these fields changes, which is what
// distinguishes a real update from feed re-delivery noise.
func Fingerprint(status string, start, end time.Time, summary, description string) string {
	parts := strings.Join([]string{
		"st=" + status,
		"s=" + start.UTC().Format(time.RFC3339),
		"e=" + end.UTC().Format(time.RFC3339),
		"sum=" + summary,
		"desc=" + description,
	}, "|")

	sum := sha256.Sum256([]byte(parts))
	return hex.EncodeToString(sum[:])
}

// OutcomeToken builds the acknowledgement token for a booking/event pairing
// at a specific event fingerprint. A later content change produces a new
// token, so a prior acknowledgement no longer suppresses the alert.
func OutcomeToken(bookingID, eventFingerprint string) string {
	sum := sha256.Sum256([]byte("bid=" + bookingID + "|fp=" + eventFingerprint))
	return hex.EncodeToString(sum[:])
}
