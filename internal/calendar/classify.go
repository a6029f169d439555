// Package calendar implements the calendar reconciliation engine: feed
// event caching, booking/event matching, and the non-destructive
// reconcile pass.
package calendar

import (
	"regexp"
	"strings"
)

// EventClass is the classification of a feed event's free text.
type EventClass int

const (
	ClassUnknown EventClass = iota
	ClassReservation
	ClassBlock
)

// String returns the storage representation of the class.
func (c EventClass) String() string {
	switch c {
	case ClassReservation:
		return "reservation"
	case ClassBlock:
		return "block"
	default:
		return "unknown"
	}
}

// blockMarkers are the free-text patterns that identify a manual block.
// Kept as data so the heuristics stay exhaustively unit-testable. Matching
// is substring on normalized lower-case text.
var blockMarkers = []string{
	"blocked",
	"block",
	"owner stay",
	"owner",
	"manual",
	"private",
	"hold",
	"maintenance",
	"unavailable",
	"not available",
	"owners2",
	"o2 reservation",
}

var (
	// Airbnb reservation-details URL; tolerates the ICS-escaped colon form
	// ("https\://...") that some exports produce.
	reservationURLPattern = regexp.MustCompile(`(?i)https?\\?://www\.airbnb\.com/hosting/reservations/details/([A-Za-z0-9]+)`)
	// Explicit HM confirmation code anywhere in text or UID.
	hmCodePattern = regexp.MustCompile(`(?i)\bHM[0-9A-Z]{8,}\b`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// NormalizeText unescapes common ICS escapes and flattens whitespace so the
// code and URL patterns can see through folded lines.
func NormalizeText(text string) string {
	r := strings.NewReplacer(
		`\,`, ",",
		`\;`, ";",
		`\:`, ":",
		`\n`, " ",
		`\N`, " ",
		`\\`, `\`,
		"\r\n", " ",
		"\r", " ",
		"\n", " ",
	)
	t := r.Replace(text)
	t = whitespace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// ExtractReservationCode pulls the external reservation code out of an
// event's text, trying the reservation URL first, then a bare HM code in
// summary/description, then the UID. Returns "" when nothing matches.
func ExtractReservationCode(uid, summary, description string) string {
	text := NormalizeText(summary) + " " + NormalizeText(description)

	if m := reservationURLPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := hmCodePattern.FindString(text); m != "" {
		return strings.ToUpper(m)
	}
	if m := hmCodePattern.FindString(uid); m != "" {
		return strings.ToUpper(m)
	}
	return ""
}

// Classify decides whether an event is a reservation or a manual block
// based on its normalized text. A reservation code always wins; otherwise
// the block marker table decides; anything else is unknown.
func Classify(summary, description string, hasReservationCode bool) EventClass {
	if hasReservationCode {
		return ClassReservation
	}

	text := strings.ToLower(NormalizeText(summary) + " " + NormalizeText(description))
	for _, marker := range blockMarkers {
		if strings.Contains(text, marker) {
			return ClassBlock
		}
	}
	return ClassUnknown
}
