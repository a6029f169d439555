package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_StableForIdenticalContent(t *testing.T) {
	start := date(2026, time.March, 10)
	end := date(2026, time.March, 14)

	a := Fingerprint("CONFIRMED", start, end, "Reserved", "details")
	b := Fingerprint("CONFIRMED", start, end, "Reserved", "details")

	assert.Equal(t, a, b)
}

func TestFingerprint_SensitiveToEachField(t *testing.T) {
	start := date(2026, time.March, 10)
	end := date(2026, time.March, 14)
	base := Fingerprint("CONFIRMED", start, end, "Reserved", "details")

	assert.NotEqual(t, base, Fingerprint("TENTATIVE", start, end, "Reserved", "details"), "status")
	assert.NotEqual(t, base, Fingerprint("CONFIRMED", start.AddDate(0, 0, 1), end, "Reserved", "details"), "start")
	assert.NotEqual(t, base, Fingerprint("CONFIRMED", start, end.AddDate(0, 0, 1), "Reserved", "details"), "end")
	assert.NotEqual(t, base, Fingerprint("CONFIRMED", start, end, "Blocked", "details"), "summary")
	assert.NotEqual(t, base, Fingerprint("CONFIRMED", start, end, "Reserved", "other"), "description")
}

func TestFingerprint_TimezoneNormalized(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	utcStart := date(2026, time.March, 10)
	localStart := utcStart.In(loc)
	end := date(2026, time.March, 14)

	a := Fingerprint("CONFIRMED", utcStart, end, "Reserved", "")
	b := Fingerprint("CONFIRMED", localStart, end, "Reserved", "")

	assert.Equal(t, a, b, "same instant in different zones must fingerprint identically")
}

func TestOutcomeToken_ChangesWithFingerprint(t *testing.T) {
	t1 := OutcomeToken("booking-1", "fp-a")
	t2 := OutcomeToken("booking-1", "fp-b")
	t3 := OutcomeToken("booking-2", "fp-a")

	assert.NotEqual(t, t1, t2, "a changed event must produce a fresh token")
	assert.NotEqual(t, t1, t3, "tokens are scoped to one booking")
	assert.Equal(t, t1, OutcomeToken("booking-1", "fp-a"))
}
