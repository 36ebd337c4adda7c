package ntfstime

import (
	"testing"
	"time"
)

func TestFromUnixToTimeRoundTrip(t *testing.T) {
	unixSeconds := int64(1_700_000_000)
	nt := FromUnix(unixSeconds)
	got := ToTime(nt)
	if got.Unix() != unixSeconds {
		t.Errorf("round trip = %d, want %d", got.Unix(), unixSeconds)
	}
}

func TestIsRecent(t *testing.T) {
	now := time.Date(2026, time.July, 29, 12, 0, 0, 0, time.UTC)
	maxAge := 5 * time.Minute

	recent := FromUnix(now.Add(-1 * time.Minute).Unix())
	if !IsRecent(recent, now, maxAge) {
		t.Error("expected a 1-minute-old modification to be recent")
	}

	stale := FromUnix(now.Add(-1 * time.Hour).Unix())
	if IsRecent(stale, now, maxAge) {
		t.Error("expected a 1-hour-old modification to not be recent")
	}
}
