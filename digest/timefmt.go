package digest

import "time"

// TimestampLayout is the wire format for message timestamps (UTC).
const TimestampLayout = "2006-01-02 15:04:05"

// wib is the audience timezone (UTC+7) used in human-facing footers.
var wib = time.FixedZone("WIB", 7*60*60)

// ParseTimestamp parses a "YYYY-MM-DD HH:MM:SS" UTC timestamp.
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// FormatTimestamp renders t in the wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// WIBClock returns the HH:MM wall clock in WIB for a wire timestamp, or ""
// when the timestamp is absent or unparsable.
func WIBClock(timestampUTC string) string {
	t, ok := ParseTimestamp(timestampUTC)
	if !ok {
		return ""
	}
	return t.In(wib).Format("15:04")
}
