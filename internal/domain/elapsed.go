package domain

import (
	"strconv"
	"strings"
	"time"
)

const msPerDay = 24 * 60 * 60 * 1000

// ElapsedLabel renders the whole days between since and now as "Today",
// "1 day ago" or "N days ago". A zero since counts as unknown and reads "Today";
// a since in the future clamps to zero elapsed.
func ElapsedLabel(since, now time.Time) string {
	if since.IsZero() {
		return "Today"
	}
	delta := max(0, now.UnixMilli()-since.UnixMilli())
	days := delta / msPerDay
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "1 day ago"
	default:
		return strconv.FormatInt(days, 10) + " days ago"
	}
}

// ElapsedLabelFromString accepts RFC 3339 text or unix milliseconds. Anything
// it cannot read yields "Today".
func ElapsedLabelFromString(since string, now time.Time) string {
	ts, ok := ParseTimestamp(since)
	if !ok {
		return "Today"
	}
	return ElapsedLabel(ts, now)
}

// ParseTimestamp reads RFC 3339 text or a unix millisecond count.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}
