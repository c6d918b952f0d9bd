package lifecycle

import (
	"strings"
	"time"
)

// DisplayLayout is the human-readable form used for badges and dashboards.
const DisplayLayout = "Jan 2, 2006, 3:04 PM"

// timestampLayouts lists the encodings seen in stored link rows, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses raw into an instant. Empty and malformed input
// yield nil, which every predicate treats as "no constraint".
// Layouts without a zone are read as UTC.
func ParseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return &t
		}
	}
	return nil
}

// ScheduleFromRaw builds a Schedule from weakly-typed values such as decoded
// maps or imported rows. Unparseable fields become nil, so the link fails open.
func ScheduleFromRaw(isActive bool, scheduledAt, expiresAt string) Schedule {
	return Schedule{
		IsActive:    isActive,
		ScheduledAt: ParseTimestamp(scheduledAt),
		ExpiresAt:   ParseTimestamp(expiresAt),
	}
}

// FormatInstant renders t for API payloads as RFC 3339 in UTC, keeping
// sub-second precision so clients see the exact boundary. nil stays nil.
func FormatInstant(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

// FormatTimestamp renders t for display in loc (UTC when loc is nil).
// It has no bearing on classification.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}

// FormatOptional is FormatTimestamp for nullable columns; nil renders as "".
func FormatOptional(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t, loc)
}
