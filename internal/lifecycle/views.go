package lifecycle

import (
	"fmt"
	"strings"
	"time"
)

// Filter selects a bucket on the admin scheduled-links dashboard.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterScheduled Filter = "scheduled"
	FilterExpired   Filter = "expired"
	FilterActive    Filter = "active"
)

// Filters lists every bucket in dashboard order.
var Filters = []Filter{FilterAll, FilterScheduled, FilterExpired, FilterActive}

// ParseFilter maps a query value to a Filter. Empty input means FilterAll.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterScheduled, FilterExpired, FilterActive:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q (must be one of: all, scheduled, expired, active)", raw)
	}
}

// Matches reports whether a resolved link belongs in the bucket.
func (f Filter) Matches(r Resolution) bool {
	switch f {
	case FilterAll:
		return true
	case FilterScheduled:
		return r.Scheduled
	case FilterExpired:
		return r.Expired
	case FilterActive:
		return r.Live
	default:
		return false
	}
}

// Public profile badges.
const (
	BadgeExpired           = "Expired"
	BadgePasswordProtected = "Password Protected"
	badgeScheduledPrefix   = "Scheduled for "
)

// PublicBadge picks the badge shown on the public profile page, or "" for none.
// Order: expired, scheduled (with its go-live date), password protected.
func PublicBadge(s Schedule, protected bool, now time.Time, loc *time.Location) string {
	switch {
	case IsExpired(s, now):
		return BadgeExpired
	case IsScheduled(s, now):
		return badgeScheduledPrefix + FormatTimestamp(*s.ScheduledAt, loc)
	case protected:
		return BadgePasswordProtected
	default:
		return ""
	}
}
