// Package lifecycle classifies a link's visibility from its activity toggle,
// its optional go-live and expiry timestamps, and an explicit evaluation instant.
//
// Every function here is pure. The caller supplies "now" and nothing is logged.
// All views classify links through this package so a link never reports
// different states in different places.
package lifecycle

import "time"

// Status is the single display label shown next to a link.
type Status string

const (
	StatusActive    Status = "Active"
	StatusScheduled Status = "Scheduled"
	StatusExpired   Status = "Expired"
	StatusInactive  Status = "Inactive"
)

func (s Status) String() string { return string(s) }

// Schedule is the subset of a link that determines its lifecycle state.
// A nil timestamp means "no constraint".
type Schedule struct {
	IsActive    bool
	ScheduledAt *time.Time
	ExpiresAt   *time.Time
}

// Resolution is the full classification of a Schedule at one instant.
// Scheduled and Expired are reported independently, so both may be true
// for a schedule whose expiry precedes its go-live.
type Resolution struct {
	Scheduled bool
	Expired   bool
	Live      bool
	Clickable bool
	Status    Status
}

// IsScheduled reports whether the go-live time is strictly after now.
func IsScheduled(s Schedule, now time.Time) bool {
	return s.ScheduledAt != nil && s.ScheduledAt.After(now)
}

// IsExpired reports whether the expiry time is at or before now.
func IsExpired(s Schedule, now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// IsLive reports whether the link is switched on and inside its window.
func IsLive(s Schedule, now time.Time) bool {
	return s.IsActive && !IsScheduled(s, now) && !IsExpired(s, now)
}

// Clickable reports whether navigation is allowed at now. It ignores
// IsActive; callers drop inactive links before asking.
func Clickable(s Schedule, now time.Time) bool {
	return !IsScheduled(s, now) && !IsExpired(s, now)
}

// Label returns the display status. Expired wins over Scheduled.
func Label(s Schedule, now time.Time) Status {
	switch {
	case IsExpired(s, now):
		return StatusExpired
	case IsScheduled(s, now):
		return StatusScheduled
	case s.IsActive:
		return StatusActive
	default:
		return StatusInactive
	}
}

// Resolve evaluates every predicate for s at now.
func Resolve(s Schedule, now time.Time) Resolution {
	scheduled := IsScheduled(s, now)
	expired := IsExpired(s, now)

	return Resolution{
		Scheduled: scheduled,
		Expired:   expired,
		Live:      s.IsActive && !scheduled && !expired,
		Clickable: !scheduled && !expired,
		Status:    Label(s, now),
	}
}
