package links

import (
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkinbio/internal/lifecycle"
)

// Link is one outbound link on a profile.
type Link struct {
	ID           uuid.UUID
	ProfileID    uuid.UUID
	Title        string
	URL          string // stored as entered; NormalizeURL runs at click time
	Slug         string
	IsActive     bool
	Position     int32
	Clicks       int64
	ScheduledAt  *time.Time
	ExpiresAt    *time.Time
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Schedule returns the fields the lifecycle resolver classifies.
func (l Link) Schedule() lifecycle.Schedule {
	return lifecycle.Schedule{
		IsActive:    l.IsActive,
		ScheduledAt: l.ScheduledAt,
		ExpiresAt:   l.ExpiresAt,
	}
}

// Protected reports whether opening the link requires a password.
func (l Link) Protected() bool {
	return l.PasswordHash != ""
}

// ScheduledLink is a link with a go-live or expiry time, joined with its
// owner's username for the admin dashboard.
type ScheduledLink struct {
	Link
	Username string
}
