package profiles

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a user's public page. Its ID is the authenticated user's ID.
type Profile struct {
	ID          uuid.UUID
	Username    string
	DisplayName string
	Bio         string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PublicPage is what an anonymous visitor sees.
type PublicPage struct {
	Username    string
	DisplayName string
	Bio         string
	AvatarURL   string
	Links       []PublicLink
}

// PublicLink is one rendered link. Destinations are never exposed; visitors
// follow Href, which goes through the click path.
type PublicLink struct {
	ID                uuid.UUID
	Title             string
	Href              string // empty when the link cannot be followed yet
	Clickable         bool
	Badge             string
	PasswordProtected bool
}
