package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkinbio/internal/errx"
	"github.com/sundayezeilo/linkinbio/internal/lifecycle"
	"github.com/sundayezeilo/linkinbio/internal/links"
)

const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MaxDisplayNameLength = 60
	MaxBioLength         = 160
	MaxAvatarURLLength   = 2048
)

// CreateProfileRequest represents the parameters for creating a profile.
type CreateProfileRequest struct {
	Username    string
	DisplayName string
	Bio         string
	AvatarURL   string
}

// UpdateProfileRequest is a partial update; nil fields are unchanged.
type UpdateProfileRequest struct {
	Username    *string
	DisplayName *string
	Bio         *string
	AvatarURL   *string
}

// LinkLister is the part of the link store the public page reads.
type LinkLister interface {
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]links.Link, error)
}

// Service manages profiles and renders public pages.
type Service interface {
	Create(ctx context.Context, id uuid.UUID, req CreateProfileRequest) (Profile, error)
	Get(ctx context.Context, id uuid.UUID) (Profile, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (Profile, error)
	PublicPage(ctx context.Context, username string) (PublicPage, error)
}

type service struct {
	repo     Repository
	links    LinkLister
	location *time.Location
	now      func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	Location *time.Location // zone for "Scheduled for" badges; UTC when nil
	Now      func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, linkLister LinkLister, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	loc := config.Location
	if loc == nil {
		loc = time.UTC
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &service{
		repo:     repo,
		links:    linkLister,
		location: loc,
		now:      now,
	}
}

func (s *service) Create(ctx context.Context, id uuid.UUID, req CreateProfileRequest) (Profile, error) {
	const op = "profiles.service.Create"

	p := Profile{ID: id}
	var err error
	if p.Username, err = validateUsername(req.Username); err != nil {
		return Profile{}, errx.E(op, errx.Invalid, err)
	}
	if p.DisplayName, err = validateDisplayName(req.DisplayName); err != nil {
		return Profile{}, errx.E(op, errx.Invalid, err)
	}
	if p.Bio, err = validateBio(req.Bio); err != nil {
		return Profile{}, errx.E(op, errx.Invalid, err)
	}
	if p.AvatarURL, err = validateAvatarURL(req.AvatarURL); err != nil {
		return Profile{}, errx.E(op, errx.Invalid, err)
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Profile{}, errx.Wrap(op, err)
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	const op = "profiles.service.Get"

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, errx.Wrap(op, err)
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (Profile, error) {
	const op = "profiles.service.Update"

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, errx.Wrap(op, err)
	}

	if req.Username != nil {
		if p.Username, err = validateUsername(*req.Username); err != nil {
			return Profile{}, errx.E(op, errx.Invalid, err)
		}
	}
	if req.DisplayName != nil {
		if p.DisplayName, err = validateDisplayName(*req.DisplayName); err != nil {
			return Profile{}, errx.E(op, errx.Invalid, err)
		}
	}
	if req.Bio != nil {
		if p.Bio, err = validateBio(*req.Bio); err != nil {
			return Profile{}, errx.E(op, errx.Invalid, err)
		}
	}
	if req.AvatarURL != nil {
		if p.AvatarURL, err = validateAvatarURL(*req.AvatarURL); err != nil {
			return Profile{}, errx.E(op, errx.Invalid, err)
		}
	}

	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Profile{}, errx.Wrap(op, err)
	}
	return updated, nil
}

func (s *service) PublicPage(ctx context.Context, username string) (PublicPage, error) {
	const op = "profiles.service.PublicPage"

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return PublicPage{}, errx.E(op, errx.Invalid, errors.New("username cannot be empty"))
	}

	p, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return PublicPage{}, errx.Wrap(op, err)
	}

	all, err := s.links.ListByProfile(ctx, p.ID)
	if err != nil {
		return PublicPage{}, errx.Wrap(op, err)
	}

	page := PublicPage{
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		Links:       make([]PublicLink, 0, len(all)),
	}

	now := s.now()
	for _, l := range all {
		// Inactive links are dropped before eligibility is considered.
		if !l.IsActive {
			continue
		}
		sched := l.Schedule()
		pl := PublicLink{
			ID:                l.ID,
			Title:             l.Title,
			Clickable:         lifecycle.Clickable(sched, now),
			Badge:             lifecycle.PublicBadge(sched, l.Protected(), now, s.location),
			PasswordProtected: l.Protected(),
		}
		if pl.Clickable {
			pl.Href = "/go/" + l.Slug
		}
		page.Links = append(page.Links, pl)
	}

	return page, nil
}

func validateUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	n := len(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return "", fmt.Errorf("username must be %d to %d characters", MinUsernameLength, MaxUsernameLength)
	}
	for _, c := range username {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return "", errors.New("username may only contain letters, digits, dash and underscore")
		}
	}
	return username, nil
}

func validateDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", fmt.Errorf("display name too long (max %d characters)", MaxDisplayNameLength)
	}
	return name, nil
}

func validateBio(raw string) (string, error) {
	bio := strings.TrimSpace(raw)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return "", fmt.Errorf("bio too long (max %d characters)", MaxBioLength)
	}
	return bio, nil
}

func validateAvatarURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if len(raw) > MaxAvatarURLLength {
		return "", errors.New("avatar url too long")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New("avatar url must be an absolute http or https url")
	}
	return raw, nil
}
