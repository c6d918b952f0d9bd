package links

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sundayezeilo/linkinbio/internal/errx"
	"github.com/sundayezeilo/linkinbio/internal/lifecycle"
	"github.com/sundayezeilo/linkinbio/sluggen"
)

const (
	DefaultSlugLength     = 8
	MinSlugLength         = 3
	MaxSlugLength         = 64
	DefaultSlugMaxRetries = 3

	MaxTitleLength = 100
	MaxURLLength   = 2048
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
)

var (
	ErrLinkNotLive      = errors.New("link is not live yet")
	ErrLinkExpired      = errors.New("link has expired")
	ErrPasswordRequired = errors.New("password required")
	ErrWrongPassword    = errors.New("incorrect password")
)

// CreateLinkRequest represents the parameters for creating a link.
type CreateLinkRequest struct {
	Title       string
	URL         string
	IsActive    *bool // defaults to true
	ScheduledAt *time.Time
	ExpiresAt   *time.Time
	Password    string // optional; stored as a bcrypt hash
}

// UpdateLinkRequest is a partial update. Nil fields are left unchanged;
// the Clear flags remove an optional value.
type UpdateLinkRequest struct {
	Title            *string
	URL              *string
	IsActive         *bool
	ScheduledAt      *time.Time
	ClearScheduledAt bool
	ExpiresAt        *time.Time
	ClearExpiresAt   bool
	Password         *string
	ClearPassword    bool
}

// touchesWindow reports whether the request sets or clears either bound.
// Rows already holding an inverted window stay editable otherwise.
func (r UpdateLinkRequest) touchesWindow() bool {
	return r.ScheduledAt != nil || r.ClearScheduledAt || r.ExpiresAt != nil || r.ClearExpiresAt
}

// Service defines link management for owners and the public click path.
type Service interface {
	Create(ctx context.Context, profileID uuid.UUID, req CreateLinkRequest) (Link, error)
	Get(ctx context.Context, profileID, id uuid.UUID) (Link, error)
	List(ctx context.Context, profileID uuid.UUID) ([]Link, error)
	Update(ctx context.Context, profileID, id uuid.UUID, req UpdateLinkRequest) (Link, error)
	Delete(ctx context.Context, profileID, id uuid.UUID) error
	Reorder(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) ([]Link, error)
	// Open checks that the link behind slug may be followed right now,
	// counts the click and returns the destination URL.
	Open(ctx context.Context, slug, password string) (string, error)
}

type service struct {
	repo           Repository
	slugGenerator  sluggen.Generator
	slugLength     int
	slugMaxRetries int
	bcryptCost     int
	now            func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	SlugGenerator  sluggen.Generator
	SlugLength     int
	SlugMaxRetries int // attempts when generating a unique slug (default: 3)
	BcryptCost     int
	Now            func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	slugGen := config.SlugGenerator
	if slugGen == nil {
		slugGen = sluggen.NewBase62()
	}

	slugLength := config.SlugLength
	if slugLength < MinSlugLength || slugLength > MaxSlugLength {
		slugLength = DefaultSlugLength
	}

	retries := config.SlugMaxRetries
	if retries <= 0 {
		retries = DefaultSlugMaxRetries
	}

	cost := config.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &service{
		repo:           repo,
		slugGenerator:  slugGen,
		slugLength:     slugLength,
		slugMaxRetries: retries,
		bcryptCost:     cost,
		now:            now,
	}
}

func (s *service) Create(ctx context.Context, profileID uuid.UUID, req CreateLinkRequest) (Link, error) {
	const op = "links.service.Create"

	title, err := validateTitle(req.Title)
	if err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	rawURL, err := validateURL(req.URL)
	if err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	if err := validateWindow(req.ScheduledAt, req.ExpiresAt); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	link := Link{
		ProfileID:   profileID,
		Title:       title,
		URL:         rawURL,
		IsActive:    true,
		ScheduledAt: req.ScheduledAt,
		ExpiresAt:   req.ExpiresAt,
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}

	if req.Password != "" {
		hash, err := s.hashPassword(req.Password)
		if err != nil {
			return Link{}, errx.Wrap(op, err)
		}
		link.PasswordHash = hash
	}

	// Retry on slug conflicts, fail on anything else.
	for range s.slugMaxRetries {
		slug, err := s.slugGenerator.Generate(s.slugLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.Slug = slug

		created, err := s.repo.Create(ctx, link)
		if err == nil {
			return created, nil
		}
		if errx.KindOf(err) != errx.Conflict {
			return Link{}, errx.Wrap(op, err)
		}
	}

	return Link{}, errx.E(op, errx.Unavailable,
		errors.New("could not generate unique slug after retries"))
}

func (s *service) Get(ctx context.Context, profileID, id uuid.UUID) (Link, error) {
	const op = "links.service.Get"

	link, err := s.repo.GetByID(ctx, profileID, id)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return link, nil
}

func (s *service) List(ctx context.Context, profileID uuid.UUID) ([]Link, error) {
	const op = "links.service.List"

	out, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, errx.Wrap(op, err)
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, profileID, id uuid.UUID, req UpdateLinkRequest) (Link, error) {
	const op = "links.service.Update"

	link, err := s.repo.GetByID(ctx, profileID, id)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}

	if req.Title != nil {
		if link.Title, err = validateTitle(*req.Title); err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}
	}
	if req.URL != nil {
		if link.URL, err = validateURL(*req.URL); err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}

	switch {
	case req.ClearScheduledAt:
		link.ScheduledAt = nil
	case req.ScheduledAt != nil:
		link.ScheduledAt = req.ScheduledAt
	}
	switch {
	case req.ClearExpiresAt:
		link.ExpiresAt = nil
	case req.ExpiresAt != nil:
		link.ExpiresAt = req.ExpiresAt
	}
	if req.touchesWindow() {
		if err := validateWindow(link.ScheduledAt, link.ExpiresAt); err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}
	}

	switch {
	case req.ClearPassword:
		link.PasswordHash = ""
	case req.Password != nil:
		hash, err := s.hashPassword(*req.Password)
		if err != nil {
			return Link{}, errx.Wrap(op, err)
		}
		link.PasswordHash = hash
	}

	updated, err := s.repo.Update(ctx, link)
	if err != nil {
		return Link{}, errx.Wrap(op, err)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, profileID, id uuid.UUID) error {
	const op = "links.service.Delete"

	if err := s.repo.Delete(ctx, profileID, id); err != nil {
		return errx.Wrap(op, err)
	}
	return nil
}

func (s *service) Reorder(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) ([]Link, error) {
	const op = "links.service.Reorder"

	if len(ids) == 0 {
		return nil, errx.E(op, errx.Invalid, errors.New("order cannot be empty"))
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, errx.Errorf(op, errx.Invalid, "link %s listed more than once", id)
		}
		seen[id] = struct{}{}
	}

	if err := s.repo.Reorder(ctx, profileID, ids); err != nil {
		return nil, errx.Wrap(op, err)
	}

	out, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, errx.Wrap(op, err)
	}
	return out, nil
}

func (s *service) Open(ctx context.Context, slug, password string) (string, error) {
	const op = "links.service.Open"

	if slug == "" {
		return "", errx.E(op, errx.Invalid, errors.New("slug cannot be empty"))
	}

	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return "", errx.Wrap(op, err)
	}

	// Inactive links are never listed publicly, so they do not exist for visitors.
	if !link.IsActive {
		return "", errx.E(op, errx.NotFound, ErrLinkNotFound)
	}

	res := lifecycle.Resolve(link.Schedule(), s.now())
	if !res.Clickable {
		if res.Status == lifecycle.StatusExpired {
			return "", errx.E(op, errx.Gone, ErrLinkExpired)
		}
		return "", errx.E(op, errx.Forbidden, ErrLinkNotLive)
	}

	if link.Protected() {
		if password == "" {
			return "", errx.E(op, errx.Unauthorized, ErrPasswordRequired)
		}
		err := bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password))
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return "", errx.E(op, errx.Unauthorized, ErrWrongPassword)
		case err != nil:
			return "", errx.E(op, errx.Internal, err)
		}
	}

	if err := s.repo.IncrementClicks(ctx, link.ID); err != nil {
		return "", errx.Wrap(op, err)
	}

	return NormalizeURL(link.URL), nil
}

func (s *service) hashPassword(password string) (string, error) {
	const op = "links.service.hashPassword"

	if len(password) > MaxPasswordLength {
		return "", errx.Errorf(op, errx.Invalid, "password too long (max %d bytes)", MaxPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", errx.E(op, errx.Internal, err)
	}
	return string(hash), nil
}

// NormalizeURL prepends https:// when raw has no http or https scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

// validateURL checks raw and returns it trimmed. Links are stored as
// entered and normalized on click, so the check runs on NormalizeURL(raw).
func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url cannot be empty")
	}
	if len(raw) > MaxURLLength {
		return "", errors.New("url too long (max 2048 characters)")
	}

	if scheme, ok := explicitScheme(raw); ok && scheme != "http" && scheme != "https" {
		return "", errors.New("url scheme must be http or https")
	}

	parsed, err := url.Parse(NormalizeURL(raw))
	if err != nil {
		return "", errors.New("invalid url format")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("url scheme must be http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("url must include host")
	}
	return raw, nil
}

// explicitScheme returns the lowercased scheme when raw starts with
// "scheme://". A "://" later in the path or query does not count.
func explicitScheme(raw string) (string, bool) {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return "", false
	}
	for j, c := range raw[:i] {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", false
		}
	}
	return strings.ToLower(raw[:i]), true
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", errors.New("title too long (max 100 characters)")
	}
	return title, nil
}

// validateWindow rejects a go-live time at or after the expiry. Rows that
// already hold such a window still resolve, and Update only checks it when
// a bound changes.
func validateWindow(scheduledAt, expiresAt *time.Time) error {
	if scheduledAt == nil || expiresAt == nil {
		return nil
	}
	if !expiresAt.After(*scheduledAt) {
		return errors.New("expires_at must be after scheduled_at")
	}
	return nil
}
