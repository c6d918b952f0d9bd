package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkinbio/internal/auth"
	"github.com/sundayezeilo/linkinbio/internal/errx"
	"github.com/sundayezeilo/linkinbio/internal/httpx"
	"github.com/sundayezeilo/linkinbio/internal/lifecycle"
	"github.com/sundayezeilo/linkinbio/sluggen"
)

// HTTPCreateLinkRequest is the JSON body for POST /api/links.
// Timestamps are RFC 3339 strings or YYYY-MM-DD dates (UTC).
type HTTPCreateLinkRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	IsActive    *bool  `json:"is_active,omitempty"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	Password    string `json:"password,omitempty"`
}

// HTTPUpdateLinkRequest is the JSON body for PATCH /api/links/{id}.
// Omitted fields are unchanged; an empty string clears scheduled_at,
// expires_at or password.
type HTTPUpdateLinkRequest struct {
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	ScheduledAt *string `json:"scheduled_at,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
	Password    *string `json:"password,omitempty"`
}

// HTTPReorderRequest is the JSON body for PUT /api/links/order.
type HTTPReorderRequest struct {
	IDs []string `json:"ids"`
}

// HTTPUnlockRequest is the JSON body for POST /go/{slug}/unlock.
type HTTPUnlockRequest struct {
	Password string `json:"password"`
}

// LinkResponse is a link as its owner sees it, with the lifecycle
// classification evaluated at response time.
type LinkResponse struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	URL                string  `json:"url"`
	Slug               string  `json:"slug"`
	ClickURL           string  `json:"click_url"`
	IsActive           bool    `json:"is_active"`
	Position           int32   `json:"position"`
	Clicks             int64   `json:"clicks"`
	ScheduledAt        *string `json:"scheduled_at"`
	ExpiresAt          *string `json:"expires_at"`
	ScheduledAtDisplay string  `json:"scheduled_at_display,omitempty"`
	ExpiresAtDisplay   string  `json:"expires_at_display,omitempty"`
	PasswordProtected  bool    `json:"password_protected"`
	Status             string  `json:"status"`
	Scheduled          bool    `json:"scheduled"`
	Expired            bool    `json:"expired"`
	Live               bool    `json:"live"`
	Clickable          bool    `json:"clickable"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// UnlockResponse carries the destination of an unlocked link.
type UnlockResponse struct {
	URL string `json:"url"`
}

// Handler serves the owner link API and the public click path.
type Handler struct {
	service  Service
	logger   *slog.Logger
	baseURL  string
	location *time.Location
	now      func() time.Time
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service  Service
	Logger   *slog.Logger
	BaseURL  string         // prefix for click URLs, e.g. "https://lnk.example"
	Location *time.Location // zone for *_display fields; UTC when nil
	Now      func() time.Time
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Handler{
		service:  cfg.Service,
		logger:   logger,
		baseURL:  cfg.BaseURL,
		location: loc,
		now:      now,
	}
}

// CreateLink handles POST /api/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		h.badRequest(ctx, w, "invalid_request", err)
		return
	}

	scheduledAt, err := parseTimestampField("scheduled_at", req.ScheduledAt)
	if err != nil {
		h.badRequest(ctx, w, "validation_failed", err)
		return
	}
	expiresAt, err := parseTimestampField("expires_at", req.ExpiresAt)
	if err != nil {
		h.badRequest(ctx, w, "validation_failed", err)
		return
	}

	link, err := h.service.Create(ctx, principal.UserID, CreateLinkRequest{
		Title:       req.Title,
		URL:         req.URL,
		IsActive:    req.IsActive,
		ScheduledAt: scheduledAt,
		ExpiresAt:   expiresAt,
		Password:    req.Password,
	})
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to create link at this time. Please try again.")
		return
	}

	h.logger.InfoContext(ctx, "link created",
		"request_id", httpx.GetRequestID(ctx),
		"link_id", link.ID.String(),
		"slug", link.Slug,
		"scheduled", link.ScheduledAt != nil,
		"expiring", link.ExpiresAt != nil,
		"protected", link.Protected(),
	)

	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(link, h.now()))
}

// ListLinks handles GET /api/links.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(ctx, principal.UserID)
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to list links at this time.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.toResponses(list))
}

// GetLink handles GET /api/links/{id}.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		h.badRequest(ctx, w, "invalid_request", err)
		return
	}

	link, err := h.service.Get(ctx, principal.UserID, id)
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to load link at this time.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.toResponse(link, h.now()))
}

// UpdateLink handles PATCH /api/links/{id}.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		h.badRequest(ctx, w, "invalid_request", err)
		return
	}

	req, err := httpx.DecodeJSON[HTTPUpdateLinkRequest](r)
	if err != nil {
		h.badRequest(ctx, w, "invalid_request", err)
		return
	}

	update := UpdateLinkRequest{
		Title:    req.Title,
		URL:      req.URL,
		IsActive: req.IsActive,
	}
	if req.ScheduledAt != nil {
		if update.ScheduledAt, err = parseTimestampField("scheduled_at", *req.ScheduledAt); err != nil {
			h.badRequest(ctx, w, "validation_failed", err)
			return
		}
		update.ClearScheduledAt = update.ScheduledAt == nil
	}
	if req.ExpiresAt != nil {
		if update.ExpiresAt, err = parseTimestampField("expires_at", *req.ExpiresAt); err != nil {
			h.badRequest(ctx, w, "validation_failed", err)
			return
		}
		update.ClearExpiresAt = update.ExpiresAt == nil
	}
	if req.Password != nil {
		if *req.Password == "" {
			update.ClearPassword = true
		} else {
			update.Password = req.Password
		}
	}

	link, err := h.service.Update(ctx, principal.UserID, id, update)
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to update link at this time.")
		return
	}

	h.logger.InfoContext(ctx, "link updated",
		"request_id", httpx.GetRequestID(ctx),
		"link_id", link.ID.String(),
	)

	httpx.WriteJSON(w, http.StatusOK, h.toResponse(link, h.now()))
}

// DeleteLink handles DELETE /api/links/{id}.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		h.badRequest(ctx, w, "invalid_request", err)
		return
	}

	if err := h.service.Delete(ctx, principal.UserID, id); err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to delete link at this time.")
		return
	}

	h.logger.InfoContext(ctx, "link deleted",
		"request_id", httpx.GetRequestID(ctx),
		"link_id", id.String(),
	)

	w.WriteHeader(http.StatusNoContent)
}

// ReorderLinks handles PUT /api/links/order.
func (h *Handler) ReorderLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	req, err := httpx.DecodeJSON[HTTPReorderRequest](r)
	if err != nil {
		h.badRequest(ctx, w, "invalid_request", err)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.badRequest(ctx, w, "validation_failed", fmt.Errorf("invalid link id %q", raw))
			return
		}
		ids = append(ids, id)
	}

	list, err := h.service.Reorder(ctx, principal.UserID, ids)
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to reorder links at this time.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.toResponses(list))
}

// OpenLink handles GET /go/{slug}: it redirects to the destination when
// the link may be followed right now.
func (h *Handler) OpenLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	httpx.NoStore(w)

	slug := r.PathValue("slug")
	if err := validateSlugFormat(slug); err != nil {
		h.badRequest(ctx, w, "invalid_slug", err)
		return
	}

	destination, err := h.service.Open(ctx, slug, "")
	if err != nil {
		h.writeOpenError(ctx, w, err, slug)
		return
	}

	h.logger.InfoContext(ctx, "link opened",
		"request_id", httpx.GetRequestID(ctx),
		"slug", slug,
		"user_agent", r.UserAgent(),
		"referer", r.Referer(),
	)

	http.Redirect(w, r, destination, http.StatusFound)
}

// UnlockLink handles POST /go/{slug}/unlock for password protected links.
// The destination is returned in the body instead of a redirect.
func (h *Handler) UnlockLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	httpx.NoStore(w)

	slug := r.PathValue("slug")
	if err := validateSlugFormat(slug); err != nil {
		h.badRequest(ctx, w, "invalid_slug", err)
		return
	}

	req, err := httpx.DecodeJSON[HTTPUnlockRequest](r)
	if err != nil {
		h.badRequest(ctx, w, "invalid_request", err)
		return
	}

	destination, err := h.service.Open(ctx, slug, req.Password)
	if err != nil {
		h.writeOpenError(ctx, w, err, slug)
		return
	}

	h.logger.InfoContext(ctx, "link unlocked",
		"request_id", httpx.GetRequestID(ctx),
		"slug", slug,
	)

	httpx.WriteJSON(w, http.StatusOK, UnlockResponse{URL: destination})
}

func (h *Handler) writeOpenError(ctx context.Context, w http.ResponseWriter, err error, slug string) {
	switch {
	case errors.Is(err, ErrPasswordRequired):
		h.logger.InfoContext(ctx, "password challenge",
			"request_id", httpx.GetRequestID(ctx),
			"slug", slug,
		)
		httpx.WriteError(w, http.StatusUnauthorized, "password_required",
			"This link is password protected",
			map[string]string{"unlock_url": "/go/" + slug + "/unlock"})

	case errors.Is(err, ErrWrongPassword):
		h.logger.WarnContext(ctx, "wrong link password",
			"request_id", httpx.GetRequestID(ctx),
			"slug", slug,
			"operation", errx.OpOf(err),
		)
		httpx.WriteError(w, http.StatusUnauthorized, "wrong_password", ErrWrongPassword.Error(), nil)

	default:
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to open this link at this time")
	}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return auth.Principal{}, false
	}
	return p, true
}

func (h *Handler) badRequest(ctx context.Context, w http.ResponseWriter, code string, err error) {
	h.logger.WarnContext(ctx, "bad request",
		"request_id", httpx.GetRequestID(ctx),
		"code", code,
		"error", err.Error(),
	)
	httpx.WriteError(w, http.StatusBadRequest, code, err.Error(), nil)
}

func (h *Handler) toResponses(list []Link) []LinkResponse {
	now := h.now()
	out := make([]LinkResponse, 0, len(list))
	for _, l := range list {
		out = append(out, h.toResponse(l, now))
	}
	return out
}

func (h *Handler) toResponse(l Link, now time.Time) LinkResponse {
	res := lifecycle.Resolve(l.Schedule(), now)
	return LinkResponse{
		ID:                 l.ID.String(),
		Title:              l.Title,
		URL:                l.URL,
		Slug:               l.Slug,
		ClickURL:           h.baseURL + "/go/" + l.Slug,
		IsActive:           l.IsActive,
		Position:           l.Position,
		Clicks:             l.Clicks,
		ScheduledAt:        lifecycle.FormatInstant(l.ScheduledAt),
		ExpiresAt:          lifecycle.FormatInstant(l.ExpiresAt),
		ScheduledAtDisplay: lifecycle.FormatOptional(l.ScheduledAt, h.location),
		ExpiresAtDisplay:   lifecycle.FormatOptional(l.ExpiresAt, h.location),
		PasswordProtected:  l.Protected(),
		Status:             res.Status.String(),
		Scheduled:          res.Scheduled,
		Expired:            res.Expired,
		Live:               res.Live,
		Clickable:          res.Clickable,
		CreatedAt:          l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          l.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// parseTimestampField parses an optional timestamp from a request body.
// It accepts every layout lifecycle.ParseTimestamp reads; zone-less input
// is UTC. Unlike stored rows, client input that does not parse is rejected.
func parseTimestampField(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t := lifecycle.ParseTimestamp(raw)
	if t == nil {
		return nil, fmt.Errorf("%s must be a timestamp such as 2024-03-10T09:00:00Z or 2024-03-10", name)
	}
	return t, nil
}

// validateSlugFormat is a cheap check before hitting the service.
func validateSlugFormat(slug string) error {
	if len(slug) < MinSlugLength || len(slug) > MaxSlugLength || !sluggen.Valid(slug) {
		return errors.New("invalid link")
	}
	return nil
}
