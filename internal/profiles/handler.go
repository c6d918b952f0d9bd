package profiles

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sundayezeilo/linkinbio/internal/auth"
	"github.com/sundayezeilo/linkinbio/internal/httpx"
)

// HTTPCreateProfileRequest is the JSON body for POST /api/profile.
type HTTPCreateProfileRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// HTTPUpdateProfileRequest is the JSON body for PATCH /api/profile.
type HTTPUpdateProfileRequest struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// ProfileResponse is the owner's view of a profile.
type ProfileResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// PublicPageResponse is the public profile page.
type PublicPageResponse struct {
	Username    string               `json:"username"`
	DisplayName string               `json:"display_name"`
	Bio         string               `json:"bio"`
	AvatarURL   string               `json:"avatar_url"`
	Links       []PublicLinkResponse `json:"links"`
}

// PublicLinkResponse is one link on the public page.
type PublicLinkResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Href              string `json:"href,omitempty"`
	Clickable         bool   `json:"clickable"`
	Badge             string `json:"badge,omitempty"`
	PasswordProtected bool   `json:"password_protected"`
}

// Handler provides HTTP handlers for profiles.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// GetPublicProfile handles GET /api/profiles/{username}.
func (h *Handler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// Badges and clickability depend on the current time.
	httpx.NoStore(w)

	page, err := h.service.PublicPage(ctx, r.PathValue("username"))
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to load this profile right now.")
		return
	}

	resp := PublicPageResponse{
		Username:    page.Username,
		DisplayName: page.DisplayName,
		Bio:         page.Bio,
		AvatarURL:   page.AvatarURL,
		Links:       make([]PublicLinkResponse, 0, len(page.Links)),
	}
	for _, l := range page.Links {
		resp.Links = append(resp.Links, PublicLinkResponse{
			ID:                l.ID.String(),
			Title:             l.Title,
			Href:              l.Href,
			Clickable:         l.Clickable,
			Badge:             l.Badge,
			PasswordProtected: l.PasswordProtected,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// CreateProfile handles POST /api/profile.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	req, err := httpx.DecodeJSON[HTTPCreateProfileRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	p, err := h.service.Create(ctx, principal.UserID, CreateProfileRequest{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to create profile at this time.")
		return
	}

	h.logger.InfoContext(ctx, "profile created",
		"request_id", httpx.GetRequestID(ctx),
		"profile_id", p.ID.String(),
		"username", p.Username,
	)

	httpx.WriteJSON(w, http.StatusCreated, toResponse(p))
}

// GetProfile handles GET /api/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	p, err := h.service.Get(ctx, principal.UserID)
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to load profile at this time.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(p))
}

// UpdateProfile handles PATCH /api/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	req, err := httpx.DecodeJSON[HTTPUpdateProfileRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	p, err := h.service.Update(ctx, principal.UserID, UpdateProfileRequest{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to update profile at this time.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(p))
}

func toResponse(p Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID.String(),
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
