package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sundayezeilo/linkinbio/internal/auth"
	"github.com/sundayezeilo/linkinbio/internal/httpx"
	"github.com/sundayezeilo/linkinbio/internal/lifecycle"
)

// DashboardResponse is the JSON form of a Dashboard.
type DashboardResponse struct {
	Filter      string          `json:"filter"`
	EvaluatedAt string          `json:"evaluated_at"`
	Summary     SummaryResponse `json:"summary"`
	Links       []RowResponse   `json:"links"`
}

// SummaryResponse counts dashboard links per bucket, independent of the filter.
type SummaryResponse struct {
	All       int `json:"all"`
	Scheduled int `json:"scheduled"`
	Expired   int `json:"expired"`
	Active    int `json:"active"`
}

// RowResponse is one link on the dashboard with its resolved lifecycle state.
type RowResponse struct {
	ID                 string  `json:"id"`
	ProfileID          string  `json:"profile_id"`
	Username           string  `json:"username"`
	Title              string  `json:"title"`
	URL                string  `json:"url"`
	IsActive           bool    `json:"is_active"`
	ScheduledAt        *string `json:"scheduled_at"`
	ExpiresAt          *string `json:"expires_at"`
	ScheduledAtDisplay string  `json:"scheduled_at_display,omitempty"`
	ExpiresAtDisplay   string  `json:"expires_at_display,omitempty"`
	Status             string  `json:"status"`
	Clickable          bool    `json:"clickable"`
	Live               bool    `json:"live"`
}

// HTTPSetActiveRequest is the JSON body for PATCH /api/admin/links/{id}.
type HTTPSetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// Handler provides the admin HTTP endpoints. Routes must be wrapped with
// auth.RequireRole.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ScheduledLinks handles GET /api/admin/scheduled-links?filter=.
func (h *Handler) ScheduledLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := lifecycle.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_filter", err.Error(),
			map[string]any{"allowed": lifecycle.Filters})
		return
	}

	d, err := h.service.ScheduledLinks(ctx, filter)
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to load scheduled links.")
		return
	}

	resp := DashboardResponse{
		Filter:      string(d.Filter),
		EvaluatedAt: d.EvaluatedAt.UTC().Format(time.RFC3339),
		Summary: SummaryResponse{
			All:       d.Summary.All,
			Scheduled: d.Summary.Scheduled,
			Expired:   d.Summary.Expired,
			Active:    d.Summary.Active,
		},
		Links: make([]RowResponse, 0, len(d.Rows)),
	}
	for _, row := range d.Rows {
		resp.Links = append(resp.Links, RowResponse{
			ID:                 row.LinkID.String(),
			ProfileID:          row.ProfileID.String(),
			Username:           row.Username,
			Title:              row.Title,
			URL:                row.URL,
			IsActive:           row.IsActive,
			ScheduledAt:        lifecycle.FormatInstant(row.ScheduledAt),
			ExpiresAt:          lifecycle.FormatInstant(row.ExpiresAt),
			ScheduledAtDisplay: row.ScheduledAtDisplay,
			ExpiresAtDisplay:   row.ExpiresAtDisplay,
			Status:             row.Resolution.Status.String(),
			Clickable:          row.Resolution.Clickable,
			Live:               row.Resolution.Live,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// SetLinkActive handles PATCH /api/admin/links/{id}.
func (h *Handler) SetLinkActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	req, err := httpx.DecodeJSON[HTTPSetActiveRequest](r)
	if err == nil && req.IsActive == nil {
		err = errors.New("is_active is required")
	}
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	l, err := h.service.SetLinkActive(ctx, id, *req.IsActive)
	if err != nil {
		httpx.WriteServiceError(ctx, w, h.logger, err, "Unable to update link.")
		return
	}

	admin, _ := auth.PrincipalFrom(ctx)
	h.logger.InfoContext(ctx, "link moderated",
		"request_id", httpx.GetRequestID(ctx),
		"link_id", l.ID.String(),
		"is_active", l.IsActive,
		"admin_id", admin.UserID.String(),
	)

	res := lifecycle.Resolve(l.Schedule(), h.service.now())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"id":        l.ID.String(),
		"is_active": l.IsActive,
		"status":    res.Status.String(),
	})
}
