package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/linkinbio/internal/errx"
	"github.com/sundayezeilo/linkinbio/internal/links"
)

func newTestHandler(store Store) http.Handler {
	h := NewHandler(NewService(store, Config{Now: func() time.Time { return now }}),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/scheduled-links", h.ScheduledLinks)
	mux.HandleFunc("PATCH /api/admin/links/{id}", h.SetLinkActive)
	return mux
}

func TestHandler_ScheduledLinks(t *testing.T) {
	mux := newTestHandler(fixture())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/scheduled-links?filter=Expired", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp DashboardResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "expired", resp.Filter)
	assert.Equal(t, SummaryResponse{All: 6, Scheduled: 3, Expired: 2, Active: 1}, resp.Summary)
	require.Len(t, resp.Links, 2)
	assert.Equal(t, "Expired", resp.Links[0].Status)
	assert.False(t, resp.Links[0].Clickable)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/scheduled-links", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "all", resp.Filter)
	assert.Len(t, resp.Links, 6)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/scheduled-links?filter=archived", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid_filter")
}

func TestHandler_SetLinkActive(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{setActive: func(got uuid.UUID, active bool) (links.Link, error) {
		if got != id {
			return links.Link{}, errx.E("links.repo.SetActive", errx.NotFound, links.ErrLinkNotFound)
		}
		return links.Link{ID: got, IsActive: active, ScheduledAt: at(time.Hour)}, nil
	}}
	mux := newTestHandler(store)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"deactivate", "/api/admin/links/" + id.String(), `{"is_active":false}`, http.StatusOK, `"status":"Scheduled"`},
		{"missing field", "/api/admin/links/" + id.String(), `{}`, http.StatusBadRequest, "is_active is required"},
		{"bad id", "/api/admin/links/abc", `{"is_active":true}`, http.StatusBadRequest, "valid UUID"},
		{"unknown link", "/api/admin/links/" + uuid.NewString(), `{"is_active":true}`, http.StatusNotFound, "link not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}
