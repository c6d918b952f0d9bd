package links

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sundayezeilo/linkinbio/internal/errx"
	"github.com/sundayezeilo/linkinbio/sluggen"
)

/***************
 * Mocks
 ***************/

// mockRepository implements Repository for testing.
type mockRepository struct {
	createFunc          func(ctx context.Context, link Link) (Link, error)
	getByIDFunc         func(ctx context.Context, profileID, id uuid.UUID) (Link, error)
	getBySlugFunc       func(ctx context.Context, slug string) (Link, error)
	listByProfileFunc   func(ctx context.Context, profileID uuid.UUID) ([]Link, error)
	listScheduledFunc   func(ctx context.Context) ([]ScheduledLink, error)
	updateFunc          func(ctx context.Context, link Link) (Link, error)
	deleteFunc          func(ctx context.Context, profileID, id uuid.UUID) error
	reorderFunc         func(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) error
	incrementClicksFunc func(ctx context.Context, id uuid.UUID) error
	setActiveFunc       func(ctx context.Context, id uuid.UUID, active bool) (Link, error)
}

func (m *mockRepository) Create(ctx context.Context, link Link) (Link, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, link)
	}
	link.ID = uuid.New()
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	return link, nil
}

func (m *mockRepository) GetByID(ctx context.Context, profileID, id uuid.UUID) (Link, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, profileID, id)
	}
	return Link{}, errx.E("repo.GetByID", errx.NotFound, ErrLinkNotFound)
}

func (m *mockRepository) GetBySlug(ctx context.Context, slug string) (Link, error) {
	if m.getBySlugFunc != nil {
		return m.getBySlugFunc(ctx, slug)
	}
	return Link{}, errx.E("repo.GetBySlug", errx.NotFound, ErrLinkNotFound)
}

func (m *mockRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]Link, error) {
	if m.listByProfileFunc != nil {
		return m.listByProfileFunc(ctx, profileID)
	}
	return []Link{}, nil
}

func (m *mockRepository) ListScheduled(ctx context.Context) ([]ScheduledLink, error) {
	if m.listScheduledFunc != nil {
		return m.listScheduledFunc(ctx)
	}
	return []ScheduledLink{}, nil
}

func (m *mockRepository) Update(ctx context.Context, link Link) (Link, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, link)
	}
	return link, nil
}

func (m *mockRepository) Delete(ctx context.Context, profileID, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, profileID, id)
	}
	return nil
}

func (m *mockRepository) Reorder(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) error {
	if m.reorderFunc != nil {
		return m.reorderFunc(ctx, profileID, ids)
	}
	return nil
}

func (m *mockRepository) IncrementClicks(ctx context.Context, id uuid.UUID) error {
	if m.incrementClicksFunc != nil {
		return m.incrementClicksFunc(ctx, id)
	}
	return nil
}

func (m *mockRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (Link, error) {
	if m.setActiveFunc != nil {
		return m.setActiveFunc(ctx, id, active)
	}
	return Link{ID: id, IsActive: active}, nil
}

// sequenceSlugs returns slugs in order and counts calls.
func sequenceSlugs(calls *int, slugs ...string) sluggen.Generator {
	return sluggen.Func(func(length int) (string, error) {
		i := *calls
		*calls++
		if i < len(slugs) {
			return slugs[i], nil
		}
		return "fallback1", nil
	})
}

var (
	testNow     = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testProfile = uuid.MustParse("0190a6c4-1f2e-7a3b-8c4d-5e6f7a8b9c0d")
)

func newTestService(repo Repository, cfg *ServiceConfig) Service {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return testNow }
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	return NewService(repo, cfg)
}

func ptr[T any](v T) *T { return &v }

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// capture returns a createFunc that records the link it is handed.
func capture(dst *Link) func(context.Context, Link) (Link, error) {
	return func(_ context.Context, link Link) (Link, error) {
		*dst = link
		return link, nil
	}
}

/***************
 * Create
 ***************/

func TestServiceCreate(t *testing.T) {
	t.Run("creates active link with generated slug", func(t *testing.T) {
		var captured Link
		calls := 0
		svc := newTestService(&mockRepository{
			createFunc: func(ctx context.Context, link Link) (Link, error) {
				captured = link
				link.ID = uuid.New()
				return link, nil
			},
		}, &ServiceConfig{SlugGenerator: sequenceSlugs(&calls, "Ab3dE6gH")})

		got, err := svc.Create(context.Background(), testProfile, CreateLinkRequest{
			Title: "  My shop  ",
			URL:   "shop.example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, testProfile, captured.ProfileID)
		assert.Equal(t, "My shop", captured.Title, "title is trimmed")
		assert.Equal(t, "shop.example.com", captured.URL, "url is stored as entered")
		assert.True(t, captured.IsActive, "active by default")
		assert.Equal(t, "Ab3dE6gH", captured.Slug)
		assert.Empty(t, captured.PasswordHash)
		assert.NotEqual(t, uuid.Nil, got.ID)
	})

	t.Run("respects explicit inactive and schedule", func(t *testing.T) {
		var captured Link
		svc := newTestService(&mockRepository{createFunc: capture(&captured)}, nil)

		start := testNow.Add(24 * time.Hour)
		end := testNow.Add(48 * time.Hour)
		_, err := svc.Create(context.Background(), testProfile, CreateLinkRequest{
			Title:       "Launch",
			URL:         "https://example.com/launch",
			IsActive:    ptr(false),
			ScheduledAt: &start,
			ExpiresAt:   &end,
		})
		require.NoError(t, err)
		assert.False(t, captured.IsActive)
		require.NotNil(t, captured.ScheduledAt)
		require.NotNil(t, captured.ExpiresAt)
		assert.True(t, captured.ScheduledAt.Equal(start))
		assert.True(t, captured.ExpiresAt.Equal(end))
	})

	t.Run("hashes password", func(t *testing.T) {
		var captured Link
		svc := newTestService(&mockRepository{createFunc: capture(&captured)}, nil)

		_, err := svc.Create(context.Background(), testProfile, CreateLinkRequest{
			Title:    "Secret",
			URL:      "https://example.com",
			Password: "hunter2",
		})
		require.NoError(t, err)
		require.NotEmpty(t, captured.PasswordHash)
		assert.NotEqual(t, "hunter2", captured.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(captured.PasswordHash), []byte("hunter2")))
	})

	t.Run("retries on slug conflict", func(t *testing.T) {
		calls, creates := 0, 0
		svc := newTestService(&mockRepository{
			createFunc: func(ctx context.Context, link Link) (Link, error) {
				creates++
				if link.Slug == "taken123" {
					return Link{}, errx.E("repo.Create", errx.Conflict, ErrSlugTaken)
				}
				return link, nil
			},
		}, &ServiceConfig{SlugGenerator: sequenceSlugs(&calls, "taken123", "fresh123")})

		got, err := svc.Create(context.Background(), testProfile, CreateLinkRequest{Title: "t", URL: "https://example.com"})
		require.NoError(t, err)
		assert.Equal(t, "fresh123", got.Slug)
		assert.Equal(t, 2, creates)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls, creates := 0, 0
		svc := newTestService(&mockRepository{
			createFunc: func(ctx context.Context, link Link) (Link, error) {
				creates++
				return Link{}, errx.E("repo.Create", errx.Conflict, ErrSlugTaken)
			},
		}, &ServiceConfig{SlugGenerator: sequenceSlugs(&calls), SlugMaxRetries: 2})

		_, err := svc.Create(context.Background(), testProfile, CreateLinkRequest{Title: "t", URL: "https://example.com"})
		assert.Equal(t, errx.Unavailable, errx.KindOf(err))
		assert.Equal(t, 2, creates)
	})

	t.Run("does not retry on other repository errors", func(t *testing.T) {
		creates := 0
		svc := newTestService(&mockRepository{
			createFunc: func(ctx context.Context, link Link) (Link, error) {
				creates++
				return Link{}, errx.E("repo.Create", errx.NotFound, ErrProfileNotFound)
			},
		}, nil)

		_, err := svc.Create(context.Background(), testProfile, CreateLinkRequest{Title: "t", URL: "https://example.com"})
		assert.Equal(t, errx.NotFound, errx.KindOf(err))
		assert.Equal(t, 1, creates)
	})

	t.Run("generator failure is unavailable", func(t *testing.T) {
		svc := newTestService(&mockRepository{}, &ServiceConfig{
			SlugGenerator: sluggen.Func(func(int) (string, error) { return "", errors.New("entropy") }),
		})

		_, err := svc.Create(context.Background(), testProfile, CreateLinkRequest{Title: "t", URL: "https://example.com"})
		assert.Equal(t, errx.Unavailable, errx.KindOf(err))
	})
}

func TestServiceCreate_Validation(t *testing.T) {
	later := testNow.Add(time.Hour)

	tests := []struct {
		name    string
		req     CreateLinkRequest
		wantMsg string
	}{
		{name: "empty title", req: CreateLinkRequest{Title: "  ", URL: "https://example.com"}, wantMsg: "title cannot be empty"},
		{name: "long title", req: CreateLinkRequest{Title: strings.Repeat("é", 101), URL: "https://example.com"}, wantMsg: "title too long"},
		{name: "empty url", req: CreateLinkRequest{Title: "t", URL: ""}, wantMsg: "url cannot be empty"},
		{name: "long url", req: CreateLinkRequest{Title: "t", URL: "https://example.com/" + strings.Repeat("a", MaxURLLength)}, wantMsg: "url too long"},
		{name: "ftp scheme", req: CreateLinkRequest{Title: "t", URL: "ftp://example.com"}, wantMsg: "scheme must be http or https"},
		{name: "no host", req: CreateLinkRequest{Title: "t", URL: "https://"}, wantMsg: "must include host"},
		{name: "expiry equals go-live", req: CreateLinkRequest{Title: "t", URL: "https://example.com", ScheduledAt: &later, ExpiresAt: &later}, wantMsg: "expires_at must be after scheduled_at"},
		{name: "expiry before go-live", req: CreateLinkRequest{Title: "t", URL: "https://example.com", ScheduledAt: &later, ExpiresAt: &testNow}, wantMsg: "expires_at must be after scheduled_at"},
		{name: "password too long", req: CreateLinkRequest{Title: "t", URL: "https://example.com", Password: strings.Repeat("p", 73)}, wantMsg: "password too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockRepository{
				createFunc: func(ctx context.Context, link Link) (Link, error) {
					t.Fatal("repository must not be called for invalid input")
					return Link{}, nil
				},
			}, nil)

			_, err := svc.Create(context.Background(), testProfile, tt.req)
			require.Equal(t, errx.Invalid, errx.KindOf(err), "err=%v", err)
			assert.Contains(t, errx.Root(err), tt.wantMsg)
		})
	}
}

func TestServiceCreate_URLForms(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantMsg string
	}{
		{name: "bare host", url: "example.com"},
		{name: "uppercase scheme", url: "HTTPS://example.com/a"},
		{name: "schemeless with embedded url in query", url: "example.com/?next=https://other.com"},
		{name: "schemeless with port", url: "localhost:8080/bio"},
		{name: "javascript scheme", url: "javascript://example.com/%0Aalert(1)", wantMsg: "scheme must be http or https"},
		{name: "scheme without host", url: "http://", wantMsg: "must include host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved Link
			svc := newTestService(&mockRepository{createFunc: capture(&saved)}, nil)

			_, err := svc.Create(context.Background(), testProfile, CreateLinkRequest{Title: "t", URL: tt.url})
			if tt.wantMsg != "" {
				require.Equal(t, errx.Invalid, errx.KindOf(err), "err=%v", err)
				assert.Contains(t, errx.Root(err), tt.wantMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.url, saved.URL, "stored as entered")

			// The click path must be able to follow what was stored.
			parsed, err := url.Parse(NormalizeURL(saved.URL))
			require.NoError(t, err)
			assert.Contains(t, []string{"http", "https"}, strings.ToLower(parsed.Scheme))
			assert.NotEmpty(t, parsed.Host)
		})
	}
}

/***************
 * Update
 ***************/

func TestServiceUpdate(t *testing.T) {
	start := testNow.Add(time.Hour)
	end := testNow.Add(2 * time.Hour)
	linkID := uuid.New()

	existing := func() Link {
		return Link{
			ID:           linkID,
			ProfileID:    testProfile,
			Title:        "Old",
			URL:          "https://old.example.com",
			IsActive:     true,
			ScheduledAt:  &start,
			ExpiresAt:    &end,
			PasswordHash: "old-hash",
		}
	}

	tests := []struct {
		name   string
		req    UpdateLinkRequest
		check  func(t *testing.T, l Link)
		wantOK bool
	}{
		{
			name:   "empty patch keeps everything",
			req:    UpdateLinkRequest{},
			wantOK: true,
			check: func(t *testing.T, l Link) {
				assert.Equal(t, "Old", l.Title)
				assert.Equal(t, "https://old.example.com", l.URL)
				assert.Equal(t, "old-hash", l.PasswordHash)
				assert.NotNil(t, l.ScheduledAt, "schedule dropped")
				assert.NotNil(t, l.ExpiresAt, "schedule dropped")
			},
		},
		{
			name:   "changes title url and active",
			req:    UpdateLinkRequest{Title: ptr("New"), URL: ptr("new.example.com"), IsActive: ptr(false)},
			wantOK: true,
			check: func(t *testing.T, l Link) {
				assert.Equal(t, "New", l.Title)
				assert.Equal(t, "new.example.com", l.URL)
				assert.False(t, l.IsActive)
			},
		},
		{
			name:   "clears schedule and password",
			req:    UpdateLinkRequest{ClearScheduledAt: true, ClearExpiresAt: true, ClearPassword: true},
			wantOK: true,
			check: func(t *testing.T, l Link) {
				assert.Nil(t, l.ScheduledAt)
				assert.Nil(t, l.ExpiresAt)
				assert.Empty(t, l.PasswordHash)
			},
		},
		{
			name:   "replaces password",
			req:    UpdateLinkRequest{Password: ptr("s3cret")},
			wantOK: true,
			check: func(t *testing.T, l Link) {
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte("s3cret")))
			},
		},
		{
			name:   "rejects moving expiry before go-live",
			req:    UpdateLinkRequest{ExpiresAt: ptr(start.Add(-time.Minute))},
			wantOK: false,
		},
		{
			name:   "rejects empty title",
			req:    UpdateLinkRequest{Title: ptr("")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved Link
			svc := newTestService(&mockRepository{
				getByIDFunc: func(ctx context.Context, profileID, id uuid.UUID) (Link, error) {
					require.Equal(t, testProfile, profileID)
					require.Equal(t, linkID, id)
					return existing(), nil
				},
				updateFunc: func(ctx context.Context, link Link) (Link, error) {
					saved = link
					return link, nil
				},
			}, nil)

			_, err := svc.Update(context.Background(), testProfile, linkID, tt.req)
			if !tt.wantOK {
				assert.Equal(t, errx.Invalid, errx.KindOf(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, saved)
		})
	}

	t.Run("missing link", func(t *testing.T) {
		svc := newTestService(&mockRepository{}, nil)
		_, err := svc.Update(context.Background(), testProfile, linkID, UpdateLinkRequest{})
		assert.Equal(t, errx.NotFound, errx.KindOf(err))
	})
}

func TestServiceUpdate_InvertedStoredWindow(t *testing.T) {
	start := testNow.Add(2 * time.Hour)
	end := testNow.Add(time.Hour)
	linkID := uuid.New()

	tests := []struct {
		name   string
		req    UpdateLinkRequest
		wantOK bool
	}{
		{name: "title edit allowed", req: UpdateLinkRequest{Title: ptr("Renamed")}, wantOK: true},
		{name: "toggle active allowed", req: UpdateLinkRequest{IsActive: ptr(false)}, wantOK: true},
		{name: "clearing a bound repairs it", req: UpdateLinkRequest{ClearExpiresAt: true}, wantOK: true},
		{name: "moving go-live keeps it inverted", req: UpdateLinkRequest{ScheduledAt: ptr(start.Add(time.Minute))}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockRepository{
				getByIDFunc: func(ctx context.Context, profileID, id uuid.UUID) (Link, error) {
					return Link{ID: linkID, ProfileID: testProfile, Title: "Old", URL: "https://example.com",
						IsActive: true, ScheduledAt: &start, ExpiresAt: &end}, nil
				},
			}, nil)

			_, err := svc.Update(context.Background(), testProfile, linkID, tt.req)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, errx.Invalid, errx.KindOf(err))
		})
	}
}

/***************
 * Reorder / Delete
 ***************/

func TestServiceReorder(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("passes order to repository and returns list", func(t *testing.T) {
		var got []uuid.UUID
		svc := newTestService(&mockRepository{
			reorderFunc: func(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) error {
				got = ids
				return nil
			},
			listByProfileFunc: func(ctx context.Context, profileID uuid.UUID) ([]Link, error) {
				return []Link{{ID: b, Position: 0}, {ID: a, Position: 1}}, nil
			},
		}, nil)

		list, err := svc.Reorder(context.Background(), testProfile, []uuid.UUID{b, a})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b, a}, got)
		require.Len(t, list, 2)
		assert.Equal(t, b, list[0].ID)
	})

	t.Run("rejects empty and duplicate ids", func(t *testing.T) {
		svc := newTestService(&mockRepository{
			reorderFunc: func(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) error {
				t.Fatal("repository must not be called")
				return nil
			},
		}, nil)

		for _, ids := range [][]uuid.UUID{nil, {a, b, a}} {
			_, err := svc.Reorder(context.Background(), testProfile, ids)
			assert.Equal(t, errx.Invalid, errx.KindOf(err), "Reorder(%v)", ids)
		}
	})
}

func TestServiceDelete(t *testing.T) {
	id := uuid.New()
	svc := newTestService(&mockRepository{
		deleteFunc: func(ctx context.Context, profileID, linkID uuid.UUID) error {
			if linkID != id {
				return errx.E("repo.Delete", errx.NotFound, ErrLinkNotFound)
			}
			return nil
		},
	}, nil)

	require.NoError(t, svc.Delete(context.Background(), testProfile, id))

	err := svc.Delete(context.Background(), testProfile, uuid.New())
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
	assert.Equal(t, "links.service.Delete", errx.OpOf(err))
}

/***************
 * Open (click path)
 ***************/

func TestServiceOpen(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)
	hash := mustHash(t, "open-sesame")

	tests := []struct {
		name       string
		link       Link
		password   string
		wantURL    string
		wantKind   errx.Kind
		wantErr    error
		wantClicks int
	}{
		{
			name:       "live link normalizes url",
			link:       Link{Slug: "abc", URL: "example.com/page", IsActive: true},
			wantURL:    "https://example.com/page",
			wantClicks: 1,
		},
		{
			name:       "embedded url in query stays in query",
			link:       Link{Slug: "abc", URL: "example.com/?next=https://other.com", IsActive: true},
			wantURL:    "https://example.com/?next=https://other.com",
			wantClicks: 1,
		},
		{
			name:       "keeps existing scheme",
			link:       Link{Slug: "abc", URL: "http://example.com", IsActive: true},
			wantURL:    "http://example.com",
			wantClicks: 1,
		},
		{
			name:     "inactive is not found",
			link:     Link{Slug: "abc", URL: "https://example.com", IsActive: false},
			wantKind: errx.NotFound,
			wantErr:  ErrLinkNotFound,
		},
		{
			name:     "scheduled is forbidden",
			link:     Link{Slug: "abc", URL: "https://example.com", IsActive: true, ScheduledAt: &future},
			wantKind: errx.Forbidden,
			wantErr:  ErrLinkNotLive,
		},
		{
			name:     "expired is gone",
			link:     Link{Slug: "abc", URL: "https://example.com", IsActive: true, ExpiresAt: &past},
			wantKind: errx.Gone,
			wantErr:  ErrLinkExpired,
		},
		{
			name:     "expired wins over scheduled",
			link:     Link{Slug: "abc", URL: "https://example.com", IsActive: true, ScheduledAt: &future, ExpiresAt: &past},
			wantKind: errx.Gone,
			wantErr:  ErrLinkExpired,
		},
		{
			name:     "expiry at exactly now is gone",
			link:     Link{Slug: "abc", URL: "https://example.com", IsActive: true, ExpiresAt: &testNow},
			wantKind: errx.Gone,
			wantErr:  ErrLinkExpired,
		},
		{
			name:       "go-live at exactly now is open",
			link:       Link{Slug: "abc", URL: "https://example.com", IsActive: true, ScheduledAt: &testNow},
			wantURL:    "https://example.com",
			wantClicks: 1,
		},
		{
			name:     "protected without password",
			link:     Link{Slug: "abc", URL: "https://example.com", IsActive: true, PasswordHash: hash},
			wantKind: errx.Unauthorized,
			wantErr:  ErrPasswordRequired,
		},
		{
			name:     "protected with wrong password",
			link:     Link{Slug: "abc", URL: "https://example.com", IsActive: true, PasswordHash: hash},
			password: "guess",
			wantKind: errx.Unauthorized,
			wantErr:  ErrWrongPassword,
		},
		{
			name:       "protected with right password",
			link:       Link{Slug: "abc", URL: "https://example.com", IsActive: true, PasswordHash: hash},
			password:   "open-sesame",
			wantURL:    "https://example.com",
			wantClicks: 1,
		},
		{
			name:     "schedule checked before password",
			link:     Link{Slug: "abc", URL: "https://example.com", IsActive: true, PasswordHash: hash, ScheduledAt: &future},
			password: "open-sesame",
			wantKind: errx.Forbidden,
			wantErr:  ErrLinkNotLive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clicks := 0
			tt.link.ID = uuid.New()
			svc := newTestService(&mockRepository{
				getBySlugFunc: func(ctx context.Context, slug string) (Link, error) {
					return tt.link, nil
				},
				incrementClicksFunc: func(ctx context.Context, id uuid.UUID) error {
					assert.Equal(t, tt.link.ID, id)
					clicks++
					return nil
				},
			}, nil)

			got, err := svc.Open(context.Background(), "abc", tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantKind, errx.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, got)
			}
			assert.Equal(t, tt.wantClicks, clicks)
		})
	}

	t.Run("unknown slug", func(t *testing.T) {
		svc := newTestService(&mockRepository{}, nil)
		_, err := svc.Open(context.Background(), "nope", "")
		assert.Equal(t, errx.NotFound, errx.KindOf(err))
	})

	t.Run("empty slug", func(t *testing.T) {
		svc := newTestService(&mockRepository{}, nil)
		_, err := svc.Open(context.Background(), "", "")
		assert.Equal(t, errx.Invalid, errx.KindOf(err))
	})

	t.Run("click counter failure surfaces", func(t *testing.T) {
		svc := newTestService(&mockRepository{
			getBySlugFunc: func(ctx context.Context, slug string) (Link, error) {
				return Link{ID: uuid.New(), URL: "https://example.com", IsActive: true}, nil
			},
			incrementClicksFunc: func(ctx context.Context, id uuid.UUID) error {
				return errx.E("repo.IncrementClicks", errx.Unavailable, errors.New("db down"))
			},
		}, nil)

		_, err := svc.Open(context.Background(), "abc", "")
		assert.Equal(t, errx.Unavailable, errx.KindOf(err))
	})

	t.Run("clock is read per call", func(t *testing.T) {
		now := testNow
		svc := newTestService(&mockRepository{
			getBySlugFunc: func(ctx context.Context, slug string) (Link, error) {
				return Link{ID: uuid.New(), URL: "https://example.com", IsActive: true, ScheduledAt: &future}, nil
			},
		}, &ServiceConfig{Now: func() time.Time { return now }})

		_, err := svc.Open(context.Background(), "abc", "")
		require.ErrorIs(t, err, ErrLinkNotLive, "before go-live")

		now = future
		_, err = svc.Open(context.Background(), "abc", "")
		require.NoError(t, err, "at go-live")
	})
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"example.com":                         "https://example.com",
		"  example.com/a?b=c  ":               "https://example.com/a?b=c",
		"example.com/?next=https://other.com": "https://example.com/?next=https://other.com",
		"http://example.com":                  "http://example.com",
		"HTTPS://Example.com":                 "HTTPS://Example.com",
		"":                                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeURL(in), "NormalizeURL(%q)", in)
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(&mockRepository{}, nil).(*service)
	assert.Equal(t, DefaultSlugLength, svc.slugLength)
	assert.Equal(t, DefaultSlugMaxRetries, svc.slugMaxRetries)
	assert.Equal(t, bcrypt.DefaultCost, svc.bcryptCost)
	assert.NotNil(t, svc.now, "clock not defaulted")
	assert.NotNil(t, svc.slugGenerator, "slug generator not defaulted")

	svc = NewService(&mockRepository{}, &ServiceConfig{SlugLength: 2}).(*service)
	assert.Equal(t, DefaultSlugLength, svc.slugLength, "below minimum falls back to default")
}
