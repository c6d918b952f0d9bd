// Package admin serves the scheduled-links dashboard and link moderation.
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkinbio/internal/errx"
	"github.com/sundayezeilo/linkinbio/internal/lifecycle"
	"github.com/sundayezeilo/linkinbio/internal/links"
)

// Store is the part of the link store the dashboard needs.
type Store interface {
	ListScheduled(ctx context.Context) ([]links.ScheduledLink, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (links.Link, error)
}

// Row is one dashboard line.
type Row struct {
	LinkID             uuid.UUID
	ProfileID          uuid.UUID
	Username           string
	Title              string
	URL                string
	IsActive           bool
	ScheduledAt        *time.Time
	ExpiresAt          *time.Time
	ScheduledAtDisplay string
	ExpiresAtDisplay   string
	Resolution         lifecycle.Resolution
}

// Summary counts links per filter bucket. Buckets overlap: a live link is
// counted in All and Active.
type Summary struct {
	All       int
	Scheduled int
	Expired   int
	Active    int
}

// Dashboard is the filtered listing plus counts over the unfiltered set.
type Dashboard struct {
	Filter      lifecycle.Filter
	EvaluatedAt time.Time
	Rows        []Row
	Summary     Summary
}

// Service implements the admin operations.
type Service struct {
	store    Store
	location *time.Location
	now      func() time.Time
}

// Config holds configuration for the service.
type Config struct {
	Location *time.Location
	Now      func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{store: store, location: cfg.Location, now: cfg.Now}
}

// ScheduledLinks lists links that have a go-live or expiry time, classified
// once against a single evaluation instant.
func (s *Service) ScheduledLinks(ctx context.Context, filter lifecycle.Filter) (Dashboard, error) {
	const op = "admin.service.ScheduledLinks"

	list, err := s.store.ListScheduled(ctx)
	if err != nil {
		return Dashboard{}, errx.Wrap(op, err)
	}

	now := s.now()
	d := Dashboard{
		Filter:      filter,
		EvaluatedAt: now,
		Rows:        make([]Row, 0, len(list)),
	}

	for _, l := range list {
		res := lifecycle.Resolve(l.Schedule(), now)
		d.Summary.add(res)
		if !filter.Matches(res) {
			continue
		}
		d.Rows = append(d.Rows, Row{
			LinkID:             l.ID,
			ProfileID:          l.ProfileID,
			Username:           l.Username,
			Title:              l.Title,
			URL:                l.URL,
			IsActive:           l.IsActive,
			ScheduledAt:        l.ScheduledAt,
			ExpiresAt:          l.ExpiresAt,
			ScheduledAtDisplay: lifecycle.FormatOptional(l.ScheduledAt, s.location),
			ExpiresAtDisplay:   lifecycle.FormatOptional(l.ExpiresAt, s.location),
			Resolution:         res,
		})
	}

	return d, nil
}

// SetLinkActive switches any user's link on or off.
func (s *Service) SetLinkActive(ctx context.Context, id uuid.UUID, active bool) (links.Link, error) {
	const op = "admin.service.SetLinkActive"

	l, err := s.store.SetActive(ctx, id, active)
	if err != nil {
		return links.Link{}, errx.Wrap(op, err)
	}
	return l, nil
}

func (s *Summary) add(res lifecycle.Resolution) {
	for _, f := range lifecycle.Filters {
		if !f.Matches(res) {
			continue
		}
		switch f {
		case lifecycle.FilterAll:
			s.All++
		case lifecycle.FilterScheduled:
			s.Scheduled++
		case lifecycle.FilterExpired:
			s.Expired++
		case lifecycle.FilterActive:
			s.Active++
		}
	}
}
