package links

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists links. Reads and writes scoped to an owner take the
// profile ID so one user can never touch another user's rows.
type Repository interface {
	// Create inserts link at the end of its profile's display order.
	Create(ctx context.Context, link Link) (Link, error)
	GetByID(ctx context.Context, profileID, id uuid.UUID) (Link, error)
	GetBySlug(ctx context.Context, slug string) (Link, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]Link, error)
	// ListScheduled returns every link with scheduled_at or expires_at set.
	ListScheduled(ctx context.Context) ([]ScheduledLink, error)
	Update(ctx context.Context, link Link) (Link, error)
	Delete(ctx context.Context, profileID, id uuid.UUID) error
	// Reorder assigns positions 0..n-1 following ids. ids must name every
	// link of the profile exactly once.
	Reorder(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) error
	IncrementClicks(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Link, error)
}
