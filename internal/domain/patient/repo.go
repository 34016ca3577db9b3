package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no patient record matches the lookup.
var ErrNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error)

	// List returns one page of records plus the total count for the same
	// predicate, both read from a single consistent snapshot.
	List(ctx context.Context, q ListQuery) ([]*Patient, int, error)

	// Stats computes all aggregates from a single consistent snapshot.
	Stats(ctx context.Context) (*Stats, error)

	// Update applies the non-nil fields of patch and returns the updated
	// record. Returns ErrNotFound when the id does not exist.
	Update(ctx context.Context, id uuid.UUID, patch UpdateInput) (*Patient, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
