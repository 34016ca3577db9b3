package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no active user matches the lookup.
var ErrNotFound = errors.New("user not found")

type Repository interface {
	// GetActiveByID returns the user with the given ID whose account has
	// not been soft-deleted. Returns ErrNotFound otherwise.
	GetActiveByID(ctx context.Context, id uuid.UUID) (*User, error)
}
