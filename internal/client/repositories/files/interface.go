package files

import (
	"context"

	"github.com/SakshiM22/secure-vault/internal/client/models"
)

type Repository interface {
	// ReplaceAll drops the cached listing and stores list in its place.
	ReplaceAll(ctx context.Context, list []*models.File) error

	// List returns the cached listing, newest first.
	List(ctx context.Context) ([]*models.File, error)

	Delete(ctx context.Context, id string) error

	Clear(ctx context.Context) error
}
