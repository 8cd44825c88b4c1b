package files

import (
	"context"
	"time"

	"github.com/SakshiM22/secure-vault/internal/server/models"
)

// Repository persists StoredFile rows. Reads scoped to an owner never
// return rows that are pending deletion.
type Repository interface {
	Create(ctx context.Context, f *models.StoredFile) error
	GetForOwner(ctx context.Context, ownerID, id string) (*models.StoredFile, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.StoredFile, error)
	// ListAllByOwner includes rows pending deletion.
	ListAllByOwner(ctx context.Context, ownerID string) ([]*models.StoredFile, error)
	MarkDeleting(ctx context.Context, id string, at time.Time) error
	ListDeleting(ctx context.Context) ([]*models.StoredFile, error)
	Delete(ctx context.Context, id string) error
	ListMalicious(ctx context.Context) ([]*models.MaliciousFile, error)
	CountByStatus(ctx context.Context, status models.MalwareStatus) (int64, error)
}
