package accounts

import (
	"context"
	"time"

	"github.com/SakshiM22/secure-vault/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. A duplicate email yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, acc *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// GetByEmailForUpdate reads the account and row-locks it for the rest of
	// the surrounding transaction.
	GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	UpdateLock(ctx context.Context, id string, state models.LockState, failedAttempts int, lockTime *time.Time) error
	// SetRole changes the role and bumps the token version.
	SetRole(ctx context.Context, id string, role models.Role) (int64, error)
	BumpTokenVersion(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (total int64, locked int64, err error)
}
