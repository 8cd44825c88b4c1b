package repomanager

import (
	"context"

	"github.com/SakshiM22/secure-vault/internal/server/repositories/accounts"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/events"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/files"
)

// RepositoryManager vends repositories bound to either the base connection
// or, inside WithTx, to a single transaction.
type RepositoryManager interface {
	Accounts() accounts.Repository
	Files() files.Repository
	Events() events.Repository

	// WithTx runs fn against a transactional manager. Nested calls join the
	// outer transaction. fn must only use the manager it is given.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx RepositoryManager) error) error

	RunMigrations(ctx context.Context) error
	Close() error
}
