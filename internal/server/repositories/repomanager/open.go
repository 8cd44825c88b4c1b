package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SakshiM22/secure-vault/internal/common"
)

// MemoryDSN selects the in-process store.
const MemoryDSN = "memory"

var sqlOpen = sql.Open

// Open returns a manager for dsn: the in-memory store for "" or "memory",
// otherwise a pgx-backed PostgreSQL pool.
func Open(ctx context.Context, dsn string) (RepositoryManager, error) {
	if dsn == "" || dsn == MemoryDSN {
		return NewMemoryRepositoryManager(), nil
	}

	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", common.ErrStorageUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", common.ErrStorageUnavailable, err)
	}
	return NewPostgresRepositoryManager(db), nil
}
