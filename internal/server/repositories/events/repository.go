package events

import (
	"context"
	"time"

	"github.com/SakshiM22/secure-vault/internal/server/models"
)

// Repository is the durable, append-only audit log.
type Repository interface {
	Append(ctx context.Context, ev *models.AuditEvent) error
	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]models.AuditEvent, error)
	// Count counts events with the given action. An empty outcome matches
	// any outcome; a zero since matches any time.
	Count(ctx context.Context, action string, outcome models.Outcome, since time.Time) (int64, error)
	FailedLoginsByEmail(ctx context.Context, moreThan int64) ([]models.EmailCount, error)
	FailedLoginsByAddr(ctx context.Context, moreThan int64) ([]models.AddrCount, error)
	RecentLocks(ctx context.Context, limit int) ([]models.LockRecord, error)
}
