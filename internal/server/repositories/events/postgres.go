package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SakshiM22/secure-vault/internal/dbx"
	"github.com/SakshiM22/secure-vault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, ev *models.AuditEvent) error {
	query :=
		`INSERT INTO audit_logs (user_email, action, status, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`

	var email sql.NullString
	if ev.ActorEmail != nil {
		email = sql.NullString{String: *ev.ActorEmail, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		email, ev.Action, string(ev.Outcome), ev.OriginAddr, ev.CreatedAt).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	query :=
		`SELECT id, user_email, action, status, ip_address, created_at
		 FROM audit_logs
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var (
			ev      models.AuditEvent
			email   sql.NullString
			outcome string
		)
		if err := rows.Scan(&ev.ID, &email, &ev.Action, &outcome, &ev.OriginAddr, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if email.Valid {
			e := email.String
			ev.ActorEmail = &e
		}
		ev.Outcome = models.Outcome(outcome)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Count(ctx context.Context, action string, outcome models.Outcome, since time.Time) (int64, error) {
	query :=
		`SELECT COUNT(*) FROM audit_logs
		 WHERE action = $1 AND ($2 = '' OR status = $2) AND created_at >= $3`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, action, string(outcome), since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) FailedLoginsByEmail(ctx context.Context, moreThan int64) ([]models.EmailCount, error) {
	query :=
		`SELECT user_email, COUNT(*) AS failed_count
		 FROM audit_logs
		 WHERE action = 'login' AND status = 'failed' AND user_email IS NOT NULL
		 GROUP BY user_email
		 HAVING COUNT(*) > $1
		 ORDER BY failed_count DESC`

	rows, err := r.db.QueryContext(ctx, query, moreThan)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.EmailCount
	for rows.Next() {
		var c models.EmailCount
		if err := rows.Scan(&c.Email, &c.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) FailedLoginsByAddr(ctx context.Context, moreThan int64) ([]models.AddrCount, error) {
	query :=
		`SELECT ip_address, COUNT(*) AS attempts
		 FROM audit_logs
		 WHERE action = 'login' AND status = 'failed'
		 GROUP BY ip_address
		 HAVING COUNT(*) > $1
		 ORDER BY attempts DESC`

	rows, err := r.db.QueryContext(ctx, query, moreThan)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.AddrCount
	for rows.Next() {
		var c models.AddrCount
		if err := rows.Scan(&c.Addr, &c.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) RecentLocks(ctx context.Context, limit int) ([]models.LockRecord, error) {
	query :=
		`SELECT COALESCE(user_email, ''), created_at
		 FROM audit_logs
		 WHERE action = 'account_lock'
		 ORDER BY created_at DESC
		 LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.LockRecord
	for rows.Next() {
		var l models.LockRecord
		if err := rows.Scan(&l.Email, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
