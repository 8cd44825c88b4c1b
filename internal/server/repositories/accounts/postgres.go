package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/dbx"
	"github.com/SakshiM22/secure-vault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, password_hash, role, lock_state, failed_attempts, lock_time, token_version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc      models.Account
		role     string
		state    string
		lockTime sql.NullTime
	)
	err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &role, &state,
		&acc.FailedAttempts, &lockTime, &acc.TokenVersion, &acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	acc.Role = models.Role(role)
	acc.LockState = models.LockState(state)
	if lockTime.Valid {
		t := lockTime.Time
		acc.LockTime = &t
	}
	return &acc, nil
}

func (r *PostgresRepository) Create(ctx context.Context, acc *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO users (id, email, password_hash, role, lock_state, failed_attempts, token_version, created_at)
		 VALUES ($1, $2, $3, $4, $5, 0, 0, $6)`

	_, err := r.db.ExecContext(ctx, query,
		acc.ID, acc.Email, acc.PasswordHash, string(acc.Role), string(models.LockActive), acc.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	acc.LockState = models.LockActive
	acc.FailedAttempts = 0
	acc.LockTime = nil
	acc.TokenVersion = 0
	return acc, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acc, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email = $1 FOR UPDATE`, email)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateLock(ctx context.Context, id string, state models.LockState, failedAttempts int, lockTime *time.Time) error {
	query :=
		`UPDATE users SET lock_state = $2, failed_attempts = $3, lock_time = $4
		 WHERE id = $1`

	var lt sql.NullTime
	if lockTime != nil {
		lt = sql.NullTime{Time: *lockTime, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, id, string(state), failedAttempts, lt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) SetRole(ctx context.Context, id string, role models.Role) (int64, error) {
	query :=
		`UPDATE users SET role = $2, token_version = token_version + 1
		 WHERE id = $1
		 RETURNING token_version`

	return r.returningVersion(ctx, query, id, string(role))
}

func (r *PostgresRepository) BumpTokenVersion(ctx context.Context, id string) (int64, error) {
	query :=
		`UPDATE users SET token_version = token_version + 1
		 WHERE id = $1
		 RETURNING token_version`

	return r.returningVersion(ctx, query, id)
}

func (r *PostgresRepository) returningVersion(ctx context.Context, query string, args ...any) (int64, error) {
	var v int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, int64, error) {
	query :=
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE lock_state <> 'active')
		 FROM users`

	var total, locked int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&total, &locked); err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return total, locked, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
