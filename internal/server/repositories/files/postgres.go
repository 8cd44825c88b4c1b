package files

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

const fileColumns = `id, user_id, original_name, stored_name, mime_type, file_size, malware_status, malicious_count, created_at, deleting_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner, extra ...any) (*models.StoredFile, error) {
	var (
		f        models.StoredFile
		status   string
		deleting sql.NullTime
	)
	dest := append([]any{&f.ID, &f.OwnerID, &f.OriginalName, &f.StorageName, &f.ContentType,
		&f.Size, &status, &f.EngineHits, &f.CreatedAt, &deleting}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	f.Status = models.MalwareStatus(status)
	if deleting.Valid {
		t := deleting.Time
		f.DeletingAt = &t
	}
	return &f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.StoredFile) error {
	query :=
		`INSERT INTO secure_files (id, user_id, original_name, stored_name, mime_type, file_size, malware_status, malicious_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.OwnerID, f.OriginalName, f.StorageName, f.ContentType, f.Size, string(f.Status), f.EngineHits, f.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetForOwner(ctx context.Context, ownerID, id string) (*models.StoredFile, error) {
	query :=
		`SELECT ` + fileColumns + ` FROM secure_files
		 WHERE id = $1 AND user_id = $2 AND deleting_at IS NULL`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.StoredFile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.StoredFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.StoredFile, error) {
	return r.list(ctx,
		`SELECT `+fileColumns+` FROM secure_files
		 WHERE user_id = $1 AND deleting_at IS NULL
		 ORDER BY created_at DESC`, ownerID)
}

func (r *PostgresRepository) ListAllByOwner(ctx context.Context, ownerID string) ([]*models.StoredFile, error) {
	return r.list(ctx, `SELECT `+fileColumns+` FROM secure_files WHERE user_id = $1`, ownerID)
}

func (r *PostgresRepository) ListDeleting(ctx context.Context) ([]*models.StoredFile, error) {
	return r.list(ctx, `SELECT `+fileColumns+` FROM secure_files WHERE deleting_at IS NOT NULL`)
}

func (r *PostgresRepository) MarkDeleting(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE secure_files SET deleting_at = $2 WHERE id = $1 AND deleting_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM secure_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) ListMalicious(ctx context.Context) ([]*models.MaliciousFile, error) {
	query :=
		`SELECT sf.id, sf.user_id, sf.original_name, sf.stored_name, sf.mime_type, sf.file_size,
		        sf.malware_status, sf.malicious_count, sf.created_at, sf.deleting_at, u.email
		 FROM secure_files sf
		 JOIN users u ON sf.user_id = u.id
		 WHERE sf.malware_status = 'malicious'
		 ORDER BY sf.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.MaliciousFile
	for rows.Next() {
		var email string
		f, err := scanFile(rows, &email)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, &models.MaliciousFile{StoredFile: *f, OwnerEmail: email})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, status models.MalwareStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM secure_files WHERE malware_status = $1`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
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
