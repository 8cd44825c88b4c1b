package files

import (
	"context"
	"fmt"

	"github.com/SakshiM22/secure-vault/internal/client/models"
	"github.com/SakshiM22/secure-vault/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ReplaceAll is not atomic on its own; callers wanting atomicity pass a
// *sql.Tx as db.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, list []*models.File) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}

	query := `INSERT INTO files (id, name, content_type, size, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	for _, f := range list {
		if _, err := r.db.ExecContext(ctx, query, f.ID, f.Name, f.ContentType, f.Size, f.Status, f.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert file %s: %w", f.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.File, error) {
	query := `SELECT id, name, content_type, size, status, created_at FROM files ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error selecting files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.Name, &f.ContentType, &f.Size, &f.Status, &f.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}
	return nil
}
