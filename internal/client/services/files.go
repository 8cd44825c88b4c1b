package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/client/client"
	"github.com/SakshiM22/secure-vault/internal/client/models"
	"github.com/SakshiM22/secure-vault/internal/client/repositories/files"
)

const defaultContentType = "application/octet-stream"

// FileService moves files between the local disk and the vault.
type FileService interface {
	Upload(ctx context.Context, path string) (*api.UploadResponse, error)
	// List returns the remote listing. When the server cannot be reached
	// it falls back to the last listing seen and reports cached=true.
	List(ctx context.Context) (list []*models.File, cached bool, err error)
	Get(ctx context.Context, id, dest string) (string, error)
	Preview(ctx context.Context, id string, w io.Writer) (*api.DownloadHeader, error)
	Remove(ctx context.Context, id string) error
}

type fileService struct {
	client client.Client
	db     *sql.DB
}

func NewFileService(client client.Client, db *sql.DB) FileService {
	return &fileService{client: client, db: db}
}

func (s *fileService) cache() files.Repository {
	return files.NewSQLiteRepository(s.db)
}

func contentTypeOf(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return defaultContentType
}

func (s *fileService) Upload(ctx context.Context, path string) (*api.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", client.ErrInvalidInput, path)
	}

	return s.client.Upload(ctx, filepath.Base(path), contentTypeOf(path), info.Size(), f)
}

func (s *fileService) List(ctx context.Context) ([]*models.File, bool, error) {
	remote, err := s.client.ListFiles(ctx)
	if errors.Is(err, client.ErrUnavailable) {
		list, cerr := s.cache().List(ctx)
		if cerr != nil {
			return nil, false, errors.Join(err, cerr)
		}
		return list, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	list := make([]*models.File, 0, len(remote))
	for _, f := range remote {
		list = append(list, &models.File{
			ID:          f.ID,
			Name:        f.Name,
			ContentType: f.ContentType,
			Size:        f.Size,
			Status:      f.Status,
			CreatedAt:   f.CreatedAt,
		})
	}
	if err := s.cache().ReplaceAll(ctx, list); err != nil {
		return nil, false, fmt.Errorf("listing cache: %w", err)
	}
	return list, false, nil
}

// Get downloads a file. When dest is an existing directory the file keeps
// its stored name inside it. The result only appears at its final path
// once the whole body arrived.
func (s *fileService) Get(ctx context.Context, id, dest string) (string, error) {
	dir, final := dest, ""
	if info, err := os.Stat(dest); err != nil || !info.IsDir() {
		dir, final = filepath.Dir(dest), dest
	}

	tmp, err := os.CreateTemp(dir, ".vault-download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	header, err := s.client.Download(ctx, id, false, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	if final == "" {
		name := filepath.Base(header.Name)
		if name == "." || name == string(filepath.Separator) {
			name = id
		}
		final = filepath.Join(dir, name)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", err
	}
	return final, nil
}

func (s *fileService) Preview(ctx context.Context, id string, w io.Writer) (*api.DownloadHeader, error) {
	return s.client.Download(ctx, id, true, w)
}

func (s *fileService) Remove(ctx context.Context, id string) error {
	if err := s.client.DeleteFile(ctx, id); err != nil {
		return err
	}
	return s.cache().Delete(ctx, id)
}
