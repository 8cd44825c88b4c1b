package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/filex"
)

// FSStore keeps blobs under root/vault and root/quarantine.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	for _, a := range []Area{AreaVault, AreaQuarantine} {
		if _, err := filex.EnsureSubDir(abs, string(a)); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
		}
	}
	return &FSStore{root: abs}, nil
}

func (s *FSStore) path(area Area, name string) string {
	return filepath.Join(s.root, string(area), name)
}

func (s *FSStore) Commit(ctx context.Context, area Area, name, localPath string) error {
	if err := checkKey(area, name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := s.path(area, name)
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s/%s", common.ErrAlreadyExists, area, name)
	}

	err := os.Rename(localPath, dst)
	if errors.Is(err, syscall.EXDEV) {
		err = copyAcross(dst, localPath)
	}
	if err != nil {
		return fmt.Errorf("%w: commit %s/%s: %v", common.ErrStorageUnavailable, area, name, err)
	}
	return syncDir(filepath.Dir(dst))
}

// copyAcross handles a staging dir on another filesystem.
func copyAcross(dst, src string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	defer d.Close()
	// Some filesystems reject fsync on directories; the rename itself
	// already happened.
	_ = d.Sync()
	return nil
}

func (s *FSStore) Open(_ context.Context, area Area, name string) (io.ReadCloser, error) {
	if err := checkKey(area, name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(area, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return f, nil
}

func (s *FSStore) Delete(_ context.Context, area Area, name string) error {
	if err := checkKey(area, name); err != nil {
		return err
	}
	if err := os.Remove(s.path(area, name)); err != nil {
		if os.IsNotExist(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}
