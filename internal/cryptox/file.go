package cryptox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SealFile encrypts srcPath into dstPath.
func SealFile(ctx context.Context, dstPath, srcPath string, key []byte) error {
	return transformFile(ctx, dstPath, srcPath, key, Seal)
}

// OpenFile decrypts srcPath into dstPath. dstPath only appears once the
// whole envelope has authenticated.
func OpenFile(ctx context.Context, dstPath, srcPath string, key []byte) error {
	return transformFile(ctx, dstPath, srcPath, key, Open)
}

type streamFunc func(ctx context.Context, dst io.Writer, src io.Reader, key []byte) error

// transformFile runs fn into a temporary sibling of dstPath, syncs it and
// renames it into place. The temporary file is removed on every failure.
func transformFile(ctx context.Context, dstPath, srcPath string, key []byte, fn streamFunc) (err error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), "."+filepath.Base(dstPath)+".part-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = fn(ctx, tmp, in, key); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmpName, dstPath); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
