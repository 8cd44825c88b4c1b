// Package catalog is the owner-scoped view of stored files: listing,
// resolving, decrypting for read and two-phase removal.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SakshiM22/secure-vault/internal/clockx"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/cryptox"
	"github.com/SakshiM22/secure-vault/internal/filex"
	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/audit"
	"github.com/SakshiM22/secure-vault/internal/server/blobstore"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultCryptoTimeout = 5 * time.Minute
	DefaultStaleAfter    = time.Hour
)

type Mode int

const (
	ModeDownload Mode = iota + 1
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "download"
}

func (m Mode) action() string {
	if m == ModePreview {
		return models.ActionFilePreview
	}
	return models.ActionFileDownload
}

type Config struct {
	WorkDir       string
	CryptoTimeout time.Duration
	// StaleAfter is the age after which Reconcile removes leftover work files.
	StaleAfter time.Duration
}

type Catalog struct {
	repos repomanager.RepositoryManager
	blobs blobstore.Store
	bus   *audit.Bus
	key   []byte
	clock clockx.Clock
	log   logging.Logger
	cfg   Config
}

func New(cfg Config, repos repomanager.RepositoryManager, blobs blobstore.Store, bus *audit.Bus,
	key []byte, clock clockx.Clock, log logging.Logger) (*Catalog, error) {

	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("%w: file key must be %d bytes", common.ErrConfiguration, cryptox.KeySize)
	}
	if cfg.CryptoTimeout <= 0 {
		cfg.CryptoTimeout = DefaultCryptoTimeout
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	dir, err := filex.EnsureDir(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: work dir: %v", common.ErrConfiguration, err)
	}
	cfg.WorkDir = dir

	return &Catalog{repos: repos, blobs: blobs, bus: bus, key: key, clock: clock, log: log, cfg: cfg}, nil
}

// List returns the account's files, newest first.
func (c *Catalog) List(ctx context.Context, acc *models.Account) ([]*models.StoredFile, error) {
	list, err := c.repos.Files().ListByOwner(ctx, acc.ID)
	if err != nil {
		c.log.Error(ctx, "list files", "owner", acc.ID, "error", err)
		return nil, common.ErrInternal
	}
	return list, nil
}

// Resolve returns the file if acc owns it. Missing, malformed and foreign
// ids all yield common.ErrAccessDenied.
func (c *Catalog) Resolve(ctx context.Context, acc *models.Account, id string) (*models.StoredFile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrAccessDenied
	}
	f, err := c.repos.Files().GetForOwner(ctx, acc.ID, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrAccessDenied
		}
		c.log.Error(ctx, "resolve file", "owner", acc.ID, "file", id, "error", err)
		return nil, common.ErrInternal
	}
	return f, nil
}

// Artifact is a decrypted copy of a stored file in the work directory.
// Close removes it.
type Artifact struct {
	File *models.StoredFile
	Mode Mode
	Size int64

	f    *os.File
	once sync.Once
	err  error
}

func (a *Artifact) Read(p []byte) (int, error) { return a.f.Read(p) }

func (a *Artifact) Close() error {
	a.once.Do(func() {
		a.err = a.f.Close()
		if err := os.Remove(a.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) && a.err == nil {
			a.err = err
		}
	})
	return a.err
}

// RetrieveForRead decrypts the file into a transient artifact. Malicious
// files yield common.ErrBlocked without touching their bytes.
func (c *Catalog) RetrieveForRead(ctx context.Context, acc *models.Account, id string, mode Mode, origin string) (*Artifact, error) {
	action := mode.action()

	f, err := c.Resolve(ctx, acc, id)
	if err != nil {
		outcome := models.OutcomeFailed
		if !errors.Is(err, common.ErrAccessDenied) {
			outcome = models.OutcomeError
		}
		c.bus.Emit(ctx, acc.Email, action, outcome, origin)
		return nil, err
	}
	if f.Status != models.MalwareSafe {
		c.bus.Emit(ctx, acc.Email, action, models.OutcomeBlocked, origin)
		return nil, common.ErrBlocked
	}

	art, err := c.decrypt(ctx, f, mode)
	if err != nil {
		c.log.Error(ctx, "retrieve file", "owner", acc.ID, "file", f.ID, "mode", mode.String(), "error", err)
		c.bus.Emit(ctx, acc.Email, action, models.OutcomeError, origin)
		if errors.Is(err, common.ErrTimeout) {
			return nil, common.ErrTimeout
		}
		return nil, common.ErrInternal
	}

	c.bus.Emit(ctx, acc.Email, action, models.OutcomeSuccess, origin)
	return art, nil
}

// decrypt copies the sealed blob next to the work files and opens it into
// a plaintext sibling. Nothing is left behind on failure.
func (c *Catalog) decrypt(ctx context.Context, f *models.StoredFile, mode Mode) (*Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CryptoTimeout)
	defer cancel()

	sealed, err := c.fetch(ctx, f.StorageName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(sealed) }()

	plain := filepath.Join(c.cfg.WorkDir, "read-"+uuid.NewString())
	if err := cryptox.OpenFile(ctx, plain, sealed, c.key); err != nil {
		return nil, err
	}

	fh, err := os.Open(plain)
	if err != nil {
		_ = os.Remove(plain)
		return nil, err
	}
	st, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		_ = os.Remove(plain)
		return nil, err
	}
	return &Artifact{File: f, Mode: mode, Size: st.Size(), f: fh}, nil
}

func (c *Catalog) fetch(ctx context.Context, name string) (string, error) {
	rc, err := c.blobs.Open(ctx, blobstore.AreaVault, name)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.log.Warn(ctx, "vault blob missing", "name", name)
		}
		return "", fmt.Errorf("open blob: %w", err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(c.cfg.WorkDir, "fetch-*")
	if err != nil {
		return "", err
	}
	_, err = io.Copy(tmp, rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("fetch blob: %w", err)
	}
	return tmp.Name(), nil
}

// Remove deletes a file in two phases: the row is marked, the blobs are
// removed, then the row goes. A crash in between is finished by Reconcile.
func (c *Catalog) Remove(ctx context.Context, acc *models.Account, id, origin string) error {
	f, err := c.Resolve(ctx, acc, id)
	if err != nil {
		outcome := models.OutcomeFailed
		if !errors.Is(err, common.ErrAccessDenied) {
			outcome = models.OutcomeError
		}
		c.bus.Emit(ctx, acc.Email, models.ActionFileDelete, outcome, origin)
		return err
	}

	if err := c.remove(ctx, f); err != nil {
		c.log.Error(ctx, "remove file", "owner", acc.ID, "file", f.ID, "error", err)
		c.bus.Emit(ctx, acc.Email, models.ActionFileDelete, models.OutcomeError, origin)
		return common.ErrInternal
	}

	c.bus.Emit(ctx, acc.Email, models.ActionFileDelete, models.OutcomeSuccess, origin)
	return nil
}

// PurgeOwner removes every file of ownerID, including rows already marked
// for deletion. It emits no audit events.
func (c *Catalog) PurgeOwner(ctx context.Context, ownerID string) (int, error) {
	list, err := c.repos.Files().ListAllByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	for i, f := range list {
		if err := c.remove(ctx, f); err != nil {
			return i, fmt.Errorf("purge %s: %w", f.ID, err)
		}
	}
	return len(list), nil
}

func (c *Catalog) remove(ctx context.Context, f *models.StoredFile) error {
	if f.DeletingAt == nil {
		if err := c.repos.Files().MarkDeleting(ctx, f.ID, c.clock.Now()); err != nil && !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("mark deleting: %w", err)
		}
	}
	return c.finish(ctx, f)
}

// finish removes the blobs of a row already marked deleting, then the row.
func (c *Catalog) finish(ctx context.Context, f *models.StoredFile) error {
	primary, other := blobstore.AreaVault, blobstore.AreaQuarantine
	if f.Status == models.MalwareMalicious {
		primary, other = other, primary
	}

	if err := c.blobs.Delete(ctx, primary, f.StorageName); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("delete %s blob: %w", primary, err)
		}
		c.log.Warn(ctx, "blob already missing", "file", f.ID, "area", string(primary), "name", f.StorageName)
	}
	if err := c.blobs.Delete(ctx, other, f.StorageName); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("delete %s blob: %w", other, err)
	}

	if err := c.repos.Files().Delete(ctx, f.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}

type ReconcileReport struct {
	Files     int
	TempFiles int
}

// Reconcile finishes deletions interrupted by a crash and clears stale work
// files. It keeps going past individual failures and returns the first.
func (c *Catalog) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var rep ReconcileReport

	pending, err := c.repos.Files().ListDeleting(ctx)
	if err != nil {
		return rep, fmt.Errorf("list deleting: %w", err)
	}

	var first error
	for _, f := range pending {
		if err := c.finish(ctx, f); err != nil {
			c.log.Error(ctx, "reconcile file", "file", f.ID, "error", err)
			if first == nil {
				first = err
			}
			continue
		}
		rep.Files++
	}

	n, err := filex.RemoveOlderThan(c.cfg.WorkDir, c.cfg.StaleAfter, c.clock.Now(), func(path string, err error) {
		c.log.Warn(ctx, "stale work file not removed", "path", path, "error", err)
	})
	rep.TempFiles = n
	if err != nil && first == nil {
		first = err
	}

	if rep.Files > 0 || rep.TempFiles > 0 {
		c.log.Info(ctx, "reconciled", "files", rep.Files, "temp_files", rep.TempFiles)
	}
	return rep, first
}
