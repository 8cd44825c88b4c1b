// Package ingest turns an uploaded byte stream into a stored file. Bytes are
// spooled to a work directory, scanned, sealed and committed to either the
// vault or the quarantine area before any metadata row is written.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
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
	"github.com/SakshiM22/secure-vault/internal/server/scanner"
	"github.com/google/uuid"
)

const (
	DefaultMaxSize       int64 = 100 << 20
	DefaultScanTimeout         = 2 * time.Minute
	DefaultCryptoTimeout       = 5 * time.Minute
	DefaultContentType         = "application/octet-stream"
	maxNameLen                 = 255
)

type Kind int

const (
	Accepted Kind = iota + 1
	Blocked
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Blocked:
		return "blocked"
	}
	return "unknown"
}

// Outcome is the result of a completed ingestion. A malicious upload is a
// Blocked outcome, not an error.
type Outcome struct {
	Kind       Kind
	File       *models.StoredFile
	EngineHits int
}

type Request struct {
	Owner        *models.Account
	Name         string
	ContentType  string
	DeclaredSize int64
	Body         io.Reader
	Origin       string
}

type Config struct {
	WorkDir       string
	MaxSize       int64
	ScanTimeout   time.Duration
	CryptoTimeout time.Duration
}

type Pipeline struct {
	repos   repomanager.RepositoryManager
	blobs   blobstore.Store
	scanner scanner.Scanner
	bus     *audit.Bus
	key     []byte
	clock   clockx.Clock
	log     logging.Logger
	cfg     Config
}

// New creates the work directory if needed. Zero limits fall back to the
// package defaults.
func New(cfg Config, repos repomanager.RepositoryManager, blobs blobstore.Store, sc scanner.Scanner,
	bus *audit.Bus, key []byte, clock clockx.Clock, log logging.Logger) (*Pipeline, error) {

	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("%w: file key must be %d bytes", common.ErrConfiguration, cryptox.KeySize)
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}
	if cfg.CryptoTimeout <= 0 {
		cfg.CryptoTimeout = DefaultCryptoTimeout
	}
	dir, err := filex.EnsureDir(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: work dir: %v", common.ErrConfiguration, err)
	}
	cfg.WorkDir = dir

	return &Pipeline{
		repos:   repos,
		blobs:   blobs,
		scanner: sc,
		bus:     bus,
		key:     key,
		clock:   clock,
		log:     log,
		cfg:     cfg,
	}, nil
}

func (p *Pipeline) MaxSize() int64 { return p.cfg.MaxSize }

// Ingest runs one upload to completion. Exactly one audit event is emitted
// for every call that gets past the owner check.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Outcome, error) {
	if req.Owner == nil {
		return nil, common.ErrUnauthenticated
	}
	email := req.Owner.Email

	if req.Owner.IsAdmin() {
		p.bus.Emit(ctx, email, models.ActionFileUpload, models.OutcomeBlocked, req.Origin)
		return nil, fmt.Errorf("%w: administrators cannot upload files", common.ErrAccessDenied)
	}
	if err := p.precheck(&req); err != nil {
		p.bus.Emit(ctx, email, models.ActionFileUpload, models.OutcomeFailed, req.Origin)
		return nil, err
	}

	out, err := p.ingest(ctx, req)
	if err != nil {
		outcome := models.OutcomeError
		if errors.Is(err, common.ErrValidation) {
			outcome = models.OutcomeFailed
		}
		p.log.Error(ctx, "ingest failed", "owner", req.Owner.ID, "error", err)
		p.bus.Emit(ctx, email, models.ActionFileUpload, outcome, req.Origin)
		return nil, err
	}

	if out.Kind == Blocked {
		p.log.Warn(ctx, "malware detected", "owner", req.Owner.ID, "file", out.File.ID, "hits", out.EngineHits)
		p.bus.Emit(ctx, email, models.ActionMalwareDetected, models.OutcomeBlocked, req.Origin)
	} else {
		p.log.Info(ctx, "file stored", "owner", req.Owner.ID, "file", out.File.ID, "size", out.File.Size)
		p.bus.Emit(ctx, email, models.ActionFileUpload, models.OutcomeSuccess, req.Origin)
	}
	return out, nil
}

func (p *Pipeline) precheck(req *Request) error {
	req.Name = filepath.Base(strings.TrimSpace(req.Name))
	if req.Name == "" || req.Name == "." || req.Name == string(filepath.Separator) {
		return fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if len(req.Name) > maxNameLen {
		return fmt.Errorf("%w: file name too long", common.ErrValidation)
	}
	if req.Body == nil {
		return fmt.Errorf("%w: file content is required", common.ErrValidation)
	}
	if req.DeclaredSize < 0 {
		return fmt.Errorf("%w: negative size", common.ErrValidation)
	}
	if req.DeclaredSize > p.cfg.MaxSize {
		return fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, p.cfg.MaxSize)
	}
	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.ContentType == "" {
		req.ContentType = DefaultContentType
	}
	return nil
}

func (p *Pipeline) ingest(ctx context.Context, req Request) (*Outcome, error) {
	spool, size, err := p.spool(req.Body)
	if err != nil {
		return nil, err
	}
	defer p.remove(ctx, spool.Name())
	defer spool.Close()

	verdict, err := p.scan(ctx, spool)
	if err != nil {
		return nil, err
	}

	now := p.clock.Now()
	f := &models.StoredFile{
		ID:           uuid.NewString(),
		OwnerID:      req.Owner.ID,
		OriginalName: req.Name,
		StorageName:  blobstore.NewStorageName(now),
		ContentType:  req.ContentType,
		Size:         size,
		Status:       models.MalwareSafe,
		CreatedAt:    now,
	}
	area := blobstore.AreaVault
	if !verdict.Safe {
		f.Status = models.MalwareMalicious
		f.EngineHits = verdict.EngineHits
		area = blobstore.AreaQuarantine
	}

	if err := p.seal(ctx, area, f.StorageName, spool.Name()); err != nil {
		return nil, err
	}

	if err := p.repos.Files().Create(ctx, f); err != nil {
		if derr := p.blobs.Delete(context.WithoutCancel(ctx), area, f.StorageName); derr != nil {
			p.log.Error(ctx, "orphan blob after failed insert", "area", string(area), "name", f.StorageName, "error", derr)
		}
		return nil, fmt.Errorf("store file row: %w", err)
	}

	if !verdict.Safe {
		return &Outcome{Kind: Blocked, File: f, EngineHits: f.EngineHits}, nil
	}
	return &Outcome{Kind: Accepted, File: f}, nil
}

// spool copies body into the work directory, refusing to read more than
// MaxSize bytes regardless of the declared size.
func (p *Pipeline) spool(body io.Reader) (*os.File, int64, error) {
	f, err := os.CreateTemp(p.cfg.WorkDir, "upload-*")
	if err != nil {
		return nil, 0, fmt.Errorf("spool: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(body, p.cfg.MaxSize+1))
	if err == nil && n > p.cfg.MaxSize {
		err = fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, p.cfg.MaxSize)
	}
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		if !errors.Is(err, common.ErrValidation) {
			err = fmt.Errorf("spool: %w", err)
		}
		return nil, 0, err
	}
	return f, n, nil
}

func (p *Pipeline) scan(ctx context.Context, r io.ReadSeeker) (scanner.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ScanTimeout)
	defer cancel()

	v, err := p.scanner.Scan(ctx, r)
	if err != nil {
		if errors.Is(err, common.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return scanner.Verdict{}, fmt.Errorf("%w: malware scan", common.ErrTimeout)
		}
		return scanner.Verdict{}, fmt.Errorf("malware scan: %w", err)
	}
	if !v.Safe && v.EngineHits < 1 {
		v.EngineHits = 1
	}
	return v, nil
}

// seal encrypts src into a staging file and hands it to the blob store.
func (p *Pipeline) seal(ctx context.Context, area blobstore.Area, name, src string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CryptoTimeout)
	defer cancel()

	staging := filepath.Join(p.cfg.WorkDir, "sealed-"+name)
	if err := cryptox.SealFile(ctx, staging, src, p.key); err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	if err := p.blobs.Commit(ctx, area, name, staging); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("commit %s: %w", area, err)
	}
	return nil
}

func (p *Pipeline) remove(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.log.Warn(ctx, "temp file not removed", "path", path, "error", err)
	}
}
