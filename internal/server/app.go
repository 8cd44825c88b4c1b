// Package server wires the vault together: storage, blob backend, malware
// scanners, audit bus and the gRPC endpoint. It also handles graceful
// shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/SakshiM22/secure-vault/internal/clockx"
	"github.com/SakshiM22/secure-vault/internal/cryptox"
	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/audit"
	"github.com/SakshiM22/secure-vault/internal/server/auth"
	"github.com/SakshiM22/secure-vault/internal/server/blobstore"
	"github.com/SakshiM22/secure-vault/internal/server/catalog"
	"github.com/SakshiM22/secure-vault/internal/server/config"
	"github.com/SakshiM22/secure-vault/internal/server/ingest"
	"github.com/SakshiM22/secure-vault/internal/server/lockout"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/repomanager"
	"github.com/SakshiM22/secure-vault/internal/server/scanner"
	"github.com/SakshiM22/secure-vault/internal/server/services"
	"golang.org/x/crypto/bcrypt"

	gs "github.com/SakshiM22/secure-vault/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	bus      *audit.Bus
	nats     *audit.NATSBroker
	accounts *services.AccountService
	admin    *services.AdminService
	ingest   *ingest.Pipeline
	catalog  *catalog.Catalog
}

// NewApp builds every component from c. On failure whatever was already
// opened is closed again.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	logger, err := logging.New(c.LogBackend)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.repos, err = repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err = app.repos.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	clock := clockx.Real()

	var brokers []audit.Broker
	if c.NATSURL != "" {
		app.nats, err = audit.NewNATSBroker(c.NATSURL, c.NATSSubject, logger.With("module", "nats"))
		if err != nil {
			return nil, fmt.Errorf("nats init error: %w", err)
		}
		brokers = append(brokers, app.nats)
	}
	app.bus = audit.NewBus(app.repos.Events(), clock, logger.With("module", "audit"), brokers...)

	key, err := cryptox.DeriveKey(c.FileSecret)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService([]byte(c.JWTSecret), c.TokenTTL, clock, app.repos.Accounts())
	if err != nil {
		return nil, err
	}

	policy := lockout.Policy{MaxAttempts: c.MaxLoginAttempts, Cooldown: c.LockoutCooldown}
	app.accounts, err = services.NewAccountService(app.repos, tokens, auth.NewBcryptHasher(bcrypt.DefaultCost),
		policy, app.bus, clock, logger.With("module", "accounts"))
	if err != nil {
		return nil, err
	}

	app.catalog, err = catalog.New(catalog.Config{WorkDir: c.WorkDir, CryptoTimeout: c.CryptoTimeout},
		app.repos, blobs, app.bus, key, clock, logger.With("module", "catalog"))
	if err != nil {
		return nil, err
	}

	app.ingest, err = ingest.New(ingest.Config{
		WorkDir:       c.WorkDir,
		MaxSize:       c.MaxUploadSize,
		ScanTimeout:   c.ScanTimeout,
		CryptoTimeout: c.CryptoTimeout,
	}, app.repos, blobs, newScanner(c), app.bus, key, clock, logger.With("module", "ingest"))
	if err != nil {
		return nil, err
	}

	app.admin = services.NewAdminService(app.repos, app.catalog, app.bus, clock, logger.With("module", "admin"))

	if c.AdminEmail != "" {
		created, err := app.accounts.BootstrapAdmin(ctx, c.AdminEmail, c.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			logger.Info(ctx, "Bootstrap administrator created", "email", c.AdminEmail)
		}
	}

	return app, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	if c.BlobBackend == config.BlobBackendS3 {
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
	}
	return blobstore.NewFSStore(c.BlobDir)
}

func newScanner(c *config.Config) scanner.Scanner {
	engines := make(scanner.Multi, 0, len(c.ClamdAddrs))
	for _, addr := range c.ClamdAddrs {
		engines = append(engines, scanner.NewClamd(addr))
	}
	return engines
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// reconcile finishes work a previous run left behind. Errors are logged and
// startup goes on.
func (app *App) reconcile(ctx context.Context) {
	rep, err := app.catalog.Reconcile(ctx)
	if err != nil {
		app.logger.Error(ctx, "reconcile", "error", err)
	}
	if rep.Files > 0 || rep.TempFiles > 0 {
		app.logger.Info(ctx, "Reconciled storage", "files", rep.Files, "temp_files", rep.TempFiles)
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accounts, app.admin, app.ingest, app.catalog)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives, ctx is cancelled or the server fails,
// then releases every resource.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.reconcile(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close ends event subscriptions before the stores go away.
func (app *App) Close() {
	if app.bus != nil {
		app.bus.Close()
	}
	if app.nats != nil {
		app.nats.Close()
	}
	if app.repos != nil {
		if err := app.repos.Close(); err != nil {
			app.logger.Error(context.Background(), "close repositories", "error", err)
		}
	}
}
