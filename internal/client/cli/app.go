package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/SakshiM22/secure-vault/internal/client/client"
	"github.com/SakshiM22/secure-vault/internal/client/config"
	"github.com/SakshiM22/secure-vault/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	db          *sql.DB
	client      client.Client
	authService services.AuthService
	fileService services.FileService
	session     *services.Session
	Mode        Mode
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp opens the state database, connects to the server and restores a
// saved session if there is one.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.StateDB)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewVaultClientService(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config:      c,
		db:          db,
		client:      apiClient,
		authService: services.NewAuthService(apiClient, db),
		fileService: services.NewFileService(apiClient, db),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}

	sess, err := a.authService.Restore(ctx)
	switch {
	case err == nil:
		a.session = sess
	case !errors.Is(err, client.ErrNotLoggedIn):
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// Run executes args as a single command, or starts the prompt when args is
// empty.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.Close(ctx)

	if len(args) > 0 {
		_, err := dispatch(ctx, a, args)
		return err
	}
	a.Root(ctx)
	return nil
}

func (a *App) Close(ctx context.Context) error {
	err := a.authService.Close(ctx)
	if a.db != nil {
		err = errors.Join(err, a.db.Close())
	}
	return err
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) isAdmin() bool {
	return a.session.Admin()
}

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}
	return nil
}

// callCtx bounds a unary request by the configured timeout.
func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// observe switches the mode by whether the server answered.
func (a *App) observe(err error) error {
	if errors.Is(err, client.ErrUnavailable) {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
	return err
}

// track records the outcome of a call made with the saved session. A
// rejected token ends that session, since the server revoked it.
func (a *App) track(ctx context.Context, err error) error {
	if err == nil || !errors.Is(err, client.ErrUnauthorized) || !a.isLoggedIn() {
		return a.observe(err)
	}
	a.setMode(ModeOnline)
	a.session = nil
	if lerr := a.authService.Logout(ctx); lerr != nil {
		log.Printf("clearing session: %v", lerr)
	}
	return fmt.Errorf("%w (session ended, please login again)", err)
}
