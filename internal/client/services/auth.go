// Package services contains the client-side application services used by
// the CLI. They combine remote calls with the local state database.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/client/client"
	"github.com/SakshiM22/secure-vault/internal/client/repositories/files"
	"github.com/SakshiM22/secure-vault/internal/client/repositories/metadata"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/dbx"
)

// Session is the locally remembered login.
type Session struct {
	Email string
	Role  string
}

// Admin reports whether the session belongs to an administrator.
func (s *Session) Admin() bool { return s != nil && s.Role == "admin" }

// AuthService manages the account session of the CLI.
//
//   - Login authenticates against the server and persists the token so that
//     later runs can Restore it.
//   - Logout forgets the token and every cached listing.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*api.Account, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Restore(ctx context.Context) (*Session, error)
	Logout(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) Signup(ctx context.Context, email, password string) (*api.Account, error) {
	acc, err := a.client.Signup(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("signup error: %w", err)
	}
	return acc, nil
}

// Login authenticates and saves the session. A different account than the
// one saved before starts with an empty listing cache.
func (a *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	sess := &Session{Email: resp.Account.Email, Role: resp.Account.Role}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := metadata.NewSQLiteRepository(tx)

		prev, err := meta.Get(ctx, metadata.KeyEmail)
		switch {
		case errors.Is(err, common.ErrNotFound):
		case err != nil:
			return err
		case string(prev) != sess.Email:
			if err := files.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
		}

		if err := meta.Set(ctx, metadata.KeyToken, []byte(resp.Token)); err != nil {
			return err
		}
		if err := meta.Set(ctx, metadata.KeyEmail, []byte(sess.Email)); err != nil {
			return err
		}
		return meta.Set(ctx, metadata.KeyRole, []byte(sess.Role))
	})
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return sess, nil
}

// Restore loads a saved session into the client. It returns
// client.ErrNotLoggedIn when nothing was saved.
func (a *authService) Restore(ctx context.Context) (*Session, error) {
	meta := metadata.NewSQLiteRepository(a.db)

	token, err := meta.Get(ctx, metadata.KeyToken)
	if errors.Is(err, common.ErrNotFound) {
		return nil, client.ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}

	sess := &Session{}
	if v, err := meta.Get(ctx, metadata.KeyEmail); err == nil {
		sess.Email = string(v)
	}
	if v, err := meta.Get(ctx, metadata.KeyRole); err == nil {
		sess.Role = string(v)
	}

	a.client.SetToken(string(token))
	return sess, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.SetToken("")
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := metadata.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return files.NewSQLiteRepository(tx).Clear(ctx)
	})
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
