package client

import (
	"context"
	"io"

	"github.com/SakshiM22/secure-vault/internal/api"
)

type Client interface {
	Close() error
	SetToken(token string)
	Token() string

	Signup(ctx context.Context, email, password string) (*api.Account, error)
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)

	Upload(ctx context.Context, name, contentType string, size int64, r io.Reader) (*api.UploadResponse, error)
	ListFiles(ctx context.Context) ([]api.File, error)
	Download(ctx context.Context, id string, preview bool, w io.Writer) (*api.DownloadHeader, error)
	DeleteFile(ctx context.Context, id string) error

	ListAccounts(ctx context.Context) ([]api.Account, error)
	AccountAction(ctx context.Context, action AccountAction, id string) (*api.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	AuditLog(ctx context.Context, limit int) ([]api.Event, error)
	Analytics(ctx context.Context) (*api.AnalyticsResponse, error)
	MaliciousFiles(ctx context.Context) ([]api.MaliciousFile, error)
	SuspiciousActivity(ctx context.Context) (*api.SuspiciousActivityResponse, error)
	Watch(ctx context.Context, fn func(*api.Event) error) error
}

// AccountAction names an administrative change to another account.
type AccountAction string

const (
	ActionLock        AccountAction = "lock"
	ActionUnlock      AccountAction = "unlock"
	ActionPromote     AccountAction = "promote"
	ActionDemote      AccountAction = "demote"
	ActionForceLogout AccountAction = "force-logout"
)
