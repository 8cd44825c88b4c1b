package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/client/client"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func getMeta(t *testing.T, db *sql.DB, k string) []byte {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	require.NoError(t, err)
	return v
}

// fakeClient implements client.Client for service tests.
type fakeClient struct {
	token string

	SignupErr   error
	LoginResp   *api.LoginResponse
	LoginErr    error
	UploadErr   error
	ListRet     []api.File
	ListErr     error
	Body        []byte
	Header      api.DownloadHeader
	DownloadErr error
	DeleteErr   error

	LastUploadName string
	LastUploadType string
	LastUploadSize int64
	LastUploadBody []byte
	LastPreview    bool
	Deleted        []string
}

func (f *fakeClient) Close() error          { return nil }
func (f *fakeClient) SetToken(token string) { f.token = token }
func (f *fakeClient) Token() string         { return f.token }

func (f *fakeClient) Signup(_ context.Context, email, _ string) (*api.Account, error) {
	if f.SignupErr != nil {
		return nil, f.SignupErr
	}
	return &api.Account{ID: "acc-1", Email: email, Role: "user"}, nil
}

func (f *fakeClient) Login(context.Context, string, string) (*api.LoginResponse, error) {
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	f.token = f.LoginResp.Token
	return f.LoginResp, nil
}

func (f *fakeClient) Upload(_ context.Context, name, contentType string, size int64, r io.Reader) (*api.UploadResponse, error) {
	f.LastUploadName, f.LastUploadType, f.LastUploadSize = name, contentType, size
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.LastUploadBody = body
	if f.UploadErr != nil {
		return nil, f.UploadErr
	}
	return &api.UploadResponse{Outcome: api.OutcomeAccepted, File: &api.File{ID: "f-new", Name: name, Size: size}}, nil
}

func (f *fakeClient) ListFiles(context.Context) ([]api.File, error) { return f.ListRet, f.ListErr }

func (f *fakeClient) Download(_ context.Context, _ string, preview bool, w io.Writer) (*api.DownloadHeader, error) {
	f.LastPreview = preview
	if f.DownloadErr != nil {
		return nil, f.DownloadErr
	}
	if _, err := io.Copy(w, bytes.NewReader(f.Body)); err != nil {
		return nil, err
	}
	h := f.Header
	return &h, nil
}

func (f *fakeClient) DeleteFile(_ context.Context, id string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, id)
	return nil
}

func (f *fakeClient) ListAccounts(context.Context) ([]api.Account, error) { return nil, nil }
func (f *fakeClient) AccountAction(context.Context, client.AccountAction, string) (*api.Account, error) {
	return nil, nil
}
func (f *fakeClient) DeleteAccount(context.Context, string) error                { return nil }
func (f *fakeClient) AuditLog(context.Context, int) ([]api.Event, error)         { return nil, nil }
func (f *fakeClient) Analytics(context.Context) (*api.AnalyticsResponse, error) { return nil, nil }
func (f *fakeClient) MaliciousFiles(context.Context) ([]api.MaliciousFile, error) {
	return nil, nil
}
func (f *fakeClient) SuspiciousActivity(context.Context) (*api.SuspiciousActivityResponse, error) {
	return nil, nil
}
func (f *fakeClient) Watch(context.Context, func(*api.Event) error) error { return nil }

var _ client.Client = (*fakeClient)(nil)
