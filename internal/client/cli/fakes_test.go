package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/client/client"
	"github.com/SakshiM22/secure-vault/internal/client/models"
	"github.com/SakshiM22/secure-vault/internal/client/services"
)

func silencePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origLn, orig := printlnFn, printFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(strings.Join(strings.Fields(fmtAll(a...)), " ")))
		return 0, nil
	}
	printFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn, printFn = origLn, orig })
	return &lines
}

func fmtAll(a ...any) string {
	var b bytes.Buffer
	for i, v := range a {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch x := v.(type) {
		case string:
			b.WriteString(x)
		case error:
			b.WriteString(x.Error())
		}
	}
	return b.String()
}

func stubInputs(t *testing.T, email string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return email, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return append([]byte(nil), password...), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func stubConfirm(t *testing.T, answer bool) {
	t.Helper()
	orig := confirm
	confirm = func(*bufio.Reader, string, io.Writer) (bool, error) { return answer, nil }
	t.Cleanup(func() { confirm = orig })
}

type fakeAuth struct {
	signupEmail string
	signupPass  string
	signupErr   error

	loginEmail string
	loginPass  string
	loginSess  *services.Session
	loginErr   error

	logoutCalls int
	logoutErr   error
}

func (f *fakeAuth) Signup(_ context.Context, email, password string) (*api.Account, error) {
	f.signupEmail, f.signupPass = email, password
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &api.Account{Email: email}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*services.Session, error) {
	f.loginEmail, f.loginPass = email, password
	return f.loginSess, f.loginErr
}

func (f *fakeAuth) Restore(context.Context) (*services.Session, error) {
	return nil, client.ErrNotLoggedIn
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) Close(context.Context) error { return nil }

type fakeFiles struct {
	uploadPath string
	uploadResp *api.UploadResponse
	uploadErr  error

	list    []*models.File
	cached  bool
	listErr error

	getID   string
	getDest string
	getErr  error

	previewBody string
	previewErr  error

	removed   []string
	removeErr error
}

func (f *fakeFiles) Upload(_ context.Context, path string) (*api.UploadResponse, error) {
	f.uploadPath = path
	return f.uploadResp, f.uploadErr
}

func (f *fakeFiles) List(context.Context) ([]*models.File, bool, error) {
	return f.list, f.cached, f.listErr
}

func (f *fakeFiles) Get(_ context.Context, id, dest string) (string, error) {
	f.getID, f.getDest = id, dest
	if f.getErr != nil {
		return "", f.getErr
	}
	return dest + "/file.bin", nil
}

func (f *fakeFiles) Preview(_ context.Context, _ string, w io.Writer) (*api.DownloadHeader, error) {
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	_, _ = io.WriteString(w, f.previewBody)
	return &api.DownloadHeader{Disposition: api.DispositionInline}, nil
}

func (f *fakeFiles) Remove(_ context.Context, id string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	return nil
}

// fakeAdmin overrides the admin calls of client.Client; anything else
// panics through the nil embedded interface.
type fakeAdmin struct {
	client.Client

	accounts  []api.Account
	actions   []string
	deleted   []string
	analytics *api.AnalyticsResponse
	events    []api.Event
	err       error
}

func (f *fakeAdmin) ListAccounts(context.Context) ([]api.Account, error) { return f.accounts, f.err }

func (f *fakeAdmin) AccountAction(_ context.Context, action client.AccountAction, id string) (*api.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.actions = append(f.actions, string(action)+":"+id)
	return &api.Account{ID: id, Email: id + "@example.com", Role: "user", LockState: "admin_locked"}, nil
}

func (f *fakeAdmin) DeleteAccount(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAdmin) AuditLog(context.Context, int) ([]api.Event, error) { return f.events, f.err }

func (f *fakeAdmin) Analytics(context.Context) (*api.AnalyticsResponse, error) {
	return f.analytics, f.err
}

func (f *fakeAdmin) Watch(_ context.Context, fn func(*api.Event) error) error {
	for i := range f.events {
		if err := fn(&f.events[i]); err != nil {
			return err
		}
	}
	return f.err
}

func newTestApp(auth services.AuthService, fs services.FileService, c client.Client) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		authService: auth,
		fileService: fs,
		client:      c,
		session:     &services.Session{Email: "me@example.com", Role: "admin"},
		reader:      bufio.NewReader(strings.NewReader("")),
		out:         &out,
	}, &out
}
