package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SakshiM22/secure-vault/internal/clockx"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/cryptox"
	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/audit"
	"github.com/SakshiM22/secure-vault/internal/server/blobstore"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/repomanager"
	"github.com/SakshiM22/secure-vault/internal/server/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	p       *Pipeline
	repos   *repomanager.MemoryRepositoryManager
	root    string
	workDir string
	key     []byte
	scans   atomic.Int32
	user    *models.Account
}

func newFixture(t *testing.T, sc scanner.Scanner) *fixture {
	t.Helper()
	ctx := context.Background()

	fx := &fixture{
		repos:   repomanager.NewMemoryRepositoryManager(),
		root:    t.TempDir(),
		workDir: filepath.Join(t.TempDir(), "work"),
	}
	key, err := cryptox.DeriveKey("test-secret")
	require.NoError(t, err)
	fx.key = key

	store, err := blobstore.NewFSStore(fx.root)
	require.NoError(t, err)

	clock := clockx.NewFake(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	bus := audit.NewBus(fx.repos.Events(), clock, logging.Discard())

	counting := scanner.Func(func(ctx context.Context, r io.Reader) (scanner.Verdict, error) {
		fx.scans.Add(1)
		return sc.Scan(ctx, r)
	})

	fx.p, err = New(Config{WorkDir: fx.workDir, MaxSize: 1024, ScanTimeout: 200 * time.Millisecond},
		fx.repos, store, counting, bus, key, clock, logging.Discard())
	require.NoError(t, err)

	fx.user, err = fx.repos.Accounts().Create(ctx, &models.Account{
		ID: "u1", Email: "alice@example.com", PasswordHash: "x", Role: models.RoleUser,
	})
	require.NoError(t, err)
	return fx
}

func (fx *fixture) areaEntries(t *testing.T, area blobstore.Area) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(fx.root, string(area)))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (fx *fixture) events(t *testing.T) []string {
	t.Helper()
	evs, err := fx.repos.Events().Recent(context.Background(), 100)
	require.NoError(t, err)
	var out []string
	for _, ev := range evs {
		out = append(out, ev.Action+"/"+string(ev.Outcome))
	}
	return out
}

func (fx *fixture) assertWorkDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(fx.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func clean() scanner.Scanner {
	return scanner.Func(func(_ context.Context, r io.Reader) (scanner.Verdict, error) {
		_, err := io.Copy(io.Discard, r)
		return scanner.Verdict{Safe: true}, err
	})
}

func infected(hits int) scanner.Scanner {
	return scanner.Func(func(_ context.Context, r io.Reader) (scanner.Verdict, error) {
		_, err := io.Copy(io.Discard, r)
		return scanner.Verdict{Safe: false, EngineHits: hits}, err
	})
}

func TestIngest_Accepted(t *testing.T) {
	fx := newFixture(t, clean())
	ctx := context.Background()
	payload := []byte("quarterly report")

	out, err := fx.p.Ingest(ctx, Request{
		Owner: fx.user, Name: "../report.txt", ContentType: "text/plain",
		DeclaredSize: int64(len(payload)), Body: bytes.NewReader(payload), Origin: "10.0.0.1",
	})
	require.NoError(t, err)
	require.Equal(t, Accepted, out.Kind)
	assert.Equal(t, "report.txt", out.File.OriginalName)
	assert.Equal(t, int64(len(payload)), out.File.Size)
	assert.Equal(t, models.MalwareSafe, out.File.Status)
	assert.NotContains(t, out.File.StorageName, "report")

	list, err := fx.repos.Files().ListByOwner(ctx, fx.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, out.File.ID, list[0].ID)

	require.Equal(t, []string{out.File.StorageName}, fx.areaEntries(t, blobstore.AreaVault))
	assert.Empty(t, fx.areaEntries(t, blobstore.AreaQuarantine))

	sealed, err := os.ReadFile(filepath.Join(fx.root, "vault", out.File.StorageName))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, payload))

	var plain bytes.Buffer
	require.NoError(t, cryptox.Open(ctx, &plain, bytes.NewReader(sealed), fx.key))
	assert.Equal(t, payload, plain.Bytes())

	assert.Equal(t, []string{"file_upload/success"}, fx.events(t))
	fx.assertWorkDirEmpty(t)
}

func TestIngest_DefaultsContentType(t *testing.T) {
	fx := newFixture(t, clean())

	out, err := fx.p.Ingest(context.Background(), Request{Owner: fx.user, Name: "a.bin", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, DefaultContentType, out.File.ContentType)
}

func TestIngest_Blocked(t *testing.T) {
	fx := newFixture(t, infected(3))
	ctx := context.Background()

	out, err := fx.p.Ingest(ctx, Request{Owner: fx.user, Name: "eicar.com", Body: strings.NewReader("X5O!P%@AP")})
	require.NoError(t, err)
	require.Equal(t, Blocked, out.Kind)
	assert.Equal(t, 3, out.EngineHits)

	assert.Empty(t, fx.areaEntries(t, blobstore.AreaVault))
	assert.Len(t, fx.areaEntries(t, blobstore.AreaQuarantine), 1)

	bad, err := fx.repos.Files().ListMalicious(ctx)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, 3, bad[0].EngineHits)
	assert.Equal(t, "alice@example.com", bad[0].OwnerEmail)

	assert.Equal(t, []string{"malware_detected/blocked"}, fx.events(t))
	fx.assertWorkDirEmpty(t)
}

func TestIngest_AdminRejected(t *testing.T) {
	fx := newFixture(t, clean())
	admin := &models.Account{ID: "a1", Email: "root@example.com", Role: models.RoleAdmin}

	_, err := fx.p.Ingest(context.Background(), Request{Owner: admin, Name: "a.txt", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, common.ErrAccessDenied)
	assert.Zero(t, fx.scans.Load())
	assert.Equal(t, []string{"file_upload/blocked"}, fx.events(t))
}

func TestIngest_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  Request
	}{
		{"no name", Request{Name: "  ", Body: strings.NewReader("x")}},
		{"no body", Request{Name: "a.txt"}},
		{"negative size", Request{Name: "a.txt", DeclaredSize: -1, Body: strings.NewReader("x")}},
		{"declared too large", Request{Name: "a.txt", DeclaredSize: 4096, Body: strings.NewReader("x")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t, clean())
			tc.req.Owner = fx.user

			_, err := fx.p.Ingest(context.Background(), tc.req)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Zero(t, fx.scans.Load())
			assert.Equal(t, []string{"file_upload/failed"}, fx.events(t))
		})
	}
}

func TestIngest_LyingDeclaredSize(t *testing.T) {
	fx := newFixture(t, clean())

	_, err := fx.p.Ingest(context.Background(), Request{
		Owner: fx.user, Name: "big.bin", DeclaredSize: 10, Body: bytes.NewReader(make([]byte, 4096)),
	})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Zero(t, fx.scans.Load())
	assert.Empty(t, fx.areaEntries(t, blobstore.AreaVault))
	fx.assertWorkDirEmpty(t)
}

func TestIngest_ScannerFailureNeverSafe(t *testing.T) {
	fx := newFixture(t, scanner.Func(func(context.Context, io.Reader) (scanner.Verdict, error) {
		return scanner.Verdict{Safe: true}, scanner.ErrScanFailed
	}))
	ctx := context.Background()

	_, err := fx.p.Ingest(ctx, Request{Owner: fx.user, Name: "a.txt", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, scanner.ErrScanFailed)
	assert.False(t, errors.Is(err, common.ErrTimeout))

	list, err := fx.repos.Files().ListByOwner(ctx, fx.user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, fx.areaEntries(t, blobstore.AreaVault))
	assert.Equal(t, []string{"file_upload/error"}, fx.events(t))
	fx.assertWorkDirEmpty(t)
}

func TestIngest_ScannerTimeout(t *testing.T) {
	fx := newFixture(t, scanner.Func(func(ctx context.Context, _ io.Reader) (scanner.Verdict, error) {
		<-ctx.Done()
		return scanner.Verdict{}, ctx.Err()
	}))

	_, err := fx.p.Ingest(context.Background(), Request{Owner: fx.user, Name: "a.txt", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, common.ErrTimeout)
	fx.assertWorkDirEmpty(t)
}

func TestIngest_RowFailureRemovesBlob(t *testing.T) {
	fx := newFixture(t, clean())
	ghost := &models.Account{ID: "missing", Email: "ghost@example.com", Role: models.RoleUser}

	_, err := fx.p.Ingest(context.Background(), Request{Owner: ghost, Name: "a.txt", Body: strings.NewReader("x")})
	require.Error(t, err)
	assert.Empty(t, fx.areaEntries(t, blobstore.AreaVault))
	assert.Equal(t, []string{"file_upload/error"}, fx.events(t))
	fx.assertWorkDirEmpty(t)
}

func TestNew_BadKey(t *testing.T) {
	_, err := New(Config{WorkDir: t.TempDir()}, repomanager.NewMemoryRepositoryManager(), nil, clean(),
		nil, []byte("short"), clockx.Real(), logging.Discard())
	require.ErrorIs(t, err, common.ErrConfiguration)
}
