package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/server/blobstore"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) adminAccount(t *testing.T) *models.Account {
	t.Helper()
	ctx := context.Background()
	_, err := e.accounts.BootstrapAdmin(ctx, "root@example.com", password)
	require.NoError(t, err)
	acc, err := e.repos.Accounts().GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	return acc
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	user := e.signup(t, "alice@example.com")
	other := e.signup(t, "bob@example.com")

	_, err := e.admin.ListAccounts(ctx, user)
	assert.ErrorIs(t, err, common.ErrAccessDenied)
	_, err = e.admin.Lock(ctx, user, other.ID, "")
	assert.ErrorIs(t, err, common.ErrAccessDenied)
	_, err = e.admin.AuditLog(ctx, user, 10)
	assert.ErrorIs(t, err, common.ErrAccessDenied)
	_, err = e.admin.Watch(user)
	assert.ErrorIs(t, err, common.ErrAccessDenied)
	_, err = e.admin.Analytics(ctx, nil)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestAdmin_SelfActionRefused(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	root := e.adminAccount(t)

	_, err := e.admin.Lock(ctx, root, root.ID, "")
	assert.ErrorIs(t, err, common.ErrSelfAction)
	_, err = e.admin.Unlock(ctx, root, root.ID, "")
	assert.ErrorIs(t, err, common.ErrSelfAction)
	_, err = e.admin.Promote(ctx, root, root.ID, "")
	assert.ErrorIs(t, err, common.ErrSelfAction)
	_, err = e.admin.Demote(ctx, root, root.ID, "")
	assert.ErrorIs(t, err, common.ErrSelfAction)
	_, err = e.admin.ForceLogout(ctx, root, root.ID, "")
	assert.ErrorIs(t, err, common.ErrSelfAction)
	assert.ErrorIs(t, e.admin.DeleteAccount(ctx, root, root.ID, ""), common.ErrSelfAction)

	assert.Equal(t, models.RoleAdmin, e.reload(t, root.ID).Role)
	assert.Equal(t, models.LockActive, e.reload(t, root.ID).LockState)
}

func TestAdmin_LockUnlock(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	root := e.adminAccount(t)
	alice := e.signup(t, "alice@example.com")

	for i := 0; i < 3; i++ {
		_, _ = e.accounts.Login(ctx, alice.Email, "wrong password", "")
	}
	require.Equal(t, models.LockBruteForceLocked, e.reload(t, alice.ID).LockState)

	locked, err := e.admin.Lock(ctx, root, alice.ID, "10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, models.LockAdminLocked, locked.LockState)

	// An admin lock outlives the brute-force cooldown.
	e.clock.Advance(time.Hour)
	_, err = e.accounts.Login(ctx, alice.Email, password, "")
	require.ErrorIs(t, err, common.ErrAccountLockedAdmin)

	unlocked, err := e.admin.Unlock(ctx, root, alice.ID, "10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, models.LockActive, unlocked.LockState)
	assert.Zero(t, unlocked.FailedAttempts)
	assert.Nil(t, unlocked.LockTime)

	_, err = e.accounts.Login(ctx, alice.Email, password, "")
	require.NoError(t, err)

	_, err = e.admin.Lock(ctx, root, uuid.NewString(), "")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestAdmin_UnlockBruteForceBeforeCooldown(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	root := e.adminAccount(t)
	alice := e.signup(t, "alice@example.com")

	for i := 0; i < 3; i++ {
		_, _ = e.accounts.Login(ctx, alice.Email, "wrong password", "")
	}
	_, err := e.admin.Unlock(ctx, root, alice.ID, "")
	require.NoError(t, err)

	_, err = e.accounts.Login(ctx, alice.Email, password, "")
	require.NoError(t, err)
}

func TestAdmin_RoleChangeAndForceLogoutEndSessions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	root := e.adminAccount(t)
	alice := e.signup(t, "alice@example.com")

	login := func() string {
		res, err := e.accounts.Login(ctx, alice.Email, password, "")
		require.NoError(t, err)
		return res.Token
	}

	token := login()
	promoted, err := e.admin.Promote(ctx, root, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	_, err = e.accounts.Authenticate(ctx, token)
	require.ErrorIs(t, err, common.ErrSessionInvalidated)

	token = login()
	demoted, err := e.admin.Demote(ctx, root, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, demoted.Role)
	assert.Greater(t, demoted.TokenVersion, promoted.TokenVersion)
	_, err = e.accounts.Authenticate(ctx, token)
	require.ErrorIs(t, err, common.ErrSessionInvalidated)

	token = login()
	_, err = e.admin.ForceLogout(ctx, root, alice.ID, "")
	require.NoError(t, err)
	_, err = e.accounts.Authenticate(ctx, token)
	require.ErrorIs(t, err, common.ErrSessionInvalidated)

	_, err = e.accounts.Authenticate(ctx, login())
	require.NoError(t, err)
}

func TestAdmin_DeleteAccountRemovesFilesKeepsHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	root := e.adminAccount(t)
	alice := e.signup(t, "alice@example.com")

	sealed := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(sealed, []byte("sealed bytes"), 0o600))
	name := blobstore.NewStorageName(e.clock.Now())
	require.NoError(t, e.store.Commit(ctx, blobstore.AreaVault, name, sealed))
	require.NoError(t, e.repos.Files().Create(ctx, &models.StoredFile{
		ID: uuid.NewString(), OwnerID: alice.ID, OriginalName: "a.txt", StorageName: name,
		ContentType: "text/plain", Size: 12, Status: models.MalwareSafe, CreatedAt: e.clock.Now(),
	}))

	require.NoError(t, e.admin.DeleteAccount(ctx, root, alice.ID, ""))

	_, err := e.repos.Accounts().GetByID(ctx, alice.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	files, err := e.repos.Files().ListAllByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
	_, err = e.store.Open(ctx, blobstore.AreaVault, name)
	require.ErrorIs(t, err, common.ErrNotFound)

	history, err := e.admin.AuditLog(ctx, root, 0)
	require.NoError(t, err)
	var aliceEvents int
	for _, ev := range history {
		if ev.Email() == alice.Email {
			aliceEvents++
		}
	}
	assert.Equal(t, 1, aliceEvents)
	assert.Equal(t, models.ActionAccountDelete, history[0].Action)
	assert.Equal(t, root.Email, history[0].Email())

	require.ErrorIs(t, e.admin.DeleteAccount(ctx, root, alice.ID, ""), common.ErrNotFound)
}

func TestAdmin_ListAccountsInCreationOrder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	root := e.adminAccount(t)
	e.clock.Advance(time.Second)
	a := e.signup(t, "a@example.com")
	e.clock.Advance(time.Second)
	b := e.signup(t, "b@example.com")

	list, err := e.admin.ListAccounts(ctx, root)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{root.ID, a.ID, b.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestAdmin_AnalyticsAndSuspicious(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	root := e.adminAccount(t)
	alice := e.signup(t, "alice@example.com")
	e.signup(t, "bob@example.com")

	for _, f := range []*models.StoredFile{
		{ID: uuid.NewString(), OwnerID: alice.ID, OriginalName: "a", StorageName: "s1", Status: models.MalwareSafe, CreatedAt: e.clock.Now()},
		{ID: uuid.NewString(), OwnerID: alice.ID, OriginalName: "b", StorageName: "s2", Status: models.MalwareSafe, CreatedAt: e.clock.Now()},
		{ID: uuid.NewString(), OwnerID: alice.ID, OriginalName: "c", StorageName: "s3", Status: models.MalwareMalicious, EngineHits: 2, CreatedAt: e.clock.Now()},
	} {
		require.NoError(t, e.repos.Files().Create(ctx, f))
	}
	e.bus.Emit(ctx, alice.Email, models.ActionFileDownload, models.OutcomeSuccess, "")

	// Old failures fall outside the 24h window but still count as suspicious.
	for i := 0; i < 4; i++ {
		e.bus.Emit(ctx, "ghost@example.com", models.ActionLogin, models.OutcomeFailed, "192.0.2.1")
	}
	e.clock.Advance(25 * time.Hour)
	for i := 0; i < 2; i++ {
		e.bus.Emit(ctx, "ghost@example.com", models.ActionLogin, models.OutcomeFailed, "192.0.2.1")
	}
	for i := 0; i < 3; i++ {
		_, _ = e.accounts.Login(ctx, alice.Email, "wrong password", "192.0.2.1")
	}

	stats, err := e.admin.Analytics(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, models.Analytics{
		TotalAccounts:   3,
		LockedAccounts:  1,
		SafeUploads:     2,
		TotalDownloads:  1,
		FailedLogins24h: 4,
		LockEvents24h:   1,
		MaliciousFiles:  1,
	}, *stats)

	sus, err := e.admin.SuspiciousActivity(ctx, root)
	require.NoError(t, err)
	require.Len(t, sus.FailedLoginEmails, 1)
	assert.Equal(t, models.EmailCount{Email: "ghost@example.com", Count: 6}, sus.FailedLoginEmails[0])
	assert.Empty(t, sus.FailedLoginAddrs)
	require.Len(t, sus.RecentLocks, 1)
	assert.Equal(t, alice.Email, sus.RecentLocks[0].Email)

	bad, err := e.admin.MaliciousFiles(ctx, root)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, alice.Email, bad[0].OwnerEmail)
}

func TestAdmin_WatchSeesNewEvents(t *testing.T) {
	e := newTestEnv(t)
	root := e.adminAccount(t)

	sub, err := e.admin.Watch(root)
	require.NoError(t, err)
	defer sub.Close()

	e.signup(t, "alice@example.com")

	select {
	case ev := <-sub.C:
		assert.Equal(t, models.ActionSignup, ev.Action)
		assert.Equal(t, "alice@example.com", ev.Email())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}
