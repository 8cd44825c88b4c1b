package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SakshiM22/secure-vault/internal/clockx"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	byID map[string]*models.Account
	err  error
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return a.Clone(), nil
}

func newService(t *testing.T) (*TokenService, *clockx.Fake, *fakeAccounts) {
	t.Helper()
	clock := clockx.NewFake(time.Now().UTC().Truncate(time.Second))
	accs := &fakeAccounts{byID: map[string]*models.Account{
		"a1": {ID: "a1", Email: "alice@example.com", Role: models.RoleUser, TokenVersion: 2},
	}}
	s, err := NewTokenService([]byte("super-secret"), time.Hour, clock, accs)
	require.NoError(t, err)
	return s, clock, accs
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	_, err := NewTokenService(nil, time.Hour, clockx.Real(), &fakeAccounts{})
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestIssueVerify_Success(t *testing.T) {
	s, _, accs := newService(t)

	tok, err := s.Issue(accs.byID["a1"])
	require.NoError(t, err)

	claims, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, int64(2), claims.TokenVersion)

	acc, err := s.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "a1", acc.ID)
}

func TestVerify_Expired(t *testing.T) {
	s, clock, accs := newService(t)

	tok, err := s.Issue(accs.byID["a1"])
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)
	_, err = s.Verify(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_SessionInvalidated(t *testing.T) {
	s, _, accs := newService(t)

	tok, err := s.Issue(accs.byID["a1"])
	require.NoError(t, err)

	accs.byID["a1"].TokenVersion++
	_, err = s.Verify(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrSessionInvalidated)
}

func TestVerify_AccountGone(t *testing.T) {
	s, _, accs := newService(t)

	tok, err := s.Issue(accs.byID["a1"])
	require.NoError(t, err)

	delete(accs.byID, "a1")
	_, err = s.Verify(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestVerify_StoreError(t *testing.T) {
	s, _, accs := newService(t)

	tok, err := s.Issue(accs.byID["a1"])
	require.NoError(t, err)

	accs.err = errors.New("db down")
	_, err = s.Verify(context.Background(), tok)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_BadTokens(t *testing.T) {
	s, _, accs := newService(t)

	other, err := NewTokenService([]byte("other-secret"), time.Hour, clockx.Real(), accs)
	require.NoError(t, err)
	foreign, err := other.Issue(accs.byID["a1"])
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AccountID: "a1", TokenVersion: 2})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"malformed":    "not.a.jwt",
		"empty":        "",
		"wrong secret": foreign,
		"alg none":     unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(context.Background(), tok)
			require.ErrorIs(t, err, common.ErrInvalidToken)
		})
	}
}
