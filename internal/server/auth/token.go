// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SakshiM22/secure-vault/internal/clockx"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = time.Hour

// Claims carries the account snapshot a token was issued for. TokenVersion
// is compared with the stored value on every request.
type Claims struct {
	jwt.RegisteredClaims
	AccountID    string      `json:"aid"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	TokenVersion int64       `json:"tv"`
}

// AccountReader is the lookup Verify needs.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

type TokenService struct {
	secret   []byte
	ttl      time.Duration
	clock    clockx.Clock
	accounts AccountReader
}

func NewTokenService(secret []byte, ttl time.Duration, clock clockx.Clock, accounts AccountReader) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: token secret is empty", common.ErrConfiguration)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: secret, ttl: ttl, clock: clock, accounts: accounts}, nil
}

func (s *TokenService) Issue(acc *models.Account) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		AccountID:    acc.ID,
		Email:        acc.Email,
		Role:         acc.Role,
		TokenVersion: acc.TokenVersion,
	})
	return token.SignedString(s.secret)
}

// Parse checks signature and expiry only.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.AccountID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// Verify parses the token and re-reads the account it names. The account's
// current state (role, lock) is returned, not the snapshot in the token.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*models.Account, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, err
	}

	if acc.TokenVersion != claims.TokenVersion {
		return nil, common.ErrSessionInvalidated
	}
	return acc, nil
}
