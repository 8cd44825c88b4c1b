// Package services contains server-side business logic. This file implements
// AccountService, which handles signup, login with lockout and session
// verification.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/SakshiM22/secure-vault/internal/clockx"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/audit"
	"github.com/SakshiM22/secure-vault/internal/server/auth"
	"github.com/SakshiM22/secure-vault/internal/server/lockout"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	MinPasswordLen = 8
	maxEmailLen    = 254
	maxPasswordLen = 72
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// LoginResult is what a successful login hands back.
type LoginResult struct {
	Token   string
	Account *models.Account
}

type AccountService struct {
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	hasher      auth.Hasher
	policy      lockout.Policy
	bus         *audit.Bus
	clock       clockx.Clock
	log         logging.Logger
	dummyHash   string
}

func NewAccountService(m repomanager.RepositoryManager, tokens *auth.TokenService, hasher auth.Hasher,
	policy lockout.Policy, bus *audit.Bus, clock clockx.Clock, log logging.Logger) (*AccountService, error) {

	seed, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	dummy, err := hasher.Hash(seed)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &AccountService{
		repomanager: m,
		tokens:      tokens,
		hasher:      hasher,
		policy:      policy,
		bus:         bus,
		clock:       clock,
		log:         log,
		dummyHash:   dummy,
	}, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", common.ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, MinPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, maxPasswordLen)
	}
	return nil
}

// Signup creates a user account. The store's unique constraint decides
// races between concurrent signups for one email.
func (s *AccountService) Signup(ctx context.Context, email, password, origin string) (*models.Account, error) {
	email = NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		s.bus.Emit(ctx, email, models.ActionSignup, models.OutcomeFailed, origin)
		return nil, err
	}

	acc, err := s.create(ctx, email, password, models.RoleUser)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			s.bus.Emit(ctx, email, models.ActionSignup, models.OutcomeFailed, origin)
			return nil, common.ErrAlreadyExists
		}
		s.log.Error(ctx, "signup failed", "email", email, "error", err)
		s.bus.Emit(ctx, email, models.ActionSignup, models.OutcomeError, origin)
		return nil, common.ErrInternal
	}

	s.log.Info(ctx, "account created", "account", acc.ID)
	s.bus.Emit(ctx, email, models.ActionSignup, models.OutcomeSuccess, origin)
	return acc, nil
}

func (s *AccountService) create(ctx context.Context, email, password string, role models.Role) (*models.Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repomanager.Accounts().Create(ctx, &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		LockState:    models.LockActive,
		CreatedAt:    s.clock.Now(),
	})
}

// BootstrapAdmin creates the initial administrator unless the email is
// already registered. It reports whether an account was created.
func (s *AccountService) BootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	email = NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return false, fmt.Errorf("%w: bootstrap admin: %v", common.ErrConfiguration, err)
	}

	_, err := s.create(ctx, email, password, models.RoleAdmin)
	if errors.Is(err, common.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info(ctx, "bootstrap administrator created", "email", email)
	return true, nil
}

type pendingEvent struct {
	action  string
	outcome models.Outcome
}

// Login checks the password before taking the row lock, so the hash
// comparison never runs inside a transaction. The lock fields are then
// re-read under the row lock, where Gate and the failure counter are applied
// atomically against concurrent attempts for the same email. Audit events
// are emitted after the transaction ends.
func (s *AccountService) Login(ctx context.Context, email, password, origin string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	pre, err := s.repomanager.Accounts().GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		s.log.Error(ctx, "login failed", "email", email, "error", err)
		s.bus.Emit(ctx, email, models.ActionLogin, models.OutcomeError, origin)
		return nil, common.ErrInternal
	}
	if pre == nil {
		s.hasher.Verify(s.dummyHash, password)
		s.bus.Emit(ctx, email, models.ActionLogin, models.OutcomeFailed, origin)
		return nil, common.ErrInvalidCredentials
	}
	passwordOK := s.hasher.Verify(pre.PasswordHash, password)

	var (
		acc      *models.Account
		events   []pendingEvent
		loginErr error
	)
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx repomanager.RepositoryManager) error {
		events, acc, loginErr = nil, nil, nil

		a, err := tx.Accounts().GetByEmailForUpdate(ctx, email)
		if errors.Is(err, common.ErrNotFound) {
			events = append(events, pendingEvent{models.ActionLogin, models.OutcomeFailed})
			loginErr = common.ErrInvalidCredentials
			return nil
		}
		if err != nil {
			return err
		}

		now := s.clock.Now()
		decision, unlocked := s.policy.Gate(a, now)
		switch decision {
		case lockout.BlockedAdmin:
			events = append(events, pendingEvent{models.ActionLogin, models.OutcomeLocked})
			loginErr = common.ErrAccountLockedAdmin
			return nil
		case lockout.BlockedBruteForce:
			events = append(events, pendingEvent{models.ActionLogin, models.OutcomeLocked})
			loginErr = common.ErrAccountLockedBruteForce
			return nil
		}
		if unlocked {
			events = append(events, pendingEvent{models.ActionAccountUnlock, models.OutcomeSuccess})
		}

		ok := passwordOK
		if a.ID != pre.ID || a.PasswordHash != pre.PasswordHash {
			// account replaced since the first read
			ok = s.hasher.Verify(a.PasswordHash, password)
		}

		dirty := unlocked
		if !ok {
			if s.policy.RecordFailure(a, now) {
				events = append(events, pendingEvent{models.ActionAccountLock, models.OutcomeLocked})
				loginErr = common.ErrAccountLockedBruteForce
			} else {
				events = append(events, pendingEvent{models.ActionLogin, models.OutcomeFailed})
				loginErr = common.ErrInvalidCredentials
			}
			return tx.Accounts().UpdateLock(ctx, a.ID, a.LockState, a.FailedAttempts, a.LockTime)
		}

		if a.FailedAttempts != 0 {
			s.policy.RecordSuccess(a)
			dirty = true
		}
		if dirty {
			if err := tx.Accounts().UpdateLock(ctx, a.ID, a.LockState, a.FailedAttempts, a.LockTime); err != nil {
				return err
			}
		}
		acc = a
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "login failed", "email", email, "error", err)
		s.bus.Emit(ctx, email, models.ActionLogin, models.OutcomeError, origin)
		return nil, common.ErrInternal
	}

	for _, ev := range events {
		s.bus.Emit(ctx, email, ev.action, ev.outcome, origin)
	}
	if loginErr != nil {
		return nil, loginErr
	}

	token, err := s.tokens.Issue(acc)
	if err != nil {
		s.log.Error(ctx, "issue token", "account", acc.ID, "error", err)
		s.bus.Emit(ctx, email, models.ActionLogin, models.OutcomeError, origin)
		return nil, common.ErrInternal
	}
	s.bus.Emit(ctx, email, models.ActionLogin, models.OutcomeSuccess, origin)
	return &LoginResult{Token: token, Account: acc}, nil
}

// Authenticate resolves a session token to the current account.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	acc, err := s.tokens.Verify(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidToken),
			errors.Is(err, common.ErrSessionInvalidated),
			errors.Is(err, common.ErrUnauthenticated):
			return nil, err
		}
		s.log.Error(ctx, "verify token", "error", err)
		return nil, common.ErrInternal
	}
	return acc, nil
}
