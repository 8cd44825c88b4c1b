// Package lockout holds the authentication lock state machine. It mutates
// an account record in place; persisting the result (under a row lock) is
// the caller's job.
//
//	Active --MaxAttempts failures--> BruteForceLocked
//	BruteForceLocked --Cooldown elapsed, next attempt--> Active
//	Active|BruteForceLocked --admin lock--> AdminLocked
//	BruteForceLocked|AdminLocked --admin unlock--> Active
package lockout

import (
	"time"

	"github.com/SakshiM22/secure-vault/internal/server/models"
)

const (
	DefaultMaxAttempts = 3
	DefaultCooldown    = 30 * time.Minute
)

type Policy struct {
	MaxAttempts int
	Cooldown    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Cooldown: DefaultCooldown}
}

// Decision is the outcome of Gate.
type Decision int

const (
	// Open means credentials may be checked.
	Open Decision = iota
	BlockedAdmin
	BlockedBruteForce
)

func (d Decision) String() string {
	switch d {
	case Open:
		return "open"
	case BlockedAdmin:
		return "blocked_admin"
	case BlockedBruteForce:
		return "blocked_brute_force"
	}
	return "unknown"
}

// Gate decides whether an authentication attempt may proceed, before any
// credential check. An expired brute-force lock is cleared on acc and
// reported through unlocked. Admin locks never expire.
func (p Policy) Gate(acc *models.Account, now time.Time) (d Decision, unlocked bool) {
	switch acc.LockState {
	case models.LockAdminLocked:
		return BlockedAdmin, false
	case models.LockBruteForceLocked:
		if acc.LockTime != nil && now.Sub(*acc.LockTime) < p.Cooldown {
			return BlockedBruteForce, false
		}
		reset(acc)
		return Open, true
	}
	return Open, false
}

// RecordFailure counts a failed credential check and reports whether the
// account has just become brute-force locked.
func (p Policy) RecordFailure(acc *models.Account, now time.Time) bool {
	acc.FailedAttempts++
	if acc.FailedAttempts < p.MaxAttempts {
		return false
	}
	t := now
	acc.LockState = models.LockBruteForceLocked
	acc.LockTime = &t
	return true
}

// RecordSuccess resets the failure counter. The state is left alone.
func (p Policy) RecordSuccess(acc *models.Account) {
	acc.FailedAttempts = 0
}

// AdminLock moves acc to AdminLocked and reports whether anything changed.
func AdminLock(acc *models.Account, now time.Time) bool {
	if acc.LockState == models.LockAdminLocked {
		return false
	}
	t := now
	acc.LockState = models.LockAdminLocked
	acc.FailedAttempts = 0
	acc.LockTime = &t
	return true
}

// AdminUnlock returns acc to Active regardless of elapsed time and reports
// whether anything changed.
func AdminUnlock(acc *models.Account) bool {
	if acc.LockState == models.LockActive && acc.FailedAttempts == 0 && acc.LockTime == nil {
		return false
	}
	reset(acc)
	return true
}

func reset(acc *models.Account) {
	acc.LockState = models.LockActive
	acc.FailedAttempts = 0
	acc.LockTime = nil
}
