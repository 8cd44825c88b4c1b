// Package models defines server-side records persisted in the database.
package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// LockState is stored as its own column; admin and brute-force locks are
// never inferred from one another.
type LockState string

const (
	LockActive           LockState = "active"
	LockBruteForceLocked LockState = "brute_force_locked"
	LockAdminLocked      LockState = "admin_locked"
)

type Account struct {
	ID             string
	Email          string
	PasswordHash   string
	Role           Role
	LockState      LockState
	FailedAttempts int
	// LockTime is set only while LockState is LockBruteForceLocked or
	// LockAdminLocked.
	LockTime     *time.Time
	TokenVersion int64
	CreatedAt    time.Time
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

func (a *Account) Locked() bool { return a.LockState != LockActive }

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	if a.LockTime != nil {
		t := *a.LockTime
		c.LockTime = &t
	}
	return &c
}
