package models

import "time"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeBlocked Outcome = "blocked"
	OutcomeLocked  Outcome = "locked"
	OutcomeError   Outcome = "error"
)

// Audit action tags.
const (
	ActionSignup          = "signup"
	ActionLogin           = "login"
	ActionAccountLock     = "account_lock"
	ActionAccountUnlock   = "account_unlock"
	ActionFileUpload      = "file_upload"
	ActionMalwareDetected = "malware_detected"
	ActionFileDownload    = "file_download"
	ActionFilePreview     = "file_preview"
	ActionFileDelete      = "file_delete"
	ActionAdminLock       = "admin_lock"
	ActionAdminUnlock     = "admin_unlock"
	ActionRoleChange      = "role_change"
	ActionForceLogout     = "force_logout"
	ActionAccountDelete   = "account_delete"
)

// AuditEvent is an append-only log record. Accounts are referenced by email
// so history outlives the account.
type AuditEvent struct {
	ID         int64
	ActorEmail *string
	Action     string
	Outcome    Outcome
	OriginAddr string
	CreatedAt  time.Time
}

// NewAuditEvent builds an event; an empty email is stored as NULL.
func NewAuditEvent(email, action string, outcome Outcome, origin string) AuditEvent {
	ev := AuditEvent{Action: action, Outcome: outcome, OriginAddr: origin}
	if email != "" {
		ev.ActorEmail = &email
	}
	return ev
}

// Email returns the actor email or "".
func (e AuditEvent) Email() string {
	if e.ActorEmail == nil {
		return ""
	}
	return *e.ActorEmail
}

type Analytics struct {
	TotalAccounts   int64
	LockedAccounts  int64
	SafeUploads     int64
	TotalDownloads  int64
	FailedLogins24h int64
	LockEvents24h   int64
	MaliciousFiles  int64
}

type EmailCount struct {
	Email string
	Count int64
}

type AddrCount struct {
	Addr  string
	Count int64
}

type LockRecord struct {
	Email     string
	CreatedAt time.Time
}

type SuspiciousActivity struct {
	FailedLoginEmails []EmailCount
	FailedLoginAddrs  []AddrCount
	RecentLocks       []LockRecord
}
