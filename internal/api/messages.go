package api

import "time"

const (
	// ChunkSize is the payload size of upload and download frames.
	ChunkSize = 64 * 1024
	// MaxMessageSize bounds one encoded frame.
	MaxMessageSize = 4 * 1024 * 1024

	OutcomeAccepted = "accepted"
	OutcomeBlocked  = "blocked"

	DispositionAttachment = "attachment"
	DispositionInline     = "inline"
)

type Empty struct{}

type Credentials struct {
	Email    string `cbor:"email"`
	Password string `cbor:"password"`
}

type Account struct {
	ID             string     `cbor:"id"`
	Email          string     `cbor:"email"`
	Role           string     `cbor:"role"`
	LockState      string     `cbor:"lock_state"`
	FailedAttempts int        `cbor:"failed_attempts"`
	LockTime       *time.Time `cbor:"lock_time,omitempty"`
	TokenVersion   int64      `cbor:"token_version"`
	CreatedAt      time.Time  `cbor:"created_at"`
}

type AccountResponse struct {
	Account Account `cbor:"account"`
}

type LoginResponse struct {
	Token   string  `cbor:"token"`
	Account Account `cbor:"account"`
}

// UploadHeader must be the first frame of an upload; later frames carry
// only Chunk.
type UploadHeader struct {
	Name        string `cbor:"name"`
	ContentType string `cbor:"content_type"`
	Size        int64  `cbor:"size"`
}

type UploadFrame struct {
	Header *UploadHeader `cbor:"header,omitempty"`
	Chunk  []byte        `cbor:"chunk,omitempty"`
}

type File struct {
	ID          string    `cbor:"id"`
	Name        string    `cbor:"name"`
	ContentType string    `cbor:"content_type"`
	Size        int64     `cbor:"size"`
	Status      string    `cbor:"status"`
	CreatedAt   time.Time `cbor:"created_at"`
}

// UploadResponse reports Outcome "accepted" with File, or "blocked" with
// EngineHits.
type UploadResponse struct {
	Outcome    string `cbor:"outcome"`
	File       *File  `cbor:"file,omitempty"`
	EngineHits int    `cbor:"engine_hits,omitempty"`
}

type ListFilesResponse struct {
	Files []File `cbor:"files"`
}

type FileRequest struct {
	ID string `cbor:"id"`
}

type DownloadHeader struct {
	Name        string `cbor:"name"`
	ContentType string `cbor:"content_type"`
	Size        int64  `cbor:"size"`
	Disposition string `cbor:"disposition"`
}

// DownloadFrame carries the header in the first frame and data after it.
type DownloadFrame struct {
	Header *DownloadHeader `cbor:"header,omitempty"`
	Chunk  []byte          `cbor:"chunk,omitempty"`
}

type AccountRequest struct {
	ID string `cbor:"id"`
}

type ListAccountsResponse struct {
	Accounts []Account `cbor:"accounts"`
}

type AuditLogRequest struct {
	Limit int `cbor:"limit,omitempty"`
}

type Event struct {
	ID        int64     `cbor:"id"`
	Email     string    `cbor:"email,omitempty"`
	Action    string    `cbor:"action"`
	Outcome   string    `cbor:"outcome"`
	Origin    string    `cbor:"origin,omitempty"`
	CreatedAt time.Time `cbor:"created_at"`
}

type AuditLogResponse struct {
	Events []Event `cbor:"events"`
}

type AnalyticsResponse struct {
	TotalAccounts   int64 `cbor:"total_accounts"`
	LockedAccounts  int64 `cbor:"locked_accounts"`
	SafeUploads     int64 `cbor:"safe_uploads"`
	TotalDownloads  int64 `cbor:"total_downloads"`
	FailedLogins24h int64 `cbor:"failed_logins_24h"`
	LockEvents24h   int64 `cbor:"lock_events_24h"`
	MaliciousFiles  int64 `cbor:"malicious_files"`
}

type MaliciousFile struct {
	ID         string    `cbor:"id"`
	Name       string    `cbor:"name"`
	OwnerID    string    `cbor:"owner_id"`
	OwnerEmail string    `cbor:"owner_email"`
	EngineHits int       `cbor:"engine_hits"`
	CreatedAt  time.Time `cbor:"created_at"`
}

type MaliciousFilesResponse struct {
	Files []MaliciousFile `cbor:"files"`
}

type EmailCount struct {
	Email string `cbor:"email"`
	Count int64  `cbor:"count"`
}

type AddrCount struct {
	Addr  string `cbor:"addr"`
	Count int64  `cbor:"count"`
}

type LockRecord struct {
	Email     string    `cbor:"email"`
	CreatedAt time.Time `cbor:"created_at"`
}

type SuspiciousActivityResponse struct {
	FailedLoginEmails []EmailCount `cbor:"failed_login_emails"`
	FailedLoginAddrs  []AddrCount  `cbor:"failed_login_addrs"`
	RecentLocks       []LockRecord `cbor:"recent_locks"`
}
