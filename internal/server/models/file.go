package models

import "time"

type MalwareStatus string

const (
	MalwarePending   MalwareStatus = "pending"
	MalwareSafe      MalwareStatus = "safe"
	MalwareMalicious MalwareStatus = "malicious"
)

// StoredFile is the metadata row for one ingested payload. StorageName is
// a generated key into the vault area (safe files) or the quarantine area
// (malicious files); it never contains the original name.
type StoredFile struct {
	ID           string
	OwnerID      string
	OriginalName string
	StorageName  string
	ContentType  string
	Size         int64
	Status       MalwareStatus
	EngineHits   int
	CreatedAt    time.Time
	// DeletingAt marks a row whose blobs are being removed.
	DeletingAt *time.Time
}

func (f *StoredFile) Clone() *StoredFile {
	c := *f
	if f.DeletingAt != nil {
		t := *f.DeletingAt
		c.DeletingAt = &t
	}
	return &c
}

// MaliciousFile is a quarantined file joined with its owner's email.
type MaliciousFile struct {
	StoredFile
	OwnerEmail string
}
