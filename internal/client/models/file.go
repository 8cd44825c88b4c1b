// Package models defines the records the client keeps in its local state
// database.
package models

import "time"

// File is the cached listing entry for one remote file. Only metadata is
// kept locally; file contents are never cached.
type File struct {
	ID          string
	Name        string
	ContentType string
	Size        int64
	Status      string
	CreatedAt   time.Time
}

// Blocked reports whether the server quarantined the file.
func (f *File) Blocked() bool { return f.Status == "malicious" }
