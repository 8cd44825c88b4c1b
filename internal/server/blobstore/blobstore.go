// Package blobstore persists sealed envelopes. Two areas exist: the vault
// for files that passed scanning and the quarantine for files that did not.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/google/uuid"
)

type Area string

const (
	AreaVault      Area = "vault"
	AreaQuarantine Area = "quarantine"
)

func (a Area) valid() bool { return a == AreaVault || a == AreaQuarantine }

// Store holds sealed blobs by area and generated name.
type Store interface {
	// Commit takes ownership of the sealed file at localPath and makes it
	// durable under area/name. localPath is gone after a successful call.
	Commit(ctx context.Context, area Area, name, localPath string) error
	// Open returns the sealed bytes or common.ErrNotFound.
	Open(ctx context.Context, area Area, name string) (io.ReadCloser, error)
	// Delete removes the blob or returns common.ErrNotFound.
	Delete(ctx context.Context, area Area, name string) error
}

// NewStorageName returns a collision-resistant name that carries nothing
// of the uploaded file's own name.
func NewStorageName(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), strings.ReplaceAll(uuid.NewString(), "-", ""))
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func checkKey(area Area, name string) error {
	if !area.valid() {
		return fmt.Errorf("%w: unknown area %q", common.ErrValidation, area)
	}
	if !validName.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: invalid storage name", common.ErrValidation)
	}
	return nil
}
