// Package metadata is a small key/value store in the client state database.
// The CLI keeps its session (token, email, role) here between runs.
package metadata

import (
	"context"
)

// Session keys.
const (
	KeyToken = "session.token"
	KeyEmail = "session.email"
	KeyRole  = "session.role"
)

type Repository interface {
	// Get returns common.ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
