// Package client contains client-side building blocks for the vault CLI.
//
// # Overview
//
// The package provides:
//  1. The Client interface used by the CLI services to talk to the vault
//     server: auth, file transfer, administration and the live audit feed.
//  2. A gRPC implementation (GRPCClient) that speaks the CBOR codec from
//     internal/api, injects the session token into every call and maps
//     gRPC status codes to sentinel errors.
//  3. Local state bootstrap (InitDatabase, RunMigrations) wiring an SQLite
//     database and applying embedded goose migrations.
//
// # Error Handling
//
// Server answers are exposed as sentinel errors matched with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrLocked, ErrForbidden, ErrInvalidInput,
// ErrConflict, ErrNotFound. The server's message is kept in the wrapped
// error text, e.g. "account locked: account is locked by administrator".
package client
