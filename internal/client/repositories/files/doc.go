// Package files caches the last file listing fetched from the server so the
// CLI can still show it when the server is unreachable.
//
// The cache is replaced wholesale on every successful listing; individual
// rows are only removed when the user deletes a file.
package files
