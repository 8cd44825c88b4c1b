package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnsureSubDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()

	got, err := EnsureSubDir(tmp, "staging")
	require.NoError(t, err)

	want := filepath.Join(tmp, "staging")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "staging")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureDir(path)
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestRemoveOlderThan(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := filepath.Join(dir, "old.tmp")
	fresh := filepath.Join(dir, "fresh.tmp")
	require.NoError(t, os.WriteFile(old, []byte("o"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("f"), 0o600))
	require.NoError(t, os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	n, err := RemoveOlderThan(dir, time.Hour, now, func(string, error) { t.Fatal("unexpected error callback") })
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = os.Stat(old)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "sub"))
	require.NoError(t, err)
}

func TestRemoveOlderThan_MissingDir(t *testing.T) {
	n, err := RemoveOlderThan(filepath.Join(t.TempDir(), "nope"), time.Hour, time.Now(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
}
