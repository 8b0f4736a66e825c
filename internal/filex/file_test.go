package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "vault", "data")

	got, err := EnsureDir(target)
	require.NoError(t, err)
	require.Equal(t, target, got)

	fi, err := os.Stat(target)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "sub")

	_, err := EnsureDir(target)
	require.NoError(t, err)
	_, err = EnsureDir(target)
	require.NoError(t, err)
}

func TestWriteAtomic_CreatesFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "container.nkv")

	require.NoError(t, WriteAtomic(path, []byte("payload-1"), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("payload-1"), got)
}

func TestWriteAtomic_ReplacesExisting(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "container.nkv")

	require.NoError(t, WriteAtomic(path, []byte("old"), 0o600))
	require.NoError(t, WriteAtomic(path, []byte("new-content"), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("new-content"), got)
}

func TestWriteAtomic_LeavesNoTempFiles(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "container.nkv")

	require.NoError(t, WriteAtomic(path, []byte("x"), 0o600))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "container.nkv", entries[0].Name())
}

func TestWriteAtomic_FailureKeepsOldContent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are advisory on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	tmp := t.TempDir()
	path := filepath.Join(tmp, "container.nkv")
	require.NoError(t, WriteAtomic(path, []byte("original"), 0o600))

	// Make the directory unwritable so the temp file cannot be created.
	require.NoError(t, os.Chmod(tmp, 0o500))
	t.Cleanup(func() { _ = os.Chmod(tmp, 0o700) })

	err := WriteAtomic(path, []byte("should-not-land"), 0o600)
	require.Error(t, err)

	require.NoError(t, os.Chmod(tmp, 0o700))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)
}
