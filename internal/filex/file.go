// Package filex contains small filesystem helpers shared by the vault and
// attachment layers. The atomic write here is what makes container flushes
// all-or-nothing.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) if missing and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// WriteAtomic writes data to path so that a crash at any point leaves either
// the previous file content or the new one, never a torn mix.
//
// The data is written to a temporary file in the same directory (rename is
// only atomic within one filesystem), fsynced, and then renamed over path.
// The directory entry is fsynced afterwards so the rename itself survives a
// power loss. On any error the temporary file is removed and path is
// untouched.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomicCancelable(path, data, perm, nil)
}

// WriteAtomicCancelable behaves like WriteAtomic, but consults canceled()
// immediately before the final rename. If it returns true the temp file is
// discarded and path stays untouched. This lets a caller enforce a flush
// deadline: a flush abandoned by its caller must never rename late.
func WriteAtomicCancelable(path string, data []byte, perm os.FileMode, canceled func() bool) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if canceled != nil && canceled() {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: canceled", path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}

	syncDir(dir)
	return nil
}

// syncDir fsyncs a directory entry. Errors are ignored: some filesystems
// (and all of Windows) do not support directory fsync.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
