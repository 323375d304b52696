// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package util holds the file helpers shared by config loading and ecpctl.
package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// MaxReadSize bounds ReadFileSafely; configuration files are far smaller
const MaxReadSize = 1 << 20

// ReadFileSafely reads a regular file of at most MaxReadSize bytes.
func ReadFileSafely(path string) ([]byte, error) {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", clean)
	}
	if info.Size() > MaxReadSize {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", clean, info.Size(), MaxReadSize)
	}
	return os.ReadFile(clean) // #nosec G304
}

// WriteFileAtomic writes data next to path and renames it into place, so
// readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	clean := filepath.Clean(path)
	tmp, err := os.CreateTemp(filepath.Dir(clean), "."+filepath.Base(clean)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, clean); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", clean, err)
	}
	return nil
}
