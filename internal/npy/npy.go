// Package npy persists signal matrices as NumPy .npy files so working-dir
// intermediates stay readable by the numpy-based tooling the corpora ship
// with.
package npy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Save writes m to path as a .npy file. The write is staged through a temp
// file in the same directory and renamed into place so partially written
// intermediates never survive a crash.
func Save(path string, m *mat.Dense) error {
	if m == nil {
		return fmt.Errorf("npy: nil matrix for %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("npy: mkdir for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".npy-*")
	if err != nil {
		return fmt.Errorf("npy: temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if err := npyio.Write(tmp, m); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("npy: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("npy: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("npy: rename %s: %w", path, err)
	}
	return nil
}

// Load reads a 2D .npy file from path.
func Load(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npy: open %s: %w", path, err)
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("npy: read %s: %w", path, err)
	}
	return &m, nil
}
