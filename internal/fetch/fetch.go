// Package fetch stages raw dataset archives from an archive host into
// the local raw-data path. It never touches working directories; the
// staged archive is input for a dataset's own preload.
package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrChecksumMismatch = errors.New("fetch: checksum mismatch")
	ErrEmptyPath        = errors.New("fetch: remote and local paths are required")
)

// Options controls a staging run. Checksum, when set, is the expected
// hex sha256 of the remote file. When it is empty the archive host is
// asked for its own sha256sum of the file and the transfer is checked
// against that, so a truncated stream still fails the stage.
type Options struct {
	Checksum string
}

// Stage streams remotePath from the runner's host into localPath. The
// file is written to a temporary sibling and renamed in place only after
// the transfer and checksum succeed.
func Stage(runner Runner, remotePath, localPath string, opts Options) error {
	if remotePath == "" || localPath == "" {
		return ErrEmptyPath
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("fetch: create staging dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".stage-*")
	if err != nil {
		return fmt.Errorf("fetch: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	start := time.Now()
	hasher := sha256.New()

	var stderr strings.Builder
	err = runner.RunStreaming("cat", []string{remotePath}, io.MultiWriter(tmp, hasher), &stderr)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("fetch: stream %s: %w: %s", remotePath, err, msg)
		}
		return fmt.Errorf("fetch: stream %s: %w", remotePath, err)
	}

	want := opts.Checksum
	if want == "" {
		want, err = RemoteChecksum(runner, remotePath)
		if err != nil {
			return err
		}
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(sum, want) {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, sum, want)
	}

	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("fetch: finalize %s: %w", localPath, err)
	}

	log.Info().
		Str("remote", remotePath).
		Str("local", localPath).
		Str("sha256", sum).
		Dur("elapsed", time.Since(start)).
		Msg("archive staged")
	return nil
}

// RemoteChecksum asks the runner's host for the sha256 of remotePath,
// using the coreutils sha256sum output format.
func RemoteChecksum(runner Runner, remotePath string) (string, error) {
	out, err := runner.Run("sha256sum", remotePath)
	if err != nil {
		if msg := strings.TrimSpace(out); msg != "" {
			return "", fmt.Errorf("fetch: remote checksum %s: %w: %s", remotePath, err, msg)
		}
		return "", fmt.Errorf("fetch: remote checksum %s: %w", remotePath, err)
	}

	sum, _, _ := strings.Cut(strings.TrimSpace(out), " ")
	if len(sum) != sha256.Size*2 {
		return "", fmt.Errorf("fetch: remote checksum %s: unexpected sha256sum output %q", remotePath, strings.TrimSpace(out))
	}
	return sum, nil
}

// Verify recomputes the sha256 of a previously staged archive.
func Verify(localPath, checksum string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("fetch: read %s: %w", localPath, err)
	}
	sum := sha256.Sum256(data)
	got := hex.EncodeToString(sum[:])
	if !strings.EqualFold(got, checksum) {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, got, checksum)
	}
	return nil
}
