package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aerlab/aerdctl/internal/testutil/testlog"
)

func TestJoinCommandEscaping(t *testing.T) {
	testlog.Start(t)

	got := joinCommand("cat", []string{"a b", "quote'v"})
	want := "'cat' 'a b' 'quote'\"'\"'v'"
	if got != want {
		t.Fatalf("unexpected joined command\nwant: %s\ngot:  %s", want, got)
	}
}

func TestSSHRunnerAddressValidation(t *testing.T) {
	testlog.Start(t)

	r := SSHRunner{}
	if _, err := r.address(); err == nil {
		t.Fatalf("expected host validation error")
	}

	r.Host = "archive-host"
	addr, err := r.address()
	if err != nil {
		t.Fatalf("unexpected address error: %v", err)
	}
	if addr != "archive-host:22" {
		t.Fatalf("expected default ssh port, got %q", addr)
	}
}

func TestSSHRunnerClientConfigValidation(t *testing.T) {
	testlog.Start(t)

	r := SSHRunner{Host: "archive-host"}
	if _, err := r.clientConfig(); err == nil {
		t.Fatalf("expected missing user validation error")
	}
}

func TestStageLocal(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("needs cat")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "archive.zip")
	payload := []byte("dreamer archive payload")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(payload)

	dst := filepath.Join(dir, "staged", "archive.zip")
	err := Stage(LocalRunner{}, src, dst, Options{Checksum: hex.EncodeToString(sum[:])})
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Fatalf("staged payload mismatch")
	}

	if err := Verify(dst, hex.EncodeToString(sum[:])); err != nil {
		t.Fatal(err)
	}
}

// scriptedRunner answers Run with a canned sha256sum line and streams a
// fixed payload, standing in for an archive host.
type scriptedRunner struct {
	payload []byte
	sumLine string
}

func (r scriptedRunner) Run(cmd string, args ...string) (string, error) {
	return r.sumLine, nil
}

func (r scriptedRunner) RunStreaming(cmd string, args []string, stdout, stderr io.Writer) error {
	_, err := stdout.Write(r.payload)
	return err
}

func TestStageRemoteChecksum(t *testing.T) {
	testlog.Start(t)

	payload := []byte("cuads archive payload")
	sum := sha256.Sum256(payload)
	sumHex := hex.EncodeToString(sum[:])

	dir := t.TempDir()
	dst := filepath.Join(dir, "archive.zip")
	runner := scriptedRunner{payload: payload, sumLine: sumHex + "  /srv/archives/archive.zip\n"}
	if err := Stage(runner, "/srv/archives/archive.zip", dst, Options{}); err != nil {
		t.Fatal(err)
	}
	if err := Verify(dst, sumHex); err != nil {
		t.Fatal(err)
	}

	// A host reporting a different sum than what arrived means the
	// stream was corrupted or truncated.
	truncated := scriptedRunner{payload: payload[:4], sumLine: runner.sumLine}
	err := Stage(truncated, "/srv/archives/archive.zip", filepath.Join(dir, "bad.zip"), Options{})
	if err == nil {
		t.Fatal("expected checksum error for truncated stream")
	}

	garbled := scriptedRunner{payload: payload, sumLine: "sha256sum: /srv/archives/archive.zip: No such file\n"}
	_, err = RemoteChecksum(garbled, "/srv/archives/archive.zip")
	if err == nil {
		t.Fatal("expected parse error for malformed sha256sum output")
	}
}

func TestStageRemoteChecksumLocal(t *testing.T) {
	testlog.Start(t)
	if _, err := exec.LookPath("sha256sum"); err != nil {
		t.Skip("needs sha256sum")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "archive.zip")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "staged.zip")
	if err := Stage(LocalRunner{}, src, dst, Options{}); err != nil {
		t.Fatal(err)
	}
}

func TestStageChecksumMismatch(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("needs cat")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "archive.zip")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "archive-out.zip")
	err := Stage(LocalRunner{}, src, dst, Options{Checksum: "deadbeef"})
	if err == nil {
		t.Fatal("expected checksum error")
	}
	if _, statErr := os.Stat(dst); statErr == nil {
		t.Fatal("destination should not exist after failed stage")
	}
}

func TestStageValidation(t *testing.T) {
	testlog.Start(t)

	if err := Stage(LocalRunner{}, "", "out", Options{}); err == nil {
		t.Fatal("expected path validation error")
	}
}
