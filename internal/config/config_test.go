package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aerd.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[datasets.dreamer]
path = "/data/DREAMER/DREAMER.json"
signals = ["ECG"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkingDir != filepath.Join("local", "work") {
		t.Fatalf("unexpected working_dir default: %q", cfg.WorkingDir)
	}
	dc, ok := cfg.Dataset("dreamer")
	if !ok || dc.Path != "/data/DREAMER/DREAMER.json" {
		t.Fatalf("dataset block not loaded: ok=%v path=%q", ok, dc.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadRejectsDatasetWithoutPath(t *testing.T) {
	path := writeConfig(t, `
working_dir = "work"

[datasets.cuads]
signals = ["ECG"]
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "cuads") {
		t.Fatalf("expected cuads validation error, got %v", err)
	}
}

func TestWriteTemplateValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aerd.toml")
	if err := WriteTemplate(path, "toolkit", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "toolkit", false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if _, ok := cfg.Dataset("dreamer"); !ok {
		t.Fatalf("template missing dreamer block")
	}
	if _, err := Template("bogus"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestCheckServeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.toml")
	if err := WriteTemplate(path, "serve", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := CheckServeFile(path); err != nil {
		t.Fatalf("check template: %v", err)
	}

	bad := writeConfig(t, `addr = 9300`)
	if err := CheckServeFile(bad); err == nil {
		t.Fatalf("expected type error for numeric addr")
	}
}
