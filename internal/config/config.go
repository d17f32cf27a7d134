package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// EnvConfigPath overrides the default config file location.
	EnvConfigPath = "AERD_CONFIG_PATH"

	// DefaultPath is the config file looked up in the current directory.
	DefaultPath = "aerd.toml"
)

// Config is the toolkit-wide configuration loaded from aerd.toml.
type Config struct {
	WorkingDir string                   `toml:"working_dir"`
	Datasets   map[string]DatasetConfig `toml:"datasets"`
}

// DatasetConfig locates one corpus on disk and selects its signal types.
type DatasetConfig struct {
	Path    string   `toml:"path"`
	Signals []string `toml:"signals"`
}

// DefaultConfigPath resolves the config path from the environment, falling
// back to aerd.toml in the working directory.
func DefaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and validates a Config from the given path.
func Load(path string) (Config, error) {
	var cfg Config
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = filepath.Join("local", "work")
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Dataset returns the configuration block for the named dataset.
func (c Config) Dataset(id string) (DatasetConfig, bool) {
	dc, ok := c.Datasets[id]
	return dc, ok
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// ServeFile mirrors the aerdserve config file shape for validation.
type ServeFile struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	AuthToken   string   `toml:"auth_token"`
	Config      string   `toml:"config"`
	Datasets    []string `toml:"datasets"`
}

// CheckServeFile parses a serve config file, surfacing syntax and type
// errors without applying defaults.
func CheckServeFile(path string) error {
	var sf ServeFile
	return loadToml(path, &sf)
}

// Validate checks structural requirements on a loaded config.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.WorkingDir) == "" {
		return fmt.Errorf("config missing working_dir")
	}
	for id, dc := range cfg.Datasets {
		if err := ValidateDatasetEntry(dc); err != nil {
			return fmt.Errorf("dataset %q invalid: %w", id, err)
		}
	}
	return nil
}

// ValidateDatasetEntry checks one dataset block.
func ValidateDatasetEntry(dc DatasetConfig) error {
	if strings.TrimSpace(dc.Path) == "" {
		return fmt.Errorf("path is required")
	}
	for _, sig := range dc.Signals {
		if strings.TrimSpace(sig) == "" {
			return fmt.Errorf("empty signal type")
		}
	}
	return nil
}
