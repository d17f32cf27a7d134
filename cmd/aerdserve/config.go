package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aerlab/aerdctl/internal/config"
	"github.com/aerlab/aerdctl/internal/serve"
)

type fileConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	AuthToken   string   `toml:"auth_token"`
	Config      string   `toml:"config"`
	Datasets    []string `toml:"datasets"`
}

// serveConfig is the fully resolved server configuration: listener
// options plus the toolkit config path and the served dataset ids.
type serveConfig struct {
	Options    serve.Options
	ConfigPath string
	Datasets   []string
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		Options:    serve.Options{Addr: ":9300"},
		ConfigPath: config.DefaultConfigPath(),
	}
}

func loadServeConfig(path string) (serveConfig, error) {
	cfg := defaultServeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serveConfig{}, fmt.Errorf("load serve config: %w", err)
	}

	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Options.Addr = addr
		}
	}

	if meta.IsDefined("cors_origins") {
		cfg.Options.CorsOrigins = normalizeList(raw.CorsOrigins)
	}

	if meta.IsDefined("auth_token") {
		cfg.Options.AuthToken = strings.TrimSpace(raw.AuthToken)
	}

	if meta.IsDefined("config") {
		if p := strings.TrimSpace(raw.Config); p != "" {
			cfg.ConfigPath = p
		}
	}

	if meta.IsDefined("datasets") {
		cfg.Datasets = normalizeList(raw.Datasets)
	}

	return cfg, nil
}

// restrictDatasets trims a toolkit config down to the datasets the
// server is told to expose. An empty list exposes everything.
func restrictDatasets(cfg config.Config, ids []string) config.Config {
	if len(ids) == 0 {
		return cfg
	}
	kept := make(map[string]config.DatasetConfig, len(ids))
	for _, id := range ids {
		if dc, ok := cfg.Datasets[id]; ok {
			kept[id] = dc
		}
	}
	cfg.Datasets = kept
	return cfg
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
