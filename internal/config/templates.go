package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "toolkit":
		return toolkitTemplate, nil
	case "serve":
		return serveTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const toolkitTemplate = `working_dir = "local/work"

[datasets.dreamer]
path = "/data/DREAMER/DREAMER.json"
signals = ["ECG", "EEG"]

[datasets.cuads]
path = "/data/CUADS"
signals = ["ECG"]
`

const serveTemplate = `addr = ":9300"
cors_origins = ["http://localhost:3000"]
auth_token = ""
config = "aerd.toml"
datasets = ["dreamer", "cuads"]
`
