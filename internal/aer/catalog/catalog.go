// Package catalog binds configured corpora to the dataset registry. It
// is the only package that knows every concrete dataset type; callers
// work against the registry alone.
package catalog

import (
	"github.com/rs/zerolog/log"

	"github.com/aerlab/aerdctl/internal/aer"
	"github.com/aerlab/aerdctl/internal/aer/cuads"
	"github.com/aerlab/aerdctl/internal/aer/dreamer"
	"github.com/aerlab/aerdctl/internal/config"
)

const (
	DreamerID = "dreamer"
	CuadsID   = "cuads"
)

// Build registers a factory for every dataset block present in cfg.
// Unknown dataset ids are skipped with a warning so a shared config can
// carry entries for tools this build does not include.
func Build(cfg config.Config) (*aer.Registry, error) {
	registry := aer.NewRegistry()

	for id, dc := range cfg.Datasets {
		var (
			meta    aer.Metadata
			factory aer.Factory
		)
		switch id {
		case DreamerID:
			meta = aer.Metadata{
				ID:          DreamerID,
				Name:        dreamer.DatasetName,
				Description: "DREAMER: audio-visual elicitation, ECG+EEG, 23 participants",
			}
			path, signals := dc.Path, dc.Signals
			workRoot := cfg.WorkingDir
			factory = func() (aer.Dataset, error) {
				return dreamer.New(path, workRoot, signals)
			}
		case CuadsID:
			meta = aer.Metadata{
				ID:          CuadsID,
				Name:        cuads.DatasetName,
				Description: "CUADS: three-channel ECG, 38 participants",
			}
			path := dc.Path
			workRoot := cfg.WorkingDir
			factory = func() (aer.Dataset, error) {
				return cuads.New(path, workRoot)
			}
		default:
			log.Warn().Str("dataset", id).Msg("unknown dataset id in config, skipping")
			continue
		}

		if err := registry.Register(meta, factory); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
