// Package dreamer loads the DREAMER corpus: 23 participants watching 18
// film clips with ECG and EEG recorded, distributed as one large JSON
// document. Preload streams the document participant by participant into
// per-trial .npy intermediates so trial access never touches the raw
// file again.
package dreamer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/aerlab/aerdctl/internal/aer"
	"github.com/aerlab/aerdctl/internal/observability"
)

const (
	// DatasetName names the working directory for DREAMER intermediates.
	DatasetName = "DreamerDataset"

	NumParticipants = 23
	NumMediaFiles   = 18

	ECGSampleRate = 256
	ECGChannels   = 2
	EEGSampleRate = 128
	EEGChannels   = 14

	// Self-reports use a 1..5 scale; 3 counts as high.
	scoreMidpoint = 3
)

var (
	ErrInvalidPath   = errors.New("dreamer: invalid path to DREAMER json file")
	ErrInvalidSignal = errors.New("dreamer: unsupported signal type")
)

var defaultSignalMetadata = map[string]aer.SignalMetadata{
	"ECG": {SampleRate: ECGSampleRate, Channels: ECGChannels},
	"EEG": {SampleRate: EEGSampleRate, Channels: EEGChannels},
}

// Dataset is the DREAMER corpus.
type Dataset struct {
	*aer.Base
	jsonPath string
}

// New constructs a DreamerDataset over the JSON distribution at jsonPath.
// signals selects a subset of {ECG, EEG}; nil loads both.
func New(jsonPath, workRoot string, signals []string) (*Dataset, error) {
	if jsonPath == "" {
		return nil, ErrInvalidPath
	}
	if _, err := os.Stat(jsonPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, jsonPath)
	}
	if len(signals) == 0 {
		signals = []string{"ECG", "EEG"}
	}
	metadata := make(map[string]aer.SignalMetadata, len(signals))
	for _, s := range signals {
		meta, ok := defaultSignalMetadata[s]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignal, s)
		}
		metadata[s] = meta
	}

	log.Debug().Str("path", jsonPath).Strs("signals", signals).Msg("loading DREAMER")

	d := &Dataset{
		Base:     aer.NewBase(DatasetName, workRoot, signals, metadata, expectedResponses),
		jsonPath: jsonPath,
	}
	for id, name := range mediaNames {
		d.SetMediaName(id, name)
	}
	return d, nil
}

// Preload streams the JSON distribution into .npy intermediates and a
// per-participant ratings file under the working dir. Idempotent.
func (d *Dataset) Preload() error {
	needed, err := d.PreloadNeeded()
	if err != nil {
		return err
	}
	if !needed {
		return nil
	}
	err = d.convert()
	observability.RecordPreload(DatasetName, err)
	if err != nil {
		return err
	}
	return d.MarkPreloaded()
}

// LoadTrials builds one trial per participant/clip over the preloaded
// intermediates.
func (d *Dataset) LoadTrials(filters ...aer.TrialFilter) error {
	if err := d.Preload(); err != nil {
		return err
	}

	manifest, err := d.readManifest()
	if err != nil {
		return err
	}

	trials := make([]aer.Trial, 0, manifest.Participants*manifest.Media)
	for p := 1; p <= manifest.Participants; p++ {
		ratings, err := d.readRatings(p, manifest.Media)
		if err != nil {
			return err
		}
		for m := 1; m <= manifest.Media; m++ {
			files := make(map[string]string, len(d.Signals()))
			trial := aer.NewTrial(d, p, m, mediaNames[m],
				expectedResponses[m],
				aer.QuadrantFromScores(ratings.Valence[m-1], ratings.Arousal[m-1], scoreMidpoint, scoreMidpoint),
				files)
			for _, signal := range d.Signals() {
				stimPath, err := d.WorkingPath(aer.PathSpec{
					DatasetParticipantID: p, DatasetMediaID: m, Signal: signal,
				})
				if err != nil {
					return err
				}
				files[signal] = stimPath

				basePath, err := d.WorkingPath(aer.PathSpec{
					DatasetParticipantID: p, DatasetMediaID: m, Signal: signal, Baseline: true,
				})
				if err != nil {
					return err
				}
				trial.SetBaselineFile(signal, basePath)
			}
			trials = append(trials, trial)
		}
	}

	d.FinishLoad(trials, filters)
	observability.RecordTrialsLoaded(DatasetName, len(d.Trials()))
	return nil
}

type ratingsFile struct {
	Valence   []float64 `json:"valence"`
	Arousal   []float64 `json:"arousal"`
	Dominance []float64 `json:"dominance"`
}

func (d *Dataset) ratingsPath(participant int) (string, error) {
	dir, err := d.WorkingPath(aer.PathSpec{DatasetParticipantID: participant})
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ratings.json"), nil
}

func (d *Dataset) readRatings(participant, media int) (ratingsFile, error) {
	path, err := d.ratingsPath(participant)
	if err != nil {
		return ratingsFile{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ratingsFile{}, fmt.Errorf("dreamer: read ratings for participant %d: %w", participant, err)
	}
	var ratings ratingsFile
	if err := json.Unmarshal(data, &ratings); err != nil {
		return ratingsFile{}, fmt.Errorf("dreamer: parse ratings for participant %d: %w", participant, err)
	}
	if len(ratings.Valence) < media || len(ratings.Arousal) < media {
		return ratingsFile{}, fmt.Errorf("dreamer: participant %d ratings cover %d clips, want %d",
			participant, len(ratings.Valence), media)
	}
	return ratings, nil
}
