package aer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/aerlab/aerdctl/internal/preprocess"
)

const preloadStateFile = ".preload.json"

// Base carries the bookkeeping shared by dataset implementations:
// signal sets and metadata, expected responses, preprocessor maps,
// offsets, the loaded trial collection, and working-dir state.
// Implementations embed *Base and provide Preload/LoadTrials on top of
// its helpers.
type Base struct {
	name     string
	workRoot string

	signals    []string
	metadata   map[string]SignalMetadata
	expected   map[int]Quadrant
	mediaNames map[int]string

	preprocessors map[string]preprocess.Preprocessor

	participantOff int
	mediaOff       int

	trials    []Trial
	preloaded bool
}

// NewBase constructs dataset bookkeeping for the named corpus rooted at
// workRoot (the toolkit working directory, not the corpus path).
func NewBase(name, workRoot string, signals []string, metadata map[string]SignalMetadata, expected map[int]Quadrant) *Base {
	if metadata == nil {
		metadata = make(map[string]SignalMetadata)
	}
	if expected == nil {
		expected = make(map[int]Quadrant)
	}
	return &Base{
		name:          name,
		workRoot:      workRoot,
		signals:       append([]string(nil), signals...),
		metadata:      metadata,
		expected:      expected,
		mediaNames:    make(map[int]string),
		preprocessors: make(map[string]preprocess.Preprocessor),
	}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Signals() []string { return b.signals }

// HasSignal reports whether the dataset instance loads the signal type.
func (b *Base) HasSignal(signal string) bool {
	for _, s := range b.signals {
		if s == signal {
			return true
		}
	}
	return false
}

func (b *Base) SignalMetadata(signal string) (SignalMetadata, bool) {
	meta, ok := b.metadata[signal]
	return meta, ok
}

func (b *Base) SetSignalMetadata(signal string, meta SignalMetadata) {
	b.metadata[signal] = meta
}

func (b *Base) ExpectedResponses() map[int]Quadrant { return b.expected }

func (b *Base) Preprocessors() map[string]preprocess.Preprocessor { return b.preprocessors }

func (b *Base) ParticipantOffset() int { return b.participantOff }

func (b *Base) SetParticipantOffset(offset int) { b.participantOff = offset }

func (b *Base) MediaOffset() int { return b.mediaOff }

func (b *Base) SetMediaOffset(offset int) { b.mediaOff = offset }

func (b *Base) Trials() []Trial { return b.trials }

// SetTrials replaces the trial collection after filtering.
func (b *Base) SetTrials(trials []Trial) { b.trials = trials }

// MediaName resolves an offset-adjusted media id back to its display name.
func (b *Base) MediaName(mediaID int) (string, bool) {
	name, ok := b.mediaNames[mediaID-b.mediaOff]
	return name, ok
}

// SetMediaName records the display name for a native media id.
func (b *Base) SetMediaName(nativeMediaID int, name string) {
	b.mediaNames[nativeMediaID] = name
}

// ParticipantIDs returns the sorted offset-adjusted participant ids
// inferred from the loaded trials.
func (b *Base) ParticipantIDs() []int {
	return collectIDs(b.trials, Trial.ParticipantID)
}

// MediaIDs returns the sorted offset-adjusted media ids inferred from the
// loaded trials.
func (b *Base) MediaIDs() []int {
	return collectIDs(b.trials, Trial.MediaID)
}

func collectIDs(trials []Trial, id func(Trial) int) []int {
	seen := make(map[int]struct{}, len(trials))
	for _, t := range trials {
		seen[id(t)] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for v := range seen {
		ids = append(ids, v)
	}
	sort.Ints(ids)
	return ids
}

// WorkingDir returns (and creates) the dataset's working directory under
// the toolkit working root.
func (b *Base) WorkingDir() (string, error) {
	dir := filepath.Join(b.workRoot, b.name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("aer: create working dir %s: %w", dir, err)
	}
	return dir, nil
}

// PreloadNeeded reports whether the implementation's preload hook must
// run: false once the working dir's preload state already covers this
// instance's signal set.
func (b *Base) PreloadNeeded() (bool, error) {
	if b.preloaded {
		return false, nil
	}
	dir, err := b.WorkingDir()
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(filepath.Join(dir, preloadStateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("aer: read preload state: %w", err)
	}
	var done []string
	if err := json.Unmarshal(data, &done); err != nil {
		return false, fmt.Errorf("aer: parse preload state: %w", err)
	}
	covered := make(map[string]struct{}, len(done))
	for _, s := range done {
		covered[s] = struct{}{}
	}
	for _, s := range b.signals {
		if _, ok := covered[s]; !ok {
			return true, nil
		}
	}
	b.preloaded = true
	return false, nil
}

// MarkPreloaded records this instance's signal set in the working dir's
// preload state.
func (b *Base) MarkPreloaded() error {
	dir, err := b.WorkingDir()
	if err != nil {
		return err
	}
	data, err := json.Marshal(b.signals)
	if err != nil {
		return fmt.Errorf("aer: encode preload state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, preloadStateFile), data, 0o644); err != nil {
		return fmt.Errorf("aer: write preload state: %w", err)
	}
	b.preloaded = true
	return nil
}

// FinishLoad applies filters to the freshly loaded trials and stores the
// survivors.
func (b *Base) FinishLoad(trials []Trial, filters []TrialFilter) {
	if len(filters) == 0 {
		b.trials = trials
		return
	}
	kept := make([]Trial, 0, len(trials))
	for _, t := range trials {
		keep := true
		for _, f := range filters {
			if !f(t) {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, t)
		}
	}
	log.Debug().
		Str("dataset", b.name).
		Int("loaded", len(trials)).
		Int("kept", len(kept)).
		Msg("trials filtered")
	b.trials = kept
}

// PathSpec selects one working-dir location. Participant/media ids are
// 1-based in the supported corpora, so zero means unset. Trial-scoped ids
// carry offsets and are mapped back to native ids; dataset-scoped ids are
// used as-is.
type PathSpec struct {
	TrialParticipantID   int
	DatasetParticipantID int
	TrialMediaID         int
	DatasetMediaID       int
	MediaName            string
	Signal               string
	Baseline             bool
}

// WorkingPath resolves a PathSpec to a concrete path under the dataset
// working dir, creating intermediate directories.
func (b *Base) WorkingPath(spec PathSpec) (string, error) {
	hasMedia := spec.TrialMediaID != 0 || spec.DatasetMediaID != 0 || spec.MediaName != ""
	hasParticipant := spec.TrialParticipantID != 0 || spec.DatasetParticipantID != 0

	if spec.TrialMediaID != 0 && !hasParticipant {
		return "", fmt.Errorf("%w: media id requires a participant id", ErrInvalidPath)
	}
	if spec.Signal != "" {
		if !hasMedia {
			return "", fmt.Errorf("%w: signal type requires a media reference", ErrInvalidPath)
		}
		if !b.HasSignal(spec.Signal) {
			return "", fmt.Errorf("%w: %s", ErrUnknownSignal, spec.Signal)
		}
	}

	dir, err := b.WorkingDir()
	if err != nil {
		return "", err
	}

	if spec.TrialParticipantID != 0 {
		dir = filepath.Join(dir, fmt.Sprintf("Participant_%02d", spec.TrialParticipantID-b.participantOff))
	} else if spec.DatasetParticipantID != 0 {
		dir = filepath.Join(dir, fmt.Sprintf("Participant_%02d", spec.DatasetParticipantID))
	}

	switch {
	case spec.TrialMediaID != 0:
		dir = filepath.Join(dir, fmt.Sprintf("Media_%02d", spec.TrialMediaID-b.mediaOff))
	case spec.DatasetMediaID != 0:
		dir = filepath.Join(dir, fmt.Sprintf("Media_%02d", spec.DatasetMediaID))
	case spec.MediaName != "":
		dir = filepath.Join(dir, "Media_"+spec.MediaName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("aer: create working path %s: %w", dir, err)
	}

	if spec.Signal != "" {
		variant := "stimuli"
		if spec.Baseline {
			variant = "baseline"
		}
		return filepath.Join(dir, fmt.Sprintf("%s_%s.npy", spec.Signal, variant)), nil
	}
	return dir, nil
}
