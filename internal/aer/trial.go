package aer

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/aerlab/aerdctl/internal/npy"
	"github.com/aerlab/aerdctl/internal/observability"
)

// TrialData is the trial implementation shared by corpus datasets: a
// lightweight record pointing at preloaded .npy intermediates, loading
// signal matrices only on demand.
type TrialData struct {
	dataset Dataset

	nativeParticipantID int
	nativeMediaID       int
	mediaName           string

	expected   Quadrant
	selfReport Quadrant

	signalFiles   map[string]string
	baselineFiles map[string]string
}

// NewTrial builds a trial owned by ds. Ids are native (offset-free);
// signalFiles maps signal type to the stimulus .npy path.
func NewTrial(ds Dataset, participantID, mediaID int, mediaName string, expected, selfReport Quadrant, signalFiles map[string]string) *TrialData {
	if signalFiles == nil {
		signalFiles = make(map[string]string)
	}
	return &TrialData{
		dataset:             ds,
		nativeParticipantID: participantID,
		nativeMediaID:       mediaID,
		mediaName:           mediaName,
		expected:            expected,
		selfReport:          selfReport,
		signalFiles:         signalFiles,
		baselineFiles:       make(map[string]string),
	}
}

// SetBaselineFile records the baseline .npy path for a signal type.
func (t *TrialData) SetBaselineFile(signal, path string) {
	t.baselineFiles[signal] = path
}

func (t *TrialData) ParticipantID() int {
	return t.nativeParticipantID + t.dataset.ParticipantOffset()
}

func (t *TrialData) MediaID() int {
	return t.nativeMediaID + t.dataset.MediaOffset()
}

func (t *TrialData) MediaName() string { return t.mediaName }

func (t *TrialData) ExpectedResponse() Quadrant { return t.expected }

func (t *TrialData) SignalTypes() []string {
	types := make([]string, 0, len(t.signalFiles))
	for s := range t.signalFiles {
		types = append(types, s)
	}
	sort.Strings(types)
	return types
}

func (t *TrialData) SignalMetadata(signal string) (SignalMetadata, bool) {
	return t.dataset.SignalMetadata(signal)
}

func (t *TrialData) LoadSignalData(signal string) (*mat.Dense, error) {
	start := time.Now()
	sig, err := t.loadRaw(signal, false)
	if err != nil {
		return nil, err
	}
	observability.RecordSignalLoad(t.dataset.Name(), signal, false, time.Since(start))
	return sig, nil
}

// LoadBaselineData returns the pre-stimulus baseline matrix, when the
// corpus provides one.
func (t *TrialData) LoadBaselineData(signal string) (*mat.Dense, error) {
	return t.loadRaw(signal, true)
}

func (t *TrialData) LoadPreprocessedSignalData(signal string) (*mat.Dense, error) {
	start := time.Now()
	sig, err := t.loadRaw(signal, false)
	if err != nil {
		return nil, err
	}
	if p, ok := t.dataset.Preprocessors()[signal]; ok {
		sig, err = p.Process(sig)
		if err != nil {
			return nil, fmt.Errorf("aer: preprocess %s for participant %d media %d: %w",
				signal, t.ParticipantID(), t.MediaID(), err)
		}
	}
	observability.RecordSignalLoad(t.dataset.Name(), signal, true, time.Since(start))
	return sig, nil
}

func (t *TrialData) LoadGroundTruth() (Quadrant, error) {
	if !t.selfReport.Valid() {
		return QuadrantUnknown, ErrNoGroundTruth
	}
	return t.selfReport, nil
}

func (t *TrialData) loadRaw(signal string, baseline bool) (*mat.Dense, error) {
	files := t.signalFiles
	if baseline {
		files = t.baselineFiles
	}
	path, ok := files[signal]
	if !ok {
		return nil, fmt.Errorf("%w: %s (participant %d, media %d)",
			ErrSignalFileMissing, signal, t.ParticipantID(), t.MediaID())
	}
	return npy.Load(path)
}
