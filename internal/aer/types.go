package aer

import (
	"gonum.org/v1/gonum/mat"

	"github.com/aerlab/aerdctl/internal/preprocess"
)

// SignalMetadata describes one signal type within a dataset.
type SignalMetadata struct {
	SampleRate int
	Channels   int
}

// Quadrant is an affective quadrant in the valence/arousal plane.
// 1 = high arousal / high valence, 2 = high arousal / low valence,
// 3 = low arousal / low valence, 4 = low arousal / high valence.
// 0 means unknown.
type Quadrant int

const (
	QuadrantUnknown Quadrant = iota
	QuadrantHAHV
	QuadrantHALV
	QuadrantLALV
	QuadrantLAHV
)

// QuadrantFromScores maps self-report valence/arousal onto a Quadrant.
// Scores equal to the midpoint count as high.
func QuadrantFromScores(valence, arousal, valenceMid, arousalMid float64) Quadrant {
	if arousal >= arousalMid {
		if valence >= valenceMid {
			return QuadrantHAHV
		}
		return QuadrantHALV
	}
	if valence < valenceMid {
		return QuadrantLALV
	}
	return QuadrantLAHV
}

// Valid reports whether q is one of the four quadrants.
func (q Quadrant) Valid() bool {
	return q >= QuadrantHAHV && q <= QuadrantLAHV
}

// TrialFilter decides whether a loaded trial is kept. Filters compose
// with AND.
type TrialFilter func(Trial) bool

// Trial is one recorded session of a participant's signal data in
// response to a media stimulus. Identifiers include the owning dataset's
// offsets. Signal data is loaded lazily.
type Trial interface {
	ParticipantID() int
	MediaID() int
	MediaName() string
	ExpectedResponse() Quadrant
	SignalTypes() []string
	SignalMetadata(signal string) (SignalMetadata, bool)

	// LoadSignalData returns the raw channels-by-samples stimulus matrix.
	LoadSignalData(signal string) (*mat.Dense, error)
	// LoadPreprocessedSignalData runs the owning dataset's preprocessor
	// chain for the signal over the raw data.
	LoadPreprocessedSignalData(signal string) (*mat.Dense, error)
	// LoadGroundTruth returns the participant's self-report quadrant.
	LoadGroundTruth() (Quadrant, error)
}

// Dataset is a collection of trials for one corpus (or a composition of
// corpora). Implementations preload raw distributions into the working
// directory once, then build lightweight trials over the intermediates.
type Dataset interface {
	Name() string

	// Preload converts the raw distribution into working-dir
	// intermediates. It is idempotent: a working dir already covering the
	// configured signal types is left untouched.
	Preload() error
	// LoadTrials builds the trial collection, dropping trials rejected by
	// any filter.
	LoadTrials(filters ...TrialFilter) error

	Trials() []Trial
	Signals() []string
	ParticipantIDs() []int
	MediaIDs() []int
	MediaName(mediaID int) (string, bool)
	ExpectedResponses() map[int]Quadrant

	SignalMetadata(signal string) (SignalMetadata, bool)
	SetSignalMetadata(signal string, meta SignalMetadata)
	Preprocessors() map[string]preprocess.Preprocessor

	ParticipantOffset() int
	SetParticipantOffset(offset int)
	MediaOffset() int
	SetMediaOffset(offset int)

	WorkingDir() (string, error)
}
