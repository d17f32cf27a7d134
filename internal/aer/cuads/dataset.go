// Package cuads loads the CUADS corpus: three-channel ECG recordings
// distributed as per-trial CSV files with a ratings index. Preload
// converts each trial CSV into a channels-by-samples .npy intermediate.
package cuads

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/aerlab/aerdctl/internal/aer"
	"github.com/aerlab/aerdctl/internal/npy"
	"github.com/aerlab/aerdctl/internal/observability"
	"gonum.org/v1/gonum/mat"
)

const (
	DatasetName = "CuadsDataset"

	NumParticipants = 38
	NumMediaFiles   = 20

	ECGSampleRate = 256
	ECGChannels   = 3

	// Self-reports use a 1..9 scale; 5 counts as high.
	scoreMidpoint = 5

	ratingsFile = "ratings.csv"
)

var ErrInvalidPath = errors.New("cuads: invalid path to CUADS dataset")

// Stimulus targets per media id, following the DECAF classification of
// the source clips.
var expectedResponses = map[int]aer.Quadrant{
	1: aer.QuadrantHAHV, 2: aer.QuadrantHAHV, 3: aer.QuadrantHAHV, 4: aer.QuadrantHAHV,
	5: aer.QuadrantHAHV, 6: aer.QuadrantHALV, 7: aer.QuadrantHALV, 8: aer.QuadrantHALV,
	9: aer.QuadrantHALV, 10: aer.QuadrantHALV, 11: aer.QuadrantLALV, 12: aer.QuadrantLALV,
	13: aer.QuadrantLALV, 14: aer.QuadrantLALV, 15: aer.QuadrantLALV, 16: aer.QuadrantLAHV,
	17: aer.QuadrantLAHV, 18: aer.QuadrantLAHV, 19: aer.QuadrantLAHV, 20: aer.QuadrantLAHV,
}

// Dataset is the CUADS corpus.
type Dataset struct {
	*aer.Base
	root string
}

// New constructs a CuadsDataset rooted at path, which must contain
// ratings.csv and the ECG/ tree.
func New(path, workRoot string) (*Dataset, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	if _, err := os.Stat(filepath.Join(path, ratingsFile)); err != nil {
		return nil, fmt.Errorf("%w: %s has no %s", ErrInvalidPath, path, ratingsFile)
	}

	log.Debug().Str("path", path).Msg("loading CUADS")

	return &Dataset{
		Base: aer.NewBase(DatasetName, workRoot, []string{"ECG"},
			map[string]aer.SignalMetadata{
				"ECG": {SampleRate: ECGSampleRate, Channels: ECGChannels},
			},
			expectedResponses),
		root: path,
	}, nil
}

// rating is one row of ratings.csv.
type rating struct {
	participant int
	media       int
	mediaName   string
	valence     float64
	arousal     float64
}

// Preload converts every trial CSV referenced by ratings.csv into a .npy
// intermediate. Idempotent.
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

func (d *Dataset) convert() error {
	ratings, err := d.readRatings()
	if err != nil {
		return err
	}
	for _, r := range ratings {
		sig, err := d.readTrialCSV(r.participant, r.media)
		if err != nil {
			return err
		}
		path, err := d.WorkingPath(aer.PathSpec{
			DatasetParticipantID: r.participant,
			DatasetMediaID:       r.media,
			Signal:               "ECG",
		})
		if err != nil {
			return err
		}
		if err := npy.Save(path, sig); err != nil {
			return err
		}
	}
	return nil
}

// LoadTrials builds one trial per ratings.csv row over the preloaded
// intermediates.
func (d *Dataset) LoadTrials(filters ...aer.TrialFilter) error {
	if err := d.Preload(); err != nil {
		return err
	}
	ratings, err := d.readRatings()
	if err != nil {
		return err
	}

	trials := make([]aer.Trial, 0, len(ratings))
	for _, r := range ratings {
		d.SetMediaName(r.media, r.mediaName)
		path, err := d.WorkingPath(aer.PathSpec{
			DatasetParticipantID: r.participant,
			DatasetMediaID:       r.media,
			Signal:               "ECG",
		})
		if err != nil {
			return err
		}
		trials = append(trials, aer.NewTrial(d, r.participant, r.media, r.mediaName,
			expectedResponses[r.media],
			aer.QuadrantFromScores(r.valence, r.arousal, scoreMidpoint, scoreMidpoint),
			map[string]string{"ECG": path}))
	}

	d.FinishLoad(trials, filters)
	observability.RecordTrialsLoaded(DatasetName, len(d.Trials()))
	return nil
}

func (d *Dataset) readRatings() ([]rating, error) {
	f, err := os.Open(filepath.Join(d.root, ratingsFile))
	if err != nil {
		return nil, fmt.Errorf("cuads: open ratings: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cuads: read ratings header: %w", err)
	}
	if len(header) < 5 {
		return nil, fmt.Errorf("cuads: ratings header has %d columns, want 5", len(header))
	}

	var ratings []rating
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("cuads: ratings line %d: %w", line, err)
		}
		r, err := parseRating(record)
		if err != nil {
			return nil, fmt.Errorf("cuads: ratings line %d: %w", line, err)
		}
		ratings = append(ratings, r)
	}
	if len(ratings) == 0 {
		return nil, fmt.Errorf("cuads: ratings file is empty")
	}
	return ratings, nil
}

func parseRating(record []string) (rating, error) {
	if len(record) < 5 {
		return rating{}, fmt.Errorf("short record (%d columns)", len(record))
	}
	participant, err := strconv.Atoi(record[0])
	if err != nil {
		return rating{}, fmt.Errorf("participant id: %w", err)
	}
	media, err := strconv.Atoi(record[1])
	if err != nil {
		return rating{}, fmt.Errorf("media id: %w", err)
	}
	valence, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return rating{}, fmt.Errorf("valence: %w", err)
	}
	arousal, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return rating{}, fmt.Errorf("arousal: %w", err)
	}
	return rating{
		participant: participant,
		media:       media,
		mediaName:   record[2],
		valence:     valence,
		arousal:     arousal,
	}, nil
}

// readTrialCSV loads ECG/participant_NN/media_MM.csv, where rows are
// samples and columns channels, into a channels-by-samples matrix.
func (d *Dataset) readTrialCSV(participant, media int) (*mat.Dense, error) {
	path := filepath.Join(d.root, "ECG",
		fmt.Sprintf("participant_%02d", participant),
		fmt.Sprintf("media_%02d.csv", media))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cuads: open trial data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	var samples [][]float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cuads: parse %s: %w", path, err)
		}
		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("cuads: parse %s: %w", path, err)
			}
			row[i] = v
		}
		samples = append(samples, row)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("cuads: empty trial data %s", path)
	}

	channels := len(samples[0])
	out := mat.NewDense(channels, len(samples), nil)
	for i, row := range samples {
		if len(row) != channels {
			return nil, fmt.Errorf("cuads: ragged trial data %s", path)
		}
		for ch, v := range row {
			out.Set(ch, i, v)
		}
	}
	return out, nil
}
