package dreamer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/aerlab/aerdctl/internal/aer"
	"github.com/aerlab/aerdctl/internal/npy"
)

const manifestFile = "manifest.json"

// manifest records what a preload produced, so trial loading does not
// depend on the raw distribution being present.
type manifest struct {
	Participants int `json:"participants"`
	Media        int `json:"media"`
}

// participantRecord is one entry of the DREAMER "Data" array. Clip
// matrices arrive samples-major.
type participantRecord struct {
	Age    string       `json:"Age"`
	Gender string       `json:"Gender"`
	EEG    signalRecord `json:"EEG"`
	ECG    signalRecord `json:"ECG"`

	ScoreValence   []float64 `json:"ScoreValence"`
	ScoreArousal   []float64 `json:"ScoreArousal"`
	ScoreDominance []float64 `json:"ScoreDominance"`
}

type signalRecord struct {
	Baseline [][][]float64 `json:"baseline"`
	Stimuli  [][][]float64 `json:"stimuli"`
}

// convert streams the DREAMER JSON document, decoding one participant at
// a time. The document is a single object holding a "DREAMER" object
// whose "Data" array carries the per-participant records; everything else
// is skipped.
func (d *Dataset) convert() error {
	f, err := os.Open(d.jsonPath)
	if err != nil {
		return fmt.Errorf("dreamer: open %s: %w", d.jsonPath, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("dreamer: malformed document: %w", err)
	}

	var m manifest
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return fmt.Errorf("dreamer: malformed document: %w", err)
		}
		if key != "DREAMER" {
			if err := skipValue(dec); err != nil {
				return fmt.Errorf("dreamer: skip %q: %w", key, err)
			}
			continue
		}
		if m, err = d.convertBody(dec); err != nil {
			return err
		}
	}

	if m.Participants == 0 {
		return fmt.Errorf("dreamer: document %s contains no participant data", d.jsonPath)
	}
	return d.writeManifest(m)
}

func (d *Dataset) convertBody(dec *json.Decoder) (manifest, error) {
	var m manifest
	if err := expectDelim(dec, '{'); err != nil {
		return m, fmt.Errorf("dreamer: malformed DREAMER object: %w", err)
	}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return m, fmt.Errorf("dreamer: malformed DREAMER object: %w", err)
		}
		if key != "Data" {
			if err := skipValue(dec); err != nil {
				return m, fmt.Errorf("dreamer: skip %q: %w", key, err)
			}
			continue
		}

		if err := expectDelim(dec, '['); err != nil {
			return m, fmt.Errorf("dreamer: malformed Data array: %w", err)
		}
		participant := 0
		for dec.More() {
			participant++
			var rec participantRecord
			if err := dec.Decode(&rec); err != nil {
				return m, fmt.Errorf("dreamer: decode participant %d: %w", participant, err)
			}
			media, err := d.writeParticipant(participant, rec)
			if err != nil {
				return m, err
			}
			if media > m.Media {
				m.Media = media
			}
			log.Debug().Int("participant", participant).Int("clips", media).Msg("dreamer participant converted")
		}
		if err := expectDelim(dec, ']'); err != nil {
			return m, fmt.Errorf("dreamer: malformed Data array: %w", err)
		}
		m.Participants = participant
	}
	if err := expectDelim(dec, '}'); err != nil {
		return m, fmt.Errorf("dreamer: malformed DREAMER object: %w", err)
	}
	return m, nil
}

// writeParticipant persists one participant's clip matrices and ratings;
// returns the number of clips seen.
func (d *Dataset) writeParticipant(participant int, rec participantRecord) (int, error) {
	media := 0
	for _, signal := range d.Signals() {
		var sr signalRecord
		switch signal {
		case "ECG":
			sr = rec.ECG
		case "EEG":
			sr = rec.EEG
		default:
			return 0, fmt.Errorf("%w: %s", ErrInvalidSignal, signal)
		}
		if len(sr.Stimuli) > media {
			media = len(sr.Stimuli)
		}

		for clip, sig := range sr.Stimuli {
			if err := d.writeClip(participant, clip+1, signal, false, sig); err != nil {
				return 0, err
			}
		}
		for clip, sig := range sr.Baseline {
			if err := d.writeClip(participant, clip+1, signal, true, sig); err != nil {
				return 0, err
			}
		}
	}

	ratings := ratingsFile{
		Valence:   rec.ScoreValence,
		Arousal:   rec.ScoreArousal,
		Dominance: rec.ScoreDominance,
	}
	path, err := d.ratingsPath(participant)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(ratings)
	if err != nil {
		return 0, fmt.Errorf("dreamer: encode ratings for participant %d: %w", participant, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("dreamer: write ratings for participant %d: %w", participant, err)
	}
	return media, nil
}

func (d *Dataset) writeClip(participant, media int, signal string, baseline bool, samples [][]float64) error {
	if len(samples) == 0 {
		return fmt.Errorf("dreamer: empty %s clip (participant %d, media %d)", signal, participant, media)
	}
	channels := len(samples[0])
	out := mat.NewDense(channels, len(samples), nil)
	for i, row := range samples {
		if len(row) != channels {
			return fmt.Errorf("dreamer: ragged %s clip (participant %d, media %d)", signal, participant, media)
		}
		for ch, v := range row {
			out.Set(ch, i, v)
		}
	}

	path, err := d.WorkingPath(aer.PathSpec{
		DatasetParticipantID: participant,
		DatasetMediaID:       media,
		Signal:               signal,
		Baseline:             baseline,
	})
	if err != nil {
		return err
	}
	return npy.Save(path, out)
}

func (d *Dataset) writeManifest(m manifest) error {
	dir, err := d.WorkingDir()
	if err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("dreamer: encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644); err != nil {
		return fmt.Errorf("dreamer: write manifest: %w", err)
	}
	return nil
}

func (d *Dataset) readManifest() (manifest, error) {
	dir, err := d.WorkingDir()
	if err != nil {
		return manifest{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return manifest{}, fmt.Errorf("dreamer: read manifest (preload first?): %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest{}, fmt.Errorf("dreamer: parse manifest: %w", err)
	}
	return m, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}

// skipValue consumes one JSON value, tracking nesting depth.
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}
