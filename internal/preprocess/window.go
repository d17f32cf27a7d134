package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FixedDuration normalizes every channel to exactly Duration*SampleRate
// samples. Longer signals keep their trailing window; shorter signals are
// front-padded with PadValue.
type FixedDuration struct {
	DurationSeconds int
	SampleRate      int
	PadValue        float64
}

func NewFixedDuration(durationSeconds, sampleRate int, padValue float64) FixedDuration {
	return FixedDuration{
		DurationSeconds: durationSeconds,
		SampleRate:      sampleRate,
		PadValue:        padValue,
	}
}

func (f FixedDuration) Process(sig *mat.Dense) (*mat.Dense, error) {
	if err := checkSignal(sig); err != nil {
		return nil, err
	}
	if f.DurationSeconds <= 0 || f.SampleRate <= 0 {
		return nil, fmt.Errorf("preprocess: fixed duration requires positive duration and sample rate")
	}

	rows, cols := sig.Dims()
	target := f.DurationSeconds * f.SampleRate
	out := mat.NewDense(rows, target, nil)

	for ch := 0; ch < rows; ch++ {
		row := mat.Row(nil, ch, sig)
		switch {
		case cols == target:
			out.SetRow(ch, row)
		case cols > target:
			out.SetRow(ch, row[cols-target:])
		default:
			padded := make([]float64, target)
			for i := 0; i < target-cols; i++ {
				padded[i] = f.PadValue
			}
			copy(padded[target-cols:], row)
			out.SetRow(ch, padded)
		}
	}
	return out, nil
}
