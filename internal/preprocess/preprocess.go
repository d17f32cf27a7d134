// Package preprocess implements signal preprocessors applied to raw trial
// data before use. Signals are channels-by-samples matrices.
package preprocess

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNilSignal   = errors.New("preprocess: nil signal")
	ErrEmptySignal = errors.New("preprocess: empty signal")
)

// Preprocessor transforms a channels-by-samples signal matrix.
type Preprocessor interface {
	Process(sig *mat.Dense) (*mat.Dense, error)
}

// Chain applies preprocessors in order.
type Chain []Preprocessor

func (c Chain) Process(sig *mat.Dense) (*mat.Dense, error) {
	out := sig
	for _, p := range c {
		var err error
		out, err = p.Process(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkSignal(sig *mat.Dense) error {
	if sig == nil {
		return ErrNilSignal
	}
	r, c := sig.Dims()
	if r == 0 || c == 0 {
		return ErrEmptySignal
	}
	return nil
}
