package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ChannelSelector retains a subset of signal channels. With no explicit
// selection it drops row 0, which corpora use for the timestamp channel.
type ChannelSelector struct {
	// Retain lists the channel indices to keep, in output order.
	Retain []int
}

// NewChannelSelector selects the given channels. An empty selection keeps
// every channel except the first.
func NewChannelSelector(retain ...int) ChannelSelector {
	return ChannelSelector{Retain: retain}
}

func (s ChannelSelector) Process(sig *mat.Dense) (*mat.Dense, error) {
	if err := checkSignal(sig); err != nil {
		return nil, err
	}
	rows, cols := sig.Dims()

	retain := s.Retain
	if len(retain) == 0 {
		retain = make([]int, 0, rows-1)
		for ch := 1; ch < rows; ch++ {
			retain = append(retain, ch)
		}
	}
	if len(retain) == 0 {
		return nil, fmt.Errorf("preprocess: channel selector would drop every channel")
	}

	out := mat.NewDense(len(retain), cols, nil)
	for i, ch := range retain {
		if ch < 0 || ch >= rows {
			return nil, fmt.Errorf("preprocess: channel %d out of range [0,%d)", ch, rows)
		}
		out.SetRow(i, mat.Row(nil, ch, sig))
	}
	return out, nil
}
