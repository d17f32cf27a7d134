package preprocess

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// MedianFilterLowPass models baseline noise with sequential 600 ms and
// 200 ms median filters, subtracts it from the signal, then applies a
// 12th-order Butterworth low-pass at 35 Hz forward and backward for zero
// phase. When TargetRate differs from SampleRate the result is resampled
// by the rational factor TargetRate/SampleRate.
type MedianFilterLowPass struct {
	SampleRate int
	TargetRate int
}

const (
	noiseWindowWideMS   = 600
	noiseWindowNarrowMS = 200
	lowPassCutoffHz     = 35.0
	lowPassOrder        = 12
)

func NewMedianFilterLowPass(sampleRate, targetRate int) MedianFilterLowPass {
	return MedianFilterLowPass{SampleRate: sampleRate, TargetRate: targetRate}
}

func (m MedianFilterLowPass) Process(sig *mat.Dense) (*mat.Dense, error) {
	if err := checkSignal(sig); err != nil {
		return nil, err
	}
	if m.SampleRate <= 0 {
		return nil, fmt.Errorf("preprocess: median filter requires positive sample rate")
	}
	target := m.TargetRate
	if target <= 0 {
		target = m.SampleRate
	}
	if float64(m.SampleRate)/2 <= lowPassCutoffHz {
		return nil, fmt.Errorf("preprocess: sample rate %d too low for %g Hz cutoff", m.SampleRate, lowPassCutoffHz)
	}

	sections := butterworthLowPassSections(lowPassOrder, lowPassCutoffHz, float64(m.SampleRate))

	rows, _ := sig.Dims()
	var out *mat.Dense
	for ch := 0; ch < rows; ch++ {
		row := mat.Row(nil, ch, sig)

		noise, err := m.medianFilter(row, noiseWindowWideMS)
		if err != nil {
			return nil, err
		}
		noise, err = m.medianFilter(noise, noiseWindowNarrowMS)
		if err != nil {
			return nil, err
		}
		cleaned := make([]float64, len(row))
		for i := range row {
			cleaned[i] = row[i] - noise[i]
		}

		cleaned = filtFilt(sections, cleaned)

		if target != m.SampleRate {
			cleaned = resamplePoly(cleaned, target, m.SampleRate)
		}

		if out == nil {
			out = mat.NewDense(rows, len(cleaned), nil)
		}
		out.SetRow(ch, cleaned)
	}
	return out, nil
}

func (m MedianFilterLowPass) medianFilter(signal []float64, windowMS int) ([]float64, error) {
	window := int(math.Round(float64(windowMS) / 1000 * float64(m.SampleRate)))
	if window%2 == 0 {
		window++
	}
	if window > len(signal) {
		return nil, fmt.Errorf("preprocess: median filter window (%d, %d ms) exceeds signal length (%d)",
			window, windowMS, len(signal))
	}
	return medianFilter(signal, window), nil
}

// medianFilter applies a sliding median with reflected edges.
func medianFilter(signal []float64, window int) []float64 {
	n := len(signal)
	half := window / 2
	out := make([]float64, n)
	buf := make([]float64, window)
	for i := 0; i < n; i++ {
		for k := 0; k < window; k++ {
			idx := i - half + k
			// reflect at the boundaries
			if idx < 0 {
				idx = -idx - 1
			}
			if idx >= n {
				idx = 2*n - idx - 1
			}
			buf[k] = signal[idx]
		}
		sort.Float64s(buf)
		out[i] = buf[half]
	}
	return out
}

// biquad is one second-order IIR section, normalized so a0 == 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// butterworthLowPassSections designs an order-n (n even) Butterworth
// low-pass as cascaded biquads via the bilinear transform.
func butterworthLowPassSections(order int, cutoffHz, sampleRate float64) []biquad {
	k := math.Tan(math.Pi * cutoffHz / sampleRate)
	k2 := k * k
	sections := make([]biquad, 0, order/2)
	for i := 1; i <= order/2; i++ {
		// analog prototype pole pair at angle (2i-1)*pi/(2*order)
		q := 2 * math.Sin(float64(2*i-1)*math.Pi/float64(2*order))
		d0 := 1 + q*k + k2
		sections = append(sections, biquad{
			b0: k2 / d0,
			b1: 2 * k2 / d0,
			b2: k2 / d0,
			a1: 2 * (k2 - 1) / d0,
			a2: (1 - q*k + k2) / d0,
		})
	}
	return sections
}

func (s biquad) apply(signal []float64) []float64 {
	out := make([]float64, len(signal))
	var w1, w2 float64 // direct form II transposed state
	for i, x := range signal {
		y := s.b0*x + w1
		w1 = s.b1*x - s.a1*y + w2
		w2 = s.b2*x - s.a2*y
		out[i] = y
	}
	return out
}

// filtFilt runs the cascade forward and backward over an odd-extended
// signal, cancelling phase distortion.
func filtFilt(sections []biquad, signal []float64) []float64 {
	padlen := 3 * (2*len(sections) + 1)
	if padlen >= len(signal) {
		padlen = len(signal) - 1
	}
	ext := oddExtend(signal, padlen)

	for _, s := range sections {
		ext = s.apply(ext)
	}
	reverse(ext)
	for _, s := range sections {
		ext = s.apply(ext)
	}
	reverse(ext)

	return ext[padlen : len(ext)-padlen]
}

func oddExtend(signal []float64, padlen int) []float64 {
	n := len(signal)
	ext := make([]float64, 0, n+2*padlen)
	for i := padlen; i >= 1; i-- {
		ext = append(ext, 2*signal[0]-signal[i])
	}
	ext = append(ext, signal...)
	for i := 1; i <= padlen; i++ {
		ext = append(ext, 2*signal[n-1]-signal[n-1-i])
	}
	return ext
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// resamplePoly resamples by the rational factor up/down using zero
// stuffing and a Hamming-windowed sinc anti-aliasing filter.
func resamplePoly(signal []float64, targetRate, sampleRate int) []float64 {
	g := gcd(targetRate, sampleRate)
	up := targetRate / g
	down := sampleRate / g
	if up == down {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	maxRate := up
	if down > maxRate {
		maxRate = down
	}
	half := 10 * maxRate
	taps := 2*half + 1
	fc := 1.0 / float64(maxRate) // normalized to Nyquist
	h := make([]float64, taps)
	for i := 0; i < taps; i++ {
		t := float64(i - half)
		var s float64
		if t == 0 {
			s = fc
		} else {
			s = math.Sin(math.Pi*fc*t) / (math.Pi * t)
		}
		// Hamming window
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(taps-1))
		h[i] = s * w * float64(up)
	}

	n := len(signal)
	outLen := (n*up + down - 1) / down
	out := make([]float64, outLen)
	for j := 0; j < outLen; j++ {
		center := j * down // index in the upsampled stream
		var acc float64
		for k := -half; k <= half; k++ {
			idx := center + k
			if idx%up != 0 {
				continue
			}
			src := idx / up
			if src < 0 || src >= n {
				continue
			}
			acc += signal[src] * h[half-k]
		}
		out[j] = acc
	}
	return out
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
