package aer

import (
	"fmt"
	"math"
	"math/rand"
)

const fractionTolerance = 1e-4

// TrialSplits groups a dataset's trials into participant-disjoint splits.
// fractions are relative sizes and must sum to 1.0; rounding remainders go
// to the first split. Participants are assigned randomly, each to exactly
// one split.
func TrialSplits(ds Dataset, fractions []float64, rng *rand.Rand) ([][]Trial, error) {
	if len(fractions) == 0 {
		fractions = []float64{1}
	}
	var sum float64
	for _, f := range fractions {
		sum += f
	}
	if math.Abs(1-sum) > fractionTolerance {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFractions, sum)
	}

	trials := ds.Trials()
	if len(trials) == 0 {
		return nil, ErrNoTrials
	}
	if len(fractions) == 1 {
		return [][]Trial{trials}, nil
	}

	participants := ds.ParticipantIDs()
	counts := make([]int, len(fractions))
	total := 0
	for i, f := range fractions {
		counts[i] = int(f * float64(len(participants)))
		total += counts[i]
	}
	counts[0] += len(participants) - total

	shuffled := append([]int(nil), participants...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assignment := make(map[int]int, len(shuffled))
	next := 0
	for split, n := range counts {
		for i := 0; i < n; i++ {
			assignment[shuffled[next]] = split
			next++
		}
	}

	splits := make([][]Trial, len(fractions))
	for _, t := range trials {
		split := assignment[t.ParticipantID()]
		splits[split] = append(splits[split], t)
	}
	return splits, nil
}

// DatasetSplits wraps each trial split in a TrialSet carrying the source
// dataset's metadata and offsets.
func DatasetSplits(ds Dataset, fractions []float64, rng *rand.Rand) ([]*TrialSet, error) {
	splits, err := TrialSplits(ds, fractions, rng)
	if err != nil {
		return nil, err
	}
	sets := make([]*TrialSet, len(splits))
	for i, trials := range splits {
		sets[i] = NewTrialSet(fmt.Sprintf("%s-split%d", ds.Name(), i), ds, trials)
	}
	return sets, nil
}

// BalancedTrials builds a quadrant-balanced trial set. With oversample
// every quadrant is inflated (sampling with replacement) to the largest
// quadrant's size; otherwise each is cut down to the smallest. Trials
// without a valid quadrant are dropped. useExpected selects the stimulus'
// expected response instead of the participant self-report.
//
// All four quadrants count toward the target size: a quadrant with no
// trials drives the undersampled size to zero, and oversampling from it
// is an error.
func BalancedTrials(ds Dataset, oversample, useExpected bool, rng *rand.Rand) (*TrialSet, error) {
	byQuad, err := trialsByQuadrant(ds, useExpected)
	if err != nil {
		return nil, err
	}

	size := 0
	if !oversample {
		size = math.MaxInt
	}
	for q := QuadrantHAHV; q <= QuadrantLAHV; q++ {
		n := len(byQuad[q])
		if oversample {
			if n == 0 {
				return nil, fmt.Errorf("%w: quadrant %d", ErrEmptyQuadrant, q)
			}
			if n > size {
				size = n
			}
		} else if n < size {
			size = n
		}
	}

	balanced := make([]Trial, 0, 4*size)
	for q := QuadrantHAHV; q <= QuadrantLAHV; q++ {
		balanced = append(balanced, sampleTrials(byQuad[q], size, oversample, rng)...)
	}
	rng.Shuffle(len(balanced), func(i, j int) {
		balanced[i], balanced[j] = balanced[j], balanced[i]
	})

	return NewTrialSet(ds.Name()+"-balanced", ds, balanced), nil
}

// InterleavedTrials oversamples every quadrant to the largest quadrant's
// size and merges them round-robin, so consecutive trials rotate through
// the quadrants. A quadrant with no trials to oversample from is an
// error.
func InterleavedTrials(ds Dataset, useExpected bool, rng *rand.Rand) (*TrialSet, error) {
	byQuad, err := trialsByQuadrant(ds, useExpected)
	if err != nil {
		return nil, err
	}

	max := 0
	for q := QuadrantHAHV; q <= QuadrantLAHV; q++ {
		n := len(byQuad[q])
		if n == 0 {
			return nil, fmt.Errorf("%w: quadrant %d", ErrEmptyQuadrant, q)
		}
		if n > max {
			max = n
		}
	}

	lists := make([][]Trial, 0, 4)
	for q := QuadrantHAHV; q <= QuadrantLAHV; q++ {
		lists = append(lists, sampleTrials(byQuad[q], max, true, rng))
	}

	merged := make([]Trial, 0, 4*max)
	for i := 0; i < max; i++ {
		for _, list := range lists {
			if i < len(list) {
				merged = append(merged, list[i])
			}
		}
	}
	return NewTrialSet(ds.Name()+"-interleaved", ds, merged), nil
}

func trialsByQuadrant(ds Dataset, useExpected bool) (map[Quadrant][]Trial, error) {
	trials := ds.Trials()
	if len(trials) == 0 {
		return nil, ErrNoTrials
	}
	byQuad := make(map[Quadrant][]Trial, 4)
	for _, t := range trials {
		q := t.ExpectedResponse()
		if !useExpected {
			var err error
			q, err = t.LoadGroundTruth()
			if err != nil {
				continue
			}
		}
		if !q.Valid() {
			continue
		}
		byQuad[q] = append(byQuad[q], t)
	}
	return byQuad, nil
}

func sampleTrials(trials []Trial, size int, replace bool, rng *rand.Rand) []Trial {
	if len(trials) == 0 {
		return nil
	}
	if replace {
		out := make([]Trial, size)
		for i := range out {
			out[i] = trials[rng.Intn(len(trials))]
		}
		return out
	}
	if size > len(trials) {
		size = len(trials)
	}
	idx := rng.Perm(len(trials))[:size]
	out := make([]Trial, size)
	for i, j := range idx {
		out[i] = trials[j]
	}
	return out
}
