package aer

// TrialSet is a dataset wrapper around a fixed trial slice, used for
// splits and balanced/interleaved views. Preload and LoadTrials are
// no-ops; metadata, expected responses and offsets are inherited from the
// source dataset when one is given.
type TrialSet struct {
	*Base
}

// NewTrialSet wraps trials in a standalone dataset named name. source may
// be nil; when present its signal metadata, expected responses and
// offsets carry over.
func NewTrialSet(name string, source Dataset, trials []Trial) *TrialSet {
	var (
		metadata map[string]SignalMetadata
		expected map[int]Quadrant
		signals  []string
		workRoot string
	)
	if source != nil {
		metadata = make(map[string]SignalMetadata)
		for _, s := range source.Signals() {
			if meta, ok := source.SignalMetadata(s); ok {
				metadata[s] = meta
			}
		}
		expected = source.ExpectedResponses()
		signals = source.Signals()
	}

	set := &TrialSet{Base: NewBase(name, workRoot, signals, metadata, expected)}
	if source != nil {
		set.SetParticipantOffset(source.ParticipantOffset())
		set.SetMediaOffset(source.MediaOffset())
	}
	set.SetTrials(trials)
	for _, t := range trials {
		set.SetMediaName(t.MediaID()-set.MediaOffset(), t.MediaName())
	}
	return set
}

func (s *TrialSet) Preload() error { return nil }

func (s *TrialSet) LoadTrials(filters ...TrialFilter) error {
	s.FinishLoad(s.Trials(), filters)
	return nil
}
